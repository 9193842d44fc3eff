package normalize

import (
	"math"
	"testing"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		name      string
		v, lo, hi float64
		expected  float64
	}{
		{"inside", 0.5, 0, 1, 0.5},
		{"below", -2, 0, 1, 0},
		{"above", 3, 0, 1, 1},
		{"at low edge", 0, 0, 1, 0},
		{"at high edge", 1, 0, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clamp(tt.v, tt.lo, tt.hi); got != tt.expected {
				t.Errorf("Clamp(%g, %g, %g) = %g, want %g", tt.v, tt.lo, tt.hi, got, tt.expected)
			}
		})
	}
}

func TestLinearRoundTrip(t *testing.T) {
	for _, v := range []float64{0, 0.25, 7.5, 19.99, 20} {
		tnorm := Linear(v, 0, 20)
		back := DenormalizeLinear(tnorm, 0, 20)
		if math.Abs(back-v) > 1e-9 {
			t.Errorf("DenormalizeLinear(Linear(%g)) = %g", v, back)
		}
	}
}

func TestLinearDegenerate(t *testing.T) {
	if got := Linear(5, 3, 3); got != 0 {
		t.Errorf("Linear with empty range = %g, want 0", got)
	}
}

func TestLogRoundTrip(t *testing.T) {
	// Values inside the representable range must survive a normalize /
	// denormalize pair exactly, within float tolerance.
	for _, v := range []float64{0.001, 0.01, 0.5, 1, 9.99, 10} {
		tnorm := Log(v, 0.001, 10)
		back := DenormalizeLog(tnorm, 0.001, 10)
		if math.Abs(back-v) > v*1e-9 {
			t.Errorf("DenormalizeLog(Log(%g)) = %g", v, back)
		}
	}
}

func TestLogEdges(t *testing.T) {
	tests := []struct {
		name     string
		v        float64
		expected float64
	}{
		{"below min clamps to 0", 0.0001, 0},
		{"zero clamps to 0", 0, 0},
		{"at min", 0.001, 0},
		{"at max", 10, 1},
		{"above max clamps to 1", 100, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Log(tt.v, 0.001, 10); got != tt.expected {
				t.Errorf("Log(%g) = %g, want %g", tt.v, got, tt.expected)
			}
		})
	}

	if got := Log(5, 0, 10); got != 0 {
		t.Errorf("Log with zero min = %g, want 0", got)
	}
	if got := DenormalizeLog(0.5, 0, 10); got != 0 {
		t.Errorf("DenormalizeLog with zero min = %g, want 0", got)
	}
}

func TestLogMidpoint(t *testing.T) {
	// The log curve's midpoint is the geometric mean of the range.
	mid := DenormalizeLog(0.5, 0.001, 10)
	want := math.Sqrt(0.001 * 10)
	if math.Abs(mid-want) > 1e-9 {
		t.Errorf("DenormalizeLog(0.5) = %g, want %g", mid, want)
	}
}

func TestSignedByteRoundTrip(t *testing.T) {
	for v := -128; v <= 127; v++ {
		if got := SignedByte(ToSignedByte(v)); got != v {
			t.Errorf("SignedByte(ToSignedByte(%d)) = %d", v, got)
		}
	}
}

func TestSignedByteValues(t *testing.T) {
	tests := []struct {
		b        byte
		expected int
	}{
		{0x00, 0},
		{0x01, 1},
		{0x7F, 127},
		{0x80, -128},
		{0xFF, -1},
		{0xCE, -50},
		{0x32, 50},
	}

	for _, tt := range tests {
		if got := SignedByte(tt.b); got != tt.expected {
			t.Errorf("SignedByte(0x%02X) = %d, want %d", tt.b, got, tt.expected)
		}
	}
}

func TestBiasedRoundTrip(t *testing.T) {
	for v := -128; v <= 127; v++ {
		if got := FromBiased(ToBiased(v)); got != v {
			t.Errorf("FromBiased(ToBiased(%d)) = %d", v, got)
		}
	}
}

func TestBiasedValues(t *testing.T) {
	// Biased and two's-complement disagree on every nonzero value; keep
	// the two encodings distinct.
	tests := []struct {
		b        byte
		expected int
	}{
		{128, 0},
		{0, -128},
		{255, 127},
		{134, 6},
		{122, -6},
	}

	for _, tt := range tests {
		if got := FromBiased(tt.b); got != tt.expected {
			t.Errorf("FromBiased(%d) = %d, want %d", tt.b, got, tt.expected)
		}
	}
}

func TestTwosComplement16(t *testing.T) {
	tests := []struct {
		v        uint64
		expected int64
	}{
		{0x0000, 0},
		{0x7FFF, 32767},
		{0x8000, -32768},
		{0xFFFF, -1},
	}

	for _, tt := range tests {
		if got := TwosComplement(tt.v, 16); got != tt.expected {
			t.Errorf("TwosComplement(0x%04X, 16) = %d, want %d", tt.v, got, tt.expected)
		}
		if got := ToTwosComplement(tt.expected, 16); got != tt.v {
			t.Errorf("ToTwosComplement(%d, 16) = 0x%04X, want 0x%04X", tt.expected, got, tt.v)
		}
	}
}

func TestGainToUnit(t *testing.T) {
	tests := []struct {
		name     string
		db       float64
		expected float64
	}{
		{"unity", 0, 0},
		{"half", 3, 0.5},
		{"hardware max", 6, 1},
		{"above max saturates", 9, 1},
		{"negative collapses to 0", -3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GainToUnit(tt.db); math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("GainToUnit(%g) = %g, want %g", tt.db, got, tt.expected)
			}
		})
	}
}

func TestUnitToGainRoundTrip(t *testing.T) {
	// The 0..+6 dB range survives the pair exactly; everything outside
	// is unrepresentable and must saturate, never wrap.
	for _, db := range []float64{0, 1.5, 3, 6} {
		back := UnitToGain(GainToUnit(db))
		if math.Abs(back-db) > 1e-9 {
			t.Errorf("UnitToGain(GainToUnit(%g)) = %g", db, back)
		}
	}
	if got := UnitToGain(GainToUnit(12)); got != 6 {
		t.Errorf("gain above hardware max = %g, want 6", got)
	}
}
