package model

import "testing"

func TestNewZoneDefaults(t *testing.T) {
	z := NewZone()

	if z.KeyLow != 0 || z.KeyHigh != 127 {
		t.Errorf("key range = %d-%d, want 0-127", z.KeyLow, z.KeyHigh)
	}
	if z.KeyRoot != 60 {
		t.Errorf("root = %d, want 60", z.KeyRoot)
	}
	if z.VelocityLow != 0 || z.VelocityHigh != 127 {
		t.Errorf("velocity range = %d-%d, want 0-127", z.VelocityLow, z.VelocityHigh)
	}
	if !z.PitchTracking {
		t.Error("pitch tracking should default to on")
	}
}

func TestClampRoot(t *testing.T) {
	tests := []struct {
		name            string
		low, root, high int
		expected        int
	}{
		{"inside range untouched", 40, 60, 80, 60},
		{"below range raises", 40, 30, 80, 40},
		{"above range lowers", 40, 100, 80, 80},
		{"at low edge", 40, 40, 80, 40},
		{"at high edge", 40, 80, 80, 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			z := &Zone{KeyLow: tt.low, KeyRoot: tt.root, KeyHigh: tt.high}
			z.ClampRoot()
			if z.KeyRoot != tt.expected {
				t.Errorf("ClampRoot: root = %d, want %d", z.KeyRoot, tt.expected)
			}
		})
	}
}

func TestLoopLength(t *testing.T) {
	l := Loop{Start: 100, End: 2000}
	if got := l.Length(); got != 1900 {
		t.Errorf("Length() = %d, want 1900", got)
	}
}

func TestEnvelopeModulatorApplied(t *testing.T) {
	var m EnvelopeModulator
	if m.Applied() {
		t.Error("zero-depth modulator should not be applied")
	}

	m.Depth = 0.5
	if !m.Applied() {
		t.Error("modulator with depth 0.5 should be applied")
	}

	m.Depth = -1
	if !m.Applied() {
		t.Error("modulator with negative depth should be applied")
	}
}

func TestIntersectsKeyVel(t *testing.T) {
	z := &Zone{KeyLow: 40, KeyHigh: 60, VelocityLow: 0, VelocityHigh: 100}

	tests := []struct {
		name                             string
		keyLow, keyHigh, velLow, velHigh int
		expected                         bool
	}{
		{"full overlap", 0, 127, 0, 127, true},
		{"edge touch", 60, 80, 0, 127, true},
		{"key disjoint", 61, 80, 0, 127, false},
		{"velocity disjoint", 0, 127, 101, 127, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := z.IntersectsKeyVel(tt.keyLow, tt.keyHigh, tt.velLow, tt.velHigh)
			if got != tt.expected {
				t.Errorf("IntersectsKeyVel = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestClipKeyVel(t *testing.T) {
	z := &Zone{KeyLow: 40, KeyHigh: 90, VelocityLow: 0, VelocityHigh: 127}
	z.ClipKeyVel(50, 80, 10, 100)

	if z.KeyLow != 50 || z.KeyHigh != 80 {
		t.Errorf("clipped key range = %d-%d, want 50-80", z.KeyLow, z.KeyHigh)
	}
	if z.VelocityLow != 10 || z.VelocityHigh != 100 {
		t.Errorf("clipped velocity range = %d-%d, want 10-100", z.VelocityLow, z.VelocityHigh)
	}
}

func TestInstrumentZones(t *testing.T) {
	z1, z2, z3 := NewZone(), NewZone(), NewZone()
	in := &Instrument{
		Groups: []*Group{
			{Name: "a", Zones: []*Zone{z1, z2}},
			{Name: "b", Zones: []*Zone{z3}},
		},
	}

	zones := in.Zones()
	if len(zones) != 3 {
		t.Fatalf("Zones() returned %d zones, want 3", len(zones))
	}
	if zones[0] != z1 || zones[1] != z2 || zones[2] != z3 {
		t.Error("Zones() did not preserve document order")
	}
	if in.ZoneCount() != 3 {
		t.Errorf("ZoneCount() = %d, want 3", in.ZoneCount())
	}
}

func TestFilterTypeString(t *testing.T) {
	tests := []struct {
		typ      FilterType
		expected string
	}{
		{FilterLowPass, "lowpass"},
		{FilterHighPass, "highpass"},
		{FilterBandPass, "bandpass"},
		{FilterBandReject, "bandreject"},
		{FilterType(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.expected {
			t.Errorf("FilterType(%d).String() = %q, want %q", tt.typ, got, tt.expected)
		}
	}
}
