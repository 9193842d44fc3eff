// Package normalize holds the numeric transforms shared by the codecs:
// linear and logarithmic range normalization, two's-complement byte
// packing, and the hardware gain curve. Everything here is a pure
// function; results land inside the documented range and never fail.
package normalize

import "math"

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Linear maps v in [min, max] to [0, 1].
func Linear(v, min, max float64) float64 {
	if max == min {
		return 0
	}
	return Clamp((v-min)/(max-min), 0, 1)
}

// DenormalizeLinear is the inverse of Linear.
func DenormalizeLinear(t, min, max float64) float64 {
	return min + Clamp(t, 0, 1)*(max-min)
}

// Log maps v in [min, max] to [0, 1] on a logarithmic curve:
// ln(v/min) / ln(max/min). Hardware envelope times are calibrated to
// this curve, so the choice of Log vs Linear per field is part of the
// wire contract and must not be changed.
func Log(v, min, max float64) float64 {
	if min <= 0 || max <= min {
		return 0
	}
	if v <= min {
		return 0
	}
	return Clamp(math.Log(v/min)/math.Log(max/min), 0, 1)
}

// DenormalizeLog is the inverse of Log: min * e^(t * ln(max/min)).
func DenormalizeLog(t, min, max float64) float64 {
	if min <= 0 || max <= min {
		return min
	}
	return min * math.Exp(Clamp(t, 0, 1)*math.Log(max/min))
}

// TwosComplement decodes an unsigned value of the given bit width into a
// signed integer.
func TwosComplement(v uint64, bits uint) int64 {
	if bits == 0 || bits > 63 {
		return int64(v)
	}
	mask := uint64(1) << (bits - 1)
	if v&mask != 0 {
		return int64(v) - int64(uint64(1)<<bits)
	}
	return int64(v)
}

// ToTwosComplement encodes a signed integer into an unsigned value of the
// given bit width.
func ToTwosComplement(v int64, bits uint) uint64 {
	if bits == 0 || bits > 63 {
		return uint64(v)
	}
	return uint64(v) & ((uint64(1) << bits) - 1)
}

// SignedByte decodes a single two's-complement octet.
func SignedByte(b byte) int {
	return int(TwosComplement(uint64(b), 8))
}

// ToSignedByte encodes an integer as a two's-complement octet.
func ToSignedByte(v int) byte {
	return byte(ToTwosComplement(int64(v), 8))
}

// FromBiased decodes a byte stored with a +128 bias. A handful of fields
// in the binary instrument format use this convention instead of plain
// two's complement; the asymmetry is preserved exactly as observed.
func FromBiased(b byte) int {
	return int(b) - 128
}

// ToBiased encodes an integer as a +128 biased byte.
func ToBiased(v int) byte {
	if v < -128 {
		v = -128
	}
	if v > 127 {
		v = 127
	}
	return byte(v + 128)
}

// Gain curve constants. The XML keygroup hardware stores layer volume as
// 0..1 spanning 0 dB..+6 dB; the canonical model carries plain dB in
// -12..+12.
const (
	hardwareGainMax  = 6.0
	canonicalGainMin = -12.0
	canonicalGainMax = 12.0
)

// GainToUnit maps a canonical gain in dB to the hardware 0..1 volume.
// Gains below 0 dB collapse to 0 and gains above +6 dB saturate at 1;
// both are outside what the hardware can represent.
func GainToUnit(db float64) float64 {
	db = Clamp(db, canonicalGainMin, canonicalGainMax)
	return Clamp(db/hardwareGainMax, 0, 1)
}

// UnitToGain is the inverse of GainToUnit on the representable range.
func UnitToGain(u float64) float64 {
	return Clamp(u, 0, 1) * hardwareGainMax
}
