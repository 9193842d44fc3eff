// Package model holds the format-agnostic multisample representation that
// every codec decodes into and encodes from. It is pure data: no I/O, no
// format knowledge beyond the value ranges documented on each field.
package model

// MaxFrequency is the upper bound for filter cutoff values in Hz.
const MaxFrequency = 20000.0

// TriggerType selects when a group's zones are triggered.
type TriggerType int

const (
	TriggerAttack TriggerType = iota
	TriggerRelease
)

// PlayLogic selects how overlapping zones in the same range are chosen.
type PlayLogic int

const (
	PlayAlways PlayLogic = iota
	PlayRoundRobin
)

// LoopDirection is the playback direction of a loop.
type LoopDirection int

const (
	LoopForward LoopDirection = iota
	LoopReverse
)

// LoopType distinguishes plain loops from back-and-forth loops.
type LoopType int

const (
	LoopSimple LoopType = iota
	LoopAlternating
)

// FilterType is the canonical filter family.
type FilterType int

const (
	FilterLowPass FilterType = iota
	FilterHighPass
	FilterBandPass
	FilterBandReject
)

func (t FilterType) String() string {
	switch t {
	case FilterLowPass:
		return "lowpass"
	case FilterHighPass:
		return "highpass"
	case FilterBandPass:
		return "bandpass"
	case FilterBandReject:
		return "bandreject"
	}
	return "unknown"
}

// SampleRef points at the audio data backing a zone. The audio itself is
// owned elsewhere; codecs only read the metadata carried here.
type SampleRef struct {
	Name       string // file name as stored in the preset
	Path       string // resolved on-disk path, empty if not found
	SampleRate int
	BitDepth   int
	Channels   int
	Frames     int64
}

// Loop is one loop region inside a zone. Crossfade is kept as a fraction
// of the loop length; codecs convert to absolute frames or milliseconds
// at their boundary.
type Loop struct {
	Start             int64
	End               int64
	CrossfadeFraction float64
	Direction         LoopDirection
	Type              LoopType
}

// Length returns the loop length in sample frames.
func (l Loop) Length() int64 {
	return l.End - l.Start
}

// Envelope is a DAHDSR envelope. Times are seconds, sustain is 0..1 and
// the slope fields are -1..1 with 0 meaning linear.
type Envelope struct {
	Delay   float64
	Attack  float64
	Hold    float64
	Decay   float64
	Sustain float64
	Release float64

	AttackSlope  float64
	DecaySlope   float64
	ReleaseSlope float64
}

// EnvelopeModulator wraps an envelope with a signed depth. Depth 0 means
// the envelope is not applied and destination codecs must not emit it.
type EnvelopeModulator struct {
	Envelope Envelope
	Depth    float64
}

// Applied reports whether the modulator has any effect.
func (m EnvelopeModulator) Applied() bool {
	return m.Depth != 0
}

// Filter is a cutoff filter with its modulation sources.
type Filter struct {
	Type      FilterType
	Poles     int     // 1..4, format-dependent subset
	Cutoff    float64 // Hz, 0..MaxFrequency
	Resonance float64 // dB, 0..40

	CutoffEnvelope      EnvelopeModulator
	CutoffVelocityDepth float64 // 0..1
}

// Zone is a single key/velocity-ranged sample mapping.
type Zone struct {
	KeyLow  int
	KeyHigh int
	KeyRoot int

	VelocityLow  int
	VelocityHigh int

	Start    int64 // sample frame offsets into the audio data
	Stop     int64
	Reversed bool
	OneShot  bool
	// PitchTracking is true when the zone follows the played key; a zone
	// with it disabled always sounds at the root pitch.
	PitchTracking bool

	Gain     float64 // dB
	Tune     int     // cents, signed
	Pan      float64 // -1..1
	BendUp   int     // cents
	BendDown int     // cents

	Loops  []Loop
	Sample *SampleRef

	AmpEnvelope   EnvelopeModulator
	PitchEnvelope EnvelopeModulator
	Filter        *Filter

	Play        PlayLogic
	SeqPosition int // round-robin slot, meaningful when Play == PlayRoundRobin
}

// NewZone returns a zone covering the full key and velocity range with
// pitch tracking on, the convention shared by every supported format.
func NewZone() *Zone {
	return &Zone{
		KeyLow:        0,
		KeyHigh:       127,
		KeyRoot:       60,
		VelocityLow:   0,
		VelocityHigh:  127,
		PitchTracking: true,
	}
}

// ClampRoot forces keyLow <= keyRoot <= keyHigh. The model deliberately
// does not enforce this while a source file is being parsed (several
// formats store the root outside the range transiently), but every
// destination codec calls it before emitting the zone.
func (z *Zone) ClampRoot() {
	if z.KeyRoot < z.KeyLow {
		z.KeyRoot = z.KeyLow
	}
	if z.KeyRoot > z.KeyHigh {
		z.KeyRoot = z.KeyHigh
	}
}

// IntersectsKeyVel reports whether the zone overlaps the given key and
// velocity ranges at all.
func (z *Zone) IntersectsKeyVel(keyLow, keyHigh, velLow, velHigh int) bool {
	return z.KeyLow <= keyHigh && z.KeyHigh >= keyLow &&
		z.VelocityLow <= velHigh && z.VelocityHigh >= velLow
}

// ClipKeyVel narrows the zone to the given ranges. The caller is expected
// to have checked IntersectsKeyVel first; a disjoint zone is dropped by
// the codec, not clipped to an empty range.
func (z *Zone) ClipKeyVel(keyLow, keyHigh, velLow, velHigh int) {
	if z.KeyLow < keyLow {
		z.KeyLow = keyLow
	}
	if z.KeyHigh > keyHigh {
		z.KeyHigh = keyHigh
	}
	if z.VelocityLow < velLow {
		z.VelocityLow = velLow
	}
	if z.VelocityHigh > velHigh {
		z.VelocityHigh = velHigh
	}
}

// Group is a named, ordered collection of zones. It is the unit a
// destination format maps onto its own layer/keygroup concept; the model
// itself imposes no grouping policy beyond exclusive ownership.
type Group struct {
	Name    string
	Trigger TriggerType
	Zones   []*Zone
}

// Instrument is the root of the canonical model. It owns its groups
// exclusively and never outlives a single conversion.
type Instrument struct {
	Name   string
	Groups []*Group

	// GlobalFilter, when set, applies to every zone that carries no
	// filter of its own.
	GlobalFilter *Filter

	// AmpVelocityDepth is the instrument-wide velocity to amplitude
	// sensitivity, 0..1 with 0 meaning unset.
	AmpVelocityDepth float64
}

// Zones returns every zone of every group in document order.
func (in *Instrument) Zones() []*Zone {
	var zones []*Zone
	for _, g := range in.Groups {
		zones = append(zones, g.Zones...)
	}
	return zones
}

// ZoneCount returns the total number of zones across all groups.
func (in *Instrument) ZoneCount() int {
	n := 0
	for _, g := range in.Groups {
		n += len(g.Zones)
	}
	return n
}
