package exs

import (
	"math"

	"github.com/samplecraft/exs2mpc/pkg/block"
	"github.com/samplecraft/exs2mpc/pkg/codec"
	"github.com/samplecraft/exs2mpc/pkg/model"
	"github.com/samplecraft/exs2mpc/pkg/normalize"
)

// Global parameter IDs. The table is instrument-wide: every value is
// broadcast onto every zone of every group, it is never per-zone data.
const (
	paramPitchBendUp   = 3
	paramPitchBendDown = 4
	paramCoarseTune    = 10
	paramFineTune      = 11

	paramAmpDelay   = 40
	paramAmpAttack  = 41
	paramAmpHold    = 42
	paramAmpDecay   = 43
	paramAmpSustain = 44
	paramAmpRelease = 45

	paramFilterDelay   = 50
	paramFilterAttack  = 51
	paramFilterHold    = 52
	paramFilterDecay   = 53
	paramFilterSustain = 54
	paramFilterRelease = 55

	paramFilterOn        = 60
	paramFilterType      = 61
	paramFilterCutoff    = 62
	paramFilterResonance = 63
	paramFilterEnvDepth  = 64

	paramVelToAmp = 70
)

// envTimeCeiling is the hardware ceiling for the 0..127 envelope timing
// scale: 127 means ten seconds.
const envTimeCeiling = 10.0

type filterSpec struct {
	typ   model.FilterType
	poles int
}

// filterTypes maps the filter-type ordinal to a canonical type and pole
// count. An ordinal with no entry yields no filter, not an error.
var filterTypes = []filterSpec{
	{model.FilterLowPass, 2},
	{model.FilterLowPass, 4},
	{model.FilterHighPass, 2},
	{model.FilterHighPass, 4},
	{model.FilterBandPass, 2},
	{model.FilterBandReject, 2},
}

func filterOrdinal(f *model.Filter) int {
	for i, spec := range filterTypes {
		if spec.typ == f.Type && spec.poles == f.Poles {
			return i
		}
	}
	// Nearest pole count within the same family, headroom truncated.
	for i, spec := range filterTypes {
		if spec.typ == f.Type {
			return i
		}
	}
	return 0
}

type paramTable struct {
	values map[int]int
}

func (t *paramTable) get(id int) (int, bool) {
	v, ok := t.values[id]
	return v, ok
}

// readParams parses the variable-count (id, i16) table, then any legacy
// (id, u8) pairs older encoders append. Zero IDs are padding and are
// skipped in both tables.
func (d *decoder) readParams(b *block.Block) {
	p := block.NewPayloadReader(b)
	count := int(p.U32("parameter count"))
	if p.Err() != nil {
		d.opts.Notifyf(codec.LevelError, "parameter block unreadable, skipped: %v", p.Err())
		return
	}

	t := &paramTable{values: make(map[int]int)}
	for i := 0; i < count && p.Remaining() >= 3; i++ {
		id := int(p.U8("parameter id"))
		v := int(p.I16("parameter value"))
		if id == 0 {
			continue
		}
		t.values[id] = v
	}

	for p.Remaining() >= 2 {
		id := int(p.U8("legacy parameter id"))
		v := int(p.U8("legacy parameter value"))
		if id == 0 {
			continue
		}
		if _, have := t.values[id]; !have {
			t.values[id] = v
		}
	}

	if d.params != nil {
		// Later parameter blocks override earlier ones field by field.
		for id, v := range t.values {
			d.params.values[id] = v
		}
		return
	}
	d.params = t
}

func envSeconds(v int) float64 {
	return normalize.DenormalizeLinear(float64(v)/127.0, 0, envTimeCeiling)
}

func envValue(sec float64) int {
	return int(math.Round(normalize.Linear(sec, 0, envTimeCeiling) * 127))
}

func (t *paramTable) envelope(base int) (model.Envelope, bool) {
	env := model.Envelope{Sustain: 1}
	any := false
	if v, ok := t.get(base); ok {
		env.Delay = envSeconds(v)
		any = true
	}
	if v, ok := t.get(base + 1); ok {
		env.Attack = envSeconds(v)
		any = true
	}
	if v, ok := t.get(base + 2); ok {
		env.Hold = envSeconds(v)
		any = true
	}
	if v, ok := t.get(base + 3); ok {
		env.Decay = envSeconds(v)
		any = true
	}
	if v, ok := t.get(base + 4); ok {
		env.Sustain = normalize.Clamp(float64(v)/127.0, 0, 1)
		any = true
	}
	if v, ok := t.get(base + 5); ok {
		env.Release = envSeconds(v)
		any = true
	}
	return env, any
}

// apply broadcasts the instrument-wide defaults onto every zone.
func (t *paramTable) apply(in *model.Instrument, opts *codec.Options) {
	bendUp, hasBendUp := t.get(paramPitchBendUp)
	bendDown, hasBendDown := t.get(paramPitchBendDown)
	coarse, hasCoarse := t.get(paramCoarseTune)
	fine, hasFine := t.get(paramFineTune)

	ampEnv, hasAmpEnv := t.envelope(paramAmpDelay)
	filterEnv, hasFilterEnv := t.envelope(paramFilterDelay)

	var filter *model.Filter
	if on, ok := t.get(paramFilterOn); ok && on != 0 {
		filter = &model.Filter{Type: model.FilterLowPass, Poles: 2, Cutoff: model.MaxFrequency}
		if v, ok := t.get(paramFilterType); ok {
			if v >= 0 && v < len(filterTypes) {
				filter.Type = filterTypes[v].typ
				filter.Poles = filterTypes[v].poles
			} else {
				opts.Notifyf(codec.LevelWarn, "filter type ordinal %d unknown, filter ignored", v)
				filter = nil
			}
		}
		if filter != nil {
			if v, ok := t.get(paramFilterCutoff); ok {
				filter.Cutoff = normalize.DenormalizeLinear(float64(v)/127.0, 0, model.MaxFrequency)
			}
			if v, ok := t.get(paramFilterResonance); ok {
				filter.Resonance = normalize.DenormalizeLinear(float64(v)/127.0, 0, 40)
			}
			if hasFilterEnv {
				filter.CutoffEnvelope.Envelope = filterEnv
				filter.CutoffEnvelope.Depth = 1
			}
			if v, ok := t.get(paramFilterEnvDepth); ok {
				filter.CutoffEnvelope.Depth = normalize.Clamp(float64(v)/127.0, -1, 1)
			}
		}
	}
	in.GlobalFilter = filter

	if v, ok := t.get(paramVelToAmp); ok {
		in.AmpVelocityDepth = normalize.Clamp(float64(v)/127.0, 0, 1)
	}

	for _, g := range in.Groups {
		for _, z := range g.Zones {
			if hasBendUp {
				z.BendUp = bendUp * 100
			}
			if hasBendDown {
				z.BendDown = bendDown * 100
			}
			if hasCoarse {
				z.Tune += coarse * 100
			}
			if hasFine {
				z.Tune += fine
			}
			if hasAmpEnv {
				z.AmpEnvelope = model.EnvelopeModulator{Envelope: ampEnv, Depth: 1}
			}
			if filter != nil && z.Filter == nil {
				fcopy := *filter
				z.Filter = &fcopy
			}
		}
	}
}

// buildParams assembles the parameter block payload for encoding. Fields
// the instrument does not use are left out of the table entirely.
func buildParams(in *model.Instrument, bigEndian bool) []byte {
	type entry struct {
		id int
		v  int
	}
	var entries []entry
	add := func(id, v int) {
		entries = append(entries, entry{id, v})
	}

	zones := in.Zones()
	if len(zones) > 0 {
		z := zones[0]
		if z.BendUp != 0 {
			add(paramPitchBendUp, z.BendUp/100)
		}
		if z.BendDown != 0 {
			add(paramPitchBendDown, z.BendDown/100)
		}
		if z.AmpEnvelope.Applied() {
			env := z.AmpEnvelope.Envelope
			add(paramAmpDelay, envValue(env.Delay))
			add(paramAmpAttack, envValue(env.Attack))
			add(paramAmpHold, envValue(env.Hold))
			add(paramAmpDecay, envValue(env.Decay))
			add(paramAmpSustain, int(math.Round(normalize.Clamp(env.Sustain, 0, 1)*127)))
			add(paramAmpRelease, envValue(env.Release))
		}
	}

	if f := in.GlobalFilter; f != nil {
		add(paramFilterOn, 1)
		add(paramFilterType, filterOrdinal(f))
		add(paramFilterCutoff, int(math.Round(normalize.Linear(f.Cutoff, 0, model.MaxFrequency)*127)))
		add(paramFilterResonance, int(math.Round(normalize.Linear(f.Resonance, 0, 40)*127)))
		if f.CutoffEnvelope.Applied() {
			env := f.CutoffEnvelope.Envelope
			add(paramFilterDelay, envValue(env.Delay))
			add(paramFilterAttack, envValue(env.Attack))
			add(paramFilterHold, envValue(env.Hold))
			add(paramFilterDecay, envValue(env.Decay))
			add(paramFilterSustain, int(math.Round(normalize.Clamp(env.Sustain, 0, 1)*127)))
			add(paramFilterRelease, envValue(env.Release))
			add(paramFilterEnvDepth, int(math.Round(normalize.Clamp(f.CutoffEnvelope.Depth, -1, 1)*127)))
		}
	}

	if in.AmpVelocityDepth > 0 {
		add(paramVelToAmp, int(math.Round(normalize.Clamp(in.AmpVelocityDepth, 0, 1)*127)))
	}

	if len(entries) == 0 {
		return nil
	}

	p := block.NewPayloadWriter(bigEndian)
	p.U32(uint32(len(entries)))
	for _, e := range entries {
		p.U8(byte(e.id))
		p.I16(int16(e.v))
	}
	return p.Bytes()
}
