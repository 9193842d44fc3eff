package mpc

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/samplecraft/exs2mpc/pkg/codec"
	"github.com/samplecraft/exs2mpc/pkg/model"
	"github.com/samplecraft/exs2mpc/pkg/normalize"
)

// Decode parses a keygroup program document into the canonical model.
func (c *Codec) Decode(data []byte, opts *codec.Options) (*model.Instrument, error) {
	if opts == nil {
		opts = codec.DefaultOptions()
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %v", codec.ErrMalformed, err)
	}

	root := doc.SelectElement(rootElement)
	if root == nil {
		return nil, fmt.Errorf("%w: missing %s root", codec.ErrMalformed, rootElement)
	}
	program := root.SelectElement("Program")
	if program == nil {
		return nil, fmt.Errorf("%w: missing Program element", codec.ErrMalformed)
	}

	programType := program.SelectAttrValue("type", "")
	switch programType {
	case programKeygroup, programDrum:
	default:
		return nil, fmt.Errorf("%w: %q", codec.ErrUnsupportedProgram, programType)
	}

	in := &model.Instrument{Name: childText(program, "ProgramName", "")}
	bendRange := childInt(program, "PitchBendRange", 2, opts)

	var padNotes map[int]int
	if programType == programDrum {
		var err error
		padNotes, err = readPadNotes(program)
		if err != nil {
			return nil, err
		}
	}

	instruments := program.SelectElement("Instruments")
	if instruments == nil {
		return in, nil
	}

	for _, node := range instruments.SelectElements("Instrument") {
		g, err := c.decodeKeygroup(node, bendRange, padNotes, opts)
		if err != nil {
			// A drum keygroup with an unresolved pad makes the whole
			// program unplayable: fail the file with zero zones.
			return nil, err
		}
		if len(g.Zones) > 0 {
			in.Groups = append(in.Groups, g)
		}
	}

	return in, nil
}

// readPadNotes parses the drum variant's pad to MIDI note table. A
// program without an explicit map gets the factory pad layout.
func readPadNotes(program *etree.Element) (map[int]int, error) {
	table := make(map[int]int)
	padMap := program.SelectElement("PadNoteMap")
	if padMap == nil {
		for pad := 1; pad <= 128; pad++ {
			table[pad] = defaultPadNote(pad)
		}
		return table, nil
	}
	for _, pad := range padMap.SelectElements("Pad") {
		number, err := atoiAttr(pad, "number")
		if err != nil {
			return nil, fmt.Errorf("%w: pad with bad number attribute", codec.ErrPadMapping)
		}
		if number < 1 || number > 128 {
			return nil, fmt.Errorf("%w: pad number %d outside 1..128", codec.ErrPadMapping, number)
		}
		note, err := atoiText(pad)
		if err != nil {
			return nil, fmt.Errorf("%w: pad %d has no note", codec.ErrPadMapping, number)
		}
		table[number] = note
	}
	return table, nil
}

func (c *Codec) decodeKeygroup(node *etree.Element, bendRange int, padNotes map[int]int, opts *codec.Options) (*model.Group, error) {
	g := &model.Group{Name: childText(node, "Name", "")}
	if childInt(node, "TriggerMode", 0, opts) == 1 {
		g.Trigger = model.TriggerRelease
	}
	// Mute and Polyphony are performance settings with no model home;
	// a muted keygroup is worth telling the caller about.
	if childBool(node, "Mute", false) {
		opts.Notifyf(codec.LevelInfo, "keygroup %q is muted in the source", g.Name)
	}

	keyLow := childInt(node, "LowNote", 0, opts)
	keyHigh := childInt(node, "HighNote", 127, opts)

	// Drum programs address keygroups by pad: the pad table overrides
	// the key range with the mapped note, and an unmapped pad is a hard
	// error, not a per-zone skip.
	if padNotes != nil {
		note, ok := padNotes[keyLow]
		if !ok {
			return nil, fmt.Errorf("%w: no note for pad %d", codec.ErrPadMapping, keyLow)
		}
		keyLow, keyHigh = note, note
	}

	ampEnv := decodeAmpEnvelope(node, opts)
	filter := decodeFilter(node, opts)
	pitchDepth := modDepthFrom(node, "PitchEnvAmount", opts)
	roundRobin := childInt(node, "ZonePlay", 0, opts) == 1

	layers := node.SelectElement("Layers")
	if layers == nil {
		return g, nil
	}
	layerNodes := layers.SelectElements("Layer")
	if len(layerNodes) > maxLayers {
		opts.Notifyf(codec.LevelWarn, "keygroup %d-%d carries %d layers, above the %d layer contract", keyLow, keyHigh, len(layerNodes), maxLayers)
	}

	for _, layer := range layerNodes {
		z := c.decodeLayer(layer, keyLow, keyHigh, opts)
		if z == nil {
			continue
		}
		z.BendUp = bendRange * 100
		z.BendDown = bendRange * 100
		z.AmpEnvelope = ampEnv
		if pitchDepth != 0 {
			z.PitchEnvelope.Depth = pitchDepth
		}
		if filter != nil {
			fcopy := *filter
			z.Filter = &fcopy
		}
		if roundRobin {
			z.Play = model.PlayRoundRobin
			z.SeqPosition = childInt(layer, "SeqPosition", len(g.Zones), opts)
		}
		if padNotes != nil {
			z.KeyRoot = keyLow
		}
		g.Zones = append(g.Zones, z)
	}

	return g, nil
}

func (c *Codec) decodeLayer(layer *etree.Element, keyLow, keyHigh int, opts *codec.Options) *model.Zone {
	name := childText(layer, "SampleName", "")
	file := childText(layer, "SampleFile", "")
	if name == "" && file == "" {
		opts.Notifyf(codec.LevelWarn, "layer without sample in keygroup %d-%d, skipped", keyLow, keyHigh)
		return nil
	}
	if name == "" {
		name = file
	}

	z := model.NewZone()
	z.KeyLow = keyLow
	z.KeyHigh = keyHigh
	// The root note convention is off by one from the key range: the
	// stored value is note+1, on both decode and encode.
	z.KeyRoot = childInt(layer, "RootNote", keyLow+1, opts) - 1
	z.VelocityLow = childInt(layer, "VelStart", 0, opts)
	z.VelocityHigh = childInt(layer, "VelEnd", 127, opts)
	z.Tune = childInt(layer, "SemiTune", 0, opts)*100 + childInt(layer, "FineTune", 0, opts)
	z.Gain = normalize.UnitToGain(childFloat(layer, "Volume", 0, opts))
	z.Pan = normalize.Clamp((childFloat(layer, "Pan", 0.5, opts)-0.5)*2, -1, 1)
	z.Start = int64(childInt(layer, "SampleStart", 0, opts))
	z.Stop = int64(childInt(layer, "SampleEnd", 0, opts))
	z.Reversed = childInt(layer, "Direction", 0, opts) == 1
	z.OneShot = childBool(layer, "OneShot", false)

	if childBool(layer, "Loop", false) {
		loop := model.Loop{
			Start: int64(childInt(layer, "LoopStart", 0, opts)),
			End:   int64(childInt(layer, "LoopEnd", 0, opts)),
		}
		if length := loop.Length(); length > 0 {
			cross := childInt(layer, "LoopCrossfade", 0, opts)
			loop.CrossfadeFraction = float64(cross) / float64(length)
		}
		z.Loops = []model.Loop{loop}
	}

	z.Sample = &model.SampleRef{Name: name, Path: ""}
	if file != "" {
		z.Sample.Name = file
	}
	codec.FillSampleRef(z.Sample, opts)

	return z
}

// decodeAmpEnvelope reads the keygroup's volume envelope. A keygroup
// with none of the envelope fields present has no amp modulation.
func decodeAmpEnvelope(node *etree.Element, opts *codec.Options) model.EnvelopeModulator {
	var mod model.EnvelopeModulator
	any := false
	has := func(name string) bool {
		return node.SelectElement(name) != nil
	}

	env := &mod.Envelope
	env.Sustain = 1
	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"VolumeAttack", &env.Attack},
		{"VolumeHold", &env.Hold},
		{"VolumeDecay", &env.Decay},
		{"VolumeRelease", &env.Release},
	} {
		if has(f.name) {
			*f.dst = denormalizeTime(f.name, childFloat(node, f.name, 0, opts))
			any = true
		}
	}
	if has("VolumeSustain") {
		env.Sustain = normalize.Clamp(childFloat(node, "VolumeSustain", 1, opts), 0, 1)
		any = true
	}
	// Curve fields are linear 0..1 around a 0.5 center.
	env.AttackSlope = slopeFrom(node, "AttackCurve", opts)
	env.DecaySlope = slopeFrom(node, "DecayCurve", opts)
	env.ReleaseSlope = slopeFrom(node, "ReleaseCurve", opts)

	if any {
		mod.Depth = 1
	}
	return mod
}

func decodeFilter(node *etree.Element, opts *codec.Options) *model.Filter {
	typeEl := node.SelectElement("FilterType")
	if typeEl == nil {
		return nil
	}
	ordinal := childInt(node, "FilterType", -1, opts)
	if ordinal < 0 || ordinal >= len(filterTable) {
		// Unknown ordinals mean "no filter", not an error.
		if opts.LogUnsupported {
			opts.Notifyf(codec.LevelInfo, "filter ordinal %d has no table entry, ignoring filter", ordinal)
		}
		return nil
	}
	entry := filterTable[ordinal]

	f := &model.Filter{
		Type:      entry.typ,
		Poles:     entry.poles,
		Cutoff:    normalize.DenormalizeLinear(childFloat(node, "Cutoff", 1, opts), 0, model.MaxFrequency),
		Resonance: normalize.DenormalizeLinear(childFloat(node, "Resonance", 0, opts), 0, 40),
	}
	f.CutoffVelocityDepth = normalize.Clamp(childFloat(node, "VelocityToFilter", 0, opts), 0, 1)

	depth := modDepthFrom(node, "FilterEnvAmount", opts)
	if depth != 0 {
		f.CutoffEnvelope.Depth = depth
		env := &f.CutoffEnvelope.Envelope
		env.Sustain = 1
		env.Attack = denormalizeTime("FilterAttack", childFloat(node, "FilterAttack", 0, opts))
		env.Hold = denormalizeTime("FilterHold", childFloat(node, "FilterHold", 0, opts))
		env.Decay = denormalizeTime("FilterDecay", childFloat(node, "FilterDecay", 0, opts))
		env.Sustain = normalize.Clamp(childFloat(node, "FilterSustain", 1, opts), 0, 1)
		env.Release = denormalizeTime("FilterRelease", childFloat(node, "FilterRelease", 0, opts))
	}
	return f
}

// modDepthFrom reads a signed modulation amount stored as 0..1 around a
// 0.5 center. An absent element means depth 0, which suppresses the
// modulator entirely.
func modDepthFrom(node *etree.Element, name string, opts *codec.Options) float64 {
	if node.SelectElement(name) == nil {
		return 0
	}
	return normalize.Clamp((childFloat(node, name, 0.5, opts)-0.5)*2, -1, 1)
}

func slopeFrom(node *etree.Element, name string, opts *codec.Options) float64 {
	if node.SelectElement(name) == nil {
		return 0
	}
	return normalize.Clamp((childFloat(node, name, 0.5, opts)-0.5)*2, -1, 1)
}

func atoiAttr(el *etree.Element, name string) (int, error) {
	attr := el.SelectAttr(name)
	if attr == nil {
		return 0, fmt.Errorf("missing %s attribute", name)
	}
	return atoi(attr.Value)
}

func atoiText(el *etree.Element) (int, error) {
	return atoi(el.Text())
}
