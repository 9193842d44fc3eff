package mpc

import (
	"errors"
	"math"
	"strconv"

	"github.com/beevik/etree"

	"github.com/samplecraft/exs2mpc/pkg/codec"
	"github.com/samplecraft/exs2mpc/pkg/model"
	"github.com/samplecraft/exs2mpc/pkg/normalize"
)

// Encode writes the canonical model as a keygroup program document.
// Zones are packed into keygroup nodes by exact key range; caps are wire
// contract and overflow is written anyway after a warning, because the
// hardware truncates silently instead of rejecting.
func (c *Codec) Encode(in *model.Instrument, opts *codec.Options) ([]byte, error) {
	if in == nil {
		return nil, errors.New("nil instrument")
	}
	if opts == nil {
		opts = codec.DefaultOptions()
	}

	buckets := packLayers(in, opts)

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement(rootElement)

	version := root.CreateElement("Version")
	setChild(version, "File_Version", fileVersion)
	setChild(version, "Application", "exs2mpc")
	setChild(version, "Platform", "Linux")

	program := root.CreateElement("Program")
	program.CreateAttr("type", programKeygroup)
	setChild(program, "ProgramName", in.Name)
	setChildInt(program, "KeygroupNumKeygroups", len(buckets))
	if zones := in.Zones(); len(zones) > 0 {
		setChildInt(program, "PitchBendRange", zones[0].BendUp/100)
	}

	instruments := program.CreateElement("Instruments")
	for i, b := range buckets {
		c.encodeKeygroup(instruments, i, b, in, opts)
	}

	doc.Indent(2)
	return doc.WriteToBytes()
}

func (c *Codec) encodeKeygroup(parent *etree.Element, index int, b *keygroupBucket, in *model.Instrument, opts *codec.Options) {
	node := parent.CreateElement("Instrument")
	node.CreateAttr("number", itoa(index+1))

	if b.name != "" {
		setChild(node, "Name", b.name)
	}
	setChildInt(node, "LowNote", b.keyLow)
	setChildInt(node, "HighNote", b.keyHigh)
	trigger := 0
	if b.trigger == model.TriggerRelease {
		trigger = 1
	}
	setChildInt(node, "TriggerMode", trigger)
	zonePlay := 0
	if b.sequence {
		zonePlay = 1
	}
	setChildInt(node, "ZonePlay", zonePlay)

	lead := b.layers[0]
	encodeAmpEnvelope(node, lead.AmpEnvelope)

	filter := lead.Filter
	if filter == nil {
		filter = in.GlobalFilter
	}
	encodeFilter(node, filter)

	if lead.PitchEnvelope.Applied() {
		setChildFloat(node, "PitchEnvAmount", depthToUnit(lead.PitchEnvelope.Depth))
	}

	layers := node.CreateElement("Layers")
	for li, z := range b.layers {
		encodeLayer(layers, li, z, opts)
	}
}

// encodeAmpEnvelope emits the volume envelope fields. A modulator with
// depth 0 is not applied and must not be emitted at all.
func encodeAmpEnvelope(node *etree.Element, mod model.EnvelopeModulator) {
	if !mod.Applied() {
		return
	}
	env := mod.Envelope
	setChildFloat(node, "VolumeAttack", normalizeTime("VolumeAttack", env.Attack))
	setChildFloat(node, "VolumeHold", normalizeTime("VolumeHold", env.Hold))
	setChildFloat(node, "VolumeDecay", normalizeTime("VolumeDecay", env.Decay))
	setChildFloat(node, "VolumeSustain", normalize.Clamp(env.Sustain, 0, 1))
	setChildFloat(node, "VolumeRelease", normalizeTime("VolumeRelease", env.Release))
	setChildFloat(node, "AttackCurve", slopeToUnit(env.AttackSlope))
	setChildFloat(node, "DecayCurve", slopeToUnit(env.DecaySlope))
	setChildFloat(node, "ReleaseCurve", slopeToUnit(env.ReleaseSlope))
}

func encodeFilter(node *etree.Element, f *model.Filter) {
	if f == nil {
		return
	}
	setChildInt(node, "FilterType", filterIndex(f))
	setChildFloat(node, "Cutoff", normalize.Linear(f.Cutoff, 0, model.MaxFrequency))
	setChildFloat(node, "Resonance", normalize.Linear(f.Resonance, 0, 40))
	if f.CutoffVelocityDepth > 0 {
		setChildFloat(node, "VelocityToFilter", normalize.Clamp(f.CutoffVelocityDepth, 0, 1))
	}
	if f.CutoffEnvelope.Applied() {
		env := f.CutoffEnvelope.Envelope
		setChildFloat(node, "FilterEnvAmount", depthToUnit(f.CutoffEnvelope.Depth))
		setChildFloat(node, "FilterAttack", normalizeTime("FilterAttack", env.Attack))
		setChildFloat(node, "FilterHold", normalizeTime("FilterHold", env.Hold))
		setChildFloat(node, "FilterDecay", normalizeTime("FilterDecay", env.Decay))
		setChildFloat(node, "FilterSustain", normalize.Clamp(env.Sustain, 0, 1))
		setChildFloat(node, "FilterRelease", normalizeTime("FilterRelease", env.Release))
	}
}

func encodeLayer(parent *etree.Element, index int, z *model.Zone, opts *codec.Options) {
	layer := parent.CreateElement("Layer")
	layer.CreateAttr("number", itoa(index+1))

	name := ""
	if z.Sample != nil {
		name = z.Sample.Name
	}
	setChild(layer, "SampleName", trimExt(name))
	setChild(layer, "SampleFile", name)

	setChildInt(layer, "VelStart", z.VelocityLow)
	setChildInt(layer, "VelEnd", z.VelocityHigh)
	// Root note is stored as note+1; the same offset is applied on
	// decode.
	setChildInt(layer, "RootNote", z.KeyRoot+1)

	semi := z.Tune / 100
	setChildInt(layer, "SemiTune", semi)
	setChildInt(layer, "FineTune", z.Tune-semi*100)
	setChildFloat(layer, "Volume", normalize.GainToUnit(z.Gain))
	setChildFloat(layer, "Pan", normalize.Clamp(z.Pan, -1, 1)/2+0.5)
	setChildInt(layer, "SampleStart", int(z.Start))
	setChildInt(layer, "SampleEnd", int(z.Stop))
	direction := 0
	if z.Reversed {
		direction = 1
	}
	setChildInt(layer, "Direction", direction)
	if z.OneShot {
		setChild(layer, "OneShot", "On")
	}
	if z.Play == model.PlayRoundRobin {
		setChildInt(layer, "SeqPosition", z.SeqPosition)
	}

	if len(z.Loops) == 0 {
		setChild(layer, "Loop", "Off")
		return
	}
	if len(z.Loops) > 1 {
		opts.Notifyf(codec.LevelWarn, "zone root %d has %d loops, only the first is kept", z.KeyRoot, len(z.Loops))
	}
	loop := z.Loops[0]
	setChild(layer, "Loop", "On")
	setChildInt(layer, "LoopStart", int(loop.Start))
	setChildInt(layer, "LoopEnd", int(loop.End))
	setChildInt(layer, "LoopCrossfade", int(math.Round(loop.CrossfadeFraction*float64(loop.Length()))))
}

func depthToUnit(depth float64) float64 {
	return normalize.Clamp(depth, -1, 1)/2 + 0.5
}

func slopeToUnit(slope float64) float64 {
	return normalize.Clamp(slope, -1, 1)/2 + 0.5
}

func trimExt(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[:i]
		}
		if name[i] == '/' || name[i] == '\\' {
			break
		}
	}
	return name
}

func itoa(v int) string {
	return strconv.Itoa(v)
}
