package exs

import (
	"errors"
	"math"

	"github.com/samplecraft/exs2mpc/pkg/block"
	"github.com/samplecraft/exs2mpc/pkg/codec"
	"github.com/samplecraft/exs2mpc/pkg/model"
	"github.com/samplecraft/exs2mpc/pkg/normalize"
)

// Encode writes the canonical model as a little-endian binary instrument
// stream, mirroring Decode field for field. Concepts this format cannot
// represent (loops past the first, pitch envelopes) are truncated with a
// diagnostic, never an error.
func (c *Codec) Encode(in *model.Instrument, opts *codec.Options) ([]byte, error) {
	if in == nil {
		return nil, errors.New("nil instrument")
	}
	if opts == nil {
		opts = codec.DefaultOptions()
	}

	w := block.NewWriter(false)
	w.Append(block.KindHeader, 0, in.Name, true, nil)

	// Samples are deduplicated by reference; each gets one block whose
	// index the zones point back at.
	sampleIndex := make(map[*model.SampleRef]uint32)
	var sampleRefs []*model.SampleRef
	for _, z := range in.Zones() {
		if z.Sample == nil {
			continue
		}
		if _, ok := sampleIndex[z.Sample]; !ok {
			sampleIndex[z.Sample] = uint32(len(sampleRefs))
			sampleRefs = append(sampleRefs, z.Sample)
		}
	}

	zoneIndex := uint32(0)
	for gi, g := range in.Groups {
		w.Append(block.KindGroup, uint32(gi), g.Name, false, encodeGroup(g))
		for _, z := range g.Zones {
			z.ClampRoot()
			name := ""
			if z.Sample != nil {
				name = z.Sample.Name
			}
			payload := encodeZone(z, int32(gi), sampleIdxFor(z, sampleIndex), opts)
			w.Append(block.KindZone, zoneIndex, name, false, payload)
			zoneIndex++
		}
	}

	for i, ref := range sampleRefs {
		w.Append(block.KindSample, uint32(i), ref.Name, false, encodeSample(ref))
	}

	if payload := buildParams(in, false); payload != nil {
		w.Append(block.KindParams, 0, in.Name, false, payload)
	}

	return w.Bytes(), nil
}

func sampleIdxFor(z *model.Zone, index map[*model.SampleRef]uint32) int32 {
	if z.Sample == nil {
		return -1
	}
	return int32(index[z.Sample])
}

func encodeZone(z *model.Zone, groupIdx, sampleIdx int32, opts *codec.Options) []byte {
	p := block.NewPayloadWriter(false)

	var flags byte
	if z.OneShot {
		flags |= zoneFlagOneShot
	}
	if z.PitchTracking {
		flags |= zoneFlagPitch
	}
	if z.Reversed {
		flags |= zoneFlagReverse
	}
	flags |= zoneFlagVelRange
	p.U8(flags)

	p.U8(byte(z.KeyRoot))
	coarse := z.Tune / 100
	fine := z.Tune - coarse*100
	p.U8(normalize.ToSignedByte(fine))
	p.U8(normalize.ToSignedByte(int(math.Round(normalize.Clamp(z.Pan, -1, 1) * 50))))
	p.U8(normalize.ToBiased(int(math.Round(z.Gain))))
	p.U8(byte(z.KeyLow))
	p.U8(byte(z.KeyHigh))
	p.U8(byte(z.VelocityLow))
	p.U8(byte(z.VelocityHigh))

	p.U32(uint32(z.Start))
	p.U32(uint32(z.Stop))

	var loop model.Loop
	var loopFlags byte
	if len(z.Loops) > 0 {
		// Only loop 0 is representable in this family of formats.
		loop = z.Loops[0]
		loopFlags |= loopFlagOn
		if loop.Type == model.LoopAlternating {
			loopFlags |= loopFlagAlternating
		}
		if loop.Direction == model.LoopReverse {
			loopFlags |= loopFlagReverse
		}
		if len(z.Loops) > 1 {
			opts.Notifyf(codec.LevelWarn, "zone root %d has %d loops, only the first is kept", z.KeyRoot, len(z.Loops))
		}
	}
	p.U32(uint32(loop.Start))
	p.U32(uint32(loop.End))
	p.U32(uint32(math.Round(loop.CrossfadeFraction * float64(loop.Length()))))
	p.U8(loopFlags)

	p.U8(normalize.ToSignedByte(coarse))
	p.U8(0) // output
	p.I32(groupIdx)
	p.I32(sampleIdx)

	if z.PitchEnvelope.Applied() {
		opts.Notifyf(codec.LevelWarn, "zone root %d has a pitch envelope, which this format cannot carry", z.KeyRoot)
	}

	return p.Bytes()
}

func encodeGroup(g *model.Group) []byte {
	p := block.NewPayloadWriter(false)
	p.U8(normalize.ToSignedByte(0)) // volume lives on the zones
	p.U8(normalize.ToSignedByte(0)) // pan
	p.U8(0)                         // polyphony: unlimited

	var opts byte
	if g.Trigger == model.TriggerRelease {
		opts |= groupOptReleaseTrigger
	}
	p.U8(opts)

	velLow, velHigh, keyLow, keyHigh := 0, 127, 0, 127
	seq := -1
	for _, z := range g.Zones {
		if z.Play == model.PlayRoundRobin {
			seq = z.SeqPosition
		}
	}
	p.U8(byte(velLow))
	p.U8(byte(velHigh))
	p.U8(byte(keyLow))
	p.U8(byte(keyHigh))

	if seq >= 0 {
		p.U32(uint32(seq))
		p.U8(enableByRoundRobin)
	}
	return p.Bytes()
}

func encodeSample(ref *model.SampleRef) []byte {
	p := block.NewPayloadWriter(false)
	p.U32(0) // wave data offset
	p.U32(uint32(ref.Frames))
	p.U32(uint32(ref.SampleRate))
	p.U8(byte(ref.BitDepth))
	p.U8(byte(ref.Channels))
	p.U8(byte(ref.Channels)) // duplicated on disk
	p.ASCII("WAVE", 4)
	p.U32(uint32(ref.Frames * int64(ref.Channels) * int64(ref.BitDepth/8)))
	p.U8(0) // compressed
	p.ASCII(ref.Path, 256)
	p.ASCII(ref.Name, 256)
	return p.Bytes()
}
