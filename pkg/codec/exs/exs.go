// Package exs implements the chunk-framed binary instrument codec on top
// of pkg/block. A file is a bare sequence of blocks: one instrument
// header, then zone, group, sample and parameter blocks in any order,
// with the first block's endianness flag holding for the whole file.
package exs

import (
	"errors"
	"fmt"
	"io"

	"github.com/samplecraft/exs2mpc/pkg/block"
	"github.com/samplecraft/exs2mpc/pkg/codec"
	"github.com/samplecraft/exs2mpc/pkg/model"
	"github.com/samplecraft/exs2mpc/pkg/normalize"
)

// Codec is the binary instrument codec.
type Codec struct{}

// New returns the codec.
func New() *Codec {
	return &Codec{}
}

// Name returns the format name.
func (c *Codec) Name() string {
	return string(codec.FormatEXS)
}

// Extensions returns the file extensions claimed by the format.
func (c *Codec) Extensions() []string {
	return []string{".exs"}
}

// Zone payload flag bits.
const (
	zoneFlagOneShot  = 0x01
	zoneFlagPitch    = 0x02
	zoneFlagReverse  = 0x04
	zoneFlagVelRange = 0x08
)

// Loop flag bits at zone payload offset 29.
const (
	loopFlagOn          = 0x01
	loopFlagAlternating = 0x02
	loopFlagReverse     = 0x04
)

// Group option bits at group payload offset 3.
const (
	groupOptMute           = 0x10
	groupOptReleaseTrigger = 0x40
	groupOptFixedSample    = 0x80
)

// Group enable-by discriminators in the optional trailing segment. Only
// one can be active; it gates whether the group plays under specific
// conditions.
const (
	enableByNote = iota
	enableByRoundRobin
	enableByControl
	enableByBend
	enableByChannel
	enableByArticulation
	enableByTempo
)

type zoneRec struct {
	zone       *model.Zone
	blockIndex uint32
	groupIdx   int32
	sampleIdx  int32
}

type groupRec struct {
	group           *model.Group
	volume          int
	velLow, velHigh int
	keyLow, keyHigh int
	seqPos          int
	enableBy        int
	hasTail         bool
}

type decoder struct {
	opts *codec.Options

	name          string
	zones         []*zoneRec
	groups        []*groupRec
	byIndex       map[uint32]*groupRec
	samples       []*model.SampleRef
	sampleByIndex map[uint32]*model.SampleRef
	params        *paramTable
}

// Decode parses a binary instrument stream into the canonical model.
func (c *Codec) Decode(data []byte, opts *codec.Options) (*model.Instrument, error) {
	if opts == nil {
		opts = codec.DefaultOptions()
	}
	d := &decoder{
		opts:          opts,
		byIndex:       make(map[uint32]*groupRec),
		sampleByIndex: make(map[uint32]*model.SampleRef),
	}

	r := block.NewReader(data)
	seen := 0
	for {
		b, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		seen++
		d.dispatch(b)
	}
	if seen == 0 {
		return nil, fmt.Errorf("%w: no blocks", codec.ErrMalformed)
	}

	return d.assemble()
}

func (d *decoder) dispatch(b *block.Block) {
	switch b.Kind {
	case block.KindHeader:
		d.name = b.Name
	case block.KindZone:
		d.readZone(b)
	case block.KindGroup:
		d.readGroup(b)
	case block.KindSample:
		d.readSample(b)
	case block.KindParams:
		d.readParams(b)
	default:
		// Reserved block kinds occur in real files: a fixed 4-byte
		// all-zero block of unknown purpose and a macOS property-list
		// blob. Skip the raw bytes and keep going.
		d.opts.Notifyf(codec.LevelInfo, "skipping unknown block kind 0x%02x (%d bytes)", b.RawKind, len(b.Payload))
	}
}

func (d *decoder) readZone(b *block.Block) {
	p := block.NewPayloadReader(b)

	flags := p.U8("zone flags")
	z := model.NewZone()
	z.OneShot = flags&zoneFlagOneShot != 0
	z.PitchTracking = flags&zoneFlagPitch != 0
	z.Reversed = flags&zoneFlagReverse != 0

	z.KeyRoot = int(p.U8("root note"))
	fine := normalize.SignedByte(p.U8("fine tune"))
	z.Pan = float64(normalize.SignedByte(p.U8("pan"))) / 50.0
	z.Gain = float64(normalize.FromBiased(p.U8("volume adjust")))
	z.KeyLow = int(p.U8("key low"))
	z.KeyHigh = int(p.U8("key high"))
	velLow := int(p.U8("velocity low"))
	velHigh := int(p.U8("velocity high"))
	if flags&zoneFlagVelRange != 0 {
		z.VelocityLow = velLow
		z.VelocityHigh = velHigh
	}

	z.Start = int64(p.U32("sample start"))
	z.Stop = int64(p.U32("sample end"))
	loopStart := int64(p.U32("loop start"))
	loopEnd := int64(p.U32("loop end"))
	crossfade := int64(p.U32("loop crossfade"))
	loopFlags := p.U8("loop flags")

	coarse := normalize.SignedByte(p.U8("coarse tune"))
	z.Tune = coarse*100 + fine
	p.Skip(1, "output")

	groupIdx := p.I32("group index")
	sampleIdx := p.I32("sample index")

	if err := p.Err(); err != nil {
		d.opts.Notifyf(codec.LevelError, "zone block %d unreadable, skipped: %v", b.Index, err)
		return
	}
	// Additional trailing bytes after the documented layout are normal;
	// variant encoders append tail data. Never truncation-check here.

	if loopFlags&loopFlagOn != 0 {
		loop := model.Loop{Start: loopStart, End: loopEnd}
		if length := loop.Length(); length > 0 {
			loop.CrossfadeFraction = float64(crossfade) / float64(length)
		}
		if loopFlags&loopFlagAlternating != 0 {
			loop.Type = model.LoopAlternating
		}
		if loopFlags&loopFlagReverse != 0 {
			loop.Direction = model.LoopReverse
		}
		z.Loops = []model.Loop{loop}
	}

	d.zones = append(d.zones, &zoneRec{
		zone:       z,
		blockIndex: b.Index,
		groupIdx:   groupIdx,
		sampleIdx:  sampleIdx,
	})
}

func (d *decoder) readGroup(b *block.Block) {
	p := block.NewPayloadReader(b)

	g := &model.Group{Name: b.Name}
	volume := normalize.SignedByte(p.U8("group volume"))
	p.Skip(1, "group pan")
	p.Skip(1, "polyphony")
	opts := p.U8("group options")
	rec := &groupRec{
		group:   g,
		volume:  volume,
		velLow:  int(p.U8("group velocity low")),
		velHigh: int(p.U8("group velocity high")),
		keyLow:  int(p.U8("group key low")),
		keyHigh: int(p.U8("group key high")),
	}
	if err := p.Err(); err != nil {
		d.opts.Notifyf(codec.LevelError, "group block %d unreadable, skipped: %v", b.Index, err)
		return
	}
	if opts&groupOptReleaseTrigger != 0 {
		g.Trigger = model.TriggerRelease
	}
	if opts&groupOptMute != 0 {
		d.opts.Notifyf(codec.LevelInfo, "group %q is muted in the source", g.Name)
	}

	// The trailing segment is only present when the stream has bytes
	// left: round-robin position plus the enable-by discriminator.
	if p.Remaining() >= 5 {
		rec.seqPos = int(p.U32("sequence position"))
		rec.enableBy = int(p.U8("enable-by"))
		rec.hasTail = true
	}

	index := b.Index
	if _, taken := d.byIndex[index]; taken {
		// A known encoder bug writes index 0 on every group. Re-number
		// defensively instead of overwriting the earlier group.
		index = uint32(len(d.byIndex))
		for {
			if _, taken := d.byIndex[index]; !taken {
				break
			}
			index++
		}
		d.opts.Notifyf(codec.LevelWarn, "duplicate group index %d renumbered to %d", b.Index, index)
	}
	d.byIndex[index] = rec
	d.groups = append(d.groups, rec)
}

func (d *decoder) readSample(b *block.Block) {
	p := block.NewPayloadReader(b)

	p.Skip(4, "wave data offset")
	frames := p.U32("frame count")
	rate := p.U32("sample rate")
	bits := p.U8("bit depth")
	channels := p.U8("channels")
	// The channel count is stored twice; both copies are read even
	// though the second is redundant.
	channels2 := p.U8("channels (duplicate)")
	if channels == 0 {
		channels = channels2
	}
	p.Skip(4, "type tag")
	p.Skip(4, "byte size")
	compressed := p.U8("compressed flag")
	path := p.ASCII(256, "file path")
	if err := p.Err(); err != nil {
		d.opts.Notifyf(codec.LevelError, "sample block %d unreadable, skipped: %v", b.Index, err)
		return
	}

	// The file-name field is optional. When the payload ends before it,
	// the block's own header name doubles as the file name.
	name := b.Name
	if p.Remaining() >= 256 {
		if n := p.ASCII(256, "file name"); n != "" {
			name = n
		}
	}

	if compressed != 0 {
		d.opts.Notifyf(codec.LevelWarn, "sample %q is compressed; frame metadata may be unreliable", name)
	}

	ref := &model.SampleRef{
		Name:       name,
		Path:       path,
		SampleRate: int(rate),
		BitDepth:   int(bits),
		Channels:   int(channels),
		Frames:     int64(frames),
	}
	if _, taken := d.sampleByIndex[b.Index]; !taken {
		d.sampleByIndex[b.Index] = ref
	}
	d.samples = append(d.samples, ref)
}

func (d *decoder) sampleFor(rec *zoneRec) *model.SampleRef {
	idx := rec.sampleIdx
	if idx < 0 {
		// Observed encoder behavior: an unset sample index means the
		// zone's own block index doubles as the sample index.
		idx = int32(rec.blockIndex)
	}
	if ref, ok := d.sampleByIndex[uint32(idx)]; ok {
		return ref
	}
	if int(idx) >= 0 && int(idx) < len(d.samples) {
		return d.samples[idx]
	}
	return nil
}

func (d *decoder) groupFor(rec *zoneRec) *groupRec {
	if rec.groupIdx >= 0 {
		if g, ok := d.byIndex[uint32(rec.groupIdx)]; ok {
			return g
		}
	}
	return nil
}

func (d *decoder) assemble() (*model.Instrument, error) {
	in := &model.Instrument{Name: d.name}

	var fallback *groupRec
	ensureFallback := func() *groupRec {
		if fallback == nil {
			fallback = &groupRec{
				group:   &model.Group{Name: "Group 1"},
				velHigh: 127,
				keyHigh: 127,
			}
			d.groups = append(d.groups, fallback)
		}
		return fallback
	}

	for _, rec := range d.zones {
		z := rec.zone

		ref := d.sampleFor(rec)
		if ref == nil {
			d.opts.Notifyf(codec.LevelError, "zone %d references missing sample %d, skipped", rec.blockIndex, rec.sampleIdx)
			continue
		}
		z.Sample = ref
		codec.FillSampleRef(ref, d.opts)

		g := d.groupFor(rec)
		if g == nil {
			g = ensureFallback()
		}

		// Group limiters constrain every zone assigned to the group: a
		// disjoint zone is dropped, a partially overlapping one is
		// clipped.
		if !z.IntersectsKeyVel(g.keyLow, g.keyHigh, g.velLow, g.velHigh) {
			d.opts.Notifyf(codec.LevelWarn, "zone %d outside group %q range, dropped", rec.blockIndex, g.group.Name)
			continue
		}
		z.ClipKeyVel(g.keyLow, g.keyHigh, g.velLow, g.velHigh)
		z.Gain += float64(g.volume)

		if g.hasTail && g.enableBy == enableByRoundRobin {
			z.Play = model.PlayRoundRobin
			z.SeqPosition = g.seqPos
		}

		g.group.Zones = append(g.group.Zones, z)
	}

	for _, rec := range d.groups {
		if len(rec.group.Zones) == 0 {
			continue
		}
		in.Groups = append(in.Groups, rec.group)
	}

	if d.params != nil {
		d.params.apply(in, d.opts)
	}

	return in, nil
}
