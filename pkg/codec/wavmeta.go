package codec

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"

	"github.com/samplecraft/exs2mpc/pkg/model"
)

// SampleMetadata is what a referenced PCM container can contribute when
// the preset's own metadata is missing: the basic stream parameters plus
// the optional smpl-chunk loop and root note.
type SampleMetadata struct {
	SampleRate int
	BitDepth   int
	Channels   int
	Frames     int64

	RootNote int // -1 when the container carries none
	HasLoop  bool
	Loop     model.Loop
}

// ReadSampleMetadata reads a WAV file's header and smpl chunk.
func ReadSampleMetadata(path string) (*SampleMetadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	d.ReadMetadata()
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	meta := &SampleMetadata{
		SampleRate: int(d.SampleRate),
		BitDepth:   int(d.BitDepth),
		Channels:   int(d.NumChans),
		RootNote:   -1,
	}

	if si := samplerInfo(d); si != nil {
		if si.MIDIUnityNote > 0 && si.MIDIUnityNote < 128 {
			meta.RootNote = int(si.MIDIUnityNote)
		}
		if len(si.Loops) > 0 {
			sl := si.Loops[0]
			meta.HasLoop = true
			meta.Loop = model.Loop{
				Start: int64(sl.Start),
				End:   int64(sl.End),
			}
			// smpl loop type 1 is ping-pong, 2 is reverse.
			switch sl.Type {
			case 1:
				meta.Loop.Type = model.LoopAlternating
			case 2:
				meta.Loop.Direction = model.LoopReverse
			}
		}
	}

	// Metadata reading consumes the stream, so rewind and walk back to
	// the data chunk for the PCM byte count.
	if _, err := f.Seek(0, io.SeekStart); err == nil {
		d2 := wav.NewDecoder(f)
		if err := d2.FwdToPCM(); err == nil {
			bytesPerFrame := int64(d2.NumChans) * int64(d2.BitDepth/8)
			if bytesPerFrame > 0 {
				meta.Frames = d2.PCMLen() / bytesPerFrame
			}
		}
	}

	return meta, nil
}

func samplerInfo(d *wav.Decoder) *wav.SamplerInfo {
	if d.Metadata == nil {
		return nil
	}
	return d.Metadata.SamplerInfo
}

// FillSampleRef completes a zone's sample reference from the container
// on disk. It is best-effort: failures are reported through the notifier
// and leave the reference as-is.
func FillSampleRef(ref *model.SampleRef, opts *Options) {
	if ref == nil || ref.Name == "" || opts == nil || opts.BaseDir == "" {
		return
	}
	if ref.Path == "" {
		ref.Path = LocateSample(ref.Name, opts.BaseDir, opts.SampleSearchDepth)
	}
	if ref.Path == "" {
		opts.Notifyf(LevelWarn, "sample %q not found near %s", ref.Name, opts.BaseDir)
		return
	}
	if ref.SampleRate != 0 && ref.Frames != 0 {
		return
	}
	meta, err := ReadSampleMetadata(ref.Path)
	if err != nil {
		opts.Notifyf(LevelWarn, "sample %q unreadable: %v", ref.Name, err)
		return
	}
	if ref.SampleRate == 0 {
		ref.SampleRate = meta.SampleRate
	}
	if ref.BitDepth == 0 {
		ref.BitDepth = meta.BitDepth
	}
	if ref.Channels == 0 {
		ref.Channels = meta.Channels
	}
	if ref.Frames == 0 {
		ref.Frames = meta.Frames
	}
}
