package mpc

import (
	"fmt"

	"github.com/samplecraft/exs2mpc/pkg/codec"
	"github.com/samplecraft/exs2mpc/pkg/model"
)

// Wire-contract caps. The hardware silently truncates rather than
// rejecting, so a writer exceeding them still emits a file.
const (
	maxKeygroups = 128
	maxLayers    = 4
)

// keygroupBucket collects the zones that become one Instrument node:
// same exact key range, same kind, at most maxLayers layers.
type keygroupBucket struct {
	name            string
	keyLow, keyHigh int

	// sequence buckets hold round-robin zones; round-robin is
	// per-keygroup, not per-velocity-split, so at most one sequence
	// bucket may exist for a given key range and its velocity range
	// must match every zone exactly.
	sequence        bool
	velLow, velHigh int

	trigger model.TriggerType
	layers  []*model.Zone
}

func (b *keygroupBucket) accepts(z *model.Zone) bool {
	if b.keyLow != z.KeyLow || b.keyHigh != z.KeyHigh {
		return false
	}
	if b.sequence != (z.Play == model.PlayRoundRobin) {
		return false
	}
	if b.sequence && (b.velLow != z.VelocityLow || b.velHigh != z.VelocityHigh) {
		return false
	}
	return true
}

// packLayers assigns zones to keygroup buckets for export. Zones that
// cannot be placed (a velocity-sequence range that would need a second
// bucket) are skipped with an error diagnostic rather than silently
// merged; a keygroup count above the cap is reported but still written.
func packLayers(in *model.Instrument, opts *codec.Options) []*keygroupBucket {
	var buckets []*keygroupBucket

	for _, g := range in.Groups {
		for _, z := range g.Zones {
			z.ClampRoot()
			if err := place(&buckets, g, z); err != nil {
				opts.Notifyf(codec.LevelError, "zone %d-%d: %v, skipped", z.KeyLow, z.KeyHigh, err)
			}
		}
	}

	if len(buckets) > maxKeygroups {
		opts.Notifyf(codec.LevelError, "%d keygroups exceed the %d keygroup limit; the hardware will truncate", len(buckets), maxKeygroups)
	}
	return buckets
}

func place(buckets *[]*keygroupBucket, g *model.Group, z *model.Zone) error {
	sequence := z.Play == model.PlayRoundRobin

	for _, b := range *buckets {
		if !b.accepts(z) {
			continue
		}
		if len(b.layers) >= maxLayers {
			if b.sequence {
				// A full sequence bucket may not spill into a second
				// one for the same velocity range.
				return fmt.Errorf("too many layers for velocity-sequence keygroup %d-%d", z.KeyLow, z.KeyHigh)
			}
			continue
		}
		b.layers = append(b.layers, z)
		return nil
	}

	if sequence {
		// Only one sequence bucket may exist per key range; a full one
		// was already rejected above, so reaching here means no bucket
		// for this exact velocity range exists yet.
		for _, b := range *buckets {
			if b.sequence && b.keyLow == z.KeyLow && b.keyHigh == z.KeyHigh &&
				(b.velLow != z.VelocityLow || b.velHigh != z.VelocityHigh) {
				return fmt.Errorf("second velocity-sequence bucket for keygroup %d-%d", z.KeyLow, z.KeyHigh)
			}
		}
	}

	*buckets = append(*buckets, &keygroupBucket{
		name:     g.Name,
		keyLow:   z.KeyLow,
		keyHigh:  z.KeyHigh,
		sequence: sequence,
		velLow:   z.VelocityLow,
		velHigh:  z.VelocityHigh,
		trigger:  g.Trigger,
		layers:   []*model.Zone{z},
	})
	return nil
}
