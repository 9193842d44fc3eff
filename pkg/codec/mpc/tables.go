package mpc

import (
	"github.com/samplecraft/exs2mpc/pkg/model"
	"github.com/samplecraft/exs2mpc/pkg/normalize"
)

// envSpec describes how one envelope field is normalized on the wire.
// The log/linear split is fixed per field name: the hardware's response
// is calibrated to these exact curves, so the assignment is wire
// contract, not an implementation choice.
type envSpec struct {
	log      bool
	min, max float64
}

var envSpecs = map[string]envSpec{
	"VolumeAttack":  {log: true, min: 0.001, max: 10},
	"VolumeHold":    {log: false, min: 0, max: 20},
	"VolumeDecay":   {log: true, min: 0.001, max: 30},
	"VolumeRelease": {log: true, min: 0.001, max: 30},
	"FilterAttack":  {log: true, min: 0.001, max: 10},
	"FilterHold":    {log: false, min: 0, max: 20},
	"FilterDecay":   {log: true, min: 0.001, max: 30},
	"FilterRelease": {log: true, min: 0.001, max: 30},
}

// normalizeTime maps seconds to the stored 0..1 value for a field.
func normalizeTime(field string, seconds float64) float64 {
	spec, ok := envSpecs[field]
	if !ok {
		return normalize.Clamp(seconds, 0, 1)
	}
	if spec.log {
		return normalize.Log(seconds, spec.min, spec.max)
	}
	return normalize.Linear(seconds, spec.min, spec.max)
}

// denormalizeTime maps a stored 0..1 value back to seconds.
func denormalizeTime(field string, t float64) float64 {
	spec, ok := envSpecs[field]
	if !ok {
		return normalize.Clamp(t, 0, 1)
	}
	if spec.log {
		return normalize.DenormalizeLog(t, spec.min, spec.max)
	}
	return normalize.DenormalizeLinear(t, spec.min, spec.max)
}

type filterEntry struct {
	typ   model.FilterType
	poles int
}

// filterTable maps the FilterType ordinal of the wire format to a
// canonical filter. An ordinal outside the table means "no filter",
// never an error.
var filterTable = []filterEntry{
	{model.FilterLowPass, 1},
	{model.FilterLowPass, 2},
	{model.FilterLowPass, 4},
	{model.FilterHighPass, 1},
	{model.FilterHighPass, 2},
	{model.FilterHighPass, 4},
	{model.FilterBandPass, 2},
	{model.FilterBandPass, 4},
	{model.FilterBandReject, 2},
	{model.FilterBandReject, 4},
}

// filterIndex finds the ordinal for a canonical filter, preferring an
// exact pole match and falling back to the family's first entry.
func filterIndex(f *model.Filter) int {
	for i, e := range filterTable {
		if e.typ == f.Type && e.poles == f.Poles {
			return i
		}
	}
	for i, e := range filterTable {
		if e.typ == f.Type {
			return i
		}
	}
	return 0
}

// defaultPadNote is the factory pad layout used when a drum program is
// written without an explicit pad map: pad 1 sits on MIDI note 36.
func defaultPadNote(pad int) int {
	return 35 + pad
}
