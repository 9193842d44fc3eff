// Package mpc implements the XML keygroup program codec. A program is an
// attribute tree: a root object with a version subtree and a program
// subtree holding up to 128 keygroup nodes of up to 4 sample layers
// each. Envelope times are stored normalized (log or linear per field),
// the root note is stored off by one, and drum programs remap key
// ranges through a pad-note table.
package mpc

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/samplecraft/exs2mpc/pkg/codec"
)

// Codec is the XML keygroup codec.
type Codec struct{}

// New returns the codec.
func New() *Codec {
	return &Codec{}
}

// Name returns the format name.
func (c *Codec) Name() string {
	return string(codec.FormatXPM)
}

// Extensions returns the file extensions claimed by the format.
func (c *Codec) Extensions() []string {
	return []string{".xpm"}
}

// Wire names that are part of the format contract.
const (
	rootElement     = "MPCVObject"
	programKeygroup = "Keygroup"
	programDrum     = "Drum"
	fileVersion     = "2.1"
)

func atoi(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}

// childText returns a child element's text or def when the child is
// absent. Absent optional attributes are expected, not an error.
func childText(el *etree.Element, name, def string) string {
	child := el.SelectElement(name)
	if child == nil {
		return def
	}
	return strings.TrimSpace(child.Text())
}

// childFloat returns a child element's numeric text. An unparsable value
// substitutes the default and is reported when the caller asked for
// unsupported-attribute logging.
func childFloat(el *etree.Element, name string, def float64, opts *codec.Options) float64 {
	text := childText(el, name, "")
	if text == "" {
		return def
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		if opts != nil && opts.LogUnsupported {
			opts.Notifyf(codec.LevelWarn, "unparsable %s value %q, using %g", name, text, def)
		}
		return def
	}
	return v
}

func childInt(el *etree.Element, name string, def int, opts *codec.Options) int {
	return int(childFloat(el, name, float64(def), opts))
}

func childBool(el *etree.Element, name string, def bool) bool {
	switch strings.ToLower(childText(el, name, "")) {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}
	return def
}

func setChild(el *etree.Element, name, value string) {
	el.CreateElement(name).SetText(value)
}

func setChildFloat(el *etree.Element, name string, v float64) {
	setChild(el, name, strconv.FormatFloat(v, 'f', 6, 64))
}

func setChildInt(el *etree.Element, name string, v int) {
	setChild(el, name, strconv.Itoa(v))
}
