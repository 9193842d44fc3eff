// Package codec defines the boundary every preset format implements:
// decode bytes into the canonical model, encode the canonical model back
// into bytes, and report non-fatal diagnostics through a notifier
// side-channel so a batch caller can keep going on a best-effort basis.
package codec

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/samplecraft/exs2mpc/pkg/block"
	"github.com/samplecraft/exs2mpc/pkg/model"
)

// Format represents a preset file format.
type Format string

const (
	FormatEXS     Format = "exs"
	FormatXPM     Format = "xpm"
	FormatUnknown Format = "unknown"
)

var (
	// ErrMalformed marks a structural failure in the source file.
	ErrMalformed = errors.New("codec: malformed container")

	// ErrUnsupportedProgram marks a root/program node of a type this
	// codec does not handle.
	ErrUnsupportedProgram = errors.New("codec: unsupported program type")

	// ErrPadMapping marks a drum program whose pad-note table cannot
	// resolve a used pad. Such a program is unplayable, so the whole
	// file fails rather than individual zones being skipped.
	ErrPadMapping = errors.New("codec: unresolved pad mapping")
)

// Level classifies a diagnostic sent through the notifier.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	}
	return "info"
}

// Notifier receives non-fatal diagnostics during a conversion: missing
// samples, unsupported attributes, overflow warnings. Fatal errors are
// returned from Decode/Encode instead.
type Notifier func(level Level, format string, args ...any)

// Options carries the caller-supplied knobs shared by all codecs.
type Options struct {
	// Notify receives diagnostics; nil discards them.
	Notify Notifier

	// BaseDir is the directory of the preset file, used to resolve
	// referenced sample files. Empty disables sample resolution.
	BaseDir string

	// SampleSearchDepth bounds how many ancestor directories are
	// searched for a sample that is not next to the preset.
	SampleSearchDepth int

	// PreferFolderName names the instrument after its folder instead of
	// the embedded program name.
	PreferFolderName bool

	// LogUnsupported reports every ignored or defaulted attribute.
	LogUnsupported bool
}

// DefaultOptions returns the options used when the caller passes nil.
func DefaultOptions() *Options {
	return &Options{SampleSearchDepth: 3}
}

// Notifyf forwards a diagnostic, tolerating nil receivers and nil
// notifiers so codec code never has to guard the side-channel.
func (o *Options) Notifyf(level Level, format string, args ...any) {
	if o == nil || o.Notify == nil {
		return
	}
	o.Notify(level, format, args...)
}

// Codec is one preset format.
type Codec interface {
	Name() string
	Extensions() []string
	Decode(data []byte, opts *Options) (*model.Instrument, error)
	Encode(in *model.Instrument, opts *Options) ([]byte, error)
}

// DetectFormat detects the format of a file based on its extension.
func DetectFormat(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".exs":
		return FormatEXS
	case ".xpm":
		return FormatXPM
	default:
		return FormatUnknown
	}
}

// DetectFormatFromContent detects the format from file content. A binary
// instrument stream starts with an endianness flag and carries one of
// the four known magics at offset 16; the keygroup format is an XML
// document.
func DetectFormatFromContent(data []byte) Format {
	if len(data) >= block.HeaderSize && (data[0] == 0 || data[0] == 1) {
		switch string(data[16:20]) {
		case block.MagicGroupBE, block.MagicLeafBE, block.MagicGroupLE, block.MagicLeafLE:
			return FormatEXS
		}
	}

	head := strings.TrimLeft(string(data[:min(len(data), 256)]), " \t\r\n\uFEFF")
	if strings.HasPrefix(head, "<?xml") || strings.HasPrefix(head, "<MPCVObject") {
		return FormatXPM
	}

	return FormatUnknown
}
