package codec

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Converter routes a conversion between two registered codecs. Callers
// register the concrete codecs (the packages below pkg/codec) to keep
// this package free of per-format imports.
type Converter struct {
	codecs map[Format]Codec
	opts   *Options
}

// New creates a Converter over the given codecs.
func New(codecs ...Codec) *Converter {
	c := &Converter{codecs: make(map[Format]Codec), opts: DefaultOptions()}
	for _, cd := range codecs {
		c.Register(cd)
	}
	return c
}

// Register adds a codec under its format name.
func (c *Converter) Register(cd Codec) {
	c.codecs[Format(cd.Name())] = cd
}

// SetOptions replaces the options used for subsequent conversions.
func (c *Converter) SetOptions(opts *Options) {
	if opts == nil {
		opts = DefaultOptions()
	}
	c.opts = opts
}

// Codec returns the codec registered for a format.
func (c *Converter) Codec(f Format) (Codec, bool) {
	cd, ok := c.codecs[f]
	return cd, ok
}

// ConvertFile reads inputPath, decodes it with the matching source
// codec, and encodes it with the codec matching outputPath's extension.
func (c *Converter) ConvertFile(inputPath, outputPath string) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	inputFormat := DetectFormat(inputPath)
	if inputFormat == FormatUnknown {
		inputFormat = DetectFormatFromContent(data)
	}
	outputFormat := DetectFormat(outputPath)

	if inputFormat == FormatUnknown {
		return errors.New("cannot determine input format")
	}
	if outputFormat == FormatUnknown {
		return errors.New("cannot determine output format from filename")
	}

	out, err := c.Convert(data, inputFormat, outputFormat, inputPath)
	if err != nil {
		return err
	}

	if err := os.WriteFile(outputPath, out, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// Convert decodes data as the source format and re-encodes it as the
// destination format. inputPath may be empty; when set it anchors the
// sample-file search and the prefer-folder-name option.
func (c *Converter) Convert(data []byte, from, to Format, inputPath string) ([]byte, error) {
	src, ok := c.codecs[from]
	if !ok {
		return nil, fmt.Errorf("no codec for source format %q", from)
	}
	dst, ok := c.codecs[to]
	if !ok {
		return nil, fmt.Errorf("no codec for destination format %q", to)
	}

	opts := *c.opts
	if inputPath != "" && opts.BaseDir == "" {
		opts.BaseDir = filepath.Dir(inputPath)
	}

	in, err := src.Decode(data, &opts)
	if err != nil {
		return nil, fmt.Errorf("%s decode failed: %w", src.Name(), err)
	}
	if opts.PreferFolderName && opts.BaseDir != "" {
		in.Name = filepath.Base(opts.BaseDir)
	}

	out, err := dst.Encode(in, &opts)
	if err != nil {
		return nil, fmt.Errorf("%s encode failed: %w", dst.Name(), err)
	}
	return out, nil
}

// SupportedConversions lists the conversion paths available with the
// registered codecs.
func (c *Converter) SupportedConversions() []string {
	var out []string
	for from := range c.codecs {
		for to := range c.codecs {
			if from != to {
				out = append(out, fmt.Sprintf("%s -> %s", from, to))
			}
		}
	}
	return out
}
