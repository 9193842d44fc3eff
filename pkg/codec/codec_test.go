package codec

import (
	"strings"
	"testing"

	"github.com/samplecraft/exs2mpc/pkg/block"
	"github.com/samplecraft/exs2mpc/pkg/model"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		filename string
		expected Format
	}{
		{"test.exs", FormatEXS},
		{"Test.EXS", FormatEXS},
		{"test.xpm", FormatXPM},
		{"Deep Keys.XPM", FormatXPM},
		{"test.wav", FormatUnknown},
		{"test", FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			result := DetectFormat(tt.filename)
			if result != tt.expected {
				t.Errorf("DetectFormat(%q) = %v, want %v", tt.filename, result, tt.expected)
			}
		})
	}
}

func TestDetectFormatFromContent(t *testing.T) {
	le := block.NewWriter(false)
	le.Append(block.KindHeader, 0, "inst", true, nil)
	be := block.NewWriter(true)
	be.Append(block.KindHeader, 0, "inst", true, nil)

	tests := []struct {
		name     string
		data     []byte
		expected Format
	}{
		{"little-endian blocks", le.Bytes(), FormatEXS},
		{"big-endian blocks", be.Bytes(), FormatEXS},
		{"xml declaration", []byte(`<?xml version="1.0"?><MPCVObject/>`), FormatXPM},
		{"bare root element", []byte("<MPCVObject><Program/></MPCVObject>"), FormatXPM},
		{"leading whitespace", []byte("\n  <?xml version=\"1.0\"?>"), FormatXPM},
		{"byte-order mark", []byte("\uFEFF<?xml version=\"1.0\"?>"), FormatXPM},
		{"bom and whitespace", []byte("\uFEFF\r\n<MPCVObject/>"), FormatXPM},
		{"short data", []byte{0x00, 0x01}, FormatUnknown},
		{"wav data", []byte("RIFF....WAVEfmt "), FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DetectFormatFromContent(tt.data)
			if result != tt.expected {
				t.Errorf("DetectFormatFromContent() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestDetectFormatFromContentBadMagic(t *testing.T) {
	w := block.NewWriter(false)
	w.Append(block.KindHeader, 0, "inst", true, nil)
	data := w.Bytes()
	copy(data[16:20], "XXXX")

	if got := DetectFormatFromContent(data); got != FormatUnknown {
		t.Errorf("DetectFormatFromContent() = %v, want unknown", got)
	}
}

// mockCodec implements Codec for routing tests.
type mockCodec struct {
	name      string
	decoded   []byte
	encodeOut []byte
}

func (m *mockCodec) Name() string         { return m.name }
func (m *mockCodec) Extensions() []string { return []string{"." + m.name} }
func (m *mockCodec) Decode(data []byte, opts *Options) (*model.Instrument, error) {
	m.decoded = data
	return &model.Instrument{Name: "Mock"}, nil
}
func (m *mockCodec) Encode(in *model.Instrument, opts *Options) ([]byte, error) {
	return m.encodeOut, nil
}

func TestConverterNew(t *testing.T) {
	src := &mockCodec{name: "exs"}
	dst := &mockCodec{name: "xpm"}
	conv := New(src, dst)

	if cd, ok := conv.Codec(FormatEXS); !ok || cd != Codec(src) {
		t.Error("Codec(FormatEXS) did not return the registered codec")
	}
	if _, ok := conv.Codec(Format("other")); ok {
		t.Error("Codec() should miss on unregistered formats")
	}
}

func TestConverterConvert(t *testing.T) {
	src := &mockCodec{name: "exs"}
	dst := &mockCodec{name: "xpm", encodeOut: []byte("output")}
	conv := New(src, dst)

	out, err := conv.Convert([]byte("input"), FormatEXS, FormatXPM, "")
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	if string(out) != "output" {
		t.Errorf("Convert() = %q, want %q", out, "output")
	}
	if string(src.decoded) != "input" {
		t.Errorf("source codec saw %q, want %q", src.decoded, "input")
	}
}

func TestConverterConvertUnknownFormat(t *testing.T) {
	conv := New(&mockCodec{name: "exs"})

	if _, err := conv.Convert(nil, FormatXPM, FormatEXS, ""); err == nil {
		t.Error("Convert() with no source codec should fail")
	}
	if _, err := conv.Convert(nil, FormatEXS, FormatXPM, ""); err == nil {
		t.Error("Convert() with no destination codec should fail")
	}
}

func TestSupportedConversions(t *testing.T) {
	conv := New(&mockCodec{name: "exs"}, &mockCodec{name: "xpm"})

	conversions := conv.SupportedConversions()
	if len(conversions) != 2 {
		t.Fatalf("SupportedConversions() returned %d entries, want 2", len(conversions))
	}
	joined := strings.Join(conversions, ",")
	if !strings.Contains(joined, "exs -> xpm") || !strings.Contains(joined, "xpm -> exs") {
		t.Errorf("conversions = %v", conversions)
	}
}

func TestNotifyfNilSafe(t *testing.T) {
	var opts *Options
	opts.Notifyf(LevelInfo, "must not panic")

	opts = &Options{}
	opts.Notifyf(LevelWarn, "still must not panic")

	var got string
	opts.Notify = func(level Level, format string, args ...any) {
		got = level.String() + ": " + format
	}
	opts.Notifyf(LevelError, "boom")
	if got != "error: boom" {
		t.Errorf("notifier saw %q", got)
	}
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.expected {
			t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.expected)
		}
	}
}
