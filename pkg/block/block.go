// Package block implements the chunk framing shared by the binary
// instrument formats: a fixed 84-byte header (endianness flag, version,
// kind tag, payload length, block index, flags, magic, 64-byte name)
// followed by the raw payload. The payload layout is the concern of the
// codec built on top; this package only frames and validates.
package block

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Version is the only block version accepted by this family of formats.
const Version = 0x0008

// HeaderSize is the fixed number of bytes before the payload.
const HeaderSize = 84

const nameSize = 64

// Kind identifies the payload type of a block. Only the low nibble of
// the on-disk tag is significant; high-nibble variants occur in the wild
// and are masked off during framing.
type Kind byte

const (
	KindHeader Kind = 0x00
	KindZone   Kind = 0x01
	KindGroup  Kind = 0x02
	KindSample Kind = 0x03
	KindParams Kind = 0x04
)

// Magic values, conditioned on the detected byte order. Group and leaf
// blocks carry distinct magics and both must be accepted.
const (
	MagicGroupBE = "SOBT"
	MagicLeafBE  = "SOBJ"
	MagicGroupLE = "TBOS"
	MagicLeafLE  = "JBOS"
)

var (
	// ErrBadMagic is returned when a block's magic is not in the set
	// allowed for its declared byte order.
	ErrBadMagic = errors.New("block: unrecognized magic")

	// ErrUnknownVersion is returned when the version field does not
	// match Version.
	ErrUnknownVersion = errors.New("block: unknown version")

	// ErrTruncated is returned when the stream ends inside a header or
	// a declared payload.
	ErrTruncated = errors.New("block: truncated")
)

// Block is one framed unit of the container.
type Block struct {
	BigEndian bool
	Kind      Kind
	RawKind   byte // unmasked on-disk tag
	Index     uint32
	Flags     uint32
	Magic     string
	Name      string
	Payload   []byte
}

// Order returns the byte order declared by the block.
func (b *Block) Order() binary.ByteOrder {
	if b.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// IsGroup reports whether the block carries a group magic.
func (b *Block) IsGroup() bool {
	return b.Magic == MagicGroupBE || b.Magic == MagicGroupLE
}

func validMagic(magic string, bigEndian bool) bool {
	if bigEndian {
		return magic == MagicGroupBE || magic == MagicLeafBE
	}
	return magic == MagicGroupLE || magic == MagicLeafLE
}

// Reader walks a byte stream block by block.
type Reader struct {
	data []byte
	off  int
}

// NewReader returns a Reader over data. The stream starts immediately
// with the first block; there is no separate file header.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Offset returns the current position in the stream.
func (r *Reader) Offset() int {
	return r.off
}

// Next reads one block. It returns io.EOF once the stream is exhausted,
// ErrTruncated/ErrBadMagic/ErrUnknownVersion on a structural failure.
func (r *Reader) Next() (*Block, error) {
	if r.off >= len(r.data) {
		return nil, io.EOF
	}
	if len(r.data)-r.off < HeaderSize {
		return nil, fmt.Errorf("%w: %d header bytes left at offset %d", ErrTruncated, len(r.data)-r.off, r.off)
	}

	h := r.data[r.off : r.off+HeaderSize]
	bigEndian := h[0] == 0
	var order binary.ByteOrder = binary.LittleEndian
	if bigEndian {
		order = binary.BigEndian
	}

	version := order.Uint16(h[1:3])
	if version != Version {
		return nil, fmt.Errorf("%w: 0x%04x at offset %d", ErrUnknownVersion, version, r.off)
	}

	rawKind := h[3]
	length := order.Uint32(h[4:8])
	index := order.Uint32(h[8:12])
	flags := order.Uint32(h[12:16])
	magic := string(h[16:20])
	if !validMagic(magic, bigEndian) {
		return nil, fmt.Errorf("%w: %q at offset %d", ErrBadMagic, magic, r.off)
	}
	name := trimName(h[20 : 20+nameSize])

	payloadStart := r.off + HeaderSize
	if len(r.data)-payloadStart < int(length) {
		return nil, fmt.Errorf("%w: payload of %d bytes at offset %d", ErrTruncated, length, payloadStart)
	}

	b := &Block{
		BigEndian: bigEndian,
		Kind:      Kind(rawKind & 0x0f),
		RawKind:   rawKind,
		Index:     index,
		Flags:     flags,
		Magic:     magic,
		Name:      name,
		Payload:   r.data[payloadStart : payloadStart+int(length)],
	}
	r.off = payloadStart + int(length)
	return b, nil
}

// trimName cuts a fixed-width ASCII name at the first NUL. Bytes after
// the first NUL are garbage left behind by some encoders and must be
// discarded.
func trimName(raw []byte) string {
	if i := strings.IndexByte(string(raw), 0); i >= 0 {
		return string(raw[:i])
	}
	return string(raw)
}

// Writer emits blocks in a single byte order.
type Writer struct {
	buf       []byte
	bigEndian bool
}

// NewWriter returns a Writer. The byte order is fixed for the whole
// stream, matching the per-file convention of the format.
func NewWriter(bigEndian bool) *Writer {
	return &Writer{bigEndian: bigEndian}
}

func (w *Writer) order() binary.ByteOrder {
	if w.bigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Append frames one block. Group selects the group magic instead of the
// leaf magic. Names longer than the fixed field are truncated; shorter
// names are re-padded with NUL.
func (w *Writer) Append(kind Kind, index uint32, name string, group bool, payload []byte) {
	order := w.order()
	h := make([]byte, HeaderSize)
	if !w.bigEndian {
		h[0] = 1
	}
	order.PutUint16(h[1:3], Version)
	h[3] = byte(kind)
	order.PutUint32(h[4:8], uint32(len(payload)))
	order.PutUint32(h[8:12], index)
	order.PutUint32(h[12:16], 0)

	magic := MagicLeafLE
	switch {
	case w.bigEndian && group:
		magic = MagicGroupBE
	case w.bigEndian:
		magic = MagicLeafBE
	case group:
		magic = MagicGroupLE
	}
	copy(h[16:20], magic)

	if len(name) > nameSize {
		name = name[:nameSize]
	}
	copy(h[20:20+nameSize], name)

	w.buf = append(w.buf, h...)
	w.buf = append(w.buf, payload...)
}

// Bytes returns the framed stream.
func (w *Writer) Bytes() []byte {
	return w.buf
}
