package block

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// PayloadReader is a cursor over one block payload in the block's byte
// order. Required fields set a sticky error on underrun; optional
// trailing fields are read behind a Remaining check, because several
// payloads in the wild carry extra undocumented tail bytes that must be
// tolerated rather than truncation-checked.
type PayloadReader struct {
	data  []byte
	off   int
	order binary.ByteOrder
	err   error
}

// NewPayloadReader returns a cursor over the block's payload.
func NewPayloadReader(b *Block) *PayloadReader {
	return &PayloadReader{data: b.Payload, order: b.Order()}
}

// Err returns the first underrun encountered, if any.
func (p *PayloadReader) Err() error {
	return p.err
}

// Remaining returns the number of unread bytes.
func (p *PayloadReader) Remaining() int {
	return len(p.data) - p.off
}

func (p *PayloadReader) take(n int, what string) []byte {
	if p.err != nil {
		return nil
	}
	if p.Remaining() < n {
		p.err = fmt.Errorf("%w: %s needs %d bytes, %d left", ErrTruncated, what, n, p.Remaining())
		return nil
	}
	b := p.data[p.off : p.off+n]
	p.off += n
	return b
}

// U8 reads one byte.
func (p *PayloadReader) U8(what string) byte {
	b := p.take(1, what)
	if b == nil {
		return 0
	}
	return b[0]
}

// U16 reads a 16-bit unsigned integer.
func (p *PayloadReader) U16(what string) uint16 {
	b := p.take(2, what)
	if b == nil {
		return 0
	}
	return p.order.Uint16(b)
}

// I16 reads a 16-bit two's-complement integer.
func (p *PayloadReader) I16(what string) int16 {
	return int16(p.U16(what))
}

// U32 reads a 32-bit unsigned integer.
func (p *PayloadReader) U32(what string) uint32 {
	b := p.take(4, what)
	if b == nil {
		return 0
	}
	return p.order.Uint32(b)
}

// I32 reads a 32-bit two's-complement integer.
func (p *PayloadReader) I32(what string) int32 {
	return int32(p.U32(what))
}

// ASCII reads a fixed-width NUL-padded text field, discarding anything
// after the first NUL.
func (p *PayloadReader) ASCII(n int, what string) string {
	b := p.take(n, what)
	if b == nil {
		return ""
	}
	if i := strings.IndexByte(string(b), 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

// Skip advances past n bytes.
func (p *PayloadReader) Skip(n int, what string) {
	p.take(n, what)
}

// PayloadWriter builds one block payload in a fixed byte order.
type PayloadWriter struct {
	buf   []byte
	order binary.ByteOrder
}

// NewPayloadWriter returns a payload builder.
func NewPayloadWriter(bigEndian bool) *PayloadWriter {
	var order binary.ByteOrder = binary.LittleEndian
	if bigEndian {
		order = binary.BigEndian
	}
	return &PayloadWriter{order: order}
}

// U8 appends one byte.
func (p *PayloadWriter) U8(v byte) {
	p.buf = append(p.buf, v)
}

// U16 appends a 16-bit unsigned integer.
func (p *PayloadWriter) U16(v uint16) {
	var b [2]byte
	p.order.PutUint16(b[:], v)
	p.buf = append(p.buf, b[:]...)
}

// I16 appends a 16-bit two's-complement integer.
func (p *PayloadWriter) I16(v int16) {
	p.U16(uint16(v))
}

// U32 appends a 32-bit unsigned integer.
func (p *PayloadWriter) U32(v uint32) {
	var b [4]byte
	p.order.PutUint32(b[:], v)
	p.buf = append(p.buf, b[:]...)
}

// I32 appends a 32-bit two's-complement integer.
func (p *PayloadWriter) I32(v int32) {
	p.U32(uint32(v))
}

// ASCII appends a fixed-width NUL-padded text field.
func (p *PayloadWriter) ASCII(s string, n int) {
	b := make([]byte, n)
	copy(b, s)
	p.buf = append(p.buf, b...)
}

// Bytes returns the payload built so far.
func (p *PayloadWriter) Bytes() []byte {
	return p.buf
}
