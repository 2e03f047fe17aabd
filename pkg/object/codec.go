package object

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// maxStringLen bounds length-prefixed values so a corrupted prefix cannot
// trigger a huge allocation.
const maxStringLen = 64 << 20

// ErrStringTooLong is returned when a length prefix exceeds maxStringLen.
var ErrStringTooLong = errors.New("length-prefixed value too long")

// Encoder writes the binary primitives used by every on-disk record:
// big-endian fixed-width integers, uvarint sizes, length-prefixed strings
// and raw ids. The first write error is sticky and reported by Err.
type Encoder struct {
	w       io.Writer
	err     error
	scratch [binary.MaxVarintLen64]byte
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

func (e *Encoder) write(p []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(p)
}

// Uint32 writes a big-endian u32.
func (e *Encoder) Uint32(v uint32) {
	binary.BigEndian.PutUint32(e.scratch[:4], v)
	e.write(e.scratch[:4])
}

// Uint64 writes a big-endian u64.
func (e *Encoder) Uint64(v uint64) {
	binary.BigEndian.PutUint64(e.scratch[:8], v)
	e.write(e.scratch[:8])
}

// Int64 writes a big-endian two's complement i64.
func (e *Encoder) Int64(v int64) {
	e.Uint64(uint64(v))
}

// Size writes a uvarint.
func (e *Encoder) Size(v uint64) {
	n := binary.PutUvarint(e.scratch[:], v)
	e.write(e.scratch[:n])
}

// String writes a uvarint length followed by the bytes of s.
func (e *Encoder) String(s string) {
	e.Size(uint64(len(s)))
	if e.err != nil || len(s) == 0 {
		return
	}
	_, e.err = io.WriteString(e.w, s)
}

// ID writes the 32 raw bytes of id.
func (e *Encoder) ID(id ID) {
	e.write(id[:])
}

// Raw writes p verbatim.
func (e *Encoder) Raw(p []byte) {
	e.write(p)
}

// Err returns the first write error, if any.
func (e *Encoder) Err() error {
	return e.err
}

// Decoder reads values written by Encoder. A value cut short by the end of
// the stream yields io.ErrUnexpectedEOF; More distinguishes a clean end.
type Decoder struct {
	r       *bufio.Reader
	scratch [8]byte
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Decoder{r: br}
}

// More reports whether at least one more byte is available.
func (d *Decoder) More() bool {
	_, err := d.r.Peek(1)
	return err == nil
}

func (d *Decoder) full(p []byte) error {
	if _, err := io.ReadFull(d.r, p); err != nil {
		if errors.Is(err, io.EOF) {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	return nil
}

// Uint32 reads a big-endian u32.
func (d *Decoder) Uint32() (uint32, error) {
	if err := d.full(d.scratch[:4]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(d.scratch[:4]), nil
}

// Uint64 reads a big-endian u64.
func (d *Decoder) Uint64() (uint64, error) {
	if err := d.full(d.scratch[:8]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(d.scratch[:8]), nil
}

// Int64 reads a big-endian i64.
func (d *Decoder) Int64() (int64, error) {
	v, err := d.Uint64()
	return int64(v), err
}

// Size reads a uvarint.
func (d *Decoder) Size() (uint64, error) {
	v, err := binary.ReadUvarint(d.r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, io.ErrUnexpectedEOF
		}
		return 0, err
	}
	return v, nil
}

// String reads a length-prefixed string.
func (d *Decoder) String() (string, error) {
	n, err := d.Size()
	if err != nil {
		return "", err
	}
	if n > maxStringLen {
		return "", fmt.Errorf("%w: %d bytes", ErrStringTooLong, n)
	}
	if n == 0 {
		return "", nil
	}
	buf := make([]byte, n)
	if err := d.full(buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// ID reads 32 raw id bytes.
func (d *Decoder) ID() (ID, error) {
	var id ID
	if err := d.full(id[:]); err != nil {
		return ZeroID, err
	}
	return id, nil
}
