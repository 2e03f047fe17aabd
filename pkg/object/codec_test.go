package object

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestEncoderDecoder(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	enc.Uint32(0xdeadbeef)
	enc.Uint64(1 << 40)
	enc.Int64(-5)
	enc.Size(300)
	enc.String("path/to/file")
	enc.String("")
	enc.ID(testID(0x42))
	if err := enc.Err(); err != nil {
		t.Fatalf("encode: %v", err)
	}

	dec := NewDecoder(&buf)
	if v, err := dec.Uint32(); err != nil || v != 0xdeadbeef {
		t.Fatalf("Uint32 = %x, %v", v, err)
	}
	if v, err := dec.Uint64(); err != nil || v != 1<<40 {
		t.Fatalf("Uint64 = %d, %v", v, err)
	}
	if v, err := dec.Int64(); err != nil || v != -5 {
		t.Fatalf("Int64 = %d, %v", v, err)
	}
	if v, err := dec.Size(); err != nil || v != 300 {
		t.Fatalf("Size = %d, %v", v, err)
	}
	if v, err := dec.String(); err != nil || v != "path/to/file" {
		t.Fatalf("String = %q, %v", v, err)
	}
	if v, err := dec.String(); err != nil || v != "" {
		t.Fatalf("empty String = %q, %v", v, err)
	}
	if v, err := dec.ID(); err != nil || v != testID(0x42) {
		t.Fatalf("ID = %s, %v", v, err)
	}
	if dec.More() {
		t.Fatal("More = true at end of stream")
	}
}

func TestDecoderTruncated(t *testing.T) {
	dec := NewDecoder(bytes.NewReader([]byte{0, 1}))
	if _, err := dec.Uint32(); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("Uint32 err = %v, want ErrUnexpectedEOF", err)
	}

	dec = NewDecoder(bytes.NewReader([]byte{5, 'a', 'b'}))
	if _, err := dec.String(); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("String err = %v, want ErrUnexpectedEOF", err)
	}
}

func TestDecoderStringTooLong(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	enc.Size(maxStringLen + 1)
	dec := NewDecoder(&buf)
	if _, err := dec.String(); !errors.Is(err, ErrStringTooLong) {
		t.Fatalf("String err = %v, want ErrStringTooLong", err)
	}
}

type failingWriter struct{ n int }

func (w *failingWriter) Write(p []byte) (int, error) {
	w.n++
	return 0, errors.New("disk full")
}

func TestEncoderStickyError(t *testing.T) {
	w := &failingWriter{}
	enc := NewEncoder(w)
	enc.Uint32(1)
	enc.String("abc")
	enc.ID(ZeroID)
	if enc.Err() == nil {
		t.Fatal("expected sticky error")
	}
	if w.n != 1 {
		t.Fatalf("writes after failure: %d, want 1", w.n)
	}
}
