package store

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// FormatVersion is written after the magic of every log file.
	FormatVersion = 1
	// HeaderSize is the size of the signature that starts every log file.
	HeaderSize = 8
)

// Magic values identifying each persisted file.
var (
	ContentMagic = [4]byte{0xff, 'c', 'L', 'g'}
	CatalogMagic = [4]byte{0xff, 'c', 'C', 't'}
	HistoryMagic = [4]byte{0xff, 'c', 'H', 's'}
	TipMagic     = [4]byte{0xff, 'c', 'T', 'p'}
)

// Header returns the signature bytes for magic.
func Header(magic [4]byte) []byte {
	buf := make([]byte, HeaderSize)
	copy(buf, magic[:])
	binary.BigEndian.PutUint32(buf[4:], FormatVersion)
	return buf
}

// CheckHeader reads HeaderSize bytes from r and verifies them against
// magic. Anything short or unexpected is ErrCorrupted.
func CheckHeader(r io.Reader, magic [4]byte) error {
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: short header", ErrCorrupted)
		}
		return err
	}
	if !bytes.Equal(buf[:4], magic[:]) {
		return fmt.Errorf("%w: bad signature %x", ErrCorrupted, buf[:4])
	}
	if v := binary.BigEndian.Uint32(buf[4:]); v != FormatVersion {
		return fmt.Errorf("%w: unsupported format version %d", ErrCorrupted, v)
	}
	return nil
}
