// Package header implements the versioned envelope at the start of every
// stone container file: a magic number, a version tag, and a
// version-specific data block dispatched to the matching sub-decoder.
package header

import (
	"encoding/binary"
	"fmt"
	"io"
)

// StoneMagic is the well known 4-byte magic identifying a stone file.
const StoneMagic uint32 = 0x006d6f73

// Version identifies the on-disk layout of the version-specific data block.
type Version uint32

const (
	// V1 is the only format version defined today.
	V1 Version = 1
)

func (v Version) String() string {
	switch v {
	case V1:
		return "v1"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(v))
	}
}

// agnosticSize is the fixed size of the version-agnostic envelope: 4 bytes
// magic, 24 bytes version-specific data, 4 bytes version.
const agnosticSize = 32

// agnostic is the raw, not-yet-interpreted 32-byte envelope.
type agnostic struct {
	magic   [4]byte
	data    [24]byte
	version [4]byte
}

func decodeAgnostic(r io.Reader) (agnostic, error) {
	var buf [agnosticSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return agnostic{}, ErrNotEnoughBytes
		}
		return agnostic{}, err
	}

	var a agnostic
	copy(a.magic[:], buf[0:4])
	copy(a.data[:], buf[4:28])
	copy(a.version[:], buf[28:32])
	return a, nil
}

// Header is a decoded, version-tagged stone header.
type Header interface {
	// Version reports the format version this header was encoded with.
	Version() Version
	// Encode returns the 32-byte on-disk representation of the header.
	Encode() []byte
}

// V1Header is today's only defined header payload.
type V1Header struct {
	// NumPayloads is the count of payload sections that follow.
	NumPayloads uint16
	// FileType distinguishes binary packages from repository indices, etc.
	FileType uint8
}

// Version implements Header.
func (h V1Header) Version() Version { return V1 }

// Encode implements Header: returns the full 32-byte envelope.
func (h V1Header) Encode() []byte {
	buf := make([]byte, agnosticSize)
	binary.BigEndian.PutUint32(buf[0:4], StoneMagic)
	binary.BigEndian.PutUint16(buf[4:6], h.NumPayloads)
	buf[6] = h.FileType
	// bytes [7:28) are reserved, left zero
	binary.BigEndian.PutUint32(buf[28:32], uint32(V1))
	return buf
}

// Decode reads the 32-byte envelope from r and dispatches to the
// appropriate version-specific decoder.
func Decode(r io.Reader) (Header, error) {
	a, err := decodeAgnostic(r)
	if err != nil {
		return nil, err
	}

	if binary.BigEndian.Uint32(a.magic[:]) != StoneMagic {
		return nil, ErrInvalidMagic
	}

	version := binary.BigEndian.Uint32(a.version[:])
	switch Version(version) {
	case V1:
		return V1Header{
			NumPayloads: binary.BigEndian.Uint16(a.data[0:2]),
			FileType:    a.data[2],
		}, nil
	default:
		return nil, &ErrUnknownVersion{Version: version}
	}
}

// Sentinel and typed decode errors, matching spec.md §4.1.
var (
	// ErrInvalidMagic is returned when the leading 4 bytes don't match StoneMagic.
	ErrInvalidMagic = fmt.Errorf("stone header: invalid magic")
	// ErrNotEnoughBytes is returned on a short read of the 32-byte envelope.
	ErrNotEnoughBytes = fmt.Errorf("stone header: not enough bytes")
)

// ErrUnknownVersion is returned when the trailing 4 bytes don't name a known version.
type ErrUnknownVersion struct {
	Version uint32
}

func (e *ErrUnknownVersion) Error() string {
	return fmt.Sprintf("stone header: unknown version: %d", e.Version)
}
