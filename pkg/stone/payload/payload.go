// Package payload defines the typed payload sections framed inside a
// stone container, their on-disk header, and a small registry of
// decoders keyed by Kind.
package payload

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ccoveille/go-safecast"
)

// Kind tags the payload body that follows a Header.
type Kind uint8

const (
	KindMeta Kind = iota
	KindLayout
	KindIndex
	KindContent
	KindAttributes
)

func (k Kind) String() string {
	switch k {
	case KindMeta:
		return "meta"
	case KindLayout:
		return "layout"
	case KindIndex:
		return "index"
	case KindContent:
		return "content"
	case KindAttributes:
		return "attributes"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Compression tags how a payload's body bytes are stored.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionXz
	CompressionZstd
)

// headerSize is {kind:u8, compression:u8, plain_size:u64, stored_size:u64, checksum:u64}.
const headerSize = 1 + 1 + 8 + 8 + 8

// Header frames a single payload within a stone container.
type Header struct {
	Kind        Kind
	Compression Compression
	PlainSize   uint64
	StoredSize  uint64
	Checksum    uint64
}

// DecodeHeader reads one fixed-size payload header from r.
func DecodeHeader(r io.Reader) (Header, error) {
	var buf [headerSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Header{}, fmt.Errorf("payload header: %w", err)
	}

	return Header{
		Kind:        Kind(buf[0]),
		Compression: Compression(buf[1]),
		PlainSize:   binary.BigEndian.Uint64(buf[2:10]),
		StoredSize:  binary.BigEndian.Uint64(buf[10:18]),
		Checksum:    binary.BigEndian.Uint64(buf[18:26]),
	}, nil
}

// Encode returns the 26-byte wire representation of h.
func (h Header) Encode() []byte {
	buf := make([]byte, headerSize)
	buf[0] = byte(h.Kind)
	buf[1] = byte(h.Compression)
	binary.BigEndian.PutUint64(buf[2:10], h.PlainSize)
	binary.BigEndian.PutUint64(buf[10:18], h.StoredSize)
	binary.BigEndian.PutUint64(buf[18:26], h.Checksum)
	return buf
}

// IndexEntry describes one byte range within a Content payload's blob,
// and the digest of the asset it decodes to.
type IndexEntry struct {
	Start  uint64
	End    uint64
	Digest [8]byte
}

// Len returns the byte length of the range, safely cast to int for
// callers that need to allocate or slice with it.
func (e IndexEntry) Len() (int, error) {
	return safecast.ToInt(e.End - e.Start)
}

// DigestHex returns the lowercase hex string of the index entry's digest,
// the form used by AssetStore paths.
func (e IndexEntry) DigestHex() string {
	return fmt.Sprintf("%016x", e.Digest)
}

// LayoutEntryKind distinguishes the filesystem entry types a Layout
// payload can describe, carried over from moss-rs (recovered from
// original_source/, dropped by the distilled data model).
type LayoutEntryKind uint8

const (
	LayoutRegular LayoutEntryKind = iota
	LayoutSymlink
	LayoutDirectory
)

// LayoutEntry is one row of a Layout payload: where an asset (identified
// by its content hash) belongs once installed.
type LayoutEntry struct {
	Kind       LayoutEntryKind
	SourcePath string // asset hash or symlink target
	TargetPath string
}

// Meta is the decoded body of a Meta payload: package metadata needed to
// fetch and identify the package, recovered from moss-rs's
// `package::Meta` (original_source/).
type Meta struct {
	Name         string
	Version      string
	Release      uint64
	Architecture string
	Summary      string
	Homepage     string
	Licenses     []string
	Dependencies []string
	URI          *string
	Hash         *string
	DownloadSize *uint64
}

// Attributes is the decoded body of an Attributes payload: a flat
// key/value map attached to an asset (xattr-like), recovered from
// original_source/.
type Attributes map[string]string
