package payload

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ccoveille/go-safecast"
)

// Decoder decodes a materialized, decompressed payload body into its typed
// Go representation. Decoders are registered per Kind below.
type Decoder func(body []byte) (any, error)

var decoders = map[Kind]Decoder{
	KindMeta:       decodeMeta,
	KindLayout:     decodeLayout,
	KindIndex:      decodeIndex,
	KindAttributes: decodeAttributes,
}

// RegisterDecoder installs (or overrides) the decoder used for kind. Not
// needed for the kinds defined in this package, but keeps the payload set
// extensible the way new stone format versions require (spec.md §4.1).
func RegisterDecoder(kind Kind, decode Decoder) {
	decoders[kind] = decode
}

// Decode dispatches body to the registered decoder for kind. Returns
// ErrUnknownKind if nothing is registered.
func Decode(kind Kind, body []byte) (any, error) {
	decode, ok := decoders[kind]
	if !ok {
		return nil, &ErrUnknownKind{Kind: kind}
	}
	return decode(body)
}

// ErrUnknownKind is returned by Decode (and surfaced by the stone reader)
// when a payload's kind byte names nothing this build knows about.
type ErrUnknownKind struct {
	Kind Kind
}

func (e *ErrUnknownKind) Error() string {
	return fmt.Sprintf("payload: unknown kind: %d", uint8(e.Kind))
}

func writeString(buf *bytes.Buffer, s string) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(s)))
	buf.Write(lenBuf[:])
	buf.WriteString(s)
}

func readString(r *bytes.Reader) (string, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	size, err := safecast.ToInt(n)
	if err != nil {
		return "", err
	}
	strBuf := make([]byte, size)
	if _, err := io.ReadFull(r, strBuf); err != nil {
		return "", err
	}
	return string(strBuf), nil
}

func writeStrings(buf *bytes.Buffer, ss []string) {
	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(ss)))
	buf.Write(countBuf[:])
	for _, s := range ss {
		writeString(buf, s)
	}
}

func readStrings(r *bytes.Reader) ([]string, error) {
	var countBuf [4]byte
	if _, err := io.ReadFull(r, countBuf[:]); err != nil {
		return nil, err
	}
	count := binary.BigEndian.Uint32(countBuf[:])
	out := make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// EncodeMeta serializes m into its on-disk payload body.
func EncodeMeta(m Meta) []byte {
	var buf bytes.Buffer
	writeString(&buf, m.Name)
	writeString(&buf, m.Version)

	var releaseBuf [8]byte
	binary.BigEndian.PutUint64(releaseBuf[:], m.Release)
	buf.Write(releaseBuf[:])

	writeString(&buf, m.Architecture)
	writeString(&buf, m.Summary)
	writeString(&buf, m.Homepage)
	writeStrings(&buf, m.Licenses)
	writeStrings(&buf, m.Dependencies)

	writeOptionalString(&buf, m.URI)
	writeOptionalString(&buf, m.Hash)
	writeOptionalUint64(&buf, m.DownloadSize)

	return buf.Bytes()
}

func writeOptionalString(buf *bytes.Buffer, s *string) {
	if s == nil {
		buf.WriteByte(0)
		return
	}
	buf.WriteByte(1)
	writeString(buf, *s)
}

func writeOptionalUint64(buf *bytes.Buffer, v *uint64) {
	if v == nil {
		buf.WriteByte(0)
		return
	}
	buf.WriteByte(1)
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], *v)
	buf.Write(b[:])
}

func readOptionalString(r *bytes.Reader) (*string, error) {
	present, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if present == 0 {
		return nil, nil
	}
	s, err := readString(r)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func readOptionalUint64(r *bytes.Reader) (*uint64, error) {
	present, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if present == 0 {
		return nil, nil
	}
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return nil, err
	}
	v := binary.BigEndian.Uint64(b[:])
	return &v, nil
}

func decodeMeta(body []byte) (any, error) {
	r := bytes.NewReader(body)

	name, err := readString(r)
	if err != nil {
		return nil, err
	}
	version, err := readString(r)
	if err != nil {
		return nil, err
	}
	var releaseBuf [8]byte
	if _, err := io.ReadFull(r, releaseBuf[:]); err != nil {
		return nil, err
	}
	release := binary.BigEndian.Uint64(releaseBuf[:])

	arch, err := readString(r)
	if err != nil {
		return nil, err
	}
	summary, err := readString(r)
	if err != nil {
		return nil, err
	}
	homepage, err := readString(r)
	if err != nil {
		return nil, err
	}
	licenses, err := readStrings(r)
	if err != nil {
		return nil, err
	}
	deps, err := readStrings(r)
	if err != nil {
		return nil, err
	}
	uri, err := readOptionalString(r)
	if err != nil {
		return nil, err
	}
	hash, err := readOptionalString(r)
	if err != nil {
		return nil, err
	}
	downloadSize, err := readOptionalUint64(r)
	if err != nil {
		return nil, err
	}

	return Meta{
		Name:         name,
		Version:      version,
		Release:      release,
		Architecture: arch,
		Summary:      summary,
		Homepage:     homepage,
		Licenses:     licenses,
		Dependencies: deps,
		URI:          uri,
		Hash:         hash,
		DownloadSize: downloadSize,
	}, nil
}

// EncodeIndex serializes a sequence of index entries into their on-disk
// payload body: fixed 24-byte records of {start, end, digest}.
func EncodeIndex(entries []IndexEntry) []byte {
	buf := make([]byte, 0, len(entries)*24)
	for _, e := range entries {
		var rec [24]byte
		binary.BigEndian.PutUint64(rec[0:8], e.Start)
		binary.BigEndian.PutUint64(rec[8:16], e.End)
		copy(rec[16:24], e.Digest[:])
		buf = append(buf, rec[:]...)
	}
	return buf
}

func decodeIndex(body []byte) (any, error) {
	if len(body)%24 != 0 {
		return nil, fmt.Errorf("index payload: body length %d not a multiple of 24", len(body))
	}
	entries := make([]IndexEntry, 0, len(body)/24)
	for i := 0; i < len(body); i += 24 {
		var e IndexEntry
		e.Start = binary.BigEndian.Uint64(body[i : i+8])
		e.End = binary.BigEndian.Uint64(body[i+8 : i+16])
		copy(e.Digest[:], body[i+16:i+24])
		entries = append(entries, e)
	}
	return entries, nil
}

// EncodeLayout serializes layout entries into their on-disk payload body.
func EncodeLayout(entries []LayoutEntry) []byte {
	var buf bytes.Buffer
	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(entries)))
	buf.Write(countBuf[:])
	for _, e := range entries {
		buf.WriteByte(byte(e.Kind))
		writeString(&buf, e.SourcePath)
		writeString(&buf, e.TargetPath)
	}
	return buf.Bytes()
}

func decodeLayout(body []byte) (any, error) {
	r := bytes.NewReader(body)
	var countBuf [4]byte
	if _, err := io.ReadFull(r, countBuf[:]); err != nil {
		return nil, err
	}
	count := binary.BigEndian.Uint32(countBuf[:])
	out := make([]LayoutEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		kindByte, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		source, err := readString(r)
		if err != nil {
			return nil, err
		}
		target, err := readString(r)
		if err != nil {
			return nil, err
		}
		out = append(out, LayoutEntry{
			Kind:       LayoutEntryKind(kindByte),
			SourcePath: source,
			TargetPath: target,
		})
	}
	return out, nil
}

// EncodeAttributes serializes a flat key/value map into its on-disk
// payload body.
func EncodeAttributes(attrs Attributes) []byte {
	var buf bytes.Buffer
	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(attrs)))
	buf.Write(countBuf[:])
	for k, v := range attrs {
		writeString(&buf, k)
		writeString(&buf, v)
	}
	return buf.Bytes()
}

func decodeAttributes(body []byte) (any, error) {
	r := bytes.NewReader(body)
	var countBuf [4]byte
	if _, err := io.ReadFull(r, countBuf[:]); err != nil {
		return nil, err
	}
	count := binary.BigEndian.Uint32(countBuf[:])
	out := make(Attributes, count)
	for i := uint32(0); i < count; i++ {
		k, err := readString(r)
		if err != nil {
			return nil, err
		}
		v, err := readString(r)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}
