package read_test

import (
	"bytes"
	"testing"

	"gotest.tools/v3/assert"

	"boulder/pkg/stone/header"
	"boulder/pkg/stone/payload"
	"boulder/pkg/stone/read"
)

func buildStoneFile(t *testing.T, content []byte, entries []payload.IndexEntry, meta payload.Meta) []byte {
	t.Helper()

	var buf bytes.Buffer

	buf.Write(header.V1Header{NumPayloads: 3, FileType: 1}.Encode())

	metaBody := payload.EncodeMeta(meta)
	buf.Write(payload.Header{
		Kind:       payload.KindMeta,
		PlainSize:  uint64(len(metaBody)),
		StoredSize: uint64(len(metaBody)),
	}.Encode())
	buf.Write(metaBody)

	indexBody := payload.EncodeIndex(entries)
	buf.Write(payload.Header{
		Kind:       payload.KindIndex,
		PlainSize:  uint64(len(indexBody)),
		StoredSize: uint64(len(indexBody)),
	}.Encode())
	buf.Write(indexBody)

	buf.Write(payload.Header{
		Kind:       payload.KindContent,
		PlainSize:  uint64(len(content)),
		StoredSize: uint64(len(content)),
	}.Encode())
	buf.Write(content)

	return buf.Bytes()
}

func TestRoundTrip(t *testing.T) {
	content := []byte("hello boulder world, this is packed content")
	entries := []payload.IndexEntry{
		{Start: 0, End: 5, Digest: [8]byte{0xde, 0xad, 0xbe, 0xef}},
		{Start: 5, End: uint64(len(content)), Digest: [8]byte{0xfe, 0xed, 0xfa, 0xce}},
	}
	meta := payload.Meta{Name: "example", Version: "1.0.0", Release: 1, Architecture: "x86_64"}

	raw := buildStoneFile(t, content, entries, meta)

	r, err := read.New(bytes.NewReader(raw))
	assert.NilError(t, err)
	assert.Equal(t, r.Header().Version(), header.V1)

	payloads, err := r.Payloads()
	assert.NilError(t, err)
	assert.Equal(t, len(payloads), 3)

	gotMeta, ok := payloads[0].Meta()
	assert.Assert(t, ok)
	assert.Equal(t, gotMeta.Name, "example")

	gotIndex, ok := payloads[1].Index()
	assert.Assert(t, ok)
	assert.Equal(t, len(gotIndex), 2)
	assert.Equal(t, gotIndex[0].Start, uint64(0))
	assert.Equal(t, gotIndex[1].End, uint64(len(content)))

	assert.Assert(t, payloads[2].IsContent())

	var out bytes.Buffer
	err = r.UnpackContent(payloads[2], &out, nil)
	assert.NilError(t, err)
	assert.DeepEqual(t, out.Bytes(), content)
}

func TestUnknownPayloadKindSkipped(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(header.V1Header{NumPayloads: 1}.Encode())
	buf.Write(payload.Header{
		Kind:       payload.Kind(200),
		StoredSize: 4,
	}.Encode())
	buf.Write([]byte{1, 2, 3, 4})

	r, err := read.New(bytes.NewReader(buf.Bytes()))
	assert.NilError(t, err)

	payloads, err := r.Payloads()
	assert.NilError(t, err)
	assert.Equal(t, len(payloads), 0)
}
