package header_test

import (
	"bytes"
	"testing"

	"gotest.tools/v3/assert"

	"boulder/pkg/stone/header"
)

func TestV1RoundTrip(t *testing.T) {
	h := header.V1Header{NumPayloads: 3, FileType: 1}
	encoded := h.Encode()

	assert.DeepEqual(t, encoded[0:4], []byte{0x00, 0x6d, 0x6f, 0x73})
	assert.DeepEqual(t, encoded[28:32], []byte{0x00, 0x00, 0x00, 0x01})

	decoded, err := header.Decode(bytes.NewReader(encoded))
	assert.NilError(t, err)
	assert.Equal(t, decoded.Version(), header.V1)

	v1, ok := decoded.(header.V1Header)
	assert.Assert(t, ok)
	assert.Equal(t, v1.NumPayloads, h.NumPayloads)
	assert.Equal(t, v1.FileType, h.FileType)
}

func TestInvalidMagic(t *testing.T) {
	zeros := make([]byte, 32)
	_, err := header.Decode(bytes.NewReader(zeros))
	assert.ErrorIs(t, err, header.ErrInvalidMagic)
}

func TestUnknownVersion(t *testing.T) {
	buf := make([]byte, 32)
	buf[0], buf[1], buf[2], buf[3] = 0x00, 0x6d, 0x6f, 0x73
	buf[31] = 9

	_, err := header.Decode(bytes.NewReader(buf))
	var unknown *header.ErrUnknownVersion
	assert.Assert(t, err != nil)
	assert.ErrorAs(t, err, &unknown)
	assert.Equal(t, unknown.Version, uint32(9))
}

func TestShortHeader(t *testing.T) {
	_, err := header.Decode(bytes.NewReader(make([]byte, 10)))
	assert.ErrorIs(t, err, header.ErrNotEnoughBytes)
}
