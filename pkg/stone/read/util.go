package read

import (
	"bytes"
	"io"

	"github.com/ccoveille/go-safecast"
)

func toInt(v uint64) (int, error) {
	return safecast.ToInt(v)
}

func newByteReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}
