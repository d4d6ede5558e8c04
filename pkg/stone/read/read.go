// Package read implements the streaming stone container decoder:
// StoneReader. It validates the envelope, walks the sequence of payload
// headers, materializes everything except Content bodies, and offers
// UnpackContent to stream a Content payload's decompressed bytes into an
// arbitrary sink without ever holding the whole thing in memory.
package read

import (
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"boulder/internal/pkg/buildlog"
	"boulder/pkg/stone/header"
	"boulder/pkg/stone/payload"
)

// ErrTruncated is returned when a payload header is cut off mid-stream.
var ErrTruncated = errors.New("stone: truncated stream")

// Payload is one decoded section of a stone container. Body is nil for
// Kind == payload.KindContent; use the reader's UnpackContent instead of
// reading Body for content sections, matching spec.md §4.2's "the
// Content payload is NOT materialized into memory".
type Payload struct {
	Header payload.Header
	Body   any // one of []payload.IndexEntry, payload.Meta, []payload.LayoutEntry, payload.Attributes

	// offset/length of the (possibly compressed) body within the
	// underlying reader, recorded so UnpackContent can seek straight to
	// it without re-walking the payload sequence.
	offset int64
	length int64
}

// Index returns the decoded index entries if this is an Index payload.
func (p Payload) Index() ([]payload.IndexEntry, bool) {
	entries, ok := p.Body.([]payload.IndexEntry)
	return entries, ok
}

// Meta returns the decoded metadata if this is a Meta payload.
func (p Payload) Meta() (payload.Meta, bool) {
	meta, ok := p.Body.(payload.Meta)
	return meta, ok
}

// Layout returns the decoded layout entries if this is a Layout payload.
func (p Payload) Layout() ([]payload.LayoutEntry, bool) {
	entries, ok := p.Body.([]payload.LayoutEntry)
	return entries, ok
}

// Attributes returns the decoded attribute map if this is an Attributes payload.
func (p Payload) Attributes() (payload.Attributes, bool) {
	attrs, ok := p.Body.(payload.Attributes)
	return attrs, ok
}

// IsContent reports whether this payload is the (unmaterialized) Content section.
func (p Payload) IsContent() bool {
	return p.Header.Kind == payload.KindContent
}

// Reader decodes a stone container from a ReaderAt (so Content payloads
// can be streamed by seeking back to their recorded offset).
type Reader struct {
	ra     io.ReaderAt
	header header.Header
}

// New validates the envelope at the start of ra and returns a Reader
// positioned to decode the payload sequence that follows.
func New(ra io.ReaderAt) (*Reader, error) {
	h, err := header.Decode(io.NewSectionReader(ra, 0, 32))
	if err != nil {
		return nil, fmt.Errorf("stone header: %w", err)
	}
	return &Reader{ra: ra, header: h}, nil
}

// Header returns the decoded container envelope.
func (r *Reader) Header() header.Header {
	return r.header
}

// Payloads walks and materializes the full payload sequence. Content
// payload bodies are not read into memory; only their header and
// on-disk location are recorded.
func (r *Reader) Payloads() ([]Payload, error) {
	var out []Payload

	offset := int64(32) // past the agnostic envelope
	for {
		hdr, err := payload.DecodeHeader(io.NewSectionReader(r.ra, offset, 26))
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("payload header at offset %d: %w", offset, ErrTruncated)
		}
		bodyOffset := offset + 26

		size, err := toInt(hdr.StoredSize)
		if err != nil {
			return nil, fmt.Errorf("payload at offset %d: %w", offset, err)
		}

		if hdr.Kind == payload.KindContent {
			out = append(out, Payload{
				Header: hdr,
				offset: bodyOffset,
				length: int64(hdr.StoredSize),
			})
			offset = bodyOffset + int64(size)
			continue
		}

		raw := make([]byte, size)
		if _, err := io.ReadFull(io.NewSectionReader(r.ra, bodyOffset, int64(size)), raw); err != nil {
			return nil, fmt.Errorf("payload body at offset %d: %w", bodyOffset, err)
		}

		decompressed, err := decompress(hdr.Compression, raw)
		if err != nil {
			return nil, fmt.Errorf("payload body at offset %d: %w", bodyOffset, err)
		}

		body, err := payload.Decode(hdr.Kind, decompressed)
		if err != nil {
			var unknown *payload.ErrUnknownKind
			if asUnknownKind(err, &unknown) {
				// Unknown kind but stored_size is known: skip with a warning.
				buildlog.Warningf("stone: skipping payload of unknown kind %d at offset %d", uint8(unknown.Kind), offset)
				offset = bodyOffset + int64(size)
				continue
			}
			return nil, fmt.Errorf("payload body at offset %d: %w", bodyOffset, err)
		}

		out = append(out, Payload{Header: hdr, Body: body})
		offset = bodyOffset + int64(size)
	}

	return out, nil
}

func asUnknownKind(err error, target **payload.ErrUnknownKind) bool {
	unknown, ok := err.(*payload.ErrUnknownKind)
	if ok {
		*target = unknown
	}
	return ok
}

// UnpackContent streams the decompressed bytes of a Content payload
// (obtained from Payloads) into w, reporting the running byte count
// after each chunk written.
func (r *Reader) UnpackContent(p Payload, w io.Writer, onProgress func(completed, total uint64)) error {
	if !p.IsContent() {
		return fmt.Errorf("stone: payload is not a content section")
	}

	section := io.NewSectionReader(r.ra, p.offset, p.length)

	var src io.Reader
	switch p.Header.Compression {
	case payload.CompressionNone:
		src = section
	case payload.CompressionXz:
		xzReader, err := xz.NewReader(section)
		if err != nil {
			return fmt.Errorf("stone: xz decompress: %w", err)
		}
		src = xzReader
	case payload.CompressionZstd:
		zstdReader, err := zstd.NewReader(section)
		if err != nil {
			return fmt.Errorf("stone: zstd decompress: %w", err)
		}
		defer zstdReader.Close()
		src = zstdReader
	default:
		return fmt.Errorf("stone: unsupported compression: %d", p.Header.Compression)
	}

	var completed uint64
	buf := make([]byte, 256*1024)
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return fmt.Errorf("stone: writing content: %w", err)
			}
			completed += uint64(n)
			if onProgress != nil {
				onProgress(completed, p.Header.PlainSize)
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("stone: reading content: %w", readErr)
		}
	}
}

func decompress(c payload.Compression, raw []byte) ([]byte, error) {
	switch c {
	case payload.CompressionNone:
		return raw, nil
	case payload.CompressionXz:
		xzReader, err := xz.NewReader(newByteReader(raw))
		if err != nil {
			return nil, err
		}
		return io.ReadAll(xzReader)
	case payload.CompressionZstd:
		zstdReader, err := zstd.NewReader(newByteReader(raw))
		if err != nil {
			return nil, err
		}
		defer zstdReader.Close()
		return io.ReadAll(zstdReader)
	default:
		return nil, fmt.Errorf("unsupported compression: %d", c)
	}
}
