// Package zcodec implements the generic pack/unpack codec used for gump
// payloads. It wraps klauspost/compress/zlib rather than the standard
// library's compress/zlib for its faster encoder and lower-allocation
// decoder.
package zcodec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// Pack compresses src and returns the zlib-framed result.
func Pack(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(src); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("zcodec: compressing payload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("zcodec: closing compressor: %w", err)
	}
	return buf.Bytes(), nil
}

// Unpack decompresses a zlib-framed payload produced by Pack, expanding
// into a buffer pre-sized to expectedSize (the caller generally knows the
// uncompressed length from the packet's own framing).
func Unpack(src []byte, expectedSize int) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("zcodec: opening compressed payload: %w", err)
	}
	defer r.Close()

	out := bytes.NewBuffer(make([]byte, 0, expectedSize))
	if _, err := io.Copy(out, r); err != nil {
		return nil, fmt.Errorf("zcodec: decompressing payload: %w", err)
	}
	return out.Bytes(), nil
}
