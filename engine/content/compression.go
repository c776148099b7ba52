package content

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression methods encoded in the low two bits of the header flags.
const (
	CompressionNone byte = 0
	CompressionLZ4  byte = 1
	CompressionZstd byte = 2
	CompressionZlib byte = 3
)

// decompressPayload inflates a compressed payload to exactly rawSize
// bytes. A size mismatch means a corrupt stream and fails the load.
func decompressPayload(method byte, payload []byte, rawSize uint32) ([]byte, error) {
	switch method {
	case CompressionLZ4:
		out := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompression failed: %w", err)
		}
		if n != int(rawSize) {
			return nil, fmt.Errorf("lz4 payload inflated to %d bytes, expected %d", n, rawSize)
		}
		return out, nil

	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decoder init failed: %w", err)
		}
		defer dec.Close()
		out, err := dec.DecodeAll(payload, make([]byte, 0, rawSize))
		if err != nil {
			return nil, fmt.Errorf("zstd decompression failed: %w", err)
		}
		if len(out) != int(rawSize) {
			return nil, fmt.Errorf("zstd payload inflated to %d bytes, expected %d", len(out), rawSize)
		}
		return out, nil

	case CompressionZlib:
		zr, err := zlib.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("zlib decompression failed: %w", err)
		}
		defer zr.Close()
		out := make([]byte, 0, rawSize)
		buf := bytes.NewBuffer(out)
		if _, err := io.Copy(buf, zr); err != nil {
			return nil, fmt.Errorf("zlib decompression failed: %w", err)
		}
		if buf.Len() != int(rawSize) {
			return nil, fmt.Errorf("zlib payload inflated to %d bytes, expected %d", buf.Len(), rawSize)
		}
		return buf.Bytes(), nil

	default:
		return nil, fmt.Errorf("unknown compression method %d", method)
	}
}

// compressPayload deflates a raw payload with the given method. Used by
// the encoding side of the pipeline and by tests building streams.
func compressPayload(method byte, raw []byte) ([]byte, error) {
	switch method {
	case CompressionNone:
		return raw, nil

	case CompressionLZ4:
		out := make([]byte, lz4.CompressBlockBound(len(raw)))
		var c lz4.Compressor
		n, err := c.CompressBlock(raw, out)
		if err != nil {
			return nil, fmt.Errorf("lz4 compression failed: %w", err)
		}
		if n == 0 {
			// Incompressible input: the block codec has no stored-block
			// form, so fall back to an uncompressed stream instead.
			return nil, fmt.Errorf("lz4 compression produced no gain")
		}
		return out[:n], nil

	case CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("zstd encoder init failed: %w", err)
		}
		out := enc.EncodeAll(raw, nil)
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("zstd compression failed: %w", err)
		}
		return out, nil

	case CompressionZlib:
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write(raw); err != nil {
			return nil, fmt.Errorf("zlib compression failed: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("zlib compression failed: %w", err)
		}
		return buf.Bytes(), nil

	default:
		return nil, fmt.Errorf("unknown compression method %d", method)
	}
}
