// Package histlog serializes histograms to a compact textual form and
// renders percentile distributions for human or CSV consumption.
package histlog

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// Compression algorithm names accepted by NewCompressor and Decompress.
const (
	CompressionNone   = "none"
	CompressionGzip   = "gzip"
	CompressionZstd   = "zstd"
	CompressionZlib   = "zlib"
	CompressionSnappy = "snappy"
)

// codec bundles both transform directions and the transport metadata for
// one algorithm.
type codec struct {
	contentEncoding string
	compress        func(c *Compressor, data []byte) ([]byte, error)
	decompress      func(data []byte) ([]byte, error)
}

var codecs = map[string]codec{
	CompressionNone: {
		compress:   func(_ *Compressor, data []byte) ([]byte, error) { return data, nil },
		decompress: func(data []byte) ([]byte, error) { return data, nil },
	},
	CompressionGzip: {
		contentEncoding: "gzip",
		compress: func(_ *Compressor, data []byte) ([]byte, error) {
			return compressStream(data, func(w io.Writer) io.WriteCloser { return gzip.NewWriter(w) })
		},
		decompress: func(data []byte) ([]byte, error) {
			return decompressStream(data, func(r io.Reader) (io.ReadCloser, error) {
				return gzip.NewReader(r)
			})
		},
	},
	CompressionZlib: {
		contentEncoding: "deflate",
		compress: func(_ *Compressor, data []byte) ([]byte, error) {
			return compressStream(data, func(w io.Writer) io.WriteCloser { return zlib.NewWriter(w) })
		},
		decompress: func(data []byte) ([]byte, error) {
			return decompressStream(data, zlib.NewReader)
		},
	},
	CompressionSnappy: {
		contentEncoding: "snappy",
		compress: func(_ *Compressor, data []byte) ([]byte, error) {
			return snappy.Encode(nil, data), nil
		},
		decompress: func(data []byte) ([]byte, error) {
			return snappy.Decode(nil, data)
		},
	},
	CompressionZstd: {
		contentEncoding: "zstd",
		compress: func(c *Compressor, data []byte) ([]byte, error) {
			return c.encoder.EncodeAll(data, make([]byte, 0, len(data))), nil
		},
		decompress: func(data []byte) ([]byte, error) {
			decoder, err := zstd.NewReader(bytes.NewReader(data))
			if err != nil {
				return nil, fmt.Errorf("zstd reader: %w", err)
			}
			defer decoder.Close()

			return io.ReadAll(decoder)
		},
	},
}

// Compressor compresses snapshot payloads using a fixed algorithm.
type Compressor struct {
	algorithm string
	codec     codec
	encoder   *zstd.Encoder
}

// NewCompressor creates a new Compressor for the specified algorithm. An
// empty algorithm selects zlib, the snapshot codec default.
func NewCompressor(algorithm string) (*Compressor, error) {
	if algorithm == "" {
		algorithm = CompressionZlib
	}

	cd, ok := codecs[algorithm]
	if !ok {
		return nil, fmt.Errorf("unsupported compression algorithm: %s", algorithm)
	}

	c := &Compressor{algorithm: algorithm, codec: cd}

	// The zstd encoder is expensive to create, so it is built once here
	// and reused for every Compress call.
	if algorithm == CompressionZstd {
		encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("creating zstd encoder: %w", err)
		}

		c.encoder = encoder
	}

	return c, nil
}

// Algorithm returns the configured algorithm name.
func (c *Compressor) Algorithm() string {
	return c.algorithm
}

// Compress compresses the data using the configured algorithm.
func (c *Compressor) Compress(data []byte) ([]byte, error) {
	return c.codec.compress(c, data)
}

// ContentEncoding returns the Content-Encoding header value for the
// algorithm, or empty when the payload is sent uncompressed.
func (c *Compressor) ContentEncoding() string {
	return c.codec.contentEncoding
}

// Close closes the compressor and releases resources.
func (c *Compressor) Close() error {
	if c.encoder != nil {
		return c.encoder.Close()
	}

	return nil
}

// Decompress reverses Compress for the given algorithm. An empty algorithm
// means the data is uncompressed.
func Decompress(algorithm string, data []byte) ([]byte, error) {
	if algorithm == "" {
		algorithm = CompressionNone
	}

	cd, ok := codecs[algorithm]
	if !ok {
		return nil, fmt.Errorf("unsupported compression algorithm: %s", algorithm)
	}

	return cd.decompress(data)
}

// compressStream runs data through a streaming compressor built by wrap.
func compressStream(data []byte, wrap func(io.Writer) io.WriteCloser) ([]byte, error) {
	var buf bytes.Buffer

	w := wrap(&buf)

	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("compress write: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress close: %w", err)
	}

	return buf.Bytes(), nil
}

// decompressStream runs data through a streaming decompressor built by wrap.
func decompressStream(data []byte, wrap func(io.Reader) (io.ReadCloser, error)) ([]byte, error) {
	r, err := wrap(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decompress reader: %w", err)
	}
	defer r.Close()

	return io.ReadAll(r)
}
