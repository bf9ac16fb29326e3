package histlog

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/ethpandaops/hdrgram"
)

// Textual snapshot framing: "hdrgram:v1:<algorithm>:<base64 payload>". The
// payload is the varint-encoded geometry header followed by one varint per
// counts cell, compressed with the named algorithm.
const (
	encodingPrefix  = "hdrgram"
	encodingVersion = "v1"
	encodingFields  = 4
)

// Encode serializes the histogram to its textual snapshot form using the
// given compression algorithm (empty selects zlib).
func Encode(h *hdrgram.Histogram, algorithm string) (string, error) {
	c, err := NewCompressor(algorithm)
	if err != nil {
		return "", err
	}
	defer c.Close()

	countsLen := h.CountsLen()

	payload := make([]byte, 0, 4*binary.MaxVarintLen64+countsLen)

	var tmp [binary.MaxVarintLen64]byte

	put := func(v int64) {
		n := binary.PutVarint(tmp[:], v)
		payload = append(payload, tmp[:n]...)
	}

	put(h.LowestTrackableValue())
	put(h.HighestTrackableValue())
	put(int64(h.SignificantFigures()))
	put(int64(countsLen))

	for i := 0; i < countsLen; i++ {
		put(h.CountAtIndex(int32(i)))
	}

	compressed, err := c.Compress(payload)
	if err != nil {
		return "", fmt.Errorf("compressing snapshot: %w", err)
	}

	return strings.Join([]string{
		encodingPrefix,
		encodingVersion,
		c.Algorithm(),
		base64.StdEncoding.EncodeToString(compressed),
	}, ":"), nil
}

// Decode reconstructs a histogram from its textual snapshot form. The counts
// are written directly into a freshly constructed histogram and the
// aggregate bookkeeping is rebuilt from them.
func Decode(s string) (*hdrgram.Histogram, error) {
	parts := strings.SplitN(s, ":", encodingFields)
	if len(parts) != encodingFields {
		return nil, fmt.Errorf("malformed snapshot: expected %d fields, got %d", encodingFields, len(parts))
	}

	if parts[0] != encodingPrefix {
		return nil, fmt.Errorf("malformed snapshot: unknown prefix %q", parts[0])
	}

	if parts[1] != encodingVersion {
		return nil, fmt.Errorf("unsupported snapshot version %q", parts[1])
	}

	compressed, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil {
		return nil, fmt.Errorf("decoding snapshot payload: %w", err)
	}

	payload, err := Decompress(parts[2], compressed)
	if err != nil {
		return nil, fmt.Errorf("decompressing snapshot: %w", err)
	}

	get := func() (int64, error) {
		v, n := binary.Varint(payload)
		if n <= 0 {
			return 0, fmt.Errorf("truncated snapshot payload")
		}

		payload = payload[n:]

		return v, nil
	}

	header := make([]int64, 4)
	for i := range header {
		if header[i], err = get(); err != nil {
			return nil, err
		}
	}

	lowest, highest, sigfigs, countsLen := header[0], header[1], header[2], header[3]

	h, err := hdrgram.New(lowest, highest, int(sigfigs))
	if err != nil {
		return nil, fmt.Errorf("rebuilding histogram: %w", err)
	}

	if int(countsLen) != h.CountsLen() {
		return nil, fmt.Errorf("snapshot counts length %d does not match geometry (%d cells)",
			countsLen, h.CountsLen())
	}

	for i := int64(0); i < countsLen; i++ {
		count, err := get()
		if err != nil {
			return nil, err
		}

		if count == 0 {
			continue
		}

		if err := h.SetCountAtIndex(int32(i), count); err != nil {
			return nil, fmt.Errorf("restoring cell %d: %w", i, err)
		}
	}

	h.ResetInternalCounters()

	return h, nil
}
