// Package hdrgram implements a High Dynamic Range histogram: a fixed-memory
// structure that records integer samples across a wide dynamic range (such
// as 1ns to 1h latencies) while preserving a configured number of
// significant decimal figures for every recorded value.
//
// Recording is lock-free and safe for concurrent use. Queries and iterators
// may run concurrently with recorders but see a weakly-consistent snapshot:
// the total count is captured on entry and may skew slightly against the
// per-cell counts scanned afterwards. Reset, Close and the merge operations
// are not safe against concurrent recorders; callers must exclude them
// externally.
package hdrgram

import (
	"fmt"
	"math"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/cpu"
)

// Histogram records int64 samples into power-of-two buckets of uniform
// sub-buckets. The geometry is fixed at construction; only the counters and
// the min/max/total bookkeeping mutate afterwards.
type Histogram struct {
	cfg                    BucketConfig
	normalizingIndexOffset int32
	conversionRatio        float64
	alloc                  Allocator
	counts                 []int64

	// The hot scalars live on their own cache lines so contended recording
	// does not false-share with the read-mostly geometry or with each other.
	_          cpu.CacheLinePad
	totalCount atomic.Int64
	_          cpu.CacheLinePad
	minValue   atomic.Int64
	_          cpu.CacheLinePad
	maxValue   atomic.Int64
	_          cpu.CacheLinePad
}

// New returns a histogram tracking values in [lowest, highest] with the
// given number of significant decimal figures. lowest must be >= 1, sigfigs
// in [1,5] and highest >= 2*lowest.
func New(lowest, highest int64, sigfigs int) (*Histogram, error) {
	return NewWithAllocator(lowest, highest, sigfigs, nil)
}

// NewWithAllocator is New with a caller-supplied counts allocator. A nil
// alloc uses the default AlignedAllocator.
func NewWithAllocator(lowest, highest int64, sigfigs int, alloc Allocator) (*Histogram, error) {
	cfg, err := CalculateBucketConfig(lowest, highest, sigfigs)
	if err != nil {
		return nil, err
	}

	return newFromConfig(cfg, alloc)
}

// NewFromConfig builds a histogram from a previously calculated bucket
// configuration.
func NewFromConfig(cfg BucketConfig) (*Histogram, error) {
	return newFromConfig(cfg, nil)
}

// Alloc returns a histogram tracking [1, highest].
//
// Deprecated: Use New instead.
func Alloc(highest int64, sigfigs int) (*Histogram, error) {
	return New(1, highest, sigfigs)
}

func newFromConfig(cfg BucketConfig, alloc Allocator) (*Histogram, error) {
	if cfg.countsLen <= 0 {
		return nil, fmt.Errorf("bucket config has no counts cells: %w", ErrHighestTrackableValue)
	}

	if alloc == nil {
		alloc = AlignedAllocator{}
	}

	counts, err := alloc.AllocCounts(int(cfg.countsLen))
	if err != nil {
		return nil, fmt.Errorf("allocating counts array: %w", err)
	}

	h := &Histogram{
		cfg:             cfg,
		conversionRatio: 1.0,
		alloc:           alloc,
		counts:          counts,
	}
	h.minValue.Store(math.MaxInt64)

	return h, nil
}

// Close releases the counts array through the histogram's allocator. The
// histogram must not be used afterwards.
func (h *Histogram) Close() {
	if h.counts != nil {
		h.alloc.FreeCounts(h.counts)
		h.counts = nil
	}
}

// Reset zeroes every counter and restores the empty-histogram bookkeeping.
// The geometry is preserved. Not safe against concurrent recorders.
func (h *Histogram) Reset() {
	for i := range h.counts {
		atomic.StoreInt64(&h.counts[i], 0)
	}

	h.totalCount.Store(0)
	h.minValue.Store(math.MaxInt64)
	h.maxValue.Store(0)
}

// MemorySize returns the memory footprint of the histogram in bytes.
func (h *Histogram) MemorySize() int {
	return int(unsafe.Sizeof(*h)) + len(h.counts)*8
}

// TotalCount returns the number of samples recorded so far.
func (h *Histogram) TotalCount() int64 {
	return h.totalCount.Load()
}

// LowestTrackableValue returns the lower bound of the tracked range.
func (h *Histogram) LowestTrackableValue() int64 {
	return h.cfg.LowestTrackableValue
}

// HighestTrackableValue returns the upper bound of the tracked range.
func (h *Histogram) HighestTrackableValue() int64 {
	return h.cfg.HighestTrackableValue
}

// SignificantFigures returns the configured decimal precision.
func (h *Histogram) SignificantFigures() int32 {
	return h.cfg.SignificantFigures
}

// Config returns a copy of the histogram's bucket configuration.
func (h *Histogram) Config() BucketConfig {
	return h.cfg
}

// CountsLen returns the number of counter cells.
func (h *Histogram) CountsLen() int {
	return int(h.cfg.countsLen)
}

// BucketCount returns the number of power-of-two buckets.
func (h *Histogram) BucketCount() int32 {
	return h.cfg.bucketCount
}

// SubBucketCount returns the number of sub-buckets per bucket.
func (h *Histogram) SubBucketCount() int32 {
	return h.cfg.subBucketCount
}

// NormalizingIndexOffset returns the ring-shift offset applied when mapping
// values to counts cells.
func (h *Histogram) NormalizingIndexOffset() int32 {
	return h.normalizingIndexOffset
}

// SetNormalizingIndexOffset sets the ring-shift offset. Used by shifted
// histograms; not safe against concurrent recorders.
func (h *Histogram) SetNormalizingIndexOffset(offset int32) {
	h.normalizingIndexOffset = offset
}

// ConversionRatio returns the multiplicative factor external consumers apply
// to values on output. The core never applies it.
func (h *Histogram) ConversionRatio() float64 {
	return h.conversionRatio
}

// SetConversionRatio sets the output conversion ratio.
func (h *Histogram) SetConversionRatio(ratio float64) {
	h.conversionRatio = ratio
}

// SetCountAtIndex overwrites the counter at the given cell. Intended for
// serializers that reconstruct a histogram from stored counts; callers must
// finish with ResetInternalCounters to rebuild the aggregate bookkeeping.
func (h *Histogram) SetCountAtIndex(index int32, count int64) error {
	if index < 0 || index >= h.cfg.countsLen {
		return fmt.Errorf("counts index %d out of range [0,%d)", index, h.cfg.countsLen)
	}

	if count < 0 {
		return fmt.Errorf("negative count %d", count)
	}

	atomic.StoreInt64(&h.counts[index], count)

	return nil
}

// ResetInternalCounters recomputes totalCount and the min/max snapshots from
// the raw counts array. Used after counts have been written directly.
func (h *Histogram) ResetInternalCounters() {
	var (
		minNonZeroIndex = int32(-1)
		maxIndex        = int32(-1)
		observedTotal   int64
	)

	for i := int32(0); i < h.cfg.countsLen; i++ {
		count := atomic.LoadInt64(&h.counts[i])
		if count > 0 {
			observedTotal += count
			maxIndex = i

			if minNonZeroIndex == -1 && i != 0 {
				minNonZeroIndex = i
			}
		}
	}

	if maxIndex >= 0 {
		h.maxValue.Store(h.HighestEquivalentValue(h.ValueAtIndex(maxIndex)))
	} else {
		h.maxValue.Store(0)
	}

	if minNonZeroIndex >= 0 {
		h.minValue.Store(h.ValueAtIndex(minNonZeroIndex))
	} else {
		h.minValue.Store(math.MaxInt64)
	}

	h.totalCount.Store(observedTotal)
}
