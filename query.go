package hdrgram

import "math"

// Min returns the minimum recorded value, or 0 when the histogram is empty.
func (h *Histogram) Min() int64 {
	if h.totalCount.Load() == 0 {
		return 0
	}

	value := h.minValue.Load()
	if value == math.MaxInt64 {
		return 0
	}

	return value
}

// Max returns the maximum recorded value, or 0 when the histogram is empty.
func (h *Histogram) Max() int64 {
	return h.maxValue.Load()
}

// CountAtValue returns the number of samples recorded in value's equivalence
// range.
func (h *Histogram) CountAtValue(value int64) int64 {
	index := h.countsIndexFor(value)
	if index < 0 || index >= h.cfg.countsLen {
		return 0
	}

	return h.countAt(index)
}

// CountAtIndex returns the counter at the given cell, or 0 when the index is
// out of range.
func (h *Histogram) CountAtIndex(index int32) int64 {
	if index < 0 || index >= h.cfg.countsLen {
		return 0
	}

	return h.countAt(index)
}

// ValueAtPercentile returns the highest equivalent value of the first cell at
// which the cumulative count reaches the given percentage of the recorded
// samples (rounded up, at least one sample). The percentile is clamped to
// [0,100]; an empty histogram yields 0.
func (h *Histogram) ValueAtPercentile(percentile float64) int64 {
	if percentile < 0 {
		percentile = 0
	} else if percentile > 100 {
		percentile = 100
	}

	total := h.totalCount.Load()
	if total == 0 {
		return 0
	}

	countAtPercentile := int64(math.Ceil((percentile / 100.0) * float64(total)))
	if countAtPercentile < 1 {
		countAtPercentile = 1
	}

	var cumulative int64

	for i := int32(0); i < h.cfg.countsLen; i++ {
		cumulative += h.countAt(i)
		if cumulative >= countAtPercentile {
			return h.HighestEquivalentValue(h.ValueAtIndex(i))
		}
	}

	return 0
}

// Mean returns the approximate arithmetic mean of the recorded values, using
// the midpoint of each cell's equivalence range. Returns 0 when empty.
func (h *Histogram) Mean() float64 {
	total := h.totalCount.Load()
	if total == 0 {
		return 0
	}

	var sum int64

	it := h.Iterator()
	for it.Next() {
		if it.Count() != 0 {
			sum += it.Count() * h.MedianEquivalentValue(it.Value())
		}
	}

	return float64(sum) / float64(total)
}

// StdDev returns the approximate standard deviation of the recorded values.
// Returns 0 when empty.
func (h *Histogram) StdDev() float64 {
	total := h.totalCount.Load()
	if total == 0 {
		return 0
	}

	mean := h.Mean()

	var devSquaredSum float64

	it := h.Iterator()
	for it.Next() {
		if it.Count() != 0 {
			dev := float64(h.MedianEquivalentValue(it.Value())) - mean
			devSquaredSum += dev * dev * float64(it.Count())
		}
	}

	return math.Sqrt(devSquaredSum / float64(total))
}
