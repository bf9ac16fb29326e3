package hdrgram

// RecordValue records a single sample. It returns false, leaving the
// histogram untouched, when value is negative or above the highest trackable
// value. Values below the lowest trackable value are accepted and land in
// the first cell; the recorded value is rounded down to its lowest
// equivalent value.
func (h *Histogram) RecordValue(value int64) bool {
	return h.RecordValues(value, 1)
}

// RecordValues records count samples of value.
func (h *Histogram) RecordValues(value, count int64) bool {
	if value < 0 || value > h.cfg.HighestTrackableValue {
		return false
	}

	index := h.countsIndexFor(value)
	if index < 0 || index >= h.cfg.countsLen {
		return false
	}

	h.addToCount(index, count)
	h.totalCount.Add(count)
	h.updateMinMax(value)

	return true
}

// RecordCorrectedValue records value and, when value exceeds
// expectedInterval, backfills the synthetic samples a stalled synchronous
// client would otherwise have omitted (coordinated omission).
func (h *Histogram) RecordCorrectedValue(value, expectedInterval int64) bool {
	return h.RecordCorrectedValues(value, 1, expectedInterval)
}

// RecordCorrectedValues is RecordCorrectedValue for count samples; each
// backfilled value carries the same count.
func (h *Histogram) RecordCorrectedValues(value, count, expectedInterval int64) bool {
	if !h.RecordValues(value, count) {
		return false
	}

	if expectedInterval <= 0 || value <= expectedInterval {
		return true
	}

	for missing := value - expectedInterval; missing >= expectedInterval; missing -= expectedInterval {
		if !h.RecordValues(missing, count) {
			return false
		}
	}

	return true
}

// updateMinMax folds value into the running min/max snapshots. Zero values
// never lower the minimum.
func (h *Histogram) updateMinMax(value int64) {
	if value != 0 {
		for {
			current := h.minValue.Load()
			if value >= current || h.minValue.CompareAndSwap(current, value) {
				break
			}
		}
	}

	for {
		current := h.maxValue.Load()
		if value <= current || h.maxValue.CompareAndSwap(current, value) {
			break
		}
	}
}
