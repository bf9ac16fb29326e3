package hdrgram

// Add records every sample of src into h and returns the number of samples
// dropped because they fall outside h's trackable range. The merge is not
// atomic across src; quiesce src first for a consistent copy.
func (h *Histogram) Add(src *Histogram) int64 {
	var dropped int64

	it := src.RecordedIterator()
	for it.Next() {
		if !h.RecordValues(it.Value(), it.Count()) {
			dropped += it.Count()
		}
	}

	return dropped
}

// AddWhileCorrectingForCoordinatedOmission merges src into h applying the
// coordinated-omission backfill to every recorded value, as if each had been
// recorded with RecordCorrectedValues. Returns the number of dropped
// samples.
func (h *Histogram) AddWhileCorrectingForCoordinatedOmission(src *Histogram, expectedInterval int64) int64 {
	var dropped int64

	it := src.RecordedIterator()
	for it.Next() {
		if !h.RecordCorrectedValues(it.Value(), it.Count(), expectedInterval) {
			dropped += it.Count()
		}
	}

	return dropped
}
