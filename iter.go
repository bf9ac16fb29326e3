package hdrgram

import "math"

// Iter is the unified cursor over a histogram's counts. The iteration
// discipline (raw, recorded, linear, logarithmic, percentile) is a variant
// chosen at construction; Next advances the cursor according to that
// discipline and returns false once the iteration is exhausted.
//
// The cursor snapshots the total count when created; samples recorded
// afterwards may or may not be visible to it.
type Iter struct {
	h *Histogram

	countsIndex     int32
	totalCount      int64
	count           int64
	cumulativeCount int64
	value           int64

	lowestEquivalentValue  int64
	highestEquivalentValue int64
	medianEquivalentValue  int64

	valueIteratedFrom int64
	valueIteratedTo   int64

	step stepper
}

// stepper is the per-discipline variant of the cursor.
type stepper interface {
	next(it *Iter) bool
}

func newIter(h *Histogram, step stepper) *Iter {
	return &Iter{
		h:           h,
		countsIndex: -1,
		totalCount:  h.TotalCount(),
		step:        step,
	}
}

// Iterator returns a cursor stepping through every cell (raw discipline).
func (h *Histogram) Iterator() *Iter {
	return newIter(h, allValuesStepper{})
}

// RecordedIterator returns a cursor yielding only cells with a non-zero
// count.
func (h *Histogram) RecordedIterator() *Iter {
	return newIter(h, &recordedStepper{})
}

// LinearIterator returns a cursor emitting one step per fixed-width value
// bucket of the given size.
func (h *Histogram) LinearIterator(valueUnitsPerBucket int64) *Iter {
	s := &linearStepper{
		valueUnitsPerBucket:           valueUnitsPerBucket,
		nextReportingLevel:            valueUnitsPerBucket,
		nextReportingLowestEquivalent: h.LowestEquivalentValue(valueUnitsPerBucket),
	}

	return newIter(h, s)
}

// LogIterator returns a cursor emitting one step per value bucket, with
// bucket bounds growing by logBase from valueUnitsFirstBucket.
func (h *Histogram) LogIterator(valueUnitsFirstBucket int64, logBase float64) *Iter {
	s := &logStepper{
		logBase:                       logBase,
		nextReportingLevel:            valueUnitsFirstBucket,
		nextReportingLowestEquivalent: h.LowestEquivalentValue(valueUnitsFirstBucket),
	}

	return newIter(h, s)
}

// PercentileIterator returns a cursor emitting steps at exponentially
// tightening percentile boundaries; ticksPerHalfDistance controls how many
// steps are emitted per halving of the distance to 100%.
func (h *Histogram) PercentileIterator(ticksPerHalfDistance int32) *Iter {
	return newIter(h, &percentileStepper{ticksPerHalfDistance: ticksPerHalfDistance})
}

// Next advances the cursor one step; it returns false when the iteration is
// exhausted.
func (it *Iter) Next() bool {
	return it.step.next(it)
}

// Count returns the counter at the current cell.
func (it *Iter) Count() int64 { return it.count }

// CumulativeCount returns the sum of the counters up to and including the
// current cell.
func (it *Iter) CumulativeCount() int64 { return it.cumulativeCount }

// TotalCount returns the total-count snapshot taken when the cursor was
// created.
func (it *Iter) TotalCount() int64 { return it.totalCount }

// Value returns the lowest value of the current cell.
func (it *Iter) Value() int64 { return it.value }

// LowestEquivalentValue returns the bottom of the current cell's range.
func (it *Iter) LowestEquivalentValue() int64 { return it.lowestEquivalentValue }

// HighestEquivalentValue returns the top of the current cell's range.
func (it *Iter) HighestEquivalentValue() int64 { return it.highestEquivalentValue }

// MedianEquivalentValue returns the midpoint of the current cell's range.
func (it *Iter) MedianEquivalentValue() int64 { return it.medianEquivalentValue }

// ValueIteratedFrom returns the reporting value of the previous step.
func (it *Iter) ValueIteratedFrom() int64 { return it.valueIteratedFrom }

// ValueIteratedTo returns the reporting value of the current step.
func (it *Iter) ValueIteratedTo() int64 { return it.valueIteratedTo }

// CountAddedThisStep returns the counts aggregated into the current step.
// For the raw discipline it equals Count.
func (it *Iter) CountAddedThisStep() int64 {
	switch s := it.step.(type) {
	case *recordedStepper:
		return s.countAddedThisStep
	case *linearStepper:
		return s.countAddedThisStep
	case *logStepper:
		return s.countAddedThisStep
	default:
		return it.count
	}
}

// Percentile returns the percentile boundary of the current step for the
// percentile discipline, and the running cumulative percentile otherwise.
func (it *Iter) Percentile() float64 {
	if s, ok := it.step.(*percentileStepper); ok {
		return s.percentile
	}

	if it.totalCount == 0 {
		return 0
	}

	return 100.0 * float64(it.cumulativeCount) / float64(it.totalCount)
}

func (it *Iter) hasNext() bool {
	return it.cumulativeCount < it.totalCount
}

// moveNext advances to the next cell and reloads the cursor fields.
func (it *Iter) moveNext() bool {
	it.countsIndex++
	if it.countsIndex >= it.h.cfg.countsLen {
		return false
	}

	it.count = it.h.countAt(it.countsIndex)
	it.cumulativeCount += it.count
	it.value = it.h.ValueAtIndex(it.countsIndex)

	it.lowestEquivalentValue = it.h.LowestEquivalentValue(it.value)
	size := it.h.SizeOfEquivalentValueRange(it.value)
	it.highestEquivalentValue = it.lowestEquivalentValue + size - 1
	it.medianEquivalentValue = it.lowestEquivalentValue + (size >> 1)

	return true
}

func (it *Iter) basicNext() bool {
	if !it.hasNext() || it.countsIndex >= it.h.cfg.countsLen {
		return false
	}

	return it.moveNext()
}

func (it *Iter) updateIteratedValues(newValue int64) {
	it.valueIteratedFrom = it.valueIteratedTo
	it.valueIteratedTo = newValue
}

// nextValueAtLeast reports whether the cursor's current value has reached
// level while cells remain; used by the bucketed disciplines to emit a
// trailing partial bucket.
func (it *Iter) nextValueAtLeast(level int64) bool {
	if it.countsIndex >= it.h.cfg.countsLen {
		return false
	}

	return it.value >= level
}

type allValuesStepper struct{}

func (allValuesStepper) next(it *Iter) bool {
	if !it.basicNext() {
		return false
	}

	it.updateIteratedValues(it.value)

	return true
}

type recordedStepper struct {
	countAddedThisStep int64
}

func (s *recordedStepper) next(it *Iter) bool {
	for it.basicNext() {
		if it.count != 0 {
			it.updateIteratedValues(it.value)
			s.countAddedThisStep = it.count

			return true
		}
	}

	return false
}

type linearStepper struct {
	valueUnitsPerBucket           int64
	countAddedThisStep            int64
	nextReportingLevel            int64
	nextReportingLowestEquivalent int64
}

func (s *linearStepper) next(it *Iter) bool {
	s.countAddedThisStep = 0

	if !it.hasNext() && !it.nextValueAtLeast(s.nextReportingLowestEquivalent) {
		return false
	}

	for {
		if it.value >= s.nextReportingLowestEquivalent {
			it.updateIteratedValues(s.nextReportingLevel)

			s.nextReportingLevel += s.valueUnitsPerBucket
			s.nextReportingLowestEquivalent = it.h.LowestEquivalentValue(s.nextReportingLevel)

			return true
		}

		if !it.moveNext() {
			return true
		}

		s.countAddedThisStep += it.count
	}
}

type logStepper struct {
	logBase                       float64
	countAddedThisStep            int64
	nextReportingLevel            int64
	nextReportingLowestEquivalent int64
}

func (s *logStepper) next(it *Iter) bool {
	s.countAddedThisStep = 0

	if !it.hasNext() && !it.nextValueAtLeast(s.nextReportingLowestEquivalent) {
		return false
	}

	for {
		if it.value >= s.nextReportingLowestEquivalent {
			it.updateIteratedValues(s.nextReportingLevel)

			s.nextReportingLevel = int64(float64(s.nextReportingLevel) * s.logBase)
			s.nextReportingLowestEquivalent = it.h.LowestEquivalentValue(s.nextReportingLevel)

			return true
		}

		if !it.moveNext() {
			return true
		}

		s.countAddedThisStep += it.count
	}
}

type percentileStepper struct {
	seenLastValue         bool
	ticksPerHalfDistance  int32
	percentileToIterateTo float64
	percentile            float64
}

func (s *percentileStepper) next(it *Iter) bool {
	if !it.hasNext() {
		// Emit the last recorded value exactly once at the 100th
		// percentile before finishing; an empty histogram has none.
		if s.seenLastValue || it.totalCount == 0 {
			return false
		}

		s.seenLastValue = true
		s.percentile = 100.0

		return true
	}

	if it.countsIndex == -1 && !it.basicNext() {
		return false
	}

	for {
		currentPercentile := 100.0 * float64(it.cumulativeCount) / float64(it.totalCount)
		if it.count != 0 && s.percentileToIterateTo <= currentPercentile {
			it.updateIteratedValues(it.highestEquivalentValue)

			s.percentile = s.percentileToIterateTo

			// The tick spacing halves each time the remaining distance
			// to 100% halves.
			halfDistance := math.Pow(2, float64(int64(math.Log2(100.0/(100.0-s.percentileToIterateTo)))+1))
			ticks := float64(s.ticksPerHalfDistance) * halfDistance
			s.percentileToIterateTo += 100.0 / ticks

			return true
		}

		if !it.basicNext() {
			return true
		}
	}
}
