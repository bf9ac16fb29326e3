package hdrgram

import (
	"errors"
	"math"
)

// Validation errors returned by CalculateBucketConfig and the constructors.
var (
	ErrLowestTrackableValue  = errors.New("lowest trackable value must be >= 1")
	ErrSignificantFigures    = errors.New("significant figures must be between 1 and 5")
	ErrHighestTrackableValue = errors.New("highest trackable value must be >= 2 * lowest trackable value")
	ErrIndexMagnitude        = errors.New("lowest trackable value is too large for the requested precision")
)

// BucketConfig is the derived bucket geometry for a histogram. It is computed
// once by CalculateBucketConfig and immutable afterwards: the value range is
// partitioned into power-of-two buckets, each split into subBucketCount
// uniform sub-buckets wide enough to guarantee the requested number of
// significant figures.
type BucketConfig struct {
	LowestTrackableValue  int64
	HighestTrackableValue int64
	SignificantFigures    int32

	unitMagnitude               int32
	subBucketHalfCountMagnitude int32
	subBucketHalfCount          int32
	subBucketMask               int64
	subBucketCount              int32
	bucketCount                 int32
	countsLen                   int32
}

// CalculateBucketConfig derives the sub-bucket geometry for the given value
// range and precision. lowest must be >= 1, sigfigs must be in [1,5] and
// highest must be at least twice lowest.
func CalculateBucketConfig(lowest, highest int64, sigfigs int) (BucketConfig, error) {
	var cfg BucketConfig

	if lowest < 1 {
		return cfg, ErrLowestTrackableValue
	}

	if sigfigs < 1 || sigfigs > 5 {
		return cfg, ErrSignificantFigures
	}

	if highest < 2*lowest {
		return cfg, ErrHighestTrackableValue
	}

	cfg.LowestTrackableValue = lowest
	cfg.HighestTrackableValue = highest
	cfg.SignificantFigures = int32(sigfigs)

	// Maintaining sigfigs decimal digits requires single-unit resolution up
	// to 2*10^sigfigs, rounded up to a power of two for direct indexing.
	largestSingleUnitResolution := 2 * math.Pow10(sigfigs)
	subBucketCountMagnitude := int32(math.Ceil(math.Log2(largestSingleUnitResolution)))

	if subBucketCountMagnitude > 1 {
		cfg.subBucketHalfCountMagnitude = subBucketCountMagnitude - 1
	} else {
		cfg.subBucketHalfCountMagnitude = 0
	}

	cfg.unitMagnitude = int32(math.Floor(math.Log2(float64(lowest))))

	// Index math shifts by unitMagnitude + subBucketHalfCountMagnitude;
	// beyond 61 bits the sub-bucket mask would overflow int64.
	if cfg.unitMagnitude+cfg.subBucketHalfCountMagnitude > 61 {
		return cfg, ErrIndexMagnitude
	}

	cfg.subBucketCount = int32(1) << uint(cfg.subBucketHalfCountMagnitude+1)
	cfg.subBucketHalfCount = cfg.subBucketCount / 2
	cfg.subBucketMask = int64(cfg.subBucketCount-1) << uint(cfg.unitMagnitude)

	cfg.bucketCount = bucketsNeededToCoverValue(highest, cfg.subBucketCount, cfg.unitMagnitude)
	cfg.countsLen = (cfg.bucketCount + 1) * cfg.subBucketHalfCount

	return cfg, nil
}

// CountsLen returns the number of counter cells the geometry requires.
func (c BucketConfig) CountsLen() int {
	return int(c.countsLen)
}

// bucketsNeededToCoverValue returns how many power-of-two buckets are needed
// so the top bucket covers value.
func bucketsNeededToCoverValue(value int64, subBucketCount, unitMagnitude int32) int32 {
	smallestUntrackable := int64(subBucketCount) << uint(unitMagnitude)
	bucketsNeeded := int32(1)

	for smallestUntrackable <= value {
		if smallestUntrackable > math.MaxInt64/2 {
			// The next shift would overflow, so that bucket is the last.
			return bucketsNeeded + 1
		}

		smallestUntrackable <<= 1
		bucketsNeeded++
	}

	return bucketsNeeded
}
