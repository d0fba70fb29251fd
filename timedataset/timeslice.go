package timedataset

import (
	"fmt"
	"math"
	"time"
)

type TimeSlice []time.Time

func (t TimeSlice) StartTime() time.Time {
	var startTime time.Time
	if len(t) < 1 {
		return startTime
	}
	return t[0]
}

func (t TimeSlice) EndTime() time.Time {
	var lastTime time.Time
	if len(t) < 1 {
		return lastTime
	}
	return t[len(t)-1]
}

// EstimateInterval returns the most common spacing between consecutive points, preferring the
// smaller interval on ties
func (t TimeSlice) EstimateInterval() (time.Duration, error) {
	if len(t) < 2 {
		return 0, ErrCannotInferFreq
	}

	intervals := make(map[time.Duration]int)
	for i := 1; i < len(t); i++ {
		intervals[t[i].Sub(t[i-1])]++
	}

	var maxCnt int
	maxDelta := time.Duration(math.MaxInt64)
	for delta, cnt := range intervals {
		if cnt > maxCnt || (cnt == maxCnt && delta < maxDelta) {
			maxCnt = cnt
			maxDelta = delta
		}
	}
	return maxDelta, nil
}

// EstimateFreq infers the sampling frequency of the time points. The most common interval picks a
// fixed unit; daily points with gaps are tried as business days and 28 to 31 day spacings as months.
func (t TimeSlice) EstimateFreq() (Freq, error) {
	d, err := t.EstimateInterval()
	if err != nil {
		return Freq{}, err
	}
	freq, err := FreqFromDuration(d)
	if err != nil {
		return Freq{}, err
	}
	if t.FollowsFreq(freq) {
		return freq, nil
	}

	var candidates []Freq
	day := 24 * time.Hour
	switch {
	case d == day:
		candidates = []Freq{{Unit: UnitBusinessDay, Multiple: 1}, {Unit: UnitCustomBusinessDay, Multiple: 1}}
	case d >= 28*day && d <= 31*day:
		candidates = []Freq{{Unit: UnitMonth, Multiple: 1}}
	}
	for _, candidate := range candidates {
		if t.FollowsFreq(candidate) {
			return candidate, nil
		}
	}
	return Freq{}, fmt.Errorf("most common interval %s does not fit every point, %w", d, ErrIrregular)
}

// FollowsFreq reports whether every point is one step of freq after the previous one
func (t TimeSlice) FollowsFreq(freq Freq) bool {
	for i := 1; i < len(t); i++ {
		if !freq.Next(t[i-1]).Equal(t[i]) {
			return false
		}
	}
	return true
}
