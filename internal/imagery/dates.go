package imagery

import (
	"sort"
	"time"
)

// AvailabilityWindowDays is the search horizon, in days, on each side of the
// requested date when looking for alternative acquisitions.
const AvailabilityWindowDays = 7

// Window returns the inclusive ±7-day availability window around a date.
func Window(date time.Time) (from, to time.Time) {
	d := date.UTC()
	return d.AddDate(0, 0, -AvailabilityWindowDays), d.AddDate(0, 0, AvailabilityWindowDays)
}

// ClosestDate returns the candidate minimizing absolute time distance to
// target. Ties keep the earlier-scanned candidate (strict diff < minDiff),
// so the input ordering is the tie-breaker. The second return is false for
// an empty candidate set.
func ClosestDate(candidates []time.Time, target time.Time) (time.Time, bool) {
	if len(candidates) == 0 {
		return time.Time{}, false
	}

	best := candidates[0]
	minDiff := absDuration(candidates[0].Sub(target))
	for _, c := range candidates[1:] {
		diff := absDuration(c.Sub(target))
		if diff < minDiff {
			minDiff = diff
			best = c
		}
	}
	return best, true
}

// ClosestScene selects, from an already-filtered scene set, the scene whose
// acquisition timestamp minimizes absolute distance to target. Same
// first-wins tie-breaking as ClosestDate.
func ClosestScene(scenes []Scene, target time.Time) (Scene, bool) {
	if len(scenes) == 0 {
		return Scene{}, false
	}

	best := scenes[0]
	minDiff := absDuration(scenes[0].AcquisitionTime.Sub(target))
	for _, s := range scenes[1:] {
		diff := absDuration(s.AcquisitionTime.Sub(target))
		if diff < minDiff {
			minDiff = diff
			best = s
		}
	}
	return best, true
}

// FilterScenesByCloudCover keeps scenes at or below the given cloud cover
// percentage. Scenes without a reported cloud cover pass the filter; the
// filter only acts on known values.
func FilterScenesByCloudCover(scenes []Scene, maxPercent float64) []Scene {
	var out []Scene
	for _, s := range scenes {
		if s.CloudCover != nil && *s.CloudCover > maxPercent {
			continue
		}
		out = append(out, s)
	}
	return out
}

// SortedUniqueDates normalizes a date list to midnight UTC, deduplicates,
// and sorts chronologically — the shape CandidateDates must have.
func SortedUniqueDates(dates []time.Time) []time.Time {
	seen := make(map[time.Time]struct{}, len(dates))
	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		day := DayOf(d)
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		out = append(out, day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// WithinWindow keeps dates inside the inclusive ±7-day window around target.
func WithinWindow(dates []time.Time, target time.Time) []time.Time {
	from, to := Window(target)
	var out []time.Time
	for _, d := range dates {
		if d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// SameDay reports whether two instants fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	return DayOf(a).Equal(DayOf(b))
}

// DayOf truncates an instant to midnight UTC.
func DayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
