package imagery

import (
	"testing"
	"time"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestClosestDate(t *testing.T) {
	candidates := []time.Time{date("2024-01-01"), date("2024-01-10"), date("2024-01-20")}

	got, ok := ClosestDate(candidates, date("2024-01-08"))
	if !ok {
		t.Fatal("expected a candidate")
	}
	if !got.Equal(date("2024-01-10")) {
		t.Fatalf("closest date = %s, want 2024-01-10", got.Format("2006-01-02"))
	}
}

func TestClosestDateTieKeepsFirst(t *testing.T) {
	// Both candidates are exactly one day away; the scan must keep the one
	// seen first.
	candidates := []time.Time{date("2024-01-09"), date("2024-01-07")}

	got, ok := ClosestDate(candidates, date("2024-01-08"))
	if !ok {
		t.Fatal("expected a candidate")
	}
	if !got.Equal(date("2024-01-09")) {
		t.Fatalf("tie-break chose %s, want first candidate 2024-01-09", got.Format("2006-01-02"))
	}
}

func TestClosestDateEmpty(t *testing.T) {
	if _, ok := ClosestDate(nil, date("2024-01-08")); ok {
		t.Fatal("expected no candidate for empty input")
	}
}

func TestFilterScenesByCloudCover(t *testing.T) {
	cc := func(v float64) *float64 { return &v }
	scenes := []Scene{
		{ID: "a", CloudCover: cc(10)},
		{ID: "b", CloudCover: cc(50)},
		{ID: "c", CloudCover: cc(90)},
	}

	filtered := FilterScenesByCloudCover(scenes, 40)
	if len(filtered) != 1 || filtered[0].ID != "a" {
		t.Fatalf("threshold 40: got %v, want only scene a", filtered)
	}

	// A stricter threshold excludes everything: distinct from the catalog
	// returning no scenes at all, which callers report separately.
	if got := FilterScenesByCloudCover(scenes, 5); len(got) != 0 {
		t.Fatalf("threshold 5: got %v, want empty", got)
	}

	// Missing cloud cover passes through.
	withUnknown := append(scenes, Scene{ID: "d"})
	filtered = FilterScenesByCloudCover(withUnknown, 5)
	if len(filtered) != 1 || filtered[0].ID != "d" {
		t.Fatalf("unknown cloud cover should pass the filter, got %v", filtered)
	}
}

func TestClosestScene(t *testing.T) {
	ts := func(s string) time.Time {
		v, err := time.Parse(time.RFC3339, s)
		if err != nil {
			panic(err)
		}
		return v
	}
	scenes := []Scene{
		{ID: "early", AcquisitionTime: ts("2024-01-05T10:00:00Z")},
		{ID: "near", AcquisitionTime: ts("2024-01-08T22:00:00Z")},
		{ID: "late", AcquisitionTime: ts("2024-01-12T10:00:00Z")},
	}

	got, ok := ClosestScene(scenes, ts("2024-01-08T12:00:00Z"))
	if !ok {
		t.Fatal("expected a scene")
	}
	if got.ID != "near" {
		t.Fatalf("closest scene = %s, want near", got.ID)
	}
}

func TestSortedUniqueDates(t *testing.T) {
	in := []time.Time{
		date("2024-03-05").Add(13 * time.Hour),
		date("2024-03-01"),
		date("2024-03-05"),
		date("2024-03-03"),
	}

	got := SortedUniqueDates(in)
	want := []time.Time{date("2024-03-01"), date("2024-03-03"), date("2024-03-05")}
	if len(got) != len(want) {
		t.Fatalf("got %d dates, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("position %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestWithinWindow(t *testing.T) {
	target := date("2024-01-15")
	in := []time.Time{
		date("2024-01-07"), // one day outside
		date("2024-01-08"), // window edge, inclusive
		date("2024-01-15"),
		date("2024-01-22"), // window edge, inclusive
		date("2024-01-23"), // outside
	}

	got := WithinWindow(in, target)
	if len(got) != 3 {
		t.Fatalf("got %d dates in window, want 3: %v", len(got), got)
	}
}
