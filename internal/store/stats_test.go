package store

import (
	"context"
	"math"
	"testing"
	"time"
)

func TestStats(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
	s := openTestStore(t, nil, clock)
	ctx := context.Background()

	mustAdd(t, s, Thought{Text: "ancient", Label: "work"})
	clock.Advance(40 * 24 * time.Hour)
	since := clock.Now().Add(-time.Hour)

	a := mustAdd(t, s, Thought{Text: "a", Label: "work"})
	b := mustAdd(t, s, Thought{Text: "b", Label: "work"})
	mustAdd(t, s, Thought{Text: "c", Label: "home"})
	mustAdd(t, s, Thought{Text: "d"})

	clock.Advance(2 * 24 * time.Hour)
	if _, err := s.UpdateStatus(ctx, a, StatusDone); err != nil {
		t.Fatal(err)
	}
	clock.Advance(2 * 24 * time.Hour)
	if _, err := s.UpdateStatus(ctx, b, StatusDone); err != nil {
		t.Fatal(err)
	}

	st, err := s.Stats(ctx, since)
	if err != nil {
		t.Fatal(err)
	}
	if st.Total != 4 {
		t.Errorf("Total = %d, want 4", st.Total)
	}
	if st.ByStatus[StatusDone] != 2 || st.ByStatus[StatusOpen] != 2 {
		t.Errorf("ByStatus = %v", st.ByStatus)
	}
	if len(st.Labels) != 3 {
		t.Fatalf("Labels = %+v", st.Labels)
	}
	work := st.Labels[0]
	if work.Label != "work" || work.Total != 2 || work.Done != 2 {
		t.Errorf("work stats = %+v", work)
	}
	if math.Abs(work.AvgDaysToDone-3) > 1e-6 {
		t.Errorf("AvgDaysToDone = %v, want 3", work.AvgDaysToDone)
	}
	if st.Labels[1].Label != "home" || st.Labels[2].Label != "unlabelled" {
		t.Errorf("label order = %+v", st.Labels)
	}
	if st.Labels[1].AvgDaysToDone != 0 {
		t.Errorf("home avg = %v, want 0", st.Labels[1].AvgDaysToDone)
	}

	all, err := s.Stats(ctx, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if all.Total != 5 {
		t.Errorf("all Total = %d, want 5", all.Total)
	}
}
