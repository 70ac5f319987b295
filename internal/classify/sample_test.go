package classify

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/lthms/thoughtpool/internal/store"
)

func TestSampleRecentUnderLimit(t *testing.T) {
	notes := []store.Thought{{ID: 1}, {ID: 2}}
	got := sampleRecent(notes, 5, time.Now(), rand.New(rand.NewPCG(1, 2)))
	if len(got) != 2 {
		t.Errorf("got %d notes, want all 2", len(got))
	}
}

func TestSampleRecentKeepsOrder(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	var notes []store.Thought
	for i := range 10 {
		notes = append(notes, store.Thought{ID: int64(i + 1), CreatedAt: now.AddDate(0, 0, -i)})
	}

	got := sampleRecent(notes, 4, now, rand.New(rand.NewPCG(7, 7)))
	if len(got) != 4 {
		t.Fatalf("got %d notes, want 4", len(got))
	}
	seen := map[int64]bool{}
	for i, n := range got {
		if seen[n.ID] {
			t.Errorf("note %d picked twice", n.ID)
		}
		seen[n.ID] = true
		if i > 0 && got[i-1].ID >= n.ID {
			t.Errorf("order not preserved: %d before %d", got[i-1].ID, n.ID)
		}
	}
}

func TestSampleRecentFavoursNewNotes(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	notes := []store.Thought{{ID: 1, CreatedAt: now}}
	for i := range 9 {
		notes = append(notes, store.Thought{ID: int64(i + 2), CreatedAt: now.AddDate(-3, 0, 0)})
	}

	rnd := rand.New(rand.NewPCG(3, 4))
	fresh := 0
	for range 200 {
		if sampleRecent(notes, 1, now, rnd)[0].ID == 1 {
			fresh++
		}
	}
	if fresh < 150 {
		t.Errorf("fresh note picked %d/200 times", fresh)
	}
}
