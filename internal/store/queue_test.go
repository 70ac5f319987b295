package store

import (
	"context"
	"errors"
	"testing"
)

func TestQueue_PriorityOrder(t *testing.T) {
	s := openTestStore(t, nil, nil)
	ctx := context.Background()

	s.Enqueue(ctx, "t", "low", 0)
	s.Enqueue(ctx, "t", "high", 5)
	s.Enqueue(ctx, "t", "low2", 0)
	s.Enqueue(ctx, "other", "x", 10)

	var got []string
	for {
		task, err := s.Dequeue(ctx, "t")
		if err != nil {
			t.Fatal(err)
		}
		if task == nil {
			break
		}
		if task.Status != "processing" || task.Attempts != 1 {
			t.Errorf("claimed task = %+v", task)
		}
		got = append(got, task.Payload)
		s.CompleteTask(ctx, task.ID)
	}
	want := []string{"high", "low", "low2"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
			break
		}
	}
}

func TestQueue_RetryUntilMaxAttempts(t *testing.T) {
	s := openTestStore(t, nil, nil)
	ctx := context.Background()
	s.Enqueue(ctx, "t", "p", 0)

	for attempt := 1; attempt <= 3; attempt++ {
		task, err := s.Dequeue(ctx, "t")
		if err != nil {
			t.Fatal(err)
		}
		if task == nil {
			t.Fatalf("attempt %d: no task", attempt)
		}
		if task.Attempts != attempt {
			t.Errorf("Attempts = %d, want %d", task.Attempts, attempt)
		}
		s.FailTask(ctx, task.ID, errors.New("boom"))
	}

	task, err := s.Dequeue(ctx, "t")
	if err != nil {
		t.Fatal(err)
	}
	if task != nil {
		t.Errorf("task still claimable after max attempts: %+v", task)
	}

	counts, err := s.QueueCounts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts["failed"] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestRecoverStaleTasks(t *testing.T) {
	s := openTestStore(t, nil, nil)
	ctx := context.Background()
	s.Enqueue(ctx, "t", "a", 0)
	s.Enqueue(ctx, "t", "b", 0)
	if _, err := s.Dequeue(ctx, "t"); err != nil {
		t.Fatal(err)
	}

	if n := s.RecoverStaleTasks(ctx); n != 1 {
		t.Errorf("recovered %d, want 1", n)
	}
	counts, _ := s.QueueCounts(ctx)
	if counts["pending"] != 2 || counts["processing"] != 0 {
		t.Errorf("counts = %v", counts)
	}
}

func TestProcessPending_FailingEmbedder(t *testing.T) {
	emb := newStubEmbedder("x")
	emb.err = errors.New("backend down")
	s := openTestStore(t, emb, nil)
	ctx := context.Background()

	mustAdd(t, s, Thought{Text: "x"})
	n, err := s.ProcessPending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("succeeded = %d, want 0", n)
	}
	if emb.callCount() != 3 {
		t.Errorf("embed calls = %d, want 3 attempts", emb.callCount())
	}
}
