package store

import (
	"context"
	"log/slog"
	"time"
)

type taskHandler func(ctx context.Context, payload string) error

func (s *Store) taskHandlers() map[string]taskHandler {
	return map[string]taskHandler{
		taskEmbedThought:  s.handleEmbedThought,
		taskEmbedCategory: s.handleEmbedCategory,
	}
}

// StartWorkers launches one goroutine per task type polling the queue.
// It does nothing when no embedder is configured. Stop ends them.
func (s *Store) StartWorkers() {
	if s.embedder == nil {
		slog.Info("store: no embedder, workers not started")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		<-s.stopCh
		cancel()
	}()

	handlers := s.taskHandlers()
	for name, h := range handlers {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.workerLoop(ctx, name, h)
		}()
	}

	slog.Info("store: workers started", "count", len(handlers))
}

// Stop signals the workers to exit and waits for them. It is safe to call
// more than once, and without StartWorkers.
func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

func (s *Store) workerLoop(ctx context.Context, taskType string, handler taskHandler) {
	for {
		select {
		case <-s.stopCh:
			slog.Debug("store: worker stopping", "type", taskType)
			return
		default:
		}

		task, err := s.Dequeue(ctx, taskType)
		if err != nil {
			slog.Warn("store: dequeue error", "type", taskType, "error", err)
			s.sleep(s.pollInterval)
			continue
		}
		if task == nil {
			s.sleep(s.pollInterval)
			continue
		}

		s.runTask(ctx, task, handler)
	}
}

func (s *Store) runTask(ctx context.Context, task *QueueTask, handler taskHandler) {
	slog.Debug("store: processing task", "type", task.TaskType, "id", task.ID, "payload", task.Payload)
	if err := handler(ctx, task.Payload); err != nil {
		slog.Warn("store: task failed", "type", task.TaskType, "id", task.ID, "attempt", task.Attempts, "error", err)
		s.FailTask(ctx, task.ID, err)
		return
	}
	s.CompleteTask(ctx, task.ID)
}

// sleep waits for d, a queue notification, or Stop.
func (s *Store) sleep(d time.Duration) {
	select {
	case <-s.stopCh:
	case <-s.notifyCh:
	case <-time.After(d):
	}
}

// ProcessPending drains the queue on the calling goroutine until no task
// can be claimed, and returns the number of tasks that succeeded.
func (s *Store) ProcessPending(ctx context.Context) (int, error) {
	if s.embedder == nil {
		return 0, ErrNoEmbedder
	}

	handlers := s.taskHandlers()
	done := 0
	for {
		progressed := false
		for name, h := range handlers {
			if err := ctx.Err(); err != nil {
				return done, err
			}
			task, err := s.Dequeue(ctx, name)
			if err != nil {
				return done, err
			}
			if task == nil {
				continue
			}
			progressed = true
			if err := h(ctx, task.Payload); err != nil {
				slog.Warn("store: task failed", "type", name, "id", task.ID, "error", err)
				s.FailTask(ctx, task.ID, err)
				continue
			}
			s.CompleteTask(ctx, task.ID)
			done++
		}
		if !progressed {
			return done, nil
		}
	}
}
