package memory

import (
	"context"
	"testing"
	"time"

	"github.com/contextprime/crawlprime/internal/rag"
)

func TestQueueEnqueueDequeue(t *testing.T) {
	t.Parallel()

	q := New(1)
	result := make(chan rag.QueueItem, 1)
	errCh := make(chan error, 1)

	go func() {
		item, err := q.Dequeue(context.Background())
		if err != nil {
			errCh <- err
			return
		}
		result <- item
	}()

	want := rag.QueueItem{JobID: "job-1", URL: "https://example.com"}
	if err := q.Enqueue(context.Background(), want); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	select {
	case err := <-errCh:
		t.Fatalf("Dequeue() error = %v", err)
	case got := <-result:
		if got.JobID != want.JobID {
			t.Fatalf("got job %s, want %s", got.JobID, want.JobID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for dequeue")
	}
}

func TestQueueDequeueRespectsContext(t *testing.T) {
	t.Parallel()

	q := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := q.Dequeue(ctx); err == nil {
		t.Fatal("expected error from canceled context")
	}
}

func TestQueueEnqueueBlocksWhenFull(t *testing.T) {
	t.Parallel()

	q := New(1)
	if err := q.Enqueue(context.Background(), rag.QueueItem{JobID: "a"}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := q.Enqueue(ctx, rag.QueueItem{JobID: "b"}); err == nil {
		t.Fatal("expected enqueue on full queue to fail once context expires")
	}
}
