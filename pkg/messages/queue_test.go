package messages

import (
	"encoding/hex"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeRouter struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeRouter) Send(destinationHash []byte, content, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, hex.EncodeToString(destinationHash)+":"+content)
	return nil
}

func (f *fakeRouter) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func TestEnqueue_RejectsInvalidHash(t *testing.T) {
	t.Parallel()

	q := NewQueue(&fakeRouter{}, 4)
	if _, err := q.Enqueue("not-hex", "hello", ""); err == nil {
		t.Fatalf("expected error for invalid destination hash")
	}
}

func TestEnqueue_QueueFull(t *testing.T) {
	t.Parallel()

	q := NewQueue(&fakeRouter{}, 1)
	if _, err := q.Enqueue("aabb", "one", ""); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := q.Enqueue("aabb", "two", ""); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("err=%v, want ErrQueueFull", err)
	}
}

func TestRun_DeliversQueuedMessages(t *testing.T) {
	t.Parallel()

	router := &fakeRouter{}
	q := NewQueue(router, 4)
	msg, err := q.Enqueue("aabb", "hello", "Reply")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if msg.ID == "" {
		t.Fatalf("queued message has no id")
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		q.Run(stop)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for router.sentCount() == 0 {
		select {
		case <-deadline:
			t.Fatalf("message never delivered")
		case <-time.After(5 * time.Millisecond):
		}
	}

	close(stop)
	<-done
	if got := router.sent[0]; got != "aabb:hello" {
		t.Fatalf("sent=%q", got)
	}
}
