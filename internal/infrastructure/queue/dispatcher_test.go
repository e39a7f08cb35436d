package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type recordingMailer struct {
	mu    sync.Mutex
	sent  []string
	err   error
	block chan struct{}
}

func (m *recordingMailer) SendConfirmation(_ context.Context, userID string) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, userID)
	return m.err
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestDispatcher_DeliversEnqueuedJobs(t *testing.T) {
	mailer := &recordingMailer{}
	d := NewDispatcher(2, mailer, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	d.Enqueue("u-1")
	d.Enqueue("u-2")
	d.Enqueue("u-3")

	waitFor(t, func() bool { return mailer.count() == 3 })
	cancel()
	d.Wait()
}

func TestDispatcher_FailureIsSwallowed(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("smtp down")}
	d := NewDispatcher(1, mailer, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	d.Enqueue("u-1")
	waitFor(t, func() bool { return mailer.count() == 1 })

	// the worker must keep serving after a failed delivery
	d.Enqueue("u-2")
	waitFor(t, func() bool { return mailer.count() == 2 })
	cancel()
	d.Wait()
}

func TestDispatcher_EnqueueNeverBlocks(t *testing.T) {
	mailer := &recordingMailer{}
	d := NewDispatcher(1, mailer, zerolog.Nop())

	// workers not started: the buffer fills and further jobs are dropped
	done := make(chan struct{})
	go func() {
		for i := 0; i < channelBuffer+10; i++ {
			d.Enqueue("u-1")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Enqueue blocked on a full queue")
	}
	if got := len(d.workers[0]); got != channelBuffer {
		t.Fatalf("expected %d buffered jobs, got %d", channelBuffer, got)
	}
}

func TestDispatcher_ShardIndexStable(t *testing.T) {
	d := NewDispatcher(8, &recordingMailer{}, zerolog.Nop())
	first := d.shardIndex("65f1c0ffee")
	for i := 0; i < 10; i++ {
		if d.shardIndex("65f1c0ffee") != first {
			t.Fatalf("shard index is not deterministic")
		}
	}
	if first < 0 || first >= 8 {
		t.Fatalf("shard index out of range: %d", first)
	}
}
