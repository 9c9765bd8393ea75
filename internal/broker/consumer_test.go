package broker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kishoreUdatha/HRM-sub003/internal/events"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// fakeSource serves a fixed slice of messages, then blocks until the context
// is cancelled, like a reader on an idle partition.
type fakeSource struct {
	mu      sync.Mutex
	msgs    []kafkago.Message
	commits []kafkago.Message
}

func (f *fakeSource) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	f.mu.Lock()
	if len(f.msgs) > 0 {
		msg := f.msgs[0]
		f.msgs = f.msgs[1:]
		f.mu.Unlock()
		return msg, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafkago.Message{}, ctx.Err()
}

func (f *fakeSource) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits = append(f.commits, msgs...)
	return nil
}

func (f *fakeSource) committed() []kafkago.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]kafkago.Message(nil), f.commits...)
}

func envelopeMessage(t *testing.T, eventType string, offset int64) kafkago.Message {
	t.Helper()
	env, err := events.NewEnvelope(eventType, "tenant-1", map[string]string{"k": "v"})
	assert.NoError(t, err)
	raw, err := json.Marshal(env)
	assert.NoError(t, err)
	return kafkago.Message{Offset: offset, Value: raw}
}

func TestConsume(t *testing.T) {
	t.Run("failed handler blocks the offset until it succeeds", func(t *testing.T) {
		source := &fakeSource{msgs: []kafkago.Message{
			envelopeMessage(t, "leave.approved", 7),
			envelopeMessage(t, "leave.rejected", 8),
		}}

		var mu sync.Mutex
		var handled []string
		failures := 2
		handler := func(_ context.Context, env events.Envelope) error {
			mu.Lock()
			defer mu.Unlock()
			handled = append(handled, env.EventType)
			if env.EventType == "leave.approved" && failures > 0 {
				failures--
				return errors.New("ledger unavailable")
			}
			return nil
		}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			consume(ctx, source, handler, time.Millisecond, zap.NewNop())
			close(done)
		}()

		assert.Eventually(t, func() bool {
			return len(source.committed()) == 2
		}, 2*time.Second, 5*time.Millisecond)
		cancel()
		<-done

		// The first message is re-presented until it succeeds; the second is
		// never fetched, let alone committed, before that.
		mu.Lock()
		assert.Equal(t, []string{"leave.approved", "leave.approved", "leave.approved", "leave.rejected"}, handled)
		mu.Unlock()

		commits := source.committed()
		assert.Equal(t, int64(7), commits[0].Offset)
		assert.Equal(t, int64(8), commits[1].Offset)
	})

	t.Run("undecodable message is committed and skipped", func(t *testing.T) {
		source := &fakeSource{msgs: []kafkago.Message{
			{Offset: 3, Value: []byte("not json")},
			envelopeMessage(t, "leave.approved", 4),
		}}

		var mu sync.Mutex
		var handled []string
		handler := func(_ context.Context, env events.Envelope) error {
			mu.Lock()
			defer mu.Unlock()
			handled = append(handled, env.EventType)
			return nil
		}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			consume(ctx, source, handler, time.Millisecond, zap.NewNop())
			close(done)
		}()

		assert.Eventually(t, func() bool {
			return len(source.committed()) == 2
		}, 2*time.Second, 5*time.Millisecond)
		cancel()
		<-done

		mu.Lock()
		assert.Equal(t, []string{"leave.approved"}, handled)
		mu.Unlock()
	})

	t.Run("cancellation during retry stops the loop without committing", func(t *testing.T) {
		source := &fakeSource{msgs: []kafkago.Message{
			envelopeMessage(t, "leave.approved", 1),
		}}

		handler := func(context.Context, events.Envelope) error {
			return errors.New("still failing")
		}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			consume(ctx, source, handler, 10*time.Millisecond, zap.NewNop())
			close(done)
		}()

		time.Sleep(30 * time.Millisecond)
		cancel()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("consumer did not stop on cancellation")
		}
		assert.Empty(t, source.committed())
	})
}
