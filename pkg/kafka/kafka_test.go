package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applogger "Prism/pkg/logger"
)

type stubHandler struct {
	mu    sync.Mutex
	fails int
	calls int
	seen  [][]byte
}

func (h *stubHandler) Topic() string { return "cones" }

func (h *stubHandler) Handle(_ context.Context, b []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	h.seen = append(h.seen, b)
	if h.fails > 0 {
		h.fails--
		return errors.New("boom")
	}
	return nil
}

type stubCommitter struct{ committed []kafka.Message }

func (c *stubCommitter) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	c.committed = append(c.committed, msgs...)
	return nil
}

type stubDLQ struct{ msgs []kafka.Message }

func (d *stubDLQ) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	d.msgs = append(d.msgs, msgs...)
	return nil
}

func (d *stubDLQ) Close() error { return nil }

func newTestConsumer(t *testing.T, opts ...ConsumerOption) *Consumer {
	opts = append([]ConsumerOption{WithConsumerBrokers([]string{"localhost:9092"}), WithConsumerRetry(2, time.Millisecond, 2*time.Millisecond)}, opts...)
	c, err := NewConsumer(applogger.Nop(), opts...)
	require.NoError(t, err)
	return c
}

func TestNewConsumerRequiresBrokers(t *testing.T) {
	_, err := NewConsumer(applogger.Nop())
	assert.Error(t, err)
	_, err = NewProducer()
	assert.Error(t, err)
}

func TestConsumerRetriesThenCommits(t *testing.T) {
	c := newTestConsumer(t)
	h := &stubHandler{fails: 2}
	c.RegisterHandler(h)
	com := &stubCommitter{}

	c.process(&message{topic: "cones", km: kafka.Message{Value: []byte("x"), Offset: 7}, c: com})
	assert.Equal(t, 3, h.calls)
	require.Len(t, com.committed, 1)
	assert.Equal(t, int64(7), com.committed[0].Offset)
}

func TestConsumerSendsExhaustedToDLQ(t *testing.T) {
	c := newTestConsumer(t, WithConsumerDLQ("cones.dlq"))
	dlq := &stubDLQ{}
	c.dlq = dlq
	h := &stubHandler{fails: 10}
	c.RegisterHandler(h)
	com := &stubCommitter{}

	c.process(&message{topic: "cones", km: kafka.Message{Key: []byte("BTC:24h"), Value: []byte("x")}, c: com})
	assert.Equal(t, 3, h.calls)
	require.Len(t, dlq.msgs, 1)
	assert.Equal(t, "cones.dlq", dlq.msgs[0].Topic)
	assert.Equal(t, []byte("BTC:24h"), dlq.msgs[0].Key)
	assert.Equal(t, "source_topic", dlq.msgs[0].Headers[0].Key)
	assert.Len(t, com.committed, 1)
}

func TestConsumerHookRewritesPayload(t *testing.T) {
	c := newTestConsumer(t)
	h := &stubHandler{}
	c.RegisterHandler(h)

	var errs int
	c.SetHook(NewHookChain(
		HookFuncs{Before: func(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
			return ctx, km, append([]byte("v1:"), data...), nil
		}},
		HookFuncs{Err: func(context.Context, string, kafka.Message, []byte, error) { errs++ }},
	))

	c.process(&message{topic: "cones", km: kafka.Message{Value: []byte("payload")}})
	require.Len(t, h.seen, 1)
	assert.Equal(t, "v1:payload", string(h.seen[0]))
	assert.Equal(t, 0, errs)
}

func TestHookChainRecoversPanics(t *testing.T) {
	var onErr int
	chain := NewHookChain(
		HookFuncs{Before: func(context.Context, string, kafka.Message, []byte) (context.Context, kafka.Message, []byte, error) {
			panic("bad hook")
		}},
		HookFuncs{Err: func(context.Context, string, kafka.Message, []byte, error) { onErr++ }},
		nil,
	)
	_, _, _, err := chain.BeforeHandle(context.Background(), "cones", kafka.Message{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad hook")
	assert.Equal(t, 1, onErr)

	assert.NotPanics(t, func() {
		NewHookChain(HookFuncs{After: func(context.Context, string, kafka.Message, []byte, error) { panic("x") }}).
			AfterHandle(context.Background(), "cones", kafka.Message{}, nil, nil)
	})
}

func TestBackoffWithJitter(t *testing.T) {
	for attempt := 1; attempt <= 40; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, 80*time.Millisecond, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 80*time.Millisecond)
	}
	d := backoffWithJitter(10*time.Millisecond, 80*time.Millisecond, 1)
	assert.GreaterOrEqual(t, d, 5*time.Millisecond)
	assert.LessOrEqual(t, d, 10*time.Millisecond)
}

func TestEncode(t *testing.T) {
	b, err := encode(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(b))

	b, err = encode("raw")
	require.NoError(t, err)
	assert.Equal(t, []byte("raw"), b)

	_, err = encode(make(chan int))
	assert.Error(t, err)

	assert.Equal(t, kafka.Snappy, parseCompression(""))
	assert.Equal(t, kafka.Zstd, parseCompression("zstd"))
}
