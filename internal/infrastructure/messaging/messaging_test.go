package messaging

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func startConsumer(t *testing.T, rdb *redis.Client, stream Stream, handler MessageHandler, msgType string) *Consumer {
	t.Helper()
	c := NewConsumer(rdb, ConsumerConfig{
		Stream:       stream,
		Group:        ConsumerGroupShapeWorker,
		ConsumerName: "test-consumer",
		BlockTimeout: 20 * time.Millisecond,
		RetryLimit:   2,
	})
	c.RegisterHandler(msgType, handler)
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(c.Stop)
	return c
}

func TestBackoffConfig_CalculateBackoff(t *testing.T) {
	cfg := BackoffConfig{Initial: time.Second, Max: 5 * time.Second, Multiplier: 2}
	assert.Equal(t, time.Second, cfg.CalculateBackoff(0))
	assert.Equal(t, 2*time.Second, cfg.CalculateBackoff(1))
	assert.Equal(t, 4*time.Second, cfg.CalculateBackoff(2))
	assert.Equal(t, 5*time.Second, cfg.CalculateBackoff(3))
	assert.Equal(t, 5*time.Second, cfg.CalculateBackoff(10))
}

func TestProducer_PublishShapeGen(t *testing.T) {
	rdb := newTestRedis(t)
	p := NewProducer(rdb, 0)

	id, err := p.PublishShapeGen(context.Background(), &ShapeGenMessage{
		GenerationID: 42,
		UserID:       "user-1",
		Shape:        "gear",
		RequestID:    "req-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	entries, err := rdb.XRange(context.Background(), string(StreamShapeGen), "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	msg, err := decode(entries[0])
	require.NoError(t, err)
	assert.Equal(t, "42", msg.ID)
	assert.Equal(t, MessageTypeShapeGen, msg.Type)
	assert.Equal(t, "user-1", msg.UserID)
	assert.Equal(t, "42", msg.GetMetadata("generation_id"))
	assert.Equal(t, "req-1", msg.GetMetadata("request_id"))

	var payload ShapeGenMessage
	require.NoError(t, msg.UnmarshalPayload(&payload))
	assert.Equal(t, int64(42), payload.GenerationID)
	assert.Equal(t, "gear", payload.Shape)
}

func TestConsumer_ProcessesAndAcks(t *testing.T) {
	rdb := newTestRedis(t)
	p := NewProducer(rdb, 0)

	var got atomic.Int64
	startConsumer(t, rdb, StreamShapeGen, func(ctx context.Context, msg *Message) error {
		var payload ShapeGenMessage
		if err := msg.UnmarshalPayload(&payload); err != nil {
			return err
		}
		got.Store(payload.GenerationID)
		return nil
	}, MessageTypeShapeGen)

	_, err := p.PublishShapeGen(context.Background(), &ShapeGenMessage{GenerationID: 7, UserID: "u"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return got.Load() == 7 }, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		pending, err := rdb.XPending(context.Background(), string(StreamShapeGen), string(ConsumerGroupShapeWorker)).Result()
		return err == nil && pending.Count == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConsumer_PermanentFailureGoesToDLQ(t *testing.T) {
	rdb := newTestRedis(t)
	p := NewProducer(rdb, 0)

	startConsumer(t, rdb, StreamShapeGen, func(ctx context.Context, msg *Message) error {
		return fmt.Errorf("generation vanished: %w", ErrPermanent)
	}, MessageTypeShapeGen)

	_, err := p.PublishShapeGen(context.Background(), &ShapeGenMessage{GenerationID: 9, UserID: "u"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		n, err := rdb.XLen(context.Background(), StreamShapeGen.DLQStream()).Result()
		return err == nil && n == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConsumer_UnknownTypeIsAcked(t *testing.T) {
	rdb := newTestRedis(t)
	p := NewProducer(rdb, 0)

	var calls atomic.Int32
	startConsumer(t, rdb, StreamAuditLog, func(ctx context.Context, msg *Message) error {
		calls.Add(1)
		return nil
	}, MessageTypeAudit)

	msg, err := NewMessage("x", "something_else", "", map[string]string{})
	require.NoError(t, err)
	_, err = p.Publish(context.Background(), StreamAuditLog, msg)
	require.NoError(t, err)
	_, err = p.PublishAuditLog(context.Background(), &AuditLogMessage{RequestID: "r1", Method: "POST", Path: "/v1/generations", Status: 200})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		pending, err := rdb.XPending(context.Background(), string(StreamAuditLog), string(ConsumerGroupShapeWorker)).Result()
		return err == nil && pending.Count == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConsumer_StartTwice(t *testing.T) {
	rdb := newTestRedis(t)
	c := startConsumer(t, rdb, StreamShapeGen, func(ctx context.Context, msg *Message) error { return nil }, MessageTypeShapeGen)
	assert.Error(t, c.Start(context.Background()))
}
