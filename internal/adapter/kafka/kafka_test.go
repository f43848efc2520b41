package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/quakewatch/internal/domain"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	calls  int
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func testWriter(fw *fakeWriter) *Writer {
	return &Writer{writer: fw, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

var occurred = time.Date(2024, 4, 26, 11, 30, 0, 0, time.UTC)

func TestSerializeToMessage(t *testing.T) {
	event := domain.Event{
		ID:           "us7000mj1a",
		Magnitude:    domain.Float(6.4),
		Place:        "120km E of Japan",
		OccurredAtMs: occurred.UnixMilli(),
		Geo:          &domain.Geo{Lat: 38.1, Lon: 142.7},
		MMI:          domain.Float(6.2),
	}

	msg, err := serializeToMessage(event)
	require.NoError(t, err)

	assert.Equal(t, []byte("us7000mj1a"), msg.Key)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "band", msg.Headers[0].Key)
	assert.Equal(t, []byte("strong"), msg.Headers[0].Value)
	assert.Equal(t, "occurred_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(occurred.Format(time.RFC3339)), msg.Headers[1].Value)

	var alert Alert
	require.NoError(t, json.Unmarshal(msg.Value, &alert))
	assert.Equal(t, "us7000mj1a", alert.Event.ID)
	assert.Equal(t, "Strong", alert.Classification.Label)
	assert.Equal(t, "VI", alert.Intensity.Roman)
	assert.Contains(t, string(msg.Value), `"band":"strong"`)
}

func TestSerializeToMessage_AbsentMagnitude(t *testing.T) {
	msg, err := serializeToMessage(domain.Event{ID: "x", OccurredAtMs: occurred.UnixMilli()})
	require.NoError(t, err)
	assert.Equal(t, []byte("unknown"), msg.Headers[0].Value)
	assert.Contains(t, string(msg.Value), `"magnitude":null`)
}

func TestWriter_Publish(t *testing.T) {
	fw := &fakeWriter{}
	w := testWriter(fw)

	err := w.Publish(context.Background(), []domain.Event{
		{ID: "a", Magnitude: domain.Float(5.0)},
		{ID: "b", Magnitude: domain.Float(7.5)},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, fw.calls, "one WriteMessages call per batch")
	require.Len(t, fw.msgs, 2)
	assert.Equal(t, []byte("a"), fw.msgs[0].Key)
	assert.Equal(t, []byte("b"), fw.msgs[1].Key)
}

func TestWriter_PublishEmpty(t *testing.T) {
	fw := &fakeWriter{}
	require.NoError(t, testWriter(fw).Publish(context.Background(), nil))
	assert.Equal(t, 0, fw.calls)
}

func TestWriter_PublishError(t *testing.T) {
	fw := &fakeWriter{err: errors.New("leader not available")}
	err := testWriter(fw).Publish(context.Background(), []domain.Event{{ID: "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write alerts")
}

func TestWriter_Close(t *testing.T) {
	fw := &fakeWriter{}
	require.NoError(t, testWriter(fw).Close())
	assert.True(t, fw.closed)
}
