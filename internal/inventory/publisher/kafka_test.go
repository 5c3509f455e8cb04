package publisher

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fekuna/omnipos-catalog-sync/internal/inventory/dto"
)

type captureWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (w *captureWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_KeysByRemoteID(t *testing.T) {
	w := &captureWriter{}
	p := &KafkaPublisher{writer: w}
	at := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	err := p.PublishStockChanged(context.Background(), dto.StockChangedEvent{RemoteID: 501, ProductID: 3, Before: 4, After: 9, At: at})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "501", string(w.msgs[0].Key))
	assert.Equal(t, at, w.msgs[0].Time)

	var got dto.StockChangedEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, int64(9), got.After)
	assert.Equal(t, int64(4), got.Before)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestNewKafkaPublisher(t *testing.T) {
	p := NewKafkaPublisher(&Config{Brokers: []string{"localhost:9092"}, Topic: "catalog.stock"})
	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "catalog.stock", w.Topic)
	assert.NoError(t, p.Close())
}
