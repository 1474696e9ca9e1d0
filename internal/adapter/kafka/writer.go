package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/epi-series-etl/internal/chart"
	"github.com/couchcryptid/epi-series-etl/internal/config"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes prepared chart frames for the renderer service.
// It implements pipeline.FrameLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes every frame before writing, so a frame that fails to
// encode publishes nothing.
func (w *Writer) LoadBatch(ctx context.Context, frames []chart.Frame) error {
	if len(frames) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(frames))
	for i := range frames {
		msg, err := serializeToMessage(frames[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish frames: %w", err)
	}
	w.logger.Debug("frames published", "count", len(frames), "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a frame into a Kafka message keyed by chart name.
func serializeToMessage(frame chart.Frame) (kafkago.Message, error) {
	data, err := json.Marshal(frame)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize frame %q: %w", frame.Name, err)
	}
	return kafkago.Message{
		Key:   []byte(frame.Name),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "scale", Value: []byte(frame.Scale)},
			{Key: "generated_at", Value: []byte(frame.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
