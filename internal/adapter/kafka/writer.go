package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/afd-term-etl/internal/config"
	"github.com/couchcryptid/afd-term-etl/internal/domain"
)

// Writer publishes combined rows to a Kafka topic, one message per
// (office, year). It implements pipeline.RowLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// rowMessage is the JSON value of a published row.
type rowMessage struct {
	Office    string         `json:"office"`
	Year      int            `json:"year"`
	Counts    map[string]int `json:"counts"`
	Documents int            `json:"documents"`
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes and publishes rows in a single WriteMessages call.
func (w *Writer) LoadBatch(ctx context.Context, rows []domain.CombinedRow) error {
	if len(rows) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(rows))
	for i := range rows {
		msg, err := serializeToMessage(rows[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d rows: %w", len(msgs), err)
	}
	w.logger.Debug("rows published", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// MessageKey is the partitioning key of a row, "<office>|<year>".
func MessageKey(office string, year int) string {
	return office + "|" + strconv.Itoa(year)
}

// ParseMessage decodes a published message value back into a row.
func ParseMessage(value []byte) (domain.CombinedRow, error) {
	var m rowMessage
	if err := json.Unmarshal(value, &m); err != nil {
		return domain.CombinedRow{}, fmt.Errorf("parse row message: %w", err)
	}
	return domain.CombinedRow{
		Office: m.Office,
		Year:   m.Year,
		Record: domain.YearCountRecord{Counts: m.Counts, Documents: m.Documents},
	}, nil
}

func serializeToMessage(row domain.CombinedRow) (kafkago.Message, error) {
	data, err := json.Marshal(rowMessage{
		Office:    row.Office,
		Year:      row.Year,
		Counts:    row.Record.Counts,
		Documents: row.Record.Documents,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize row %s %d: %w", row.Office, row.Year, err)
	}
	return kafkago.Message{
		Key:   []byte(MessageKey(row.Office, row.Year)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "office", Value: []byte(row.Office)},
			{Key: "year", Value: []byte(strconv.Itoa(row.Year))},
		},
	}, nil
}
