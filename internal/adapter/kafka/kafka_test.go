package kafka

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/afd-term-etl/internal/config"
	"github.com/couchcryptid/afd-term-etl/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	row := domain.CombinedRow{
		Office: "OUN",
		Year:   2019,
		Record: domain.YearCountRecord{Counts: map[string]int{"GFS": 12, "LIKELY": 3}, Documents: 730},
	}

	msg, err := serializeToMessage(row)
	require.NoError(t, err)

	assert.Equal(t, []byte("OUN|2019"), msg.Key)
	assert.JSONEq(t, `{"office":"OUN","year":2019,"counts":{"GFS":12,"LIKELY":3},"documents":730}`, string(msg.Value))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "office", msg.Headers[0].Key)
	assert.Equal(t, []byte("OUN"), msg.Headers[0].Value)
	assert.Equal(t, "year", msg.Headers[1].Key)
	assert.Equal(t, []byte("2019"), msg.Headers[1].Value)
}

func TestParseMessage(t *testing.T) {
	row := domain.CombinedRow{
		Office: "TSA",
		Year:   2001,
		Record: domain.YearCountRecord{Counts: map[string]int{"CHANCE (": 4}, Documents: 2},
	}
	msg, err := serializeToMessage(row)
	require.NoError(t, err)

	got, err := ParseMessage(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, row, got)
}

func TestParseMessage_Invalid(t *testing.T) {
	_, err := ParseMessage([]byte("not json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse row message")
}

func TestLoadBatch_EmptyIsNoop(t *testing.T) {
	w := NewWriter(&config.Config{KafkaBrokers: []string{"127.0.0.1:1"}, KafkaTopic: "t"}, slog.Default())
	defer w.Close()

	require.NoError(t, w.LoadBatch(context.Background(), nil))
}
