package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/mmeshcher/clubperks/internal/model"
)

type stubProducer struct {
	records []*kgo.Record
	err     error
	closed  bool
}

func (s *stubProducer) ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	s.records = append(s.records, rs...)
	res := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		res = append(res, kgo.ProduceResult{Record: r, Err: s.err})
	}
	return res
}

func (s *stubProducer) Close() { s.closed = true }

func TestNewRedemptionCompleted(t *testing.T) {
	usedAt := time.Date(2026, 4, 2, 15, 4, 5, 0, time.UTC)
	red := &model.Redemption{
		ID:             uuid.New(),
		Code:           "QR-0123456789ABCDEF",
		OfferID:        3,
		UserID:         42,
		PartnerID:      9,
		OriginalAmount: decimal.NewFromInt(100),
		DiscountAmount: decimal.NewFromInt(20),
		FinalAmount:    decimal.NewFromInt(80),
		LoyaltyPoints:  8,
		UsedAt:         usedAt,
	}

	ev, err := NewRedemptionCompleted("clubperks.redemptions", red)
	require.NoError(t, err)

	assert.Equal(t, "clubperks.redemptions", ev.Topic)
	assert.Equal(t, "42", ev.Key)
	assert.Equal(t, TypeRedemptionCompleted, ev.Type)
	assert.Equal(t, usedAt, ev.CreatedAt)

	var payload RedemptionCompleted
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	assert.Equal(t, red.ID.String(), payload.RedemptionID)
	assert.Equal(t, "80.00", payload.FinalAmount)
	assert.Equal(t, "20.00", payload.DiscountAmount)
	assert.Equal(t, int64(8), payload.LoyaltyPoints)
}

func TestKafkaPublisher_Publish(t *testing.T) {
	stub := &stubProducer{}
	p := newPublisher(stub, nil)

	now := time.Now()
	err := p.Publish(context.Background(), []model.Event{
		{ID: uuid.New(), Topic: "t", Key: "1", Type: TypeCodeCancelled, Payload: []byte(`{}`), CreatedAt: now},
	})
	require.NoError(t, err)
	require.Len(t, stub.records, 1)

	rec := stub.records[0]
	assert.Equal(t, "t", rec.Topic)
	assert.Equal(t, []byte("1"), rec.Key)
	require.Len(t, rec.Headers, 1)
	assert.Equal(t, HeaderEventType, rec.Headers[0].Key)
	assert.Equal(t, TypeCodeCancelled, string(rec.Headers[0].Value))

	p.Close()
	assert.True(t, stub.closed)
}

func TestKafkaPublisher_PublishError(t *testing.T) {
	stub := &stubProducer{err: errors.New("broker down")}
	p := newPublisher(stub, nil)

	err := p.Publish(context.Background(), []model.Event{{ID: uuid.New(), Topic: "t"}})
	assert.Error(t, err)
}

func TestNewKafkaClient_NoBrokers(t *testing.T) {
	_, err := NewKafkaClient([]string{" ", ""}, "clubperks")
	assert.Error(t, err)
}
