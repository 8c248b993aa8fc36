package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"cinema-seat-booking/pkg/utils"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleEvent() BookingEvent {
	return BookingEvent{
		Type:        EventBookingConfirmed,
		BookingID:   uuid.New(),
		BookingCode: "BK-20260301-ABCD1234",
		ShowID:      uuid.New(),
		CustomerID:  uuid.New(),
		Seats: []EventSeat{
			{PositionNo: 40, TierID: uuid.New(), Price: 10},
			{PositionNo: 55, TierID: uuid.New(), Price: 20},
		},
		TotalPrice: 30,
		OccurredAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestKafkaPublisher_SendsJSON(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	defer producer.Close()

	event := sampleEvent()
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var got BookingEvent
		if err := json.Unmarshal(val, &got); err != nil {
			return err
		}
		if got.BookingID != event.BookingID || got.TotalPrice != 30 || len(got.Seats) != 2 {
			return fmt.Errorf("unexpected event %+v", got)
		}
		return nil
	})

	p := newKafkaPublisher(producer, "bookings", zap.NewNop())
	require.NoError(t, p.Publish(context.Background(), event))
}

func TestKafkaPublisher_SendFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	defer producer.Close()

	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := newKafkaPublisher(producer, "bookings", zap.NewNop())
	err := p.Publish(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.True(t, errors.Is(err, sarama.ErrOutOfBrokers))
}

func TestNewPublisher(t *testing.T) {
	for _, driver := range []string{"", "none"} {
		p, err := NewPublisher(utils.EventsConfig{Driver: driver}, zap.NewNop())
		require.NoError(t, err)
		assert.IsType(t, NopPublisher{}, p)
		assert.NoError(t, p.Publish(context.Background(), sampleEvent()))
		assert.NoError(t, p.Close())
	}

	_, err := NewPublisher(utils.EventsConfig{Driver: "carrier-pigeon"}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}

func TestBookingEvent_WireFormat(t *testing.T) {
	event := sampleEvent()

	body, err := json.Marshal(event)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(body, &fields))
	assert.Equal(t, "booking.confirmed", fields["type"])
	assert.Equal(t, event.ShowID.String(), fields["show_id"])
	assert.Equal(t, "BK-20260301-ABCD1234", fields["booking_code"])
	assert.EqualValues(t, 30, fields["total_price"])
	assert.Len(t, fields["seats"], 2)
}
