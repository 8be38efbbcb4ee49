package event

//go:generate go run go.uber.org/mock/mockgen -source=./event.go -destination=./mocks/event_mock.go -package=mocks

import (
	"context"
	"lodge/config"
	"lodge/infras/kafka"
	"lodge/infras/otel"
	"lodge/shared/constant"
	"lodge/shared/timezone"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	HoldPlaced        = "room.hold.placed"
	HoldConfirmed     = "room.hold.confirmed"
	HoldCancelled     = "room.hold.cancelled"
	BookingCreated    = "booking.created"
	BookingCancelled  = "booking.cancelled"
	PaymentUpdated    = "booking.payment.updated"
	PaymentVerified   = "booking.payment.verified"
	publishTimeout    = 5 * time.Second
	otelAttrEventType = "event.type"
)

type Event struct {
	Type        string    `json:"type"`
	AggregateID string    `json:"aggregateId"`
	Actor       string    `json:"actor,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
	Payload     any       `json:"payload,omitempty"`
}

func New(eventType, aggregateID, actor string, payload any) Event {
	return Event{
		Type:        eventType,
		AggregateID: aggregateID,
		Actor:       actor,
		OccurredAt:  timezone.Now(),
		Payload:     payload,
	}
}

// Publisher emits domain events. Publish never blocks on the broker and never fails the caller.
type Publisher interface {
	Publish(ctx context.Context, evt Event)
}

type kafkaPublisher struct {
	client kafka.Client
	topic  string
	otel   otel.Otel
}

// NewPublisher falls back to a logging publisher when Kafka is disabled.
func NewPublisher(cfg *config.Config, client kafka.Client, otl otel.Otel) Publisher {
	if !cfg.Kafka.Enable || client == nil {
		return NewLogPublisher()
	}

	return &kafkaPublisher{
		client: client,
		topic:  cfg.Kafka.Topics.BookingEvents,
		otel:   otl,
	}
}

func (p *kafkaPublisher) Publish(ctx context.Context, evt Event) {
	ctx = context.WithoutCancel(ctx)

	go func() {
		ctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()

		ctx, scope := p.otel.NewScope(ctx, constant.OtelEventScopeName, constant.OtelEventScopeName+".Publish")
		defer scope.End()

		scope.SetAttribute(otelAttrEventType, evt.Type)

		err := p.client.SendMessages(ctx, p.topic, kafka.Message{Key: evt.AggregateID, Value: evt})
		if err != nil {
			scope.TraceError(err)
			log.Error().Err(err).Str("type", evt.Type).Str("aggregate", evt.AggregateID).Msg("failed to publish event")
		}
	}()
}

type logPublisher struct{}

func NewLogPublisher() Publisher {
	return logPublisher{}
}

func (logPublisher) Publish(_ context.Context, evt Event) {
	log.Debug().Str("type", evt.Type).Str("aggregate", evt.AggregateID).Msg("event emitted")
}
