package kafka

//go:generate go run go.uber.org/mock/mockgen -source=./kafka.go -destination=./mocks/kafka_mock.go -package=mocks

import (
	"context"
	"encoding/json"
	"fmt"
	"lodge/config"
	"time"

	"github.com/rs/zerolog/log"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
)

const writeTimeout = 5 * time.Second

type Message struct {
	Key   string
	Value any
}

func (m *Message) ToKafkaMessage() (kafkaGo.Message, error) {
	jsonValue, err := json.Marshal(m.Value)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal message value to JSON")

		return kafkaGo.Message{}, fmt.Errorf("failed to marshal message value to JSON: %w", err)
	}

	return kafkaGo.Message{
		Key:   []byte(m.Key),
		Value: jsonValue,
	}, nil
}

type Client interface {
	SendMessages(ctx context.Context, topic string, messages ...Message) (err error)
	Close() error
}

type kafkaClientImpl struct {
	writer *kafkaGo.Writer
}

// New builds a writer shared by every topic; the topic is set per message.
func New(config *config.Config) Client {
	transport := &kafkaGo.Transport{}

	if config.Kafka.SASL.Username != "" {
		transport.SASL = plain.Mechanism{
			Username: config.Kafka.SASL.Username,
			Password: config.Kafka.SASL.Password,
		}
	}

	writer := &kafkaGo.Writer{
		Addr:                   kafkaGo.TCP(config.Kafka.Brokers...),
		Transport:              transport,
		Balancer:               &kafkaGo.Hash{},
		AllowAutoTopicCreation: true,
		WriteTimeout:           writeTimeout,
		RequiredAcks:           kafkaGo.RequireOne,
	}

	log.Info().Strs("brokers", config.Kafka.Brokers).Msg("Kafka client initialized")

	return &kafkaClientImpl{
		writer: writer,
	}
}

func (k *kafkaClientImpl) SendMessages(ctx context.Context, topic string, messages ...Message) (err error) {
	msgs := make([]kafkaGo.Message, 0, len(messages))

	for _, message := range messages {
		msg, err := message.ToKafkaMessage()
		if err != nil {
			log.Error().Err(err).Str("topic", topic).Msg("Failed to convert message to Kafka message.")

			return fmt.Errorf("failed to convert message to Kafka message: %w", err)
		}

		msg.Topic = topic
		msgs = append(msgs, msg)
	}

	err = k.writer.WriteMessages(ctx, msgs...)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to send message to Kafka.")

		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}

	log.Debug().Str("topic", topic).Int("count", len(msgs)).Msg("Sent message successfully.")

	return nil
}

func (k *kafkaClientImpl) Close() error {
	return k.writer.Close() //nolint:wrapcheck
}
