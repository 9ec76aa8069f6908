package kafka_test

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendibook/internal/infra/broker/kafka"
)

func TestProducer_Publish(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "dev.reservation.events.v1" {
			return errors.New("unexpected topic " + msg.Topic)
		}
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != "res-1" {
			return errors.New("unexpected key " + string(key))
		}
		if len(msg.Headers) != 2 || string(msg.Headers[0].Key) != "ce-id" || string(msg.Headers[1].Key) != "content-type" {
			return errors.New("headers not sorted")
		}
		return nil
	})

	producer := kafka.WithSyncProducer(mock)
	err := producer.Publish(context.Background(), "dev.reservation.events.v1", "res-1", []byte(`{"id":"1"}`), map[string]string{
		"content-type": "application/cloudevents+json",
		"ce-id":        "1",
	})
	require.NoError(t, err)
	require.NoError(t, producer.Close())
}

func TestProducer_PublishFailure(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	producer := kafka.WithSyncProducer(mock)
	err := producer.Publish(context.Background(), "topic", "key", []byte(`{}`), nil)
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, producer.Close())
}

func TestProducer_CancelledContext(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	producer := kafka.WithSyncProducer(mock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, producer.Publish(ctx, "topic", "key", nil, nil), context.Canceled)
	require.NoError(t, producer.Close())
}

func TestNewProducer_RequiresBrokers(t *testing.T) {
	_, err := kafka.NewProducer(nil, "vendibook")
	assert.Error(t, err)
}
