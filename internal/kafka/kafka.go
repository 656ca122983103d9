// Package kafka provides methods for initiating kafka-topics for the app and a kafka readiness-probing
package kafka

import (
	"context"
	"errors"
	"io"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/zlog"
)

// topicCreator - часть kafkago.Client, которая нужна для создания топиков
type topicCreator interface {
	CreateTopics(ctx context.Context, req *kafkago.CreateTopicsRequest) (*kafkago.CreateTopicsResponse, error)
}

var dial = func(ctx context.Context, brokerAddr string) (io.Closer, error) {
	return kafkago.DialContext(ctx, "tcp", brokerAddr)
}

// InitKafkaTopics - creates topics in kafka, existing ones are fine
func InitKafkaTopics(ctx context.Context, brokerAddr string, delay time.Duration, topics ...string) error {
	client := &kafkago.Client{
		Addr:    kafkago.TCP(brokerAddr),
		Timeout: 10 * time.Second,
	}
	return createTopics(ctx, client, delay, topics...)
}

func createTopics(ctx context.Context, client topicCreator, delay time.Duration, topics ...string) error {
	req := kafkago.CreateTopicsRequest{
		Topics: make([]kafkago.TopicConfig, 0, len(topics)),
	}

	for _, t := range topics {
		req.Topics = append(req.Topics, kafkago.TopicConfig{
			Topic:             t,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
	}

	for {
		resp, err := client.CreateTopics(ctx, &req)
		if err == nil {
			failed := 0
			for k, v := range resp.Errors {
				switch {
				case v == nil, errors.Is(v, kafkago.TopicAlreadyExists):
				default:
					failed++
					zlog.Logger.Error().Err(v).Str("topic", k).Msg("Topic creation error")
				}
			}
			if failed == 0 {
				zlog.Logger.Info().Strs("topics", topics).Msg("All topics created successfully!")
				return nil
			}
		} else {
			zlog.Logger.Warn().Err(err).Dur("delay", delay).Msg("Failed to run topics creation request, waiting before next try")
		}

		if err := sleepCtx(ctx, delay); err != nil {
			return err
		}
	}
}

// WaitKafkaReady - blocks until broker accepts connections or ctx is done
func WaitKafkaReady(ctx context.Context, brokerAddr string, delay time.Duration) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, err := dial(ctx, brokerAddr)
		if err == nil {
			if errConn := conn.Close(); errConn != nil {
				zlog.Logger.Warn().Err(errConn).Msg("Failed to close connection after testing Kafka readiness")
			}
			zlog.Logger.Info().Str("broker", brokerAddr).Msg("Kafka is ready!")
			return nil
		}

		zlog.Logger.Warn().Err(err).Dur("delay", delay).Msg("Kafka not ready, retrying...")
		if err := sleepCtx(ctx, delay); err != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
