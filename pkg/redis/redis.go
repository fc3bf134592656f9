package redis

import (
	"context"
	"fmt"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"os"
	"strconv"
	"time"
)

// Insert fan-out channels. Every committed row is announced on one of
// these; consumers must tolerate duplicate delivery.
const (
	ChannelDetectionInserted = "mineguard.detections.inserted"
	ChannelAlertInserted     = "mineguard.alerts.inserted"
)

type IRedis interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
	Ping(ctx context.Context) error
	Close() error
}

type redisClient struct {
	client *redis.Client
}

func New() IRedis {
	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	redisAddr := os.Getenv("REDIS_ADDRESS")
	redisPassword := os.Getenv("REDIS_PASSWORD")

	logrus.Info(fmt.Sprintf("Connecting to Redis at %s...", redisAddr))

	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		logrus.Error(fmt.Sprintf("Failed to connect to Redis: %v", err))
	} else {
		logrus.Info("Successfully connected to Redis")
	}

	return &redisClient{client: client}
}

func (r *redisClient) Publish(ctx context.Context, channel string, payload []byte) error {
	err := r.client.Publish(ctx, channel, payload).Err()
	if err != nil {
		logrus.Error(fmt.Sprintf("Error publishing to channel %s: %v", channel, err))
		return err
	}
	logrus.Debug(fmt.Sprintf("Published %d bytes to channel %s", len(payload), channel))
	return nil
}

// Subscribe returns a live subscription. The caller owns it and must call
// Close when done; receiving is done via pubsub.Channel().
func (r *redisClient) Subscribe(ctx context.Context, channels ...string) *redis.PubSub {
	logrus.Debug(fmt.Sprintf("Subscribing to channels %v", channels))
	return r.client.Subscribe(ctx, channels...)
}

func (r *redisClient) Ping(ctx context.Context) error {
	_, err := r.client.Ping(ctx).Result()
	return err
}

func (r *redisClient) Close() error {
	return r.client.Close()
}
