package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/terraincognita07/easypeasy/internal/logger"
)

type RedisBroker struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
	hub     *Hub
}

func NewRedisBroker(ctx context.Context, log *logger.Logger, addr string, channel string, hub *Hub) (*RedisBroker, error) {
	if log == nil {
		return nil, errors.New("logger required")
	}
	if hub == nil {
		return nil, errors.New("hub required")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("missing redis address")
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = "easypeasy:realtime"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisBroker{
		log:     log.With("component", "RedisBroker"),
		rdb:     rdb,
		channel: channel,
		hub:     hub,
	}, nil
}

func (broker *RedisBroker) Publish(ctx context.Context, event Event) error {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	raw, err := encodeEvent(event)
	if err != nil {
		return err
	}
	return broker.rdb.Publish(ctx, broker.channel, raw).Err()
}

func (broker *RedisBroker) Subscribe(ctx context.Context, filter Filter) (*Subscription, error) {
	return broker.hub.Subscribe(ctx, filter)
}

func (broker *RedisBroker) StartForwarder(ctx context.Context) error {
	sub := broker.rdb.Subscribe(ctx, broker.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok || msg == nil {
					_ = sub.Close()
					return
				}
				event, err := decodeEvent([]byte(msg.Payload))
				if err != nil {
					broker.log.Warn("bad realtime payload", "error", err)
					continue
				}
				broker.hub.Broadcast(event)
			}
		}
	}()

	return nil
}

func (broker *RedisBroker) Close() error {
	if broker == nil || broker.rdb == nil {
		return nil
	}
	return broker.rdb.Close()
}

func encodeEvent(event Event) ([]byte, error) {
	raw, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode realtime event: %w", err)
	}
	return raw, nil
}

func decodeEvent(raw []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(raw, &event); err != nil {
		return Event{}, fmt.Errorf("decode realtime event: %w", err)
	}
	if event.Table == "" || event.Type == "" {
		return Event{}, errors.New("realtime event missing table or type")
	}
	return event, nil
}
