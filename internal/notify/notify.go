package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"motionportal/internal/config"
	"motionportal/internal/domain"
	"motionportal/internal/logger"
)

// Notifier рассылает события ревью после коммита
type Notifier interface {
	Publish(ctx context.Context, event domain.ReviewEvent) error
	Close() error
}

// New без адреса Redis возвращает Nop
func New(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (Notifier, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		log.Info("redis address not configured, review events disabled")
		return Nop{}, nil
	}
	return NewRedisNotifier(ctx, cfg.Addr, cfg.Channel, log)
}

type Nop struct{}

func (Nop) Publish(context.Context, domain.ReviewEvent) error { return nil }
func (Nop) Close() error                                      { return nil }

type RedisNotifier struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewRedisNotifier(ctx context.Context, addr, channel string, log *logger.Logger) (*RedisNotifier, error) {
	if channel == "" {
		channel = "review-events"
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

	return &RedisNotifier{
		log:     log.With("component", "notify"),
		rdb:     rdb,
		channel: channel,
	}, nil
}

func (n *RedisNotifier) Publish(ctx context.Context, event domain.ReviewEvent) error {
	raw, err := encode(event)
	if err != nil {
		return err
	}
	if err := n.rdb.Publish(ctx, n.channel, raw).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	n.log.Debug("review event published", "type", event.Type, "deliverable", event.DeliverableID)
	return nil
}

// Subscribe передает события канала в onEvent, пока не отменен ctx
func (n *RedisNotifier) Subscribe(ctx context.Context, onEvent func(domain.ReviewEvent)) error {
	if onEvent == nil {
		return fmt.Errorf("onEvent callback required")
	}

	sub := n.rdb.Subscribe(ctx, n.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				event, err := decode([]byte(m.Payload))
				if err != nil {
					n.log.Warn("bad review event payload", "error", err)
					continue
				}
				onEvent(event)
			}
		}
	}()

	return nil
}

func (n *RedisNotifier) Close() error {
	return n.rdb.Close()
}

func encode(event domain.ReviewEvent) ([]byte, error) {
	raw, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to encode review event: %w", err)
	}
	return raw, nil
}

func decode(raw []byte) (domain.ReviewEvent, error) {
	var event domain.ReviewEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return domain.ReviewEvent{}, fmt.Errorf("failed to decode review event: %w", err)
	}
	if event.Type == "" {
		return domain.ReviewEvent{}, fmt.Errorf("failed to decode review event: missing type")
	}
	return event, nil
}
