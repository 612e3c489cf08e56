package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/classtrack/classtrack-api/pkg/config"
	"github.com/classtrack/classtrack-api/pkg/realtime"
)

// changePayload is the JSON emitted by the classtrack_notify_change trigger.
type changePayload struct {
	Table string `json:"table"`
	Op    string `json:"op"`
}

// ParseNotification converts a trigger payload into a realtime event.
func ParseNotification(payload string, at time.Time) (realtime.Event, error) {
	var p changePayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return realtime.Event{}, fmt.Errorf("decode change payload: %w", err)
	}
	if p.Table == "" {
		return realtime.Event{}, fmt.Errorf("change payload without table: %q", payload)
	}
	return realtime.Event{Collection: p.Table, Op: p.Op, At: at.UTC()}, nil
}

// ChangeListener bridges Postgres LISTEN/NOTIFY into a realtime notifier.
type ChangeListener struct {
	listener  *pq.Listener
	channel   string
	keepAlive time.Duration
	sink      realtime.Notifier
	logger    *zap.Logger
}

// NewChangeListener opens a pq.Listener on the configured channel.
func NewChangeListener(db config.DatabaseConfig, cfg config.RealtimeConfig, sink realtime.Notifier, logger *zap.Logger) (*ChangeListener, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &ChangeListener{channel: cfg.Channel, keepAlive: cfg.KeepAliveInterval, sink: sink, logger: logger}
	if l.keepAlive <= 0 {
		l.keepAlive = 90 * time.Second
	}

	l.listener = pq.NewListener(DSN(db), cfg.MinReconnect, cfg.MaxReconnect, l.onEvent)
	if err := l.listener.Listen(cfg.Channel); err != nil {
		_ = l.listener.Close()
		return nil, fmt.Errorf("listen %s: %w", cfg.Channel, err)
	}
	return l, nil
}

func (l *ChangeListener) onEvent(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventConnectionAttemptFailed:
		l.logger.Warn("change feed connection attempt failed", zap.Error(err))
	case pq.ListenerEventDisconnected:
		l.logger.Warn("change feed disconnected", zap.Error(err))
	case pq.ListenerEventReconnected:
		l.logger.Info("change feed reconnected", zap.String("channel", l.channel))
	}
}

// Run forwards notifications until ctx is done.
func (l *ChangeListener) Run(ctx context.Context) {
	ticker := time.NewTicker(l.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case n := <-l.listener.Notify:
			if n == nil {
				// Notifications may have been lost while reconnecting.
				now := time.Now().UTC()
				for _, collection := range realtime.Collections() {
					l.sink.Publish(realtime.Event{Collection: collection, Op: realtime.OpResync, At: now})
				}
				continue
			}
			evt, err := ParseNotification(n.Extra, time.Now())
			if err != nil {
				l.logger.Warn("ignoring malformed change notification", zap.Error(err))
				continue
			}
			l.sink.Publish(evt)
		case <-ticker.C:
			go func() {
				if err := l.listener.Ping(); err != nil {
					l.logger.Warn("change feed ping failed", zap.Error(err))
				}
			}()
		}
	}
}

// Close stops listening.
func (l *ChangeListener) Close() error {
	return l.listener.Close()
}
