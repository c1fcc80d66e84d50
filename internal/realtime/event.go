package realtime

import (
	"context"
	"time"
)

const (
	TableDailyMessages = "daily_messages"
	TableUserPoints    = "user_points"

	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
)

type Event struct {
	Table   string    `json:"table"`
	Type    string    `json:"type"`
	UserID  string    `json:"user_id"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}

type Filter struct {
	Table  string
	UserID string
}

func (filter Filter) Matches(event Event) bool {
	if filter.Table != "" && filter.Table != event.Table {
		return false
	}
	if filter.UserID != "" && filter.UserID != event.UserID {
		return false
	}
	return true
}

type Broker interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(ctx context.Context, filter Filter) (*Subscription, error)
}
