// Package events publishes status changes after they commit. Delivery is
// best effort: subscribers must tolerate gaps.
package events

import (
	"context"
	"time"
)

const (
	ChannelRepairs      = "tajer.repairs"
	ChannelReservations = "tajer.reservations"
	ChannelOrders       = "tajer.orders"
)

const (
	TypeRepairStatusChanged      = "repair_status_changed"
	TypeReservationStatusChanged = "reservation_status_changed"
	TypePayoutReleased           = "payout_released"
	TypeOrderReserved            = "order_reserved"
)

type Event struct {
	Type     string         `json:"type"`
	EntityID int64          `json:"entity_id"`
	From     string         `json:"from,omitempty"`
	To       string         `json:"to,omitempty"`
	Event    string         `json:"event,omitempty"`
	Payload  map[string]any `json:"payload,omitempty"`
	At       time.Time      `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, channel string, event Event) error
}

// NopPublisher drops every event. It is used when Redis is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, Event) error { return nil }
