package amqp

import (
	"context"
	"encoding/json"
	"time"

	"housefund/internal/core"
)

// PledgeEvent notifies downstream consumers that a pledge was written.
// It carries the merged record plus the fund total so consumers don't
// need a storage read for the common case.
type PledgeEvent struct {
	PledgeID    string    `json:"pledge_id"`
	Name        string    `json:"name"`
	Room        string    `json:"room"`
	AmountCents int64     `json:"amount_cents"`
	TotalCents  int64     `json:"total_cents"`
	Timestamp   time.Time `json:"timestamp"`
}

// ToJSON converts the event to JSON bytes
func (e *PledgeEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// PledgeEventFromJSON creates an event from JSON bytes
func PledgeEventFromJSON(data []byte) (*PledgeEvent, error) {
	var ev PledgeEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// PublishPledgeSaved implements store.EventPublisher.
func (c *Client) PublishPledgeSaved(ctx context.Context, pledge core.Pledge, total core.Money) error {
	return c.Publish(ctx, &PledgeEvent{
		PledgeID:    pledge.ID,
		Name:        pledge.Name,
		Room:        string(pledge.Room),
		AmountCents: pledge.Amount.Cents,
		TotalCents:  total.Cents,
		Timestamp:   pledge.Timestamp,
	})
}
