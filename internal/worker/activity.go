// Package worker consumes pledge events and reports fund activity.
package worker

import (
	"context"
	"fmt"

	"housefund/internal/amqp"
	"housefund/internal/core"
	applog "housefund/internal/log"
)

// SetLoader is the slice of the pledge store the worker needs.
type SetLoader interface {
	Load(ctx context.Context) (*core.PledgeSet, error)
}

// ActivityWorker turns pledge events into fund activity snapshots:
// each event triggers a fresh read and a structured log line with the
// fund state housemates care about.
type ActivityWorker struct {
	pledges SetLoader
	target  core.Money
	logger  *applog.Logger
}

func NewActivityWorker(pledges SetLoader, target core.Money, logger *applog.Logger) *ActivityWorker {
	return &ActivityWorker{
		pledges: pledges,
		target:  target,
		logger:  logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleEvent processes one pledge event. Returning an error requeues
// the event.
func (w *ActivityWorker) HandleEvent(ev *amqp.PledgeEvent) error {
	ctx := context.Background()

	set, err := w.pledges.Load(ctx)
	if err != nil {
		return fmt.Errorf("load pledge set: %w", err)
	}

	byRoom := core.TotalsByRoom(set)
	w.logger.InfoContext(ctx, "Fund activity",
		applog.FieldPledgeID, ev.PledgeID,
		applog.FieldName, ev.Name,
		applog.FieldRoom, ev.Room,
		applog.FieldAmountCents, ev.AmountCents,
		applog.FieldTotalCents, set.Total().Cents,
		"remaining_cents", set.Remaining(w.target).Cents,
		"progress_pct", core.Progress(set, w.target),
		"bathroom_cents", byRoom[core.Bathroom].Cents,
		"kitchen_cents", byRoom[core.Kitchen].Cents,
		"lounge_cents", byRoom[core.Lounge].Cents,
		"contributors", len(core.TotalsByPerson(set)))

	return nil
}
