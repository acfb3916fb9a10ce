package service

import (
	"context"
	"fmt"

	"leaf-kart/internal/events"
	"leaf-kart/internal/model"
	"leaf-kart/internal/repository"

	"github.com/rs/zerolog"
)

// transitioner applies one status change as a single transaction: the
// compare-and-set update and its audit row commit together or not at all.
type transitioner struct {
	orderRepo repository.OrderRepository
	publisher events.Publisher
	logger    zerolog.Logger
}

func (t *transitioner) apply(ctx context.Context, update *model.StatusUpdate, note *string) (order *model.Order, err error) {
	tx, err := t.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	committed := false
	defer func() {
		if err != nil && !committed {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				t.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	applied, err := t.orderRepo.UpdateStatus(ctx, tx, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}
	if !applied {
		err = t.conflict(ctx, update)
		return nil, err
	}

	from := update.From
	change := &model.StatusChange{
		OrderID:    update.OrderID,
		FromStatus: &from,
		ToStatus:   update.To,
		ChangedBy:  update.ChangedBy,
		ChangedAt:  update.At,
		Note:       note,
	}
	if err = t.orderRepo.InsertStatusChange(ctx, tx, change); err != nil {
		return nil, fmt.Errorf("failed to record status change: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		t.logger.Error().Err(err).Str("order_id", update.OrderID.String()).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to update order: %w", err)
	}
	committed = true

	t.logger.Info().
		Str("order_id", update.OrderID.String()).
		Str("from", string(update.From)).
		Str("to", string(update.To)).
		Str("changed_by", update.ChangedBy).
		Msg("order status changed")

	order, err = t.orderRepo.GetByID(ctx, update.OrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	t.publish(ctx, events.EventOrderStatusChanged, order, update.ChangedBy)
	return order, nil
}

// conflict explains a compare-and-set miss by looking at the current row.
func (t *transitioner) conflict(ctx context.Context, update *model.StatusUpdate) error {
	current, err := t.orderRepo.GetByID(ctx, update.OrderID)
	if err != nil {
		return fmt.Errorf("failed to reload order: %w", err)
	}
	if current == nil {
		return model.ErrOrderNotFound
	}

	t.logger.Warn().
		Str("order_id", update.OrderID.String()).
		Str("expected", string(update.From)).
		Str("actual", string(current.Status)).
		Msg("concurrent status change detected")

	if current.Status.IsTerminal() {
		return model.ErrAlreadyProcessed
	}
	return model.ErrStaleStatus
}

// publish sends an event after commit. Failures are logged only.
func (t *transitioner) publish(ctx context.Context, name string, order *model.Order, by string) {
	event := events.NewOrderEvent(name, order, by, order.UpdatedAt)
	if err := t.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		t.logger.Warn().
			Err(err).
			Str("order_id", order.ID.String()).
			Str("event", name).
			Msg("failed to publish order event")
	}
}
