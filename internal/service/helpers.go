package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/mission-service/internal/consistency"
	"github.com/spec-kit/mission-service/internal/events"
	"github.com/spec-kit/mission-service/internal/repository"
	apperrors "github.com/spec-kit/mission-service/pkg/util"
)

// storageError folds storage failures into the same errors the consistency
// pre-checks produce. Serialization failures are returned untouched so the
// TxManager can replay the unit of work; finalError maps them once nothing
// will retry.
func storageError(err error) error {
	if err == nil {
		return nil
	}
	if repository.IsSerializationFailure(err) {
		return err
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if v, ok := consistency.FromStorageError(err); ok {
		return v.DomainError()
	}
	return apperrors.NewInternalError(err)
}

// finalError maps an error leaving the service: the result of WithinTx,
// including a failed commit, or of a read made outside a transaction.
func finalError(err error) error {
	if err == nil {
		return nil
	}
	if repository.IsSerializationFailure(err) {
		v, _ := consistency.FromStorageError(err)
		return v.DomainError()
	}
	return storageError(err)
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func lookupError(err error, resource, id string) error {
	if isNoRows(err) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return storageError(err)
}

// violationOrError returns the violation as a DomainError, or err.
func violationOrError(v *consistency.Violation, err error) error {
	if err != nil {
		return storageError(err)
	}
	if v != nil {
		return v.DomainError()
	}
	return nil
}

// publish emits events after a committed write. Failures are logged; the
// write itself already succeeded.
func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, evts ...events.Event) {
	if dispatcher == nil {
		return
	}
	for _, event := range evts {
		if err := dispatcher.Publish(ctx, event); err != nil {
			logger.Error("event handlers failed",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)),
				zap.String("target_id", event.TargetID),
				zap.Error(err))
		}
	}
}

func stringValue(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
