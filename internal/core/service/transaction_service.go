package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/orbitek/cargo-storage/internal/core/domain"
	"github.com/orbitek/cargo-storage/internal/port"
)

var ErrInvalidTransactionKind = errors.New("invalid transaction kind")

// TransactionService appends immutable movement records. It never touches
// the capacity ledger: capacity is owned by the allocator, and keeping the
// movement log out of that accounting avoids double counting.
type TransactionService struct {
	transactions port.TransactionRepository
	cache        port.CacheRepository
	validator    *ReferenceValidator
	logger       *zap.Logger
	tracer       trace.Tracer
}

func NewTransactionService(
	transactions port.TransactionRepository,
	cache port.CacheRepository,
	validator *ReferenceValidator,
	logger *zap.Logger,
) *TransactionService {
	return &TransactionService{
		transactions: transactions,
		cache:        cache,
		validator:    validator,
		logger:       logger,
		tracer:       otel.Tracer("cargo-storage/transaction"),
	}
}

type RecordTransactionCommand struct {
	Kind                domain.TransactionKind
	CargoID             string
	Quantity            int
	FromStorageUnitCode string
	ToStorageUnitCode   string
	FromSpacecraftID    string
	ToSpacecraftID      string
	PerformedByUserID   string
	Timestamp           time.Time
	ReasonCode          string
	RequestID           string
}

// refs lists exactly the populated references on the command; absent
// optional fields are skipped, present ones are always checked.
func (cmd RecordTransactionCommand) refs() []port.Ref {
	refs := []port.Ref{
		{Kind: domain.KindCargo, ID: cmd.CargoID, Field: "cargoId"},
	}
	if cmd.FromStorageUnitCode != "" {
		refs = append(refs, port.Ref{Kind: domain.KindStorageUnit, ID: cmd.FromStorageUnitCode, Field: "fromStorageUnitId"})
	}
	if cmd.ToStorageUnitCode != "" {
		refs = append(refs, port.Ref{Kind: domain.KindStorageUnit, ID: cmd.ToStorageUnitCode, Field: "toStorageUnitId"})
	}
	if cmd.FromSpacecraftID != "" {
		refs = append(refs, port.Ref{Kind: domain.KindSpacecraft, ID: cmd.FromSpacecraftID, Field: "fromSpacecraftId"})
	}
	if cmd.ToSpacecraftID != "" {
		refs = append(refs, port.Ref{Kind: domain.KindSpacecraft, ID: cmd.ToSpacecraftID, Field: "toSpacecraftId"})
	}
	refs = append(refs, port.Ref{Kind: domain.KindUser, ID: cmd.PerformedByUserID, Field: "performedByUserId"})
	return refs
}

func (s *TransactionService) Record(ctx context.Context, cmd RecordTransactionCommand) (*domain.InventoryTransaction, error) {
	ctx, span := s.tracer.Start(ctx, "transaction.record")
	defer span.End()

	if !cmd.Kind.Valid() {
		return nil, ErrInvalidTransactionKind
	}
	if cmd.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	if err := s.validator.RequireAll(ctx, cmd.refs()...); err != nil {
		return nil, err
	}

	// Claim idempotency only after validation so a rejected request can be
	// corrected and retried under the same request id.
	if cmd.RequestID != "" {
		ok, err := s.cache.SetIdempotency(ctx, "txn:"+cmd.RequestID)
		if err != nil {
			return nil, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return nil, domain.ErrDuplicateRequest
		}
	}

	occurredAt := cmd.Timestamp
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	rec := domain.InventoryTransaction{
		ID:                  uuid.NewString(),
		Kind:                cmd.Kind,
		CargoID:             cmd.CargoID,
		Quantity:            cmd.Quantity,
		FromStorageUnitCode: cmd.FromStorageUnitCode,
		ToStorageUnitCode:   cmd.ToStorageUnitCode,
		FromSpacecraftID:    cmd.FromSpacecraftID,
		ToSpacecraftID:      cmd.ToSpacecraftID,
		PerformedBy:         cmd.PerformedByUserID,
		OccurredAt:          occurredAt,
		ReasonCode:          cmd.ReasonCode,
		CreatedAt:           time.Now(),
	}

	if err := s.transactions.CreateTransaction(ctx, rec); err != nil {
		// Free the claim so the same request id can retry; otherwise the
		// failure would read as a duplicate of a record that never existed.
		if cmd.RequestID != "" {
			if relErr := s.cache.ReleaseIdempotency(ctx, "txn:"+cmd.RequestID); relErr != nil {
				s.logger.Warn("failed to release idempotency key",
					zap.String("request_id", cmd.RequestID), zap.Error(relErr))
			}
		}
		return nil, err
	}

	s.logger.Info("recorded inventory transaction",
		zap.String("id", rec.ID),
		zap.String("kind", string(rec.Kind)),
		zap.String("cargo", rec.CargoID),
		zap.Int("quantity", rec.Quantity))
	return &rec, nil
}

// UpdateReason changes the free-text reason code, the only field of a
// recorded movement that may be edited.
func (s *TransactionService) UpdateReason(ctx context.Context, id, reasonCode string) (*domain.InventoryTransaction, error) {
	if err := s.transactions.UpdateTransactionReason(ctx, id, reasonCode); err != nil {
		return nil, err
	}
	rec, err := s.transactions.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.ErrTransactionNotFound
	}
	return rec, nil
}

func (s *TransactionService) Get(ctx context.Context, id string) (*domain.InventoryTransaction, error) {
	rec, err := s.transactions.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.ErrTransactionNotFound
	}
	return rec, nil
}

func (s *TransactionService) List(ctx context.Context, limit int) ([]domain.InventoryTransaction, error) {
	return s.transactions.ListTransactions(ctx, limit)
}
