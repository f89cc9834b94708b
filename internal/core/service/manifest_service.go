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

var (
	ErrInvalidManifestStatus   = errors.New("invalid manifest status")
	ErrInvalidManifestPriority = errors.New("invalid manifest priority")
)

// ManifestService holds the load/unload manifest lifecycle. Updates are
// merge-not-replace: fields present on the command overwrite, absent fields
// keep their prior value.
type ManifestService struct {
	manifests port.ManifestRepository
	validator *ReferenceValidator
	logger    *zap.Logger
	tracer    trace.Tracer
}

func NewManifestService(manifests port.ManifestRepository, validator *ReferenceValidator, logger *zap.Logger) *ManifestService {
	return &ManifestService{
		manifests: manifests,
		validator: validator,
		logger:    logger,
		tracer:    otel.Tracer("cargo-storage/manifest"),
	}
}

type CreateManifestCommand struct {
	SpacecraftID     string
	CargoID          string
	StorageUnitCode  string
	Quantity         int
	LoadedByUserID   string
	UnloadedByUserID string
	Status           domain.ManifestStatus
	Priority         domain.ManifestPriority
}

type UpdateManifestCommand struct {
	ID               string
	SpacecraftID     *string
	CargoID          *string
	StorageUnitCode  *string
	Quantity         *int
	LoadedAt         *time.Time
	UnloadedAt       *time.Time
	LoadedByUserID   *string
	UnloadedByUserID *string
	Status           *domain.ManifestStatus
	Priority         *domain.ManifestPriority
}

func (s *ManifestService) Create(ctx context.Context, cmd CreateManifestCommand) (*domain.CargoManifest, error) {
	ctx, span := s.tracer.Start(ctx, "manifest.create")
	defer span.End()

	if cmd.Quantity < 0 {
		return nil, ErrInvalidQuantity
	}

	status := cmd.Status
	if status == "" {
		status = domain.ManifestStatusPending
	} else if !status.Valid() {
		return nil, ErrInvalidManifestStatus
	}

	priority := cmd.Priority
	if priority == "" {
		priority = domain.ManifestPriorityNormal
	} else if !priority.Valid() {
		return nil, ErrInvalidManifestPriority
	}

	refs := []port.Ref{
		{Kind: domain.KindSpacecraft, ID: cmd.SpacecraftID, Field: "spacecraftId"},
		{Kind: domain.KindCargo, ID: cmd.CargoID, Field: "cargoId"},
		{Kind: domain.KindStorageUnit, ID: cmd.StorageUnitCode, Field: "storageUnitId"},
		{Kind: domain.KindUser, ID: cmd.LoadedByUserID, Field: "loadedByUserId"},
	}
	if cmd.UnloadedByUserID != "" {
		refs = append(refs, port.Ref{Kind: domain.KindUser, ID: cmd.UnloadedByUserID, Field: "unloadedByUserId"})
	}
	if err := s.validator.RequireAll(ctx, refs...); err != nil {
		return nil, err
	}

	now := time.Now()
	m := domain.CargoManifest{
		ID:              uuid.NewString(),
		SpacecraftID:    cmd.SpacecraftID,
		CargoID:         cmd.CargoID,
		StorageUnitCode: cmd.StorageUnitCode,
		Quantity:        cmd.Quantity,
		LoadedBy:        cmd.LoadedByUserID,
		UnloadedBy:      cmd.UnloadedByUserID,
		Status:          status,
		Priority:        priority,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.manifests.CreateManifest(ctx, m); err != nil {
		return nil, err
	}

	s.logger.Info("created manifest",
		zap.String("id", m.ID),
		zap.String("spacecraft", m.SpacecraftID),
		zap.String("status", string(m.Status)))
	return &m, nil
}

// Update validates every reference present on the command, including ones
// whose value is unchanged, then merges field by field onto the stored
// manifest. No transition table is enforced between statuses.
func (s *ManifestService) Update(ctx context.Context, cmd UpdateManifestCommand) (*domain.CargoManifest, error) {
	ctx, span := s.tracer.Start(ctx, "manifest.update")
	defer span.End()

	existing, err := s.manifests.GetManifest(ctx, cmd.ID)
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}
	if existing == nil {
		return nil, domain.ErrManifestNotFound
	}

	if cmd.Quantity != nil && *cmd.Quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	if cmd.Status != nil && !cmd.Status.Valid() {
		return nil, ErrInvalidManifestStatus
	}
	if cmd.Priority != nil && !cmd.Priority.Valid() {
		return nil, ErrInvalidManifestPriority
	}

	var refs []port.Ref
	if cmd.SpacecraftID != nil {
		refs = append(refs, port.Ref{Kind: domain.KindSpacecraft, ID: *cmd.SpacecraftID, Field: "spacecraftId"})
	}
	if cmd.CargoID != nil {
		refs = append(refs, port.Ref{Kind: domain.KindCargo, ID: *cmd.CargoID, Field: "cargoId"})
	}
	if cmd.StorageUnitCode != nil {
		refs = append(refs, port.Ref{Kind: domain.KindStorageUnit, ID: *cmd.StorageUnitCode, Field: "storageUnitId"})
	}
	if cmd.LoadedByUserID != nil {
		refs = append(refs, port.Ref{Kind: domain.KindUser, ID: *cmd.LoadedByUserID, Field: "loadedByUserId"})
	}
	if cmd.UnloadedByUserID != nil {
		refs = append(refs, port.Ref{Kind: domain.KindUser, ID: *cmd.UnloadedByUserID, Field: "unloadedByUserId"})
	}
	if err := s.validator.RequireAll(ctx, refs...); err != nil {
		return nil, err
	}

	merged := mergeManifest(*existing, cmd)
	merged.UpdatedAt = time.Now()

	if err := s.manifests.SaveManifest(ctx, merged); err != nil {
		return nil, err
	}
	return &merged, nil
}

// mergeManifest applies only the fields set on the command onto a copy of
// the stored entity. Explicit per-field merge, no reflection.
func mergeManifest(m domain.CargoManifest, cmd UpdateManifestCommand) domain.CargoManifest {
	if cmd.SpacecraftID != nil {
		m.SpacecraftID = *cmd.SpacecraftID
	}
	if cmd.CargoID != nil {
		m.CargoID = *cmd.CargoID
	}
	if cmd.StorageUnitCode != nil {
		m.StorageUnitCode = *cmd.StorageUnitCode
	}
	if cmd.Quantity != nil {
		m.Quantity = *cmd.Quantity
	}
	if cmd.LoadedAt != nil {
		m.LoadedAt = *cmd.LoadedAt
	}
	if cmd.UnloadedAt != nil {
		m.UnloadedAt = *cmd.UnloadedAt
	}
	if cmd.LoadedByUserID != nil {
		m.LoadedBy = *cmd.LoadedByUserID
	}
	if cmd.UnloadedByUserID != nil {
		m.UnloadedBy = *cmd.UnloadedByUserID
	}
	if cmd.Status != nil {
		m.Status = *cmd.Status
	}
	if cmd.Priority != nil {
		m.Priority = *cmd.Priority
	}
	return m
}

func (s *ManifestService) Get(ctx context.Context, id string) (*domain.CargoManifest, error) {
	m, err := s.manifests.GetManifest(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, domain.ErrManifestNotFound
	}
	return m, nil
}

func (s *ManifestService) ListBySpacecraft(ctx context.Context, spacecraftID string) ([]domain.CargoManifest, error) {
	return s.manifests.ListManifestsBySpacecraft(ctx, spacecraftID)
}
