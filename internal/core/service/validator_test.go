package service

import (
	"context"
	"errors"
	"testing"

	"github.com/orbitek/cargo-storage/internal/core/domain"
	"github.com/orbitek/cargo-storage/internal/port"
)

func TestRequireAll_AllConfirmed(t *testing.T) {
	cargo := confirmedPort()
	users := confirmedPort()
	v := NewReferenceValidator(map[domain.EntityKind]port.ValidationPort{
		domain.KindCargo: cargo,
		domain.KindUser:  users,
	})

	err := v.RequireAll(context.Background(),
		port.Ref{Kind: domain.KindCargo, ID: "crate", Field: "cargoId"},
		port.Ref{Kind: domain.KindUser, ID: "user-1", Field: "performedByUserId"},
	)
	if err != nil {
		t.Fatalf("expected success, got: %v", err)
	}
	if cargo.callCount() != 1 || users.callCount() != 1 {
		t.Errorf("expected one check per ref, got cargo=%d users=%d", cargo.callCount(), users.callCount())
	}
}

func TestRequireAll_FailFastOnMissing(t *testing.T) {
	cargo := &stubPort{result: port.ExistenceMissing}
	users := confirmedPort()
	v := NewReferenceValidator(map[domain.EntityKind]port.ValidationPort{
		domain.KindCargo: cargo,
		domain.KindUser:  users,
	})

	err := v.RequireAll(context.Background(),
		port.Ref{Kind: domain.KindCargo, ID: "ghost", Field: "cargoId"},
		port.Ref{Kind: domain.KindUser, ID: "user-1", Field: "performedByUserId"},
	)

	var notFound *domain.ReferenceNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ReferenceNotFoundError, got: %v", err)
	}
	if notFound.Kind != domain.KindCargo || notFound.ID != "ghost" || notFound.Field != "cargoId" {
		t.Errorf("error does not identify the failed ref: %+v", notFound)
	}
	if users.callCount() != 0 {
		t.Errorf("validation continued past first failure, user checks=%d", users.callCount())
	}
}

func TestRequireAll_UnknownIsNotConfirmation(t *testing.T) {
	users := &stubPort{result: port.ExistenceUnknown, err: errors.New("connection refused")}
	v := NewReferenceValidator(map[domain.EntityKind]port.ValidationPort{
		domain.KindUser: users,
	})

	err := v.RequireAll(context.Background(),
		port.Ref{Kind: domain.KindUser, ID: "user-1", Field: "performedByUserId"},
	)

	var unavailable *domain.ValidationUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected ValidationUnavailableError, got: %v", err)
	}
	// Callers branch on this distinction: 422 vs 503 at the boundary.
	var notFound *domain.ReferenceNotFoundError
	if errors.As(err, &notFound) {
		t.Error("unavailable must not satisfy ReferenceNotFoundError")
	}
	if unavailable.Unwrap() == nil {
		t.Error("expected wrapped transport error")
	}
}

func TestRequireAll_UnknownWithoutError(t *testing.T) {
	// A port returning Unknown with a nil error still blocks the write.
	users := &stubPort{result: port.ExistenceUnknown}
	v := NewReferenceValidator(map[domain.EntityKind]port.ValidationPort{
		domain.KindUser: users,
	})

	err := v.RequireAll(context.Background(),
		port.Ref{Kind: domain.KindUser, ID: "user-1", Field: "performedByUserId"},
	)
	var unavailable *domain.ValidationUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected ValidationUnavailableError, got: %v", err)
	}
}

func TestRequireAll_UnregisteredKind(t *testing.T) {
	v := NewReferenceValidator(map[domain.EntityKind]port.ValidationPort{})

	err := v.RequireAll(context.Background(),
		port.Ref{Kind: domain.KindSpacecraft, ID: "ship-1", Field: "spacecraftId"},
	)
	if err == nil {
		t.Fatal("expected error for unregistered kind")
	}
}

func TestRequireAll_OrderPreserved(t *testing.T) {
	// Both refs would fail; the first one in argument order wins.
	cargo := &stubPort{result: port.ExistenceMissing}
	users := &stubPort{result: port.ExistenceMissing}
	v := NewReferenceValidator(map[domain.EntityKind]port.ValidationPort{
		domain.KindCargo: cargo,
		domain.KindUser:  users,
	})

	err := v.RequireAll(context.Background(),
		port.Ref{Kind: domain.KindUser, ID: "user-1", Field: "performedByUserId"},
		port.Ref{Kind: domain.KindCargo, ID: "crate", Field: "cargoId"},
	)
	var notFound *domain.ReferenceNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ReferenceNotFoundError, got: %v", err)
	}
	if notFound.Kind != domain.KindUser {
		t.Errorf("expected first ref to fail, got kind %s", notFound.Kind)
	}
	if cargo.callCount() != 0 {
		t.Error("second ref checked after first failed")
	}
}
