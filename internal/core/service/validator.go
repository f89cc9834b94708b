package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/orbitek/cargo-storage/internal/core/domain"
	"github.com/orbitek/cargo-storage/internal/port"
)

// ReferenceValidator gates every write path: each foreign reference on a
// command is confirmed against its owning service before any local mutation
// begins. There is no distributed transaction behind this gate - a confirmed
// entity can still disappear between validation and commit - so callers keep
// validation immediately ahead of the write and accept that gap.
type ReferenceValidator struct {
	ports map[domain.EntityKind]port.ValidationPort
}

func NewReferenceValidator(ports map[domain.EntityKind]port.ValidationPort) *ReferenceValidator {
	return &ReferenceValidator{ports: ports}
}

// RequireAll checks each reference in order and fails fast: the first
// missing entity aborts with *domain.ReferenceNotFoundError, the first
// indeterminate answer with *domain.ValidationUnavailableError. An
// indeterminate answer is never treated as confirmation.
func (v *ReferenceValidator) RequireAll(ctx context.Context, refs ...port.Ref) error {
	for _, ref := range refs {
		p, ok := v.ports[ref.Kind]
		if !ok {
			return fmt.Errorf("no validation port registered for kind %q", ref.Kind)
		}

		existence, err := p.Exists(ctx, ref.ID)
		switch existence {
		case port.ExistenceConfirmed:
			continue
		case port.ExistenceMissing:
			return &domain.ReferenceNotFoundError{Kind: ref.Kind, ID: ref.ID, Field: ref.Field}
		default:
			if err == nil {
				err = errors.New("indeterminate validation result")
			}
			return &domain.ValidationUnavailableError{Kind: ref.Kind, ID: ref.ID, Field: ref.Field, Err: err}
		}
	}
	return nil
}
