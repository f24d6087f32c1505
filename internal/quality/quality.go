// Package quality implements the data-quality workflow: analyzing stored
// rows for fixable problems, applying operator-approved changes under an
// optimistic staleness guard, validating bulk payloads before insert, and
// reviewing user submissions.
//
// Proposals are never persisted. A change id re-derives from the row
// itself, so a proposal survives exactly as long as the row it was
// computed from stays unchanged.
package quality

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/forkful/backoffice/internal/registry"
	"github.com/forkful/backoffice/internal/resource"
)

var (
	// ErrResourceNotFound marks a change whose row disappeared between
	// analysis and apply.
	ErrResourceNotFound = errors.New("resource no longer exists")

	// ErrStaleChange marks a change whose recorded current value no
	// longer matches the stored row.
	ErrStaleChange = errors.New("stale change: value moved since analysis")

	// ErrValidationFailed rejects a submission whose payload does not
	// validate as the target resource type.
	ErrValidationFailed = errors.New("validation failed")
)

// Service runs the quality workflow on top of the resource manager. It
// opens its own transactions for apply and approve flows.
type Service struct {
	mgr      *resource.Manager
	reg      *registry.Registry
	places   PlaceLookup
	recorder resource.AuditRecorder
	validate *validator.Validate
	now      func() time.Time
}

// NewService wires the quality service. places and recorder may be nil;
// the analyzer and audit calls degrade gracefully without them.
func NewService(mgr *resource.Manager, places PlaceLookup, recorder resource.AuditRecorder) *Service {
	return &Service{
		mgr:      mgr,
		reg:      mgr.Registry(),
		places:   places,
		recorder: recorder,
		validate: validator.New(),
		now:      time.Now,
	}
}
