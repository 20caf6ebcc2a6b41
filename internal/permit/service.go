package permit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/permit-management/internal"
	"github.com/frahmantamala/permit-management/internal/authz"
	"github.com/frahmantamala/permit-management/internal/core/events"
)

// Repository interface defines the data access methods for permits. Finders
// return nil, nil for a missing or deleted permit.
type Repository interface {
	Create(ctx context.Context, p *Permit) error
	FindByID(ctx context.Context, id int64) (*Permit, error)
	FindByCode(ctx context.Context, code string) (*Permit, error)
	List(ctx context.Context, filter ListFilter) ([]*Permit, error)
	// Decide records d on the permit only while it is still pending and
	// returns the number of rows changed.
	Decide(ctx context.Context, id int64, d Decision) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
	Restore(ctx context.Context, id int64) (int64, error)
}

// Authorizer is the slice of authz.Guard the permit service relies on.
type Authorizer interface {
	RequirePermission(ctx context.Context, mode authz.Mode, names ...string) (int64, error)
	Can(ctx context.Context, mode authz.Mode, names ...string) (int64, bool, error)
}

// DepartmentDirectory answers whether a live department exists.
type DepartmentDirectory interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

type Service struct {
	repo        Repository
	guard       Authorizer
	departments DepartmentDirectory
	publisher   events.Publisher
	maxValidity time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// NewService creates a permit service. publisher may be nil; maxValidity of
// zero leaves the window length unbounded.
func NewService(repo Repository, guard Authorizer, departments DepartmentDirectory, publisher events.Publisher, maxValidity time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		guard:       guard,
		departments: departments,
		publisher:   publisher,
		maxValidity: maxValidity,
		logger:      logger,
		now:         time.Now,
	}
}

// Create records a pending permit requested by the current user.
func (s *Service) Create(ctx context.Context, dto CreatePermitDTO) (*Permit, error) {
	userID, err := s.guard.RequirePermission(ctx, authz.All, authz.PermitCreate)
	if err != nil {
		return nil, err
	}

	from, until, err := dto.Validate(s.maxValidity)
	if err != nil {
		s.logger.WarnContext(ctx, "permit validation failed", "error", err, "user_id", userID)
		return nil, err
	}

	exists, err := s.departments.Exists(ctx, dto.DepartmentID)
	if err != nil {
		return nil, fmt.Errorf("lookup department %d: %w", dto.DepartmentID, err)
	}
	if !exists {
		return nil, internal.NewValidationFieldError("department_id", "department does not exist", internal.ErrCodeDepartmentNotFound)
	}

	p := &Permit{
		FullName:         strings.TrimSpace(dto.FullName),
		EmployeeID:       strings.TrimSpace(dto.EmployeeID),
		DepartmentID:     dto.DepartmentID,
		Type:             dto.Type,
		Status:           StatusPending,
		Justification:    dto.Justification,
		ValidFrom:        from,
		ValidUntil:       until,
		RequestedBy:      userID,
		VerificationCode: uuid.NewString(),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		s.logger.ErrorContext(ctx, "failed to create permit", "error", err, "user_id", userID)
		return nil, fmt.Errorf("create permit: %w", err)
	}

	s.logger.InfoContext(ctx, "permit requested",
		"permit_id", p.ID,
		"user_id", userID,
		"department_id", p.DepartmentID,
		"type", p.Type)
	s.publish(ctx, events.NewPermitRequestedEvent(p.ID, p.DepartmentID, userID, p.Type))

	return p, nil
}

// List returns every permit to holders of permit:read and only the caller's
// own permits to everyone else.
func (s *Service) List(ctx context.Context, q ListQuery) ([]*Permit, error) {
	userID, canReadAll, err := s.guard.Can(ctx, authz.Any, authz.PermitRead)
	if err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if q.IncludeDeleted {
		if _, err := s.guard.RequirePermission(ctx, authz.All, authz.PermitRestore); err != nil {
			return nil, err
		}
	}

	limit, offset := q.page()
	filter := ListFilter{
		DepartmentID:   q.DepartmentID,
		Status:         q.Status,
		Type:           q.Type,
		From:           q.From,
		Until:          q.Until,
		IncludeDeleted: q.IncludeDeleted,
		Limit:          limit,
		Offset:         offset,
	}
	if !canReadAll || q.Mine {
		filter.RequestedBy = &userID
	}

	permits, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list permits", "error", err, "user_id", userID)
		return nil, fmt.Errorf("list permits: %w", err)
	}
	return permits, nil
}

// Get returns a permit to its requester, or to holders of permit:read or
// permit:get. Callers without either learn nothing about existence.
func (s *Service) Get(ctx context.Context, id int64) (*Permit, error) {
	userID, ok := internal.CurrentUserID(ctx)
	if !ok {
		return nil, internal.ErrUnauthenticated
	}

	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load permit %d: %w", id, err)
	}
	if p != nil && p.OwnedBy(userID) {
		return p, nil
	}

	if _, err := s.guard.RequirePermission(ctx, authz.Any, authz.PermitRead, authz.PermitGet); err != nil {
		return nil, err
	}
	if p == nil {
		return nil, internal.ErrPermitNotFound
	}
	return p, nil
}

// Decide approves or rejects a pending permit. The write is conditional on
// the permit still being pending, so concurrent deciders cannot both win.
func (s *Service) Decide(ctx context.Context, id int64, dto DecisionDTO) (*Permit, error) {
	deciderID, err := s.guard.RequirePermission(ctx, authz.All, authz.PermitApprove)
	if err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	var reason *string
	if dto.Reason != nil {
		trimmed := strings.TrimSpace(*dto.Reason)
		if trimmed != "" {
			reason = &trimmed
		}
	}
	decision := Decision{Approved: *dto.Approved, Reason: reason, DecidedBy: deciderID}

	affected, err := s.repo.Decide(ctx, id, decision)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to decide permit", "error", err, "permit_id", id)
		return nil, fmt.Errorf("decide permit %d: %w", id, err)
	}

	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load permit %d: %w", id, err)
	}
	if affected == 0 {
		if p == nil {
			return nil, internal.ErrPermitNotFound
		}
		return nil, internal.ErrPermitDecided
	}
	if p == nil {
		return nil, internal.ErrPermitNotFound
	}

	s.logger.InfoContext(ctx, "permit decided",
		"permit_id", id,
		"approved", decision.Approved,
		"decided_by", deciderID)
	s.publish(ctx, events.NewPermitDecidedEvent(id, decision.Approved, decision.Reason, deciderID))

	return p, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	userID, err := s.guard.RequirePermission(ctx, authz.All, authz.PermitDelete)
	if err != nil {
		return err
	}
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete permit %d: %w", id, err)
	}
	if affected == 0 {
		return internal.ErrPermitNotFound
	}
	s.logger.InfoContext(ctx, "permit deleted", "permit_id", id, "user_id", userID)
	return nil
}

// Restore un-deletes a soft-deleted permit.
func (s *Service) Restore(ctx context.Context, id int64) (*Permit, error) {
	userID, err := s.guard.RequirePermission(ctx, authz.All, authz.PermitRestore)
	if err != nil {
		return nil, err
	}
	affected, err := s.repo.Restore(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("restore permit %d: %w", id, err)
	}
	if affected == 0 {
		return nil, internal.ErrPermitNotFound
	}
	s.logger.InfoContext(ctx, "permit restored", "permit_id", id, "user_id", userID)

	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load permit %d: %w", id, err)
	}
	if p == nil {
		return nil, internal.ErrPermitNotFound
	}
	return p, nil
}

// Verify resolves a scanned verification code into a validity answer.
func (s *Service) Verify(ctx context.Context, code string) (*Verification, error) {
	userID, err := s.guard.RequirePermission(ctx, authz.All, authz.PermitVerify)
	if err != nil {
		return nil, err
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return nil, internal.NewValidationFieldError("code", "code is required", internal.ErrCodeValidationFailed)
	}

	p, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("load permit by code: %w", err)
	}
	if p == nil {
		s.logger.WarnContext(ctx, "unknown permit code presented", "user_id", userID)
		return nil, internal.ErrPermitNotFound
	}

	now := s.now()
	v := &Verification{Permit: p, Status: p.Status, Valid: p.ValidAt(now)}
	switch {
	case v.Valid:
	case p.Status != StatusApproved:
		v.Detail = "permit is " + p.Status
	case now.Before(p.ValidFrom):
		v.Detail = "permit is not yet valid"
	default:
		v.Detail = "permit has expired"
	}

	s.logger.InfoContext(ctx, "permit verified",
		"permit_id", p.ID,
		"valid", v.Valid,
		"verified_by", userID)
	return v, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event", "event_type", event.EventType(), "error", err)
	}
}
