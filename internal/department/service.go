package department

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/frahmantamala/permit-management/internal"
	"github.com/frahmantamala/permit-management/internal/authz"
	"github.com/frahmantamala/permit-management/internal/store"
)

// RepositoryAPI is the department data access. Finders return nil, nil for
// a missing or deleted department.
type RepositoryAPI interface {
	Create(ctx context.Context, d *Department) error
	FindByID(ctx context.Context, id int64) (*Department, error)
	FindByName(ctx context.Context, name string) (*Department, error)
	// List returns live departments; ids narrows the result when non-nil.
	List(ctx context.Context, ids []int64, limit, offset int) ([]*Department, error)
	Update(ctx context.Context, id int64, values store.Values) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
	Restore(ctx context.Context, id int64) (int64, error)
	Exists(ctx context.Context, id int64) (bool, error)

	MemberDepartmentIDs(ctx context.Context, userID int64) ([]int64, error)
	IsMember(ctx context.Context, userID, departmentID int64) (bool, error)
	UserExists(ctx context.Context, userID int64) (bool, error)
	AddMember(ctx context.Context, userID, departmentID int64) error
	RemoveMember(ctx context.Context, userID, departmentID int64) (int64, error)
}

type Authorizer interface {
	RequirePermission(ctx context.Context, mode authz.Mode, names ...string) (int64, error)
	Can(ctx context.Context, mode authz.Mode, names ...string) (int64, bool, error)
}

type Service struct {
	repo   RepositoryAPI
	guard  Authorizer
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, guard Authorizer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		guard:  guard,
		logger: logger,
	}
}

// List returns every department to holders of department:read; members
// without it see the departments they belong to.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*Department, error) {
	userID, canReadAll, err := s.guard.Can(ctx, authz.Any, authz.DepartmentRead)
	if err != nil {
		return nil, err
	}

	var ids []int64
	if !canReadAll {
		ids, err = s.repo.MemberDepartmentIDs(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("load memberships: %w", err)
		}
		if len(ids) == 0 {
			return []*Department{}, nil
		}
	}

	departments, err := s.repo.List(ctx, ids, limit, offset)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list departments", "error", err, "user_id", userID)
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return departments, nil
}

// Get returns a department to its members, or to holders of department:read
// or department:get.
func (s *Service) Get(ctx context.Context, id int64) (*Department, error) {
	userID, ok := internal.CurrentUserID(ctx)
	if !ok {
		return nil, internal.ErrUnauthenticated
	}

	member, err := s.repo.IsMember(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if !member {
		if _, err := s.guard.RequirePermission(ctx, authz.Any, authz.DepartmentRead, authz.DepartmentGet); err != nil {
			return nil, err
		}
	}

	return s.load(ctx, id)
}

func (s *Service) Create(ctx context.Context, dto CreateDepartmentDTO) (*Department, error) {
	userID, err := s.guard.RequirePermission(ctx, authz.All, authz.DepartmentCreate)
	if err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	name := normalizeName(dto.Name)
	if err := s.ensureNameFree(ctx, name, 0); err != nil {
		return nil, err
	}

	d := NewDepartment(name, strings.TrimSpace(dto.Description))
	if err := s.repo.Create(ctx, d); err != nil {
		s.logger.ErrorContext(ctx, "failed to create department", "error", err, "name", name)
		return nil, fmt.Errorf("create department: %w", err)
	}

	s.logger.InfoContext(ctx, "department created", "department_id", d.ID, "user_id", userID)
	return d, nil
}

func (s *Service) Update(ctx context.Context, id int64, dto UpdateDepartmentDTO) (*Department, error) {
	userID, err := s.guard.RequirePermission(ctx, authz.All, authz.DepartmentUpdate)
	if err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	values := store.Values{}
	if dto.Name != nil {
		name := normalizeName(*dto.Name)
		if err := s.ensureNameFree(ctx, name, id); err != nil {
			return nil, err
		}
		values["name"] = name
	}
	if dto.Description != nil {
		values["description"] = strings.TrimSpace(*dto.Description)
	}

	affected, err := s.repo.Update(ctx, id, values)
	if err != nil {
		return nil, fmt.Errorf("update department %d: %w", id, err)
	}
	if affected == 0 {
		return nil, internal.ErrDepartmentNotFound
	}

	s.logger.InfoContext(ctx, "department updated", "department_id", id, "user_id", userID)
	return s.load(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	userID, err := s.guard.RequirePermission(ctx, authz.All, authz.DepartmentDelete)
	if err != nil {
		return err
	}
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete department %d: %w", id, err)
	}
	if affected == 0 {
		return internal.ErrDepartmentNotFound
	}
	s.logger.InfoContext(ctx, "department deleted", "department_id", id, "user_id", userID)
	return nil
}

func (s *Service) Restore(ctx context.Context, id int64) (*Department, error) {
	userID, err := s.guard.RequirePermission(ctx, authz.All, authz.DepartmentRestore)
	if err != nil {
		return nil, err
	}
	affected, err := s.repo.Restore(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("restore department %d: %w", id, err)
	}
	if affected == 0 {
		return nil, internal.ErrDepartmentNotFound
	}
	s.logger.InfoContext(ctx, "department restored", "department_id", id, "user_id", userID)
	return s.load(ctx, id)
}

// AddMember puts a user into a department. Adding an existing member is a
// no-op.
func (s *Service) AddMember(ctx context.Context, departmentID int64, dto MemberDTO) error {
	actorID, err := s.guard.RequirePermission(ctx, authz.All, authz.DepartmentUpdate)
	if err != nil {
		return err
	}
	if err := dto.Validate(); err != nil {
		return err
	}
	if _, err := s.load(ctx, departmentID); err != nil {
		return err
	}

	exists, err := s.repo.UserExists(ctx, dto.UserID)
	if err != nil {
		return fmt.Errorf("lookup user %d: %w", dto.UserID, err)
	}
	if !exists {
		return internal.ErrUserNotFound
	}

	member, err := s.repo.IsMember(ctx, dto.UserID, departmentID)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if member {
		return nil
	}
	if err := s.repo.AddMember(ctx, dto.UserID, departmentID); err != nil {
		return fmt.Errorf("add member: %w", err)
	}

	s.logger.InfoContext(ctx, "department member added",
		"department_id", departmentID,
		"member_id", dto.UserID,
		"user_id", actorID)
	return nil
}

func (s *Service) RemoveMember(ctx context.Context, departmentID, userID int64) error {
	actorID, err := s.guard.RequirePermission(ctx, authz.All, authz.DepartmentUpdate)
	if err != nil {
		return err
	}
	affected, err := s.repo.RemoveMember(ctx, userID, departmentID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	if affected == 0 {
		return internal.ErrMembershipNotFound
	}
	s.logger.InfoContext(ctx, "department member removed",
		"department_id", departmentID,
		"member_id", userID,
		"user_id", actorID)
	return nil
}

func (s *Service) load(ctx context.Context, id int64) (*Department, error) {
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load department %d: %w", id, err)
	}
	if d == nil {
		return nil, internal.ErrDepartmentNotFound
	}
	return d, nil
}

func (s *Service) ensureNameFree(ctx context.Context, name string, selfID int64) error {
	existing, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return fmt.Errorf("lookup department name: %w", err)
	}
	if existing != nil && existing.ID != selfID {
		return internal.ErrDepartmentExists
	}
	return nil
}
