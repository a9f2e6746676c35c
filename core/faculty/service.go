// Package faculty manages faculties and their student groups.
package faculty

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/profpay/profpay/core"
)

var (
	ErrNotFound      = errors.New("faculty not found")
	ErrGroupNotFound = errors.New("group not found")
	ErrNameExists    = errors.New("a faculty with this name already exists")
)

type (
	Repository interface {
		CreateFaculty(ctx context.Context, f Faculty, exec ...core.DBExecutor) (Faculty, error)
		QueryFaculties(ctx context.Context, activeOnly bool, exec ...core.DBExecutor) ([]Faculty, error)
		GetFaculty(ctx context.Context, id int, exec ...core.DBExecutor) (Faculty, error)
		GetFacultyByName(ctx context.Context, name string, exec ...core.DBExecutor) (Faculty, error)
		UpdateFaculty(ctx context.Context, f Faculty, exec ...core.DBExecutor) (Faculty, error)

		CreateGroup(ctx context.Context, g Group, exec ...core.DBExecutor) (Group, error)
		QueryGroups(ctx context.Context, filter GroupFilter, exec ...core.DBExecutor) ([]Group, error)
		GetGroup(ctx context.Context, id int, exec ...core.DBExecutor) (Group, error)
		UpdateGroup(ctx context.Context, g Group, exec ...core.DBExecutor) (Group, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkNameUniqueness(ctx context.Context, name string, excludedID ...int) error {
	f, err := svc.repo.GetFacultyByName(ctx, name)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return nil
		}
		return errors.Wrap(err, "checking faculty name")
	}
	if len(excludedID) > 0 && f.ID == excludedID[0] {
		return nil
	}
	return core.NewValidationError(ErrNameExists, core.FieldError{Field: "name", Error: ErrNameExists.Error()})
}

// CheckFacultyExists returns a validation error on `faculty_id` when the faculty does not exist.
func (svc *Service) CheckFacultyExists(ctx context.Context, id int) error {
	if _, err := svc.repo.GetFaculty(ctx, id); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewFieldError("faculty_id", "faculty not found")
		}
		return errors.Wrap(err, "finding faculty")
	}
	return nil
}

// CheckGroupExists returns a validation error on `group_id` when the group does not exist.
func (svc *Service) CheckGroupExists(ctx context.Context, id int) error {
	if _, err := svc.repo.GetGroup(ctx, id); err != nil {
		if errors.Cause(err) == ErrGroupNotFound {
			return core.NewFieldError("group_id", "group not found")
		}
		return errors.Wrap(err, "finding group")
	}
	return nil
}

func (svc *Service) CreateFaculty(ctx context.Context, nf NewFaculty) (Faculty, error) {
	return svc.repo.CreateFaculty(ctx, Faculty{
		Name:      nf.Name,
		ShortName: nf.ShortName,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *Service) QueryFaculties(ctx context.Context, activeOnly bool) ([]Faculty, error) {
	return svc.repo.QueryFaculties(ctx, activeOnly)
}

func (svc *Service) GetFaculty(ctx context.Context, id int) (Faculty, error) {
	return svc.repo.GetFaculty(ctx, id)
}

func (svc *Service) UpdateFaculty(ctx context.Context, f Faculty, uf UpdateFaculty) (Faculty, error) {
	return svc.repo.UpdateFaculty(ctx, uf.Apply(f))
}

// DeactivateFaculty is a soft delete.
func (svc *Service) DeactivateFaculty(ctx context.Context, f Faculty) error {
	f.IsActive = false
	_, err := svc.repo.UpdateFaculty(ctx, f)
	return err
}

func (svc *Service) CreateGroup(ctx context.Context, ng NewGroup) (Group, error) {
	return svc.repo.CreateGroup(ctx, Group{
		Name:      ng.Name,
		FacultyID: ng.FacultyID,
		Course:    ng.Course,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *Service) QueryGroups(ctx context.Context, filter GroupFilter) ([]Group, error) {
	return svc.repo.QueryGroups(ctx, filter)
}

func (svc *Service) GetGroup(ctx context.Context, id int) (Group, error) {
	return svc.repo.GetGroup(ctx, id)
}

func (svc *Service) UpdateGroup(ctx context.Context, g Group, ug UpdateGroup) (Group, error) {
	return svc.repo.UpdateGroup(ctx, ug.Apply(g))
}

// DeactivateGroup is a soft delete.
func (svc *Service) DeactivateGroup(ctx context.Context, g Group) error {
	g.IsActive = false
	_, err := svc.repo.UpdateGroup(ctx, g)
	return err
}
