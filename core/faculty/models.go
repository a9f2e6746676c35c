package faculty

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/profpay/profpay/core"
)

type Faculty struct {
	ID        int         `json:"id" db:"id"`
	Name      string      `json:"name" db:"name"`
	ShortName null.String `json:"short_name" db:"short_name"`
	IsActive  bool        `json:"is_active" db:"is_active"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}

// Group is a student group of a Faculty.
type Group struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	FacultyID int       `json:"faculty_id" db:"faculty_id"`
	Course    null.Int  `json:"course" db:"course"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type NewFaculty struct {
	Name      string      `json:"name" validate:"required,min=2,max=200"`
	ShortName null.String `json:"short_name" validate:"omitempty,max=20"`
}

func (nf *NewFaculty) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	nf.Name = core.SanitizeString(nf.Name)
	nf.ShortName = cleanNullString(nf.ShortName)
	if err := validate.Struct(nf); err != nil {
		return err
	}
	return svc.checkNameUniqueness(ctx, nf.Name)
}

type UpdateFaculty struct {
	Name      *string     `json:"name" validate:"omitempty,min=2,max=200"`
	ShortName null.String `json:"short_name" validate:"omitempty,max=20"`
	IsActive  *bool       `json:"is_active"`
}

func (uf *UpdateFaculty) Validate(ctx context.Context, orig Faculty, validate *validator.Validate, svc *Service) error {
	if uf.Name != nil {
		name := core.SanitizeString(*uf.Name)
		uf.Name = &name
	}
	uf.ShortName = cleanNullString(uf.ShortName)
	if err := validate.Struct(uf); err != nil {
		return err
	}
	if uf.Name != nil && *uf.Name != orig.Name {
		return svc.checkNameUniqueness(ctx, *uf.Name, orig.ID)
	}
	return nil
}

func (uf UpdateFaculty) Apply(f Faculty) Faculty {
	if uf.Name != nil {
		f.Name = *uf.Name
	}
	if uf.ShortName.Valid {
		f.ShortName = uf.ShortName
	}
	if uf.IsActive != nil {
		f.IsActive = *uf.IsActive
	}
	return f
}

type NewGroup struct {
	Name      string   `json:"name" validate:"required,notblank,max=50"`
	FacultyID int      `json:"faculty_id" validate:"required,gte=1"`
	Course    null.Int `json:"course" validate:"omitempty,gte=1,lte=6"`
}

func (ng *NewGroup) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	ng.Name = core.SanitizeString(ng.Name)
	if !ng.Course.Valid {
		if course, ok := ParseCourse(ng.Name); ok {
			ng.Course = null.IntFrom(course)
		}
	}
	if err := validate.Struct(ng); err != nil {
		return err
	}
	return svc.CheckFacultyExists(ctx, ng.FacultyID)
}

type UpdateGroup struct {
	Name      *string  `json:"name" validate:"omitempty,notblank,max=50"`
	FacultyID null.Int `json:"faculty_id" validate:"omitempty,gte=1"`
	Course    null.Int `json:"course" validate:"omitempty,gte=1,lte=6"`
	IsActive  *bool    `json:"is_active"`
}

func (ug *UpdateGroup) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	if ug.Name != nil {
		name := core.SanitizeString(*ug.Name)
		ug.Name = &name
	}
	if err := validate.Struct(ug); err != nil {
		return err
	}
	if ug.FacultyID.Valid {
		return svc.CheckFacultyExists(ctx, ug.FacultyID.Int)
	}
	return nil
}

func (ug UpdateGroup) Apply(g Group) Group {
	if ug.Name != nil {
		g.Name = *ug.Name
	}
	if ug.FacultyID.Valid {
		g.FacultyID = ug.FacultyID.Int
	}
	if ug.Course.Valid {
		g.Course = ug.Course
	}
	if ug.IsActive != nil {
		g.IsActive = *ug.IsActive
	}
	return g
}

type GroupFilter struct {
	FacultyID  int  `query:"faculty_id"`
	ActiveOnly bool `query:"active_only"`
}

func cleanNullString(s null.String) null.String {
	if !s.Valid {
		return s
	}
	return null.StringFrom(core.SanitizeString(s.String))
}
