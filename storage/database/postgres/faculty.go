package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/profpay/profpay/core"
	"github.com/profpay/profpay/core/faculty"
)

const (
	facultyColumns = "id, name, short_name, is_active, created_at"
	groupColumns   = "id, name, faculty_id, course, is_active, created_at"
)

type facultyRepository struct {
	repository
}

var _ faculty.Repository = (*facultyRepository)(nil) // interface compliance check

func NewFacultyRepository(exec core.DBExecutor) *facultyRepository {
	return &facultyRepository{repository{exec: exec}}
}

// trapNoRowsErr maps psql "no rows" err to notFound
func (repo facultyRepository) trapNoRowsErr(err error, notFound error, msg string) error {
	if err == sql.ErrNoRows || err == notFound {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func (repo facultyRepository) CreateFaculty(ctx context.Context, f faculty.Faculty, exec ...core.DBExecutor) (faculty.Faculty, error) {
	id, err := insert(ctx, repo.getExec(exec), `
		INSERT INTO faculties (name, short_name, is_active, created_at)
		VALUES (:name, :short_name, :is_active, :created_at)
		RETURNING id`, f)
	if err != nil {
		return faculty.Faculty{}, errors.Wrap(err, "inserting faculty")
	}
	f.ID = id
	return f, nil
}

func (repo facultyRepository) QueryFaculties(ctx context.Context, activeOnly bool, exec ...core.DBExecutor) ([]faculty.Faculty, error) {
	q := "SELECT " + facultyColumns + " FROM faculties"
	if activeOnly {
		q += " WHERE is_active"
	}
	q += " ORDER BY name"

	faculties := make([]faculty.Faculty, 0)
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &faculties, q); err != nil {
		return nil, errors.Wrap(err, "querying faculties")
	}
	return faculties, nil
}

func (repo facultyRepository) GetFaculty(ctx context.Context, id int, exec ...core.DBExecutor) (faculty.Faculty, error) {
	exe := repo.getExec(exec)
	var f faculty.Faculty
	if err := sqlx.GetContext(ctx, exe, &f, exe.Rebind("SELECT "+facultyColumns+" FROM faculties WHERE id = ?"), id); err != nil {
		return faculty.Faculty{}, repo.trapNoRowsErr(err, faculty.ErrNotFound, "getting faculty")
	}
	return f, nil
}

func (repo facultyRepository) GetFacultyByName(ctx context.Context, name string, exec ...core.DBExecutor) (faculty.Faculty, error) {
	exe := repo.getExec(exec)
	var f faculty.Faculty
	q := exe.Rebind("SELECT " + facultyColumns + " FROM faculties WHERE LOWER(name) = LOWER(?) LIMIT 1")
	if err := sqlx.GetContext(ctx, exe, &f, q, name); err != nil {
		return faculty.Faculty{}, repo.trapNoRowsErr(err, faculty.ErrNotFound, "getting faculty by name")
	}
	return f, nil
}

func (repo facultyRepository) UpdateFaculty(ctx context.Context, f faculty.Faculty, exec ...core.DBExecutor) (faculty.Faculty, error) {
	err := update(ctx, repo.getExec(exec), `
		UPDATE faculties SET name = :name, short_name = :short_name, is_active = :is_active
		WHERE id = :id`, f, faculty.ErrNotFound)
	if err != nil {
		return faculty.Faculty{}, repo.trapNoRowsErr(err, faculty.ErrNotFound, "updating faculty")
	}
	return f, nil
}

func (repo facultyRepository) CreateGroup(ctx context.Context, g faculty.Group, exec ...core.DBExecutor) (faculty.Group, error) {
	id, err := insert(ctx, repo.getExec(exec), `
		INSERT INTO student_groups (name, faculty_id, course, is_active, created_at)
		VALUES (:name, :faculty_id, :course, :is_active, :created_at)
		RETURNING id`, g)
	if err != nil {
		return faculty.Group{}, errors.Wrap(err, "inserting group")
	}
	g.ID = id
	return g, nil
}

func (repo facultyRepository) QueryGroups(ctx context.Context, filter faculty.GroupFilter, exec ...core.DBExecutor) ([]faculty.Group, error) {
	exe := repo.getExec(exec)
	w := new(where)
	if filter.FacultyID > 0 {
		w.add("faculty_id = ?", filter.FacultyID)
	}
	if filter.ActiveOnly {
		w.add("is_active")
	}
	q, args, err := w.build(exe, "SELECT "+groupColumns+" FROM student_groups"+w.String()+" ORDER BY course, name")
	if err != nil {
		return nil, err
	}

	groups := make([]faculty.Group, 0)
	if err = sqlx.SelectContext(ctx, exe, &groups, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying groups")
	}
	return groups, nil
}

func (repo facultyRepository) GetGroup(ctx context.Context, id int, exec ...core.DBExecutor) (faculty.Group, error) {
	exe := repo.getExec(exec)
	var g faculty.Group
	if err := sqlx.GetContext(ctx, exe, &g, exe.Rebind("SELECT "+groupColumns+" FROM student_groups WHERE id = ?"), id); err != nil {
		return faculty.Group{}, repo.trapNoRowsErr(err, faculty.ErrGroupNotFound, "getting group")
	}
	return g, nil
}

func (repo facultyRepository) UpdateGroup(ctx context.Context, g faculty.Group, exec ...core.DBExecutor) (faculty.Group, error) {
	err := update(ctx, repo.getExec(exec), `
		UPDATE student_groups SET name = :name, faculty_id = :faculty_id, course = :course, is_active = :is_active
		WHERE id = :id`, g, faculty.ErrGroupNotFound)
	if err != nil {
		return faculty.Group{}, repo.trapNoRowsErr(err, faculty.ErrGroupNotFound, "updating group")
	}
	return g, nil
}
