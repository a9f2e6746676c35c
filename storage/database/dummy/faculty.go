package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/profpay/profpay/core"
	"github.com/profpay/profpay/core/faculty"
)

type facultyRepository struct {
	db *facultyTable
}

var _ faculty.Repository = (*facultyRepository)(nil) // interface compliance check

func NewFacultyRepository(db *DB) faculty.Repository {
	return &facultyRepository{db: db.faculty}
}

func (repo *facultyRepository) CreateFaculty(_ context.Context, f faculty.Faculty, _ ...core.DBExecutor) (faculty.Faculty, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.pkCount++
	f.ID = repo.db.pkCount
	repo.db.table[f.ID] = &f
	return f, nil
}

func (repo *facultyRepository) QueryFaculties(_ context.Context, activeOnly bool, _ ...core.DBExecutor) ([]faculty.Faculty, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	faculties := make([]faculty.Faculty, 0, len(repo.db.table))
	for _, f := range repo.db.table {
		if activeOnly && !f.IsActive {
			continue
		}
		faculties = append(faculties, *f)
	}
	sort.Slice(faculties, func(i, j int) bool { return faculties[i].Name < faculties[j].Name })
	return faculties, nil
}

func (repo *facultyRepository) GetFaculty(_ context.Context, id int, _ ...core.DBExecutor) (faculty.Faculty, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if f, ok := repo.db.table[id]; ok {
		return *f, nil
	}
	return faculty.Faculty{}, faculty.ErrNotFound
}

func (repo *facultyRepository) GetFacultyByName(_ context.Context, name string, _ ...core.DBExecutor) (faculty.Faculty, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, f := range repo.db.table {
		if strings.EqualFold(f.Name, name) {
			return *f, nil
		}
	}
	return faculty.Faculty{}, faculty.ErrNotFound
}

func (repo *facultyRepository) UpdateFaculty(_ context.Context, f faculty.Faculty, _ ...core.DBExecutor) (faculty.Faculty, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[f.ID]; !ok {
		return faculty.Faculty{}, faculty.ErrNotFound
	}
	repo.db.table[f.ID] = &f
	return f, nil
}

func (repo *facultyRepository) CreateGroup(_ context.Context, g faculty.Group, _ ...core.DBExecutor) (faculty.Group, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.groupPkCount++
	g.ID = repo.db.groupPkCount
	repo.db.groups[g.ID] = &g
	return g, nil
}

func (repo *facultyRepository) QueryGroups(_ context.Context, filter faculty.GroupFilter, _ ...core.DBExecutor) ([]faculty.Group, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	groups := make([]faculty.Group, 0)
	for _, g := range repo.db.groups {
		if filter.FacultyID > 0 && g.FacultyID != filter.FacultyID {
			continue
		}
		if filter.ActiveOnly && !g.IsActive {
			continue
		}
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Course.Int != groups[j].Course.Int {
			return groups[i].Course.Int < groups[j].Course.Int
		}
		return groups[i].Name < groups[j].Name
	})
	return groups, nil
}

func (repo *facultyRepository) GetGroup(_ context.Context, id int, _ ...core.DBExecutor) (faculty.Group, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if g, ok := repo.db.groups[id]; ok {
		return *g, nil
	}
	return faculty.Group{}, faculty.ErrGroupNotFound
}

func (repo *facultyRepository) UpdateGroup(_ context.Context, g faculty.Group, _ ...core.DBExecutor) (faculty.Group, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.groups[g.ID]; !ok {
		return faculty.Group{}, faculty.ErrGroupNotFound
	}
	repo.db.groups[g.ID] = &g
	return g, nil
}
