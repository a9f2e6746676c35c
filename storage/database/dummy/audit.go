package dummydb

import (
	"context"

	"github.com/profpay/profpay/core"
	"github.com/profpay/profpay/core/audit"
)

type auditRepository struct {
	db *auditTable
}

var _ audit.Repository = (*auditRepository)(nil) // interface compliance check

func NewAuditRepository(db *DB) audit.Repository {
	return &auditRepository{db: db.audit}
}

func (repo *auditRepository) CreateEntry(_ context.Context, e audit.Entry, _ ...core.DBExecutor) (audit.Entry, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.pkCount++
	e.ID = repo.db.pkCount
	repo.db.entries = append(repo.db.entries, e)
	return e, nil
}

func (repo *auditRepository) QueryEntries(_ context.Context, filter audit.QueryFilter, page *core.Pagination, _ ...core.DBExecutor) ([]audit.Entry, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	entries := make([]audit.Entry, 0)
	// newest first
	for i := len(repo.db.entries) - 1; i >= 0; i-- {
		e := repo.db.entries[i]
		if filter.EntityType != "" && e.EntityType != filter.EntityType {
			continue
		}
		if filter.EntityID > 0 && e.EntityID.Int != filter.EntityID {
			continue
		}
		entries = append(entries, e)
	}

	total := len(entries)
	if page != nil {
		start, end := paginate(total, *page)
		entries = entries[start:end]
	}
	return entries, total, nil
}
