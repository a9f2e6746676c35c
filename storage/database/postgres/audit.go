package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/profpay/profpay/core"
	"github.com/profpay/profpay/core/audit"
)

const auditColumns = "id, user_id, action, entity_type, entity_id, old_values, new_values, ip_address, user_agent, created_at"

type auditRepository struct {
	repository
}

var _ audit.Repository = (*auditRepository)(nil) // interface compliance check

func NewAuditRepository(exec core.DBExecutor) *auditRepository {
	return &auditRepository{repository{exec: exec}}
}

func (repo auditRepository) CreateEntry(ctx context.Context, e audit.Entry, exec ...core.DBExecutor) (audit.Entry, error) {
	id, err := insert(ctx, repo.getExec(exec), `
		INSERT INTO audit_log (user_id, action, entity_type, entity_id, old_values, new_values, ip_address, user_agent, created_at)
		VALUES (:user_id, :action, :entity_type, :entity_id, :old_values, :new_values, :ip_address, :user_agent, :created_at)
		RETURNING id`, e)
	if err != nil {
		return audit.Entry{}, errors.Wrap(err, "inserting audit entry")
	}
	e.ID = id
	return e, nil
}

func (repo auditRepository) QueryEntries(ctx context.Context, filter audit.QueryFilter, page *core.Pagination, exec ...core.DBExecutor) ([]audit.Entry, int, error) {
	exe := repo.getExec(exec)
	w := new(where)
	if filter.EntityType != "" {
		w.add("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID > 0 {
		w.add("entity_id = ?", filter.EntityID)
	}

	q, args, err := w.build(exe, "SELECT COUNT(*) FROM audit_log"+w.String())
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err = sqlx.GetContext(ctx, exe, &total, q, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting audit entries")
	}

	query := "SELECT " + auditColumns + " FROM audit_log" + w.String() + " ORDER BY created_at DESC, id DESC"
	var extra []interface{}
	if page != nil {
		query += " LIMIT ? OFFSET ?"
		extra = append(extra, page.Limit(), page.Offset())
	}
	if q, args, err = w.build(exe, query, extra...); err != nil {
		return nil, 0, err
	}

	entries := make([]audit.Entry, 0)
	if err = sqlx.SelectContext(ctx, exe, &entries, q, args...); err != nil {
		return nil, 0, errors.Wrap(err, "querying audit entries")
	}
	return entries, total, nil
}
