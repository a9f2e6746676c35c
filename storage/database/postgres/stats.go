package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/profpay/profpay/core"
	"github.com/profpay/profpay/core/stats"
)

type statsRepository struct {
	repository
}

var _ stats.Repository = (*statsRepository)(nil) // interface compliance check

func NewStatsRepository(exec core.DBExecutor) *statsRepository {
	return &statsRepository{repository{exec: exec}}
}

func (repo statsRepository) Dashboard(ctx context.Context, exec ...core.DBExecutor) (stats.Dashboard, error) {
	var d stats.Dashboard
	err := sqlx.GetContext(ctx, repo.getExec(exec), &d, `
		SELECT
			COUNT(*) AS total_payers,
			COUNT(*) FILTER (WHERE is_active) AS active_payers,
			COUNT(*) FILTER (WHERE is_active AND status IN ('unpaid', 'partial')) AS total_debtors,
			COALESCE((SELECT SUM(amount) FROM payments), 0) AS total_paid_amount,
			COUNT(*) FILTER (WHERE is_active AND status = 'paid') AS paid_count,
			COUNT(*) FILTER (WHERE is_active AND status = 'partial') AS partial_count,
			COUNT(*) FILTER (WHERE is_active AND status = 'unpaid') AS unpaid_count,
			COUNT(*) FILTER (WHERE is_active AND status = 'exempt') AS exempt_count
		FROM payers`)
	if err != nil {
		return stats.Dashboard{}, errors.Wrap(err, "computing dashboard stats")
	}
	return d, nil
}

func (repo statsRepository) ByFaculty(ctx context.Context, exec ...core.DBExecutor) ([]stats.FacultyStats, error) {
	fs := make([]stats.FacultyStats, 0)
	err := sqlx.SelectContext(ctx, repo.getExec(exec), &fs, `
		SELECT
			f.id AS faculty_id,
			f.name AS faculty_name,
			COUNT(p.id) AS total_payers,
			COUNT(p.id) FILTER (WHERE p.status = 'paid') AS paid_count,
			COUNT(p.id) FILTER (WHERE p.status IN ('unpaid', 'partial')) AS unpaid_count,
			COALESCE(SUM(t.paid), 0) AS total_amount
		FROM faculties f
		LEFT JOIN payers p ON p.faculty_id = f.id AND p.is_active
		LEFT JOIN (SELECT payer_id, SUM(amount) AS paid FROM payments GROUP BY payer_id) t ON t.payer_id = p.id
		WHERE f.is_active
		GROUP BY f.id, f.name
		ORDER BY f.name`)
	if err != nil {
		return nil, errors.Wrap(err, "computing faculty stats")
	}
	return fs, nil
}

func (repo statsRepository) Monthly(ctx context.Context, year int, exec ...core.DBExecutor) ([]stats.MonthlyStats, error) {
	exe := repo.getExec(exec)
	ms := make([]stats.MonthlyStats, 0)
	err := sqlx.SelectContext(ctx, exe, &ms, exe.Rebind(`
		SELECT
			TO_CHAR(payment_date, 'YYYY-MM') AS month,
			COUNT(*) AS payments_count,
			COALESCE(SUM(amount), 0) AS total_amount
		FROM payments
		WHERE EXTRACT(YEAR FROM payment_date) = ?
		GROUP BY month
		ORDER BY month`), year)
	if err != nil {
		return nil, errors.Wrap(err, "computing monthly stats")
	}
	return ms, nil
}
