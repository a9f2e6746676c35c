package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/profpay/profpay/core"
	"github.com/profpay/profpay/core/payer"
)

const (
	payerColumns = "p.id, p.last_name, p.first_name, p.middle_name, p.date_of_birth, p.email, p.phone, p.telegram, p.vk, " +
		"p.is_budget, p.stipend_amount, p.budget_percent, p.faculty_id, p.group_id, p.group_name, p.department, p.course, p.status, " +
		"p.membership_start, p.membership_end, p.is_active, p.notes, p.created_at, p.updated_at, p.created_by, " +
		"COALESCE((SELECT SUM(pm.amount) FROM payments pm WHERE pm.payer_id = p.id), 0) AS total_paid"
	paymentColumns = "id, payer_id, amount, payment_date, academic_year, semester, period_start, period_end, " +
		"receipt_number, payment_method, notes, created_at, created_by"
)

type payerRepository struct {
	repository
}

var _ payer.Repository = (*payerRepository)(nil) // interface compliance check

func NewPayerRepository(exec core.DBExecutor) *payerRepository {
	return &payerRepository{repository{exec: exec}}
}

// trapNoRowsErr maps psql "no rows" err to notFound
func (repo payerRepository) trapNoRowsErr(err error, notFound error, msg string) error {
	if err == sql.ErrNoRows || err == notFound {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func (repo payerRepository) CreatePayer(ctx context.Context, p payer.Payer, exec ...core.DBExecutor) (payer.Payer, error) {
	id, err := insert(ctx, repo.getExec(exec), `
		INSERT INTO payers (
			last_name, first_name, middle_name, date_of_birth, email, phone, telegram, vk,
			is_budget, stipend_amount, budget_percent, faculty_id, group_id, group_name, department, course, status,
			membership_start, membership_end, is_active, notes, created_at, updated_at, created_by
		) VALUES (
			:last_name, :first_name, :middle_name, :date_of_birth, :email, :phone, :telegram, :vk,
			:is_budget, :stipend_amount, :budget_percent, :faculty_id, :group_id, :group_name, :department, :course, :status,
			:membership_start, :membership_end, :is_active, :notes, :created_at, :updated_at, :created_by
		) RETURNING id`, p)
	if err != nil {
		return payer.Payer{}, errors.Wrap(err, "inserting payer")
	}
	p.ID = id
	p.TotalPaid = decimal.Zero
	return p, nil
}

func (repo payerRepository) payerWhere(filter payer.QueryFilter) *where {
	w := new(where)
	w.add("p.is_active")
	if filter.FacultyID > 0 {
		w.add("p.faculty_id = ?", filter.FacultyID)
	}
	if filter.GroupID > 0 {
		w.add("p.group_id = ?", filter.GroupID)
	}
	if filter.Status != "" {
		w.add("p.status = ?", filter.Status)
	}
	if len(filter.Statuses) > 0 {
		w.add("p.status IN (?)", filter.Statuses)
	}
	if filter.Search != "" {
		val := likePattern(filter.Search)
		w.add("(p.last_name ILIKE ? OR p.first_name ILIKE ? OR p.middle_name ILIKE ? OR p.email ILIKE ? OR p.phone ILIKE ?)",
			val, val, val, val, val)
	}
	return w
}

func (repo payerRepository) QueryPayers(ctx context.Context, filter payer.QueryFilter, page *core.Pagination, exec ...core.DBExecutor) ([]payer.Payer, int, error) {
	exe := repo.getExec(exec)
	w := repo.payerWhere(filter)

	q, args, err := w.build(exe, "SELECT COUNT(*) FROM payers p"+w.String())
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err = sqlx.GetContext(ctx, exe, &total, q, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting payers")
	}

	query := "SELECT " + payerColumns + " FROM payers p" + w.String() + " ORDER BY p.last_name, p.first_name, p.id"
	var extra []interface{}
	if page != nil {
		query += " LIMIT ? OFFSET ?"
		extra = append(extra, page.Limit(), page.Offset())
	}
	if q, args, err = w.build(exe, query, extra...); err != nil {
		return nil, 0, err
	}

	payers := make([]payer.Payer, 0)
	if err = sqlx.SelectContext(ctx, exe, &payers, q, args...); err != nil {
		return nil, 0, errors.Wrap(err, "querying payers")
	}
	return payers, total, nil
}

func (repo payerRepository) GetPayer(ctx context.Context, id int, exec ...core.DBExecutor) (payer.Payer, error) {
	exe := repo.getExec(exec)
	var p payer.Payer
	q := exe.Rebind("SELECT " + payerColumns + " FROM payers p WHERE p.id = ?")
	if err := sqlx.GetContext(ctx, exe, &p, q, id); err != nil {
		return payer.Payer{}, repo.trapNoRowsErr(err, payer.ErrNotFound, "getting payer")
	}
	return p, nil
}

func (repo payerRepository) UpdatePayer(ctx context.Context, p payer.Payer, exec ...core.DBExecutor) (payer.Payer, error) {
	err := update(ctx, repo.getExec(exec), `
		UPDATE payers SET
			last_name = :last_name, first_name = :first_name, middle_name = :middle_name,
			date_of_birth = :date_of_birth, email = :email, phone = :phone, telegram = :telegram, vk = :vk,
			is_budget = :is_budget, stipend_amount = :stipend_amount, budget_percent = :budget_percent,
			faculty_id = :faculty_id, group_id = :group_id, group_name = :group_name, department = :department,
			course = :course, status = :status,
			membership_start = :membership_start, membership_end = :membership_end,
			is_active = :is_active, notes = :notes, updated_at = :updated_at
		WHERE id = :id`, p, payer.ErrNotFound)
	if err != nil {
		return payer.Payer{}, repo.trapNoRowsErr(err, payer.ErrNotFound, "updating payer")
	}
	return p, nil
}

func (repo payerRepository) CreatePayment(ctx context.Context, pm payer.Payment, exec ...core.DBExecutor) (payer.Payment, error) {
	id, err := insert(ctx, repo.getExec(exec), `
		INSERT INTO payments (
			payer_id, amount, payment_date, academic_year, semester, period_start, period_end,
			receipt_number, payment_method, notes, created_at, created_by
		) VALUES (
			:payer_id, :amount, :payment_date, :academic_year, :semester, :period_start, :period_end,
			:receipt_number, :payment_method, :notes, :created_at, :created_by
		) RETURNING id`, pm)
	if err != nil {
		return payer.Payment{}, errors.Wrap(err, "inserting payment")
	}
	pm.ID = id
	return pm, nil
}

func (repo payerRepository) QueryPayments(ctx context.Context, filter payer.PaymentFilter, exec ...core.DBExecutor) ([]payer.Payment, error) {
	exe := repo.getExec(exec)
	w := new(where)
	if filter.PayerID > 0 {
		w.add("payer_id = ?", filter.PayerID)
	}
	if filter.AcademicYear != "" {
		w.add("academic_year = ?", filter.AcademicYear)
	}
	q, args, err := w.build(exe, "SELECT "+paymentColumns+" FROM payments"+w.String()+" ORDER BY payment_date DESC, id DESC")
	if err != nil {
		return nil, err
	}

	payments := make([]payer.Payment, 0)
	if err = sqlx.SelectContext(ctx, exe, &payments, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}
	return payments, nil
}

func (repo payerRepository) GetPayment(ctx context.Context, id int, exec ...core.DBExecutor) (payer.Payment, error) {
	exe := repo.getExec(exec)
	var pm payer.Payment
	if err := sqlx.GetContext(ctx, exe, &pm, exe.Rebind("SELECT "+paymentColumns+" FROM payments WHERE id = ?"), id); err != nil {
		return payer.Payment{}, repo.trapNoRowsErr(err, payer.ErrPaymentNotFound, "getting payment")
	}
	return pm, nil
}

func (repo payerRepository) UpdatePayment(ctx context.Context, pm payer.Payment, exec ...core.DBExecutor) (payer.Payment, error) {
	err := update(ctx, repo.getExec(exec), `
		UPDATE payments SET
			amount = :amount, payment_date = :payment_date, academic_year = :academic_year, semester = :semester,
			period_start = :period_start, period_end = :period_end, receipt_number = :receipt_number,
			payment_method = :payment_method, notes = :notes
		WHERE id = :id`, pm, payer.ErrPaymentNotFound)
	if err != nil {
		return payer.Payment{}, repo.trapNoRowsErr(err, payer.ErrPaymentNotFound, "updating payment")
	}
	return pm, nil
}

func (repo payerRepository) DeletePayment(ctx context.Context, id int, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	res, err := exe.ExecContext(ctx, exe.Rebind("DELETE FROM payments WHERE id = ?"), id)
	if err != nil {
		return errors.Wrap(err, "deleting payment")
	}
	return checkAffected(res.RowsAffected, payer.ErrPaymentNotFound)
}

func (repo payerRepository) SumPayments(ctx context.Context, payerID int, academicYear string, exec ...core.DBExecutor) (decimal.Decimal, error) {
	exe := repo.getExec(exec)
	w := new(where)
	w.add("payer_id = ?", payerID)
	if academicYear != "" {
		w.add("academic_year = ?", academicYear)
	}
	q, args, err := w.build(exe, "SELECT COALESCE(SUM(amount), 0) FROM payments"+w.String())
	if err != nil {
		return decimal.Zero, err
	}

	var sum decimal.Decimal
	if err = sqlx.GetContext(ctx, exe, &sum, q, args...); err != nil {
		return decimal.Zero, errors.Wrap(err, "summing payments")
	}
	return sum, nil
}
