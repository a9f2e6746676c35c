package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/profpay/profpay/core"
	"github.com/profpay/profpay/core/budget"
	"github.com/profpay/profpay/core/payer"
	"github.com/profpay/profpay/core/settings"
	"github.com/profpay/profpay/core/user"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

var payerCols = []string{
	"id", "last_name", "first_name", "middle_name", "date_of_birth", "email", "phone", "telegram", "vk",
	"is_budget", "stipend_amount", "budget_percent", "faculty_id", "group_id", "group_name", "department", "course", "status",
	"membership_start", "membership_end", "is_active", "notes", "created_at", "updated_at", "created_by", "total_paid",
}

func TestUserRepository_CreateUser(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	usr, err := repo.CreateUser(context.Background(), user.User{Username: "jane", Email: "jane@x.io", Role: user.RoleViewer})
	require.NoError(t, err)
	assert.Equal(t, 7, usr.ID)
	assert.Equal(t, "jane", usr.Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetUser(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	cols := []string{"id", "username", "email", "full_name", "role", "is_active", "hashed_password", "created_at", "updated_at", "last_login"}
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE (username = $1 OR email = $2) LIMIT 1")).
		WithArgs("jane", "jane").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(3, "jane", "jane@x.io", "Jane", "admin", true, []byte("hash"), now, now, nil))
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1 LIMIT 1")).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows(cols))

	usr, err := repo.GetUser(ctx, user.GetFilter{UsernameOrEmail: "jane"})
	require.NoError(t, err)
	assert.Equal(t, 3, usr.ID)
	assert.True(t, usr.IsAdmin())
	assert.False(t, usr.LastLogin.Valid)

	_, err = repo.GetUser(ctx, user.GetFilter{ID: 42})
	assert.Equal(t, user.ErrNotFound, err)

	_, err = repo.GetUser(ctx, user.GetFilter{})
	assert.Equal(t, user.ErrNotFound, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CheckUniqueness(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	cols := []string{"username", "email"}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT username, email FROM users WHERE (username = $1 OR email = $2) AND id NOT IN ($3)")).
		WithArgs("jane", "jane@x.io", 1).
		WillReturnRows(sqlmock.NewRows(cols).AddRow("other", "jane@x.io"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT username, email FROM users")).
		WillReturnRows(sqlmock.NewRows(cols).AddRow("jane", "jane@y.io"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT username, email FROM users")).
		WillReturnRows(sqlmock.NewRows(cols))

	err := repo.CheckUniqueness(ctx, "jane", "jane@x.io", []user.User{{ID: 1}})
	assert.Equal(t, user.ErrEmailExists, err)
	err = repo.CheckUniqueness(ctx, "jane", "jane@x.io", nil)
	assert.Equal(t, user.ErrUsernameExists, err)
	assert.NoError(t, repo.CheckUniqueness(ctx, "jane", "jane@x.io", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdateUser_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET")).WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.UpdateUser(context.Background(), user.User{ID: 9})
	assert.Equal(t, user.ErrNotFound, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayerRepository_QueryPayers(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPayerRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM payers p WHERE p.is_active AND p.faculty_id = $1 AND p.status IN ($2, $3)")).
		WithArgs(2, "unpaid", "partial").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(21))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY p.last_name, p.first_name, p.id LIMIT $4 OFFSET $5")).
		WithArgs(2, "unpaid", "partial", 20, 20).
		WillReturnRows(sqlmock.NewRows(payerCols).AddRow(
			5, "Иванов", "Иван", nil, nil, "ivan@x.io", nil, nil, nil,
			true, "10000", "1.5", 2, nil, "3-мд-35", nil, 3, "partial",
			nil, nil, true, nil, now, now, nil, "100.50"))

	filter := payer.QueryFilter{FacultyID: 2, Statuses: payer.DebtorStatuses}
	payers, total, err := repo.QueryPayers(context.Background(), filter, &core.Pagination{Page: 2, PerPage: 20})
	require.NoError(t, err)
	assert.Equal(t, 21, total)
	require.Len(t, payers, 1)

	p := payers[0]
	assert.Equal(t, payer.StatusPartial, p.Status)
	assert.True(t, p.TotalPaid.Equal(decimal.RequireFromString("100.5")))
	assert.True(t, p.StipendAmount.Valid)
	assert.Equal(t, "150", p.Derive().PaymentDue.Decimal.String())
	assert.True(t, p.DateOfBirth.IsZero())
	assert.Equal(t, null.StringFrom("3-мд-35"), p.GroupName)
	assert.False(t, p.Department.Valid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayerRepository_SumPayments(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPayerRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(amount), 0) FROM payments WHERE payer_id = $1 AND academic_year = $2")).
		WithArgs(5, "2024-2025").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow("750.00"))

	sum, err := repo.SumPayments(context.Background(), 5, "2024-2025")
	require.NoError(t, err)
	assert.True(t, sum.Equal(decimal.NewFromInt(750)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayerRepository_DeletePayment(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPayerRepository(db)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM payments WHERE id = $1")).
		WithArgs(3).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM payments WHERE id = $1")).
		WithArgs(4).WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.DeletePayment(ctx, 3))
	assert.Equal(t, payer.ErrPaymentNotFound, repo.DeletePayment(ctx, 4))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepository_AppSettings(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSettingsRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT key, value FROM app_settings WHERE key IN ($1, $2)")).
		WithArgs(budget.KeyDefaultStipend, budget.KeyDefaultPercent).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value"}).AddRow(budget.KeyDefaultStipend, "5000"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM app_settings WHERE key = $1")).
		WithArgs(budget.KeyDefaultPercent).WillReturnResult(sqlmock.NewResult(0, 1))

	svc := budget.NewService(repo)
	bs, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.True(t, bs.DefaultStipend.Valid)
	assert.False(t, bs.DefaultPercent.Valid)

	require.NoError(t, repo.SetAppSettings(ctx, map[string]string{budget.KeyDefaultPercent: ""}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepository_GetPaymentSettingsByYear(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSettingsRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("FROM payment_settings WHERE academic_year = $1")).
		WithArgs("2030-2031").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("FROM payment_settings WHERE academic_year = $1")).
		WithArgs("2024-2025").
		WillReturnError(errors.New("connection reset"))

	_, err := repo.GetPaymentSettingsByYear(ctx, "2030-2031")
	assert.Equal(t, settings.ErrNotFound, err)

	_, err = repo.GetPaymentSettingsByYear(ctx, "2024-2025")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "getting payment settings by year")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRepository_Monthly(t *testing.T) {
	db, mock := newMock(t)
	repo := NewStatsRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE EXTRACT(YEAR FROM payment_date) = $1")).
		WithArgs(2024).
		WillReturnRows(sqlmock.NewRows([]string{"month", "payments_count", "total_amount"}).
			AddRow("2024-09", 3, "1500").
			AddRow("2024-10", 1, "500"))

	ms, err := repo.Monthly(context.Background(), 2024)
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, "2024-09", ms[0].Month)
	assert.Equal(t, 3, ms[0].PaymentsCount)
	assert.True(t, ms[1].TotalAmount.Equal(decimal.NewFromInt(500)))
	assert.NoError(t, mock.ExpectationsWereMet())
}
