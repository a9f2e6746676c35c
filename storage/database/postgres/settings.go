package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/profpay/profpay/core"
	"github.com/profpay/profpay/core/budget"
	"github.com/profpay/profpay/core/settings"
)

const settingsColumns = "id, academic_year, currency, fall_amount, spring_amount, is_active, created_at, updated_at"

type settingsRepository struct {
	repository
}

var (
	_ settings.Repository = (*settingsRepository)(nil) // interface compliance check
	_ budget.Store        = (*settingsRepository)(nil)
)

func NewSettingsRepository(exec core.DBExecutor) *settingsRepository {
	return &settingsRepository{repository{exec: exec}}
}

// trapNoRowsErr maps psql "no rows" err to settings.ErrNotFound
func (repo settingsRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows || err == settings.ErrNotFound {
		return settings.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo settingsRepository) CreatePaymentSettings(ctx context.Context, ps settings.PaymentSettings, exec ...core.DBExecutor) (settings.PaymentSettings, error) {
	id, err := insert(ctx, repo.getExec(exec), `
		INSERT INTO payment_settings (academic_year, currency, fall_amount, spring_amount, is_active, created_at, updated_at)
		VALUES (:academic_year, :currency, :fall_amount, :spring_amount, :is_active, :created_at, :updated_at)
		RETURNING id`, ps)
	if err != nil {
		return settings.PaymentSettings{}, errors.Wrap(err, "inserting payment settings")
	}
	ps.ID = id
	return ps, nil
}

func (repo settingsRepository) QueryPaymentSettings(ctx context.Context, exec ...core.DBExecutor) ([]settings.PaymentSettings, error) {
	all := make([]settings.PaymentSettings, 0)
	q := "SELECT " + settingsColumns + " FROM payment_settings ORDER BY academic_year DESC"
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &all, q); err != nil {
		return nil, errors.Wrap(err, "querying payment settings")
	}
	return all, nil
}

func (repo settingsRepository) GetPaymentSettings(ctx context.Context, id int, exec ...core.DBExecutor) (settings.PaymentSettings, error) {
	exe := repo.getExec(exec)
	var ps settings.PaymentSettings
	if err := sqlx.GetContext(ctx, exe, &ps, exe.Rebind("SELECT "+settingsColumns+" FROM payment_settings WHERE id = ?"), id); err != nil {
		return settings.PaymentSettings{}, repo.trapNoRowsErr(err, "getting payment settings")
	}
	return ps, nil
}

func (repo settingsRepository) GetPaymentSettingsByYear(ctx context.Context, year string, exec ...core.DBExecutor) (settings.PaymentSettings, error) {
	exe := repo.getExec(exec)
	var ps settings.PaymentSettings
	q := exe.Rebind("SELECT " + settingsColumns + " FROM payment_settings WHERE academic_year = ?")
	if err := sqlx.GetContext(ctx, exe, &ps, q, year); err != nil {
		return settings.PaymentSettings{}, repo.trapNoRowsErr(err, "getting payment settings by year")
	}
	return ps, nil
}

func (repo settingsRepository) UpdatePaymentSettings(ctx context.Context, ps settings.PaymentSettings, exec ...core.DBExecutor) (settings.PaymentSettings, error) {
	err := update(ctx, repo.getExec(exec), `
		UPDATE payment_settings SET
			currency = :currency, fall_amount = :fall_amount, spring_amount = :spring_amount,
			is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`, ps, settings.ErrNotFound)
	if err != nil {
		return settings.PaymentSettings{}, repo.trapNoRowsErr(err, "updating payment settings")
	}
	return ps, nil
}

func (repo settingsRepository) DeletePaymentSettings(ctx context.Context, id int, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	res, err := exe.ExecContext(ctx, exe.Rebind("DELETE FROM payment_settings WHERE id = ?"), id)
	if err != nil {
		return errors.Wrap(err, "deleting payment settings")
	}
	return checkAffected(res.RowsAffected, settings.ErrNotFound)
}

func (repo settingsRepository) GetAppSettings(ctx context.Context, keys ...string) (map[string]string, error) {
	values := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return values, nil
	}
	exe := repo.exec
	q, args, err := sqlx.In("SELECT key, value FROM app_settings WHERE key IN (?)", keys)
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	rows, err := exe.QueryxContext(ctx, exe.Rebind(q), args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying app settings")
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var key, value string
		if err = rows.Scan(&key, &value); err != nil {
			return nil, errors.Wrap(err, "scanning app settings")
		}
		values[key] = value
	}
	return values, errors.Wrap(rows.Err(), "querying app settings")
}

// SetAppSettings upserts values, an empty value deletes the key.
func (repo settingsRepository) SetAppSettings(ctx context.Context, values map[string]string, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	now := time.Now().UTC()
	for key, value := range values {
		var err error
		if value == "" {
			_, err = exe.ExecContext(ctx, exe.Rebind("DELETE FROM app_settings WHERE key = ?"), key)
		} else {
			_, err = exe.ExecContext(ctx, exe.Rebind(`
				INSERT INTO app_settings (key, value, updated_at) VALUES (?, ?, ?)
				ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`),
				key, value, now)
		}
		if err != nil {
			return errors.Wrapf(err, "saving app setting %s", key)
		}
	}
	return nil
}
