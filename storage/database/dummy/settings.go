package dummydb

import (
	"context"
	"sort"

	"github.com/profpay/profpay/core"
	"github.com/profpay/profpay/core/budget"
	"github.com/profpay/profpay/core/settings"
)

type settingsRepository struct {
	db *settingsTable
}

var (
	_ settings.Repository = (*settingsRepository)(nil) // interface compliance check
	_ budget.Store        = (*settingsRepository)(nil)
)

// NewSettingsRepository returns the payment settings repository, which is also the budget settings store.
func NewSettingsRepository(db *DB) *settingsRepository {
	return &settingsRepository{db: db.settings}
}

func (repo *settingsRepository) CreatePaymentSettings(_ context.Context, ps settings.PaymentSettings, _ ...core.DBExecutor) (settings.PaymentSettings, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.pkCount++
	ps.ID = repo.db.pkCount
	repo.db.table[ps.ID] = &ps
	return ps, nil
}

func (repo *settingsRepository) QueryPaymentSettings(_ context.Context, _ ...core.DBExecutor) ([]settings.PaymentSettings, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	all := make([]settings.PaymentSettings, 0, len(repo.db.table))
	for _, ps := range repo.db.table {
		all = append(all, *ps)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].AcademicYear > all[j].AcademicYear })
	return all, nil
}

func (repo *settingsRepository) GetPaymentSettings(_ context.Context, id int, _ ...core.DBExecutor) (settings.PaymentSettings, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if ps, ok := repo.db.table[id]; ok {
		return *ps, nil
	}
	return settings.PaymentSettings{}, settings.ErrNotFound
}

func (repo *settingsRepository) GetPaymentSettingsByYear(_ context.Context, year string, _ ...core.DBExecutor) (settings.PaymentSettings, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, ps := range repo.db.table {
		if ps.AcademicYear == year {
			return *ps, nil
		}
	}
	return settings.PaymentSettings{}, settings.ErrNotFound
}

func (repo *settingsRepository) UpdatePaymentSettings(_ context.Context, ps settings.PaymentSettings, _ ...core.DBExecutor) (settings.PaymentSettings, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[ps.ID]; !ok {
		return settings.PaymentSettings{}, settings.ErrNotFound
	}
	repo.db.table[ps.ID] = &ps
	return ps, nil
}

func (repo *settingsRepository) DeletePaymentSettings(_ context.Context, id int, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return settings.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}

func (repo *settingsRepository) GetAppSettings(_ context.Context, keys ...string) (map[string]string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	values := make(map[string]string, len(keys))
	for _, key := range keys {
		if v, ok := repo.db.app[key]; ok {
			values[key] = v
		}
	}
	return values, nil
}

func (repo *settingsRepository) SetAppSettings(_ context.Context, values map[string]string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for key, value := range values {
		if value == "" {
			delete(repo.db.app, key)
		} else {
			repo.db.app[key] = value
		}
	}
	return nil
}
