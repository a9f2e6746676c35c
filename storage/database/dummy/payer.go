package dummydb

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/profpay/profpay/core"
	"github.com/profpay/profpay/core/payer"
)

type payerRepository struct {
	db *payerTable
}

var _ payer.Repository = (*payerRepository)(nil) // interface compliance check

func NewPayerRepository(db *DB) payer.Repository {
	return &payerRepository{db: db.payer}
}

// withTotal fills the derived total of p, the caller holds the lock.
func (repo *payerRepository) withTotal(p payer.Payer) payer.Payer {
	p.TotalPaid = repo.sum(p.ID, "")
	return p
}

func (repo *payerRepository) sum(payerID int, academicYear string) decimal.Decimal {
	total := decimal.Zero
	for _, pm := range repo.db.payments {
		if pm.PayerID == payerID && (academicYear == "" || pm.AcademicYear == academicYear) {
			total = total.Add(pm.Amount)
		}
	}
	return total
}

func (repo *payerRepository) CreatePayer(_ context.Context, p payer.Payer, _ ...core.DBExecutor) (payer.Payer, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.pkCount++
	p.ID = repo.db.pkCount
	p.TotalPaid = decimal.Zero
	repo.db.table[p.ID] = &p
	return p, nil
}

func (repo *payerRepository) QueryPayers(_ context.Context, filter payer.QueryFilter, page *core.Pagination, _ ...core.DBExecutor) ([]payer.Payer, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	payers := make([]payer.Payer, 0)
	for _, p := range repo.db.table {
		if filter.Match(*p) {
			payers = append(payers, repo.withTotal(*p))
		}
	}
	sort.Slice(payers, func(i, j int) bool {
		a, b := payers[i], payers[j]
		if a.LastName != b.LastName {
			return a.LastName < b.LastName
		}
		if a.FirstName != b.FirstName {
			return a.FirstName < b.FirstName
		}
		return a.ID < b.ID
	})

	total := len(payers)
	if page != nil {
		start, end := paginate(total, *page)
		payers = payers[start:end]
	}
	return payers, total, nil
}

func (repo *payerRepository) GetPayer(_ context.Context, id int, _ ...core.DBExecutor) (payer.Payer, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.table[id]; ok {
		return repo.withTotal(*p), nil
	}
	return payer.Payer{}, payer.ErrNotFound
}

func (repo *payerRepository) UpdatePayer(_ context.Context, p payer.Payer, _ ...core.DBExecutor) (payer.Payer, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[p.ID]
	if !ok {
		return payer.Payer{}, payer.ErrNotFound
	}
	p.CreatedAt = orig.CreatedAt
	p.CreatedBy = orig.CreatedBy
	repo.db.table[p.ID] = &p
	return repo.withTotal(p), nil
}

func (repo *payerRepository) CreatePayment(_ context.Context, pm payer.Payment, _ ...core.DBExecutor) (payer.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[pm.PayerID]; !ok {
		return payer.Payment{}, payer.ErrNotFound
	}
	repo.db.paymentPkCount++
	pm.ID = repo.db.paymentPkCount
	repo.db.payments[pm.ID] = &pm
	return pm, nil
}

func (repo *payerRepository) QueryPayments(_ context.Context, filter payer.PaymentFilter, _ ...core.DBExecutor) ([]payer.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	payments := make([]payer.Payment, 0)
	for _, pm := range repo.db.payments {
		if filter.PayerID > 0 && pm.PayerID != filter.PayerID {
			continue
		}
		if filter.AcademicYear != "" && pm.AcademicYear != filter.AcademicYear {
			continue
		}
		payments = append(payments, *pm)
	}
	// newest first
	sort.Slice(payments, func(i, j int) bool {
		a, b := payments[i], payments[j]
		if !a.PaymentDate.Equal(b.PaymentDate.Time) {
			return a.PaymentDate.After(b.PaymentDate.Time)
		}
		return a.ID > b.ID
	})
	return payments, nil
}

func (repo *payerRepository) GetPayment(_ context.Context, id int, _ ...core.DBExecutor) (payer.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if pm, ok := repo.db.payments[id]; ok {
		return *pm, nil
	}
	return payer.Payment{}, payer.ErrPaymentNotFound
}

func (repo *payerRepository) UpdatePayment(_ context.Context, pm payer.Payment, _ ...core.DBExecutor) (payer.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.payments[pm.ID]; !ok {
		return payer.Payment{}, payer.ErrPaymentNotFound
	}
	repo.db.payments[pm.ID] = &pm
	return pm, nil
}

func (repo *payerRepository) DeletePayment(_ context.Context, id int, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.payments[id]; !ok {
		return payer.ErrPaymentNotFound
	}
	delete(repo.db.payments, id)
	return nil
}

func (repo *payerRepository) SumPayments(_ context.Context, payerID int, academicYear string, _ ...core.DBExecutor) (decimal.Decimal, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.sum(payerID, academicYear), nil
}
