package dummydb

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/profpay/profpay/core"
	"github.com/profpay/profpay/core/payer"
	"github.com/profpay/profpay/core/stats"
)

type statsRepository struct {
	payers    *payerTable
	faculties *facultyTable
}

var _ stats.Repository = (*statsRepository)(nil) // interface compliance check

func NewStatsRepository(db *DB) stats.Repository {
	return &statsRepository{payers: db.payer, faculties: db.faculty}
}

func (repo *statsRepository) paidBy() map[int]decimal.Decimal {
	paid := make(map[int]decimal.Decimal)
	for _, pm := range repo.payers.payments {
		paid[pm.PayerID] = paid[pm.PayerID].Add(pm.Amount)
	}
	return paid
}

func (repo *statsRepository) Dashboard(_ context.Context, _ ...core.DBExecutor) (stats.Dashboard, error) {
	repo.payers.RLock()
	defer repo.payers.RUnlock()

	d := stats.Dashboard{TotalPaidAmount: decimal.Zero}
	for _, pm := range repo.payers.payments {
		d.TotalPaidAmount = d.TotalPaidAmount.Add(pm.Amount)
	}
	for _, p := range repo.payers.table {
		d.TotalPayers++
		if !p.IsActive {
			continue
		}
		d.ActivePayers++
		if p.IsDebtor() {
			d.TotalDebtors++
		}
		switch p.Status {
		case payer.StatusPaid:
			d.PaidCount++
		case payer.StatusPartial:
			d.PartialCount++
		case payer.StatusUnpaid:
			d.UnpaidCount++
		case payer.StatusExempt:
			d.ExemptCount++
		}
	}
	return d, nil
}

func (repo *statsRepository) ByFaculty(_ context.Context, _ ...core.DBExecutor) ([]stats.FacultyStats, error) {
	repo.faculties.RLock()
	defer repo.faculties.RUnlock()
	repo.payers.RLock()
	defer repo.payers.RUnlock()

	paid := repo.paidBy()
	byID := make(map[int]*stats.FacultyStats)
	for _, f := range repo.faculties.table {
		if f.IsActive {
			byID[f.ID] = &stats.FacultyStats{FacultyID: f.ID, FacultyName: f.Name, TotalAmount: decimal.Zero}
		}
	}
	for _, p := range repo.payers.table {
		fs, ok := byID[p.FacultyID.Int]
		if !p.IsActive || !p.FacultyID.Valid || !ok {
			continue
		}
		fs.TotalPayers++
		if p.Status == payer.StatusPaid {
			fs.PaidCount++
		} else if p.IsDebtor() {
			fs.UnpaidCount++
		}
		fs.TotalAmount = fs.TotalAmount.Add(paid[p.ID])
	}

	out := make([]stats.FacultyStats, 0, len(byID))
	for _, fs := range byID {
		out = append(out, *fs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FacultyName < out[j].FacultyName })
	return out, nil
}

func (repo *statsRepository) Monthly(_ context.Context, year int, _ ...core.DBExecutor) ([]stats.MonthlyStats, error) {
	repo.payers.RLock()
	defer repo.payers.RUnlock()

	byMonth := make(map[string]*stats.MonthlyStats)
	for _, pm := range repo.payers.payments {
		if pm.PaymentDate.Year() != year {
			continue
		}
		month := pm.PaymentDate.Format("2006-01")
		ms, ok := byMonth[month]
		if !ok {
			ms = &stats.MonthlyStats{Month: month, TotalAmount: decimal.Zero}
			byMonth[month] = ms
		}
		ms.PaymentsCount++
		ms.TotalAmount = ms.TotalAmount.Add(pm.Amount)
	}

	out := make([]stats.MonthlyStats, 0, len(byMonth))
	for _, ms := range byMonth {
		out = append(out, *ms)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}
