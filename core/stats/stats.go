// Package stats computes the dashboard, per-faculty and monthly statistics.
package stats

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/profpay/profpay/core"
)

const (
	keyDashboard = "stats:dashboard"
	keyFaculties = "stats:faculties"
	keyMonthly   = "stats:monthly:"
)

// ErrCacheMiss is returned by a Cache on unknown keys.
var ErrCacheMiss = errors.New("cache miss")

type (
	Dashboard struct {
		TotalPayers     int             `json:"total_payers" db:"total_payers"`
		ActivePayers    int             `json:"active_payers" db:"active_payers"`
		TotalDebtors    int             `json:"total_debtors" db:"total_debtors"`
		TotalPaidAmount decimal.Decimal `json:"total_paid_amount" db:"total_paid_amount"`
		PaidCount       int             `json:"paid_count" db:"paid_count"`
		PartialCount    int             `json:"partial_count" db:"partial_count"`
		UnpaidCount     int             `json:"unpaid_count" db:"unpaid_count"`
		ExemptCount     int             `json:"exempt_count" db:"exempt_count"`
	}

	FacultyStats struct {
		FacultyID   int             `json:"faculty_id" db:"faculty_id"`
		FacultyName string          `json:"faculty_name" db:"faculty_name"`
		TotalPayers int             `json:"total_payers" db:"total_payers"`
		PaidCount   int             `json:"paid_count" db:"paid_count"`
		UnpaidCount int             `json:"unpaid_count" db:"unpaid_count"`
		TotalAmount decimal.Decimal `json:"total_amount" db:"total_amount"`
	}

	MonthlyStats struct {
		Month         string          `json:"month" db:"month"` // YYYY-MM
		PaymentsCount int             `json:"payments_count" db:"payments_count"`
		TotalAmount   decimal.Decimal `json:"total_amount" db:"total_amount"`
	}

	Repository interface {
		Dashboard(ctx context.Context, exec ...core.DBExecutor) (Dashboard, error)
		// ByFaculty returns the stats of every active faculty, by faculty name.
		ByFaculty(ctx context.Context, exec ...core.DBExecutor) ([]FacultyStats, error)
		// Monthly returns the payments of a calendar year grouped by month, months without payments are omitted.
		Monthly(ctx context.Context, year int, exec ...core.DBExecutor) ([]MonthlyStats, error)
	}

	Cache interface {
		Get(ctx context.Context, key string) ([]byte, error)
		Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
		Delete(ctx context.Context, keys ...string) error
	}

	Service struct {
		repo   Repository
		cache  Cache
		ttl    time.Duration
		logger core.Logger
	}
)

func NewService(repo Repository, cache Cache, ttl time.Duration, logger core.Logger) *Service {
	return &Service{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

func (svc *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	var d Dashboard
	err := svc.cached(ctx, keyDashboard, &d, func() (interface{}, error) {
		return svc.repo.Dashboard(ctx)
	})
	return d, err
}

func (svc *Service) ByFaculty(ctx context.Context) ([]FacultyStats, error) {
	var fs []FacultyStats
	err := svc.cached(ctx, keyFaculties, &fs, func() (interface{}, error) {
		return svc.repo.ByFaculty(ctx)
	})
	if fs == nil {
		fs = []FacultyStats{}
	}
	return fs, err
}

func (svc *Service) Monthly(ctx context.Context, year int) ([]MonthlyStats, error) {
	var ms []MonthlyStats
	err := svc.cached(ctx, keyMonthly+strconv.Itoa(year), &ms, func() (interface{}, error) {
		return svc.repo.Monthly(ctx, year)
	})
	if ms == nil {
		ms = []MonthlyStats{}
	}
	return ms, err
}

// Invalidate drops the cached stats. Called whenever payers or payments change, with the calendar
// years of the payment dates involved: the monthly stats of those years are dropped along with the ones
// around now.
func (svc *Service) Invalidate(ctx context.Context, paymentYears ...int) {
	keys := []string{keyDashboard, keyFaculties}
	seen := make(map[int]bool)
	year := time.Now().Year()
	for _, y := range append([]int{year - 1, year, year + 1}, paymentYears...) {
		if !seen[y] {
			seen[y] = true
			keys = append(keys, keyMonthly+strconv.Itoa(y))
		}
	}
	if err := svc.cache.Delete(ctx, keys...); err != nil {
		svc.logger.Warn("invalidating stats cache: "+err.Error(), err)
	}
}

// cached decodes the cached value of key into dst, or computes it with fn and caches it.
// Cache failures are logged and never returned.
func (svc *Service) cached(ctx context.Context, key string, dst interface{}, fn func() (interface{}, error)) error {
	if b, err := svc.cache.Get(ctx, key); err == nil {
		if err = json.Unmarshal(b, dst); err == nil {
			return nil
		}
		svc.logger.Warn("decoding cached "+key+": "+err.Error(), err)
	} else if errors.Cause(err) != ErrCacheMiss {
		svc.logger.Warn("reading cached "+key+": "+err.Error(), err)
	}

	v, err := fn()
	if err != nil {
		return errors.Wrapf(err, "computing %s", key)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encoding %s", key)
	}
	if err = json.Unmarshal(b, dst); err != nil {
		return errors.Wrapf(err, "decoding %s", key)
	}
	if err = svc.cache.Set(ctx, key, b, svc.ttl); err != nil {
		svc.logger.Warn("caching "+key+": "+err.Error(), err)
	}
	return nil
}
