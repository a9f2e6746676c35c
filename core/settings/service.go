// Package settings manages the fee amounts of each academic year.
package settings

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/profpay/profpay/core"
)

var (
	ErrNotFound   = errors.New("payment settings not found")
	ErrYearExists = errors.New("payment settings for this academic year already exist")
)

type (
	Repository interface {
		CreatePaymentSettings(ctx context.Context, ps PaymentSettings, exec ...core.DBExecutor) (PaymentSettings, error)
		// QueryPaymentSettings returns all settings, latest academic year first.
		QueryPaymentSettings(ctx context.Context, exec ...core.DBExecutor) ([]PaymentSettings, error)
		GetPaymentSettings(ctx context.Context, id int, exec ...core.DBExecutor) (PaymentSettings, error)
		GetPaymentSettingsByYear(ctx context.Context, year string, exec ...core.DBExecutor) (PaymentSettings, error)
		UpdatePaymentSettings(ctx context.Context, ps PaymentSettings, exec ...core.DBExecutor) (PaymentSettings, error)
		DeletePaymentSettings(ctx context.Context, id int, exec ...core.DBExecutor) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkYearUniqueness(ctx context.Context, year string) error {
	if _, err := svc.repo.GetPaymentSettingsByYear(ctx, year); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return nil
		}
		return errors.Wrap(err, "checking academic year")
	}
	return core.NewValidationError(ErrYearExists, core.FieldError{Field: "academic_year", Error: ErrYearExists.Error()})
}

func (svc *Service) Create(ctx context.Context, ns NewPaymentSettings) (PaymentSettings, error) {
	now := time.Now().UTC()
	return svc.repo.CreatePaymentSettings(ctx, PaymentSettings{
		AcademicYear: ns.AcademicYear,
		Currency:     ns.Currency,
		FallAmount:   ns.FallAmount,
		SpringAmount: ns.SpringAmount,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func (svc *Service) Query(ctx context.Context) ([]PaymentSettings, error) {
	return svc.repo.QueryPaymentSettings(ctx)
}

func (svc *Service) Get(ctx context.Context, id int) (PaymentSettings, error) {
	return svc.repo.GetPaymentSettings(ctx, id)
}

func (svc *Service) GetByYear(ctx context.Context, year string) (PaymentSettings, error) {
	return svc.repo.GetPaymentSettingsByYear(ctx, year)
}

// Current returns the active settings of the latest academic year.
func (svc *Service) Current(ctx context.Context) (PaymentSettings, error) {
	all, err := svc.repo.QueryPaymentSettings(ctx)
	if err != nil {
		return PaymentSettings{}, errors.Wrap(err, "querying payment settings")
	}
	for _, ps := range all {
		if ps.IsActive {
			return ps, nil
		}
	}
	return PaymentSettings{}, ErrNotFound
}

func (svc *Service) Update(ctx context.Context, ps PaymentSettings, us UpdatePaymentSettings) (PaymentSettings, error) {
	ps = us.Apply(ps)
	ps.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdatePaymentSettings(ctx, ps)
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeletePaymentSettings(ctx, id)
}
