package budget

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/profpay/profpay/core"
)

// app settings keys
const (
	KeyDefaultStipend = "budget_default_stipend"
	KeyDefaultPercent = "budget_default_percent"
)

type (
	// Settings holds the defaults applied to new budget payers.
	Settings struct {
		DefaultStipend decimal.NullDecimal `json:"default_stipend" validate:"omitempty,gte=0"`
		DefaultPercent decimal.NullDecimal `json:"default_percent" validate:"omitempty,gte=0,lte=100"`
	}

	// Store is a key/value settings storage.
	Store interface {
		GetAppSettings(ctx context.Context, keys ...string) (map[string]string, error)
		SetAppSettings(ctx context.Context, values map[string]string, exec ...core.DBExecutor) error
	}

	Service struct {
		store Store
	}
)

func (s *Settings) Validate(validate *validator.Validate) error {
	return validate.Struct(s)
}

// PaymentDue is the due amount for the default stipend and percent.
func (s Settings) PaymentDue() decimal.NullDecimal {
	return NullDue(s.DefaultStipend, s.DefaultPercent)
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (svc *Service) Get(ctx context.Context) (Settings, error) {
	values, err := svc.store.GetAppSettings(ctx, KeyDefaultStipend, KeyDefaultPercent)
	if err != nil {
		return Settings{}, errors.Wrap(err, "getting budget settings")
	}
	return Settings{
		DefaultStipend: nullDecimal(values[KeyDefaultStipend]),
		DefaultPercent: nullDecimal(values[KeyDefaultPercent]),
	}, nil
}

func (svc *Service) Update(ctx context.Context, s Settings) (Settings, error) {
	values := map[string]string{
		KeyDefaultStipend: decimalString(s.DefaultStipend),
		KeyDefaultPercent: decimalString(s.DefaultPercent),
	}
	if err := svc.store.SetAppSettings(ctx, values); err != nil {
		return Settings{}, errors.Wrap(err, "saving budget settings")
	}
	return s, nil
}

func nullDecimal(s string) decimal.NullDecimal {
	d, ok := parse(s)
	return decimal.NullDecimal{Decimal: d, Valid: ok}
}

func decimalString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}
