package settings

import (
	"context"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/profpay/profpay/core"
	"github.com/profpay/profpay/core/academic"
)

const DefaultCurrency = "RUB"

// PaymentSettings are the fee amounts of an academic year.
type PaymentSettings struct {
	ID           int             `json:"id" db:"id"`
	AcademicYear string          `json:"academic_year" db:"academic_year"`
	Currency     string          `json:"currency" db:"currency"`
	FallAmount   decimal.Decimal `json:"fall_amount" db:"fall_amount"`
	SpringAmount decimal.Decimal `json:"spring_amount" db:"spring_amount"`
	IsActive     bool            `json:"is_active" db:"is_active"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// TotalYearAmount is the fee of the whole academic year.
func (ps PaymentSettings) TotalYearAmount() decimal.Decimal {
	return ps.FallAmount.Add(ps.SpringAmount)
}

// Response adds the derived total to the serialized settings.
func (ps PaymentSettings) Response() PaymentSettingsResponse {
	return PaymentSettingsResponse{PaymentSettings: ps, TotalYearAmount: ps.TotalYearAmount()}
}

type PaymentSettingsResponse struct {
	PaymentSettings
	TotalYearAmount decimal.Decimal `json:"total_year_amount"`
}

type NewPaymentSettings struct {
	AcademicYear string          `json:"academic_year" validate:"required,academicyear"`
	Currency     string          `json:"currency" validate:"omitempty,len=3,alpha"`
	FallAmount   decimal.Decimal `json:"fall_amount" validate:"gt=0"`
	SpringAmount decimal.Decimal `json:"spring_amount" validate:"gt=0"`
}

func (ns *NewPaymentSettings) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	ns.AcademicYear = core.CleanString(ns.AcademicYear)
	ns.Currency = strings.ToUpper(core.CleanString(ns.Currency))
	if ns.Currency == "" {
		ns.Currency = DefaultCurrency
	}
	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.checkYearUniqueness(ctx, ns.AcademicYear)
}

type UpdatePaymentSettings struct {
	Currency     string              `json:"currency" validate:"omitempty,len=3,alpha"`
	FallAmount   decimal.NullDecimal `json:"fall_amount" validate:"omitempty,gt=0"`
	SpringAmount decimal.NullDecimal `json:"spring_amount" validate:"omitempty,gt=0"`
	IsActive     *bool               `json:"is_active"`
}

func (us *UpdatePaymentSettings) Validate(validate *validator.Validate) error {
	us.Currency = strings.ToUpper(core.CleanString(us.Currency))
	return validate.Struct(us)
}

func (us UpdatePaymentSettings) Apply(ps PaymentSettings) PaymentSettings {
	if us.Currency != "" {
		ps.Currency = us.Currency
	}
	if us.FallAmount.Valid {
		ps.FallAmount = us.FallAmount.Decimal
	}
	if us.SpringAmount.Valid {
		ps.SpringAmount = us.SpringAmount.Decimal
	}
	if us.IsActive != nil {
		ps.IsActive = *us.IsActive
	}
	return ps
}

var (
	academicYearTag  = "academicyear"
	academicYearText = academic.ErrInvalidYear.Error()
)

// InitValidators registers the settings validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(academicYearTag, academicYearValidation)
	core.RegisterCustomTranslation(validate, translator, academicYearTag, academicYearText)
}

func academicYearValidation(fl validator.FieldLevel) bool {
	_, err := academic.Parse(fl.Field().String())
	return err == nil
}
