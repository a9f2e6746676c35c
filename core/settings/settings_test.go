package settings_test

import (
	"context"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profpay/profpay/core"
	"github.com/profpay/profpay/core/settings"
	"github.com/profpay/profpay/testutil"
)

func newValidator() *validator.Validate {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	settings.InitValidators(validate, translator)
	return validate
}

func TestNewPaymentSettings_Validate(t *testing.T) {
	svcs := testutil.NewServices(core.NewTestConfig())
	testutil.CreatePaymentSettings(t, svcs.Settings, "2024-2025", 500, 500)
	validate := newValidator()
	ctx := context.Background()

	ns := settings.NewPaymentSettings{AcademicYear: " 2025-2026 ", Currency: "usd", FallAmount: decimal.NewFromInt(700), SpringAmount: decimal.NewFromInt(800)}
	require.NoError(t, ns.Validate(ctx, validate, svcs.Settings))
	assert.Equal(t, "2025-2026", ns.AcademicYear)
	assert.Equal(t, "USD", ns.Currency)

	ns = settings.NewPaymentSettings{AcademicYear: "2025-2026", FallAmount: decimal.NewFromInt(700), SpringAmount: decimal.NewFromInt(800)}
	require.NoError(t, ns.Validate(ctx, validate, svcs.Settings))
	assert.Equal(t, settings.DefaultCurrency, ns.Currency)

	invalid := map[string]settings.NewPaymentSettings{
		"bad year":        {AcademicYear: "2025/2026", FallAmount: decimal.NewFromInt(1), SpringAmount: decimal.NewFromInt(1)},
		"year not in row": {AcademicYear: "2025-2027", FallAmount: decimal.NewFromInt(1), SpringAmount: decimal.NewFromInt(1)},
		"zero amount":     {AcademicYear: "2025-2026", SpringAmount: decimal.NewFromInt(1)},
		"bad currency":    {AcademicYear: "2025-2026", Currency: "rubles", FallAmount: decimal.NewFromInt(1), SpringAmount: decimal.NewFromInt(1)},
	}
	for name, ns := range invalid {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, ns.Validate(ctx, validate, svcs.Settings))
		})
	}

	ns = settings.NewPaymentSettings{AcademicYear: "2024-2025", FallAmount: decimal.NewFromInt(1), SpringAmount: decimal.NewFromInt(1)}
	err := ns.Validate(ctx, validate, svcs.Settings)
	assert.True(t, errors.Is(err, settings.ErrYearExists), "got %v", err)
}

func TestService_Current(t *testing.T) {
	svcs := testutil.NewServices(core.NewTestConfig())
	ctx := context.Background()

	_, err := svcs.Settings.Current(ctx)
	assert.Equal(t, settings.ErrNotFound, errors.Cause(err))

	older := testutil.CreatePaymentSettings(t, svcs.Settings, "2023-2024", 400, 400)
	latest := testutil.CreatePaymentSettings(t, svcs.Settings, "2024-2025", 500, 700)
	assert.Equal(t, "1200", latest.TotalYearAmount().String())
	assert.Equal(t, "1200", latest.Response().TotalYearAmount.String())

	cur, err := svcs.Settings.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, latest.ID, cur.ID)

	inactive := false
	updated, err := svcs.Settings.Update(ctx, latest, settings.UpdatePaymentSettings{IsActive: &inactive, FallAmount: decimal.NewNullDecimal(decimal.NewFromInt(600))})
	require.NoError(t, err)
	assert.Equal(t, "600", updated.FallAmount.String())
	assert.Equal(t, "700", updated.SpringAmount.String(), "unset amounts are kept")

	cur, err = svcs.Settings.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, older.ID, cur.ID, "inactive settings are skipped")

	require.NoError(t, svcs.Settings.Delete(ctx, older.ID))
	_, err = svcs.Settings.Current(ctx)
	assert.Equal(t, settings.ErrNotFound, errors.Cause(err))
	assert.Equal(t, settings.ErrNotFound, errors.Cause(svcs.Settings.Delete(ctx, older.ID)))
}
