package exportsvc

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
	"github.com/xuri/excelize/v2"

	"github.com/profpay/profpay/core"
	"github.com/profpay/profpay/core/payer"
)

func TestWritePayers(t *testing.T) {
	payers := []payer.Payer{
		{
			ID:              1,
			LastName:        "Иванов",
			FirstName:       "Иван",
			MiddleName:      null.StringFrom("Иванович"),
			IsBudget:        true,
			StipendAmount:   decimal.NewNullDecimal(decimal.NewFromInt(3000)),
			BudgetPercent:   decimal.NewNullDecimal(decimal.NewFromInt(1)),
			FacultyID:       null.IntFrom(2),
			GroupID:         null.IntFrom(5),
			Course:          null.IntFrom(2),
			Status:          payer.StatusPartial,
			MembershipStart: core.NewDate(2024, time.September, 1),
			TotalPaid:       decimal.NewFromInt(10),
		},
		{ID: 2, LastName: "Петрова", FirstName: "Анна", GroupName: null.StringFrom("1-мд-35"), Status: payer.StatusExempt, TotalPaid: decimal.Zero},
	}
	names := Names{Faculties: map[int]string{2: "ФИТ"}, Groups: map[int]string{5: "ИТ-21"}}

	var buf bytes.Buffer
	require.NoError(t, WritePayers(&buf, payers, names))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, headers, rows[0])

	first := rows[1]
	assert.Equal(t, "Иванов Иван Иванович", first[1])
	assert.Equal(t, "ФИТ", first[2])
	assert.Equal(t, "ИТ-21", first[3])
	assert.Equal(t, "Да", first[7])
	assert.Equal(t, "30", first[10]) // round(3000 * 1) / 100
	assert.Equal(t, "Частично", first[12])
	assert.Equal(t, "01.09.2024", first[13])

	second := rows[2]
	assert.Equal(t, "Петрова Анна", second[1])
	assert.Equal(t, "1-мд-35", second[3], "free-form group name without a group")
	assert.Equal(t, "Нет", second[7])
	assert.Equal(t, "", second[10])
	assert.Equal(t, "Освобождён", second[12])
}

func TestFilename(t *testing.T) {
	at := time.Date(2024, time.October, 5, 14, 3, 9, 0, time.UTC)
	assert.Equal(t, "payers_20241005_140309.xlsx", Filename(at))
}
