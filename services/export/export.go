// Package exportsvc writes payer lists as Excel workbooks.
package exportsvc

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/profpay/profpay/core/faculty"
	"github.com/profpay/profpay/core/payer"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	sheetName   = "Плательщики"
	dateLayout  = "02.01.2006"
)

var (
	headers = []string{
		"ID", "ФИО", "Факультет", "Группа", "Курс", "Email", "Телефон",
		"Бюджет", "Стипендия", "Процент", "К оплате", "Оплачено", "Статус", "Членство с", "Членство по",
	}
	statusLabels = map[payer.Status]string{
		payer.StatusPaid:    "Оплачено",
		payer.StatusPartial: "Частично",
		payer.StatusUnpaid:  "Не оплачено",
		payer.StatusExempt:  "Освобождён",
	}
)

// Names resolves faculty and group ids to names.
type Names struct {
	Faculties map[int]string
	Groups    map[int]string
}

// References lists the faculties and groups named in exports.
type References interface {
	QueryFaculties(ctx context.Context, activeOnly bool) ([]faculty.Faculty, error)
	QueryGroups(ctx context.Context, filter faculty.GroupFilter) ([]faculty.Group, error)
}

// LoadNames reads the names of every faculty and group, deleted ones included.
func LoadNames(ctx context.Context, refs References) (Names, error) {
	names := Names{Faculties: make(map[int]string), Groups: make(map[int]string)}
	faculties, err := refs.QueryFaculties(ctx, false)
	if err != nil {
		return names, errors.Wrap(err, "querying faculties")
	}
	for _, f := range faculties {
		names.Faculties[f.ID] = f.Name
	}
	groups, err := refs.QueryGroups(ctx, faculty.GroupFilter{})
	if err != nil {
		return names, errors.Wrap(err, "querying groups")
	}
	for _, g := range groups {
		names.Groups[g.ID] = g.Name
	}
	return names, nil
}

// Filename returns the attachment name of an export made at t.
func Filename(t time.Time) string {
	return fmt.Sprintf("payers_%s.xlsx", t.Format("20060102_150405"))
}

// WritePayers writes a workbook with one row per payer to w.
func WritePayers(w io.Writer, payers []payer.Payer, names Names) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return errors.Wrap(err, "naming sheet")
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "creating header style")
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err = f.SetCellValue(sheetName, cell, header); err != nil {
			return errors.Wrap(err, "writing header")
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err = f.SetCellStyle(sheetName, "A1", lastHeader, style); err != nil {
		return errors.Wrap(err, "styling header")
	}

	for i, p := range payers {
		p = p.Derive()
		if err = f.SetSheetRow(sheetName, fmt.Sprintf("A%d", i+2), rowOf(p, names)); err != nil {
			return errors.Wrapf(err, "writing payer %d", p.ID)
		}
	}
	if err = f.SetColWidth(sheetName, "B", "B", 36); err != nil {
		return errors.Wrap(err, "sizing columns")
	}

	return errors.Wrap(f.Write(w), "writing workbook")
}

func rowOf(p payer.Payer, names Names) *[]interface{} {
	var facultyName, groupName, course, budget string
	if p.FacultyID.Valid {
		facultyName = names.Faculties[p.FacultyID.Int]
	}
	if p.GroupID.Valid {
		groupName = names.Groups[p.GroupID.Int]
	} else {
		groupName = p.GroupName.String
	}
	if p.Course.Valid {
		course = fmt.Sprint(p.Course.Int)
	}
	if p.IsBudget {
		budget = "Да"
	} else {
		budget = "Нет"
	}

	row := []interface{}{
		p.ID, p.FullName, facultyName, groupName, course, p.Email.String, p.Phone.String, budget,
		nullNumber(p.StipendAmount.Valid, p.StipendAmount.Decimal.InexactFloat64()),
		nullNumber(p.BudgetPercent.Valid, p.BudgetPercent.Decimal.InexactFloat64()),
		nullNumber(p.PaymentDue.Valid, p.PaymentDue.Decimal.InexactFloat64()),
		p.TotalPaid.InexactFloat64(),
		statusLabels[p.Status],
		formatDate(p.MembershipStart.Time), formatDate(p.MembershipEnd.Time),
	}
	return &row
}

func nullNumber(valid bool, v float64) interface{} {
	if !valid {
		return ""
	}
	return v
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}
