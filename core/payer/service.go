// Package payer manages payers, their payments and payment statuses.
package payer

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/profpay/profpay/core"
	"github.com/profpay/profpay/core/budget"
	"github.com/profpay/profpay/core/faculty"
	"github.com/profpay/profpay/core/settings"
)

var (
	ErrNotFound        = errors.New("payer not found")
	ErrPaymentNotFound = errors.New("payment not found")
)

type (
	Repository interface {
		CreatePayer(ctx context.Context, p Payer, exec ...core.DBExecutor) (Payer, error)
		// QueryPayers returns the active payers matching filter, ordered by last and first name, and their total count.
		// A nil page returns all of them.
		QueryPayers(ctx context.Context, filter QueryFilter, page *core.Pagination, exec ...core.DBExecutor) ([]Payer, int, error)
		GetPayer(ctx context.Context, id int, exec ...core.DBExecutor) (Payer, error)
		UpdatePayer(ctx context.Context, p Payer, exec ...core.DBExecutor) (Payer, error)

		CreatePayment(ctx context.Context, pm Payment, exec ...core.DBExecutor) (Payment, error)
		// QueryPayments returns payments, newest first.
		QueryPayments(ctx context.Context, filter PaymentFilter, exec ...core.DBExecutor) ([]Payment, error)
		GetPayment(ctx context.Context, id int, exec ...core.DBExecutor) (Payment, error)
		UpdatePayment(ctx context.Context, pm Payment, exec ...core.DBExecutor) (Payment, error)
		DeletePayment(ctx context.Context, id int, exec ...core.DBExecutor) error
		// SumPayments sums the payments of a payer, over one academic year when set.
		SumPayments(ctx context.Context, payerID int, academicYear string, exec ...core.DBExecutor) (decimal.Decimal, error)
	}

	// References checks and loads faculties and groups.
	References interface {
		CheckFacultyExists(ctx context.Context, id int) error
		CheckGroupExists(ctx context.Context, id int) error
		GetFaculty(ctx context.Context, id int) (faculty.Faculty, error)
		GetGroup(ctx context.Context, id int) (faculty.Group, error)
	}

	YearSettings interface {
		GetByYear(ctx context.Context, year string) (settings.PaymentSettings, error)
	}

	BudgetDefaults interface {
		Get(ctx context.Context) (budget.Settings, error)
	}

	Service struct {
		db       core.DB
		repo     Repository
		refs     References
		settings YearSettings
		budget   BudgetDefaults
	}
)

func NewService(db core.DB, repo Repository, refs References, settings YearSettings, budget BudgetDefaults) *Service {
	return &Service{db: db, repo: repo, refs: refs, settings: settings, budget: budget}
}

// References gives access to the faculty and group checks used by validation.
func (svc *Service) References() References { return svc.refs }

func (svc *Service) Create(ctx context.Context, np NewPayer, createdBy int) (Payer, error) {
	now := time.Now().UTC()
	p := Payer{
		LastName:        np.LastName,
		FirstName:       np.FirstName,
		MiddleName:      np.MiddleName,
		DateOfBirth:     np.DateOfBirth,
		Email:           np.Email,
		Phone:           np.Phone,
		Telegram:        np.Telegram,
		VK:              np.VK,
		IsBudget:        np.IsBudget,
		StipendAmount:   np.StipendAmount,
		BudgetPercent:   np.BudgetPercent,
		FacultyID:       np.FacultyID,
		GroupID:         np.GroupID,
		GroupName:       np.GroupName,
		Department:      np.Department,
		Course:          np.Course,
		Status:          np.Status,
		MembershipStart: np.MembershipStart,
		MembershipEnd:   np.MembershipEnd,
		IsActive:        true,
		Notes:           np.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
		CreatedBy:       null.NewInt(createdBy, createdBy > 0),
	}

	if p.IsBudget && (!p.StipendAmount.Valid || !p.BudgetPercent.Valid) {
		defaults, err := svc.budget.Get(ctx)
		if err != nil {
			return Payer{}, errors.Wrap(err, "getting budget defaults")
		}
		if !p.StipendAmount.Valid {
			p.StipendAmount = defaults.DefaultStipend
		}
		if !p.BudgetPercent.Valid {
			p.BudgetPercent = defaults.DefaultPercent
		}
	}

	// the group gives the faculty & course when they are not set
	if p.GroupID.Valid && (!p.FacultyID.Valid || !p.Course.Valid) {
		g, err := svc.refs.GetGroup(ctx, p.GroupID.Int)
		if err != nil {
			return Payer{}, errors.Wrap(err, "getting group")
		}
		if !p.FacultyID.Valid {
			p.FacultyID = null.IntFrom(g.FacultyID)
		}
		if !p.Course.Valid {
			p.Course = g.Course
		}
	}
	if !p.Course.Valid && p.GroupName.Valid {
		if course, ok := faculty.ParseCourse(p.GroupName.String); ok {
			p.Course = null.IntFrom(course)
		}
	}

	p, err := svc.repo.CreatePayer(ctx, p)
	if err != nil {
		return Payer{}, errors.Wrap(err, "creating payer")
	}
	return p.Derive(), nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, page core.Pagination) (core.Page, error) {
	payers, total, err := svc.repo.QueryPayers(ctx, filter, &page)
	if err != nil {
		return core.Page{}, errors.Wrap(err, "querying payers")
	}
	return core.NewPage(deriveAll(payers), total, page), nil
}

// QueryAll returns every active payer matching filter.
func (svc *Service) QueryAll(ctx context.Context, filter QueryFilter) ([]Payer, error) {
	payers, _, err := svc.repo.QueryPayers(ctx, filter, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying payers")
	}
	return deriveAll(payers), nil
}

// Debtors returns the active payers with an unpaid or partial status.
func (svc *Service) Debtors(ctx context.Context, facultyID int) ([]Payer, error) {
	return svc.QueryAll(ctx, QueryFilter{FacultyID: facultyID, Statuses: DebtorStatuses})
}

func (svc *Service) Get(ctx context.Context, id int) (Payer, error) {
	p, err := svc.repo.GetPayer(ctx, id)
	if err != nil {
		return Payer{}, err
	}
	return p.Derive(), nil
}

func (svc *Service) Details(ctx context.Context, id int) (Details, error) {
	p, err := svc.Get(ctx, id)
	if err != nil {
		return Details{}, err
	}
	d := Details{Payer: p}

	if p.FacultyID.Valid {
		f, err := svc.refs.GetFaculty(ctx, p.FacultyID.Int)
		if err != nil && errors.Cause(err) != faculty.ErrNotFound {
			return Details{}, errors.Wrap(err, "getting faculty")
		} else if err == nil {
			d.Faculty = &f
		}
	}
	if p.GroupID.Valid {
		g, err := svc.refs.GetGroup(ctx, p.GroupID.Int)
		if err != nil && errors.Cause(err) != faculty.ErrGroupNotFound {
			return Details{}, errors.Wrap(err, "getting group")
		} else if err == nil {
			d.Group = &g
		}
	}

	if d.Payments, err = svc.repo.QueryPayments(ctx, PaymentFilter{PayerID: id}); err != nil {
		return Details{}, errors.Wrap(err, "querying payments")
	}
	return d, nil
}

func (svc *Service) Update(ctx context.Context, p Payer, up UpdatePayer) (Payer, error) {
	p = up.Apply(p)
	p.UpdatedAt = time.Now().UTC()
	p, err := svc.repo.UpdatePayer(ctx, p)
	if err != nil {
		return Payer{}, errors.Wrap(err, "updating payer")
	}
	return p.Derive(), nil
}

// Deactivate is a soft delete.
func (svc *Service) Deactivate(ctx context.Context, p Payer) error {
	p.IsActive = false
	p.UpdatedAt = time.Now().UTC()
	_, err := svc.repo.UpdatePayer(ctx, p)
	return errors.Wrap(err, "deactivating payer")
}

func (svc *Service) Payments(ctx context.Context, payerID int) ([]Payment, error) {
	if _, err := svc.repo.GetPayer(ctx, payerID); err != nil {
		return nil, err
	}
	return svc.repo.QueryPayments(ctx, PaymentFilter{PayerID: payerID})
}

func (svc *Service) GetPayment(ctx context.Context, id int) (Payment, error) {
	return svc.repo.GetPayment(ctx, id)
}

// CreatePayment records a payment and updates the payer status.
func (svc *Service) CreatePayment(ctx context.Context, np NewPayment, createdBy int) (Payment, error) {
	var pm Payment
	err := core.WithinTx(ctx, svc.db, func(exec []core.DBExecutor) error {
		p, err := svc.repo.GetPayer(ctx, np.PayerID, exec...)
		if err != nil {
			return err
		}

		pm, err = svc.repo.CreatePayment(ctx, Payment{
			PayerID:       np.PayerID,
			Amount:        np.Amount,
			PaymentDate:   np.PaymentDate,
			AcademicYear:  np.AcademicYear,
			Semester:      np.Semester,
			PeriodStart:   np.PeriodStart,
			PeriodEnd:     np.PeriodEnd,
			ReceiptNumber: np.ReceiptNumber,
			PaymentMethod: np.PaymentMethod,
			Notes:         np.Notes,
			CreatedAt:     time.Now().UTC(),
			CreatedBy:     null.NewInt(createdBy, createdBy > 0),
		}, exec...)
		if err != nil {
			return errors.Wrap(err, "creating payment")
		}
		return svc.refreshStatus(ctx, p, pm.AcademicYear, exec)
	})
	return pm, err
}

func (svc *Service) UpdatePayment(ctx context.Context, pm Payment, up UpdatePayment) (Payment, error) {
	oldYear := pm.AcademicYear
	pm = up.Apply(pm)
	err := core.WithinTx(ctx, svc.db, func(exec []core.DBExecutor) error {
		var err error
		if pm, err = svc.repo.UpdatePayment(ctx, pm, exec...); err != nil {
			return errors.Wrap(err, "updating payment")
		}
		p, err := svc.repo.GetPayer(ctx, pm.PayerID, exec...)
		if err != nil {
			return errors.Wrap(err, "getting payer")
		}
		if oldYear != pm.AcademicYear {
			if err = svc.refreshStatus(ctx, p, oldYear, exec); err != nil {
				return err
			}
		}
		return svc.refreshStatus(ctx, p, pm.AcademicYear, exec)
	})
	return pm, err
}

func (svc *Service) DeletePayment(ctx context.Context, pm Payment) error {
	return core.WithinTx(ctx, svc.db, func(exec []core.DBExecutor) error {
		if err := svc.repo.DeletePayment(ctx, pm.ID, exec...); err != nil {
			return errors.Wrap(err, "deleting payment")
		}
		p, err := svc.repo.GetPayer(ctx, pm.PayerID, exec...)
		if err != nil {
			return errors.Wrap(err, "getting payer")
		}
		return svc.refreshStatus(ctx, p, pm.AcademicYear, exec)
	})
}

// ExpectedAmount returns the yearly fee of academicYear, ok is false when no settings exist for it.
func (svc *Service) ExpectedAmount(ctx context.Context, academicYear string) (decimal.Decimal, bool, error) {
	ps, err := svc.settings.GetByYear(ctx, academicYear)
	if err != nil {
		if errors.Cause(err) == settings.ErrNotFound {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, errors.Wrap(err, "getting payment settings")
	}
	return ps.TotalYearAmount(), true, nil
}

// YearTotal sums the payments of a payer for an academic year.
func (svc *Service) YearTotal(ctx context.Context, payerID int, academicYear string) (decimal.Decimal, error) {
	return svc.repo.SumPayments(ctx, payerID, academicYear)
}

// refreshStatus recomputes the status of p from its payments of academicYear. Exempt payers are left as is.
func (svc *Service) refreshStatus(ctx context.Context, p Payer, academicYear string, exec []core.DBExecutor) error {
	if p.Status == StatusExempt {
		return nil
	}
	paid, err := svc.repo.SumPayments(ctx, p.ID, academicYear, exec...)
	if err != nil {
		return errors.Wrap(err, "summing payments")
	}
	expected, ok, err := svc.ExpectedAmount(ctx, academicYear)
	if err != nil {
		return err
	}

	status := ComputeStatus(paid, expected, ok)
	if status == p.Status {
		return nil
	}
	p.Status = status
	p.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdatePayer(ctx, p, exec...)
	return errors.Wrap(err, "updating payer status")
}

// ComputeStatus derives the status from the paid amount of a year and, when known, the expected yearly fee.
func ComputeStatus(paid, expected decimal.Decimal, expectedKnown bool) Status {
	switch {
	case !paid.IsPositive():
		return StatusUnpaid
	case !expectedKnown || paid.GreaterThanOrEqual(expected):
		return StatusPaid
	default:
		return StatusPartial
	}
}

func deriveAll(payers []Payer) []Payer {
	out := make([]Payer, 0, len(payers))
	for _, p := range payers {
		out = append(out, p.Derive())
	}
	return out
}
