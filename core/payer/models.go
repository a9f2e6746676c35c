package payer

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/profpay/profpay/core"
	"github.com/profpay/profpay/core/academic"
	"github.com/profpay/profpay/core/budget"
	"github.com/profpay/profpay/core/faculty"
)

// Status is the payment status of a Payer.
type Status string

const (
	StatusPaid    Status = "paid"
	StatusPartial Status = "partial"
	StatusUnpaid  Status = "unpaid"
	StatusExempt  Status = "exempt"
)

var (
	AllStatuses    = []Status{StatusPaid, StatusPartial, StatusUnpaid, StatusExempt}
	DebtorStatuses = []Status{StatusUnpaid, StatusPartial}
)

func (s Status) IsValid() bool {
	for _, st := range AllStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// Payer is a trade-union member who owes membership fees.
type Payer struct {
	ID              int                 `json:"id" db:"id"`
	LastName        string              `json:"last_name" db:"last_name"`
	FirstName       string              `json:"first_name" db:"first_name"`
	MiddleName      null.String         `json:"middle_name" db:"middle_name"`
	DateOfBirth     core.Date           `json:"date_of_birth" db:"date_of_birth"`
	Email           null.String         `json:"email" db:"email"`
	Phone           null.String         `json:"phone" db:"phone"`
	Telegram        null.String         `json:"telegram" db:"telegram"`
	VK              null.String         `json:"vk" db:"vk"`
	IsBudget        bool                `json:"is_budget" db:"is_budget"`
	StipendAmount   decimal.NullDecimal `json:"stipend_amount" db:"stipend_amount"`
	BudgetPercent   decimal.NullDecimal `json:"budget_percent" db:"budget_percent"`
	FacultyID       null.Int            `json:"faculty_id" db:"faculty_id"`
	GroupID         null.Int            `json:"group_id" db:"group_id"`
	GroupName       null.String         `json:"group_name" db:"group_name"`
	Department      null.String         `json:"department" db:"department"`
	Course          null.Int            `json:"course" db:"course"`
	Status          Status              `json:"status" db:"status"`
	MembershipStart core.Date           `json:"membership_start" db:"membership_start"`
	MembershipEnd   core.Date           `json:"membership_end" db:"membership_end"`
	IsActive        bool                `json:"is_active" db:"is_active"`
	Notes           null.String         `json:"notes" db:"notes"`
	CreatedAt       time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at" db:"updated_at"`
	CreatedBy       null.Int            `json:"created_by" db:"created_by"`

	// derived
	TotalPaid  decimal.Decimal     `json:"total_paid" db:"total_paid"`
	FullName   string              `json:"full_name" db:"-"`
	PaymentDue decimal.NullDecimal `json:"payment_due" db:"-"`
}

// Derive fills the derived fields.
func (p Payer) Derive() Payer {
	parts := []string{p.LastName, p.FirstName}
	if p.MiddleName.Valid && p.MiddleName.String != "" {
		parts = append(parts, p.MiddleName.String)
	}
	p.FullName = strings.Join(parts, " ")
	if p.IsBudget {
		p.PaymentDue = budget.NullDue(p.StipendAmount, p.BudgetPercent)
	} else {
		p.PaymentDue = decimal.NullDecimal{}
	}
	return p
}

func (p Payer) IsDebtor() bool {
	return p.Status == StatusUnpaid || p.Status == StatusPartial
}

// Payment is a fee payment of a Payer.
type Payment struct {
	ID            int               `json:"id" db:"id"`
	PayerID       int               `json:"payer_id" db:"payer_id"`
	Amount        decimal.Decimal   `json:"amount" db:"amount"`
	PaymentDate   core.Date         `json:"payment_date" db:"payment_date"`
	AcademicYear  string            `json:"academic_year" db:"academic_year"`
	Semester      academic.Semester `json:"semester" db:"semester"`
	PeriodStart   core.Date         `json:"period_start" db:"period_start"`
	PeriodEnd     core.Date         `json:"period_end" db:"period_end"`
	ReceiptNumber null.String       `json:"receipt_number" db:"receipt_number"`
	PaymentMethod null.String       `json:"payment_method" db:"payment_method"`
	Notes         null.String       `json:"notes" db:"notes"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
	CreatedBy     null.Int          `json:"created_by" db:"created_by"`
}

// Details is a Payer with its references and payments.
type Details struct {
	Payer
	Faculty  *faculty.Faculty `json:"faculty"`
	Group    *faculty.Group   `json:"group"`
	Payments []Payment        `json:"payments"`
}

type NewPayer struct {
	LastName        string              `json:"last_name" validate:"required,notblank,max=100"`
	FirstName       string              `json:"first_name" validate:"required,notblank,max=100"`
	MiddleName      null.String         `json:"middle_name" validate:"omitempty,max=100"`
	DateOfBirth     core.Date           `json:"date_of_birth"`
	Email           null.String         `json:"email" validate:"omitempty,email,max=255"`
	Phone           null.String         `json:"phone" validate:"omitempty,phone,max=20"`
	Telegram        null.String         `json:"telegram" validate:"omitempty,max=100"`
	VK              null.String         `json:"vk" validate:"omitempty,max=100"`
	IsBudget        bool                `json:"is_budget"`
	StipendAmount   decimal.NullDecimal `json:"stipend_amount" validate:"omitempty,gte=0"`
	BudgetPercent   decimal.NullDecimal `json:"budget_percent" validate:"omitempty,gte=0,lte=100"`
	FacultyID       null.Int            `json:"faculty_id" validate:"omitempty,gte=1"`
	GroupID         null.Int            `json:"group_id" validate:"omitempty,gte=1"`
	GroupName       null.String         `json:"group_name" validate:"omitempty,max=50"`
	Department      null.String         `json:"department" validate:"omitempty,max=100"`
	Course          null.Int            `json:"course" validate:"omitempty,gte=1,lte=6"`
	Status          Status              `json:"status" validate:"omitempty,oneof=paid partial unpaid exempt"`
	MembershipStart core.Date           `json:"membership_start"`
	MembershipEnd   core.Date           `json:"membership_end"`
	Notes           null.String         `json:"notes" validate:"omitempty,max=2000"`
}

func (np *NewPayer) clean() {
	np.LastName = core.SanitizeString(np.LastName)
	np.FirstName = core.SanitizeString(np.FirstName)
	np.MiddleName = cleanNullString(np.MiddleName)
	np.Email = cleanNullString(null.NewString(strings.ToLower(np.Email.String), np.Email.Valid))
	np.Phone = cleanPhone(np.Phone)
	np.Telegram = cleanNullString(np.Telegram)
	np.VK = cleanNullString(np.VK)
	np.GroupName = cleanNullString(np.GroupName)
	np.Department = cleanNullString(np.Department)
	np.Notes = cleanNullString(np.Notes)
	if np.Status == "" {
		np.Status = StatusUnpaid
	}
}

func (np *NewPayer) Validate(ctx context.Context, validate *validator.Validate, refs References) error {
	np.clean()
	if err := validate.Struct(np); err != nil {
		return err
	}
	if err := checkMembership(np.MembershipStart, np.MembershipEnd); err != nil {
		return err
	}
	return checkReferences(ctx, refs, np.FacultyID, np.GroupID)
}

// UpdatePayer holds the fields to change. Unset (or null) fields are left untouched,
// an empty string clears an optional text field.
type UpdatePayer struct {
	LastName        *string             `json:"last_name" validate:"omitempty,notblank,max=100"`
	FirstName       *string             `json:"first_name" validate:"omitempty,notblank,max=100"`
	MiddleName      null.String         `json:"middle_name" validate:"omitempty,max=100"`
	DateOfBirth     core.Date           `json:"date_of_birth"`
	Email           null.String         `json:"email" validate:"omitempty,email,max=255"`
	Phone           null.String         `json:"phone" validate:"omitempty,phone,max=20"`
	Telegram        null.String         `json:"telegram" validate:"omitempty,max=100"`
	VK              null.String         `json:"vk" validate:"omitempty,max=100"`
	IsBudget        *bool               `json:"is_budget"`
	StipendAmount   decimal.NullDecimal `json:"stipend_amount" validate:"omitempty,gte=0"`
	BudgetPercent   decimal.NullDecimal `json:"budget_percent" validate:"omitempty,gte=0,lte=100"`
	FacultyID       null.Int            `json:"faculty_id" validate:"omitempty,gte=1"`
	GroupID         null.Int            `json:"group_id" validate:"omitempty,gte=1"`
	GroupName       null.String         `json:"group_name" validate:"omitempty,max=50"`
	Department      null.String         `json:"department" validate:"omitempty,max=100"`
	Course          null.Int            `json:"course" validate:"omitempty,gte=1,lte=6"`
	Status          Status              `json:"status" validate:"omitempty,oneof=paid partial unpaid exempt"`
	MembershipStart core.Date           `json:"membership_start"`
	MembershipEnd   core.Date           `json:"membership_end"`
	IsActive        *bool               `json:"is_active"`
	Notes           null.String         `json:"notes" validate:"omitempty,max=2000"`
}

func (up *UpdatePayer) clean() {
	if up.LastName != nil {
		s := core.SanitizeString(*up.LastName)
		up.LastName = &s
	}
	if up.FirstName != nil {
		s := core.SanitizeString(*up.FirstName)
		up.FirstName = &s
	}
	// keep Valid so that "" clears the field on Apply
	up.MiddleName = sanitizeKeepValid(up.MiddleName)
	up.Email = sanitizeKeepValid(null.NewString(strings.ToLower(up.Email.String), up.Email.Valid))
	if up.Phone.Valid {
		up.Phone = null.StringFrom(core.NormalizePhone(up.Phone.String))
	}
	up.Telegram = sanitizeKeepValid(up.Telegram)
	up.VK = sanitizeKeepValid(up.VK)
	up.GroupName = sanitizeKeepValid(up.GroupName)
	up.Department = sanitizeKeepValid(up.Department)
	up.Notes = sanitizeKeepValid(up.Notes)
}

func (up *UpdatePayer) Validate(ctx context.Context, orig Payer, validate *validator.Validate, refs References) error {
	up.clean()
	// blank optional fields only clear values, they are not validated
	check := *up
	check.MiddleName = cleanNullString(check.MiddleName)
	check.Email = cleanNullString(check.Email)
	check.Phone = cleanNullString(check.Phone)
	check.Telegram = cleanNullString(check.Telegram)
	check.VK = cleanNullString(check.VK)
	check.GroupName = cleanNullString(check.GroupName)
	check.Department = cleanNullString(check.Department)
	check.Notes = cleanNullString(check.Notes)
	if err := validate.Struct(check); err != nil {
		return err
	}

	start, end := orig.MembershipStart, orig.MembershipEnd
	if !up.MembershipStart.IsZero() {
		start = up.MembershipStart
	}
	if !up.MembershipEnd.IsZero() {
		end = up.MembershipEnd
	}
	if err := checkMembership(start, end); err != nil {
		return err
	}
	return checkReferences(ctx, refs, up.FacultyID, up.GroupID)
}

// Apply returns p with the set fields of up.
func (up UpdatePayer) Apply(p Payer) Payer {
	if up.LastName != nil {
		p.LastName = *up.LastName
	}
	if up.FirstName != nil {
		p.FirstName = *up.FirstName
	}
	p.MiddleName = applyNullString(p.MiddleName, up.MiddleName)
	if !up.DateOfBirth.IsZero() {
		p.DateOfBirth = up.DateOfBirth
	}
	p.Email = applyNullString(p.Email, up.Email)
	p.Phone = applyNullString(p.Phone, up.Phone)
	p.Telegram = applyNullString(p.Telegram, up.Telegram)
	p.VK = applyNullString(p.VK, up.VK)
	if up.IsBudget != nil {
		p.IsBudget = *up.IsBudget
	}
	if up.StipendAmount.Valid {
		p.StipendAmount = up.StipendAmount
	}
	if up.BudgetPercent.Valid {
		p.BudgetPercent = up.BudgetPercent
	}
	if up.FacultyID.Valid {
		p.FacultyID = up.FacultyID
	}
	if up.GroupID.Valid {
		p.GroupID = up.GroupID
	}
	p.GroupName = applyNullString(p.GroupName, up.GroupName)
	p.Department = applyNullString(p.Department, up.Department)
	if up.Course.Valid {
		p.Course = up.Course
	}
	if up.Status != "" {
		p.Status = up.Status
	}
	if !up.MembershipStart.IsZero() {
		p.MembershipStart = up.MembershipStart
	}
	if !up.MembershipEnd.IsZero() {
		p.MembershipEnd = up.MembershipEnd
	}
	if up.IsActive != nil {
		p.IsActive = *up.IsActive
	}
	p.Notes = applyNullString(p.Notes, up.Notes)
	return p
}

type NewPayment struct {
	PayerID       int               `json:"payer_id" validate:"required,gte=1"`
	Amount        decimal.Decimal   `json:"amount" validate:"gt=0"`
	PaymentDate   core.Date         `json:"payment_date" validate:"required"`
	AcademicYear  string            `json:"academic_year" validate:"required,academicyear"`
	Semester      academic.Semester `json:"semester" validate:"required,oneof=fall spring"`
	PeriodStart   core.Date         `json:"period_start"`
	PeriodEnd     core.Date         `json:"period_end"`
	ReceiptNumber null.String       `json:"receipt_number" validate:"omitempty,max=50"`
	PaymentMethod null.String       `json:"payment_method" validate:"omitempty,max=50"`
	Notes         null.String       `json:"notes" validate:"omitempty,max=2000"`
}

// Validate defaults the academic year and the semester to the ones of the payment date.
func (np *NewPayment) Validate(validate *validator.Validate) error {
	np.AcademicYear = core.CleanString(np.AcademicYear)
	if !np.PaymentDate.IsZero() {
		if np.AcademicYear == "" {
			np.AcademicYear = academic.Current(np.PaymentDate.Time)
		}
		if np.Semester == "" {
			np.Semester = academic.SemesterOf(np.PaymentDate.Time)
		}
	}
	np.ReceiptNumber = cleanNullString(np.ReceiptNumber)
	np.PaymentMethod = cleanNullString(np.PaymentMethod)
	np.Notes = cleanNullString(np.Notes)
	if err := validate.Struct(np); err != nil {
		return err
	}
	return checkPeriod(np.PeriodStart, np.PeriodEnd)
}

type UpdatePayment struct {
	Amount        decimal.NullDecimal `json:"amount" validate:"omitempty,gt=0"`
	PaymentDate   core.Date           `json:"payment_date"`
	AcademicYear  string              `json:"academic_year" validate:"omitempty,academicyear"`
	Semester      academic.Semester   `json:"semester" validate:"omitempty,oneof=fall spring"`
	PeriodStart   core.Date           `json:"period_start"`
	PeriodEnd     core.Date           `json:"period_end"`
	ReceiptNumber null.String         `json:"receipt_number" validate:"omitempty,max=50"`
	PaymentMethod null.String         `json:"payment_method" validate:"omitempty,max=50"`
	Notes         null.String         `json:"notes" validate:"omitempty,max=2000"`
}

// Validate checks the period of orig with the update applied.
func (up *UpdatePayment) Validate(orig Payment, validate *validator.Validate) error {
	up.AcademicYear = core.CleanString(up.AcademicYear)
	up.ReceiptNumber = cleanNullString(up.ReceiptNumber)
	up.PaymentMethod = cleanNullString(up.PaymentMethod)
	up.Notes = cleanNullString(up.Notes)
	if err := validate.Struct(up); err != nil {
		return err
	}
	merged := up.Apply(orig)
	return checkPeriod(merged.PeriodStart, merged.PeriodEnd)
}

func (up UpdatePayment) Apply(pm Payment) Payment {
	if up.Amount.Valid {
		pm.Amount = up.Amount.Decimal
	}
	if !up.PaymentDate.IsZero() {
		pm.PaymentDate = up.PaymentDate
	}
	if up.AcademicYear != "" {
		pm.AcademicYear = up.AcademicYear
	}
	if up.Semester != "" {
		pm.Semester = up.Semester
	}
	if !up.PeriodStart.IsZero() {
		pm.PeriodStart = up.PeriodStart
	}
	if !up.PeriodEnd.IsZero() {
		pm.PeriodEnd = up.PeriodEnd
	}
	if up.ReceiptNumber.Valid {
		pm.ReceiptNumber = up.ReceiptNumber
	}
	if up.PaymentMethod.Valid {
		pm.PaymentMethod = up.PaymentMethod
	}
	if up.Notes.Valid {
		pm.Notes = up.Notes
	}
	return pm
}

type PaymentFilter struct {
	PayerID      int
	AcademicYear string
}

func checkMembership(start, end core.Date) error {
	if !start.IsZero() && !end.IsZero() && end.Before(start.Time) {
		return core.NewFieldError("membership_end", "membership end must not be before its start")
	}
	return nil
}

func checkPeriod(start, end core.Date) error {
	if !start.IsZero() && !end.IsZero() && end.Before(start.Time) {
		return core.NewFieldError("period_end", "period end must not be before its start")
	}
	return nil
}

func checkReferences(ctx context.Context, refs References, facultyID, groupID null.Int) error {
	if facultyID.Valid {
		if err := refs.CheckFacultyExists(ctx, facultyID.Int); err != nil {
			return err
		}
	}
	if groupID.Valid {
		if err := refs.CheckGroupExists(ctx, groupID.Int); err != nil {
			return err
		}
	}
	return nil
}

// cleanNullString sanitizes s; blank strings become null.
func cleanNullString(s null.String) null.String {
	if !s.Valid {
		return s
	}
	v := core.SanitizeString(s.String)
	return null.NewString(v, v != "")
}

func sanitizeKeepValid(s null.String) null.String {
	if !s.Valid {
		return s
	}
	return null.StringFrom(core.SanitizeString(s.String))
}

func cleanPhone(s null.String) null.String {
	if !s.Valid {
		return s
	}
	v := core.NormalizePhone(s.String)
	return null.NewString(v, v != "")
}

// applyNullString: invalid keeps the original, "" clears it.
func applyNullString(orig, upd null.String) null.String {
	if !upd.Valid {
		return orig
	}
	if upd.String == "" {
		return null.String{}
	}
	return upd
}
