// Package testutil builds in-memory services and fixtures for tests.
package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/profpay/profpay/core"
	"github.com/profpay/profpay/core/academic"
	"github.com/profpay/profpay/core/audit"
	"github.com/profpay/profpay/core/budget"
	"github.com/profpay/profpay/core/faculty"
	"github.com/profpay/profpay/core/payer"
	"github.com/profpay/profpay/core/settings"
	"github.com/profpay/profpay/core/stats"
	"github.com/profpay/profpay/core/user"
	cachesvc "github.com/profpay/profpay/services/cache"
	logsvc "github.com/profpay/profpay/services/logger"
	dummydb "github.com/profpay/profpay/storage/database/dummy"
)

// Services wires every core service on a fresh in-memory database.
type Services struct {
	DB        *dummydb.DB
	Logger    core.Logger
	Users     *user.Service
	Faculties *faculty.Service
	Settings  *settings.Service
	Budget    *budget.Service
	Payers    *payer.Service
	Stats     *stats.Service
	Audit     *audit.Service

	UserRepo    user.Repository
	FacultyRepo faculty.Repository
	PayerRepo   payer.Repository
}

func NewLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
}

func NewServices(conf *core.Config) *Services {
	db := dummydb.Open()
	lg := NewLogger(conf)
	settingsRepo := dummydb.NewSettingsRepository(db)

	s := &Services{
		DB:          db,
		Logger:      lg,
		UserRepo:    dummydb.NewUserRepository(db),
		FacultyRepo: dummydb.NewFacultyRepository(db),
		PayerRepo:   dummydb.NewPayerRepository(db),
	}
	s.Users = user.NewService(nil, s.UserRepo)
	s.Faculties = faculty.NewService(s.FacultyRepo)
	s.Settings = settings.NewService(settingsRepo)
	s.Budget = budget.NewService(settingsRepo)
	s.Payers = payer.NewService(nil, s.PayerRepo, s.Faculties, s.Settings, s.Budget)
	s.Stats = stats.NewService(dummydb.NewStatsRepository(db), cachesvc.NoopCache{}, conf.Redis.StatsTTL, lg)
	s.Audit = audit.NewService(dummydb.NewAuditRepository(db), lg)
	return s
}

func CreateUser(t *testing.T, repo user.Repository, fullName, uname, email, pwd, role string, isActive bool, createdAt ...time.Time) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		FullName:  fullName,
		Username:  uname,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateFaculty(t *testing.T, repo faculty.Repository, name, shortName string) faculty.Faculty {
	t.Helper()
	f, err := repo.CreateFaculty(context.Background(), faculty.Faculty{
		Name:      name,
		ShortName: null.NewString(shortName, shortName != ""),
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateFaculty() failed: %v", err)
	}
	return f
}

// CreateGroup creates a group, its course parsed from the name.
func CreateGroup(t *testing.T, repo faculty.Repository, facultyID int, name string) faculty.Group {
	t.Helper()
	g := faculty.Group{Name: name, FacultyID: facultyID, IsActive: true, CreatedAt: time.Now().UTC()}
	if course, ok := faculty.ParseCourse(name); ok {
		g.Course = null.IntFrom(course)
	}
	g, err := repo.CreateGroup(context.Background(), g)
	if err != nil {
		t.Fatalf("CreateGroup() failed: %v", err)
	}
	return g
}

// CreatePayer stores p as is, filling the name, status and timestamps when unset.
func CreatePayer(t *testing.T, repo payer.Repository, p payer.Payer) payer.Payer {
	t.Helper()
	if p.LastName == "" {
		p.LastName = "Иванов"
	}
	if p.FirstName == "" {
		p.FirstName = "Иван"
	}
	if p.Status == "" {
		p.Status = payer.StatusUnpaid
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
		p.UpdatedAt = p.CreatedAt
	}
	p.IsActive = true
	p, err := repo.CreatePayer(context.Background(), p)
	if err != nil {
		t.Fatalf("CreatePayer() failed: %v", err)
	}
	return p.Derive()
}

// CreatePayment stores a payment dated on, in the academic year and semester of that date.
func CreatePayment(t *testing.T, repo payer.Repository, payerID int, amount int64, on time.Time) payer.Payment {
	t.Helper()
	pm, err := repo.CreatePayment(context.Background(), payer.Payment{
		PayerID:      payerID,
		Amount:       decimal.NewFromInt(amount),
		PaymentDate:  core.DateOf(on),
		AcademicYear: academic.Current(on),
		Semester:     academic.SemesterOf(on),
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreatePayment() failed: %v", err)
	}
	return pm
}

func CreatePaymentSettings(t *testing.T, svc *settings.Service, year string, fall, spring int64) settings.PaymentSettings {
	t.Helper()
	ps, err := svc.Create(context.Background(), settings.NewPaymentSettings{
		AcademicYear: year,
		Currency:     settings.DefaultCurrency,
		FallAmount:   decimal.NewFromInt(fall),
		SpringAmount: decimal.NewFromInt(spring),
	})
	if err != nil {
		t.Fatalf("CreatePaymentSettings() failed: %v", err)
	}
	return ps
}
