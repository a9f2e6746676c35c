package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/profpay/profpay/core"
	"github.com/profpay/profpay/core/academic"
	"github.com/profpay/profpay/core/faculty"
	"github.com/profpay/profpay/core/settings"
	"github.com/profpay/profpay/core/user"
)

var (
	seedFaculties = []faculty.NewFaculty{
		{Name: "Факультет информационных технологий", ShortName: null.StringFrom("ФИТ")},
		{Name: "Факультет экономики и управления", ShortName: null.StringFrom("ФЭУ")},
		{Name: "Юридический факультет", ShortName: null.StringFrom("ЮрФак")},
		{Name: "Факультет иностранных языков", ShortName: null.StringFrom("ФИЯ")},
		{Name: "Механико-математический факультет", ShortName: null.StringFrom("МехМат")},
	}
	// groups of the first faculty, their course is read from the code
	seedGroups = []string{"1-ИТ-1", "1-ИТ-2", "2-ИТ-1", "2-ИТ-2", "3-ИТ-1", "3-ИТ-2", "4-ИТ-1"}

	seedSemesterAmount = decimal.NewFromInt(500)
)

// Seeder creates the initial data: the admin user, sample faculties and groups,
// and the payment settings of the current academic year. Existing data is kept.
type Seeder struct {
	Conf      *core.Config
	Logger    core.Logger
	Users     *user.Service
	Faculties *faculty.Service
	Settings  *settings.Service
}

func (s Seeder) Seed(ctx context.Context, now time.Time) error {
	if err := s.seedAdmin(ctx); err != nil {
		return err
	}
	if err := s.seedFaculties(ctx); err != nil {
		return err
	}
	return s.seedSettings(ctx, academic.Current(now))
}

func (s Seeder) seedAdmin(ctx context.Context) error {
	admin := s.Conf.Admin
	if _, err := s.Users.GetByUsernameOrEmail(ctx, admin.Username); err == nil {
		return nil
	} else if errors.Cause(err) != user.ErrNotFound {
		return errors.Wrap(err, "finding admin user")
	}

	if _, err := s.Users.EnsureUser(ctx, admin.Username, admin.Email, admin.FullName, admin.Password, user.RoleAdmin); err != nil {
		return errors.Wrap(err, "creating admin user")
	}
	s.Logger.Info("admin user created: " + admin.Username)
	return nil
}

func (s Seeder) seedFaculties(ctx context.Context) error {
	existing, err := s.Faculties.QueryFaculties(ctx, false)
	if err != nil {
		return errors.Wrap(err, "querying faculties")
	}
	byName := make(map[string]faculty.Faculty, len(existing))
	for _, f := range existing {
		byName[f.Name] = f
	}

	var first faculty.Faculty
	for i, nf := range seedFaculties {
		f, ok := byName[nf.Name]
		if !ok {
			if f, err = s.Faculties.CreateFaculty(ctx, nf); err != nil {
				return errors.Wrapf(err, "creating faculty %s", nf.Name)
			}
			s.Logger.Info("faculty created: " + f.Name)
		}
		if i == 0 {
			first = f
		}
	}

	groups, err := s.Faculties.QueryGroups(ctx, faculty.GroupFilter{FacultyID: first.ID})
	if err != nil {
		return errors.Wrap(err, "querying groups")
	}
	names := make(map[string]bool, len(groups))
	for _, g := range groups {
		names[g.Name] = true
	}
	for _, name := range seedGroups {
		if names[name] {
			continue
		}
		ng := faculty.NewGroup{Name: name, FacultyID: first.ID}
		if course, ok := faculty.ParseCourse(name); ok {
			ng.Course = null.IntFrom(course)
		}
		if _, err = s.Faculties.CreateGroup(ctx, ng); err != nil {
			return errors.Wrapf(err, "creating group %s", name)
		}
	}
	return nil
}

func (s Seeder) seedSettings(ctx context.Context, year string) error {
	if _, err := s.Settings.GetByYear(ctx, year); err == nil {
		return nil
	} else if errors.Cause(err) != settings.ErrNotFound {
		return errors.Wrap(err, "finding payment settings")
	}

	_, err := s.Settings.Create(ctx, settings.NewPaymentSettings{
		AcademicYear: year,
		Currency:     settings.DefaultCurrency,
		FallAmount:   seedSemesterAmount,
		SpringAmount: seedSemesterAmount,
	})
	if err != nil {
		return errors.Wrap(err, "creating payment settings")
	}
	s.Logger.Info("payment settings created for " + year)
	return nil
}
