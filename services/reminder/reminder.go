// Package remindersvc emails payment reminders to debtors.
package remindersvc

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"

	"github.com/profpay/profpay/core"
	"github.com/profpay/profpay/core/academic"
	"github.com/profpay/profpay/core/payer"
	"github.com/profpay/profpay/core/settings"
)

const templateName = "debtor_reminder"

var statusLabels = map[payer.Status]string{
	payer.StatusPartial: "оплачено частично",
	payer.StatusUnpaid:  "не оплачено",
}

type (
	Payers interface {
		Debtors(ctx context.Context, facultyID int) ([]payer.Payer, error)
		YearTotal(ctx context.Context, payerID int, academicYear string) (decimal.Decimal, error)
	}

	// Recorder counts the sent reminders.
	Recorder interface {
		RemindersSent(sent, skipped int)
	}

	Result struct {
		AcademicYear string `json:"academic_year"`
		Sent         int    `json:"sent"`
		Skipped      int    `json:"skipped"`
	}

	TemplateData struct {
		Name         string
		AcademicYear string
		Status       string
		Expected     string
		Paid         string
		Currency     string
	}

	Service struct {
		payers   Payers
		settings payer.YearSettings
		email    core.EmailService
		logger   core.Logger
		recorder Recorder
		now      func() time.Time
	}

	Option func(*Service)
)

func WithRecorder(r Recorder) Option { return func(s *Service) { s.recorder = r } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(payers Payers, ys payer.YearSettings, email core.EmailService, logger core.Logger, opts ...Option) *Service {
	svc := &Service{payers: payers, settings: ys, email: email, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Remind emails every debtor of the faculty (all faculties when 0) that has an email address.
func (svc *Service) Remind(ctx context.Context, facultyID int) (Result, error) {
	res := Result{AcademicYear: academic.Current(svc.now())}

	debtors, err := svc.payers.Debtors(ctx, facultyID)
	if err != nil {
		return res, errors.Wrap(err, "querying debtors")
	}

	currency := settings.DefaultCurrency
	var expected string
	ps, err := svc.settings.GetByYear(ctx, res.AcademicYear)
	switch errors.Cause(err) {
	case nil:
		currency = ps.Currency
		expected = ps.TotalYearAmount().StringFixed(2)
	case settings.ErrNotFound:
	default:
		return res, errors.Wrap(err, "getting payment settings")
	}

	messages := make([]*core.EmailMessage, 0, len(debtors))
	for _, p := range debtors {
		if !p.Email.Valid || p.Email.String == "" {
			res.Skipped++
			continue
		}
		paid, err := svc.payers.YearTotal(ctx, p.ID, res.AcademicYear)
		if err != nil {
			return res, errors.Wrapf(err, "summing payments of payer %d", p.ID)
		}
		messages = append(messages, &core.EmailMessage{
			To:           []mail.Address{{Name: p.FullName, Address: p.Email.String}},
			Subject:      fmt.Sprintf("Членский взнос за %s учебный год", res.AcademicYear),
			TemplateName: templateName,
			TemplateData: TemplateData{
				Name:         p.FirstName,
				AcademicYear: res.AcademicYear,
				Status:       statusLabels[p.Status],
				Expected:     expected,
				Paid:         paid.StringFixed(2),
				Currency:     currency,
			},
		})
	}
	res.Sent = len(messages)

	if len(messages) > 0 {
		svc.email.SendMessages(messages...)
	}
	if svc.recorder != nil {
		svc.recorder.RemindersSent(res.Sent, res.Skipped)
	}
	svc.logger.Info(fmt.Sprintf("reminders %s: %d sent, %d skipped", res.AcademicYear, res.Sent, res.Skipped))
	return res, nil
}

// Schedule runs Remind for all faculties on the cron spec. The returned scheduler is already started.
func (svc *Service) Schedule(spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if _, err := svc.Remind(context.Background(), 0); err != nil {
			svc.logger.Error(fmt.Sprintf("sending reminders: %v", err), err)
		}
	})
	if err != nil {
		return nil, errors.Wrapf(err, "parsing reminder schedule %q", spec)
	}
	c.Start()
	return c, nil
}
