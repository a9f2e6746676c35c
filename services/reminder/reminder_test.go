package remindersvc

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/profpay/profpay/core"
	"github.com/profpay/profpay/core/payer"
	emailsvc "github.com/profpay/profpay/services/email"
	"github.com/profpay/profpay/testutil"
)

type recorder struct{ sent, skipped int }

func (r *recorder) RemindersSent(sent, skipped int) {
	r.sent += sent
	r.skipped += skipped
}

func TestService_Remind(t *testing.T) {
	conf := core.NewTestConfig()
	svcs := testutil.NewServices(conf)
	core.ParseEmailTemplates(conf, svcs.Logger)
	emailsvc.ResetSentMessages()

	now := time.Date(2024, time.November, 10, 9, 0, 0, 0, time.UTC)
	testutil.CreatePaymentSettings(t, svcs.Settings, "2024-2025", 500, 500)

	fit := testutil.CreateFaculty(t, svcs.FacultyRepo, "Факультет информационных технологий", "ФИТ")
	eco := testutil.CreateFaculty(t, svcs.FacultyRepo, "Экономический факультет", "ЭФ")

	partial := testutil.CreatePayer(t, svcs.PayerRepo, payer.Payer{
		LastName: "Смирнова", FirstName: "Ольга", Email: null.StringFrom("olga@example.com"),
		FacultyID: null.IntFrom(fit.ID), Status: payer.StatusPartial,
	})
	testutil.CreatePayment(t, svcs.PayerRepo, partial.ID, 300, now.AddDate(0, 0, -20))
	testutil.CreatePayer(t, svcs.PayerRepo, payer.Payer{
		LastName: "Кузнецов", FirstName: "Пётр", FacultyID: null.IntFrom(fit.ID), Status: payer.StatusUnpaid,
	})
	testutil.CreatePayer(t, svcs.PayerRepo, payer.Payer{
		LastName: "Попов", FirstName: "Илья", Email: null.StringFrom("ilya@example.com"),
		FacultyID: null.IntFrom(eco.ID), Status: payer.StatusUnpaid,
	})
	testutil.CreatePayer(t, svcs.PayerRepo, payer.Payer{
		LastName: "Соколов", FirstName: "Андрей", Email: null.StringFrom("andrey@example.com"),
		FacultyID: null.IntFrom(fit.ID), Status: payer.StatusPaid,
	})

	rec := new(recorder)
	svc := NewService(svcs.Payers, svcs.Settings, emailsvc.NewConsoleServiceMock(conf, svcs.Logger), svcs.Logger,
		WithRecorder(rec), WithClock(func() time.Time { return now }))

	t.Run("one faculty", func(t *testing.T) {
		emailsvc.ResetSentMessages()
		res, err := svc.Remind(context.Background(), fit.ID)
		require.NoError(t, err)
		assert.Equal(t, Result{AcademicYear: "2024-2025", Sent: 1, Skipped: 1}, res)

		sent := emailsvc.SentMessages()
		require.Len(t, sent, 1)
		msg := sent[0]
		assert.Equal(t, "olga@example.com", msg.To[0].Address)
		assert.Equal(t, "Членский взнос за 2024-2025 учебный год", msg.Subject)
		assert.True(t, strings.Contains(msg.TextContent, "Здравствуйте, Ольга!"), msg.TextContent)
		assert.Contains(t, msg.TextContent, "Сумма взноса за год: 1000.00 RUB")
		assert.Contains(t, msg.TextContent, "Оплачено: 300.00 RUB")
		assert.Contains(t, msg.HTMLContent, "оплачено частично")
	})

	t.Run("all faculties", func(t *testing.T) {
		emailsvc.ResetSentMessages()
		res, err := svc.Remind(context.Background(), 0)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Sent)
		assert.Equal(t, 1, res.Skipped)
		assert.Len(t, emailsvc.SentMessages(), 2)
	})

	assert.Equal(t, 3, rec.sent)
	assert.Equal(t, 2, rec.skipped)
}

func TestService_RemindWithoutSettings(t *testing.T) {
	conf := core.NewTestConfig()
	svcs := testutil.NewServices(conf)
	core.ParseEmailTemplates(conf, svcs.Logger)
	emailsvc.ResetSentMessages()

	testutil.CreatePayer(t, svcs.PayerRepo, payer.Payer{FirstName: "Мария", Email: null.StringFrom("maria@example.com")})

	now := time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)
	svc := NewService(svcs.Payers, svcs.Settings, emailsvc.NewConsoleServiceMock(conf, svcs.Logger), svcs.Logger,
		WithClock(func() time.Time { return now }))

	res, err := svc.Remind(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, Result{AcademicYear: "2024-2025", Sent: 1}, res)

	sent := emailsvc.SentMessages()
	require.Len(t, sent, 1)
	assert.NotContains(t, sent[0].TextContent, "Сумма взноса")
	assert.Contains(t, sent[0].TextContent, "Оплачено: 0.00 RUB")
}

func TestService_Schedule(t *testing.T) {
	conf := core.NewTestConfig()
	svcs := testutil.NewServices(conf)
	svc := NewService(svcs.Payers, svcs.Settings, emailsvc.NewConsoleServiceMock(conf, svcs.Logger), svcs.Logger)

	c, err := svc.Schedule("0 9 * * 1")
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)
	<-c.Stop().Done()

	_, err = svc.Schedule("every monday")
	assert.Error(t, err)
}
