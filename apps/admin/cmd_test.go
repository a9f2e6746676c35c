package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
	"github.com/xuri/excelize/v2"

	"github.com/profpay/profpay/apps/shared"
	"github.com/profpay/profpay/core"
	"github.com/profpay/profpay/core/academic"
	"github.com/profpay/profpay/core/payer"
	"github.com/profpay/profpay/core/user"
	emailsvc "github.com/profpay/profpay/services/email"
	exportsvc "github.com/profpay/profpay/services/export"
	remindersvc "github.com/profpay/profpay/services/reminder"
	"github.com/profpay/profpay/storage/database"
	"github.com/profpay/profpay/testutil"
)

const testPassword = "Zx9#kLmq2w"

func TestMain(m *testing.M) {
	conf := core.NewTestConfig()
	core.ParseEmailTemplates(conf, testutil.NewLogger(conf))
	code := m.Run()
	os.Exit(code)
}

func setup(t *testing.T) (*commandLine, *testutil.Services) {
	conf := core.NewTestConfig()
	svcs := testutil.NewServices(conf)
	validate, _ := shared.NewValidator()
	mailSvc := emailsvc.NewConsoleServiceMock(conf, svcs.Logger)
	emailsvc.ResetSentMessages()

	// start CLI
	return &commandLine{
		out:       new(bytes.Buffer),
		validate:  validate,
		usrSvc:    svcs.Users,
		faculties: svcs.Faculties,
		payers:    svcs.Payers,
		reminder:  remindersvc.NewService(svcs.Payers, svcs.Settings, mailSvc, svcs.Logger),
		mailSvc:   mailSvc,
		seeder: database.Seeder{
			Conf:      conf,
			Logger:    svcs.Logger,
			Users:     svcs.Users,
			Faculties: svcs.Faculties,
			Settings:  svcs.Settings,
		},
	}, svcs
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

// checkErr compares err to the expectations of tt. Errors are compared by cause.
func checkErr(t *testing.T, tt cliTest, err error) {
	t.Helper()
	switch {
	case err == nil:
		if tt.wantErr != nil || tt.wantErrStr != "" {
			t.Errorf("cli.run() error = nil, wantErr %v %s", tt.wantErr, tt.wantErrStr)
		}
	case tt.wantErr != nil:
		if errors.Cause(err) != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if err.Error() != tt.wantErrStr {
			t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
		}
	default:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func Test_commandLine_usage(t *testing.T) {
	cli, _ := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}
	assert.Contains(t, cli.out.(*bytes.Buffer).String(), "Usage:")
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	gooseRunFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}
	defer func() { gooseRunFunc = database.RunMigrations }()

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "payer_notes", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, svcs := setup(t)
	existing := testutil.CreateUser(t, svcs.UserRepo, "Old Timer", "oldtimer", "oldtimer@test.ru", "Pr0fPay!secret", user.RoleViewer, false)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no email", args: []string{"adduser", "-username", "boss"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-username", "boss", "-email", "boss@test.ru"}, wantErr: errHelp},
		{name: "unknown flag", args: []string{"adduser", "-lol"}, wantErr: errHelp},
		{name: "create", args: []string{"adduser", "-username", "Boss", "-email", "boss@test.ru"}, extra: extra{pwd: testPassword}},
		{
			name: "update", args: []string{"adduser", "-username", existing.Username, "-email", existing.Email, "-role", user.RoleOperator},
			extra: extra{pwd: testPassword},
		},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
		})
	}

	ctx := context.Background()
	boss, err := svcs.Users.GetByUsernameOrEmail(ctx, "boss")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, boss.Role, "role defaults to admin")
	assert.Equal(t, "Boss", boss.FullName, "full name defaults to the username")
	assert.True(t, boss.IsActive)
	assert.NoError(t, boss.CheckPassword(testPassword))

	updated, err := svcs.Users.GetByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, user.RoleOperator, updated.Role)
	assert.True(t, updated.IsActive, "users are activated")
	assert.NoError(t, updated.CheckPassword(testPassword))

	t.Run("invalid input", func(t *testing.T) {
		readPasswordFunc = func(int) ([]byte, error) { return []byte("12345678"), nil }
		err := cli.run([]string{"admin", "adduser", "-username", "weak", "-email", "weak@test.ru"})
		var verrs validator.ValidationErrors
		require.True(t, errors.As(err, &verrs), "got %v", err)

		readPasswordFunc = func(int) ([]byte, error) { return []byte(testPassword), nil }
		err = cli.run([]string{"admin", "adduser", "-username", "root", "-email", "root@test.ru", "-role", "root"})
		require.True(t, errors.As(err, &verrs), "got %v", err)
		assert.Equal(t, "role", verrs[0].Tag())
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, svcs := setup(t)

	usr := testutil.CreateUser(t, svcs.UserRepo, "User", "awe", "awe@test.ru", "mdr", user.RoleViewer, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshedUsr, err := svcs.Users.GetByID(context.Background(), usr.ID)
				if err != nil {
					t.Fatalf("GetByID() failed, %v", err)
				}
				if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
				return
			}
			checkErr(t, tt, err)
		})
	}
}

func Test_commandLine_seed(t *testing.T) {
	cli, svcs := setup(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, cli.run([]string{"admin", "seed"}), "run %d", i)
	}

	admin, err := svcs.Users.GetByUsernameOrEmail(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, admin.Role)

	faculties, err := svcs.Faculties.QueryFaculties(ctx, true)
	require.NoError(t, err)
	assert.Len(t, faculties, 5, "seeding twice keeps one copy")

	_, err = svcs.Settings.GetByYear(ctx, academic.Current(time.Now()))
	assert.NoError(t, err)
}

func Test_commandLine_remind(t *testing.T) {
	cli, svcs := setup(t)
	testutil.CreatePaymentSettings(t, svcs.Settings, academic.Current(time.Now()), 500, 500)
	fit := testutil.CreateFaculty(t, svcs.FacultyRepo, "Факультет информационных технологий", "ФИТ")
	testutil.CreatePayer(t, svcs.PayerRepo, payer.Payer{
		LastName: "Попов", FirstName: "Илья", Email: null.StringFrom("ilya@example.com"), FacultyID: null.IntFrom(fit.ID),
	})
	testutil.CreatePayer(t, svcs.PayerRepo, payer.Payer{LastName: "Кузнецов", FirstName: "Пётр"})

	tests := []cliTest{
		{name: "invalid faculty", args: []string{"remind", "-faculty", "lol"}, wantErr: errHelp},
		{name: "all faculties", args: []string{"remind"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	msgs := emailsvc.SentMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "ilya@example.com", msgs[0].To[0].Address)
	assert.Contains(t, cli.out.(*bytes.Buffer).String(), "1 reminders sent, 1 skipped")
}

func Test_commandLine_export(t *testing.T) {
	cli, svcs := setup(t)
	fit := testutil.CreateFaculty(t, svcs.FacultyRepo, "Факультет информационных технологий", "ФИТ")
	testutil.CreatePayer(t, svcs.PayerRepo, payer.Payer{LastName: "Попов", FacultyID: null.IntFrom(fit.ID)})
	testutil.CreatePayer(t, svcs.PayerRepo, payer.Payer{LastName: "Соколов", FacultyID: null.IntFrom(fit.ID), Status: payer.StatusPaid})
	testutil.CreatePayer(t, svcs.PayerRepo, payer.Payer{LastName: "Кузнецов"})

	dir := t.TempDir()
	tests := []cliTest{
		{name: "no output", args: []string{"export"}, wantErr: errHelp},
		{name: "invalid status", args: []string{"export", "-out", filepath.Join(dir, "lol.xlsx"), "-status", "lol"}, wantErrStr: "status: status must be one of [paid partial unpaid exempt]"},
		{name: "all", args: []string{"export", "-out", filepath.Join(dir, "all.xlsx")}, extra: 3},
		{name: "by faculty", args: []string{"export", "-out", filepath.Join(dir, "fit.xlsx"), "-faculty", strconv.Itoa(fit.ID)}, extra: 2},
		{name: "by status", args: []string{"export", "-out", filepath.Join(dir, "paid.xlsx"), "-status", "PAID"}, extra: 1},
		{name: "invalid mail", args: []string{"export", "-out", filepath.Join(dir, "lol.xlsx"), "-mail", "lol"}, wantErrStr: "mail: mail must be a valid email address"},
		{name: "mailed", args: []string{"export", "-out", filepath.Join(dir, "mailed.xlsx"), "-mail", "boss@example.com"}, extra: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(append([]string{"admin"}, tt.args...))
			checkErr(t, tt, err)
			if tt.extra == nil {
				return
			}

			f, err := excelize.OpenFile(tt.args[2])
			require.NoError(t, err)
			defer f.Close()
			rows, err := f.GetRows(f.GetSheetName(0))
			require.NoError(t, err)
			assert.Len(t, rows, tt.extra.(int)+1, "header and one row per payer")
		})
	}

	msgs := emailsvc.SentMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "boss@example.com", msgs[0].To[0].Address)
	require.Len(t, msgs[0].Attachments, 1)
	assert.Equal(t, "mailed.xlsx", msgs[0].Attachments[0].Filename)
	assert.Equal(t, exportsvc.ContentType, msgs[0].Attachments[0].ContentType)
	assert.Contains(t, msgs[0].TextContent, "3 payers exported")
}
