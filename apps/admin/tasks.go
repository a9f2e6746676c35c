package main

import (
	"bytes"
	"context"
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/profpay/profpay/core"
	"github.com/profpay/profpay/core/filter"
	"github.com/profpay/profpay/core/payer"
	emailsvc "github.com/profpay/profpay/services/email"
	exportsvc "github.com/profpay/profpay/services/export"
)

func (cli *commandLine) seed() error {
	if err := cli.seeder.Seed(context.Background(), time.Now()); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "database seeded")
	return nil
}

func (cli *commandLine) remind(facultyID int) error {
	res, err := cli.reminder.Remind(context.Background(), facultyID)
	if err != nil {
		return err
	}
	emailsvc.Wait(cli.mailSvc)
	fmt.Fprintf(cli.out, "%s: %d reminders sent, %d skipped\n", res.AcademicYear, res.Sent, res.Skipped)
	return nil
}

// export writes the payers matching params to a workbook at path, and mails it to mailTo when set.
func (cli *commandLine) export(path, mailTo string, params map[string]string) error {
	if mailTo != "" {
		if err := cli.validate.Var(mailTo, "email"); err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "mail", Error: "mail must be a valid email address"})
		}
	}

	f := filter.New()
	for k, v := range params {
		f.Set(k, v)
	}
	qf, err := payer.NewQueryFilter(f)
	if err != nil {
		return err
	}

	ctx := context.Background()
	payers, err := cli.payers.QueryAll(ctx, qf)
	if err != nil {
		return err
	}
	names, err := exportsvc.LoadNames(ctx, cli.faculties)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err = exportsvc.WritePayers(&buf, payers, names); err != nil {
		return err
	}
	if err = os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrap(err, "writing export file")
	}
	fmt.Fprintf(cli.out, "%d payers exported to %s\n", len(payers), path)

	if mailTo == "" {
		return nil
	}
	msg := &core.EmailMessage{
		To:      []mail.Address{{Address: mailTo}},
		Subject: "Payers export",
		BodyStr: fmt.Sprintf("%d payers exported on %s.", len(payers), time.Now().Format("02.01.2006 15:04")),
	}
	if err = msg.Attach(bytes.NewReader(buf.Bytes()), filepath.Base(path), exportsvc.ContentType); err != nil {
		return errors.Wrap(err, "attaching export file")
	}
	cli.mailSvc.SendMessages(msg)
	emailsvc.Wait(cli.mailSvc)
	fmt.Fprintf(cli.out, "export sent to %s\n", mailTo)
	return nil
}
