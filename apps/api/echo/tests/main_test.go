package tests

import (
	"os"
	"testing"

	"github.com/profpay/profpay/core"
	emailsvc "github.com/profpay/profpay/services/email"
	"github.com/profpay/profpay/testutil"
)

func TestMain(m *testing.M) {
	conf := core.NewTestConfig()
	core.ParseEmailTemplates(conf, testutil.NewLogger(conf))

	code := m.Run()

	emailsvc.ResetSentMessages()
	os.Exit(code)
}
