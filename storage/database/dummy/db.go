// Package dummydb implements the repositories in memory. Used by tests.
package dummydb

import (
	"sync"

	"github.com/profpay/profpay/core"
	"github.com/profpay/profpay/core/audit"
	"github.com/profpay/profpay/core/faculty"
	"github.com/profpay/profpay/core/payer"
	"github.com/profpay/profpay/core/settings"
	"github.com/profpay/profpay/core/user"
)

type (
	DB struct {
		user     *userTable
		faculty  *facultyTable
		payer    *payerTable
		settings *settingsTable
		audit    *auditTable
	}

	userTable struct {
		sync.RWMutex
		pkCount int
		table   map[int]*user.User
	}

	facultyTable struct {
		sync.RWMutex
		pkCount      int
		groupPkCount int
		table        map[int]*faculty.Faculty
		groups       map[int]*faculty.Group
	}

	payerTable struct {
		sync.RWMutex
		pkCount        int
		paymentPkCount int
		table          map[int]*payer.Payer
		payments       map[int]*payer.Payment
	}

	settingsTable struct {
		sync.RWMutex
		pkCount int
		table   map[int]*settings.PaymentSettings
		app     map[string]string
	}

	auditTable struct {
		sync.RWMutex
		pkCount int
		entries []audit.Entry
	}
)

func Open() *DB {
	return &DB{
		user:     &userTable{table: make(map[int]*user.User)},
		faculty:  &facultyTable{table: make(map[int]*faculty.Faculty), groups: make(map[int]*faculty.Group)},
		payer:    &payerTable{table: make(map[int]*payer.Payer), payments: make(map[int]*payer.Payment)},
		settings: &settingsTable{table: make(map[int]*settings.PaymentSettings), app: make(map[string]string)},
		audit:    &auditTable{},
	}
}

// paginate returns the bounds of page in a list of n items.
func paginate(n int, page core.Pagination) (int, int) {
	start, end := page.Offset(), page.Offset()+page.Limit()
	if start > n {
		start = n
	}
	if end > n {
		end = n
	}
	return start, end
}
