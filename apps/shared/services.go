package shared

import (
	"github.com/jmoiron/sqlx"

	"github.com/profpay/profpay/core"
	"github.com/profpay/profpay/core/audit"
	"github.com/profpay/profpay/core/budget"
	"github.com/profpay/profpay/core/faculty"
	"github.com/profpay/profpay/core/payer"
	"github.com/profpay/profpay/core/settings"
	"github.com/profpay/profpay/core/stats"
	"github.com/profpay/profpay/core/user"
	"github.com/profpay/profpay/storage/database/postgres"
)

// Services are the core services backed by postgres.
type Services struct {
	Users     *user.Service
	Faculties *faculty.Service
	Settings  *settings.Service
	Budget    *budget.Service
	Payers    *payer.Service
	Stats     *stats.Service
	Audit     *audit.Service
}

func NewServices(db *sqlx.DB, cache stats.Cache, conf *core.Config, logger core.Logger) *Services {
	settingsRepo := postgres.NewSettingsRepository(db)

	s := &Services{
		Users:     user.NewService(db, postgres.NewUserRepository(db)),
		Faculties: faculty.NewService(postgres.NewFacultyRepository(db)),
		Settings:  settings.NewService(settingsRepo),
		Budget:    budget.NewService(settingsRepo),
		Stats:     stats.NewService(postgres.NewStatsRepository(db), cache, conf.Redis.StatsTTL, logger),
		Audit:     audit.NewService(postgres.NewAuditRepository(db), logger),
	}
	s.Payers = payer.NewService(db, postgres.NewPayerRepository(db), s.Faculties, s.Settings, s.Budget)
	return s
}
