package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/profpay/profpay/core"
	"github.com/profpay/profpay/core/audit"
)

func (s *Server) registerStatsAPI(authed *echo.Group) {
	sg := authed.Group("/stats")
	sg.GET("/dashboard", s.dashboardStats)
	sg.GET("/by-faculty", s.facultyStats)
	sg.GET("/monthly", s.monthlyStats)

	authed.GET("/audit", s.queryAudit, adminMiddleware)
}

func (s *Server) dashboardStats(ctx echo.Context) error {
	d, err := s.deps.StatsSvc.Dashboard(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing dashboard stats")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (s *Server) facultyStats(ctx echo.Context) error {
	fs, err := s.deps.StatsSvc.ByFaculty(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing faculty stats")
	}
	return ctx.JSON(http.StatusOK, fs)
}

// monthlyStats defaults to the current calendar year.
func (s *Server) monthlyStats(ctx echo.Context) error {
	year := time.Now().Year()
	if v := ctx.QueryParam("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 2000 || n > 2100 {
			return core.NewFieldError("year", "year must be between 2000 and 2100")
		}
		year = n
	}
	ms, err := s.deps.StatsSvc.Monthly(ctx.Request().Context(), year)
	if err != nil {
		return errors.Wrap(err, "computing monthly stats")
	}
	return ctx.JSON(http.StatusOK, ms)
}

func (s *Server) queryAudit(ctx echo.Context) error {
	var filter audit.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return core.NewValidationError(errors.New("invalid audit filter"))
	}
	if err := s.deps.Validate.Struct(filter); err != nil {
		return err
	}
	page, err := bindPagination(ctx, s.deps.Validate)
	if err != nil {
		return err
	}

	res, err := s.deps.AuditSvc.Query(ctx.Request().Context(), filter, page)
	if err != nil {
		return errors.Wrap(err, "querying audit log")
	}
	setPageLinks(ctx, requestFilter(ctx), res)
	return ctx.JSON(http.StatusOK, res)
}
