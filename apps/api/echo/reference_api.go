package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/profpay/profpay/core/academic"
	"github.com/profpay/profpay/core/audit"
	"github.com/profpay/profpay/core/budget"
	"github.com/profpay/profpay/core/faculty"
	"github.com/profpay/profpay/core/settings"
)

type (
	AcademicYearsResponse struct {
		Current string            `json:"current"`
		Options []academic.Option `json:"options"`
	}

	CourseSuggestion struct {
		Course null.Int `json:"course"`
	}

	PaymentDueResponse struct {
		PaymentDue decimal.NullDecimal `json:"payment_due"`
	}
)

func (s *Server) registerReferenceAPI(authed *echo.Group) {
	authed.GET("/academic-years", s.academicYears)

	fg := authed.Group("/faculties")
	fg.GET("", s.queryFaculties)
	fg.POST("", s.createFaculty, writerMiddleware)
	fg.PUT("/:id", s.updateFaculty, writerMiddleware)
	fg.DELETE("/:id", s.deleteFaculty, writerMiddleware)

	gg := authed.Group("/groups")
	gg.GET("", s.queryGroups)
	gg.GET("/course-suggestion", s.suggestCourse)
	gg.POST("", s.createGroup, writerMiddleware)
	gg.PUT("/:id", s.updateGroup, writerMiddleware)
	gg.DELETE("/:id", s.deleteGroup, writerMiddleware)

	sg := authed.Group("/payment-settings")
	sg.GET("", s.queryPaymentSettings)
	sg.GET("/current", s.currentPaymentSettings)
	sg.POST("", s.createPaymentSettings, adminMiddleware)
	sg.PUT("/:id", s.updatePaymentSettings, adminMiddleware)
	sg.DELETE("/:id", s.deletePaymentSettings, adminMiddleware)

	authed.GET("/budget-settings", s.getBudgetSettings)
	authed.PUT("/budget-settings", s.updateBudgetSettings, adminMiddleware)
	authed.GET("/budget/due", s.budgetDue)
}

func (s *Server) academicYears(ctx echo.Context) error {
	now := time.Now()
	return ctx.JSON(http.StatusOK, AcademicYearsResponse{Current: academic.Current(now), Options: academic.Options(now)})
}

// Faculties

func (s *Server) queryFaculties(ctx echo.Context) error {
	activeOnly := ctx.QueryParam("active_only") != "false"
	faculties, err := s.deps.FacultySvc.QueryFaculties(ctx.Request().Context(), activeOnly)
	if err != nil {
		return errors.Wrap(err, "querying faculties")
	}
	if faculties == nil {
		faculties = []faculty.Faculty{}
	}
	return ctx.JSON(http.StatusOK, faculties)
}

func (s *Server) createFaculty(ctx echo.Context) error {
	var data faculty.NewFaculty
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFaculty")
	}
	rctx := ctx.Request().Context()
	if err := data.Validate(rctx, s.deps.Validate, s.deps.FacultySvc); err != nil {
		return err
	}

	f, err := s.deps.FacultySvc.CreateFaculty(rctx, data)
	if err != nil {
		return errors.Wrap(err, "creating faculty")
	}
	s.deps.AuditSvc.Record(rctx, actorOf(ctx), audit.ActionCreate, audit.EntityFaculty, f.ID, nil, f)
	s.deps.StatsSvc.Invalidate(rctx)
	return ctx.JSON(http.StatusCreated, f)
}

func (s *Server) updateFaculty(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()
	f, err := s.deps.FacultySvc.GetFaculty(rctx, id)
	if err != nil {
		return err
	}

	var data faculty.UpdateFaculty
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateFaculty")
	}
	if err = data.Validate(rctx, f, s.deps.Validate, s.deps.FacultySvc); err != nil {
		return err
	}

	updated, err := s.deps.FacultySvc.UpdateFaculty(rctx, f, data)
	if err != nil {
		return errors.Wrap(err, "updating faculty")
	}
	s.deps.AuditSvc.Record(rctx, actorOf(ctx), audit.ActionUpdate, audit.EntityFaculty, f.ID, f, updated)
	s.deps.StatsSvc.Invalidate(rctx)
	return ctx.JSON(http.StatusOK, updated)
}

func (s *Server) deleteFaculty(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()
	f, err := s.deps.FacultySvc.GetFaculty(rctx, id)
	if err != nil {
		return err
	}
	if err = s.deps.FacultySvc.DeactivateFaculty(rctx, f); err != nil {
		return errors.Wrap(err, "deactivating faculty")
	}
	s.deps.AuditSvc.Record(rctx, actorOf(ctx), audit.ActionDelete, audit.EntityFaculty, f.ID, f, nil)
	s.deps.StatsSvc.Invalidate(rctx)
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "faculty deleted"})
}

// Groups

func (s *Server) queryGroups(ctx echo.Context) error {
	filter := faculty.GroupFilter{ActiveOnly: true}
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []faculty.Group{})
	}
	groups, err := s.deps.FacultySvc.QueryGroups(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying groups")
	}
	if groups == nil {
		groups = []faculty.Group{}
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (s *Server) suggestCourse(ctx echo.Context) error {
	var resp CourseSuggestion
	if course, ok := faculty.ParseCourse(ctx.QueryParam("code")); ok {
		resp.Course = null.IntFrom(course)
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (s *Server) createGroup(ctx echo.Context) error {
	var data faculty.NewGroup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGroup")
	}
	rctx := ctx.Request().Context()
	if err := data.Validate(rctx, s.deps.Validate, s.deps.FacultySvc); err != nil {
		return err
	}

	g, err := s.deps.FacultySvc.CreateGroup(rctx, data)
	if err != nil {
		return errors.Wrap(err, "creating group")
	}
	s.deps.AuditSvc.Record(rctx, actorOf(ctx), audit.ActionCreate, audit.EntityGroup, g.ID, nil, g)
	return ctx.JSON(http.StatusCreated, g)
}

func (s *Server) updateGroup(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()
	g, err := s.deps.FacultySvc.GetGroup(rctx, id)
	if err != nil {
		return err
	}

	var data faculty.UpdateGroup
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGroup")
	}
	if err = data.Validate(rctx, s.deps.Validate, s.deps.FacultySvc); err != nil {
		return err
	}

	updated, err := s.deps.FacultySvc.UpdateGroup(rctx, g, data)
	if err != nil {
		return errors.Wrap(err, "updating group")
	}
	s.deps.AuditSvc.Record(rctx, actorOf(ctx), audit.ActionUpdate, audit.EntityGroup, g.ID, g, updated)
	return ctx.JSON(http.StatusOK, updated)
}

func (s *Server) deleteGroup(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()
	g, err := s.deps.FacultySvc.GetGroup(rctx, id)
	if err != nil {
		return err
	}
	if err = s.deps.FacultySvc.DeactivateGroup(rctx, g); err != nil {
		return errors.Wrap(err, "deactivating group")
	}
	s.deps.AuditSvc.Record(rctx, actorOf(ctx), audit.ActionDelete, audit.EntityGroup, g.ID, g, nil)
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "group deleted"})
}

// Payment settings

func (s *Server) queryPaymentSettings(ctx echo.Context) error {
	all, err := s.deps.SettingsSvc.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying payment settings")
	}
	resp := make([]settings.PaymentSettingsResponse, 0, len(all))
	for _, ps := range all {
		resp = append(resp, ps.Response())
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (s *Server) currentPaymentSettings(ctx echo.Context) error {
	ps, err := s.deps.SettingsSvc.Current(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ps.Response())
}

func (s *Server) createPaymentSettings(ctx echo.Context) error {
	var data settings.NewPaymentSettings
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPaymentSettings")
	}
	rctx := ctx.Request().Context()
	if err := data.Validate(rctx, s.deps.Validate, s.deps.SettingsSvc); err != nil {
		return err
	}

	ps, err := s.deps.SettingsSvc.Create(rctx, data)
	if err != nil {
		return errors.Wrap(err, "creating payment settings")
	}
	s.deps.AuditSvc.Record(rctx, actorOf(ctx), audit.ActionCreate, audit.EntityPaymentSettings, ps.ID, nil, ps)
	return ctx.JSON(http.StatusCreated, ps.Response())
}

func (s *Server) updatePaymentSettings(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()
	ps, err := s.deps.SettingsSvc.Get(rctx, id)
	if err != nil {
		return err
	}

	var data settings.UpdatePaymentSettings
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePaymentSettings")
	}
	if err = data.Validate(s.deps.Validate); err != nil {
		return err
	}

	updated, err := s.deps.SettingsSvc.Update(rctx, ps, data)
	if err != nil {
		return errors.Wrap(err, "updating payment settings")
	}
	s.deps.AuditSvc.Record(rctx, actorOf(ctx), audit.ActionUpdate, audit.EntityPaymentSettings, ps.ID, ps, updated)
	return ctx.JSON(http.StatusOK, updated.Response())
}

func (s *Server) deletePaymentSettings(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()
	ps, err := s.deps.SettingsSvc.Get(rctx, id)
	if err != nil {
		return err
	}
	if err = s.deps.SettingsSvc.Delete(rctx, ps.ID); err != nil {
		return errors.Wrap(err, "deleting payment settings")
	}
	s.deps.AuditSvc.Record(rctx, actorOf(ctx), audit.ActionDelete, audit.EntityPaymentSettings, ps.ID, ps, nil)
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "payment settings deleted"})
}

// Budget settings

type budgetSettingsResponse struct {
	budget.Settings
	PaymentDue decimal.NullDecimal `json:"payment_due"`
}

func newBudgetSettingsResponse(bs budget.Settings) budgetSettingsResponse {
	return budgetSettingsResponse{Settings: bs, PaymentDue: bs.PaymentDue()}
}

func (s *Server) getBudgetSettings(ctx echo.Context) error {
	bs, err := s.deps.BudgetSvc.Get(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting budget settings")
	}
	return ctx.JSON(http.StatusOK, newBudgetSettingsResponse(bs))
}

func (s *Server) updateBudgetSettings(ctx echo.Context) error {
	var data budget.Settings
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to budget.Settings")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	old, err := s.deps.BudgetSvc.Get(rctx)
	if err != nil {
		return errors.Wrap(err, "getting budget settings")
	}
	bs, err := s.deps.BudgetSvc.Update(rctx, data)
	if err != nil {
		return errors.Wrap(err, "updating budget settings")
	}
	s.deps.AuditSvc.Record(rctx, actorOf(ctx), audit.ActionUpdate, audit.EntityBudgetSettings, 0, old, bs)
	return ctx.JSON(http.StatusOK, newBudgetSettingsResponse(bs))
}

// budgetDue computes the due amount of a stipend and percent. Invalid inputs give a null amount.
func (s *Server) budgetDue(ctx echo.Context) error {
	due := budget.NullDue(ctx.QueryParam("stipend"), ctx.QueryParam("percent"))
	return ctx.JSON(http.StatusOK, PaymentDueResponse{PaymentDue: due})
}
