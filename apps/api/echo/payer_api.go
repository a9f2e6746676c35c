package echoapi

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/profpay/profpay/core"
	"github.com/profpay/profpay/core/audit"
	"github.com/profpay/profpay/core/payer"
	exportsvc "github.com/profpay/profpay/services/export"
)

func (s *Server) registerPayerAPI(authed *echo.Group, throttled echo.MiddlewareFunc) {
	pg := authed.Group("/payers")
	pg.GET("", s.queryPayers)
	pg.GET("/export", s.exportPayers, throttled)
	pg.POST("", s.createPayer, writerMiddleware)
	pg.GET("/:id", s.retrievePayer)
	pg.PUT("/:id", s.updatePayer, writerMiddleware)
	pg.DELETE("/:id", s.deletePayer, writerMiddleware)
	pg.GET("/:id/payments", s.queryPayments)

	authed.GET("/debtors", s.queryDebtors)
	authed.POST("/debtors/remind", s.remindDebtors, writerMiddleware, throttled)

	mg := authed.Group("/payments", writerMiddleware)
	mg.POST("", s.createPayment, throttled)
	mg.PUT("/:id", s.updatePayment)
	mg.DELETE("/:id", s.deletePayment)
}

// Payers

func (s *Server) listPayers(ctx echo.Context, debtorsOnly bool) error {
	f := requestFilter(ctx)
	qf, err := payer.NewQueryFilter(f)
	if err != nil {
		return err
	}
	if debtorsOnly {
		qf.Statuses = payer.DebtorStatuses
	}
	page, err := bindPagination(ctx, s.deps.Validate)
	if err != nil {
		return err
	}

	res, err := s.deps.PayerSvc.Query(ctx.Request().Context(), qf, page)
	if err != nil {
		return errors.Wrap(err, "querying payers")
	}
	setPageLinks(ctx, f, res)
	return ctx.JSON(http.StatusOK, res)
}

func (s *Server) queryPayers(ctx echo.Context) error {
	return s.listPayers(ctx, false)
}

func (s *Server) queryDebtors(ctx echo.Context) error {
	return s.listPayers(ctx, true)
}

func (s *Server) retrievePayer(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	d, err := s.deps.PayerSvc.Details(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	if d.Payments == nil {
		d.Payments = []payer.Payment{}
	}
	return ctx.JSON(http.StatusOK, d)
}

func (s *Server) createPayer(ctx echo.Context) error {
	var data payer.NewPayer
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayer")
	}
	rctx := ctx.Request().Context()
	if err := data.Validate(rctx, s.deps.Validate, s.deps.PayerSvc.References()); err != nil {
		return err
	}

	actor := actorOf(ctx)
	p, err := s.deps.PayerSvc.Create(rctx, data, actor.UserID)
	if err != nil {
		return errors.Wrap(err, "creating payer")
	}
	s.deps.AuditSvc.Record(rctx, actor, audit.ActionCreate, audit.EntityPayer, p.ID, nil, p)
	s.deps.StatsSvc.Invalidate(rctx)
	return ctx.JSON(http.StatusCreated, p)
}

func (s *Server) updatePayer(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()
	p, err := s.deps.PayerSvc.Get(rctx, id)
	if err != nil {
		return err
	}

	var data payer.UpdatePayer
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePayer")
	}
	if err = data.Validate(rctx, p, s.deps.Validate, s.deps.PayerSvc.References()); err != nil {
		return err
	}

	updated, err := s.deps.PayerSvc.Update(rctx, p, data)
	if err != nil {
		return errors.Wrap(err, "updating payer")
	}
	s.deps.AuditSvc.Record(rctx, actorOf(ctx), audit.ActionUpdate, audit.EntityPayer, p.ID, p, updated)
	s.deps.StatsSvc.Invalidate(rctx)
	return ctx.JSON(http.StatusOK, updated)
}

func (s *Server) deletePayer(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()
	p, err := s.deps.PayerSvc.Get(rctx, id)
	if err != nil {
		return err
	}
	if err = s.deps.PayerSvc.Deactivate(rctx, p); err != nil {
		return errors.Wrap(err, "deactivating payer")
	}
	s.deps.AuditSvc.Record(rctx, actorOf(ctx), audit.ActionDelete, audit.EntityPayer, p.ID, p, nil)
	s.deps.StatsSvc.Invalidate(rctx)
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "payer deleted"})
}

// exportPayers sends the filtered payer list as an Excel workbook.
func (s *Server) exportPayers(ctx echo.Context) error {
	qf, err := payer.NewQueryFilter(requestFilter(ctx))
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()
	payers, err := s.deps.PayerSvc.QueryAll(rctx, qf)
	if err != nil {
		return errors.Wrap(err, "querying payers")
	}
	names, err := exportsvc.LoadNames(rctx, s.deps.FacultySvc)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err = exportsvc.WritePayers(&buf, payers, names); err != nil {
		return errors.Wrap(err, "exporting payers")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+exportsvc.Filename(time.Now()))
	return ctx.Blob(http.StatusOK, exportsvc.ContentType, buf.Bytes())
}

func (s *Server) remindDebtors(ctx echo.Context) error {
	var facultyID int
	if v := ctx.QueryParam("faculty_id"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return core.NewFieldError("faculty_id", "faculty_id must be a positive integer")
		}
		facultyID = n
	}

	res, err := s.deps.ReminderSvc.Remind(ctx.Request().Context(), facultyID)
	if err != nil {
		return errors.Wrap(err, "sending reminders")
	}
	return ctx.JSON(http.StatusOK, res)
}

// Payments

func (s *Server) queryPayments(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	payments, err := s.deps.PayerSvc.Payments(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	if payments == nil {
		payments = []payer.Payment{}
	}
	return ctx.JSON(http.StatusOK, payments)
}

func (s *Server) createPayment(ctx echo.Context) error {
	var data payer.NewPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	actor := actorOf(ctx)
	pm, err := s.deps.PayerSvc.CreatePayment(rctx, data, actor.UserID)
	if err != nil {
		if errors.Cause(err) == payer.ErrNotFound {
			return core.NewFieldError("payer_id", "payer not found")
		}
		return errors.Wrap(err, "creating payment")
	}
	s.deps.AuditSvc.Record(rctx, actor, audit.ActionCreate, audit.EntityPayment, pm.ID, nil, pm)
	s.deps.StatsSvc.Invalidate(rctx, pm.PaymentDate.Year())
	if s.deps.Metrics != nil {
		s.deps.Metrics.PaymentRecorded()
	}
	return ctx.JSON(http.StatusCreated, pm)
}

func (s *Server) updatePayment(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()
	pm, err := s.deps.PayerSvc.GetPayment(rctx, id)
	if err != nil {
		return err
	}

	var data payer.UpdatePayment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePayment")
	}
	if err = data.Validate(pm, s.deps.Validate); err != nil {
		return err
	}

	updated, err := s.deps.PayerSvc.UpdatePayment(rctx, pm, data)
	if err != nil {
		return errors.Wrap(err, "updating payment")
	}
	s.deps.AuditSvc.Record(rctx, actorOf(ctx), audit.ActionUpdate, audit.EntityPayment, pm.ID, pm, updated)
	s.deps.StatsSvc.Invalidate(rctx, pm.PaymentDate.Year(), updated.PaymentDate.Year())
	return ctx.JSON(http.StatusOK, updated)
}

func (s *Server) deletePayment(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()
	pm, err := s.deps.PayerSvc.GetPayment(rctx, id)
	if err != nil {
		return err
	}
	if err = s.deps.PayerSvc.DeletePayment(rctx, pm); err != nil {
		return errors.Wrap(err, "deleting payment")
	}
	s.deps.AuditSvc.Record(rctx, actorOf(ctx), audit.ActionDelete, audit.EntityPayment, pm.ID, pm, nil)
	s.deps.StatsSvc.Invalidate(rctx, pm.PaymentDate.Year())
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "payment deleted"})
}
