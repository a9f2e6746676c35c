package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/profpay/profpay/core"
	"github.com/profpay/profpay/core/audit"
	"github.com/profpay/profpay/core/user"
)

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	RefreshRequest struct {
		RefreshToken string `json:"refresh_token"`
	}

	MessageResponse struct {
		Message string `json:"message"`
	}
)

func (lr *LoginRequest) Validate(s *Server) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return s.deps.Validate.Struct(lr)
}

func (s *Server) registerAuthAPI(v1, authed *echo.Group) {
	// un-authed endpoints
	ag := v1.Group("/auth")
	ag.POST("/login", s.login)
	ag.POST("/refresh", s.refresh)
	ag.POST("/logout", s.logout)

	// authed endpoints
	authed.GET("/auth/me", s.me)
	ug := authed.Group("/auth/users", adminMiddleware)
	ug.GET("", s.queryUsers)
	ug.POST("", s.createUser)
	ug.GET("/roles", s.queryRoles)
	ug.PUT("/:id", s.updateUser)
}

// Handlers

func (s *Server) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(s); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	usr, err := s.deps.UserSvc.GetByUsernameOrEmail(rctx, data.Username)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errAuthenticationFailed
		}
		return errors.Wrap(err, "finding user by username or email")
	}
	if err = usr.CheckPassword(data.Password); err != nil {
		return errAuthenticationFailed
	}
	if !usr.IsActive {
		return errAccountDeactivated
	}
	if usr, err = s.deps.UserSvc.SetLastLogin(rctx, usr); err != nil {
		return errors.Wrap(err, "setting lastLogin")
	}

	pair, err := s.tokens.issue(usr)
	if err != nil {
		return errors.Wrap(err, "issuing tokens")
	}
	s.tokens.setCookies(ctx, pair)

	actor := actorOf(ctx)
	actor.UserID = usr.ID
	s.deps.AuditSvc.Record(rctx, actor, audit.ActionLogin, audit.EntityUser, usr.ID, nil, nil)

	return ctx.JSON(http.StatusOK, pair)
}

// refresh issues a new token pair from the refresh cookie, or the refresh token of the body.
func (s *Server) refresh(ctx echo.Context) error {
	var tokenStr string
	if ck, err := ctx.Cookie(refreshCookie); err == nil {
		tokenStr = ck.Value
	}
	if tokenStr == "" {
		var data RefreshRequest
		if err := ctx.Bind(&data); err == nil {
			tokenStr = data.RefreshToken
		}
	}
	if tokenStr == "" {
		return errUnauthorized
	}

	claims, err := s.tokens.parse(tokenStr)
	if err != nil {
		return err
	}
	if claims.Type != tokenTypeRefresh {
		return errInvalidToken
	}

	usr, err := s.deps.UserSvc.GetByID(ctx.Request().Context(), claims.UserID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errInvalidToken
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if !usr.IsActive {
		return errAccountDeactivated
	}

	pair, err := s.tokens.issue(usr)
	if err != nil {
		return errors.Wrap(err, "issuing tokens")
	}
	s.tokens.setCookies(ctx, pair)
	return ctx.JSON(http.StatusOK, pair)
}

func (s *Server) logout(ctx echo.Context) error {
	s.tokens.clearCookies(ctx)
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}

func (s *Server) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (s *Server) createUser(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	rctx := ctx.Request().Context()
	if err := data.Validate(rctx, s.deps.Validate, s.deps.UserSvc); err != nil {
		return err
	}

	usr, err := s.deps.UserSvc.Create(rctx, data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	s.deps.AuditSvc.Record(rctx, actorOf(ctx), audit.ActionCreate, audit.EntityUser, usr.ID, nil, usr)
	return ctx.JSON(http.StatusCreated, usr)
}

func (s *Server) queryUsers(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.User{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	users, err := s.deps.UserSvc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (s *Server) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}

func (s *Server) updateUser(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()
	usr, err := s.deps.UserSvc.GetByID(rctx, id)
	if err != nil {
		return err
	}

	var data user.UpdateUser
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	if err = data.Validate(rctx, usr, s.deps.Validate, s.deps.UserSvc); err != nil {
		return err
	}

	// an admin cannot lock themselves out
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if usr.ID == ctxUsr.ID && ((data.IsActive != nil && !*data.IsActive) || (data.Role != "" && data.Role != user.RoleAdmin)) {
		return errHttpForbidden
	}

	updated, err := s.deps.UserSvc.Update(rctx, usr, data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	s.deps.AuditSvc.Record(rctx, actorOf(ctx), audit.ActionUpdate, audit.EntityUser, usr.ID, usr, updated)
	return ctx.JSON(http.StatusOK, updated)
}
