package echoapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/account"
	"github.com/trezcool/admissions/core/admission"
)

type accountApi struct {
	*Server
}

func registerAccountAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *Server) {
	api := accountApi{Server: s}
	limits := s.deps.Limiters

	ag := g.Group("/accounts")

	// un-authed endpoints
	ag.POST("/register", api.register, rateLimitMiddleware(limits.Register, "register"))
	ag.POST("/login", api.login, rateLimitMiddleware(limits.Login, "login"))

	// authed endpoints
	ag.POST("/token-refresh", api.refreshToken, jwt)
	ag.GET("/me", api.me, jwt)
}

// Handlers

func (api *accountApi) register(ctx echo.Context) error {
	var data account.NewAccount
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAccount")
	}

	reqCtx := ctx.Request().Context()
	acc, err := api.deps.AccountSvc.Register(reqCtx, data)
	if err != nil {
		return err
	}

	app, err := api.deps.AdmissionSvc.Open(reqCtx, acc)
	if err != nil {
		api.undoRegistration(acc)
		return errors.Wrap(err, "opening application")
	}

	return ctx.JSON(http.StatusCreated, RegisterResponse{Account: acc, Application: app})
}

// undoRegistration removes an account left without an application.
func (api *accountApi) undoRegistration(acc account.Account) {
	if err := api.deps.AccountSvc.Delete(context.Background(), acc.ID); err != nil {
		api.deps.Logger.Error(fmt.Sprintf("deleting account %s after failed registration: %v", acc.ID, err), err)
	}
}

func (api *accountApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	data.Identifier = core.CleanString(data.Identifier, true /* lower */)
	if err := api.deps.Validate.Check(data); err != nil {
		return err
	}

	token, err := api.authenticate(ctx.Request().Context(), data.Identifier, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *accountApi) refreshToken(ctx echo.Context) error {
	token, err := api.Server.refreshToken(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *accountApi) me(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	acc, err := api.getContextAccount(ctx, claims)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}

	res := MeResponse{Account: acc, Role: claims.Role}
	app, err := api.deps.AdmissionSvc.Get(ctx.Request().Context(), claims.Principal(), acc.ID)
	switch errors.Cause(err) {
	case nil:
		res.Application = &app
	case admission.ErrNotFound: // staff accounts have no application
	default:
		return errors.Wrap(err, "finding application")
	}
	return ctx.JSON(http.StatusOK, res)
}

type (
	LoginRequest struct {
		Identifier string `json:"identifier" validate:"required"` // email or admission number
		Password   string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	RegisterResponse struct {
		Account     account.Account       `json:"account"`
		Application admission.Application `json:"application"`
	}

	MeResponse struct {
		Account     account.Account        `json:"account"`
		Role        string                 `json:"role"` // effective role
		Application *admission.Application `json:"application"`
	}
)
