package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core/account"
	"github.com/trezcool/admissions/core/admission"
)

type admissionApi struct {
	svc *admission.Service
}

func registerAdmissionAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *Server) {
	api := admissionApi{svc: s.deps.AdmissionSvc}

	ag := g.Group("/admissions", jwt)
	ag.POST("/submit-application", api.submit,
		roleMiddleware(account.RoleApplicant), rateLimitMiddleware(s.deps.Limiters.Submit, "submit"))

	// admin endpoints
	ag.GET("", api.query, adminMiddleware())
	ag.GET("/stats", api.stats, adminMiddleware())
	ag.PUT("/approve/:id", api.approve, adminMiddleware())
	ag.PUT("/reject/:id", api.reject, adminMiddleware())

	// owner or admin
	ag.GET("/:id", api.retrieve)
}

// Handlers

func (api *admissionApi) submit(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}

	var data admission.Details
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Details")
	}

	app, err := api.svc.Submit(ctx.Request().Context(), p, p.AccountID, data)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *admissionApi) query(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}

	var filter admission.ListFilter
	if err = ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to ListFilter")
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	apps, err := api.svc.List(ctx.Request().Context(), p, filter, ordering.Orderings)
	if err != nil {
		return toHTTPError(err)
	}
	if apps == nil {
		apps = []admission.Application{}
	}
	return ctx.JSON(http.StatusOK, apps)
}

func (api *admissionApi) stats(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}
	stats, err := api.svc.Stats(ctx.Request().Context(), p)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *admissionApi) retrieve(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}
	app, err := api.svc.Get(ctx.Request().Context(), p, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == admission.ErrUnauthorized {
			return errHttpNotFound // do not disclose other applicants' records
		}
		return toHTTPError(err)
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *admissionApi) approve(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}
	app, err := api.svc.Approve(ctx.Request().Context(), p, ctx.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *admissionApi) reject(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}

	var data admission.Rejection
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Rejection")
	}

	app, err := api.svc.Reject(ctx.Request().Context(), p, ctx.Param("id"), data.Reason)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(http.StatusOK, app)
}
