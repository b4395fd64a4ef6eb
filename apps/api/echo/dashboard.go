package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core/account"
	"github.com/trezcool/admissions/core/admission"
)

type dashboardApi struct {
	*Server
}

func registerDashboardAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *Server) {
	api := dashboardApi{Server: s}
	g.GET("/dashboard", api.student, jwt, roleMiddleware(account.RoleStudent))
}

func (api *dashboardApi) student(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	acc, err := api.getContextAccount(ctx, claims)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	if !acc.IsActive {
		return errAccountDeactivated
	}

	res := DashboardResponse{AccountID: acc.ID, Role: claims.Role, Name: acc.Name}
	app, err := api.deps.AdmissionSvc.Get(ctx.Request().Context(), claims.Principal(), acc.ID)
	switch errors.Cause(err) {
	case nil:
		if !app.DashboardAccess() {
			return errHttpForbidden
		}
		res.AdmissionNumber = app.AdmissionNumber
	case admission.ErrNotFound: // students enrolled without an application
	default:
		return errors.Wrap(err, "finding application")
	}
	return ctx.JSON(http.StatusOK, res)
}

type DashboardResponse struct {
	AccountID       string `json:"accountId"`
	Role            string `json:"role"`
	AdmissionNumber string `json:"admissionNumber,omitempty"`
	Name            string `json:"name"`
}
