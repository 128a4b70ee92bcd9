package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/academia/core/gate"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/user"
)

// registerPages serves the portal routes through the gate: it only decides which page to show.
func registerPages(e *echo.Echo, jwt echo.MiddlewareFunc, srv *Server) {
	e.GET("/", srv.page, optionalJWT(jwt))
	e.GET("/*", srv.page, optionalJWT(jwt))
}

type PageResponse struct {
	Page gate.Page `json:"page"`
}

func (s *Server) page(ctx echo.Context) error {
	var prof *user.Profile
	if _, err := getContextClaims(ctx); err == nil {
		p, err := s.getContextUser(ctx)
		if err != nil {
			return err
		}
		prof = &p
	}

	d := gate.Navigate(session.Settled(prof), ctx.Request().URL.Path)
	switch d.Outcome {
	case gate.Redirect:
		return ctx.Redirect(http.StatusFound, d.Location)
	case gate.Render:
		if d.Page == gate.PageNotFound {
			return ctx.JSON(http.StatusNotFound, PageResponse{Page: d.Page})
		}
		return ctx.JSON(http.StatusOK, PageResponse{Page: d.Page})
	default: // a settled session never loads
		return ctx.NoContent(http.StatusAccepted)
	}
}
