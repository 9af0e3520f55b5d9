package auth

import (
	"net/http"

	"crm-service/internal/authz"

	"github.com/labstack/echo/v4"
)

func respondError(c echo.Context, status int, message string) error {
	return echo.NewHTTPError(status, message)
}

// respondOutcome answers requests on the simulated API in its own shape so
// clients see the same body whether the middleware or the executor rejects.
func respondOutcome(c echo.Context, outcome authz.Outcome, message string) error {
	status := outcome.StatusCode()
	return c.JSON(status, map[string]any{
		jsonKeyStatus:  status,
		jsonKeyOutcome: outcome,
		jsonKeyError:   message,
	})
}

func respondRateLimited(c echo.Context) error {
	return c.JSON(http.StatusTooManyRequests, map[string]any{
		jsonKeyStatus:  http.StatusTooManyRequests,
		jsonKeyOutcome: outcomeRateLimited,
		jsonKeyError:   msgRateLimited,
	})
}
