package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/academia/core/account"
)

// roleMiddleware lets through the accounts having one of roles.
func roleMiddleware(svc *account.Service, roles ...account.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			p, err := getContextPrincipal(ctx, svc)
			if err != nil {
				return err
			}
			for _, role := range roles {
				if p.Role == role {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}
