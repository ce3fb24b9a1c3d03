package rest

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const playerIDContextKey = "player_id"

type authService interface {
	GeneratePlayerToken(playerID string) (string, error)
	ParsePlayerToken(token string) (string, error)
}

// PlayerToken authenticates requests by the bearer token issued at player
// creation and stores the player id on the request context.
func PlayerToken(auth authService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			header := ctx.Request().Header.Get(echo.HeaderAuthorization)

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				return ctx.JSON(http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
			}

			playerID, err := auth.ParsePlayerToken(token)
			if err != nil {
				return ctx.JSON(http.StatusUnauthorized, errorResponse{Error: "invalid token"})
			}

			ctx.Set(playerIDContextKey, playerID)

			return next(ctx)
		}
	}
}

func playerID(ctx echo.Context) string {
	id, _ := ctx.Get(playerIDContextKey).(string)
	return id
}
