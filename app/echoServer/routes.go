package echoServer

import (
	"net/http"

	"libcirc/app/echoServer/controller/auth"
	"libcirc/app/echoServer/controller/book"
	"libcirc/app/echoServer/controller/fineledger"
	"libcirc/app/echoServer/controller/loan"
	"libcirc/app/echoServer/controller/reservation"
	"libcirc/app/echoServer/jwtx"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

type C struct {
	Auth        *auth.Controller
	Book        *book.Controller
	Reservation *reservation.Controller
	Loan        *loan.Controller
	FineLedger  *fineledger.Controller
	JWTSecret   string
}

func Register(e *echo.Echo, c C) {
	// Public
	pub := e.Group("/v1")
	pub.POST("/users/register", c.Auth.Register)
	pub.POST("/users/login", c.Auth.Login)

	// Auth
	auth := e.Group("/v1")
	auth.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(c.JWTSecret),

		NewClaimsFunc: func(c echo.Context) jwt.Claims { return jwt.MapClaims{} },
		TokenLookup:   "header:Authorization",
	}))
	// user_id + role extraction out of verified claims
	auth.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			uid, err := jwtx.UserIDFromContext(ctx)
			if err != nil {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			ctx.Set("user_id", uid)
			if role, err := jwtx.RoleFromContext(ctx); err == nil {
				ctx.Set("role", role)
			}
			return next(ctx)
		}
	})

	// Catalog
	auth.GET("/books", c.Book.List)
	auth.GET("/books/:id", c.Book.Detail)
	// Librarian endpoints
	auth.POST("/books", c.Book.Create)
	auth.POST("/books/:id/instances", c.Book.AddInstances)
	auth.PUT("/instances/:id/status", c.Book.SetInstanceStatus)

	// Reservations
	auth.POST("/reservations", c.Reservation.Create)
	auth.DELETE("/reservations/:id", c.Reservation.Cancel)
	auth.POST("/reservations/:id/extend", c.Reservation.Extend)
	auth.GET("/reservations/my", c.Reservation.My)

	// Loans
	auth.POST("/loans", c.Loan.Create)
	auth.POST("/loans/return", c.Loan.Return)
	auth.POST("/loans/renew", c.Loan.Renew)
	auth.GET("/loans/current", c.Loan.Current)
	auth.GET("/loans/history", c.Loan.History)

	// Fines
	auth.GET("/fines", c.Loan.Fines)
	auth.POST("/fines/payments", c.FineLedger.Pay)
	auth.GET("/fines/ledger", c.FineLedger.Ledger)
}
