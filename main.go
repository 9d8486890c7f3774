// Package main library circulation API.
//
// @title           Library Circulation API
// @version         1.0
// @description     circulation service (catalog, reservations, loans, fines).
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description  Use:  Bearer <JWT>
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"libcirc/app/echoServer"
	authctrl "libcirc/app/echoServer/controller/auth"
	bookctrl "libcirc/app/echoServer/controller/book"
	fineledgerctrl "libcirc/app/echoServer/controller/fineledger"
	loanctrl "libcirc/app/echoServer/controller/loan"
	reservationctrl "libcirc/app/echoServer/controller/reservation"
	"libcirc/app/echoServer/validation"
	"libcirc/config"
	authrepo "libcirc/repository/auth"
	bookrepo "libcirc/repository/book"
	fineledgerrepo "libcirc/repository/fineledger"
	instancerepo "libcirc/repository/instance"
	loanrepo "libcirc/repository/loan"
	reservationrepo "libcirc/repository/reservation"
	authsvc "libcirc/service/auth"
	"libcirc/service/availability"
	booksvc "libcirc/service/book"
	finesvc "libcirc/service/fine"
	fineledgersvc "libcirc/service/fineledger"
	loansvc "libcirc/service/loan"
	reservationsvc "libcirc/service/reservation"
	"libcirc/util/database"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
)

func main() {

	cfg := config.Load()
	ctx := context.Background()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// repos
	ar := authrepo.New(db.SQL)
	br := bookrepo.New(db.SQL)
	ir := instancerepo.New(db.SQL)
	rr := reservationrepo.New(db.SQL)
	lr := loanrepo.New(db.SQL)
	flr := fineledgerrepo.New(db.SQL)

	// services
	as := authsvc.New(ar)
	bs := booksvc.New(br, ir)
	resolver := availability.New(ir)
	rs := reservationsvc.New(db.SQL, rr, resolver)
	ls := loansvc.New(db.SQL, lr, rr, resolver)
	fls := fineledgersvc.New(db.SQL, flr)
	accruer := finesvc.NewAccruer(lr, log)

	// controllers
	v := validator.New()
	authC := &authctrl.Controller{Svc: as, V: v, Log: log, JWTSecret: cfg.JWTSecret}
	bookC := &bookctrl.Controller{Svc: bs, V: v, Log: log}
	reservationC := &reservationctrl.Controller{Svc: rs, V: v, Log: log}
	loanC := &loanctrl.Controller{Svc: ls, V: v, Log: log}
	fineledgerC := &fineledgerctrl.Controller{Svc: fls, V: v, Log: log}

	// echo
	e := echo.New()
	echoServer.RegisterMiddlewares(e)
	e.Validator = validation.Wrap(v)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]any{
			"status":  "ok",
			"message": "Service is healthy and connected",
		})
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	echoServer.Register(e, echoServer.C{
		Auth:        authC,
		Book:        bookC,
		Reservation: reservationC,
		Loan:        loanC,
		FineLedger:  fineledgerC,

		JWTSecret: cfg.JWTSecret,
	})

	// daily fine accrual, runs unattended with no user context
	go func() {
		t := time.NewTicker(cfg.FineAccrualTick)
		defer t.Stop()
		for {
			runCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			n, err := accruer.Accrue(runCtx)
			cancel()
			if err != nil {
				log.Error("fine accrual run failed", "err", err)
			} else {
				log.Info("fine accrual run done", "loans_updated", n)
			}
			<-t.C
		}
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}
	if port == "" {
		port = "8080"
	}

	slog.Info("starting server", "chosen_port", port)

	e.Logger.Fatal(e.Start(":" + port))
}
