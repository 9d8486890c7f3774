package config

import "time"

type App struct {
	Port            string        `env:"APP_PORT" default:"8080"`
	DatabaseURL     string        `env:"DATABASE_URL,required"`
	JWTSecret       string        `env:"JWT_SECRET,required"`
	FineAccrualTick time.Duration `env:"FINE_ACCRUAL_TICK" default:"24h"`
	Env             string        `env:"APP_ENV" default:"dev"`
}
