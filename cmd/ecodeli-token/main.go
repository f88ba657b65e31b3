// Package main выпускает подписанные токены участников для обращения к API EcoDeli.
//
// Пример:
//
//	AUTH_SECRET=secret ecodeli-token -id 11 -role courier
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"

	"github.com/ecodeli/ecodeli/internal/middleware"
	"github.com/ecodeli/ecodeli/internal/model"
)

type options struct {
	AuthSecret string `env:"AUTH_SECRET"`
}

func main() {
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	sugar := logger.Sugar()

	var opts options
	if err := env.Parse(&opts); err != nil {
		sugar.Fatalw("parse env", "error", err)
	}

	id := flag.Int64("id", 0, "participant id")
	role := flag.String("role", string(model.RoleClient), "participant role")
	flag.StringVar(&opts.AuthSecret, "s", opts.AuthSecret, "secret used to sign auth tokens")
	flag.Parse()

	actor := model.Actor{ID: *id, Role: model.Role(*role)}
	if actor.ID <= 0 || !actor.Role.Valid() {
		sugar.Fatalw("invalid participant", "id", *id, "role", *role)
	}
	if opts.AuthSecret == "" {
		sugar.Fatal("auth secret is required")
	}

	auth := middleware.NewAuthMiddleware(opts.AuthSecret)
	fmt.Fprintln(os.Stdout, auth.Token(actor))
}
