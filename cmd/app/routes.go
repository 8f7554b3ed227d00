package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"

	"convertsvc/internal/api"
	"convertsvc/internal/api/middleware"
	"convertsvc/internal/service"
)

func (app *App) initHTTP(converter service.ConverterInterface) {
	r := chi.NewRouter()
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.RequestLoggingMiddleware(app.logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/currency/convert", api.HandleConvert(converter))
	r.Get("/conversions/recent", api.HandleRecentConversions(converter))
	r.Get("/healthz", api.HandleHealthz())
	r.Get("/readyz", api.HandleReadyz(app.db, app.rdbCache, app.rdbAsynq))

	if app.cfg.Server.ServeSwagger {
		r.Get("/swagger/*", api.SwaggerUIHandler())
		r.Get("/openapi.json", api.OpenAPISpecHandler())
	}

	if app.cfg.Server.ServeAsynqmon {
		mon := asynqmon.New(asynqmon.Options{
			RootPath:     "/monitoring",
			RedisConnOpt: asynq.RedisClientOpt{Addr: app.cfg.Redis.AsynqAddr},
		})
		r.Mount(mon.RootPath(), mon)
	}

	app.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
