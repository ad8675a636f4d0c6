package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inmocrm/internal/auth"
	"inmocrm/internal/config"
	"inmocrm/internal/db"
	httpx "inmocrm/internal/http"
	"inmocrm/internal/jobs"
	"inmocrm/internal/notice"

	"github.com/robfig/cron/v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := db.AutoMigrateAndIndexes(gdb); err != nil {
		log.Fatal(err)
	}

	jwtSvc := auth.NewJWT(cfg.JWTSecret)
	r := httpx.NewRouter(cfg, gdb, jwtSvc)

	// reminder dispatch worker
	jobsRepo := &jobs.Repo{DB: gdb}
	worker := &jobs.Worker{ID: "worker-1", Repo: jobsRepo, DB: gdb}

	ctx, cancel := context.WithCancel(context.Background())
	go worker.Run(ctx)

	// overdue sweep: persist pendiente→atrasado every 10 minutes so list
	// filters on the stored column stay close to the wall-clock rule
	noticeSvc := &notice.Service{DB: gdb, Loc: cfg.Location}
	cr := cron.New(cron.WithLocation(cfg.Location))
	if _, err := cr.AddFunc("*/10 * * * *", func() {
		if _, err := noticeSvc.MarkOverdue(ctx); err != nil {
			log.Printf("overdue sweep error: %v\n", err)
		}
	}); err != nil {
		log.Fatal(err)
	}
	cr.Start()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on %s\n", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	cancel()
	<-cr.Stop().Done()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
