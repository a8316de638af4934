package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"penzi/internal/config"
	"penzi/internal/httpapi"
	"penzi/internal/repository"
	"penzi/internal/service"
	"penzi/internal/sms"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[info] no .env file found, using environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[error] load config: %v", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[error] open database: %v", err)
	}

	users := repository.NewUserRepository(db)
	messages := repository.NewMessageRepository(db)
	matches := repository.NewMatchRepository(db)
	interests := repository.NewInterestRepository(db)

	sender := service.NewSender(messages, cfg.ShortCode)
	registration := service.NewRegistrationService(db, users, sender)
	matching := service.NewMatchService(db, users, matches, sender)
	interest := service.NewInterestService(db, users, interests, sender)

	engine := sms.New(users, messages, matches, interests, sender, registration, matching, interest)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler := service.NewScheduler(time.Local)
	if _, err := scheduler.ScheduleInterval(cfg.SweepInterval, func() {
		sweepCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		processed, err := interest.SweepExpired(sweepCtx, time.Now())
		if err != nil {
			log.Printf("[error] expiry sweep: %v", err)
			return
		}
		if processed > 0 {
			log.Printf("[info] expiry sweep notified %d senders", processed)
		}
	}); err != nil {
		log.Fatalf("[error] schedule expiry sweep: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	api := httpapi.NewServer(engine, messages, users)
	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      api.Router(cfg.AllowedOrigins),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Printf("[info] listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[error] http server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("[info] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[error] shutdown: %v", err)
	}
}
