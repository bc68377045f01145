package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-event-api/internal/account"
	accountrepo "github.com/ovaphlow/pitchfork/service-event-api/internal/account/repo"
	"github.com/ovaphlow/pitchfork/service-event-api/internal/auth"
	"github.com/ovaphlow/pitchfork/service-event-api/internal/event"
	eventrepo "github.com/ovaphlow/pitchfork/service-event-api/internal/event/repo"
	"github.com/ovaphlow/pitchfork/service-event-api/internal/router"
	"github.com/ovaphlow/pitchfork/service-event-api/internal/upload"
	"github.com/ovaphlow/pitchfork/service-event-api/pkg/database"
	"github.com/ovaphlow/pitchfork/service-event-api/pkg/utilities"
)

func main() {
	// best-effort: a missing .env falls back to the real environment
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting service-event-api")

	authCfg := auth.ConfigFromEnv()
	tokens, err := auth.NewTokenManager(authCfg)
	if err != nil {
		sugar.Fatalf("auth config: %v", err)
	}

	db, err := database.Connect(database.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// events reference users, so accounts go first
	accounts := accountrepo.NewAccountRepo(db)
	if err := accounts.EnsureTable(ctx); err != nil {
		sugar.Fatalf("ensure users table: %v", err)
	}
	events := eventrepo.NewRepo(db)
	if err := events.EnsureTable(ctx); err != nil {
		sugar.Fatalf("ensure events table: %v", err)
	}

	images, err := upload.NewDiskStore(upload.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("upload store: %v", err)
	}

	accountSvc := account.NewService(accounts, auth.NewBcryptHasher(authCfg.BcryptCost), tokens)
	eventSvc := event.NewService(events, utilities.NewIDGeneratorFromEnv())

	srvCfg := router.ConfigFromEnv()
	handler := router.RegisterRoutes(sugar, router.Deps{
		Accounts: account.NewHandler(accountSvc, sugar),
		Events:   event.NewHandler(eventSvc, images, sugar),
		Gate:     auth.RequireAuth(tokens, sugar),
		Uploads:  images.Handler(),
		Config:   srvCfg,
	})
	srv := &http.Server{
		Addr:              ":" + srvCfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()
	sugar.Infow("server listening", "addr", srv.Addr, "token_expiry", tokens.Expiry().String())

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}
	if err := db.PingContext(doneCtx); err != nil {
		sugar.Warnf("db ping on shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
