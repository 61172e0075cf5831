package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/AhmedB2023/ecommerce-backend/internal/auth"
	"github.com/AhmedB2023/ecommerce-backend/internal/config"
	"github.com/AhmedB2023/ecommerce-backend/internal/dedup"
	"github.com/AhmedB2023/ecommerce-backend/internal/events"
	"github.com/AhmedB2023/ecommerce-backend/internal/notification"
	"github.com/AhmedB2023/ecommerce-backend/internal/payment/stripe"
	"github.com/AhmedB2023/ecommerce-backend/internal/rediscli"
	"github.com/AhmedB2023/ecommerce-backend/internal/repository/postgres"
	"github.com/AhmedB2023/ecommerce-backend/internal/service"
	myhttp "github.com/AhmedB2023/ecommerce-backend/internal/transport/http"
	"github.com/AhmedB2023/ecommerce-backend/pkg/logger/sl"
	"github.com/AhmedB2023/ecommerce-backend/pkg/logger/slogpretty"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := slogpretty.SetupLogger(cfg.Env, &slogpretty.FileSink{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})

	log.Info("starting marketplace", slog.String("env", cfg.Env))

	pg, err := postgres.NewDB(ctx, cfg.Postgres, log)
	if err != nil {
		return fmt.Errorf("failed to init db: %w", err)
	}
	defer func() {
		if err := pg.Close(); err != nil {
			log.Error("db close failed", sl.Err(err))
		}
	}()

	rdb, err := rediscli.New(ctx, cfg.Redis, log)
	if err != nil {
		return fmt.Errorf("failed to init redis: %w", err)
	}
	if rdb != nil {
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Error("redis close failed", sl.Err(err))
			}
		}()
	}

	var (
		publisher events.Publisher = events.NopPublisher{}
		seen      dedup.Store      = dedup.NewMemoryStore(dedup.DefaultTTL)
		limiter   myhttp.Limiter   = myhttp.NewMemoryLimiter()
	)
	if rdb != nil {
		publisher = events.NewRedisPublisher(rdb)
		seen = dedup.NewRedisStore(rdb, dedup.DefaultTTL)
		limiter = myhttp.NewRedisLimiter(rdb)
	}

	db := pg.DB()

	repairs := postgres.NewRepairRepository(db, log)
	accountsRepo := postgres.NewProviderAccountRepository(db, log)
	properties := postgres.NewPropertyRepository(db, log)
	reservations := postgres.NewReservationRepository(db, log)
	outboxRepo := postgres.NewOutboxRepository(db, log)
	products := postgres.NewProductRepository(db, log)
	orders := postgres.NewOrderRepository(db, log)

	composer, err := notification.NewComposer(cfg.App.BaseURL, cfg.App.FrontendURL)
	if err != nil {
		return fmt.Errorf("failed to load email templates: %w", err)
	}
	outbox := notification.NewOutbox(outboxRepo, composer)
	dispatcher := notification.NewDispatcher(db, outboxRepo, notification.NewSMTPMailer(cfg.Mail, log), cfg.Outbox, log)

	settings, err := service.RepairSettingsFrom(cfg.Repair)
	if err != nil {
		return err
	}

	payments := stripe.New(cfg.Stripe, log)
	base := service.NewBaseService(db, outbox, publisher, log)

	accountSvc := service.NewAccountService(accountsRepo, payments, cfg.App.BaseURL, cfg.App.FrontendURL, log)
	payoutSvc := service.NewPayoutService(base, repairs, repairs, accountSvc, payments)
	repairSvc := service.NewRepairService(base, repairs, repairs, accountSvc, payoutSvc, payments, settings)
	reservationSvc := service.NewReservationService(base, properties, reservations, payments, cfg.App.FrontendURL)
	availabilitySvc := service.NewAvailabilityService(properties, log)
	webhookSvc := service.NewWebhookService(payments, seen, repairSvc, reservationSvc, accountSvc, payoutSvc, log)
	orderSvc := service.NewOrderService(base, products, orders)

	issuer := auth.NewIssuer(cfg.Admin.JWTSecret, cfg.Admin.TokenTTL)

	srv := myhttp.NewServer(log, myhttp.Services{
		Repairs:      repairSvc,
		Payouts:      payoutSvc,
		Accounts:     accountSvc,
		Reservations: reservationSvc,
		Availability: availabilitySvc,
		Webhooks:     webhookSvc,
		Orders:       orderSvc,
	},
		issuer,
		myhttp.WithRateLimit(limiter, cfg.RateLimit.LookupLimit, cfg.RateLimit.Window),
		myhttp.WithVendorAuth(issuer),
	)

	httpServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: cfg.Server.Timeout,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      2 * cfg.Server.Timeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return dispatcher.Run(gctx)
	})

	g.Go(func() error {
		log.Info("service started", slog.String("addr", httpServer.Addr))

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error listening and serving: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("stopping server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down http server: %w", err)
		}
		return nil
	})

	return g.Wait()
}
