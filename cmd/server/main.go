package main // Entry point package

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/iliyamo/campus-events/internal/config"
	"github.com/iliyamo/campus-events/internal/database"
	"github.com/iliyamo/campus-events/internal/handler"
	"github.com/iliyamo/campus-events/internal/mailer"
	"github.com/iliyamo/campus-events/internal/middleware"
	"github.com/iliyamo/campus-events/internal/payments"
	"github.com/iliyamo/campus-events/internal/queue"
	"github.com/iliyamo/campus-events/internal/repository"
	"github.com/iliyamo/campus-events/internal/router"
	"github.com/iliyamo/campus-events/internal/service"
	"github.com/iliyamo/campus-events/internal/sheets"
)

func main() {
	cfg := config.Load() // Load environment config

	e := echo.New()
	e.HideBanner = true
	if cfg.IsProd() {
		e.Logger.SetLevel(log.INFO)
	} else {
		e.Logger.SetLevel(log.DEBUG)
	}
	v := handler.NewValidator()
	e.Validator = v
	e.HTTPErrorHandler = handler.HTTPErrorHandler(v)
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, rv echomw.RequestLoggerValues) error {
			if rv.Error != nil {
				c.Logger().Warnf("%s %s %d %s: %v", rv.Method, rv.URI, rv.Status, rv.Latency, rv.Error)
				return nil
			}
			c.Logger().Infof("%s %s %d %s", rv.Method, rv.URI, rv.Status, rv.Latency)
			return nil
		},
	}))

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		e.Logger.Fatalf("db: %v", err)
	}
	defer db.Close()
	if cfg.DBAutoMigrate {
		if err := database.Migrate(db); err != nil {
			e.Logger.Fatalf("migrate: %v", err)
		}
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	colleges := repository.NewCollegeRepo(db)
	events := repository.NewEventRepo(db)
	subEvents := repository.NewSubEventRepo(db)
	bookings := repository.NewBookingRepo(db)
	tickets := repository.NewTicketRepo(db)
	external := repository.NewExternalRegistrationRepo(db)

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		created, err := users.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.BcryptCost)
		cancel()
		if err != nil {
			e.Logger.Fatalf("seed admin: %v", err)
		}
		if created {
			e.Logger.Infof("created admin account %s", cfg.AdminEmail)
		}
	}

	rdb, err := config.NewRedisClient()
	if err != nil {
		e.Logger.Warnf("running without redis: %v", err)
	}
	cacheCfg := config.LoadCacheConfig()
	purger := middleware.NewCachePurger(cacheCfg, rdb)
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	provider, err := payments.NewProvider(cfg.Payments)
	if err != nil {
		e.Logger.Fatalf("payments: %v", err)
	}

	var sheetReader handler.SheetReader
	if sc, err := sheets.New(context.Background(), cfg.GoogleCredentialsFile); err == nil {
		sheetReader = sc
	} else if !errors.Is(err, sheets.ErrNotConfigured) {
		e.Logger.Warnf("sheets import disabled: %v", err)
	}

	var publisher service.EventPublisher
	if cfg.AMQPURL != "" {
		publisher = service.NewPublisher(cfg.AMQPURL, e.Logger)
	}
	notify := handler.NewNotifier(publisher, users, events, subEvents, e.Logger)

	router.RegisterRoutes(e, db, rdb)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterPublic(e, handler.NewPublicHandler(events, subEvents, colleges), middleware.NewRedisCache(cacheCfg, rdb))
	router.RegisterStudent(e, &handler.BookingHandler{
		Cfg:      cfg,
		Bookings: bookings,
		Tickets:  tickets,
		Events:   events,
		External: external,
		Payments: provider,
		Notify:   notify,
	}, cfg.JWTSecret)
	router.RegisterOrganizer(e, &handler.OrganizerHandler{
		Colleges:  colleges,
		Events:    events,
		SubEvents: subEvents,
		Tickets:   tickets,
		External:  external,
		Sheets:    sheetReader,
		Purger:    purger,
	}, cfg.JWTSecret)
	router.RegisterCheckin(e, &handler.CheckinHandler{
		Secret:      cfg.JWTSecret,
		OpensBefore: cfg.Booking.CheckinWindowBefore,
		Colleges:    colleges,
		Tickets:     tickets,
		Notify:      notify,
	}, cfg.JWTSecret)
	router.RegisterAdmin(e, &handler.AdminHandler{Events: events, Users: users, Purger: purger}, cfg.JWTSecret)
	router.RegisterPayments(e, &handler.PaymentHandler{Bookings: bookings, Payments: provider, Notify: notify},
		provider.Name() == "stub" && !cfg.IsProd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper := &service.ExpirySweeper{Repo: bookings, Interval: cfg.Booking.SweepInterval, Logger: e.Logger}
	go sweeper.Run(ctx)

	if cfg.AMQPURL != "" {
		consumer := &queue.Consumer{
			URL:    cfg.AMQPURL,
			LogDir: cfg.BookingLogDir,
			Mailer: mailer.New(cfg.SendgridAPIKey, cfg.MailFrom, e.Logger),
			Logger: e.Logger,
		}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				e.Logger.Errorf("booking-consumer stopped: %v", err)
			}
		}()
	}

	addr := ":" + cfg.Port
	e.Logger.Infof("listening on %s (env=%s, payments=%s)", addr, cfg.Env, provider.Name())
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.Logger.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		e.Logger.Errorf("shutdown: %v", err)
	}
}
