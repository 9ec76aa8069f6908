package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	gin "github.com/gin-gonic/gin"

	"vendibook/internal/app/commands"
	availabilityapp "vendibook/internal/app/handlers/availability"
	bookingapp "vendibook/internal/app/handlers/booking"
	checkoutapp "vendibook/internal/app/handlers/checkout"
	listingapp "vendibook/internal/app/handlers/listings"
	meapp "vendibook/internal/app/handlers/me"
	pricingapp "vendibook/internal/app/handlers/pricing"
	"vendibook/internal/app/handlers/support"
	"vendibook/internal/app/middleware"
	appoutbox "vendibook/internal/app/outbox"
	"vendibook/internal/app/policies"
	"vendibook/internal/app/queries"
	"vendibook/internal/app/uow"
	domaincheckout "vendibook/internal/domain/checkout"
	"vendibook/internal/domain/fees"
	domainpricing "vendibook/internal/domain/pricing"
	"vendibook/internal/infra/cache/redis"
	"vendibook/internal/infra/config"
	"vendibook/internal/infra/db/mongo"
	"vendibook/internal/infra/db/postgres"
	ginserver "vendibook/internal/infra/http/gin"
	"vendibook/internal/infra/obs"
	"vendibook/internal/infra/outbox"
	"vendibook/internal/infra/payments"
	"vendibook/internal/infra/security"
	"vendibook/internal/infra/storage/memory"
	"vendibook/internal/infra/storage/s3"
)

// storage is the persistence selected by STORAGE_DRIVER.
type storage struct {
	factory     uow.UoWFactory
	outbox      appoutbox.Outbox
	relay       outbox.Store
	idempotency middleware.IdempotencyStore
	checks      map[string]obs.Check
	closers     []func(context.Context) error
}

func (s *storage) Close(ctx context.Context) error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i](ctx))
	}
	return errors.Join(errs...)
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (*storage, error) {
	switch cfg.StorageDriver {
	case config.DriverMongo:
		client, err := mongo.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		if err := client.EnsureIndexes(ctx, cfg.IdempotencyTTL); err != nil {
			_ = client.Close(context.Background())
			return nil, err
		}
		box := mongo.NewOutboxStore(client.DB)
		logger.Info("storage ready", "driver", cfg.StorageDriver, "database", cfg.MongoDB)
		return &storage{
			factory:     mongo.NewFactory(client.DB),
			outbox:      box,
			relay:       box,
			idempotency: mongo.NewIdempotencyStore(client.DB),
			checks:      map[string]obs.Check{"mongo": client.Ping},
			closers:     []func(context.Context) error{client.Close},
		}, nil
	case config.DriverPostgres:
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		box := postgres.NewOutboxStore(db)
		logger.Info("storage ready", "driver", cfg.StorageDriver)
		return &storage{
			factory:     postgres.Factory{DB: db},
			outbox:      box,
			relay:       box,
			idempotency: postgres.NewIdempotencyStore(db, cfg.IdempotencyTTL),
			checks:      map[string]obs.Check{"postgres": db.PingContext},
			closers:     []func(context.Context) error{func(context.Context) error { return db.Close() }},
		}, nil
	case config.DriverMemory:
		box := memory.NewOutbox()
		logger.Info("storage ready", "driver", cfg.StorageDriver)
		return &storage{
			factory:     memory.NewFactory(),
			outbox:      box,
			relay:       box,
			idempotency: memory.NewIdempotencyStore(cfg.IdempotencyTTL),
			checks:      map[string]obs.Check{},
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", config.ErrUnknownDriver, cfg.StorageDriver)
}

type application struct {
	cfg      config.Config
	logger   *slog.Logger
	storage  *storage
	commands commands.Bus
	queries  queries.Bus
	handlers ginserver.Handlers
	health   obs.HealthHandlers
}

func (a *application) Close(ctx context.Context) error {
	return a.storage.Close(ctx)
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	app := &application{cfg: cfg, logger: logger, storage: store}
	if err := app.wire(ctx); err != nil {
		_ = store.Close(context.Background())
		return nil, err
	}
	return app, nil
}

func (a *application) wire(ctx context.Context) error {
	cfg, logger, store := a.cfg, a.logger, a.storage

	sessions, err := a.sessionStore(ctx)
	if err != nil {
		return err
	}
	documents, err := a.documentStager()
	if err != nil {
		return err
	}
	paymentsPort, err := a.paymentsPort()
	if err != nil {
		return err
	}

	clock := support.Clock(nil)
	encoder := appoutbox.JSONEventEncoder{}
	calculator := domainpricing.NewCalculator(fees.NewEngine(cfg.FeeSchedule().Calculate))
	feeds := support.FeedLoader{Buffers: cfg.BufferPolicy()}

	deps := checkoutapp.Deps{
		UoWFactory: store.factory,
		Sessions:   sessions,
		Feeds:      feeds,
		Calculator: calculator,
		Clock:      clock,
		Logger:     logger,
	}
	lifecycle := bookingapp.Lifecycle{Payments: paymentsPort, Outbox: store.outbox, Encoder: encoder, Clock: clock, Logger: logger}
	host := listingapp.Host{Outbox: store.outbox, Encoder: encoder, Clock: clock, Logger: logger}
	calendar := availabilityapp.CalendarHandler{Outbox: store.outbox, Encoder: encoder, Clock: clock, Logger: logger}

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler(commandBus, checkoutapp.StartCheckoutCommand{}.Key(), &checkoutapp.StartCheckoutHandler{Deps: deps})
	commands.RegisterHandler(commandBus, checkoutapp.UpdateBusinessCommand{}.Key(), &checkoutapp.UpdateBusinessHandler{Deps: deps})
	commands.RegisterHandler(commandBus, checkoutapp.StageDocumentCommand{}.Key(), &checkoutapp.StageDocumentHandler{Deps: deps, Stager: documents})
	commands.RegisterHandler(commandBus, checkoutapp.UpdateSelectionCommand{}.Key(), &checkoutapp.UpdateSelectionHandler{Deps: deps})
	commands.RegisterHandler(commandBus, checkoutapp.UpdateFulfillmentCommand{}.Key(), &checkoutapp.UpdateFulfillmentHandler{Deps: deps})
	commands.RegisterHandler(commandBus, checkoutapp.GoToStepCommand{}.Key(), &checkoutapp.GoToStepHandler{Deps: deps})
	commands.RegisterHandler(commandBus, checkoutapp.SubmitCheckoutCommand{}.Key(), &checkoutapp.SubmitCheckoutHandler{
		Deps:      deps,
		Payments:  paymentsPort,
		Documents: documents,
		Outbox:    store.outbox,
		Encoder:   encoder,
	})
	commands.RegisterHandler(commandBus, listingapp.CreateListingCommand{}.Key(), &listingapp.CreateListingHandler{Host: host})
	commands.RegisterHandler(commandBus, listingapp.UpdateInventoryCommand{}.Key(), &listingapp.UpdateInventoryHandler{Host: host})
	commands.RegisterHandler(commandBus, listingapp.ActivateListingCommand{}.Key(), &listingapp.ActivateListingHandler{Host: host})
	commands.RegisterHandler(commandBus, listingapp.SuspendListingCommand{}.Key(), &listingapp.SuspendListingHandler{Host: host})
	commands.RegisterHandler(commandBus, availabilityapp.BlockDatesCommand{}.Key(), &availabilityapp.BlockDatesHandler{CalendarHandler: calendar})
	commands.RegisterHandler(commandBus, availabilityapp.ReleaseBlockCommand{}.Key(), &availabilityapp.ReleaseBlockHandler{CalendarHandler: calendar})
	commands.RegisterHandler(commandBus, bookingapp.ApproveReservationCommand{}.Key(), &bookingapp.ApproveReservationHandler{Lifecycle: lifecycle})
	commands.RegisterHandler(commandBus, bookingapp.DeclineReservationCommand{}.Key(), &bookingapp.DeclineReservationHandler{Lifecycle: lifecycle})
	commands.RegisterHandler(commandBus, meapp.CancelReservationCommand{}.Key(), &meapp.CancelReservationHandler{Lifecycle: lifecycle})
	commands.RegisterHandler(commandBus, meapp.RetryPaymentCommand{}.Key(), &meapp.RetryPaymentHandler{Lifecycle: lifecycle})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, availabilityapp.GetCalendarQuery{}.Key(), &availabilityapp.GetCalendarHandler{UoWFactory: store.factory, Feeds: feeds, Clock: clock})
	queries.RegisterHandler(queryBus, availabilityapp.GetSlotsQuery{}.Key(), &availabilityapp.GetSlotsHandler{UoWFactory: store.factory, Feeds: feeds, Clock: clock})
	queries.RegisterHandler(queryBus, availabilityapp.GetHoursQuery{}.Key(), &availabilityapp.GetHoursHandler{UoWFactory: store.factory, Feeds: feeds, Clock: clock, Logger: logger})
	queries.RegisterHandler(queryBus, pricingapp.GetQuoteQuery{}.Key(), &pricingapp.GetQuoteHandler{UoWFactory: store.factory, Calculator: calculator})
	queries.RegisterHandler(queryBus, listingapp.GetListingQuery{}.Key(), &listingapp.GetListingHandler{UoWFactory: store.factory})
	queries.RegisterHandler(queryBus, checkoutapp.GetCheckoutQuery{}.Key(), &checkoutapp.GetCheckoutHandler{Deps: deps})
	queries.RegisterHandler(queryBus, meapp.ListReservationsQuery{}.Key(), &meapp.ListReservationsHandler{UoWFactory: store.factory})

	validator := middleware.NewStructValidator()
	a.commands = middleware.ChainCommands(
		commandBus,
		middleware.Logging(logger),
		middleware.Authorization(middleware.ActorAuthorizer),
		middleware.Validation(validator),
		middleware.Idempotency(store.idempotency, nil),
		middleware.Transaction(store.factory, txOptionsFor),
		middleware.OutboxFlush(store.outbox),
	)
	a.queries = middleware.ChainQueries(
		queryBus,
		middleware.QueryLogging(logger),
		middleware.QueryValidation(validator),
	)

	authMW, err := a.authMiddleware()
	if err != nil {
		return err
	}
	a.handlers = ginserver.Handlers{
		Availability:   ginserver.AvailabilityHandler{Queries: a.queries, Logger: logger},
		Listing:        ginserver.ListingHandler{Queries: a.queries, Logger: logger},
		Checkout:       ginserver.CheckoutHandler{Commands: a.commands, Queries: a.queries, Logger: logger},
		HostListing:    ginserver.HostListingHandler{Commands: a.commands, Logger: logger},
		HostBooking:    ginserver.HostBookingHandler{Commands: a.commands, Logger: logger},
		Reservation:    ginserver.ReservationHandler{Commands: a.commands, Queries: a.queries, Logger: logger},
		AuthMiddleware: authMW,
	}
	a.health = obs.HealthHandlers{Checks: store.checks}
	return nil
}

// txOptionsFor opens wizard steps read-only: they only touch the session store.
func txOptionsFor(cmd commands.Command) uow.TxOptions {
	return uow.TxOptions{ReadOnly: strings.HasPrefix(cmd.Key(), "checkout.")}
}

func (a *application) sessionStore(ctx context.Context) (domaincheckout.SessionStore, error) {
	if a.cfg.RedisAddr == "" {
		return memory.NewSessionStore(a.cfg.SessionTTL), nil
	}
	client, err := redis.New(ctx, a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	store := redis.NewSessionStore(client, a.cfg.SessionTTL)
	a.storage.checks["redis"] = store.Ping
	a.storage.closers = append(a.storage.closers, func(context.Context) error { return client.Close() })
	return store, nil
}

func (a *application) documentStager() (policies.DocumentStager, error) {
	if !a.cfg.DocumentsEnabled() {
		a.logger.Warn("S3_ENDPOINT not set, staging documents in memory")
		return memory.NewDocumentStager(), nil
	}
	stager, err := s3.NewStager(a.cfg.S3Endpoint, a.cfg.S3UseSSL, a.cfg.S3AccessKey, a.cfg.S3SecretKey, a.cfg.S3Bucket, a.logger)
	if err != nil {
		return nil, fmt.Errorf("s3: %w", err)
	}
	a.storage.checks["s3"] = stager.Ping
	return stager, nil
}

func (a *application) paymentsPort() (policies.PaymentsPort, error) {
	if a.cfg.StripeSecretKey == "" {
		a.logger.Warn("STRIPE_SECRET_KEY not set, recording payments offline")
		return payments.NewOffline(), nil
	}
	stripe, err := payments.NewStripe(a.cfg.StripeSecretKey)
	if err != nil {
		return nil, fmt.Errorf("stripe: %w", err)
	}
	return stripe, nil
}

func (a *application) authMiddleware() (gin.HandlerFunc, error) {
	if a.cfg.JWTSecret == "" {
		a.logger.Warn("JWT_SECRET not set, every request is anonymous")
		return nil, nil
	}
	tokens, err := security.NewTokenService(a.cfg.JWTSecret)
	if err != nil {
		return nil, err
	}
	return ginserver.AuthMiddleware{Verifier: tokens, Logger: a.logger}.Handle, nil
}
