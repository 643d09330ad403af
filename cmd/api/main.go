package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/mission-service/internal/api/http"
	"github.com/spec-kit/mission-service/internal/api/http/handlers"
	"github.com/spec-kit/mission-service/internal/audit"
	"github.com/spec-kit/mission-service/internal/auth"
	"github.com/spec-kit/mission-service/internal/config"
	"github.com/spec-kit/mission-service/internal/consistency"
	"github.com/spec-kit/mission-service/internal/domain"
	"github.com/spec-kit/mission-service/internal/events"
	"github.com/spec-kit/mission-service/internal/observability"
	"github.com/spec-kit/mission-service/internal/persistence"
	"github.com/spec-kit/mission-service/internal/repository"
	"github.com/spec-kit/mission-service/internal/repository/memory"
	"github.com/spec-kit/mission-service/internal/service"
	"github.com/spec-kit/mission-service/internal/worker"
)

type stores struct {
	users       repository.UserRepository
	departments repository.DepartmentRepository
	audit       repository.AuditRepository
	tx          repository.TxManager
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.OpenPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Configured() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.OpenRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	st := openStores(pg, logger)

	var mirrors []audit.Sink
	if cfg.Audit.RedisStream != "" && redis.Configured() {
		mirrors = append(mirrors, audit.NewRedisStreamSink(redis.Client, cfg.Audit.RedisStream, cfg.Audit.RedisStreamMax))
	}
	recorder := audit.NewRecorder(audit.NewMultiSink(logger, st.audit, mirrors...))

	dispatcher := events.NewInMemoryDispatcher()
	audit.NewSubscriber(recorder, logger).RegisterHandlers(dispatcher)

	rules := consistency.NewEngine(st.users, st.departments)
	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo: st.users,
		Hasher:   hasher,
		Recorder: recorder,
		Logger:   logger,
	})
	userService := service.NewUserService(service.UserDependencies{
		UserRepo:       st.users,
		DepartmentRepo: st.departments,
		Rules:          rules,
		TxManager:      st.tx,
		Hasher:         hasher,
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	departmentService := service.NewDepartmentService(service.OrgDependencies{
		DepartmentRepo: st.departments,
		Rules:          rules,
		TxManager:      st.tx,
		Dispatcher:     dispatcher,
		Logger:         logger,
	})

	if err := seedAdmin(ctx, cfg.Seed, st.users, hasher, logger); err != nil {
		logger.Fatal("failed to seed administrator", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, httptransport.MiddlewareConfig{
		Timeout:          cfg.App.RequestTimeout(),
		CORSAllowOrigins: cfg.App.CORSAllowOrigins,
	})

	dependencies := map[string]handlers.Pinger{}
	probed := map[string]worker.Pinger{}
	if pg.Configured() {
		dependencies["postgres"] = pg
		probed["postgres"] = pg
	}
	if redis.Configured() {
		dependencies["redis"] = redis
		probed["redis"] = redis
	}

	probe := worker.NewProbeWorker(cfg.App.ProbeSchedule, probed, metrics, logger)
	if err := probe.Start(); err != nil {
		logger.Fatal("failed to start probe worker", zap.Error(err))
	}
	defer probe.Stop()

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:      handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, metrics, dependencies),
		Auth:        handlers.NewAuthHandler(authService),
		Users:       handlers.NewUsersHandler(userService),
		Departments: handlers.NewDepartmentsHandler(departmentService),
		Gate:        auth.NewGate(authService.TokenCodec()),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func openStores(pg *persistence.Postgres, logger *zap.Logger) stores {
	if !pg.Configured() {
		logger.Warn("using in-memory store; data is lost on restart")
		store := memory.NewStore()
		return stores{users: store.Users(), departments: store.Departments(), audit: store.Audit(), tx: store}
	}
	pool := pg.PoolHandle()
	return stores{
		users:       repository.NewUserRepository(pool),
		departments: repository.NewDepartmentRepository(pool),
		audit:       repository.NewAuditRepository(pool),
		tx:          repository.NewTxManager(pool),
	}
}

func seedAdmin(ctx context.Context, cfg config.SeedConfig, users repository.UserRepository, hasher auth.PasswordHasher, logger *zap.Logger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}
	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	_, err := users.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	digest, err := hasher.Hash(cfg.AdminPassword)
	if err != nil {
		return err
	}
	admin := &domain.User{
		EmployeeID:         "ADMIN-0001",
		Email:              email,
		PasswordDigest:     digest,
		FirstName:          "System",
		LastName:           "Administrator",
		Role:               domain.RoleAdmin,
		AccountStatus:      domain.AccountStatusActive,
		AvailabilityStatus: domain.AvailabilityUnavailable,
	}
	if err := users.Create(ctx, admin); err != nil {
		return err
	}
	logger.Info("seeded administrator", zap.String("user_id", admin.ID))
	return nil
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
