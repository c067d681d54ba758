package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"motionportal/internal/auth"
	"motionportal/internal/config"
	"motionportal/internal/handler"
	"motionportal/internal/logger"
	"motionportal/internal/notify"
	"motionportal/internal/repository"
	"motionportal/internal/service"
	"motionportal/internal/service/s3"
	"motionportal/internal/thumbnail"
)

const healthCheckInterval = 30 * time.Second

func connectWithRetry(dsn string, maxAttempts int, delay time.Duration, log *logger.Logger) (*sqlx.DB, error) {
	var db *sqlx.DB
	var err error
	for i := 0; i < maxAttempts; i++ {
		db, err = sqlx.Connect("postgres", dsn)
		if err == nil {
			return db, nil
		}

		log.Warn("failed to connect to database", "attempt", i+1, "maxAttempts", maxAttempts, "error", err)
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", maxAttempts, err)
}

func runMigrations(cfg *config.Config, log *logger.Logger) error {
	var m *migrate.Migrate
	var err error

	for i := 0; i < 5; i++ {
		m, err = migrate.New("file://migrations", cfg.Database.GetURL())
		if err == nil {
			break
		}
		log.Warn("failed to create migrate instance", "attempt", i+1, "error", err)
		time.Sleep(time.Second * 5)
	}

	if err != nil {
		return fmt.Errorf("failed to create migrate instance after retries: %w", err)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		log.Warn("found dirty database state, forcing version", "version", version)
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// watchDatabase переключает статус gRPC health вслед за доступностью базы
func watchDatabase(ctx context.Context, db *sqlx.DB, status *health.Server, log *logger.Logger) {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := db.PingContext(pingCtx)
			cancel()
			if err != nil {
				log.Warn("database ping failed", "error", err)
				status.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
				continue
			}
			status.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		case <-ctx.Done():
			return
		}
	}
}

func main() {
	// Загружаем конфигурации
	appConfig, err := config.NewConfig(".app.env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(appConfig.Log.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := connectWithRetry(appConfig.Database.GetDSN(), 5, time.Second*5, log)
	if err != nil {
		log.Fatal("failed to connect to database after retries", "error", err)
	}
	defer db.Close()

	if err := runMigrations(appConfig, log); err != nil {
		log.Fatal("failed to run migrations", "error", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		log.Fatal("failed to ping database", "error", err)
	}

	// Инициализация S3 клиента
	s3Config, err := s3.NewConfig(".s3.env")
	if err != nil {
		log.Fatal("failed to load S3 config", "error", err)
	}

	s3Client, err := s3.NewClient(ctx, s3Config, log)
	if err != nil {
		log.Fatal("failed to create S3 client", "error", err)
	}

	authConfig, err := auth.NewConfig(".auth.env")
	if err != nil {
		log.Fatal("failed to load auth config", "error", err)
	}
	tokens, err := auth.NewTokenManager(authConfig)
	if err != nil {
		log.Fatal("failed to create token manager", "error", err)
	}

	notifier, err := notify.New(ctx, appConfig.Redis, log)
	if err != nil {
		log.Fatal("failed to connect to redis", "error", err)
	}
	defer notifier.Close()

	thumbs, err := thumbnail.NewGenerator(os.TempDir(), log)
	if err != nil {
		log.Fatal("failed to create thumbnail generator", "error", err)
	}

	// Инициализация репозиториев
	tx := repository.NewTransactor(db)
	deliverableRepo := repository.NewDeliverableRepository(db)
	versionRepo := repository.NewVersionRepository(db)
	annotationRepo := repository.NewAnnotationRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	approvalRepo := repository.NewApprovalRepository(db)

	// Инициализация сервисов
	deliverableService := service.NewDeliverableService(deliverableRepo)
	versionService := service.NewVersionService(tx, deliverableRepo, versionRepo, notifier, log)
	annotationService := service.NewAnnotationService(tx, deliverableRepo, annotationRepo, notifier, log)
	commentService := service.NewCommentService(tx, deliverableRepo, commentRepo, notifier, log)
	approvalService := service.NewApprovalService(tx, deliverableRepo, versionRepo, approvalRepo, notifier, log)
	deliveryService := service.NewDeliveryService(deliverableRepo, versionService, s3Client, thumbs, log)
	streamService, err := service.NewStreamService(versionService, s3Client, appConfig.Server.StreamDir, nil, log)
	if err != nil {
		log.Fatal("failed to create stream service", "error", err)
	}

	router := handler.NewRouter(handler.Handlers{
		Deliverables: handler.NewDeliverableHandler(deliverableService, log),
		Versions:     handler.NewVersionHandler(versionService, deliveryService, streamService, log),
		Annotations:  handler.NewAnnotationHandler(annotationService, log),
		Comments:     handler.NewCommentHandler(commentService, log),
		Approvals:    handler.NewApprovalHandler(approvalService, log),
		Health:       handler.NewHealthHandler(db, log),
	}, tokens, appConfig.Server.AllowedOrigins, log)

	// gRPC сервер только для служебных проверок
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)
	go watchDatabase(ctx, db, healthServer, log)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", appConfig.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%s", appConfig.Server.GRPCPort))
		if err != nil {
			log.Fatal("failed to listen for gRPC", "error", err)
		}
		log.Info("starting gRPC server", "port", appConfig.Server.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal("failed to serve gRPC", "error", err)
		}
	}()

	go func() {
		log.Info("starting HTTP server", "port", appConfig.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to start HTTP server", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down servers")
	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced to shutdown", "error", err)
	}
	grpcServer.GracefulStop()

	log.Info("server exited properly")
}
