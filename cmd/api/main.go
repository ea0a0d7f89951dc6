package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Ramsey-B/fern/config"
	addressrepo "github.com/Ramsey-B/fern/internal/repositories/address"
	propertyrepo "github.com/Ramsey-B/fern/internal/repositories/property"
	"github.com/Ramsey-B/fern/pkg/cache"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/logger"
	"github.com/Ramsey-B/fern/pkg/middleware"
	"github.com/Ramsey-B/fern/pkg/redis"
	addressroutes "github.com/Ramsey-B/fern/pkg/routes/address"
	"github.com/Ramsey-B/fern/pkg/routes/health"
	propertyroutes "github.com/Ramsey-B/fern/pkg/routes/property"
	"github.com/Ramsey-B/fern/pkg/similarity"
	"github.com/Ramsey-B/fern/pkg/startup"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/Ramsey-B/fern/pkg/tracing/exporters"
)

const version = "1.0.0"

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, flush, err := logger.New(cfg.LogLevel, cfg.PrettyLogs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		exporter, err := newExporter(ctx, cfg)
		if err != nil {
			log.WithError(err).Error("Failed to create trace exporter")
			os.Exit(1)
		}
		tp := tracing.Init(cfg.AppName, exporter)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				log.WithError(err).Warn("Failed to shut down tracer provider")
			}
		}()
	}

	app := newApplication(cfg, log)

	svc := startup.New(log, cfg.StartupMaxAttempts)
	svc.AddDependency(startup.Func{
		Name:      "database",
		StartFunc: app.startDatabase,
		StopFunc:  app.stopDatabase,
	})
	if cfg.RedisEnabled {
		svc.AddDependency(startup.Func{
			Name:      "redis",
			StartFunc: app.startRedis,
			StopFunc:  app.stopRedis,
		})
	}
	if cfg.KafkaEnabled {
		svc.AddDependency(startup.Func{
			Name:      "kafka",
			StartFunc: app.startKafka,
			StopFunc:  app.stopKafka,
		})
	}
	svc.AddDependency(startup.Func{
		Name:      "api",
		Deps:      app.apiDependsOn(),
		StartFunc: app.startAPI,
		StopFunc:  app.stopAPI,
	})

	if err := svc.Start(ctx); err != nil {
		log.WithError(err).Error("Startup failed")
		os.Exit(1)
	}

	log.Infof("%s listening on port %d", cfg.AppName, cfg.Port)
	<-ctx.Done()
	log.Info("Shutdown signal received")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := svc.Stop(stopCtx); err != nil {
		log.WithError(err).Error("Shutdown finished with errors")
		os.Exit(1)
	}
}

// application holds the wired service dependencies across startup phases.
type application struct {
	cfg    config.Config
	logger ectologger.Logger

	db       database.DB
	redis    *redis.Client
	producer *kafka.Producer
	echo     *echo.Echo
	checker  *health.Checker
}

func newApplication(cfg config.Config, log ectologger.Logger) *application {
	return &application{cfg: cfg, logger: log}
}

func (a *application) startDatabase(ctx context.Context) error {
	db, err := database.Connect(database.Config{
		Driver:          a.cfg.DatabaseDriver,
		Host:            a.cfg.DatabaseHost,
		Port:            a.cfg.DatabasePort,
		UserName:        a.cfg.DatabaseUserName,
		Password:        a.cfg.DatabasePassword,
		Name:            a.cfg.DatabaseName,
		SSLMode:         a.cfg.DatabaseSSLMode,
		MaxOpenConns:    a.cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    a.cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: a.cfg.DatabaseConnMaxLifetime,
	}, a.logger)
	if err != nil {
		return err
	}
	a.db = db

	instance, ok := db.(*database.DatabaseInstance)
	if !ok {
		return fmt.Errorf("unexpected database instance type %T", db)
	}
	driver, err := postgres.WithInstance(instance.DB.DB, &postgres.Config{})
	if err != nil {
		return err
	}

	migrations := database.NewMigrationService(a.logger, &database.MigrationConfig{
		MigrationFolderPath: a.cfg.DatabaseMigrationFolderPath,
		Version:             uint(a.cfg.DatabaseMigrationVersion),
		Force:               a.cfg.DatabaseMigrationForce,
	})
	return migrations.Migrate(a.cfg.DatabaseName, driver)
}

func (a *application) stopDatabase(ctx context.Context) error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *application) startRedis(ctx context.Context) error {
	client, err := redis.NewClient(redis.Config{
		Host:     a.cfg.RedisHost,
		Port:     a.cfg.RedisPort,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
	}, a.logger)
	if err != nil {
		return err
	}
	a.redis = client
	return nil
}

func (a *application) stopRedis(ctx context.Context) error {
	if a.redis == nil {
		return nil
	}
	return a.redis.Close()
}

func (a *application) startKafka(ctx context.Context) error {
	a.producer = kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      a.cfg.KafkaBrokers,
		Topic:        a.cfg.KafkaOutputTopic,
		BatchSize:    a.cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(a.cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: a.cfg.KafkaRequiredAcks,
		Compression:  a.cfg.KafkaCompression,
	}, a.logger)
	return nil
}

func (a *application) stopKafka(ctx context.Context) error {
	if a.producer == nil {
		return nil
	}
	return a.producer.Close()
}

func (a *application) apiDependsOn() []string {
	deps := []string{"database"}
	if a.cfg.RedisEnabled {
		deps = append(deps, "redis")
	}
	if a.cfg.KafkaEnabled {
		deps = append(deps, "kafka")
	}
	return deps
}

func (a *application) startAPI(ctx context.Context) error {
	propertyRepository := propertyrepo.NewRepository(a.db, a.logger)
	addressRepository := addressrepo.NewRepository(a.db, a.logger)
	engine := similarity.NewEngine(a.logger, propertyRepository, similarity.Config{
		Weights:       similarity.DefaultWeights(),
		MaxCandidates: a.cfg.SimilarityMaxCandidates,
	})

	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*propertyrepo.Repository](container, propertyRepository); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*addressrepo.Repository](container, addressRepository); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*similarity.Engine](container, engine); err != nil {
		return err
	}
	if a.redis != nil {
		if err := ectoinject.RegisterInstance[*cache.Cache](container, cache.New(a.redis, a.logger)); err != nil {
			return err
		}
	}
	if a.producer != nil {
		if err := ectoinject.RegisterInstance[*events.Emitter](container, events.NewEmitter(a.producer, a.logger)); err != nil {
			return err
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = time.Duration(a.cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(a.cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(a.cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.ReadHeaderTimeout = time.Duration(a.cfg.ReadHeaderTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = a.cfg.MaxHeaderBytes

	e.HTTPErrorHandler = middleware.Error(a.logger)
	e.Use(otelecho.Middleware(a.cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(a.logger))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: a.cfg.AllowOrigins,
		AllowMethods: a.cfg.AllowMethods,
	}))
	e.Use(echomiddleware.Recover())

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	a.checker = health.NewChecker(version)
	a.checker.AddCheck("postgres", a.db)
	if a.redis != nil {
		a.checker.AddCheck("redis", health.PingerFunc(a.redis.Ping))
	}
	a.checker.RegisterRoutes(e)

	propertyroutes.Register(e.Group("/api/v1/properties"))
	addressroutes.Register(e.Group("/api/v1/addresses"))

	a.echo = e

	go func() {
		if err := e.Start(fmt.Sprintf(":%d", a.cfg.Port)); err != nil && err != http.ErrServerClosed {
			a.logger.WithError(err).Error("HTTP server stopped unexpectedly")
		}
	}()
	a.checker.SetReady(true)
	return nil
}

func (a *application) stopAPI(ctx context.Context) error {
	if a.echo == nil {
		return nil
	}
	if a.checker != nil {
		a.checker.SetReady(false)
	}
	return a.echo.Shutdown(ctx)
}

func newExporter(ctx context.Context, cfg config.Config) (sdktrace.SpanExporter, error) {
	switch cfg.TracingExporter {
	case "otlp-grpc":
		return exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
			Endpoint: cfg.OTLPEndpoint,
			Protocol: "grpc",
			Insecure: true,
			Timeout:  10 * time.Second,
		})
	case "otlp-http":
		return exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
			Endpoint: cfg.OTLPEndpoint,
			Protocol: "http",
			Insecure: true,
			Timeout:  10 * time.Second,
		})
	default:
		return exporters.NewConsoleExporter()
	}
}
