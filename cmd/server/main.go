// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal packages.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/authelia/authelia-sub004/internal/audit"
	"github.com/authelia/authelia-sub004/internal/authentication"
	"github.com/authelia/authelia-sub004/internal/authorization"
	"github.com/authelia/authelia-sub004/internal/elevation"
	"github.com/authelia/authelia-sub004/internal/platform/config"
	"github.com/authelia/authelia-sub004/internal/platform/health"
	"github.com/authelia/authelia-sub004/internal/platform/kafka"
	"github.com/authelia/authelia-sub004/internal/platform/kafka/producer"
	"github.com/authelia/authelia-sub004/internal/platform/logger"
	"github.com/authelia/authelia-sub004/internal/platform/redis"
	"github.com/authelia/authelia-sub004/internal/platform/tracer"
	"github.com/authelia/authelia-sub004/internal/preferences"
	"github.com/authelia/authelia-sub004/internal/session"
	httptransport "github.com/authelia/authelia-sub004/internal/transport/http"
	"github.com/authelia/authelia-sub004/internal/upstream"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing second-factor service",
		"addr", cfg.Addr,
		"metrics_addr", cfg.MetricsAddr,
		"backend_url", cfg.BackendURL,
	)

	rules, defaultPolicy, err := authorization.LoadFile(cfg.RulesPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Error("could not load access control rules", "path", cfg.RulesPath, "error", err)
			os.Exit(1)
		}
		log.Warn("no access control rules file, using default policy only", "path", cfg.RulesPath)
		defaultPolicy, err = authorization.ParsePolicy(cfg.DefaultPolicy)
		if err != nil {
			log.Error("invalid default policy", "error", err)
			os.Exit(1)
		}
	}
	evaluator := authorization.NewEvaluator(rules, defaultPolicy, log)

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("could not connect to redis", "error", err)
		os.Exit(1)
	}

	var prefs preferences.Store
	if redisClient != nil {
		prefs = preferences.NewRedisStore(redisClient)
		log.Info("using redis preference store")
	} else {
		prefs = preferences.NewInMemoryStore()
		log.Info("using in-memory preference store")
	}

	client := upstream.NewClient(cfg.BackendURL, 10*time.Second)

	var elevationBackend elevation.Backend = client
	if cfg.MemoryElevation {
		elevationBackend = elevation.NewMemoryBackend(cfg.ElevationTTL,
			elevation.WithDelivery(func(code string) {
				log.Info("step-up code issued (dev delivery)", "code", code)
			}),
		)
	}

	backends := httptransport.Backends{
		WebAuthn:  client,
		Push:      client,
		TOTP:      client,
		Elevation: elevationBackend,
	}

	sessions := authentication.NewProvider(log)
	tokens := session.NewService(cfg.JWTSigningKey, "authelia", time.Hour)

	auditOpts := []audit.PublisherOption{
		audit.WithAsyncBuffer(256),
		audit.WithPublisherLogger(log),
	}

	var auditProducer *producer.Producer
	if cfg.KafkaBrokers != "" {
		auditProducer, err = producer.New(producer.Config{
			Brokers:         cfg.KafkaBrokers,
			Acks:            "all",
			Retries:         3,
			DeliveryTimeout: 30 * time.Second,
		}, log)
		if err != nil {
			log.Error("could not create kafka producer", "error", err)
			os.Exit(1)
		}
		auditOpts = append(auditOpts, audit.WithStream(audit.NewKafkaStream(auditProducer, cfg.KafkaTopic)))
		log.Info("streaming audit events to kafka", "topic", cfg.KafkaTopic)
	}

	publisher := audit.NewPublisher(audit.NewInMemoryStore(), auditOpts...)

	checker := health.New(cfg.Environment)
	if cfg.KafkaBrokers != "" {
		kafkaCheck := kafka.NewHealthChecker(cfg.KafkaBrokers)
		checker.RegisterCheck("kafka", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return kafkaCheck.Check(ctx)
		})
	}
	if redisClient != nil {
		checker.RegisterCheck("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisClient.Health(ctx)
		})
	}

	handler := httptransport.NewHandler(evaluator, sessions, backends, prefs, log,
		httptransport.WithPasscodeLength(cfg.PasscodeLen),
		httptransport.WithAuditPublisher(publisher),
		httptransport.WithHealth(checker),
		httptransport.WithTracer(tracer.NewOTel()),
	)
	router := httptransport.NewRouter(handler, tokens, log)

	appServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := appServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		log.Info("starting metrics server", "addr", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if redisClient != nil {
		group.Go(func() error {
			ticker := time.NewTicker(15 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					redisClient.RecordPoolStats()
				case <-ctx.Done():
					return nil
				}
			}
		})
	}

	group.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := appServer.Shutdown(shutdownCtx)
		if merr := metricsServer.Shutdown(shutdownCtx); err == nil {
			err = merr
		}
		if redisClient != nil {
			_ = redisClient.Close()
		}
		publisher.Close()
		if auditProducer != nil {
			_ = auditProducer.Close()
		}
		return err
	})

	if err := group.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
