// Command server runs the BiteLog HTTP API and its background jobs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bitelog/bitelog-api/internal/api/rest"
	"github.com/bitelog/bitelog-api/internal/auth"
	"github.com/bitelog/bitelog-api/internal/cache"
	"github.com/bitelog/bitelog-api/internal/config"
	"github.com/bitelog/bitelog-api/internal/mattermost"
	"github.com/bitelog/bitelog-api/internal/payment"
	"github.com/bitelog/bitelog-api/internal/repository"
	"github.com/bitelog/bitelog-api/internal/service/meals"
	"github.com/bitelog/bitelog-api/internal/service/membership"
	"github.com/bitelog/bitelog-api/internal/service/requests"
	"github.com/bitelog/bitelog-api/internal/service/reviews"
	"github.com/bitelog/bitelog-api/internal/service/scheduler"
	"github.com/bitelog/bitelog-api/internal/service/upcoming"
	"github.com/bitelog/bitelog-api/internal/service/users"
	"github.com/bitelog/bitelog-api/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configPath := flag.String("config", "", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	log := logger.Get()

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Server exited with error")
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	log.Info().Str("environment", cfg.Server.Environment).Msg("Starting BiteLog API")

	if cfg.Database.Postgres.Migrations == "sql" {
		if err := repository.Migrate(&cfg.Database.Postgres, log.Component("migrate")); err != nil {
			return err
		}
	}

	db, err := repository.NewDB(&cfg.Database.Postgres, log.Component("database"))
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.Postgres.Migrations == "auto" {
		if err := db.AutoMigrate(); err != nil {
			return err
		}
	}

	ctx := context.Background()
	redisCache, err := cache.NewRedisCache(ctx, &cfg.Database.Redis)
	if err != nil {
		return err
	}
	defer redisCache.Close()

	userRepo := repository.NewUserRepository(db)
	mealRepo := repository.NewMealRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	upcomingRepo := repository.NewUpcomingRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)

	// A disabled client must not reach the services as a typed nil.
	var notifier upcoming.Notifier
	var digest scheduler.DigestSender
	if cfg.Mattermost.Enabled {
		client := mattermost.NewClient(&cfg.Mattermost, log.Component("mattermost"))
		notifier = client
		digest = client
	}

	ttl := cfg.Catalog.CacheTTLDuration()
	userService := users.NewService(userRepo, log.Component("users"))
	requestService := requests.NewService(requestRepo, userRepo, log.Component("requests"))
	upcomingService := upcoming.NewService(upcomingRepo, notifier, cfg.Catalog.PromotionThreshold, log.Component("upcoming"))
	membershipService := membership.NewService(
		membershipRepo,
		payment.NewStripeGateway(&cfg.Payment),
		redisCache,
		ttl,
		log.Component("membership"),
	)

	if cfg.Membership.SeedFile != "" {
		seeded, err := membershipService.SeedPackages(ctx, cfg.Membership.SeedFile)
		if err != nil {
			return err
		}
		log.Info().Int("packages", seeded).Str("file", cfg.Membership.SeedFile).Msg("Membership packages seeded")
	}

	services := rest.Services{
		Users:      userService,
		Meals:      meals.NewService(mealRepo, reviewRepo, redisCache, cfg.Catalog.PageSize, ttl, log.Component("meals")),
		Reviews:    reviews.NewService(reviewRepo, userRepo, log.Component("reviews")),
		Requests:   requestService,
		Upcoming:   upcomingService,
		Membership: membershipService,
	}
	checks := map[string]rest.HealthChecker{
		"database": db,
		"cache":    redisCache,
	}

	authn := rest.NewAuthenticator(auth.NewJWTVerifier(&cfg.Auth), userService, log.Component("auth"))

	var limiter *rest.RateLimiter
	if cfg.Server.RateLimit.RequestsPerSecond > 0 {
		limiter = rest.NewRateLimiter(cfg.Server.RateLimit.RequestsPerSecond, cfg.Server.RateLimit.Burst)
		stopCleanup := make(chan struct{})
		defer close(stopCleanup)
		go func() {
			ticker := time.NewTicker(10 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					limiter.Cleanup()
				case <-stopCleanup:
					return
				}
			}
		}()
	}

	router := rest.NewRouter(
		rest.NewHandler(services, checks, log.Component("api")),
		authn,
		rest.RouterConfig{
			RequestTimeout: cfg.Server.RequestTimeoutDuration(),
			RateLimiter:    limiter,
		},
		log.Component("http"),
	)

	sched := scheduler.NewService(&cfg.Scheduler, upcomingService, requestService, digest, redisCache, log.Component("scheduler"))
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	servers := []*http.Server{{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}}
	if cfg.Metrics.Prometheus.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Prometheus.Path, promhttp.Handler())
		servers = append(servers, &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.Prometheus.Port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	serveErr := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			log.Info().Str("addr", srv.Addr).Msg("Listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- fmt.Errorf("server on %s failed: %w", srv.Addr, err)
			}
		}(srv)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var result error
	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	case result = <-serveErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Str("addr", srv.Addr).Msg("Failed to shut down server")
		}
	}

	log.Info().Msg("BiteLog API stopped")
	return result
}
