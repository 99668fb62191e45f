package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/tcp_snm/tracker/internal/api"
	"github.com/tcp_snm/tracker/internal/config"
	"github.com/tcp_snm/tracker/internal/database"
	"github.com/tcp_snm/tracker/internal/service"
	"github.com/tcp_snm/tracker/internal/service/contest_service"
	"github.com/tcp_snm/tracker/internal/service/judge_service"
	"github.com/tcp_snm/tracker/internal/service/leaderboard_service"
	"github.com/tcp_snm/tracker/internal/service/stats_service"
	"github.com/tcp_snm/tracker/internal/service/user_service"
	"github.com/tcp_snm/tracker/internal/throttle"
	"github.com/tcp_snm/tracker/middleware"
)

var (
	apiConfig *api.Api
)

func initLogger(cfg config.Config) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(cfg.LogLevel)
}

func initDatabase(cfg config.Config) *database.PgStore {
	if cfg.DBUrl == "" {
		panic("dbURL not found")
	}

	// create a connection pool to the database
	pool, err := pgxpool.New(context.Background(), cfg.DBUrl)
	if err != nil {
		panic(err)
	}

	store := database.NewPgStore(pool)
	if err = store.Migrate(context.Background()); err != nil {
		panic(err)
	}
	return store
}

func initLeaderboardCache(cfg config.Config, store *database.PgStore) database.LeaderboardCache {
	if cfg.LeaderboardCacheBackend != config.CacheBackendRedis {
		log.Info("leaderboard cache is kept in postgres")
		return store
	}
	client, err := database.ConnectRedis(context.Background(), cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		panic(err)
	}
	// redis keys outlive the staleness window so stale entries are still found
	return database.NewRedisLeaderboardCache(client, 2*cfg.LeaderboardCacheTTL)
}

func initJudge(cfg config.Config) *judge_service.Client {
	client, err := judge_service.NewClient(cfg.JudgeBaseUrl, cfg.JudgeTimeout, cfg.JudgeCacheTTL)
	if err != nil {
		panic(err)
	}
	return client
}

func initUserService(cfg config.Config, db database.CohortStore, judge judge_service.Oracle) *user_service.UserService {
	log.Info("initializing user service")
	us := user_service.UserService{
		DB:              db,
		Judge:           judge,
		Now:             time.Now,
		Location:        cfg.Location,
		Weights:         stats_service.WeightsFromConfig(cfg),
		SubmissionLimit: cfg.JudgeSubmissionLimit,
	}
	us.Start()
	return &us
}

func initContestService(
	cfg config.Config,
	db database.CohortStore,
	judge judge_service.Oracle,
	us *user_service.UserService,
) *contest_service.ContestService {
	log.Info("initializing contest service")
	cs := contest_service.ContestService{
		DB:                db,
		Judge:             judge,
		UserServiceConfig: us,
		Now:               time.Now,
		JudgeTimeout:      cfg.JudgeTimeout,
		SubmissionLimit:   cfg.JudgeSubmissionLimit,
	}
	cs.Start()
	return &cs
}

func initLeaderboardService(
	cfg config.Config,
	db database.CohortStore,
	cache database.LeaderboardCache,
	judge judge_service.Oracle,
) *leaderboard_service.LeaderboardService {
	log.Info("initializing leaderboard service")
	ls := leaderboard_service.LeaderboardService{
		DB:           db,
		Cache:        cache,
		Judge:        judge,
		Runner:       throttle.NewRunner(cfg.FetchConcurrency, cfg.FetchBatchDelay),
		Now:          time.Now,
		Location:     cfg.Location,
		Weights:      stats_service.WeightsFromConfig(cfg),
		CacheTTL:     cfg.LeaderboardCacheTTL,
		Cooldown:     cfg.RefreshCooldown,
		JudgeTimeout: cfg.JudgeTimeout,
	}
	ls.Start()
	return &ls
}

func initApi(cfg config.Config) *api.Api {
	log.Info("initializing api config")
	store := initDatabase(cfg)
	cache := initLeaderboardCache(cfg, store)
	judge := initJudge(cfg)

	us := initUserService(cfg, store, judge)
	cs := initContestService(cfg, store, judge, us)
	ls := initLeaderboardService(cfg, store, cache, judge)
	return &api.Api{
		UserServiceConfig:        us,
		ContestServiceConfig:     cs,
		LeaderboardServiceConfig: ls,
		VerifyDebounce:           api.NewVerifyDebouncer(cfg.VerifyDebounce),
	}
}

func setup() config.Config {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	initLogger(cfg)
	if cfg.JWTSecret == "" {
		panic("jwt secret not found")
	}
	middleware.SetJWTSecret(cfg.JWTSecret)
	service.InitializeServices()
	apiConfig = initApi(cfg)
	return cfg
}

func setCors(router *chi.Mux) {
	router.Use(
		cors.Handler(
			cors.Options{
				AllowedOrigins:   []string{"https://*", "http://*"},
				AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
				AllowedHeaders:   []string{"*"},
				AllowCredentials: true,
				ExposedHeaders:   []string{"Link", "Retry-After"},
				MaxAge:           300,
			},
		),
	)
	log.Info("cors options has been set")
}

func main() {
	cfg := setup()

	// initialize a new router
	router := chi.NewRouter()
	setCors(router)

	// mount v1 router
	v1router := NewV1Router()
	router.Mount("/v1", v1router)
	log.Info("v1 router has been mounted")

	apiAddress := cfg.ApiUrl + ":" + cfg.Port

	log.Infof("starting server on %s", apiAddress)
	srv := http.Server{
		Handler:           router,
		Addr:              apiAddress,
		ReadHeaderTimeout: 10 * time.Second,
	}
	err := srv.ListenAndServe()
	if err != nil {
		log.Fatalf("Server cannot be started. Error: %v", err)
		return
	}
}
