package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	KeyDBUrl                   = "DB_URL"
	KeyPort                    = "PORT"
	KeyApiUrl                  = "API_URL"
	KeyJWTSecret               = "JWT_SECRET"
	KeyLogLevel                = "LOG_LEVEL"
	KeyTimezone                = "TIMEZONE"
	KeyJudgeBaseUrl            = "JUDGE_BASE_URL"
	KeyJudgeTimeout            = "JUDGE_TIMEOUT"
	KeyJudgeCacheTTL           = "JUDGE_CACHE_TTL"
	KeyJudgeSubmissionLimit    = "JUDGE_SUBMISSION_LIMIT"
	KeyFetchConcurrency        = "FETCH_CONCURRENCY"
	KeyFetchBatchDelay         = "FETCH_BATCH_DELAY"
	KeyLeaderboardCacheTTL     = "LEADERBOARD_CACHE_TTL"
	KeyLeaderboardCacheBackend = "LEADERBOARD_CACHE_BACKEND"
	KeyRefreshCooldown         = "REFRESH_COOLDOWN"
	KeyVerifyDebounce          = "VERIFY_DEBOUNCE"
	KeyRedisAddr               = "REDIS_ADDR"
	KeyRedisPassword           = "REDIS_PASSWORD"
	KeyEmailProvider           = "EMAIL_PROVIDER"
	KeyEmailWorkers            = "EMAIL_WORKERS"
	KeySenderEmail             = "SENDER_EMAIL"
	KeySenderEmailPassword     = "SENDER_EMAIL_PASSWORD"
	KeySMTPHost                = "SMTP_HOST"
	KeySMTPPort                = "SMTP_PORT"
	KeySendgridApiKey          = "SENDGRID_API_KEY"
	KeyScoreWeightEasy         = "SCORE_WEIGHT_EASY"
	KeyScoreWeightMedium       = "SCORE_WEIGHT_MEDIUM"
	KeyScoreWeightHard         = "SCORE_WEIGHT_HARD"
	KeyScoreWeightStreak       = "SCORE_WEIGHT_STREAK"

	CacheBackendPostgres = "postgres"
	CacheBackendRedis    = "redis"
	EmailProviderSMTP    = "smtp"
	EmailProviderSG      = "sendgrid"
)

type Config struct {
	DBUrl     string
	Port      string
	ApiUrl    string
	JWTSecret string
	LogLevel  log.Level
	Location  *time.Location

	JudgeBaseUrl         string
	JudgeTimeout         time.Duration
	JudgeCacheTTL        time.Duration
	JudgeSubmissionLimit int

	FetchConcurrency int
	FetchBatchDelay  time.Duration

	LeaderboardCacheTTL     time.Duration
	LeaderboardCacheBackend string
	RefreshCooldown         time.Duration
	VerifyDebounce          time.Duration

	RedisAddr     string
	RedisPassword string

	EmailProvider       string
	EmailWorkers        int
	SenderEmail         string
	SenderEmailPassword string
	SMTPHost            string
	SMTPPort            int
	SendgridApiKey      string

	ScoreWeightEasy   int
	ScoreWeightMedium int
	ScoreWeightHard   int
	ScoreWeightStreak int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyPort, "8080")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyTimezone, "Local")
	v.SetDefault(KeyJudgeBaseUrl, "https://alfa-leetcode-api.onrender.com")
	v.SetDefault(KeyJudgeTimeout, 10*time.Second)
	v.SetDefault(KeyJudgeCacheTTL, 2*time.Minute)
	v.SetDefault(KeyJudgeSubmissionLimit, 20)
	v.SetDefault(KeyFetchConcurrency, 3)
	v.SetDefault(KeyFetchBatchDelay, 1500*time.Millisecond)
	v.SetDefault(KeyLeaderboardCacheTTL, time.Hour)
	v.SetDefault(KeyLeaderboardCacheBackend, CacheBackendPostgres)
	v.SetDefault(KeyRefreshCooldown, 30*time.Minute)
	v.SetDefault(KeyVerifyDebounce, 5*time.Second)
	v.SetDefault(KeyRedisAddr, "localhost:6379")
	v.SetDefault(KeyEmailProvider, EmailProviderSMTP)
	v.SetDefault(KeyEmailWorkers, 1)
	v.SetDefault(KeySMTPHost, "smtp.gmail.com")
	v.SetDefault(KeySMTPPort, 587)
	v.SetDefault(KeyScoreWeightEasy, 25)
	v.SetDefault(KeyScoreWeightMedium, 50)
	v.SetDefault(KeyScoreWeightHard, 100)
	v.SetDefault(KeyScoreWeightStreak, 10)
}

// Load reads .env (if present) into the environment and resolves every key
// through viper, falling back to the defaults above.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debugf("no .env file loaded: %v", err)
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	level, err := log.ParseLevel(v.GetString(KeyLogLevel))
	if err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", KeyLogLevel, err)
	}

	loc, err := time.LoadLocation(v.GetString(KeyTimezone))
	if err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", KeyTimezone, err)
	}

	c := Config{
		DBUrl:                   v.GetString(KeyDBUrl),
		Port:                    v.GetString(KeyPort),
		ApiUrl:                  v.GetString(KeyApiUrl),
		JWTSecret:               v.GetString(KeyJWTSecret),
		LogLevel:                level,
		Location:                loc,
		JudgeBaseUrl:            strings.TrimRight(v.GetString(KeyJudgeBaseUrl), "/"),
		JudgeTimeout:            v.GetDuration(KeyJudgeTimeout),
		JudgeCacheTTL:           v.GetDuration(KeyJudgeCacheTTL),
		JudgeSubmissionLimit:    v.GetInt(KeyJudgeSubmissionLimit),
		FetchConcurrency:        v.GetInt(KeyFetchConcurrency),
		FetchBatchDelay:         v.GetDuration(KeyFetchBatchDelay),
		LeaderboardCacheTTL:     v.GetDuration(KeyLeaderboardCacheTTL),
		LeaderboardCacheBackend: strings.ToLower(v.GetString(KeyLeaderboardCacheBackend)),
		RefreshCooldown:         v.GetDuration(KeyRefreshCooldown),
		VerifyDebounce:          v.GetDuration(KeyVerifyDebounce),
		RedisAddr:               v.GetString(KeyRedisAddr),
		RedisPassword:           v.GetString(KeyRedisPassword),
		EmailProvider:           strings.ToLower(v.GetString(KeyEmailProvider)),
		EmailWorkers:            v.GetInt(KeyEmailWorkers),
		SenderEmail:             v.GetString(KeySenderEmail),
		SenderEmailPassword:     v.GetString(KeySenderEmailPassword),
		SMTPHost:                v.GetString(KeySMTPHost),
		SMTPPort:                v.GetInt(KeySMTPPort),
		SendgridApiKey:          v.GetString(KeySendgridApiKey),
		ScoreWeightEasy:         v.GetInt(KeyScoreWeightEasy),
		ScoreWeightMedium:       v.GetInt(KeyScoreWeightMedium),
		ScoreWeightHard:         v.GetInt(KeyScoreWeightHard),
		ScoreWeightStreak:       v.GetInt(KeyScoreWeightStreak),
	}

	if c.FetchConcurrency < 1 {
		return Config{}, fmt.Errorf("%s must be at least 1, got %d", KeyFetchConcurrency, c.FetchConcurrency)
	}
	switch c.LeaderboardCacheBackend {
	case CacheBackendPostgres, CacheBackendRedis:
	default:
		return Config{}, fmt.Errorf("unknown %s %q", KeyLeaderboardCacheBackend, c.LeaderboardCacheBackend)
	}
	switch c.EmailProvider {
	case EmailProviderSMTP, EmailProviderSG:
	default:
		return Config{}, fmt.Errorf("unknown %s %q", KeyEmailProvider, c.EmailProvider)
	}

	return c, nil
}
