// Command weekly_report ranks every linked member by problems solved and
// mails the results. It runs once and exits; schedule it with cron.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/tcp_snm/tracker/internal/config"
	"github.com/tcp_snm/tracker/internal/database"
	"github.com/tcp_snm/tracker/internal/email"
	"github.com/tcp_snm/tracker/internal/service/judge_service"
	"github.com/tcp_snm/tracker/internal/service/leaderboard_service"
	"github.com/tcp_snm/tracker/internal/service/report_service"
	"github.com/tcp_snm/tracker/internal/service/stats_service"
	"github.com/tcp_snm/tracker/internal/throttle"
)

func newSender(cfg config.Config) email.Sender {
	if cfg.EmailProvider == config.EmailProviderSG {
		return email.NewSendgridSender(cfg.SendgridApiKey)
	}
	return email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SenderEmail, cfg.SenderEmailPassword)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DBUrl)
	if err != nil {
		log.Fatalf("cannot connect to database: %v", err)
	}
	defer pool.Close()
	store := database.NewPgStore(pool)

	judge, err := judge_service.NewClient(cfg.JudgeBaseUrl, cfg.JudgeTimeout, cfg.JudgeCacheTTL)
	if err != nil {
		log.Fatalf("cannot create judge client: %v", err)
	}

	board := &leaderboard_service.LeaderboardService{
		DB:           store,
		Cache:        store,
		Judge:        judge,
		Runner:       throttle.NewRunner(cfg.FetchConcurrency, cfg.FetchBatchDelay),
		Location:     cfg.Location,
		JudgeTimeout: cfg.JudgeTimeout,
		Weights:      stats_service.WeightsFromConfig(cfg),
	}
	board.Start()

	mailer := email.NewMailer(newSender(cfg), cfg.SenderEmail)
	mailer.Start(ctx, cfg.EmailWorkers)

	reports := &report_service.ReportService{
		DB:          store,
		Leaderboard: board,
		Mailer:      mailer,
		Now:         time.Now,
	}
	reports.Start()

	report, err := reports.SendWeeklyReport(ctx)
	mailer.Stop()
	if err != nil {
		log.Fatalf("weekly report failed: %v", err)
	}
	log.Infof("weekly report done, %d ranked, %d excluded", len(report.Ranking), len(report.Excluded))
}
