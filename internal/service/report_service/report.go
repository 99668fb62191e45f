package report_service

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tcp_snm/tracker/internal/database"
	"github.com/tcp_snm/tracker/internal/email"
	"github.com/tcp_snm/tracker/internal/service"
	"github.com/tcp_snm/tracker/internal/service/leaderboard_service"
	"github.com/tcp_snm/tracker/internal/service/stats_service"
)

type Mailer interface {
	NewMail(
		ctx context.Context,
		subject string,
		body string,
		bodyType email.EmailBodyType,
		purpose email.EmailPurpose,
		to ...string,
	) error
}

type ReportService struct {
	DB          database.CohortStore
	Leaderboard *leaderboard_service.LeaderboardService
	Mailer      Mailer
	Now         service.Clock
	logger      *logrus.Entry
}

type WeeklyReport struct {
	GeneratedAt time.Time                                    `json:"generated_at"`
	Ranking     []stats_service.Ranked[database.MemberStats] `json:"ranking"`
	Excluded    []uuid.UUID                                  `json:"excluded,omitempty"`
}

func (r *ReportService) Start() {
	if r.DB == nil {
		panic("report service expects non-nil database")
	}
	if r.Leaderboard == nil {
		panic("report service expects non-nil leaderboard service")
	}
	if r.Mailer == nil {
		panic("report service expects non-nil mailer")
	}
	if r.Now == nil {
		r.Now = time.Now
	}
	r.logger = logrus.WithField("from", "report service")
}

// BuildWeeklyReport ranks every linked member by total problems solved.
// Members the judge failed for are listed in Excluded.
func (r *ReportService) BuildWeeklyReport(ctx context.Context) (WeeklyReport, error) {
	members, err := r.DB.ListLinkedMembers(ctx)
	if err != nil {
		return WeeklyReport{}, err
	}

	stats, excluded := r.Leaderboard.CollectMemberStats(ctx, members)
	return WeeklyReport{
		GeneratedAt: r.Now(),
		Ranking:     stats_service.RankBy(stats, func(s database.MemberStats) int { return s.TotalSolved }),
		Excluded:    excluded,
	}, nil
}

// SendWeeklyReport mails every ranked member their position and mails
// supervisors and admins the full table. Mail failures are logged and do not
// stop the remaining mails.
func (r *ReportService) SendWeeklyReport(ctx context.Context) (WeeklyReport, error) {
	report, err := r.BuildWeeklyReport(ctx)
	if err != nil {
		return WeeklyReport{}, err
	}

	members, err := r.DB.ListLinkedMembers(ctx)
	if err != nil {
		return WeeklyReport{}, err
	}
	emails := make(map[uuid.UUID]string, len(members))
	for _, m := range members {
		emails[m.ID] = m.Email
	}

	subject := fmt.Sprintf("Weekly practice report, %s", report.GeneratedAt.Format("2 Jan 2006"))
	sent := 0
	for _, ranked := range report.Ranking {
		addr := emails[ranked.Entry.MemberID]
		if addr == "" {
			continue
		}
		body := MemberReportBody(ranked, len(report.Ranking))
		if err := r.Mailer.NewMail(ctx, subject, body, email.BodyPlain, email.PurposeWeeklyReport, addr); err != nil {
			r.logger.Errorf("cannot queue weekly report for %v: %v", ranked.Entry.MemberID, err)
			continue
		}
		sent++
	}

	supervisors := make([]string, 0)
	for _, role := range []string{database.RoleSupervisor, database.RoleAdmin} {
		staff, err := r.DB.ListMembersByRole(ctx, role)
		if err != nil {
			return report, err
		}
		for _, s := range staff {
			if s.Email != "" {
				supervisors = append(supervisors, s.Email)
			}
		}
	}
	if len(supervisors) > 0 {
		err = r.Mailer.NewMail(
			ctx,
			subject,
			SupervisorReportBody(report),
			email.BodyPlain,
			email.PurposeSupervisorReport,
			supervisors...,
		)
		if err != nil {
			r.logger.Errorf("cannot queue supervisor report: %v", err)
		}
	}

	r.logger.Infof("queued weekly report for %d members and %d supervisors", sent, len(supervisors))
	return report, nil
}

func MemberReportBody(ranked stats_service.Ranked[database.MemberStats], total int) string {
	s := ranked.Entry
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", s.DisplayName)
	fmt.Fprintf(&b, "You are ranked #%d of %d this week with %d problems solved ", ranked.Rank, total, s.TotalSolved)
	fmt.Fprintf(&b, "(%d easy, %d medium, %d hard).\n", s.EasySolved, s.MediumSolved, s.HardSolved)
	fmt.Fprintf(&b, "Current streak: %d day(s), longest: %d day(s).\n", s.CurrentStreak, s.LongestStreak)
	b.WriteString("\nKeep practicing!\n")
	return b.String()
}

func SupervisorReportBody(report WeeklyReport) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "Rank\tName\tJudge\tSolved\tEasy\tMedium\tHard\tStreak")
	for _, r := range report.Ranking {
		s := r.Entry
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			r.Rank, s.DisplayName, s.JudgeUsername, s.TotalSolved,
			s.EasySolved, s.MediumSolved, s.HardSolved, s.CurrentStreak)
	}
	w.Flush()

	if len(report.Excluded) > 0 {
		fmt.Fprintf(&b, "\n%d member(s) could not be fetched from the judge this week.\n", len(report.Excluded))
	}
	return b.String()
}
