package email

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
	log "github.com/sirupsen/logrus"
	"github.com/tcp_snm/tracker/internal/tracker_errors"
)

type EmailPurpose string
type EmailBodyType string

const (
	BodyPlain EmailBodyType = "text/plain"
	BodyHTML  EmailBodyType = "text/html"

	PurposeWeeklyReport     EmailPurpose = "weekly_report"
	PurposeSupervisorReport EmailPurpose = "supervisor_report"

	defaultEmailChannelCapacity = 100
)

type EmailRequest struct {
	To       []string
	Subject  string
	Body     string
	BodyType EmailBodyType
	Purpose  EmailPurpose
}

type emailJob struct {
	EmailRequest
	from string
}

// Sender delivers one mail. Implementations are safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, from string, req EmailRequest) error
}

// Mailer queues mails for a pool of workers that hand them to a Sender
type Mailer struct {
	sender  Sender
	from    string
	jobs    chan emailJob
	done    chan struct{}
	stop    sync.Once
	workers sync.WaitGroup
	logger  *logrus.Entry
}

func NewMailer(sender Sender, from string) *Mailer {
	if sender == nil {
		panic("mailer expects non-nil sender")
	}
	return &Mailer{
		sender: sender,
		from:   from,
		jobs:   make(chan emailJob, defaultEmailChannelCapacity),
		done:   make(chan struct{}),
		logger: logrus.WithField("from", "email service"),
	}
}

// Start runs n workers until ctx ends or Stop is called
func (m *Mailer) Start(ctx context.Context, n int) {
	n = max(n, 1)
	for i := range n {
		m.workers.Add(1)
		go m.work(ctx, i)
	}
	m.logger.Infof("started %d email workers", n)
}

func (m *Mailer) work(ctx context.Context, id int) {
	defer m.workers.Done()
	logger := m.logger.WithField("worker", id)
	for {
		select {
		case <-ctx.Done():
			logger.Info("email worker stopped")
			return
		case job := <-m.jobs:
			m.deliver(ctx, logger, job)
		case <-m.done:
			// drain what producers already queued
			for {
				select {
				case job := <-m.jobs:
					m.deliver(ctx, logger, job)
				default:
					return
				}
			}
		}
	}
}

func (m *Mailer) deliver(ctx context.Context, logger *logrus.Entry, job emailJob) {
	if err := m.sender.Send(ctx, job.from, job.EmailRequest); err != nil {
		logger.Errorf("cannot send %v mail to %v: %v", job.Purpose, job.To, err)
		return
	}
	logger.Debugf("sent %v mail to %d recipients", job.Purpose, len(job.To))
}

// Stop lets the workers finish queued mails and waits for them. Mails queued
// after Stop are rejected.
func (m *Mailer) Stop() {
	m.stop.Do(func() { close(m.done) })
	m.workers.Wait()
}

func (m *Mailer) NewMail(
	ctx context.Context,
	subject string,
	body string,
	bodyType EmailBodyType,
	purpose EmailPurpose,
	to ...string,
) error {
	if m.from == "" {
		log.Error("sender email is not configured")
		return tracker_errors.ErrEmailServiceStopped
	}
	if len(to) == 0 {
		return nil
	}
	job := emailJob{
		from: m.from,
		EmailRequest: EmailRequest{
			To:       to,
			Subject:  subject,
			Body:     body,
			BodyType: bodyType,
			Purpose:  purpose,
		},
	}

	select {
	case <-m.done:
		return tracker_errors.ErrEmailServiceStopped
	default:
	}

	// when all the workers are dead, it shouldn't block indefinitely
	select {
	case <-ctx.Done():
		log.Errorf("email job cancelled: %v", ctx.Err())
		return errors.Join(tracker_errors.ErrEmailServiceStopped, ctx.Err())
	case <-m.done:
		return tracker_errors.ErrEmailServiceStopped
	case m.jobs <- job:
		return nil
	}
}
