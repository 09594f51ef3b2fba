package notify

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Mailer delivers one message. The transport lives outside this package.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// ResultStore records the outcome of a send attempt on the notification
// row.
type ResultStore interface {
	RecordNotificationResult(ctx context.Context, id uuid.UUID, success bool, errMsg string, sentAt time.Time) error
}

const (
	defaultWorkers  = 10
	sendMaxRetries  = 3
	poolQueueLength = 1000
)

type job struct {
	notificationID uuid.UUID
	to             string
	subject        string
	body           string
}

// Pool fans outbound mail over a fixed set of workers so notification
// delivery never blocks the scheduler tick or a triggering request. A
// failed send is recorded on its notification row and the pool moves on.
type Pool struct {
	mailer Mailer
	store  ResultStore
	logger *zap.Logger
	jobs   chan job
	wg     sync.WaitGroup
}

func NewPool(mailer Mailer, store ResultStore, logger *zap.Logger, workers int) *Pool {
	if workers <= 0 {
		workers = defaultWorkers
	}
	p := &Pool{
		mailer: mailer,
		store:  store,
		logger: logger.Named("mail_pool"),
		jobs:   make(chan job, poolQueueLength),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Enqueue hands a message to the pool without blocking; on a full queue
// the job is dropped and the drop recorded on the notification row.
func (p *Pool) Enqueue(notificationID uuid.UUID, to, subject, body string) {
	j := job{notificationID: notificationID, to: to, subject: subject, body: body}
	select {
	case p.jobs <- j:
	default:
		p.logger.Warn("mail queue full, dropping message",
			zap.String("notification_id", notificationID.String()),
		)
		p.record(notificationID, false, "mail queue full")
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for j := range p.jobs {
		err := backoff.Retry(func() error {
			return p.mailer.Send(context.Background(), j.to, j.subject, j.body)
		}, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), sendMaxRetries))

		if err != nil {
			p.logger.Warn("mail send failed",
				zap.String("notification_id", j.notificationID.String()),
				zap.Error(err),
			)
			p.record(j.notificationID, false, err.Error())
			continue
		}
		p.record(j.notificationID, true, "")
	}
}

func (p *Pool) record(id uuid.UUID, success bool, errMsg string) {
	if err := p.store.RecordNotificationResult(context.Background(), id, success, errMsg, time.Now()); err != nil {
		p.logger.Error("failed to record notification result",
			zap.String("notification_id", id.String()),
			zap.Error(err),
		)
	}
}

// Close drains the queue and stops the workers.
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
}
