package email

import (
	"context"
	"sync"
	"time"

	"github.com/Marga-Ghale/ora-tasks-api/internal/logger"
)

const maxRetries = 3

// Queue sends mail asynchronously with a fixed pool of workers.
type Queue struct {
	service *Service
	queue   chan *queuedEmail
	wg      sync.WaitGroup
}

type queuedEmail struct {
	to           []string
	subject      string
	templateName string
	data         interface{}
	retries      int
}

func NewQueue(service *Service, size int) *Queue {
	return &Queue{
		service: service,
		queue:   make(chan *queuedEmail, size),
	}
}

// Start launches workers that run until ctx is cancelled. Wait blocks until
// they have exited.
func (q *Queue) Start(ctx context.Context, workers int) {
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
}

func (q *Queue) Wait() {
	q.wg.Wait()
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case email := <-q.queue:
			q.process(ctx, email)
		}
	}
}

func (q *Queue) process(ctx context.Context, email *queuedEmail) {
	for {
		err := q.service.SendWithTemplate(email.to, email.subject, email.templateName, email.data)
		if err == nil {
			return
		}
		if email.retries >= maxRetries {
			logger.Error().Err(err).Str("template", email.templateName).Msg("email dropped after retries")
			return
		}
		email.retries++
		logger.Warn().Err(err).Int("attempt", email.retries).Msg("email send failed, retrying")

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second * time.Duration(email.retries*2)):
		}
	}
}

// Enqueue adds a templated email. A full queue drops the message.
func (q *Queue) Enqueue(to []string, subject, templateName string, data interface{}) {
	if !q.service.Enabled() {
		return
	}
	select {
	case q.queue <- &queuedEmail{to: to, subject: subject, templateName: templateName, data: data}:
	default:
		logger.Warn().Str("template", templateName).Msg("email queue full, dropping message")
	}
}
