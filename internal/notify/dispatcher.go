package notify

import (
	"context"
	"sync"
	"time"

	"github.com/terraincognita07/easypeasy/internal/logger"
)

const (
	defaultQueueSize   = 64
	defaultSendTimeout = 15 * time.Second
)

type Dispatcher struct {
	next  Notifier
	log   *logger.Logger
	queue chan Email

	mu        sync.RWMutex
	stopped   bool
	startOnce sync.Once
	done      chan struct{}
}

func NewDispatcher(next Notifier, log *logger.Logger, queueSize int) *Dispatcher {
	if log == nil {
		log = logger.NewNop()
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Dispatcher{
		next:  next,
		log:   log.With("component", "NotifyDispatcher"),
		queue: make(chan Email, queueSize),
		done:  make(chan struct{}),
	}
}

func (dispatcher *Dispatcher) Start(ctx context.Context) {
	dispatcher.startOnce.Do(func() {
		go dispatcher.run(ctx)
	})
}

func (dispatcher *Dispatcher) Send(_ context.Context, email Email) error {
	if err := email.validate(); err != nil {
		return err
	}

	dispatcher.mu.RLock()
	defer dispatcher.mu.RUnlock()
	if dispatcher.stopped {
		dispatcher.log.Warn("dispatcher stopped; dropping email", "to", email.To, "subject", email.Subject)
		return nil
	}
	select {
	case dispatcher.queue <- email:
	default:
		dispatcher.log.Warn("notification queue full; dropping email", "to", email.To, "subject", email.Subject)
	}
	return nil
}

func (dispatcher *Dispatcher) Stop() {
	dispatcher.mu.Lock()
	if !dispatcher.stopped {
		dispatcher.stopped = true
		close(dispatcher.queue)
	}
	dispatcher.mu.Unlock()

	dispatcher.Start(context.Background())
	<-dispatcher.done
}

func (dispatcher *Dispatcher) run(ctx context.Context) {
	defer close(dispatcher.done)
	for email := range dispatcher.queue {
		dispatcher.deliver(ctx, email)
	}
}

func (dispatcher *Dispatcher) deliver(ctx context.Context, email Email) {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultSendTimeout)
	defer cancel()

	if err := dispatcher.next.Send(sendCtx, email); err != nil {
		dispatcher.log.Error("email delivery failed", "to", email.To, "subject", email.Subject, "error", err)
		return
	}
	dispatcher.log.Debug("email delivered", "to", email.To, "subject", email.Subject)
}
