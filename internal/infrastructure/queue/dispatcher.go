package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/asgr-game/account-service/internal/core/ports"
	"github.com/asgr-game/account-service/internal/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	sendTimeout    = 30 * time.Second
)

// Dispatcher delivers confirmation mails in the background. Jobs are sharded
// by user id over a fixed set of workers so one user's mails go out in order.
type Dispatcher struct {
	workers []chan string
	mailer  ports.ConfirmationMailer
	log     zerolog.Logger
	wg      sync.WaitGroup
}

var _ ports.MailDispatcher = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, mailer ports.ConfirmationMailer, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan string, numWorkers),
		mailer:  mailer,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan string, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue schedules a confirmation mail for userID. It never blocks: when the
// worker's buffer is full the job is dropped and logged.
func (d *Dispatcher) Enqueue(userID string) {
	idx := d.shardIndex(userID)
	select {
	case d.workers[idx] <- userID:
		metrics.MailQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.MailDispatchTotal.WithLabelValues("dropped").Inc()
		d.log.Warn().Str("user_id", userID).Int("worker_id", idx).Msg("mail queue full, confirmation mail dropped")
	}
}

// shardIndex maps a user id deterministically to a worker index.
func (d *Dispatcher) shardIndex(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan string) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case userID, ok := <-ch:
			if !ok {
				return
			}
			metrics.MailQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			d.deliver(ctx, id, userID)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, workerID int, userID string) {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if err := d.mailer.SendConfirmation(ctx, userID); err != nil {
		metrics.MailDispatchTotal.WithLabelValues("failed").Inc()
		d.log.Error().Err(err).
			Str("user_id", userID).
			Int("worker_id", workerID).
			Msg("confirmation mail failed")
		return
	}
	metrics.MailDispatchTotal.WithLabelValues("sent").Inc()
	d.log.Debug().Str("user_id", userID).Msg("confirmation mail sent")
}
