package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/unionportal/ballot-system/internal/api/metrics"
	"github.com/unionportal/ballot-system/internal/core/domain"
	"github.com/unionportal/ballot-system/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	sendTimeout    = 15 * time.Second
)

// Dispatcher delivers vote confirmations on a fixed set of workers, sharded
// by phone number so texts to one voter go out in order.
type Dispatcher struct {
	workers   []chan ports.VoteConfirmation
	sender    ports.TextSender
	signature string
	log       zerolog.Logger
	wg        sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, sender ports.TextSender, signature string, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:   make([]chan ports.VoteConfirmation, numWorkers),
		sender:    sender,
		signature: signature,
		log:       log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.VoteConfirmation, channelBuffer)
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

// Enqueue hands n to its worker without blocking. It reports false when the
// worker's buffer is full and the confirmation was dropped.
func (d *Dispatcher) Enqueue(n ports.VoteConfirmation) bool {
	idx := d.shardIndex(n.PhoneNumber)
	select {
	case d.workers[idx] <- n:
		metrics.NotificationsQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return true
	default:
		metrics.NotificationsSentTotal.WithLabelValues("dropped").Inc()
		return false
	}
}

// shardIndex maps a phone number deterministically to a worker index.
func (d *Dispatcher) shardIndex(phone string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(phone))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.VoteConfirmation) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			metrics.NotificationsQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			d.deliver(ctx, id, n)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, worker int, n ports.VoteConfirmation) {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	start := time.Now()
	err := d.sender.SendText(sendCtx, n.PhoneNumber, d.message(n))
	metrics.NotificationDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.NotificationsSentTotal.WithLabelValues("failed").Inc()
		d.log.Error().Err(err).
			Str("phone", domain.MaskPhone(n.PhoneNumber)).
			Int("worker_id", worker).
			Msg("vote confirmation failed")
		return
	}
	metrics.NotificationsSentTotal.WithLabelValues("sent").Inc()
}

func (d *Dispatcher) message(n ports.VoteConfirmation) string {
	choice := n.CandidateName
	if choice == "" {
		choice = n.CandidateID
	}
	body := "Your ballot for " + choice + " has been recorded."
	if d.signature != "" {
		body += "\n" + d.signature
	}
	return body
}
