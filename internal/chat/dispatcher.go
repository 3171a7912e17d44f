package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// InboundMessage is one customer message from any channel. The core is
// channel-agnostic: the ingestion layer maps its transport onto this.
type InboundMessage struct {
	Tenant       string   `json:"tenant"`
	Conversation string   `json:"conversation_id"`
	Participant  string   `json:"participant_id"`
	Text         string   `json:"text"`
	Attachments  []string `json:"attachments,omitempty"`
}

// TurnFunc processes one message end to end.
type TurnFunc func(ctx context.Context, msg InboundMessage)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("dispatcher closed")

// Dispatcher serializes turns per (conversation, participant) while
// letting different conversations run concurrently. Each key gets its
// own worker goroutine and bounded queue; there is no global lock
// across conversations. Ordering matters because a turn's memory
// append must land before the next turn's window read. Workers that
// sit idle past idleAfter exit and release their queue, so the worker
// set tracks active conversations rather than every conversation ever
// seen.
type Dispatcher struct {
	handle    TurnFunc
	logger    *slog.Logger
	turnLimit time.Duration
	idleAfter time.Duration

	mu     sync.Mutex
	queues map[string]chan InboundMessage
	closed bool
	wg     sync.WaitGroup
}

// queueCap bounds how many turns may pile up for one conversation
// before the channel layer is told to back off.
const queueCap = 64

// workerIdleAfter is how long a conversation worker waits for another
// message before exiting and releasing its queue.
const workerIdleAfter = 5 * time.Minute

// NewDispatcher creates a dispatcher. turnLimit bounds how long one
// turn may hold its conversation's queue; zero means 60s.
func NewDispatcher(handle TurnFunc, turnLimit time.Duration, logger *slog.Logger) *Dispatcher {
	if turnLimit <= 0 {
		turnLimit = 60 * time.Second
	}
	return &Dispatcher{
		handle:    handle,
		logger:    logger,
		turnLimit: turnLimit,
		idleAfter: workerIdleAfter,
		queues:    make(map[string]chan InboundMessage),
	}
}

// Submit enqueues a message for its conversation's worker. Returns
// ErrClosed when the dispatcher is shut down, or an error when the
// conversation's queue is full (the channel layer should retry with
// backoff).
func (d *Dispatcher) Submit(msg InboundMessage) error {
	key := msg.Conversation + "|" + msg.Participant

	// The send happens under d.mu: Close closes queues under the same
	// lock, so a queue can never be closed between the lookup and the
	// send here.
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	queue, ok := d.queues[key]
	if !ok {
		queue = make(chan InboundMessage, queueCap)
		d.queues[key] = queue
		d.wg.Add(1)
		go d.worker(key, queue)
	}

	select {
	case queue <- msg:
		return nil
	default:
		return fmt.Errorf("conversation %s: queue full", msg.Conversation)
	}
}

// worker drains one conversation's queue in arrival order, exiting
// once the queue closes or the conversation goes idle.
func (d *Dispatcher) worker(key string, queue chan InboundMessage) {
	defer d.wg.Done()
	for {
		select {
		case msg, ok := <-queue:
			if !ok {
				d.logger.Debug("conversation worker stopped", "key", key)
				return
			}
			d.runTurn(msg)
		case <-time.After(d.idleAfter):
			d.mu.Lock()
			if len(queue) > 0 || d.closed {
				// A message raced in, or Close owns the queue's
				// lifecycle now; keep draining.
				d.mu.Unlock()
				continue
			}
			delete(d.queues, key)
			d.mu.Unlock()
			d.logger.Debug("idle conversation worker released", "key", key)
			return
		}
	}
}

// runTurn executes one turn with a bounded deadline and panic
// isolation, so no single message can wedge its conversation's queue.
func (d *Dispatcher) runTurn(msg InboundMessage) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("turn panicked", "conversation", msg.Conversation, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.turnLimit)
	defer cancel()
	d.handle(ctx, msg)
}

// Close stops accepting messages, drains every queue and waits for
// in-flight turns to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, queue := range d.queues {
		close(queue)
	}
	d.mu.Unlock()

	d.wg.Wait()
}
