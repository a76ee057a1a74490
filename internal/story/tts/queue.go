package tts

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

type utterance struct {
	id   string
	text string
}

// playFunc renders one utterance and blocks until it finishes or ctx is
// cancelled.
type playFunc func(ctx context.Context, u utterance) error

// utteranceQueue is the FIFO shared by the local engines. One goroutine
// plays utterances in submission order and reports progress to the
// listener. A flush cancels the playing utterance; cancelled utterances get
// no done or error callback.
type utteranceQueue struct {
	mu       sync.Mutex
	pending  []utterance
	cancel   context.CancelFunc
	listener Listener
	closed   bool
	wake     chan struct{}
	done     chan struct{}
	play     playFunc
}

func newUtteranceQueue(play playFunc) *utteranceQueue {
	q := &utteranceQueue{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
		play: play,
	}
	go q.run()
	return q
}

func (q *utteranceQueue) setListener(l Listener) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.listener = l
}

func (q *utteranceQueue) submit(u utterance, mode QueueMode) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrEngineShutdown
	}
	if mode == QueueFlush {
		q.flushLocked()
	}
	q.pending = append(q.pending, u)

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

func (q *utteranceQueue) flush() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.flushLocked()
}

func (q *utteranceQueue) flushLocked() {
	q.pending = nil
	if q.cancel != nil {
		q.cancel()
		q.cancel = nil
	}
}

// close flushes and stops the worker, waiting for it to exit.
func (q *utteranceQueue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.flushLocked()
	q.mu.Unlock()

	close(q.wake)
	<-q.done
}

func (q *utteranceQueue) next() (utterance, context.Context, Listener, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || len(q.pending) == 0 {
		return utterance{}, nil, nil, false
	}
	u := q.pending[0]
	q.pending = q.pending[1:]

	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	return u, ctx, q.listener, true
}

func (q *utteranceQueue) finish(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if ctx.Err() == nil && q.cancel != nil {
		q.cancel()
		q.cancel = nil
	}
}

func (q *utteranceQueue) run() {
	defer close(q.done)

	for range q.wake {
		for {
			u, ctx, l, ok := q.next()
			if !ok {
				break
			}

			if l != nil {
				l.OnStart(u.id)
			}
			err := q.play(ctx, u)
			flushed := ctx.Err() != nil
			q.finish(ctx)

			switch {
			case flushed:
				logrus.WithField("utterance", u.id).Debug("Utterance flushed")
			case err != nil:
				logrus.WithError(err).WithField("utterance", u.id).Warn("Utterance failed")
				if l != nil {
					l.OnError(u.id, err)
				}
			default:
				if l != nil {
					l.OnDone(u.id)
				}
			}
		}
	}
}
