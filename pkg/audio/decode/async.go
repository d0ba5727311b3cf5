// ABOUTME: Asynchronous decode capability backed by a worker pool
// ABOUTME: Assigns sequence indices at submission and reports results out of order
package decode

import (
	"sync"

	"github.com/camview/liveaudio/pkg/audio"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Submission errors.
var (
	ErrClosed      = errors.New("decoder closed")
	ErrBacklogFull = errors.New("decode backlog full")
)

// MaxBacklog bounds how many payloads may wait for a free worker.
const MaxBacklog = 256

// Result is the outcome of one submitted payload.
type Result struct {
	Seq  uint64
	Unit audio.Unit
	Err  error
}

type job struct {
	seq  uint64
	data []byte
}

// Async decodes payloads concurrently. Results arrive on Results() in
// completion order, not submission order. Stateful decoders get a single
// worker, so their payloads are decoded in submission order.
//
// Submit never waits for a worker: payloads queue in a bounded backlog
// that a dispatcher goroutine hands to the pool.
type Async struct {
	decoder Decoder
	pool    *ants.Pool
	log     logrus.FieldLogger

	results    chan Result
	done       chan struct{}
	dispatched chan struct{}

	// Finished results wait here so workers never block on a slow reader.
	outMu  sync.Mutex
	out    []Result
	notify chan struct{}

	mu      sync.Mutex
	next    uint64
	closed  bool
	backlog []job
	queued  chan struct{}
	wg      sync.WaitGroup
}

// NewAsync starts a pool of workers sharing decoder. Async takes ownership
// of decoder and closes it on Close.
func NewAsync(decoder Decoder, workers int, log logrus.FieldLogger) (*Async, error) {
	if workers <= 0 || IsStateful(decoder) {
		workers = 1
	}

	a := &Async{
		decoder:    decoder,
		log:        log,
		results:    make(chan Result, 64),
		done:       make(chan struct{}),
		dispatched: make(chan struct{}),
		notify:     make(chan struct{}, 1),
		queued:     make(chan struct{}, 1),
	}

	pool, err := ants.NewPool(workers, ants.WithPanicHandler(func(p interface{}) {
		log.WithField("panic", p).Error("Decode worker panicked")
	}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create decode pool")
	}
	a.pool = pool

	go a.dispatch()
	go a.forward()
	return a, nil
}

// Workers returns the pool size.
func (a *Async) Workers() int {
	return a.pool.Cap()
}

// Results delivers decode outcomes.
func (a *Async) Results() <-chan Result {
	return a.results
}

// Submitted returns how many payloads have been accepted so far, which is
// also the sequence index the next submission will receive.
func (a *Async) Submitted() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.next
}

// Submit queues data for decoding and returns its sequence index. The
// caller must not modify data afterwards. A rejected payload consumes no
// sequence index.
func (a *Async) Submit(data []byte) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return 0, ErrClosed
	}
	if len(a.backlog) >= MaxBacklog {
		return 0, ErrBacklogFull
	}

	seq := a.next
	a.next++
	a.wg.Add(1)
	a.backlog = append(a.backlog, job{seq: seq, data: data})

	select {
	case a.queued <- struct{}{}:
	default:
	}
	return seq, nil
}

// dispatch hands backlog entries to the pool in submission order. The
// pool's Submit blocks while every worker is busy.
func (a *Async) dispatch() {
	defer close(a.dispatched)

	for {
		select {
		case <-a.queued:
		case <-a.done:
			return
		}

		for {
			select {
			case <-a.done:
				return
			default:
			}

			a.mu.Lock()
			if len(a.backlog) == 0 {
				a.mu.Unlock()
				break
			}
			j := a.backlog[0]
			a.backlog = a.backlog[1:]
			a.mu.Unlock()

			err := a.pool.Submit(func() {
				defer a.wg.Done()
				a.decode(j.seq, j.data)
			})
			if err != nil {
				a.push(Result{Seq: j.seq, Err: errors.Wrap(err, "failed to submit decode task")})
				a.wg.Done()
			}
		}
	}
}

func (a *Async) decode(seq uint64, data []byte) {
	unit, err := a.decoder.Decode(data)
	unit.Seq = seq
	a.push(Result{Seq: seq, Unit: unit, Err: err})
}

func (a *Async) push(r Result) {
	a.outMu.Lock()
	a.out = append(a.out, r)
	a.outMu.Unlock()

	select {
	case a.notify <- struct{}{}:
	default:
	}
}

func (a *Async) forward() {
	for {
		select {
		case <-a.notify:
		case <-a.done:
			return
		}

		a.outMu.Lock()
		batch := a.out
		a.out = nil
		a.outMu.Unlock()

		for _, r := range batch {
			select {
			case a.results <- r:
			case <-a.done:
				return
			}
		}
	}
}

// Close stops accepting work, abandons queued payloads and undelivered
// results, and waits for in-flight decodes to finish.
func (a *Async) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.done)
	a.mu.Unlock()

	<-a.dispatched

	a.mu.Lock()
	for range a.backlog {
		a.wg.Done()
	}
	a.backlog = nil
	a.mu.Unlock()

	a.wg.Wait()
	a.pool.Release()
	return a.decoder.Close()
}
