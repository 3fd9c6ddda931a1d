package worker

import (
	"log"
	"sync"

	"ai-text-assist/src/inject"
	"ai-text-assist/src/windowctx"
)

// Deliverer places completed text into a target application. Satisfied by
// *inject.Injector.
type Deliverer interface {
	Inject(text string, target *windowctx.Context) inject.Result
}

// ResultCallback is invoked on delivery completion (from a worker goroutine).
// The event loop should pass a closure that posts back into the event loop safely.
type ResultCallback func(res inject.Result)

// Pool is a fixed-size delivery worker pool with a 1-slot input queue
// (strict back-pressure). Injection serializes on the injector's gate
// anyway, so one worker is the normal size.
type Pool struct {
	jobs chan job
	wg   sync.WaitGroup
}

type job struct {
	text   string
	target *windowctx.Context
	cb     ResultCallback
}

// New creates a worker pool. Size defaults to 1 when size<=0. Queue is 1 slot.
func New(size int, deliver Deliverer) *Pool {
	if size <= 0 {
		size = 1
	}
	p := &Pool{jobs: make(chan job, 1)}
	p.start(size, deliver)
	return p
}

func (p *Pool) start(n int, deliver Deliverer) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				log.Printf("Worker: Starting injection, text length=%d", len(j.text))
				res := deliver.Inject(j.text, j.target)
				log.Printf("Worker: Injection completed, success=%v, err=%q, elapsed=%v",
					res.Success, res.Err, res.Elapsed)
				if j.cb != nil {
					j.cb(res)
				}
			}
		}()
	}
}

// Submit enqueues a delivery job if the single-slot queue is free. Returns false if dropped.
func (p *Pool) Submit(text string, target *windowctx.Context, cb ResultCallback) bool {
	select {
	case p.jobs <- job{text: text, target: target, cb: cb}:
		return true
	default:
		return false
	}
}

// Close stops the pool after draining current work.
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
}
