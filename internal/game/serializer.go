// internal/game/serializer.go
package game

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/sirupsen/logrus"
)

// globalKey is the single queue used when rooms share one serializer lane.
const globalKey = "*"

// Serializer runs jobs one at a time per key. Each key gets a worker goroutine that lives while
// jobs are queued; a panic inside a job fails that job only.
type Serializer struct {
	mu      sync.Mutex
	workers map[string]*worker
	global  bool
	log     *logrus.Entry
}

type worker struct {
	pending []job
}

type job struct {
	fn   func() error
	done chan error
}

// NewSerializer builds a serializer. With global set every key shares one queue.
func NewSerializer(global bool) *Serializer {
	return &Serializer{
		workers: make(map[string]*worker),
		global:  global,
		log:     logrus.WithField("component", "serializer"),
	}
}

// Do queues fn behind every earlier job of key and waits for its result. When ctx ends first the
// job still runs, but Do returns ctx.Err().
func (s *Serializer) Do(ctx context.Context, key string, fn func() error) error {
	done := s.enqueue(key, fn)
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit queues fn without waiting. Failures are logged.
func (s *Serializer) Submit(key string, fn func() error) {
	done := s.enqueue(key, fn)
	go func() {
		if err := <-done; err != nil {
			s.log.WithField("key", key).WithError(err).Warn("queued job failed")
		}
	}()
}

// Pending returns the number of keys with a live worker.
func (s *Serializer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.workers)
}

func (s *Serializer) enqueue(key string, fn func() error) chan error {
	if s.global {
		key = globalKey
	}
	j := job{fn: fn, done: make(chan error, 1)}

	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.workers[key]
	if !ok {
		w = &worker{}
		s.workers[key] = w
		go s.run(key, w)
	}
	w.pending = append(w.pending, j)
	return j.done
}

func (s *Serializer) run(key string, w *worker) {
	for {
		s.mu.Lock()
		if len(w.pending) == 0 {
			delete(s.workers, key)
			s.mu.Unlock()
			return
		}
		j := w.pending[0]
		w.pending = w.pending[1:]
		s.mu.Unlock()

		j.done <- s.safeRun(key, j.fn)
	}
}

func (s *Serializer) safeRun(key string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithFields(logrus.Fields{
				"key":   key,
				"panic": r,
				"stack": string(debug.Stack()),
			}).Error("recovered panic in serialized job")
			err = fmt.Errorf("%s: panic: %v", key, r)
		}
	}()
	return fn()
}
