package app

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Loop runs tasks one at a time on a single goroutine. Registry access and
// settings reloads are marshaled onto it so neither needs locking.
//
// Dispatch never blocks, so tasks may dispatch further tasks.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	running bool
	stopped bool

	wake chan struct{}
	done chan struct{}
	exit chan struct{}

	logger *zap.Logger
}

// NewLoop creates a loop. Call Start to begin running tasks.
func NewLoop(logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		exit:   make(chan struct{}),
		logger: logger,
	}
}

// Start launches the loop goroutine.
func (l *Loop) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped {
		return ErrNotRunning
	}
	if l.running {
		return ErrAlreadyRunning
	}
	l.running = true
	go l.run()
	return nil
}

// Dispatch queues fn. Tasks dispatched after Stop are dropped.
func (l *Loop) Dispatch(fn func()) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		l.logger.Debug("task dropped after loop stop")
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Call runs fn on the loop and waits for its result. It must not be
// called from a loop task.
func (l *Loop) Call(ctx context.Context, fn func() error) error {
	if !l.IsRunning() {
		return ErrNotRunning
	}

	result := make(chan error, 1)
	l.Dispatch(func() {
		result <- fn()
	})

	select {
	case err := <-result:
		return err
	case <-l.exit:
		// The task may have run before the loop exited.
		select {
		case err := <-result:
			return err
		default:
			return ErrNotRunning
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning reports whether the loop accepts tasks.
func (l *Loop) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running && !l.stopped
}

// Stop runs the tasks already queued and then stops the loop. It is safe
// to call more than once.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		if l.running {
			<-l.exit
		}
		return
	}
	l.stopped = true
	running := l.running
	l.mu.Unlock()

	close(l.done)
	if running {
		<-l.exit
	}
}

func (l *Loop) run() {
	defer close(l.exit)

	for {
		select {
		case <-l.wake:
			l.drain()
		case <-l.done:
			l.drain()
			return
		}
	}
}

func (l *Loop) drain() {
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		l.runTask(fn)
	}
}

func (l *Loop) runTask(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("loop task panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	fn()
}
