package monitor

import (
	"sync"
	"sync/atomic"
)

// StopFlag is a one-shot shutdown request shared by the capture loop, the
// reporting loop and the signal hook.
type StopFlag struct {
	once    sync.Once
	stopped atomic.Bool
	done    chan struct{}
}

// NewStopFlag creates an unset flag.
func NewStopFlag() *StopFlag {
	return &StopFlag{done: make(chan struct{})}
}

// Stop sets the flag. It reports whether this call was the one that set it.
func (f *StopFlag) Stop() bool {
	first := false
	f.once.Do(func() {
		f.stopped.Store(true)
		close(f.done)
		first = true
	})
	return first
}

// Stopped reports whether the flag is set.
func (f *StopFlag) Stopped() bool {
	return f.stopped.Load()
}

// Done is closed when the flag is set.
func (f *StopFlag) Done() <-chan struct{} {
	return f.done
}
