package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

var errWriterClosed = errors.New("logger: writer closed")

// op is a queued line or, when ack is set, a flush barrier.
type op struct {
	line []byte
	ack  chan error
}

// asyncWriter hands lines to a single goroutine that writes them to every
// sink in order. Sinks are flushed whenever the queue drains, so bursts are
// batched. The first write error is sticky.
type asyncWriter struct {
	ops   chan op
	done  chan struct{}
	sinks []*bufio.Writer

	gate   sync.RWMutex
	closed bool

	mu  sync.Mutex
	err error
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	w := &asyncWriter{
		ops:  make(chan op, 256),
		done: make(chan struct{}),
	}
	for _, out := range writers {
		if out != nil {
			w.sinks = append(w.sinks, bufio.NewWriterSize(out, bufSize))
		}
	}
	go w.run()
	return w
}

func (w *asyncWriter) run() {
	defer close(w.done)
	for o := range w.ops {
		if o.ack != nil {
			o.ack <- w.flush()
			continue
		}
		w.write(o.line)
		if len(w.ops) == 0 {
			w.fail(w.flush())
		}
	}
	w.fail(w.flush())
}

// Write copies p and queues it, blocking when the queue is full.
func (w *asyncWriter) Write(p []byte) error {
	if err := w.Err(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	return w.send(op{line: append([]byte(nil), p...)})
}

// Flush returns once every line queued before it reached the sinks.
func (w *asyncWriter) Flush() error {
	if err := w.Err(); err != nil {
		return err
	}
	ack := make(chan error, 1)
	if err := w.send(op{ack: ack}); err != nil {
		return err
	}
	return <-ack
}

// Close drains the queue and returns the first write error. Later writes
// fail with errWriterClosed.
func (w *asyncWriter) Close() error {
	w.gate.Lock()
	if !w.closed {
		w.closed = true
		close(w.ops)
	}
	w.gate.Unlock()
	<-w.done
	return w.Err()
}

func (w *asyncWriter) send(o op) error {
	w.gate.RLock()
	defer w.gate.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	w.ops <- o
	return nil
}

func (w *asyncWriter) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *asyncWriter) write(line []byte) {
	for _, s := range w.sinks {
		if _, err := s.Write(line); err != nil {
			w.fail(err)
			return
		}
	}
}

func (w *asyncWriter) flush() error {
	var errs []error
	for _, s := range w.sinks {
		if err := s.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) fail(err error) {
	if err == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err == nil {
		w.err = err
	}
}
