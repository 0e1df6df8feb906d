package tracing

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sarchlab/netsim/sim"
)

// Emitter is the Writer every domain reports to. It keeps the records in
// order and fans them out to other writers.
type Emitter struct {
	lock    sync.Mutex
	records []Record
	counts  map[countKey]int
	writers []Writer
	errs    []error
}

type countKey struct {
	kind    Kind
	outcome sim.Outcome
}

// NewEmitter creates an Emitter that forwards to the writers.
func NewEmitter(writers ...Writer) *Emitter {
	return &Emitter{
		counts:  make(map[countKey]int),
		writers: writers,
	}
}

// AddWriter attaches one more writer. Records already emitted are not
// replayed.
func (e *Emitter) AddWriter(w Writer) {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.writers = append(e.writers, w)
}

// Write stores the record and forwards it.
func (e *Emitter) Write(rec Record) error {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.records = append(e.records, rec)
	e.counts[countKey{rec.Kind, rec.Outcome}]++

	var err error

	for _, w := range e.writers {
		if werr := w.Write(rec); werr != nil {
			err = errors.Join(err, werr)
		}
	}

	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("writing %s: %w", rec, err))
	}

	return err
}

// Flush flushes every writer and reports all write errors seen so far.
func (e *Emitter) Flush() error {
	e.lock.Lock()
	defer e.lock.Unlock()

	err := errors.Join(e.errs...)
	e.errs = nil

	for _, w := range e.writers {
		err = errors.Join(err, w.Flush())
	}

	return err
}

// Close flushes and closes every writer that can be closed.
func (e *Emitter) Close() error {
	err := e.Flush()

	e.lock.Lock()
	defer e.lock.Unlock()

	for _, w := range e.writers {
		if c, ok := w.(interface{ Close() error }); ok {
			err = errors.Join(err, c.Close())
		}
	}

	e.writers = nil

	return err
}

// Records returns a copy of every record emitted so far.
func (e *Emitter) Records() []Record {
	e.lock.Lock()
	defer e.lock.Unlock()

	return append([]Record(nil), e.records...)
}

// Tail returns the last n records.
func (e *Emitter) Tail(n int) []Record {
	e.lock.Lock()
	defer e.lock.Unlock()

	if n > len(e.records) || n < 0 {
		n = len(e.records)
	}

	return append([]Record(nil), e.records[len(e.records)-n:]...)
}

// Len is the number of records emitted so far.
func (e *Emitter) Len() int {
	e.lock.Lock()
	defer e.lock.Unlock()

	return len(e.records)
}

// Count returns how many records of the kind had the outcome.
func (e *Emitter) Count(kind Kind, outcome sim.Outcome) int {
	e.lock.Lock()
	defer e.lock.Unlock()

	return e.counts[countKey{kind, outcome}]
}
