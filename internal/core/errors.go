package core

import (
	"sync"
	"time"
)

const errorLogCapacity = 32

// ErrorRecord is one non-fatal operational error surfaced to the UI.
type ErrorRecord struct {
	Time    time.Time
	Op      string
	Message string
}

// errorLog is the error-observation sink: a bounded ring of recent non-fatal
// errors (decode failures, persistence failures). Implements
// session.ErrorSink.
type errorLog struct {
	mu      sync.Mutex
	records []ErrorRecord
}

func (l *errorLog) Report(op string, err error) {
	if err == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, ErrorRecord{Time: time.Now(), Op: op, Message: err.Error()})
	if len(l.records) > errorLogCapacity {
		l.records = l.records[len(l.records)-errorLogCapacity:]
	}
}

func (l *errorLog) Recent() []ErrorRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ErrorRecord, len(l.records))
	copy(out, l.records)
	return out
}
