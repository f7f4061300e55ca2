package cmd

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/qnetsim/qnetsim/sim"
)

// Journal writes every observed event as one JSON object per line, in the
// Event.ToMap layout.
type Journal struct {
	mu    sync.Mutex
	enc   *json.Encoder
	count int
	err   error
}

// NewJournal creates a Journal writing to w.
func NewJournal(w io.Writer) *Journal {
	return &Journal{enc: json.NewEncoder(w)}
}

// Observe satisfies sim.Observer. The first write error is kept and later
// events are dropped.
func (j *Journal) Observe(e sim.Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return
	}
	if err := j.enc.Encode(e.ToMap()); err != nil {
		j.err = err
		logrus.Warnf("event journal: %v", err)
		return
	}
	j.count++
}

// Count returns the number of events written.
func (j *Journal) Count() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.count
}

// Err returns the first write error, if any.
func (j *Journal) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}
