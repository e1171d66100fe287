package intake

import "sync"

// patientLocks serializes same-patient requests within one process, closing
// the in-process window of the read-modify-write race on history. Requests
// for different patients proceed concurrently. Cross-process writers still
// race; see HistoryStore.Save.
type patientLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newPatientLocks() *patientLocks {
	return &patientLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mutex for patientID and returns its unlock func.
func (p *patientLocks) acquire(patientID string) func() {
	p.mu.Lock()
	m, ok := p.locks[patientID]
	if !ok {
		m = &sync.Mutex{}
		p.locks[patientID] = m
	}
	p.mu.Unlock()

	m.Lock()
	return m.Unlock
}
