package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	UsersRegistered        uint64
	LoginsSucceeded        uint64
	LoginsFailed           uint64
	AuthRejected           map[string]uint64 // by reason
	OwnershipDenied        uint64
	BooksCreated           uint64
	BooksDeleted           uint64
	RequestCount           uint64
	RequestDurationTotalNs int64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	usersRegistered        uint64
	loginsSucceeded        uint64
	loginsFailed           uint64
	ownershipDenied        uint64
	booksCreated           uint64
	booksDeleted           uint64
	requestCount           uint64
	requestDurationTotalNs int64

	mu           sync.Mutex
	authRejected map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{authRejected: make(map[string]uint64)}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	rejected := make(map[string]uint64, len(m.authRejected))
	for reason, n := range m.authRejected {
		rejected[reason] = n
	}
	m.mu.Unlock()

	return Snapshot{
		UsersRegistered:        atomic.LoadUint64(&m.usersRegistered),
		LoginsSucceeded:        atomic.LoadUint64(&m.loginsSucceeded),
		LoginsFailed:           atomic.LoadUint64(&m.loginsFailed),
		AuthRejected:           rejected,
		OwnershipDenied:        atomic.LoadUint64(&m.ownershipDenied),
		BooksCreated:           atomic.LoadUint64(&m.booksCreated),
		BooksDeleted:           atomic.LoadUint64(&m.booksDeleted),
		RequestCount:           atomic.LoadUint64(&m.requestCount),
		RequestDurationTotalNs: atomic.LoadInt64(&m.requestDurationTotalNs),
	}
}

// IncUserRegistered increments the registration counter.
func (m *InMemoryRecorder) IncUserRegistered() {
	atomic.AddUint64(&m.usersRegistered, 1)
}

// IncLogin increments the login counter for status.
func (m *InMemoryRecorder) IncLogin(status string) {
	if status == LoginSuccess {
		atomic.AddUint64(&m.loginsSucceeded, 1)
		return
	}
	atomic.AddUint64(&m.loginsFailed, 1)
}

// IncAuthRejected increments the rejection counter for reason.
func (m *InMemoryRecorder) IncAuthRejected(reason string) {
	m.mu.Lock()
	m.authRejected[reason]++
	m.mu.Unlock()
}

// IncOwnershipDenied increments the ownership denial counter.
func (m *InMemoryRecorder) IncOwnershipDenied() {
	atomic.AddUint64(&m.ownershipDenied, 1)
}

// IncBookCreated increments the book created counter.
func (m *InMemoryRecorder) IncBookCreated() {
	atomic.AddUint64(&m.booksCreated, 1)
}

// IncBookDeleted increments the book deleted counter.
func (m *InMemoryRecorder) IncBookDeleted() {
	atomic.AddUint64(&m.booksDeleted, 1)
}

// ObserveRequest records one HTTP request.
func (m *InMemoryRecorder) ObserveRequest(route string, status int, duration time.Duration) {
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddInt64(&m.requestDurationTotalNs, duration.Nanoseconds())
}
