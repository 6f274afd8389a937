package main

import (
	"runtime"
	"sync"
	"time"

	"github.com/farxc/presupuestos-estudio/internal/logger"
)

// phaseStats holds the peaks seen while one phase of a run was active.
type phaseStats struct {
	Name           string
	Duration       time.Duration
	PeakGoroutines int
	PeakHeapMB     uint64
	Samples        int

	started time.Time
	ended   bool
}

// runMonitor samples goroutines and heap in use while the tool works and
// charges every sample to the phase active at that moment.
type runMonitor struct {
	mu     sync.Mutex
	phases []*phaseStats

	read func() (goroutines int, heapMB uint64)
	now  func() time.Time

	stop chan struct{}
	done chan struct{}
}

func newRunMonitor() *runMonitor {
	return &runMonitor{read: readRuntime, now: time.Now}
}

func readRuntime() (int, uint64) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return runtime.NumGoroutine(), ms.HeapInuse / 1024 / 1024
}

// Phase closes the current phase and opens name. The new phase is sampled
// right away so short phases still get a reading.
func (m *runMonitor) Phase(name string) {
	m.mu.Lock()
	now := m.now()
	m.closeCurrent(now)
	m.phases = append(m.phases, &phaseStats{Name: name, started: now})
	m.mu.Unlock()

	m.sample()
}

func (m *runMonitor) closeCurrent(now time.Time) {
	if n := len(m.phases); n > 0 && !m.phases[n-1].ended {
		m.phases[n-1].Duration = now.Sub(m.phases[n-1].started)
		m.phases[n-1].ended = true
	}
}

func (m *runMonitor) sample() (phase string, goroutines int, heapMB uint64) {
	goroutines, heapMB = m.read()

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.phases) == 0 {
		return "", goroutines, heapMB
	}
	cur := m.phases[len(m.phases)-1]
	cur.Samples++
	cur.PeakGoroutines = max(cur.PeakGoroutines, goroutines)
	cur.PeakHeapMB = max(cur.PeakHeapMB, heapMB)
	return cur.Name, goroutines, heapMB
}

func (m *runMonitor) Start(interval time.Duration, log *logger.Logger) {
	const component = "Monitor"

	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				phase, g, mb := m.sample()
				log.Debug(component, "phase=%s goroutines=%d heapMB=%d", phase, g, mb)
			case <-m.stop:
				return
			}
		}
	}()
}

// Stop ends sampling and returns a copy of every phase in order.
func (m *runMonitor) Stop() []phaseStats {
	if m.stop != nil {
		close(m.stop)
		<-m.done
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCurrent(m.now())

	out := make([]phaseStats, len(m.phases))
	for i, p := range m.phases {
		out[i] = *p
	}
	return out
}
