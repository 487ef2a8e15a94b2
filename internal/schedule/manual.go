package schedule

import (
	"sort"
	"sync"
	"time"
)

// Manual is a Scheduler driven entirely by Advance calls. Tasks fire
// synchronously inside Advance, in due-time order, which makes debounce,
// expiry, and sweep behaviour testable without real waits.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	next  int
	tasks map[int]*manualTask
}

type manualTask struct {
	due      time.Time
	interval time.Duration // zero for one-shot
	run      func()
}

// NewManual creates a manual scheduler starting at the given time.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start, tasks: make(map[int]*manualTask)}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) After(d time.Duration, task func()) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.next
	m.next++
	m.tasks[id] = &manualTask{due: m.now.Add(d), run: task}
	return manualHandle{m: m, id: id}
}

func (m *Manual) Every(d time.Duration, task func()) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.next
	m.next++
	m.tasks[id] = &manualTask{due: m.now.Add(d), interval: d, run: task}
	return manualHandle{m: m, id: id}
}

// Advance moves the clock forward, firing every task that comes due along
// the way. Periodic tasks re-arm and may fire multiple times.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		var dueID = -1
		var dueAt time.Time
		ids := make([]int, 0, len(m.tasks))
		for id := range m.tasks {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		for _, id := range ids {
			t := m.tasks[id]
			if t.due.After(target) {
				continue
			}
			if dueID == -1 || t.due.Before(dueAt) {
				dueID = id
				dueAt = t.due
			}
		}
		if dueID == -1 {
			m.now = target
			m.mu.Unlock()
			return
		}
		t := m.tasks[dueID]
		m.now = t.due
		if t.interval > 0 {
			t.due = t.due.Add(t.interval)
		} else {
			delete(m.tasks, dueID)
		}
		run := t.run
		m.mu.Unlock()

		run()
	}
}

type manualHandle struct {
	m  *Manual
	id int
}

func (h manualHandle) Stop() {
	h.m.mu.Lock()
	defer h.m.mu.Unlock()
	delete(h.m.tasks, h.id)
}
