package sched

import (
	"sort"
	"time"
)

// Manual is a deterministic Scheduler for tests. Nothing runs until the
// test calls Flush or Advance.
type Manual struct {
	now    time.Duration
	seq    int
	queue  []func()
	timers []*manualTimer
}

type manualTimer struct {
	at       time.Duration
	seq      int
	fn       func()
	canceled bool
}

var _ Scheduler = (*Manual)(nil)

// NewManual returns an idle manual scheduler at virtual time zero.
func NewManual() *Manual {
	return &Manual{}
}

// Post implements Scheduler.
func (m *Manual) Post(fn func()) {
	m.queue = append(m.queue, fn)
}

// After implements Scheduler. A zero or negative delay still waits for
// Advance (with any duration, including zero).
func (m *Manual) After(d time.Duration, fn func()) func() {
	if d < 0 {
		d = 0
	}
	m.seq++
	t := &manualTimer{at: m.now + d, seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return func() { t.canceled = true }
}

// Flush runs queued tasks, including tasks they post, until the queue is
// empty. It returns the number of tasks run.
func (m *Manual) Flush() int {
	n := 0
	for len(m.queue) > 0 {
		fn := m.queue[0]
		m.queue = m.queue[1:]
		fn()
		n++
	}
	return n
}

// Advance moves virtual time forward by d, firing due timers in deadline
// order and flushing posted tasks after each. It returns the number of
// timers fired.
func (m *Manual) Advance(d time.Duration) int {
	m.Flush()
	target := m.now + d
	fired := 0
	for {
		t := m.nextDue(target)
		if t == nil {
			break
		}
		if t.at > m.now {
			m.now = t.at
		}
		t.fn()
		fired++
		m.Flush()
	}
	m.now = target
	return fired
}

func (m *Manual) nextDue(target time.Duration) *manualTimer {
	live := m.timers[:0]
	for _, t := range m.timers {
		if !t.canceled {
			live = append(live, t)
		}
	}
	m.timers = live
	sort.SliceStable(m.timers, func(i, j int) bool {
		if m.timers[i].at != m.timers[j].at {
			return m.timers[i].at < m.timers[j].at
		}
		return m.timers[i].seq < m.timers[j].seq
	})
	if len(m.timers) == 0 || m.timers[0].at > target {
		return nil
	}
	t := m.timers[0]
	m.timers = m.timers[1:]
	return t
}

// Now returns the current virtual time.
func (m *Manual) Now() time.Duration { return m.now }

// Pending returns the number of queued tasks and live timers.
func (m *Manual) Pending() (tasks, timers int) {
	for _, t := range m.timers {
		if !t.canceled {
			timers++
		}
	}
	return len(m.queue), timers
}

// Settle flushes tasks and fires every timer regardless of its deadline,
// repeating until nothing is left.
func (m *Manual) Settle() {
	for {
		m.Flush()
		_, timers := m.Pending()
		if timers == 0 {
			return
		}
		var latest time.Duration
		for _, t := range m.timers {
			if !t.canceled && t.at > latest {
				latest = t.at
			}
		}
		m.Advance(latest - m.now)
	}
}
