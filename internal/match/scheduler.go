package match

import (
	"sort"
	"sync"
	"time"
)

// TaskFunc runs with the owner's lock held and returns frames to deliver.
type TaskFunc func(now time.Time) []Outbound

type scheduledTask struct {
	id    uint64
	due   time.Time
	timer Timer
}

// Scheduler owns the named, cancellable timers of one session. A task that was
// cancelled or replaced never runs, even if its timer already fired and is
// waiting on the lock.
//
// Schedule, Cancel, CancelAll, Due and Pending must be called with the owner's
// lock held.
type Scheduler struct {
	clock   Clock
	lock    sync.Locker
	deliver func([]Outbound)
	seq     uint64
	tasks   map[string]*scheduledTask
}

func NewScheduler(clock Clock, lock sync.Locker, deliver func([]Outbound)) *Scheduler {
	if clock == nil {
		clock = SystemClock
	}
	return &Scheduler{
		clock:   clock,
		lock:    lock,
		deliver: deliver,
		tasks:   map[string]*scheduledTask{},
	}
}

func (s *Scheduler) Schedule(key string, d time.Duration, fn TaskFunc) time.Time {
	s.Cancel(key)
	s.seq++
	id := s.seq
	t := &scheduledTask{id: id, due: s.clock.Now().Add(d)}
	t.timer = s.clock.AfterFunc(d, func() { s.fire(key, id, fn) })
	s.tasks[key] = t
	return t.due
}

func (s *Scheduler) fire(key string, id uint64, fn TaskFunc) {
	s.lock.Lock()
	defer s.lock.Unlock()
	cur, ok := s.tasks[key]
	if !ok || cur.id != id {
		return
	}
	delete(s.tasks, key)
	outs := fn(s.clock.Now())
	if s.deliver != nil && len(outs) > 0 {
		s.deliver(outs)
	}
}

// Cancel stops the task and reports whether one was pending.
func (s *Scheduler) Cancel(key string) bool {
	t, ok := s.tasks[key]
	if !ok {
		return false
	}
	t.timer.Stop()
	delete(s.tasks, key)
	return true
}

func (s *Scheduler) CancelAll() {
	for key := range s.tasks {
		s.Cancel(key)
	}
}

// Due returns the deadline of a pending task.
func (s *Scheduler) Due(key string) (time.Time, bool) {
	t, ok := s.tasks[key]
	if !ok {
		return time.Time{}, false
	}
	return t.due, true
}

func (s *Scheduler) Pending() []string {
	keys := make([]string, 0, len(s.tasks))
	for k := range s.tasks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
