package timetable

import "sync/atomic"

// Snapshot publishes the current schedule to concurrent readers. Writers
// build a complete new Schedule and swap it in with Store; readers always
// observe a consistent snapshot and never hold a lock while iterating.
type Snapshot struct {
	ptr atomic.Pointer[Schedule]
}

// NewSnapshot returns a snapshot holding an empty schedule.
func NewSnapshot() *Snapshot {
	s := &Snapshot{}
	s.ptr.Store(&Schedule{})
	return s
}

// Load returns the current schedule. The returned value must not be modified.
func (s *Snapshot) Load() *Schedule {
	return s.ptr.Load()
}

// Store atomically replaces the current schedule.
func (s *Snapshot) Store(schedule *Schedule) {
	s.ptr.Store(schedule)
}
