package detector

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

//Scheduler runs one callback per repaint tick. At most one tick is pending at a time.
type Scheduler interface {
	ScheduleNextTick(fn func())
	Cancel()
}

//ClockScheduler fires the pending tick after a fixed interval on the given clock.
//With clock.NewMock the loop can be driven headlessly by advancing the mock.
type ClockScheduler struct {
	mu       sync.Mutex
	clk      clock.Clock
	interval time.Duration
	timer    *clock.Timer
}

//NewClockScheduler returns a scheduler ticking every interval on clk.
func NewClockScheduler(clk clock.Clock, interval time.Duration) *ClockScheduler {
	if clk == nil {
		clk = clock.New()
	}
	return &ClockScheduler{clk: clk, interval: interval}
}

//ScheduleNextTick replaces any pending tick with fn.
func (s *ClockScheduler) ScheduleNextTick(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = s.clk.AfterFunc(s.interval, fn)
}

//Cancel drops the pending tick. It is safe to call more than once.
func (s *ClockScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
