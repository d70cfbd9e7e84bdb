package availability

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/diorder/diorder/model"
)

// IsOpen reports whether now falls inside the merchant's opening-hours
// window. Windows are same-day only: open <= now < close on the local clock.
// Malformed schedules evaluate to closed.
func IsOpen(merchant *model.Merchant, now time.Time) bool {
	open, err := parseClock(merchant.OpeningHours.Open)
	if err != nil {
		return false
	}
	closeAt, err := parseClock(merchant.OpeningHours.Close)
	if err != nil {
		return false
	}

	nowMinutes := now.Hour()*60 + now.Minute()
	return open <= nowMinutes && nowMinutes < closeAt
}

// IsOrderable combines the opening-hours window with the global service flag.
func IsOrderable(merchant *model.Merchant, serviceOpen bool, now time.Time) bool {
	return serviceOpen && IsOpen(merchant, now)
}

// parseClock converts "HH:MM" to minutes since midnight.
func parseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, strconv.ErrSyntax
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, strconv.ErrRange
	}
	return hour*60 + minute, nil
}

// Evaluator owns the push-updated global service flag and a clock, so callers
// get a single orderable answer per merchant.
type Evaluator struct {
	mu          sync.RWMutex
	serviceOpen bool
	now         func() time.Time
}

func NewEvaluator() *Evaluator {
	return &Evaluator{
		// fail-open: the service reads as open until told otherwise
		serviceOpen: true,
		now:         time.Now,
	}
}

// NewEvaluatorWithClock injects the clock, for tests.
func NewEvaluatorWithClock(now func() time.Time) *Evaluator {
	e := NewEvaluator()
	e.now = now
	return e
}

func (e *Evaluator) SetServiceOpen(open bool) {
	e.mu.Lock()
	e.serviceOpen = open
	e.mu.Unlock()
}

func (e *Evaluator) ServiceOpen() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.serviceOpen
}

func (e *Evaluator) Orderable(merchant *model.Merchant) bool {
	if merchant == nil {
		return false
	}
	return IsOrderable(merchant, e.ServiceOpen(), e.now())
}

// Run recomputes availability once per interval while the context lives,
// invoking onTick after each pass. The time-of-day component is polled; the
// service flag arrives by push.
func (e *Evaluator) Run(ctx context.Context, interval time.Duration, onTick func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if onTick != nil {
				onTick()
			}
		}
	}
}
