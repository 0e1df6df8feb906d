package monitoring

import (
	"math"
	"sync"
	"time"

	"github.com/sarchlab/netsim/hooking"
	"github.com/sarchlab/netsim/timing"
)

// A ProgressBar tracks how far a long-running job has come.
type ProgressBar struct {
	lock      sync.Mutex
	ID        string
	Name      string
	StartTime time.Time
	Total     uint64
	Finished  uint64
}

type progressBarRsp struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Total     uint64    `json:"total"`
	Finished  uint64    `json:"finished"`
}

// SetFinished sets the finished amount.
func (b *ProgressBar) SetFinished(amount uint64) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.Finished = min(amount, b.Total)
}

func (b *ProgressBar) snapshot() progressBarRsp {
	b.lock.Lock()
	defer b.lock.Unlock()

	return progressBarRsp{
		ID:        b.ID,
		Name:      b.Name,
		StartTime: b.StartTime,
		Total:     b.Total,
		Finished:  b.Finished,
	}
}

// Progress returns the finished fraction.
func (b *ProgressBar) Progress() float64 {
	b.lock.Lock()
	defer b.lock.Unlock()

	if b.Total == 0 {
		return 1
	}

	return float64(b.Finished) / float64(b.Total)
}

// clockProgress moves a bar along with simulated time, in microseconds.
type clockProgress struct {
	bar *ProgressBar
}

func (h clockProgress) Func(ctx hooking.HookCtx) {
	if ctx.Pos != timing.HookPosAfterEvent {
		return
	}

	evt := ctx.Item.(timing.ScheduledEvent)
	h.bar.SetFinished(microseconds(evt.Time))
}

func microseconds(t timing.VTimeInSec) uint64 {
	if math.IsInf(t, 1) || t > math.MaxUint64/1e6 {
		return math.MaxUint64
	}

	return uint64(t * 1e6)
}
