package isolate

import (
	"sync/atomic"
	"time"

	"github.com/yaoapp/kun/log"
)

// DefaultMonitorInterval how often the watchdog samples heap usage
var DefaultMonitorInterval = 10 * time.Millisecond

// Monitor enforces soft and hard heap limits. The engine binding exposes no
// GC hook, so a watchdog goroutine samples heap statistics on a short ticker
// and terminates the running script when the hard limit is crossed.
type Monitor struct {
	manager  *Manager
	soft     atomic.Uint64
	hard     atomic.Uint64
	softHit  atomic.Bool
	hardHit  atomic.Bool
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// NewMonitor create a monitor and start its watchdog
func NewMonitor(manager *Manager, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}

	monitor := &Monitor{
		manager:  manager,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go monitor.watch()
	return monitor
}

// SetSoftLimit set the soft heap limit in bytes, 0 disables. Resets the
// reached flag.
func (monitor *Monitor) SetSoftLimit(bytes uint64) {
	monitor.soft.Store(bytes)
	monitor.softHit.Store(false)
}

// SetHardLimit set the hard heap limit in bytes, 0 disables. Resets the
// reached flag.
func (monitor *Monitor) SetHardLimit(bytes uint64) {
	monitor.hard.Store(bytes)
	monitor.hardHit.Store(false)
}

// SoftReached the last observed soft limit state
func (monitor *Monitor) SoftReached() bool {
	return monitor.softHit.Load()
}

// HardReached the last observed hard limit state. Sticky until the limit is
// set again.
func (monitor *Monitor) HardReached() bool {
	return monitor.hardHit.Load()
}

// ApplyLowMemoryNotification hint the engine to shrink its heap. Effective
// when v8 was started with --expose-gc, otherwise the hint script is a no-op.
func (monitor *Monitor) ApplyLowMemoryNotification() {
	monitor.manager.Submit(func(env *Env) (interface{}, error) {
		return env.Ctx.RunScript("typeof gc === 'function' && gc()", "<gc>")
	})
}

// Close stop the watchdog and wait for its current sample to finish. Must
// happen before the isolate is disposed.
func (monitor *Monitor) Close() {
	close(monitor.stop)
	<-monitor.done
}

func (monitor *Monitor) watch() {
	defer close(monitor.done)
	ticker := time.NewTicker(monitor.interval)
	defer ticker.Stop()

	for {
		select {
		case <-monitor.stop:
			return
		case <-ticker.C:
			monitor.check()
		}
	}
}

func (monitor *Monitor) check() {
	if monitor.manager.State() != StateRun {
		return
	}

	used := monitor.manager.Isolate().GetHeapStatistics().UsedHeapSize

	if soft := monitor.soft.Load(); soft > 0 && used > soft {
		if !monitor.softHit.Swap(true) {
			log.Warn("[monitor] [%s] soft heap limit reached: %d > %d", monitor.manager.ID(), used, soft)
			monitor.ApplyLowMemoryNotification()
		}
	} else {
		monitor.softHit.Store(false)
	}

	if hard := monitor.hard.Load(); hard > 0 && used > hard {
		if !monitor.hardHit.Swap(true) {
			log.Error("[monitor] [%s] hard heap limit reached: %d > %d, terminating", monitor.manager.ID(), used, hard)
		}
		monitor.manager.Terminate()
	}
}
