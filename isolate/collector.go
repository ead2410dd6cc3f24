package isolate

import (
	"sync"

	"rogchap.com/v8go"
)

// Collector defers destruction of engine-owned handles. Any goroutine may
// drop a value; the actual release is batched onto the owner goroutine,
// because releasing a handle touches isolate state.
type Collector struct {
	manager  *Manager
	mutex    sync.Mutex
	cond     *sync.Cond
	pending  []*v8go.Value
	inFlight bool
}

// NewCollector create a collector bound to the manager's owner goroutine
func NewCollector(manager *Manager) *Collector {
	collector := &Collector{manager: manager}
	collector.cond = sync.NewCond(&collector.mutex)
	return collector
}

// Collect enqueue a handle for release. Reentrant: when called from the
// owner goroutine the handle just joins the batch and is drained by a later
// release task, so no deadlock is possible.
func (collector *Collector) Collect(val *v8go.Value) {
	collector.mutex.Lock()
	defer collector.mutex.Unlock()

	collector.pending = append(collector.pending, val)

	if collector.inFlight {
		return
	}
	collector.enqueueBatchLocked()
}

func (collector *Collector) enqueueBatchLocked() {
	collector.inFlight = true
	collector.manager.Submit(func(env *Env) (interface{}, error) {
		collector.release()
		return nil, nil
	})
}

// release runs on the owner goroutine. It swaps out the current batch,
// frees it, then rechecks: anything that accumulated meanwhile gets a fresh
// batch, otherwise the in-flight marker clears and waiters are notified.
func (collector *Collector) release() {
	collector.mutex.Lock()
	batch := collector.pending
	collector.pending = nil
	collector.mutex.Unlock()

	for _, val := range batch {
		val.Release()
	}

	collector.mutex.Lock()
	defer collector.mutex.Unlock()

	if len(collector.pending) == 0 {
		collector.inFlight = false
		collector.cond.Broadcast()
		return
	}
	collector.enqueueBatchLocked()
}

// Wait block until no release batch is in flight. Called before the manager
// shuts down so no release task races isolate disposal.
func (collector *Collector) Wait() {
	collector.mutex.Lock()
	defer collector.mutex.Unlock()
	for collector.inFlight {
		collector.cond.Wait()
	}
}
