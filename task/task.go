package task

import (
	"sync"
	"sync/atomic"

	"github.com/yaoapp/kun/log"
	"github.com/yaoapp/racer/isolate"
)

// Task states
const (
	// NotStarted the body has not begun
	NotStarted uint8 = iota

	// Running the body is executing on the owner goroutine
	Running

	// Completed terminal, the body finished and the result was delivered
	Completed

	// Canceled terminal, reachable from any non-terminal state
	Canceled
)

// Runtime the slice of the isolate manager the task machinery needs
type Runtime interface {
	Submit(task isolate.Task) *isolate.Future
	Terminate()
	State() uint32
}

// Body user-visible async work. Runs on the owner goroutine; errors are
// expected to be folded into the returned result.
type Body func(env *isolate.Env) interface{}

// Callback receives the task result. Exactly one of completed or canceled
// fires per task.
type Callback func(result interface{})

// Task a cancelable unit of work. The per-task state machine is the sole
// arbiter between cancellation and completion.
type Task struct {
	id      uint64
	mutex   sync.Mutex
	state   uint8
	runtime Runtime
}

// Manager schedules user-visible async work and tracks per-task lifecycle
type Manager struct {
	runtime Runtime
	mutex   sync.Mutex
	tasks   map[uint64]*Task
	nextID  uint64
}

// NewManager create a task manager on top of the runtime
func NewManager(runtime Runtime) *Manager {
	return &Manager{runtime: runtime, tasks: map[uint64]*Task{}}
}

// Schedule wrap the body in the task state machine and submit it. Returns
// the task id; the id stays live until the task reaches a terminal state.
func (manager *Manager) Schedule(body Body, onCompleted Callback, onCanceled Callback) uint64 {
	task := &Task{
		id:      atomic.AddUint64(&manager.nextID, 1),
		state:   NotStarted,
		runtime: manager.runtime,
	}

	manager.mutex.Lock()
	manager.tasks[task.id] = task
	manager.mutex.Unlock()

	future := manager.runtime.Submit(func(env *isolate.Env) (interface{}, error) {
		defer manager.remove(task.id)

		// JavaScript is forbidden once the loop has left the run state;
		// bodies queued behind the transition are treated as canceled.
		if manager.runtime.State() != isolate.StateRun {
			task.Cancel()
			onCanceled(nil)
			return nil, nil
		}

		if !task.setRunningIfNotCanceled() {
			onCanceled(nil)
			return nil, nil
		}

		result := body(env)

		if !task.setCompleteIfNotCanceled() {
			// Canceled after the body produced a value. The caller may
			// discard the value.
			onCanceled(result)
			return nil, nil
		}

		onCompleted(result)
		return nil, nil
	})

	// A panicking body or a stopped runtime surfaces as a future error; the
	// exactly-one-terminal-callback contract still has to hold.
	go func() {
		if _, err := future.Get(); err != nil {
			defer manager.remove(task.id)
			if task.setCanceledIfNotTerminal() {
				log.Error("[task] %d failed: %s", task.id, err.Error())
				onCanceled(nil)
			}
		}
	}()

	return task.id
}

// Cancel cancel a task by id. Unknown or already terminal ids are a no-op.
func (manager *Manager) Cancel(id uint64) {
	manager.mutex.Lock()
	task := manager.tasks[id]
	manager.mutex.Unlock()

	if task == nil {
		log.Trace("[task] cancel of unknown task %d ignored", id)
		return
	}
	task.Cancel()
}

// Handle make a cancel-on-release handle for internal callers
func (manager *Manager) Handle(id uint64) *Handle {
	return &Handle{manager: manager, id: id}
}

func (manager *Manager) remove(id uint64) {
	manager.mutex.Lock()
	delete(manager.tasks, id)
	manager.mutex.Unlock()
}

// Cancel move to canceled. If the body is running, request engine
// termination so it unwinds. No-op once terminal.
func (task *Task) Cancel() {
	task.mutex.Lock()
	defer task.mutex.Unlock()

	if task.state == Canceled || task.state == Completed {
		return
	}

	if task.state == Running {
		task.runtime.Terminate()
	}

	task.state = Canceled
}

func (task *Task) setCanceledIfNotTerminal() bool {
	task.mutex.Lock()
	defer task.mutex.Unlock()

	if task.state == Canceled || task.state == Completed {
		return false
	}

	task.state = Canceled
	return true
}

func (task *Task) setRunningIfNotCanceled() bool {
	task.mutex.Lock()
	defer task.mutex.Unlock()

	if task.state == Canceled {
		return false
	}

	task.state = Running
	return true
}

func (task *Task) setCompleteIfNotCanceled() bool {
	task.mutex.Lock()
	defer task.mutex.Unlock()

	if task.state == Canceled {
		return false
	}

	task.state = Completed
	return true
}

// State the current state, for tests and diagnostics
func (task *Task) State() uint8 {
	task.mutex.Lock()
	defer task.mutex.Unlock()
	return task.state
}

// Handle cancels its task when released, so an abandoned internal caller
// cannot leak a running script
type Handle struct {
	manager *Manager
	id      uint64
	once    sync.Once
}

// ID the task id
func (handle *Handle) ID() uint64 {
	return handle.id
}

// Cancel cancel the underlying task
func (handle *Handle) Cancel() {
	handle.manager.Cancel(handle.id)
}

// Release cancel the task if it has not reached a terminal state yet
func (handle *Handle) Release() {
	handle.once.Do(func() {
		handle.Cancel()
	})
}
