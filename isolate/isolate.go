package isolate

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/yaoapp/kun/log"
	"rogchap.com/v8go"
)

// Owner loop states
const (
	// StateRun JavaScript tasks run and microtasks are drained
	StateRun uint32 = 0

	// StateNoJS JavaScript is forbidden, the loop keeps draining cleanup tasks
	StateNoJS uint32 = 1

	// StateStop the loop exits and the isolate is disposed
	StateStop uint32 = 2
)

// Env the engine state handed to tasks on the owner goroutine
type Env struct {
	Iso *v8go.Isolate
	Ctx *v8go.Context
}

// Task a callable executed on the owner goroutine
type Task func(env *Env) (interface{}, error)

type job struct {
	run    Task
	future *Future
}

// Manager owns a v8 isolate and its single global context. The isolate is
// created on a dedicated goroutine pinned to an OS thread, and that goroutine
// is the only one ever allowed to touch engine state. Anything that wants to
// use the engine gets in line through Submit.
type Manager struct {
	id         string
	mutex      sync.Mutex
	cond       *sync.Cond
	queue      []*job
	state      atomic.Uint32
	terminated atomic.Bool
	exited     bool
	iso        *v8go.Isolate
	env        *Env
	done       chan struct{}
}

// NewManager create a manager and block until its isolate is up
func NewManager() *Manager {
	manager := &Manager{
		id:   uuid.New().String(),
		done: make(chan struct{}),
	}
	manager.cond = sync.NewCond(&manager.mutex)

	ready := make(chan struct{})
	go manager.pump(ready)
	<-ready

	log.Trace("[isolate] [%s] owner loop started", manager.id)
	return manager
}

// ID the manager instance id used in log lines
func (manager *Manager) ID() string {
	return manager.id
}

// Isolate the engine isolate. Cross-goroutine use is limited to the engine
// calls that are safe off the owner goroutine (heap statistics, termination).
func (manager *Manager) Isolate() *v8go.Isolate {
	return manager.iso
}

// State the current loop state
func (manager *Manager) State() uint32 {
	return manager.state.Load()
}

// Submit queue a task for the owner goroutine. Tasks run in FIFO order with
// respect to submission. Submit never blocks; a task error is delivered
// through the returned future, and so is an error when the owner loop has
// already exited.
func (manager *Manager) Submit(task Task) *Future {
	future := newFuture()

	manager.mutex.Lock()
	if manager.exited {
		manager.mutex.Unlock()
		future.resolve(nil, fmt.Errorf("isolate %s is stopped", manager.id))
		return future
	}
	manager.queue = append(manager.queue, &job{run: task, future: future})
	manager.cond.Signal()
	manager.mutex.Unlock()

	return future
}

// Terminate request the engine to abort the currently executing script.
// Safe to call from any goroutine. Idempotent.
func (manager *Manager) Terminate() {
	manager.terminated.Store(true)
	manager.iso.TerminateExecution()
}

// WasTerminated check whether a termination request landed since the current
// task began
func (manager *Manager) WasTerminated() bool {
	return manager.terminated.Load()
}

// StopJavaScript forbid further JavaScript execution while keeping the loop
// alive for cleanup tasks. Also aborts the current script.
func (manager *Manager) StopJavaScript() {
	manager.changeState(StateNoJS)
	manager.Terminate()
}

// Close transition to stop, wait for the owner goroutine to drain and the
// isolate to be disposed
func (manager *Manager) Close() {
	manager.changeState(StateStop)
	<-manager.done
	log.Trace("[isolate] [%s] owner loop stopped", manager.id)
}

// changeState publishes the new state, then submits a no-op task so the loop
// wakes up and observes it.
func (manager *Manager) changeState(state uint32) {
	manager.state.Store(state)
	manager.Submit(func(env *Env) (interface{}, error) { return nil, nil })
}

func (manager *Manager) pump(ready chan struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	iso := v8go.NewIsolate()
	ctx := v8go.NewContext(iso)
	manager.iso = iso
	manager.env = &Env{Iso: iso, Ctx: ctx}
	close(ready)

	for manager.State() == StateRun {
		manager.next().exec(manager)
		if manager.State() == StateRun {
			ctx.PerformMicrotaskCheckpoint()
		}
	}

	for manager.State() == StateNoJS {
		manager.next().exec(manager)
	}

	// Drain the residue so no future is left hanging
	for {
		job := manager.tryNext()
		if job == nil {
			break
		}
		job.exec(manager)
	}

	// A submit can still slip in between the drain observing an empty queue
	// and the exited flag going up; resolve whatever it left behind.
	manager.mutex.Lock()
	manager.exited = true
	leftover := manager.queue
	manager.queue = nil
	manager.mutex.Unlock()

	for _, job := range leftover {
		job.future.resolve(nil, fmt.Errorf("isolate %s is stopped", manager.id))
	}

	ctx.Close()
	iso.Dispose()
	close(manager.done)
}

// next blocks until a task is queued. State changes are always accompanied by
// a no-op task, so the wait cannot miss them.
func (manager *Manager) next() *job {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()
	for len(manager.queue) == 0 {
		manager.cond.Wait()
	}
	job := manager.queue[0]
	manager.queue = manager.queue[1:]
	return job
}

func (manager *Manager) tryNext() *job {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()
	if len(manager.queue) == 0 {
		return nil
	}
	job := manager.queue[0]
	manager.queue = manager.queue[1:]
	return job
}

func (job *job) exec(manager *Manager) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("[isolate] [%s] task panic: %v", manager.id, r)
			job.future.resolve(nil, fmt.Errorf("task panic: %v", r))
		}
	}()

	manager.terminated.Store(false)
	res, err := job.run(manager.env)
	job.future.resolve(res, err)
}
