package isolate

import "sync"

// Future the completion of a submitted task
type Future struct {
	once sync.Once
	done chan struct{}
	val  interface{}
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolved a future that already holds its result. Used by runtimes that
// execute tasks inline.
func Resolved(val interface{}, err error) *Future {
	future := newFuture()
	future.resolve(val, err)
	return future
}

func (future *Future) resolve(val interface{}, err error) {
	future.once.Do(func() {
		future.val = val
		future.err = err
		close(future.done)
	})
}

// Get block until the task has run and return its result
func (future *Future) Get() (interface{}, error) {
	<-future.done
	return future.val, future.err
}

// Done closed once the result is available
func (future *Future) Done() <-chan struct{} {
	return future.done
}
