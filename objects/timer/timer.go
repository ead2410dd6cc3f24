package timer

import (
	"sync"
	"time"

	"github.com/yaoapp/kun/log"
	"github.com/yaoapp/racer/isolate"
	"rogchap.com/v8go"
)

// Runtime the slice of the isolate manager timers need. Fired callbacks
// re-enter the engine through Submit so they run on the owner goroutine.
type Runtime interface {
	Submit(task isolate.Task) *isolate.Future
	State() uint32
}

// Object installs setTimeout and clearTimeout into a context. The engine
// binding ships no platform timer queue, so delayed tasks are kept on the
// Go side and join the owner loop when they fire.
type Object struct {
	runtime Runtime
	mutex   sync.Mutex
	timers  map[int32]*entry
	nextID  int32
}

type entry struct {
	timer *time.Timer
	fn    *v8go.Function
	args  []v8go.Valuer
}

// New create a timer object on top of the runtime
func New(runtime Runtime) *Object {
	return &Object{runtime: runtime, timers: map[int32]*entry{}}
}

// Set install the timer functions into the context's global scope
func (obj *Object) Set(ctx *v8go.Context) error {
	iso := ctx.Isolate()

	if err := ctx.Global().Set("setTimeout", obj.setTimeout(iso).GetFunction(ctx)); err != nil {
		return err
	}

	return ctx.Global().Set("clearTimeout", obj.clearTimeout(iso).GetFunction(ctx))
}

func (obj *Object) setTimeout(iso *v8go.Isolate) *v8go.FunctionTemplate {
	return v8go.NewFunctionTemplate(iso, func(info *v8go.FunctionCallbackInfo) *v8go.Value {
		args := info.Args()
		if len(args) < 1 || !args[0].IsFunction() {
			log.Error("setTimeout: callback is not a function")
			return v8go.Undefined(iso)
		}

		fn, err := args[0].AsFunction()
		if err != nil {
			log.Error("setTimeout: %s", err.Error())
			return v8go.Undefined(iso)
		}

		delay := time.Duration(0)
		if len(args) > 1 && args[1].IsNumber() {
			delay = time.Duration(args[1].Int32()) * time.Millisecond
		}

		extra := []v8go.Valuer{}
		if len(args) > 2 {
			for _, arg := range args[2:] {
				extra = append(extra, arg)
			}
		}

		id := obj.schedule(fn, extra, delay)

		idVal, err := v8go.NewValue(iso, id)
		if err != nil {
			return v8go.Undefined(iso)
		}
		return idVal
	})
}

func (obj *Object) clearTimeout(iso *v8go.Isolate) *v8go.FunctionTemplate {
	return v8go.NewFunctionTemplate(iso, func(info *v8go.FunctionCallbackInfo) *v8go.Value {
		args := info.Args()
		if len(args) < 1 {
			return v8go.Undefined(iso)
		}

		obj.cancel(args[0].Int32())
		return v8go.Undefined(iso)
	})
}

func (obj *Object) schedule(fn *v8go.Function, args []v8go.Valuer, delay time.Duration) int32 {
	obj.mutex.Lock()
	obj.nextID++
	id := obj.nextID
	item := &entry{fn: fn, args: args}
	obj.timers[id] = item
	obj.mutex.Unlock()

	item.timer = time.AfterFunc(delay, func() {
		obj.fire(id)
	})

	return id
}

func (obj *Object) cancel(id int32) {
	obj.mutex.Lock()
	defer obj.mutex.Unlock()

	if item, has := obj.timers[id]; has {
		if item.timer != nil {
			item.timer.Stop()
		}
		delete(obj.timers, id)
	}
}

func (obj *Object) fire(id int32) {
	obj.mutex.Lock()
	item, has := obj.timers[id]
	delete(obj.timers, id)
	obj.mutex.Unlock()

	if !has {
		return
	}

	obj.runtime.Submit(func(env *isolate.Env) (interface{}, error) {
		if obj.runtime.State() != isolate.StateRun {
			return nil, nil
		}

		if _, err := item.fn.Call(v8go.Undefined(env.Iso), item.args...); err != nil {
			log.Error("setTimeout: callback failed: %s", err.Error())
		}
		return nil, nil
	})
}
