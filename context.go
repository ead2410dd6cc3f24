package racer

import (
	"fmt"

	"github.com/yaoapp/kun/log"
	"github.com/yaoapp/racer/isolate"
	"github.com/yaoapp/racer/objects/console"
	"github.com/yaoapp/racer/objects/timer"
	"github.com/yaoapp/racer/task"
	"github.com/yaoapp/racer/value"
)

// setupScript installs the identity hash helper into the global scope. The
// helper backs GetIdentityHash; the engine binding exposes no native
// identity hash, so objects get a stable id from a WeakMap on first use.
const setupScript = `(function() {
	const seen = new WeakMap();
	let next = 1;
	Object.defineProperty(globalThis, '__racer_hash', {
		enumerable: false,
		value: function(o) {
			if (o === null || (typeof o !== 'object' && typeof o !== 'function')) {
				return 0;
			}
			if (!seen.has(o)) {
				seen.set(o, next++);
			}
			return seen.get(o);
		}
	});
})()`

// Context the client-facing composition: one isolate with its owner
// goroutine, the collector, the memory monitor, the value registry and
// factory, the operation modules and the task manager.
type Context struct {
	id          uint64
	manager     *isolate.Manager
	collector   *isolate.Collector
	monitor     *isolate.Monitor
	registry    *value.Registry
	factory     *value.Factory
	tasks       *task.Manager
	evaluator   *evaluator
	manipulator *manipulator
	heap        *heapReporter
	callerID    uint64
	callback    Callback
}

func newContext(callback Callback, option *Option) *Context {
	manager := isolate.NewManager()
	collector := isolate.NewCollector(manager)
	factory := value.NewFactory(collector)

	context := &Context{
		manager:   manager,
		collector: collector,
		monitor:   isolate.NewMonitor(manager, option.MonitorInterval),
		registry:  value.NewRegistry(),
		factory:   factory,
		callback:  callback,
	}

	context.tasks = task.NewManager(manager)
	context.evaluator = newEvaluator(manager, factory, context.monitor, option.ScriptCacheSize)
	context.manipulator = &manipulator{factory: factory}
	context.heap = &heapReporter{factory: factory}
	context.callerID = registerCaller(context)

	// Install the runtime environment on the owner goroutine before any
	// client work can be queued behind it.
	context.manager.Submit(func(env *isolate.Env) (interface{}, error) {
		if err := console.New(option.Mode).Set("console", env.Ctx); err != nil {
			return nil, err
		}
		if err := timer.New(manager).Set(env.Ctx); err != nil {
			return nil, err
		}
		return env.Ctx.RunScript(setupScript, "<setup>")
	}).Get()

	return context
}

// Close tear down the context. JavaScript is rejected first while the loop
// keeps draining cleanup work, then the registry and collector empty out,
// and only then is the isolate disposed.
func (context *Context) Close() {
	unregisterCaller(context.callerID)
	context.manager.StopJavaScript()
	context.registry.Drain()
	context.collector.Wait()
	context.monitor.Close()
	context.manager.Close()
}

// ValueCount the number of live values
func (context *Context) ValueCount() int {
	return context.registry.Count()
}

// remember publish a value and hand its handle to the client
func (context *Context) remember(val *value.Value) *value.Handle {
	return context.registry.Remember(val)
}

// arg look up an argument handle. Returns the value, or an error value when
// the handle is unknown.
func (context *Context) arg(handle *value.Handle, name string) (*value.Value, *value.Value) {
	val := context.registry.Lookup(handle)
	if val == nil {
		return nil, context.factory.FromString(fmt.Sprintf("Bad handle: %s", name), value.TagValueException)
	}
	return val, nil
}

// AllocInt allocate an integer-payload value from the client
func (context *Context) AllocInt(val int64, tag value.Tag) *value.Handle {
	return context.remember(context.factory.FromInt(val, tag))
}

// AllocDouble allocate a double-payload value from the client
func (context *Context) AllocDouble(val float64, tag value.Tag) *value.Handle {
	return context.remember(context.factory.FromDouble(val, tag))
}

// AllocString allocate a string-payload value from the client
func (context *Context) AllocString(val string, tag value.Tag) *value.Handle {
	return context.remember(context.factory.FromString(val, tag))
}

// FreeValue drop the registry's reference to a value
func (context *Context) FreeValue(handle *value.Handle) {
	context.registry.Forget(handle)
}

// deliver hand an async result to the client callback
func (context *Context) deliver(callbackID uint64, val *value.Value) {
	context.callback(callbackID, context.remember(val))
}

// runTask schedule a body through the cancelable task manager. Exactly one
// of the completion and cancellation callbacks fires.
func (context *Context) runTask(body task.Body, callbackID uint64) uint64 {
	return context.tasks.Schedule(
		body,
		func(result interface{}) {
			context.deliver(callbackID, result.(*value.Value))
		},
		func(result interface{}) {
			context.deliver(callbackID, context.factory.FromString("execution terminated", value.TagTerminatedException))
		},
	)
}

// Eval evaluate a script value asynchronously
func (context *Context) Eval(code *value.Handle, callbackID uint64) uint64 {
	codeVal, errVal := context.arg(code, "code")
	if errVal != nil {
		return context.runTask(func(env *isolate.Env) interface{} { return errVal }, callbackID)
	}

	return context.runTask(func(env *isolate.Env) interface{} {
		return context.evaluator.Eval(env, codeVal)
	}, callbackID)
}

// EvalTS transform TypeScript source, then evaluate it asynchronously
func (context *Context) EvalTS(code *value.Handle, callbackID uint64) uint64 {
	codeVal, errVal := context.arg(code, "code")
	if errVal != nil {
		return context.runTask(func(env *isolate.Env) interface{} { return errVal }, callbackID)
	}

	if codeVal.Tag() != value.TagString {
		bad := context.factory.FromString("code is not a string", value.TagValueException)
		return context.runTask(func(env *isolate.Env) interface{} { return bad }, callbackID)
	}

	source, err := TransformTS([]byte(codeVal.Handle().String()))
	if err != nil {
		bad := context.factory.FromString(err.Error(), value.TagParseException)
		return context.runTask(func(env *isolate.Env) interface{} { return bad }, callbackID)
	}

	return context.runTask(func(env *isolate.Env) interface{} {
		return context.evaluator.EvalSource(env, string(source))
	}, callbackID)
}

// CallFunction call a function value asynchronously. The receiver may be a
// nil handle, in which case this is undefined.
func (context *Context) CallFunction(fn, this, argv *value.Handle, callbackID uint64) uint64 {
	fnVal, errVal := context.arg(fn, "func")
	if errVal != nil {
		return context.runTask(func(env *isolate.Env) interface{} { return errVal }, callbackID)
	}

	var thisVal *value.Value
	if this != nil {
		thisVal, errVal = context.arg(this, "this")
		if errVal != nil {
			return context.runTask(func(env *isolate.Env) interface{} { return errVal }, callbackID)
		}
	}

	argvVal, errVal := context.arg(argv, "argv")
	if errVal != nil {
		return context.runTask(func(env *isolate.Env) interface{} { return errVal }, callbackID)
	}

	return context.runTask(func(env *isolate.Env) interface{} {
		return context.manipulator.Call(env, fnVal, thisVal, argvVal)
	}, callbackID)
}

// CancelTask request cooperative cancellation of a running task
func (context *Context) CancelTask(taskID uint64) {
	context.tasks.Cancel(taskID)
}

// submit run a module operation on the owner goroutine and wait for the
// resulting value
func (context *Context) submit(fn func(env *isolate.Env) *value.Value) *value.Handle {
	res, err := context.manager.Submit(func(env *isolate.Env) (interface{}, error) {
		return fn(env), nil
	}).Get()

	if err != nil {
		log.Error("[racer] context %d operation failed: %s", context.id, err.Error())
		return nil
	}

	return context.remember(res.(*value.Value))
}

// GetIdentityHash the identity hash of an object value
func (context *Context) GetIdentityHash(obj *value.Handle) *value.Handle {
	objVal, errVal := context.arg(obj, "obj")
	if errVal != nil {
		return context.remember(errVal)
	}

	return context.submit(func(env *isolate.Env) *value.Value {
		return context.manipulator.IdentityHash(env, objVal)
	})
}

// GetOwnPropertyNames the own property names of an object value as an array
func (context *Context) GetOwnPropertyNames(obj *value.Handle) *value.Handle {
	objVal, errVal := context.arg(obj, "obj")
	if errVal != nil {
		return context.remember(errVal)
	}

	return context.submit(func(env *isolate.Env) *value.Value {
		return context.manipulator.OwnPropertyNames(env, objVal)
	})
}

// GetObjectItem read a property from an object value
func (context *Context) GetObjectItem(obj, key *value.Handle) *value.Handle {
	objVal, errVal := context.arg(obj, "obj")
	if errVal != nil {
		return context.remember(errVal)
	}

	keyVal, errVal := context.arg(key, "key")
	if errVal != nil {
		return context.remember(errVal)
	}

	return context.submit(func(env *isolate.Env) *value.Value {
		return context.manipulator.Get(env, objVal, keyVal)
	})
}

// SetObjectItem write a property on an object value
func (context *Context) SetObjectItem(obj, key, val *value.Handle) *value.Handle {
	objVal, errVal := context.arg(obj, "obj")
	if errVal != nil {
		return context.remember(errVal)
	}

	keyVal, errVal := context.arg(key, "key")
	if errVal != nil {
		return context.remember(errVal)
	}

	valVal, errVal := context.arg(val, "val")
	if errVal != nil {
		return context.remember(errVal)
	}

	return context.submit(func(env *isolate.Env) *value.Value {
		return context.manipulator.Set(env, objVal, keyVal, valVal)
	})
}

// DelObjectItem delete a property from an object value
func (context *Context) DelObjectItem(obj, key *value.Handle) *value.Handle {
	objVal, errVal := context.arg(obj, "obj")
	if errVal != nil {
		return context.remember(errVal)
	}

	keyVal, errVal := context.arg(key, "key")
	if errVal != nil {
		return context.remember(errVal)
	}

	return context.submit(func(env *isolate.Env) *value.Value {
		return context.manipulator.Del(env, objVal, keyVal)
	})
}

// SpliceArray splice an array value. The new value handle is optional.
func (context *Context) SpliceArray(obj *value.Handle, start, deleteCount int32, newVal *value.Handle) *value.Handle {
	objVal, errVal := context.arg(obj, "obj")
	if errVal != nil {
		return context.remember(errVal)
	}

	var newValVal *value.Value
	if newVal != nil {
		newValVal, errVal = context.arg(newVal, "new_val")
		if errVal != nil {
			return context.remember(errVal)
		}
	}

	return context.submit(func(env *isolate.Env) *value.Value {
		return context.manipulator.Splice(env, objVal, start, deleteCount, newValVal)
	})
}

// ArrayPush push a value onto an array value
func (context *Context) ArrayPush(obj, val *value.Handle) *value.Handle {
	objVal, errVal := context.arg(obj, "obj")
	if errVal != nil {
		return context.remember(errVal)
	}

	valVal, errVal := context.arg(val, "new_val")
	if errVal != nil {
		return context.remember(errVal)
	}

	return context.submit(func(env *isolate.Env) *value.Value {
		return context.manipulator.Push(env, objVal, valVal)
	})
}

// MakeJSCallback produce a JS function that re-enters the client with the
// given callback id
func (context *Context) MakeJSCallback(callbackID uint64) *value.Handle {
	return context.submit(func(env *isolate.Env) *value.Value {
		return makeJSCallback(env, context.factory, context.callerID, callbackID)
	})
}

// HeapStats a JSON document of heap statistics as a string value
func (context *Context) HeapStats() *value.Handle {
	return context.submit(func(env *isolate.Env) *value.Value {
		return context.heap.Stats(env)
	})
}

// HeapSnapshot the full heap statistics record as a string value
func (context *Context) HeapSnapshot() *value.Handle {
	return context.submit(func(env *isolate.Env) *value.Value {
		return context.heap.Snapshot(env)
	})
}
