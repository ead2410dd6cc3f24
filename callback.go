package racer

import (
	"sync"

	"github.com/yaoapp/kun/log"
	"github.com/yaoapp/racer/isolate"
	"github.com/yaoapp/racer/value"
	"rogchap.com/v8go"
)

// The produced JS function carries only a pair of numbers: the caller id of
// the owning context and the client's callback id. The caller is resolved
// through this process-wide registry at invocation time, so a JS timer that
// fires after its context is torn down resolves to nothing and the call is
// dropped instead of reaching freed state.
var callerMutex sync.Mutex
var callers = map[uint64]*Context{}
var nextCallerID uint64

func registerCaller(context *Context) uint64 {
	callerMutex.Lock()
	defer callerMutex.Unlock()
	nextCallerID++
	callers[nextCallerID] = context
	return nextCallerID
}

func unregisterCaller(id uint64) {
	callerMutex.Lock()
	defer callerMutex.Unlock()
	delete(callers, id)
}

func lookupCaller(id uint64) *Context {
	callerMutex.Lock()
	defer callerMutex.Unlock()
	return callers[id]
}

// makeJSCallback produce a JS function that re-enters the client with
// (callbackID, argv). Runs on the owner goroutine.
func makeJSCallback(env *isolate.Env, factory *value.Factory, callerID, callbackID uint64) *value.Value {
	tmpl := v8go.NewFunctionTemplate(env.Iso, func(info *v8go.FunctionCallbackInfo) *v8go.Value {
		onJSCallback(info, callerID, callbackID)
		return v8go.Undefined(info.Context().Isolate())
	})

	fn := tmpl.GetFunction(env.Ctx)
	return factory.FromAny(env.Ctx, fn.Value)
}

func onJSCallback(info *v8go.FunctionCallbackInfo, callerID, callbackID uint64) {
	caller := lookupCaller(callerID)
	if caller == nil {
		log.Trace("[callback] caller %d is gone, call dropped", callerID)
		return
	}

	ctx := info.Context()
	argv, err := packArray(ctx, info.Args())
	if err != nil {
		log.Error("[callback] packing arguments failed: %s", err.Error())
		return
	}

	caller.deliver(callbackID, caller.factory.FromAny(ctx, argv.Value))
}

func packArray(ctx *v8go.Context, args []*v8go.Value) (*v8go.Object, error) {
	ctorVal, err := ctx.Global().Get("Array")
	if err != nil {
		return nil, err
	}

	ctor, err := ctorVal.AsFunction()
	if err != nil {
		return nil, err
	}

	arr, err := ctor.NewInstance()
	if err != nil {
		return nil, err
	}

	for i, arg := range args {
		if err := arr.SetIdx(uint32(i), arg); err != nil {
			return nil, err
		}
	}

	return arr, nil
}
