package racer

import (
	"strings"
	"sync"

	"github.com/yaoapp/kun/log"
	"github.com/yaoapp/racer/value"
	"rogchap.com/v8go"
)

// Callback delivers an async result to the client. It may be invoked from
// the owner goroutine; ownership of the handle transfers to the client,
// which must release it with FreeValue.
type Callback func(callbackID uint64, result *value.Handle)

var initOnce sync.Once
var singleThreaded bool
var runtimeOption = &Option{}

var contextMutex sync.Mutex
var contexts = map[uint64]*Context{}
var nextContextID uint64

func init() {
	runtimeOption.Validate()
}

// Init configure the engine. Must be called at most once before any context
// is created; later calls are no-ops. The icu and snapshot paths are part of
// the boundary contract but the embedded engine links its own data, so they
// are accepted and ignored.
func Init(flags string, icuPath string, snapshotPath string) {
	initOnce.Do(func() {
		if strings.Contains(flags, "--single-threaded") {
			singleThreaded = true
		}
		if fields := strings.Fields(flags); len(fields) > 0 {
			v8go.SetFlags(fields...)
		}
		log.Trace("[racer] engine initialized, flags=%q icu=%q snapshot=%q", flags, icuPath, snapshotPath)
	})
}

// SetOption replace the runtime option applied to contexts created later
func SetOption(option *Option) {
	option.Validate()
	runtimeOption = option
}

// SingleThreaded whether init requested the single-threaded platform
func SingleThreaded() bool {
	return singleThreaded
}

// Version the embedded engine version
func Version() string {
	return v8go.Version()
}

// IsUsingSandbox whether the engine was built with the v8 sandbox. The stock
// embedded build does not enable it.
func IsUsingSandbox() bool {
	return false
}

// NewContext create a context and return its id
func NewContext(callback Callback) uint64 {
	context := newContext(callback, runtimeOption)

	contextMutex.Lock()
	nextContextID++
	id := nextContextID
	context.id = id
	contexts[id] = context
	contextMutex.Unlock()

	log.Trace("[racer] context %d created", id)
	return id
}

// FreeContext tear down a context. Unknown ids are ignored.
func FreeContext(id uint64) {
	contextMutex.Lock()
	context := contexts[id]
	delete(contexts, id)
	contextMutex.Unlock()

	if context != nil {
		context.Close()
		log.Trace("[racer] context %d freed", id)
	}
}

// ContextCount the number of live contexts
func ContextCount() int {
	contextMutex.Lock()
	defer contextMutex.Unlock()
	return len(contexts)
}

// ContextIDs the ids of live contexts
func ContextIDs() []uint64 {
	contextMutex.Lock()
	defer contextMutex.Unlock()
	ids := make([]uint64, 0, len(contexts))
	for id := range contexts {
		ids = append(ids, id)
	}
	return ids
}

func getContext(id uint64) *Context {
	contextMutex.Lock()
	defer contextMutex.Unlock()
	return contexts[id]
}

// Eval evaluate a script asynchronously. Returns the task id, 0 when the
// context is gone.
func Eval(id uint64, code *value.Handle, callbackID uint64) uint64 {
	context := getContext(id)
	if context == nil {
		return 0
	}
	return context.Eval(code, callbackID)
}

// EvalTS transform TypeScript source and evaluate the result asynchronously
func EvalTS(id uint64, code *value.Handle, callbackID uint64) uint64 {
	context := getContext(id)
	if context == nil {
		return 0
	}
	return context.EvalTS(code, callbackID)
}

// CallFunction call a function value asynchronously
func CallFunction(id uint64, fn, this, argv *value.Handle, callbackID uint64) uint64 {
	context := getContext(id)
	if context == nil {
		return 0
	}
	return context.CallFunction(fn, this, argv, callbackID)
}

// CancelTask request cooperative cancellation of a task
func CancelTask(id uint64, taskID uint64) {
	if context := getContext(id); context != nil {
		context.CancelTask(taskID)
	}
}

// AllocInt allocate an integer-payload value
func AllocInt(id uint64, val int64, tag value.Tag) *value.Handle {
	context := getContext(id)
	if context == nil {
		return nil
	}
	return context.AllocInt(val, tag)
}

// AllocDouble allocate a double-payload value
func AllocDouble(id uint64, val float64, tag value.Tag) *value.Handle {
	context := getContext(id)
	if context == nil {
		return nil
	}
	return context.AllocDouble(val, tag)
}

// AllocString allocate a string-payload value
func AllocString(id uint64, val string, tag value.Tag) *value.Handle {
	context := getContext(id)
	if context == nil {
		return nil
	}
	return context.AllocString(val, tag)
}

// FreeValue release a value by handle
func FreeValue(id uint64, handle *value.Handle) {
	if context := getContext(id); context != nil {
		context.FreeValue(handle)
	}
}

// ValueCount the number of live values in a context
func ValueCount(id uint64) int {
	context := getContext(id)
	if context == nil {
		return 0
	}
	return context.ValueCount()
}

// GetIdentityHash a stable identity hash of an object value
func GetIdentityHash(id uint64, obj *value.Handle) *value.Handle {
	context := getContext(id)
	if context == nil {
		return nil
	}
	return context.GetIdentityHash(obj)
}

// GetOwnPropertyNames the own property names of an object value
func GetOwnPropertyNames(id uint64, obj *value.Handle) *value.Handle {
	context := getContext(id)
	if context == nil {
		return nil
	}
	return context.GetOwnPropertyNames(obj)
}

// GetObjectItem read a property
func GetObjectItem(id uint64, obj, key *value.Handle) *value.Handle {
	context := getContext(id)
	if context == nil {
		return nil
	}
	return context.GetObjectItem(obj, key)
}

// SetObjectItem write a property
func SetObjectItem(id uint64, obj, key, val *value.Handle) *value.Handle {
	context := getContext(id)
	if context == nil {
		return nil
	}
	return context.SetObjectItem(obj, key, val)
}

// DelObjectItem delete a property
func DelObjectItem(id uint64, obj, key *value.Handle) *value.Handle {
	context := getContext(id)
	if context == nil {
		return nil
	}
	return context.DelObjectItem(obj, key)
}

// SpliceArray splice an array value
func SpliceArray(id uint64, obj *value.Handle, start, deleteCount int32, newVal *value.Handle) *value.Handle {
	context := getContext(id)
	if context == nil {
		return nil
	}
	return context.SpliceArray(obj, start, deleteCount, newVal)
}

// ArrayPush push onto an array value
func ArrayPush(id uint64, obj, val *value.Handle) *value.Handle {
	context := getContext(id)
	if context == nil {
		return nil
	}
	return context.ArrayPush(obj, val)
}

// MakeJSCallback install a JS function that re-enters the client
func MakeJSCallback(id uint64, callbackID uint64) *value.Handle {
	context := getContext(id)
	if context == nil {
		return nil
	}
	return context.MakeJSCallback(callbackID)
}

// HeapStats a JSON document of heap statistics
func HeapStats(id uint64) *value.Handle {
	context := getContext(id)
	if context == nil {
		return nil
	}
	return context.HeapStats()
}

// HeapSnapshot the full heap statistics record as JSON
func HeapSnapshot(id uint64) *value.Handle {
	context := getContext(id)
	if context == nil {
		return nil
	}
	return context.HeapSnapshot()
}

// SetHardMemoryLimit terminate execution when the heap grows past the limit
func SetHardMemoryLimit(id uint64, bytes uint64) {
	if context := getContext(id); context != nil {
		context.monitor.SetHardLimit(bytes)
	}
}

// SetSoftMemoryLimit hint the engine when the heap grows past the limit
func SetSoftMemoryLimit(id uint64, bytes uint64) {
	if context := getContext(id); context != nil {
		context.monitor.SetSoftLimit(bytes)
	}
}

// HardMemoryLimitReached the last observed hard limit state
func HardMemoryLimitReached(id uint64) bool {
	context := getContext(id)
	return context != nil && context.monitor.HardReached()
}

// SoftMemoryLimitReached the last observed soft limit state
func SoftMemoryLimitReached(id uint64) bool {
	context := getContext(id)
	return context != nil && context.monitor.SoftReached()
}

// LowMemoryNotification forward a low-memory hint to the engine
func LowMemoryNotification(id uint64) {
	if context := getContext(id); context != nil {
		context.monitor.ApplyLowMemoryNotification()
	}
}
