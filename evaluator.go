package racer

import (
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/yaoapp/kun/log"
	"github.com/yaoapp/racer/isolate"
	"github.com/yaoapp/racer/value"
	"rogchap.com/v8go"
)

// scriptOrigin the origin name used for exception messages
const scriptOrigin = "<anonymous>"

// evaluator compiles and runs scripts on the owner goroutine. Compiled
// scripts are cached per source so repeated evaluation skips the parser.
type evaluator struct {
	manager *isolate.Manager
	factory *value.Factory
	monitor *isolate.Monitor
	cache   *lru.ARCCache
}

func newEvaluator(manager *isolate.Manager, factory *value.Factory, monitor *isolate.Monitor, cacheSize int) *evaluator {
	cache, err := lru.NewARC(cacheSize)
	if err != nil {
		log.Error("[evaluator] script cache disabled: %s", err.Error())
		cache = nil
	}

	return &evaluator{
		manager: manager,
		factory: factory,
		monitor: monitor,
		cache:   cache,
	}
}

// Eval compile and run a script value
func (evaluator *evaluator) Eval(env *isolate.Env, code *value.Value) *value.Value {
	if code.Tag() != value.TagString {
		return evaluator.factory.FromString("code is not a string", value.TagValueException)
	}

	return evaluator.EvalSource(env, code.Handle().String())
}

// EvalSource compile and run raw source
func (evaluator *evaluator) EvalSource(env *isolate.Env, source string) *value.Value {
	script, err := evaluator.compile(env, source)
	if err != nil {
		return evaluator.factory.FromError(err, value.TagParseException)
	}

	result, err := script.Run(env.Ctx)
	if err == nil {
		return evaluator.factory.FromAny(env.Ctx, result)
	}

	// Didn't execute. Find out why, in order: the memory watchdog pulled
	// the plug, a cancellation terminated us, or the script itself threw.
	if evaluator.monitor.HardReached() {
		return evaluator.factory.FromString("", value.TagOOMException)
	}

	if evaluator.manager.WasTerminated() || isTerminated(err) {
		return evaluator.factory.FromError(err, value.TagTerminatedException)
	}

	return evaluator.factory.FromError(err, value.TagExecuteException)
}

func (evaluator *evaluator) compile(env *isolate.Env, source string) (*v8go.UnboundScript, error) {
	if evaluator.cache != nil {
		if cached, has := evaluator.cache.Get(source); has {
			return cached.(*v8go.UnboundScript), nil
		}
	}

	script, err := env.Iso.CompileUnboundScript(source, scriptOrigin, v8go.CompileOptions{})
	if err != nil {
		return nil, err
	}

	if evaluator.cache != nil {
		evaluator.cache.Add(source, script)
	}

	return script, nil
}

func isTerminated(err error) bool {
	return err != nil && strings.Contains(err.Error(), "ExecutionTerminated")
}
