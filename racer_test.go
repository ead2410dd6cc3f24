package racer

import (
	"math"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yaoapp/racer/value"
)

type callbackResult struct {
	id     uint64
	handle *value.Handle
}

func prepare(t *testing.T) (uint64, chan callbackResult) {
	Init("", "", "")

	results := make(chan callbackResult, 32)
	ctx := NewContext(func(callbackID uint64, result *value.Handle) {
		results <- callbackResult{id: callbackID, handle: result}
	})
	require.NotZero(t, ctx)

	t.Cleanup(func() { FreeContext(ctx) })
	return ctx, results
}

func await(t *testing.T, results chan callbackResult, id uint64) *value.Handle {
	deadline := time.After(10 * time.Second)
	for {
		select {
		case res := <-results:
			if res.id == id {
				return res.handle
			}
		case <-deadline:
			t.Fatalf("timeout waiting for callback %d", id)
			return nil
		}
	}
}

func eval(t *testing.T, ctx uint64, results chan callbackResult, code string, callbackID uint64) *value.Handle {
	codeHandle := AllocString(ctx, code, value.TagString)
	require.NotNil(t, codeHandle)
	defer FreeValue(ctx, codeHandle)

	taskID := Eval(ctx, codeHandle, callbackID)
	require.NotZero(t, taskID)
	return await(t, results, callbackID)
}

func TestEvalInteger(t *testing.T) {
	ctx, results := prepare(t)

	res := eval(t, ctx, results, "1 + 2", 1)
	assert.Equal(t, value.TagInteger, res.Tag)
	assert.Equal(t, int64(3), res.Int())
}

func TestEvalKinds(t *testing.T) {
	ctx, results := prepare(t)

	res := eval(t, ctx, results, "3.5", 1)
	assert.Equal(t, value.TagDouble, res.Tag)
	assert.Equal(t, 3.5, res.Float())

	res = eval(t, ctx, results, "'héllo'", 2)
	assert.Equal(t, value.TagString, res.Tag)
	assert.Equal(t, "héllo", res.String())
	assert.Equal(t, uint64(len("héllo")), res.Len)

	res = eval(t, ctx, results, "true", 3)
	assert.Equal(t, value.TagBool, res.Tag)
	assert.True(t, res.Bool())

	res = eval(t, ctx, results, "null", 4)
	assert.Equal(t, value.TagNull, res.Tag)

	res = eval(t, ctx, results, "undefined", 5)
	assert.Equal(t, value.TagUndefined, res.Tag)

	res = eval(t, ctx, results, "new Date(1700000000000)", 6)
	assert.Equal(t, value.TagDate, res.Tag)
	assert.Equal(t, 1.7e12, res.Float())

	res = eval(t, ctx, results, "[1,2,3]", 7)
	assert.Equal(t, value.TagArray, res.Tag)

	res = eval(t, ctx, results, "({})", 8)
	assert.Equal(t, value.TagObject, res.Tag)

	res = eval(t, ctx, results, "(() => 1)", 9)
	assert.Equal(t, value.TagFunction, res.Tag)

	res = eval(t, ctx, results, "Promise.resolve(1)", 10)
	assert.Equal(t, value.TagPromise, res.Tag)

	res = eval(t, ctx, results, "Symbol('s')", 11)
	assert.Equal(t, value.TagSymbol, res.Tag)

	res = eval(t, ctx, results, "9007199254740993n", 12)
	assert.Equal(t, value.TagInteger, res.Tag)
	assert.Equal(t, int64(9007199254740993), res.Int())
}

func TestEvalThrow(t *testing.T) {
	ctx, results := prepare(t)

	res := eval(t, ctx, results, "throw new Error('boom')", 1)
	assert.Equal(t, value.TagExecuteException, res.Tag)
	assert.Contains(t, res.String(), "boom")
	assert.Contains(t, res.String(), "at ")
}

func TestEvalParseError(t *testing.T) {
	ctx, results := prepare(t)

	res := eval(t, ctx, results, "1 +", 1)
	assert.Equal(t, value.TagParseException, res.Tag)
	assert.NotEmpty(t, res.String())
}

func TestEvalCodeNotString(t *testing.T) {
	ctx, results := prepare(t)

	codeHandle := AllocInt(ctx, 7, value.TagInteger)
	taskID := Eval(ctx, codeHandle, 1)
	require.NotZero(t, taskID)

	res := await(t, results, 1)
	assert.Equal(t, value.TagValueException, res.Tag)
	assert.Equal(t, "code is not a string", res.String())
}

func TestEvalBadHandle(t *testing.T) {
	ctx, results := prepare(t)

	stray := &value.Handle{}
	taskID := Eval(ctx, stray, 1)
	require.NotZero(t, taskID)

	res := await(t, results, 1)
	assert.Equal(t, value.TagValueException, res.Tag)
	assert.Equal(t, "Bad handle: code", res.String())
}

func TestCancelTask(t *testing.T) {
	ctx, results := prepare(t)

	codeHandle := AllocString(ctx, "while (1) {}", value.TagString)
	taskID := Eval(ctx, codeHandle, 1)
	require.NotZero(t, taskID)

	time.Sleep(50 * time.Millisecond)
	CancelTask(ctx, taskID)

	res := await(t, results, 1)
	assert.Equal(t, value.TagTerminatedException, res.Tag)
	assert.Equal(t, "execution terminated", res.String())
}

func TestCancelBeforeStart(t *testing.T) {
	ctx, results := prepare(t)

	// Park the owner loop so the eval body cannot start before the cancel.
	gateHandle := AllocString(ctx, "const t = Date.now(); while (Date.now() - t < 200) {}", value.TagString)
	blockerID := Eval(ctx, gateHandle, 1)
	require.NotZero(t, blockerID)

	codeHandle := AllocString(ctx, "globalThis.ran = true", value.TagString)
	taskID := Eval(ctx, codeHandle, 2)
	CancelTask(ctx, taskID)

	await(t, results, 1)
	res := await(t, results, 2)
	assert.Equal(t, value.TagTerminatedException, res.Tag)
}

func TestHardMemoryLimit(t *testing.T) {
	ctx, results := prepare(t)

	SetHardMemoryLimit(ctx, 16*1024*1024)
	res := eval(t, ctx, results, "let a = []; while (true) { a.push(new Array(1e6).fill(0)) }", 1)

	assert.Equal(t, value.TagOOMException, res.Tag)
	assert.Equal(t, "", res.String())
	assert.True(t, HardMemoryLimitReached(ctx))
}

func TestSoftMemoryLimit(t *testing.T) {
	ctx, results := prepare(t)

	SetSoftMemoryLimit(ctx, 1)
	eval(t, ctx, results, "new Array(10000).fill('soft').join('')", 1)
	time.Sleep(100 * time.Millisecond)

	assert.True(t, SoftMemoryLimitReached(ctx))
	LowMemoryNotification(ctx)
}

func TestObjectItems(t *testing.T) {
	ctx, results := prepare(t)

	obj := eval(t, ctx, results, "({a: 1, b: 2})", 1)
	require.Equal(t, value.TagObject, obj.Tag)

	keyA := AllocString(ctx, "a", value.TagString)
	res := GetObjectItem(ctx, obj, keyA)
	require.NotNil(t, res)
	assert.Equal(t, value.TagInteger, res.Tag)
	assert.Equal(t, int64(1), res.Int())

	keyC := AllocString(ctx, "c", value.TagString)
	res = GetObjectItem(ctx, obj, keyC)
	require.NotNil(t, res)
	assert.Equal(t, value.TagKeyException, res.Tag)
	assert.Equal(t, "No such key", res.String())

	val := AllocInt(ctx, 9, value.TagInteger)
	res = SetObjectItem(ctx, obj, keyC, val)
	require.NotNil(t, res)
	assert.Equal(t, value.TagBool, res.Tag)
	assert.True(t, res.Bool())

	res = GetObjectItem(ctx, obj, keyC)
	require.NotNil(t, res)
	assert.Equal(t, int64(9), res.Int())

	res = DelObjectItem(ctx, obj, keyC)
	require.NotNil(t, res)
	assert.Equal(t, value.TagBool, res.Tag)
	assert.True(t, res.Bool())

	res = DelObjectItem(ctx, obj, keyC)
	require.NotNil(t, res)
	assert.Equal(t, value.TagKeyException, res.Tag)
}

func TestObjectItemBadHandle(t *testing.T) {
	ctx, _ := prepare(t)

	key := AllocString(ctx, "a", value.TagString)
	res := GetObjectItem(ctx, &value.Handle{}, key)
	require.NotNil(t, res)
	assert.Equal(t, value.TagValueException, res.Tag)
	assert.Equal(t, "Bad handle: obj", res.String())
}

func TestOwnPropertyNames(t *testing.T) {
	ctx, results := prepare(t)

	obj := eval(t, ctx, results, "({a: 1, b: 2})", 1)
	names := GetOwnPropertyNames(ctx, obj)
	require.NotNil(t, names)
	require.Equal(t, value.TagArray, names.Tag)

	first := GetObjectItem(ctx, names, AllocInt(ctx, 0, value.TagInteger))
	require.NotNil(t, first)
	assert.Equal(t, "a", first.String())

	second := GetObjectItem(ctx, names, AllocInt(ctx, 1, value.TagInteger))
	require.NotNil(t, second)
	assert.Equal(t, "b", second.String())
}

func TestIdentityHash(t *testing.T) {
	ctx, results := prepare(t)

	one := eval(t, ctx, results, "globalThis.o1 = {}; o1", 1)
	two := eval(t, ctx, results, "globalThis.o2 = {}; o2", 2)

	hashOne := GetIdentityHash(ctx, one)
	hashOneAgain := GetIdentityHash(ctx, one)
	hashTwo := GetIdentityHash(ctx, two)

	require.NotNil(t, hashOne)
	require.Equal(t, value.TagInteger, hashOne.Tag)
	assert.Equal(t, hashOne.Int(), hashOneAgain.Int())
	assert.NotEqual(t, hashOne.Int(), hashTwo.Int())
}

func TestSpliceArray(t *testing.T) {
	ctx, results := prepare(t)

	arr := eval(t, ctx, results, "globalThis.a = [10, 20, 30]; a", 1)
	require.Equal(t, value.TagArray, arr.Tag)

	ninetyNine := AllocInt(ctx, 99, value.TagInteger)
	removed := SpliceArray(ctx, arr, 1, 1, ninetyNine)
	require.NotNil(t, removed)
	require.Equal(t, value.TagArray, removed.Tag)

	item := GetObjectItem(ctx, removed, AllocInt(ctx, 0, value.TagInteger))
	require.NotNil(t, item)
	assert.Equal(t, int64(20), item.Int())

	res := eval(t, ctx, results, "JSON.stringify(a)", 2)
	assert.Equal(t, "[10,99,30]", res.String())
}

func TestSpliceWithoutNewValue(t *testing.T) {
	ctx, results := prepare(t)

	arr := eval(t, ctx, results, "globalThis.b = [1, 2, 3]; b", 1)
	removed := SpliceArray(ctx, arr, 0, 2, nil)
	require.NotNil(t, removed)
	require.Equal(t, value.TagArray, removed.Tag)

	res := eval(t, ctx, results, "JSON.stringify(b)", 2)
	assert.Equal(t, "[3]", res.String())
}

func TestSpliceNonArray(t *testing.T) {
	ctx, results := prepare(t)

	obj := eval(t, ctx, results, "({})", 1)
	res := SpliceArray(ctx, obj, 0, 1, nil)
	require.NotNil(t, res)
	assert.Equal(t, value.TagExecuteException, res.Tag)
	assert.Contains(t, res.String(), "splice")
}

func TestArrayPush(t *testing.T) {
	ctx, results := prepare(t)

	arr := eval(t, ctx, results, "globalThis.c = [1]; c", 1)
	res := ArrayPush(ctx, arr, AllocInt(ctx, 2, value.TagInteger))
	require.NotNil(t, res)
	assert.Equal(t, value.TagInteger, res.Tag)
	assert.Equal(t, int64(2), res.Int())

	check := eval(t, ctx, results, "JSON.stringify(c)", 2)
	assert.Equal(t, "[1,2]", check.String())
}

func TestCallFunction(t *testing.T) {
	ctx, results := prepare(t)

	fn := eval(t, ctx, results, "((a, b) => a + b)", 1)
	require.Equal(t, value.TagFunction, fn.Tag)

	argv := eval(t, ctx, results, "[2, 40]", 2)
	taskID := CallFunction(ctx, fn, nil, argv, 3)
	require.NotZero(t, taskID)

	res := await(t, results, 3)
	assert.Equal(t, value.TagInteger, res.Tag)
	assert.Equal(t, int64(42), res.Int())
}

func TestCallFunctionWithThis(t *testing.T) {
	ctx, results := prepare(t)

	fn := eval(t, ctx, results, "(function() { return this.answer })", 1)
	this := eval(t, ctx, results, "({answer: 42})", 2)
	argv := eval(t, ctx, results, "[]", 3)

	require.NotZero(t, CallFunction(ctx, fn, this, argv, 4))
	res := await(t, results, 4)
	assert.Equal(t, int64(42), res.Int())
}

func TestCallNotAFunction(t *testing.T) {
	ctx, results := prepare(t)

	notFn := eval(t, ctx, results, "({})", 1)
	argv := eval(t, ctx, results, "[]", 2)

	CallFunction(ctx, notFn, nil, argv, 3)
	res := await(t, results, 3)
	assert.Equal(t, value.TagValueException, res.Tag)
	assert.Equal(t, "function is not callable", res.String())
}

func TestCallArgvNotArray(t *testing.T) {
	ctx, results := prepare(t)

	fn := eval(t, ctx, results, "(() => 1)", 1)
	notArgv := eval(t, ctx, results, "({})", 2)

	CallFunction(ctx, fn, nil, notArgv, 3)
	res := await(t, results, 3)
	assert.Equal(t, value.TagValueException, res.Tag)
	assert.Equal(t, "argv is not an array", res.String())
}

func TestCallThrow(t *testing.T) {
	ctx, results := prepare(t)

	fn := eval(t, ctx, results, "(() => { throw new Error('from js') })", 1)
	argv := eval(t, ctx, results, "[]", 2)

	CallFunction(ctx, fn, nil, argv, 3)
	res := await(t, results, 3)
	assert.Equal(t, value.TagExecuteException, res.Tag)
	assert.Contains(t, res.String(), "from js")
}

func TestMakeJSCallback(t *testing.T) {
	ctx, results := prepare(t)

	cb := MakeJSCallback(ctx, 77)
	require.NotNil(t, cb)
	require.Equal(t, value.TagFunction, cb.Tag)

	global := eval(t, ctx, results, "globalThis", 1)
	key := AllocString(ctx, "cb", value.TagString)
	set := SetObjectItem(ctx, global, key, cb)
	require.NotNil(t, set)
	require.Equal(t, value.TagBool, set.Tag)

	// The callback lands during script execution, ahead of the eval
	// completion, so it has to be consumed first.
	codeHandle := AllocString(ctx, "cb(1, 'x')", value.TagString)
	require.NotZero(t, Eval(ctx, codeHandle, 2))

	argv := await(t, results, 77)
	await(t, results, 2)
	require.Equal(t, value.TagArray, argv.Tag)

	first := GetObjectItem(ctx, argv, AllocInt(ctx, 0, value.TagInteger))
	require.NotNil(t, first)
	assert.Equal(t, value.TagInteger, first.Tag)
	assert.Equal(t, int64(1), first.Int())

	second := GetObjectItem(ctx, argv, AllocInt(ctx, 1, value.TagInteger))
	require.NotNil(t, second)
	assert.Equal(t, value.TagString, second.Tag)
	assert.Equal(t, "x", second.String())
}

func TestRoundTripPrimitives(t *testing.T) {
	ctx, results := prepare(t)

	global := eval(t, ctx, results, "globalThis", 1)
	key := AllocString(ctx, "roundtrip", value.TagString)

	cases := []struct {
		name  string
		alloc func() *value.Handle
		check func(t *testing.T, res *value.Handle)
	}{
		{
			name:  "integer",
			alloc: func() *value.Handle { return AllocInt(ctx, -12345, value.TagInteger) },
			check: func(t *testing.T, res *value.Handle) {
				assert.Equal(t, value.TagInteger, res.Tag)
				assert.Equal(t, int64(-12345), res.Int())
			},
		},
		{
			name:  "double",
			alloc: func() *value.Handle { return AllocDouble(ctx, 1.5, value.TagDouble) },
			check: func(t *testing.T, res *value.Handle) {
				assert.Equal(t, value.TagDouble, res.Tag)
				assert.Equal(t, math.Float64bits(1.5), math.Float64bits(res.Float()))
			},
		},
		{
			name:  "bool",
			alloc: func() *value.Handle { return AllocInt(ctx, 1, value.TagBool) },
			check: func(t *testing.T, res *value.Handle) {
				assert.Equal(t, value.TagBool, res.Tag)
				assert.True(t, res.Bool())
			},
		},
		{
			name:  "string",
			alloc: func() *value.Handle { return AllocString(ctx, "日本語 test", value.TagString) },
			check: func(t *testing.T, res *value.Handle) {
				assert.Equal(t, value.TagString, res.Tag)
				assert.Equal(t, "日本語 test", res.String())
				assert.Equal(t, uint64(len("日本語 test")), res.Len)
			},
		},
		{
			name:  "null",
			alloc: func() *value.Handle { return AllocInt(ctx, 0, value.TagNull) },
			check: func(t *testing.T, res *value.Handle) {
				assert.Equal(t, value.TagNull, res.Tag)
			},
		},
		{
			name:  "undefined",
			alloc: func() *value.Handle { return AllocInt(ctx, 0, value.TagUndefined) },
			check: func(t *testing.T, res *value.Handle) {
				assert.Equal(t, value.TagUndefined, res.Tag)
			},
		},
		{
			name:  "date",
			alloc: func() *value.Handle { return AllocDouble(ctx, 1.7e12, value.TagDate) },
			check: func(t *testing.T, res *value.Handle) {
				assert.Equal(t, value.TagDate, res.Tag)
				assert.Equal(t, 1.7e12, res.Float())
			},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			handle := c.alloc()
			require.NotNil(t, handle)

			set := SetObjectItem(ctx, global, key, handle)
			require.NotNil(t, set)
			require.Equal(t, value.TagBool, set.Tag)

			res := GetObjectItem(ctx, global, key)
			require.NotNil(t, res)
			c.check(t, res)
		})
	}
}

func TestHeapStats(t *testing.T) {
	ctx, _ := prepare(t)

	stats := HeapStats(ctx)
	require.NotNil(t, stats)
	require.Equal(t, value.TagString, stats.Tag)

	doc := map[string]uint64{}
	require.NoError(t, jsoniter.Unmarshal([]byte(stats.String()), &doc))

	for _, field := range []string{"total_physical_size", "total_heap_size_executable",
		"total_heap_size", "used_heap_size", "heap_size_limit"} {
		assert.Contains(t, doc, field)
	}
	assert.NotZero(t, doc["used_heap_size"])
}

func TestHeapSnapshot(t *testing.T) {
	ctx, _ := prepare(t)

	snapshot := HeapSnapshot(ctx)
	require.NotNil(t, snapshot)
	require.Equal(t, value.TagString, snapshot.Tag)

	doc := map[string]uint64{}
	require.NoError(t, jsoniter.Unmarshal([]byte(snapshot.String()), &doc))
	assert.Contains(t, doc, "used_heap_size")
	assert.Contains(t, doc, "number_of_native_contexts")
}

func TestValueCountDrains(t *testing.T) {
	ctx, results := prepare(t)

	base := ValueCount(ctx)
	handles := []*value.Handle{
		AllocInt(ctx, 1, value.TagInteger),
		AllocString(ctx, "x", value.TagString),
		eval(t, ctx, results, "({})", 1),
	}
	assert.Equal(t, base+3, ValueCount(ctx))

	for _, handle := range handles {
		FreeValue(ctx, handle)
	}
	assert.Equal(t, base, ValueCount(ctx))
}

func TestContextLifecycle(t *testing.T) {
	Init("", "", "")

	before := ContextCount()
	ctx := NewContext(func(callbackID uint64, result *value.Handle) {})
	assert.Equal(t, before+1, ContextCount())

	FreeContext(ctx)
	assert.Equal(t, before, ContextCount())

	// a gone context yields null handles and zero task ids
	assert.Nil(t, AllocInt(ctx, 1, value.TagInteger))
	assert.Zero(t, Eval(ctx, &value.Handle{}, 1))
	assert.Zero(t, ValueCount(ctx))
	FreeContext(ctx)
}

func TestFIFOOrder(t *testing.T) {
	ctx, results := prepare(t)

	eval(t, ctx, results, "globalThis.order = []", 1)
	ids := []uint64{}
	for i := 0; i < 10; i++ {
		codeHandle := AllocString(ctx, "order.push(order.length)", value.TagString)
		ids = append(ids, Eval(ctx, codeHandle, uint64(100+i)))
	}
	for i := 0; i < 10; i++ {
		await(t, results, uint64(100+i))
	}

	res := eval(t, ctx, results, "JSON.stringify(order)", 2)
	assert.Equal(t, "[0,1,2,3,4,5,6,7,8,9]", res.String())
	assert.Len(t, ids, 10)
}

func TestTimers(t *testing.T) {
	ctx, results := prepare(t)

	eval(t, ctx, results, "globalThis.fired = false; setTimeout(() => { globalThis.fired = true }, 10); 0", 1)
	time.Sleep(100 * time.Millisecond)

	res := eval(t, ctx, results, "globalThis.fired", 2)
	assert.Equal(t, value.TagBool, res.Tag)
	assert.True(t, res.Bool())
}

func TestClearTimeout(t *testing.T) {
	ctx, results := prepare(t)

	eval(t, ctx, results, "globalThis.nope = false; const id = setTimeout(() => { globalThis.nope = true }, 20); clearTimeout(id); 0", 1)
	time.Sleep(100 * time.Millisecond)

	res := eval(t, ctx, results, "globalThis.nope", 2)
	assert.False(t, res.Bool())
}

func TestConsoleInstalled(t *testing.T) {
	ctx, results := prepare(t)

	res := eval(t, ctx, results, "console.log('hello'); console.warn('careful'); typeof console.error", 1)
	assert.Equal(t, value.TagString, res.Tag)
	assert.Equal(t, "function", res.String())
}

func TestEvalTS(t *testing.T) {
	ctx, results := prepare(t)

	codeHandle := AllocString(ctx, "const add = (a: number, b: number): number => a + b; add(20, 22)", value.TagString)
	taskID := EvalTS(ctx, codeHandle, 1)
	require.NotZero(t, taskID)

	res := await(t, results, 1)
	assert.Equal(t, value.TagInteger, res.Tag)
	assert.Equal(t, int64(42), res.Int())
}

func TestEvalTSParseError(t *testing.T) {
	ctx, results := prepare(t)

	codeHandle := AllocString(ctx, "function {", value.TagString)
	EvalTS(ctx, codeHandle, 1)

	res := await(t, results, 1)
	assert.Equal(t, value.TagParseException, res.Tag)
}

func TestMicrotasksBetweenTasks(t *testing.T) {
	ctx, results := prepare(t)

	eval(t, ctx, results, "globalThis.p = 0; Promise.resolve().then(() => { globalThis.p = 9 }); 0", 1)
	res := eval(t, ctx, results, "globalThis.p", 2)
	assert.Equal(t, int64(9), res.Int())
}

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, Version())
	assert.False(t, IsUsingSandbox())
	assert.False(t, SingleThreaded())
}

func TestInspectSource(t *testing.T) {
	ctx, _ := prepare(t)

	source := InspectSource()
	assert.NotEmpty(t, source.Version())

	infos := source.Contexts()
	found := false
	for _, info := range infos {
		if info.ID == ctx {
			found = true
		}
	}
	assert.True(t, found)

	stats, has := source.HeapStats(ctx)
	assert.True(t, has)
	assert.Contains(t, stats, "used_heap_size")

	_, has = source.HeapStats(0)
	assert.False(t, has)
}

func TestArrayBufferValues(t *testing.T) {
	ctx, results := prepare(t)

	res := eval(t, ctx, results, "new Uint8Array([1, 2, 3]).buffer", 1)
	require.Equal(t, value.TagArrayBuffer, res.Tag)
	assert.Equal(t, uint64(3), res.Len)
	assert.Equal(t, []byte{1, 2, 3}, res.Bytes()[:res.Len])

	res = eval(t, ctx, results, "new Uint8Array([5, 6, 7, 8]).subarray(1, 3)", 2)
	require.Equal(t, value.TagArrayBuffer, res.Tag)
	assert.Equal(t, uint64(2), res.Len)
	assert.Equal(t, []byte{6, 7}, res.Bytes()[:res.Len])

	res = eval(t, ctx, results, "new SharedArrayBuffer(4)", 3)
	require.Equal(t, value.TagSharedArrayBuffer, res.Tag)
	assert.Equal(t, uint64(4), res.Len)
}
