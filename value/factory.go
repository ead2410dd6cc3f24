package value

import (
	"fmt"
	"math"

	"rogchap.com/v8go"
)

// Factory manufactures Values. Engine-backed constructors must run on the
// isolate's owner goroutine; the inline constructors are safe anywhere.
type Factory struct {
	releaser Releaser
}

// NewFactory create a factory routing handle releases through the collector
func NewFactory(releaser Releaser) *Factory {
	return &Factory{releaser: releaser}
}

// FromString build an inline string value. The tag selects between a plain
// string and the error tags, which carry their summary in the string payload.
func (factory *Factory) FromString(val string, tag Tag) *Value {
	res := &Value{releaser: factory.releaser}
	res.handle.Tag = tag
	res.handle.Len = uint64(len(val))
	res.handle.bytes = make([]byte, len(val)+1)
	copy(res.handle.bytes, val)
	return res
}

// FromInt build an inline integer value
func (factory *Factory) FromInt(val int64, tag Tag) *Value {
	res := &Value{releaser: factory.releaser}
	res.handle.Tag = tag
	res.handle.intVal = val
	return res
}

// FromDouble build an inline double value
func (factory *Factory) FromDouble(val float64, tag Tag) *Value {
	res := &Value{releaser: factory.releaser}
	res.handle.Tag = tag
	res.handle.floatVal = val
	return res
}

// FromBool build an inline boolean value
func (factory *Factory) FromBool(val bool) *Value {
	res := &Value{releaser: factory.releaser}
	res.handle.Tag = TagBool
	if val {
		res.handle.intVal = 1
	}
	return res
}

// FromAny infer the tag of an engine value and capture it. The predicate
// order matters: many engine objects answer yes to more than one predicate,
// so specific checks run before general ones.
func (factory *Factory) FromAny(ctx *v8go.Context, val *v8go.Value) *Value {
	switch {
	case val == nil || val.IsNull():
		return factory.FromInt(0, TagNull)

	case val.IsUndefined():
		return factory.FromInt(0, TagUndefined)

	case val.IsFunction():
		return factory.pin(val, TagFunction)

	case val.IsSymbol():
		return factory.pin(val, TagSymbol)

	case val.IsPromise():
		return factory.pin(val, TagPromise)

	case val.IsArray():
		return factory.pin(val, TagArray)

	case val.IsInt32():
		return factory.FromInt(int64(val.Int32()), TagInteger)

	case val.IsBigInt():
		return factory.FromInt(val.BigInt().Int64(), TagInteger)

	case val.IsNumber():
		return factory.FromDouble(val.Number(), TagDouble)

	case val.IsBoolean():
		return factory.FromBool(val.Boolean())

	case val.IsDate():
		return factory.fromDate(val)

	case val.IsString():
		return factory.FromString(val.String(), TagString)

	case val.IsArrayBufferView():
		return factory.fromBuffer(ctx, val)

	case val.IsSharedArrayBuffer():
		return factory.fromSharedBuffer(val)

	case val.IsArrayBuffer():
		return factory.fromBuffer(ctx, val)

	case val.IsObject():
		return factory.pin(val, TagObject)
	}

	return factory.FromInt(0, TagInvalid)
}

// ToV8 rehydrate the engine value a Value refers to. Pinned values return the
// exact engine object; inline primitives are rebuilt from the handle payload.
func (factory *Factory) ToV8(ctx *v8go.Context, val *Value) (*v8go.Value, error) {
	if val.persistent != nil {
		return val.persistent, nil
	}

	iso := ctx.Isolate()
	handle := val.Handle()

	switch handle.Tag {
	case TagNull:
		return v8go.Null(iso), nil

	case TagUndefined:
		return v8go.Undefined(iso), nil

	case TagBool:
		return v8go.NewValue(iso, handle.Bool())

	case TagInteger:
		if handle.Int() >= math.MinInt32 && handle.Int() <= math.MaxInt32 {
			return v8go.NewValue(iso, int32(handle.Int()))
		}
		return v8go.NewValue(iso, handle.Int())

	case TagDouble:
		return v8go.NewValue(iso, handle.Float())

	case TagDate:
		return factory.newDate(ctx, handle.Float())

	case TagString:
		return v8go.NewValue(iso, handle.String())
	}

	if handle.Tag.IsError() {
		return v8go.NewValue(iso, handle.String())
	}

	return v8go.Undefined(iso), nil
}

func (factory *Factory) pin(val *v8go.Value, tag Tag) *Value {
	res := &Value{releaser: factory.releaser, persistent: val}
	res.handle.Tag = tag
	return res
}

func (factory *Factory) fromDate(val *v8go.Value) *Value {
	obj, err := val.AsObject()
	if err != nil {
		return factory.FromString(err.Error(), TagValueException)
	}

	epoch, err := obj.MethodCall("getTime")
	if err != nil {
		return factory.FromString(err.Error(), TagValueException)
	}

	return factory.FromDouble(epoch.Number(), TagDate)
}

// fromSharedBuffer aliases the shared backing store. The bytes stay valid
// until the Value is disposed, which releases the store reference.
func (factory *Factory) fromSharedBuffer(val *v8go.Value) *Value {
	bytes, release, err := val.SharedArrayBufferGetContents()
	if err != nil {
		return factory.FromString(err.Error(), TagValueException)
	}

	res := factory.pin(val, TagSharedArrayBuffer)
	res.sharedFree = release
	res.handle.bytes = bytes
	res.handle.Len = uint64(len(bytes))
	return res
}

// fromBuffer captures the byte span of an ArrayBuffer or a view over one.
// The engine exposes no stable pointer into a non-shared backing store, so
// the span is read out through a Uint8Array.
func (factory *Factory) fromBuffer(ctx *v8go.Context, val *v8go.Value) *Value {
	bytes, err := readBufferBytes(ctx, val)
	if err != nil {
		return factory.FromString(err.Error(), TagValueException)
	}

	res := factory.pin(val, TagArrayBuffer)
	res.handle.bytes = bytes
	res.handle.Len = uint64(len(bytes))
	return res
}

func readBufferBytes(ctx *v8go.Context, val *v8go.Value) ([]byte, error) {
	ctorVal, err := ctx.Global().Get("Uint8Array")
	if err != nil {
		return nil, err
	}

	ctor, err := ctorVal.AsFunction()
	if err != nil {
		return nil, err
	}

	var view *v8go.Object
	if val.IsArrayBufferView() {
		obj, err := val.AsObject()
		if err != nil {
			return nil, err
		}
		buffer, err := obj.Get("buffer")
		if err != nil {
			return nil, err
		}
		offset, err := obj.Get("byteOffset")
		if err != nil {
			return nil, err
		}
		length, err := obj.Get("byteLength")
		if err != nil {
			return nil, err
		}
		view, err = ctor.NewInstance(buffer, offset, length)
		if err != nil {
			return nil, err
		}
	} else {
		view, err = ctor.NewInstance(val)
		if err != nil {
			return nil, err
		}
	}

	lengthVal, err := view.Get("length")
	if err != nil {
		return nil, err
	}

	length := int(lengthVal.Int32())
	bytes := make([]byte, length)
	for i := 0; i < length; i++ {
		b, err := view.GetIdx(uint32(i))
		if err != nil {
			return nil, err
		}
		bytes[i] = byte(b.Uint32())
	}

	return bytes, nil
}

func (factory *Factory) newDate(ctx *v8go.Context, epochMS float64) (*v8go.Value, error) {
	ctorVal, err := ctx.Global().Get("Date")
	if err != nil {
		return nil, err
	}

	ctor, err := ctorVal.AsFunction()
	if err != nil {
		return nil, err
	}

	epoch, err := v8go.NewValue(ctx.Isolate(), epochMS)
	if err != nil {
		return nil, err
	}

	obj, err := ctor.NewInstance(epoch)
	if err != nil {
		return nil, fmt.Errorf("Date constructor: %s", err.Error())
	}

	return obj.Value, nil
}
