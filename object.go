package racer

import (
	"github.com/yaoapp/racer/isolate"
	"github.com/yaoapp/racer/value"
	"rogchap.com/v8go"
)

// manipulator operates on objects previously captured as engine-backed
// values. Every method runs on the owner goroutine with the context entered.
type manipulator struct {
	factory *value.Factory
}

// IdentityHash a stable integer identity for an object
func (manipulator *manipulator) IdentityHash(env *isolate.Env, obj *value.Value) *value.Value {
	objV8, err := manipulator.factory.ToV8(env.Ctx, obj)
	if err != nil {
		return manipulator.factory.FromError(err, value.TagExecuteException)
	}

	hash, err := env.Ctx.Global().MethodCall("__racer_hash", objV8)
	if err != nil {
		return manipulator.factory.FromError(err, value.TagExecuteException)
	}

	return manipulator.factory.FromInt(int64(hash.Int32()), value.TagInteger)
}

// OwnPropertyNames the object's own property names as an array value
func (manipulator *manipulator) OwnPropertyNames(env *isolate.Env, obj *value.Value) *value.Value {
	objV8, err := manipulator.factory.ToV8(env.Ctx, obj)
	if err != nil {
		return manipulator.factory.FromError(err, value.TagExecuteException)
	}

	ctorVal, err := env.Ctx.Global().Get("Object")
	if err != nil {
		return manipulator.factory.FromError(err, value.TagExecuteException)
	}

	ctor, err := ctorVal.AsObject()
	if err != nil {
		return manipulator.factory.FromError(err, value.TagExecuteException)
	}

	names, err := ctor.MethodCall("getOwnPropertyNames", objV8)
	if err != nil {
		return manipulator.factory.FromError(err, value.TagExecuteException)
	}

	return manipulator.factory.FromAny(env.Ctx, names)
}

// Get read a property. A missing key is a key exception, not undefined.
func (manipulator *manipulator) Get(env *isolate.Env, obj, key *value.Value) *value.Value {
	objObj, errVal := manipulator.object(env, obj)
	if errVal != nil {
		return errVal
	}

	if key.Tag() == value.TagInteger {
		idx := uint32(key.Handle().Int())
		if !objObj.HasIdx(idx) {
			return manipulator.factory.FromString("No such key", value.TagKeyException)
		}
		item, err := objObj.GetIdx(idx)
		if err != nil {
			return manipulator.factory.FromError(err, value.TagExecuteException)
		}
		return manipulator.factory.FromAny(env.Ctx, item)
	}

	name := manipulator.keyName(key)
	if !objObj.Has(name) {
		return manipulator.factory.FromString("No such key", value.TagKeyException)
	}

	item, err := objObj.Get(name)
	if err != nil {
		return manipulator.factory.FromError(err, value.TagExecuteException)
	}

	return manipulator.factory.FromAny(env.Ctx, item)
}

// Set write a property and return a boolean true value
func (manipulator *manipulator) Set(env *isolate.Env, obj, key, val *value.Value) *value.Value {
	objObj, errVal := manipulator.object(env, obj)
	if errVal != nil {
		return errVal
	}

	valV8, err := manipulator.factory.ToV8(env.Ctx, val)
	if err != nil {
		return manipulator.factory.FromError(err, value.TagExecuteException)
	}

	if key.Tag() == value.TagInteger {
		err = objObj.SetIdx(uint32(key.Handle().Int()), valV8)
	} else {
		err = objObj.Set(manipulator.keyName(key), valV8)
	}
	if err != nil {
		return manipulator.factory.FromError(err, value.TagExecuteException)
	}

	return manipulator.factory.FromBool(true)
}

// Del delete a property. A missing key is a key exception; otherwise the
// boolean result of the deletion comes back.
func (manipulator *manipulator) Del(env *isolate.Env, obj, key *value.Value) *value.Value {
	objObj, errVal := manipulator.object(env, obj)
	if errVal != nil {
		return errVal
	}

	if key.Tag() == value.TagInteger {
		idx := uint32(key.Handle().Int())
		if !objObj.HasIdx(idx) {
			return manipulator.factory.FromString("No such key", value.TagKeyException)
		}
		return manipulator.factory.FromBool(objObj.DeleteIdx(idx))
	}

	name := manipulator.keyName(key)
	if !objObj.Has(name) {
		return manipulator.factory.FromString("No such key", value.TagKeyException)
	}

	return manipulator.factory.FromBool(objObj.Delete(name))
}

// Splice call the object's own splice with [start, deleteCount] plus the
// optional new value. splice lives only in JS, so the method is looked up
// and invoked on the object.
func (manipulator *manipulator) Splice(env *isolate.Env, obj *value.Value, start, deleteCount int32, newVal *value.Value) *value.Value {
	objObj, errVal := manipulator.object(env, obj)
	if errVal != nil {
		return errVal
	}

	fn, errVal := manipulator.ownMethod(objObj, "splice")
	if errVal != nil {
		return errVal
	}

	startV8, err := v8go.NewValue(env.Iso, start)
	if err != nil {
		return manipulator.factory.FromError(err, value.TagExecuteException)
	}

	countV8, err := v8go.NewValue(env.Iso, deleteCount)
	if err != nil {
		return manipulator.factory.FromError(err, value.TagExecuteException)
	}

	args := []v8go.Valuer{startV8, countV8}
	if newVal != nil {
		newV8, err := manipulator.factory.ToV8(env.Ctx, newVal)
		if err != nil {
			return manipulator.factory.FromError(err, value.TagExecuteException)
		}
		args = append(args, newV8)
	}

	result, err := fn.Call(objObj, args...)
	if err != nil {
		return manipulator.factory.FromError(err, value.TagExecuteException)
	}

	return manipulator.factory.FromAny(env.Ctx, result)
}

// Push call the object's own push with the new value
func (manipulator *manipulator) Push(env *isolate.Env, obj, newVal *value.Value) *value.Value {
	objObj, errVal := manipulator.object(env, obj)
	if errVal != nil {
		return errVal
	}

	fn, errVal := manipulator.ownMethod(objObj, "push")
	if errVal != nil {
		return errVal
	}

	newV8, err := manipulator.factory.ToV8(env.Ctx, newVal)
	if err != nil {
		return manipulator.factory.FromError(err, value.TagExecuteException)
	}

	result, err := fn.Call(objObj, newV8)
	if err != nil {
		return manipulator.factory.FromError(err, value.TagExecuteException)
	}

	return manipulator.factory.FromAny(env.Ctx, result)
}

// Call invoke a function value with an argv array. The receiver is
// undefined when not supplied.
func (manipulator *manipulator) Call(env *isolate.Env, fn, this, argv *value.Value) *value.Value {
	fnV8, err := manipulator.factory.ToV8(env.Ctx, fn)
	if err != nil {
		return manipulator.factory.FromError(err, value.TagExecuteException)
	}

	if !fnV8.IsFunction() {
		return manipulator.factory.FromString("function is not callable", value.TagValueException)
	}

	fnFunc, err := fnV8.AsFunction()
	if err != nil {
		return manipulator.factory.FromError(err, value.TagExecuteException)
	}

	var thisV8 *v8go.Value
	if this == nil {
		thisV8 = v8go.Undefined(env.Iso)
	} else {
		thisV8, err = manipulator.factory.ToV8(env.Ctx, this)
		if err != nil {
			return manipulator.factory.FromError(err, value.TagExecuteException)
		}
	}

	argvV8, err := manipulator.factory.ToV8(env.Ctx, argv)
	if err != nil {
		return manipulator.factory.FromError(err, value.TagExecuteException)
	}

	if !argvV8.IsArray() {
		return manipulator.factory.FromString("argv is not an array", value.TagValueException)
	}

	args, err := unpackArray(argvV8)
	if err != nil {
		return manipulator.factory.FromError(err, value.TagExecuteException)
	}

	result, err := fnFunc.Call(thisV8, args...)
	if err != nil {
		return manipulator.factory.FromError(err, value.TagExecuteException)
	}

	return manipulator.factory.FromAny(env.Ctx, result)
}

func (manipulator *manipulator) object(env *isolate.Env, obj *value.Value) (*v8go.Object, *value.Value) {
	objV8, err := manipulator.factory.ToV8(env.Ctx, obj)
	if err != nil {
		return nil, manipulator.factory.FromError(err, value.TagExecuteException)
	}

	objObj, err := objV8.AsObject()
	if err != nil {
		return nil, manipulator.factory.FromError(err, value.TagExecuteException)
	}

	return objObj, nil
}

func (manipulator *manipulator) ownMethod(obj *v8go.Object, name string) (*v8go.Function, *value.Value) {
	fnVal, err := obj.Get(name)
	if err != nil {
		return nil, manipulator.factory.FromString("no "+name+" method on object", value.TagExecuteException)
	}

	if !fnVal.IsFunction() {
		return nil, manipulator.factory.FromString(name+" member is not a function", value.TagExecuteException)
	}

	fn, err := fnVal.AsFunction()
	if err != nil {
		return nil, manipulator.factory.FromError(err, value.TagExecuteException)
	}

	return fn, nil
}

// keyName a property name for the key value. Engine-backed keys stringify
// through the engine, inline keys read their payload.
func (manipulator *manipulator) keyName(key *value.Value) string {
	if pinned := key.Pinned(); pinned != nil {
		return pinned.String()
	}
	return key.Handle().String()
}

func unpackArray(arr *v8go.Value) ([]v8go.Valuer, error) {
	obj, err := arr.AsObject()
	if err != nil {
		return nil, err
	}

	lengthVal, err := obj.Get("length")
	if err != nil {
		return nil, err
	}

	length := int(lengthVal.Int32())
	args := make([]v8go.Valuer, length)
	for i := 0; i < length; i++ {
		item, err := obj.GetIdx(uint32(i))
		if err != nil {
			return nil, err
		}
		args[i] = item
	}

	return args, nil
}
