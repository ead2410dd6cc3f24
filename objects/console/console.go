package console

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/yaoapp/kun/log"
	"rogchap.com/v8go"
)

// Object Javascript API
type Object struct {
	mode string // production, development
}

// New create a new Console Object
func New(mode string) *Object {

	// validate mode
	if mode == "" || mode != "development" {
		mode = "production"
	}

	return &Object{
		mode: mode, // production, development
	}
}

// Set new obj instance
// console.log("foo", {"foo":"bar"}, 1, 2)
func (obj *Object) Set(name string, ctx *v8go.Context) error {
	tmpl := v8go.NewObjectTemplate(ctx.Isolate())
	tmpl.Set("log", obj.log(ctx.Isolate()))
	tmpl.Set("info", obj.info(ctx.Isolate()))
	tmpl.Set("warn", obj.warn(ctx.Isolate()))
	tmpl.Set("error", obj.error(ctx.Isolate()))

	instance, err := tmpl.NewInstance(ctx)
	if err != nil {
		return err
	}

	err = ctx.Global().Set(name, instance)
	if err != nil {
		return err
	}
	return nil
}

func (obj *Object) log(iso *v8go.Isolate) *v8go.FunctionTemplate {
	return v8go.NewFunctionTemplate(iso, func(info *v8go.FunctionCallbackInfo) *v8go.Value {
		if obj.mode != "development" {
			return v8go.Null(iso)
		}
		return obj.dump(info, func(message string) {
			fmt.Println(message)
			log.Debug("console: %s", message)
		})
	})
}

func (obj *Object) info(iso *v8go.Isolate) *v8go.FunctionTemplate {
	return v8go.NewFunctionTemplate(iso, func(info *v8go.FunctionCallbackInfo) *v8go.Value {
		return obj.dump(info, func(message string) {
			color.Cyan("%s\n", message)
			log.Info("console: %s", message)
		})
	})
}

func (obj *Object) warn(iso *v8go.Isolate) *v8go.FunctionTemplate {
	return v8go.NewFunctionTemplate(iso, func(info *v8go.FunctionCallbackInfo) *v8go.Value {
		return obj.dump(info, func(message string) {
			color.Yellow("%s\n", message)
			log.Warn("console: %s", message)
		})
	})
}

func (obj *Object) error(iso *v8go.Isolate) *v8go.FunctionTemplate {
	return v8go.NewFunctionTemplate(iso, func(info *v8go.FunctionCallbackInfo) *v8go.Value {
		return obj.dump(info, func(message string) {
			color.Red("%s\n", message)
			log.Error("console: %s", message)
		})
	})
}

func (obj *Object) dump(info *v8go.FunctionCallbackInfo, method func(message string)) *v8go.Value {
	args := info.Args()
	if len(args) < 1 {
		log.Error("console: Missing parameters")
		return v8go.Null(info.Context().Isolate())
	}

	parts := []string{}
	for _, arg := range args {
		parts = append(parts, format(info.Context(), arg))
	}

	method(strings.Join(parts, " "))
	return v8go.Null(info.Context().Isolate())
}

// format render a single argument. Strings, functions and undefined print
// bare, everything else through the engine's JSON serializer.
func format(ctx *v8go.Context, arg *v8go.Value) string {
	if arg.IsString() || arg.IsFunction() || arg.IsUndefined() {
		return arg.String()
	}

	data, err := v8go.JSONStringify(ctx, arg)
	if err != nil {
		return arg.String()
	}
	return data
}
