package value

import (
	"errors"
	"strings"

	"rogchap.com/v8go"
)

// FromError fold an engine error into an exception value. The summary keeps
// the layout existing tooling expects: the script location and exception
// text on the first line, then a blank line and the stack trace when the
// engine provides one.
func (factory *Factory) FromError(err error, tag Tag) *Value {
	return factory.FromString(Summary(err), tag)
}

// Summary format an error the way script authors read it
func Summary(err error) string {
	if err == nil {
		return ""
	}

	var jsErr *v8go.JSError
	if !errors.As(err, &jsErr) {
		return err.Error() + "\n"
	}

	var msg strings.Builder
	if jsErr.Location != "" {
		msg.WriteString(jsErr.Location)
		msg.WriteString(": ")
	}
	msg.WriteString(jsErr.Message)
	msg.WriteString("\n")

	if jsErr.StackTrace != "" {
		msg.WriteString("\n")
		msg.WriteString(jsErr.StackTrace)
		msg.WriteString("\n")
	}

	return msg.String()
}
