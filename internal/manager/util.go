package manager

import (
	"fmt"
	"strings"

	"github.com/guido-cesarano/distributedq/internal/codec"
)

// taskFmt renders a task the way dsq's worker logs it:
// name(args, kwargs)#id.
func taskFmt(task *codec.Envelope) string {
	if task == nil {
		return "__no_task__"
	}

	parts := make([]string, 0, len(task.Args)+len(task.Kwargs))
	for _, a := range task.Args {
		parts = append(parts, fmt.Sprintf("%v", a))
	}
	for k, v := range task.Kwargs {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}

	name := task.Name
	if name == "" {
		name = "__no_name__"
	}
	id := task.ID
	if id == "" {
		id = "__no_id__"
	}

	return fmt.Sprintf("%s(%s)#%s", name, strings.Join(parts, ", "), id)
}

// resultRecord is the value stored by ResultStore for a completed or
// failed task: either {result: value} or {error, message, trace}.
type resultRecord struct {
	Result  interface{} `msgpack:"result,omitempty"`
	Error   string      `msgpack:"error,omitempty"`
	Message string      `msgpack:"message,omitempty"`
	Trace   string      `msgpack:"trace,omitempty"`
}
