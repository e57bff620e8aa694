package engine

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Task types reported by vitest.
const (
	TaskTypeSuite = "suite"
	TaskTypeTest  = "test"
)

// Task states and modes reported by vitest.
const (
	StatePass = "pass"
	StateFail = "fail"
	StateSkip = "skip"
	StateTodo = "todo"
)

// ModuleResult is one test file as returned by the engine's getFiles().
type ModuleResult struct {
	Name     string      `json:"name"`
	Filepath string      `json:"filepath"`
	Mode     string      `json:"mode,omitempty"`
	Result   *TaskResult `json:"result,omitempty"`
	Tasks    []*Task     `json:"tasks,omitempty"`
}

// Task is one node of the engine's task tree: a suite, a test, or something
// the engine added that is neither.
type Task struct {
	Name   string      `json:"name"`
	Type   string      `json:"type"`
	Mode   string      `json:"mode,omitempty"`
	Result *TaskResult `json:"result,omitempty"`
	Tasks  []*Task     `json:"tasks,omitempty"`
}

// TaskResult holds the outcome the engine recorded for a task or file.
// Duration is in milliseconds and nil when the engine did not measure it.
type TaskResult struct {
	State    string       `json:"state,omitempty"`
	Duration *float64     `json:"duration,omitempty"`
	Errors   []*TaskError `json:"errors,omitempty"`
}

// ErrorShape classifies the layout of a TaskError.
type ErrorShape int

const (
	// ShapeSingleStack is a message and/or one raw stack string.
	ShapeSingleStack ErrorShape = iota
	// ShapeStackList carries a list of per-assertion stacks. The list may be empty.
	ShapeStackList
	// ShapeOpaque has none of the known fields but still carries data.
	ShapeOpaque
	// ShapeEmpty carries nothing at all.
	ShapeEmpty
)

// TaskError is an error attached to a task result. The engine's error schema
// changes between versions, so decoding never fails on a well-formed value:
// fields of the wrong type are dropped and the payload is kept in Raw.
type TaskError struct {
	Message string          `json:"message,omitempty"`
	Stack   string          `json:"stack,omitempty"`
	Stacks  []*ErrorStack   `json:"stacks,omitempty"`
	Raw     json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the fields that parse and records the raw payload.
func (e *TaskError) UnmarshalJSON(data []byte) error {
	*e = TaskError{Raw: append(json.RawMessage(nil), data...)}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil
	}
	decodeString(obj["message"], &e.Message)
	decodeString(obj["stack"], &e.Stack)

	var items []json.RawMessage
	if raw, ok := obj["stacks"]; ok && json.Unmarshal(raw, &items) == nil && items != nil {
		e.Stacks = make([]*ErrorStack, 0, len(items))
		for _, item := range items {
			if isNull(item) {
				e.Stacks = append(e.Stacks, nil)
				continue
			}
			st := new(ErrorStack)
			_ = st.UnmarshalJSON(item)
			e.Stacks = append(e.Stacks, st)
		}
	}
	return nil
}

// Shape reports which layout the error has. A stacks list that was present
// in the payload (even empty) makes the error a ShapeStackList.
func (e *TaskError) Shape() ErrorShape {
	switch {
	case e.Stacks != nil:
		return ShapeStackList
	case strings.TrimSpace(e.Message) != "" || strings.TrimSpace(e.Stack) != "":
		return ShapeSingleStack
	case hasOpaquePayload(e.Raw):
		return ShapeOpaque
	default:
		return ShapeEmpty
	}
}

// hasOpaquePayload reports whether raw carries data the known fields do not
// account for: a non-object value, a non-null unknown member, or a known
// member of the wrong type.
func hasOpaquePayload(raw json.RawMessage) bool {
	if len(raw) == 0 || isNull(raw) {
		return false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return true
	}
	for k, v := range obj {
		if isNull(v) {
			continue
		}
		switch k {
		case "message", "stack":
			var s string
			if json.Unmarshal(v, &s) != nil {
				return true
			}
		case "stacks":
			var items []json.RawMessage
			if json.Unmarshal(v, &items) != nil {
				return true
			}
		default:
			return true
		}
	}
	return false
}

// ErrorStack is one entry of a TaskError's stacks list. Older engines send a
// message/stack pair; newer ones send a parsed frame.
type ErrorStack struct {
	Message string `json:"message,omitempty"`
	Stack   string `json:"stack,omitempty"`
	Method  string `json:"method,omitempty"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	// Raw is the payload of an entry that was not a bare string.
	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON accepts a bare stack string, an object, or any other value.
// Object members that do not parse are skipped; it never fails on a
// well-formed value.
func (s *ErrorStack) UnmarshalJSON(data []byte) error {
	*s = ErrorStack{}
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		s.Stack = text
		return nil
	}
	s.Raw = append(json.RawMessage(nil), data...)

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil
	}
	decodeString(obj["message"], &s.Message)
	decodeString(obj["stack"], &s.Stack)
	decodeString(obj["method"], &s.Method)
	decodeString(obj["file"], &s.File)
	decodeInt(obj["line"], &s.Line)
	decodeInt(obj["column"], &s.Column)
	return nil
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

// decodeString sets dst when raw is a JSON string.
func decodeString(raw json.RawMessage, dst *string) {
	var v string
	if len(raw) > 0 && json.Unmarshal(raw, &v) == nil {
		*dst = v
	}
}

// decodeInt sets dst when raw is an integral number or a numeric string.
func decodeInt(raw json.RawMessage, dst *int) {
	if len(raw) == 0 {
		return
	}
	var f float64
	if json.Unmarshal(raw, &f) == nil {
		if f == math.Trunc(f) {
			*dst = int(f)
		}
		return
	}
	var text string
	if json.Unmarshal(raw, &text) == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(text)); err == nil {
			*dst = n
		}
	}
}

// ResultContext is the decoded state the engine returned for one run.
type ResultContext struct {
	Files           []*ModuleResult   `json:"files"`
	UnhandledErrors []json.RawMessage `json:"unhandledErrors,omitempty"`
}
