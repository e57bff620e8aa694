package testparser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/AndreyAkinshin/vitestprovider/internal/engine"
)

// messageSeparator joins distinct error messages.
const messageSeparator = "\n\n"

// Reconcile turns the errors reported for a task into one message.
// Candidates are collected per error shape, deduplicated in first-seen
// order, and joined by a blank line. Returns nil when nothing non-blank
// is found.
func Reconcile(errs []*engine.TaskError) *string {
	if len(errs) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var unique []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		unique = append(unique, s)
	}

	for _, e := range errs {
		if e == nil {
			continue
		}
		add(e.Message)
		switch e.Shape() {
		case engine.ShapeStackList:
			for _, st := range e.Stacks {
				if st == nil {
					continue
				}
				add(stackText(st))
			}
		case engine.ShapeSingleStack:
			add(e.Stack)
		case engine.ShapeOpaque:
			add(compactJSON(e.Raw))
		}
	}

	if len(unique) == 0 {
		return nil
	}
	msg := strings.Join(unique, messageSeparator)
	return &msg
}

// stackText prefers the entry's message, then its raw stack, then a
// rendering of the parsed frame, then the entry's JSON.
func stackText(st *engine.ErrorStack) string {
	if m := strings.TrimSpace(st.Message); m != "" {
		return m
	}
	if s := strings.TrimSpace(st.Stack); s != "" {
		return s
	}
	if st.File == "" {
		if len(st.Raw) == 0 {
			return ""
		}
		switch raw := compactJSON(st.Raw); raw {
		case "{}", "null":
			return ""
		default:
			return raw
		}
	}
	loc := st.File
	if st.Line > 0 {
		loc += ":" + strconv.Itoa(st.Line)
		if st.Column > 0 {
			loc += ":" + strconv.Itoa(st.Column)
		}
	}
	if st.Method != "" {
		return fmt.Sprintf("at %s (%s)", st.Method, loc)
	}
	return "at " + loc
}

func compactJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// FormatUnhandled renders an error the engine reported outside any test.
// Structured errors yield their stack, else their message; text is
// returned verbatim; anything else is serialized as JSON.
func FormatUnhandled(v any) string {
	switch val := v.(type) {
	case error:
		if msg := strings.TrimSpace(val.Error()); msg != "" {
			return msg
		}
		return UnknownError
	case string:
		return val
	case json.RawMessage:
		var decoded any
		if err := json.Unmarshal(val, &decoded); err != nil {
			return string(val)
		}
		return FormatUnhandled(decoded)
	case map[string]any:
		if isStructuredError(val) {
			return structuredErrorText(val)
		}
	}

	out, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(out)
}

// isStructuredError reports whether a decoded object looks like an Error.
func isStructuredError(obj map[string]any) bool {
	_, hasStack := obj["stack"].(string)
	_, hasMessage := obj["message"].(string)
	return hasStack || hasMessage
}

func structuredErrorText(obj map[string]any) string {
	if stack, _ := obj["stack"].(string); strings.TrimSpace(stack) != "" {
		return stack
	}
	if msg, _ := obj["message"].(string); strings.TrimSpace(msg) != "" {
		return msg
	}
	return UnknownError
}
