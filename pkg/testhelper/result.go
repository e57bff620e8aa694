package testhelper

import "path/filepath"

// Obj is a JSON object in a bridge result.
type Obj = map[string]any

// OK is a successful bridge result over the given modules.
func OK(modules ...Obj) Obj {
	return Obj{"status": "ok", "files": modules}
}

// LoadFailure is a bridge result for an entry point that failed to load.
func LoadFailure(reason string) Obj {
	return Obj{"status": "load-failure", "reason": reason}
}

// ExecutionFailure is a bridge result for an engine that threw.
func ExecutionFailure(reason string) Obj {
	return Obj{"status": "execution-failure", "reason": reason}
}

// Module is a test module for path. A positive duration is reported as the
// module's own duration.
func Module(path string, duration float64, tasks ...Obj) Obj {
	m := Obj{"name": filepath.Base(path), "filepath": path, "tasks": tasks}
	if duration > 0 {
		m["result"] = Obj{"state": "pass", "duration": duration}
	}
	return m
}

// Suite groups tasks.
func Suite(name string, tasks ...Obj) Obj {
	return Obj{"name": name, "type": "suite", "tasks": tasks}
}

// Passing is a passed test.
func Passing(name string, duration float64) Obj {
	return Obj{"name": name, "type": "test", "result": Obj{"state": "pass", "duration": duration}}
}

// Failing is a failed test carrying errs.
func Failing(name string, duration float64, errs ...Obj) Obj {
	return Obj{"name": name, "type": "test", "result": Obj{"state": "fail", "duration": duration, "errors": errs}}
}

// Skipped is a test skipped by mode.
func Skipped(name string) Obj {
	return Obj{"name": name, "type": "test", "mode": "skip"}
}
