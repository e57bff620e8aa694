package testparser

import (
	"path/filepath"
	"strings"

	"github.com/AndreyAkinshin/vitestprovider/internal/engine"
)

// Flattened is the flat outcome list of a run plus the module-level
// durations, which serve as a fallback when tests report none.
type Flattened struct {
	Results          []TestRunResult
	ModuleDurationMs float64
}

// Flatten walks the engine's modules depth-first and emits one result per
// test. requested holds absolute paths; when non-empty, modules whose file
// is known and not requested are dropped along with their duration.
func Flatten(modules []*engine.ModuleResult, requested []string) Flattened {
	flat := Flattened{Results: []TestRunResult{}}

	wanted := make(map[string]bool, len(requested))
	for _, f := range requested {
		wanted[normalizePath(f)] = true
	}

	fallbackFile := UnknownFile
	if len(requested) > 0 {
		fallbackFile = requested[0]
	}

	for _, mod := range modules {
		if mod == nil {
			continue
		}
		file := ""
		if strings.TrimSpace(mod.Filepath) != "" {
			file = normalizePath(mod.Filepath)
		}
		if len(wanted) > 0 && file != "" && !wanted[file] {
			continue
		}

		if mod.Result != nil && mod.Result.Duration != nil && *mod.Result.Duration > 0 {
			flat.ModuleDurationMs += *mod.Result.Duration
		}

		if file == "" {
			file = fallbackFile
		}
		w := walker{file: file, out: &flat.Results}
		w.walk(mod.Tasks)
	}
	return flat
}

type walker struct {
	file string
	out  *[]TestRunResult
}

func (w *walker) walk(tasks []*engine.Task) {
	for _, task := range tasks {
		if task == nil {
			continue
		}
		switch {
		case task.Type == engine.TaskTypeSuite:
			w.walk(task.Tasks)
		case task.Type == engine.TaskTypeTest:
			*w.out = append(*w.out, w.outcome(task))
		case len(task.Tasks) > 0:
			// Not a suite or test but has children: treat as a container.
			w.walk(task.Tasks)
		}
	}
}

// outcome converts one test task into a result.
func (w *walker) outcome(task *engine.Task) TestRunResult {
	r := TestRunResult{
		Name: task.Name,
		File: w.file,
	}
	if strings.TrimSpace(r.Name) == "" {
		r.Name = UnnamedTest
	}

	state := ""
	if task.Result != nil {
		state = task.Result.State
		if d := task.Result.Duration; d != nil && *d > 0 {
			r.DurationMs = *d
		}
	}
	if state == "" && (task.Mode == engine.StateSkip || task.Mode == engine.StateTodo) {
		state = task.Mode
	}

	switch state {
	case engine.StateSkip, engine.StateTodo:
		r.Passed = true
	case engine.StatePass:
		r.Passed = true
	default:
		var errs []*engine.TaskError
		if task.Result != nil {
			errs = task.Result.Errors
		}
		r.Message = Reconcile(errs)
		if r.Message == nil {
			r.Message = Msg(NoDetailsReason)
		}
	}
	return r
}

func normalizePath(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
