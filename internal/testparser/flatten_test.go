package testparser

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/AndreyAkinshin/vitestprovider/internal/engine"
)

// decodeModules builds module results from the JSON the bridge writes.
func decodeModules(t *testing.T, payload string) []*engine.ModuleResult {
	t.Helper()
	var mods []*engine.ModuleResult
	if err := json.Unmarshal([]byte(payload), &mods); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return mods
}

// abs returns the normalized absolute form of a slash path on this platform.
func abs(p string) string {
	return normalizePath(filepath.FromSlash(p))
}

func TestFlatten_NestedSuites(t *testing.T) {
	t.Parallel()
	mods := decodeModules(t, `[{
		"filepath": "/p/a.test.ts",
		"tasks": [{"name": "outer", "type": "suite", "tasks": [
			{"name": "inner", "type": "test", "result": {"state": "pass", "duration": 5}}
		]}]
	}]`)

	got := Flatten(mods, nil)
	want := []TestRunResult{
		{Name: "inner", File: abs("/p/a.test.ts"), Passed: true, DurationMs: 5},
	}
	if diff := cmp.Diff(want, got.Results); diff != "" {
		t.Errorf("Flatten() mismatch (-want +got):\n%s", diff)
	}
}

func TestFlatten_DepthFirstOrder(t *testing.T) {
	t.Parallel()
	mods := decodeModules(t, `[
		{"filepath": "/p/b.test.ts", "tasks": [
			{"name": "b1", "type": "test", "result": {"state": "pass"}},
			{"name": "s", "type": "suite", "tasks": [
				{"name": "s1", "type": "test", "result": {"state": "pass"}},
				{"name": "deep", "type": "suite", "tasks": [
					{"name": "d1", "type": "test", "result": {"state": "pass"}}
				]},
				{"name": "s2", "type": "test", "result": {"state": "pass"}}
			]},
			{"name": "b2", "type": "test", "result": {"state": "pass"}}
		]},
		{"filepath": "/p/a.test.ts", "tasks": [
			{"name": "a1", "type": "test", "result": {"state": "pass"}}
		]}
	]`)

	got := Flatten(mods, nil)
	var names []string
	for _, r := range got.Results {
		names = append(names, r.Name)
	}
	want := []string{"b1", "s1", "d1", "s2", "b2", "a1"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestFlatten_SkipAndTodo(t *testing.T) {
	t.Parallel()
	mods := decodeModules(t, `[{"filepath": "/p/a.test.ts", "tasks": [
		{"name": "skipped", "type": "test", "mode": "skip"},
		{"name": "planned", "type": "test", "mode": "todo"},
		{"name": "skipped at runtime", "type": "test", "mode": "run", "result": {"state": "skip"}},
		{"name": "explicit state wins", "type": "test", "mode": "skip", "result": {"state": "fail", "errors": [{"message": "ran anyway"}]}}
	]}]`)

	got := Flatten(mods, nil).Results
	want := []TestRunResult{
		{Name: "skipped", File: abs("/p/a.test.ts"), Passed: true},
		{Name: "planned", File: abs("/p/a.test.ts"), Passed: true},
		{Name: "skipped at runtime", File: abs("/p/a.test.ts"), Passed: true},
		{Name: "explicit state wins", File: abs("/p/a.test.ts"), Passed: false, Message: Msg("ran anyway")},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Flatten() mismatch (-want +got):\n%s", diff)
	}
}

func TestFlatten_Failures(t *testing.T) {
	t.Parallel()
	mods := decodeModules(t, `[{"filepath": "/p/a.test.ts", "tasks": [
		{"name": "dup", "type": "test", "result": {"state": "fail", "duration": 2,
			"errors": [{"message": "expected 1 to be 2"}, {"message": "expected 1 to be 2"}]}},
		{"name": "bare", "type": "test", "result": {"state": "fail"}},
		{"name": "never ran", "type": "test", "mode": "run"},
		{"name": "negative", "type": "test", "result": {"state": "pass", "duration": -3}}
	]}]`)

	got := Flatten(mods, nil).Results
	want := []TestRunResult{
		{Name: "dup", File: abs("/p/a.test.ts"), Passed: false, Message: Msg("expected 1 to be 2"), DurationMs: 2},
		{Name: "bare", File: abs("/p/a.test.ts"), Passed: false, Message: Msg(NoDetailsReason)},
		{Name: "never ran", File: abs("/p/a.test.ts"), Passed: false, Message: Msg(NoDetailsReason)},
		{Name: "negative", File: abs("/p/a.test.ts"), Passed: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Flatten() mismatch (-want +got):\n%s", diff)
	}
}

// The engine schema does not document typed-but-unknown containers; the
// assumption is that they are containers and never outcomes themselves.
func TestFlatten_UnknownNodeTypes(t *testing.T) {
	t.Parallel()
	mods := decodeModules(t, `[{"filepath": "/p/a.test.ts", "tasks": [
		null,
		{"name": "custom leaf", "type": "custom"},
		{"name": "untyped leaf"},
		{"name": "wrapper", "type": "custom", "tasks": [
			{"name": "wrapped", "type": "test", "result": {"state": "pass"}}
		]},
		{"name": "untyped wrapper", "tasks": [
			{"name": "also wrapped", "type": "test", "result": {"state": "pass"}}
		]},
		{"name": "empty suite", "type": "suite", "tasks": []},
		{"name": "childless suite", "type": "suite"}
	]}]`)

	got := Flatten(mods, nil).Results
	var names []string
	for _, r := range got {
		names = append(names, r.Name)
	}
	if diff := cmp.Diff([]string{"wrapped", "also wrapped"}, names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestFlatten_Placeholders(t *testing.T) {
	t.Parallel()
	tree := `[{"tasks": [{"name": "  ", "type": "test", "result": {"state": "pass"}}]}]`

	t.Run("no requested files", func(t *testing.T) {
		t.Parallel()
		got := Flatten(decodeModules(t, tree), nil).Results
		want := []TestRunResult{{Name: UnnamedTest, File: UnknownFile, Passed: true}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("first requested file", func(t *testing.T) {
		t.Parallel()
		requested := []string{abs("/p/first.test.ts"), abs("/p/second.test.ts")}
		got := Flatten(decodeModules(t, tree), requested).Results
		want := []TestRunResult{{Name: UnnamedTest, File: abs("/p/first.test.ts"), Passed: true}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestFlatten_NamesKeptVerbatim(t *testing.T) {
	t.Parallel()
	mods := decodeModules(t, `[{"filepath": "/p/a.test.ts", "tasks": [
		{"name": " padded ", "type": "test", "result": {"state": "pass"}},
		{"name": "tab\t", "type": "test", "result": {"state": "pass"}}
	]}]`)

	var names []string
	for _, r := range Flatten(mods, nil).Results {
		names = append(names, r.Name)
	}
	if diff := cmp.Diff([]string{" padded ", "tab\t"}, names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestFlatten_RequestedFilter(t *testing.T) {
	t.Parallel()
	mods := decodeModules(t, `[
		{"filepath": "/p/a.test.ts", "result": {"duration": 10}, "tasks": [
			{"name": "a", "type": "test", "result": {"state": "pass"}}
		]},
		{"filepath": "/p/other.test.ts", "result": {"duration": 99}, "tasks": [
			{"name": "other", "type": "test", "result": {"state": "pass"}}
		]},
		{"result": {"duration": 1}, "tasks": [
			{"name": "fileless", "type": "test", "result": {"state": "pass"}}
		]}
	]`)

	got := Flatten(mods, []string{filepath.FromSlash("/p/./a.test.ts")})
	var names []string
	for _, r := range got.Results {
		names = append(names, r.Name)
	}
	if diff := cmp.Diff([]string{"a", "fileless"}, names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if got.ModuleDurationMs != 11 {
		t.Errorf("ModuleDurationMs = %v, want 11 (dropped module excluded)", got.ModuleDurationMs)
	}

	all := Flatten(mods, nil)
	if len(all.Results) != 3 || all.ModuleDurationMs != 110 {
		t.Errorf("unfiltered = %d results / %v ms, want 3 / 110", len(all.Results), all.ModuleDurationMs)
	}
}

func TestFlatten_EmptyModuleCountsDuration(t *testing.T) {
	t.Parallel()
	mods := decodeModules(t, `[{"filepath": "/p/a.test.ts", "result": {"duration": 42}, "tasks": []}, null]`)
	got := Flatten(mods, []string{abs("/p/a.test.ts")})
	if len(got.Results) != 0 {
		t.Errorf("Results = %v, want none", got.Results)
	}
	if got.ModuleDurationMs != 42 {
		t.Errorf("ModuleDurationMs = %v, want 42", got.ModuleDurationMs)
	}
	if got.Results == nil {
		t.Error("Results is nil, want empty slice")
	}
}

func TestFlatten_OnlyRequestedFiles(t *testing.T) {
	t.Parallel()
	mods := decodeModules(t, `[
		{"filepath": "/p/a.test.ts", "tasks": [{"name": "a", "type": "test", "result": {"state": "pass"}}]},
		{"filepath": "/p/b.test.ts", "tasks": [{"name": "b", "type": "test", "result": {"state": "fail"}}]},
		{"filepath": "/p/c.test.ts", "tasks": [{"name": "c", "type": "test", "result": {"state": "pass"}}]}
	]`)

	for _, requested := range [][]string{
		{abs("/p/a.test.ts")},
		{abs("/p/b.test.ts"), abs("/p/c.test.ts")},
	} {
		allowed := make(map[string]bool)
		for _, f := range requested {
			allowed[f] = true
		}
		for _, r := range Flatten(mods, requested).Results {
			if !allowed[r.File] {
				t.Errorf("requested %v: result %q has file %q outside the request", requested, r.Name, r.File)
			}
		}
	}
}
