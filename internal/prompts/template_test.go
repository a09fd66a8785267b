package prompts

import (
	"strings"
	"testing"
)

func TestRender_Variables(t *testing.T) {
	out, err := Render("Issue #{{issue_number}}: {{issue_title}}", Vars{
		"issue_number": "42",
		"issue_title":  "Fix the thing",
	})
	if err != nil {
		t.Fatal(err)
	}
	if out != "Issue #42: Fix the thing" {
		t.Errorf("out = %q", out)
	}
}

func TestRender_MissingVariable(t *testing.T) {
	_, err := Render("Hello {{name}}", Vars{})
	if err == nil || !strings.Contains(err.Error(), "name") {
		t.Errorf("expected missing-variable error naming the variable, got %v", err)
	}
}

func TestRender_ConditionalIncluded(t *testing.T) {
	tmpl := "start{{#if plan_path}} plan at {{plan_path}}{{/if}} end"
	out, err := Render(tmpl, Vars{"plan_path": "specs/x.md"})
	if err != nil {
		t.Fatal(err)
	}
	if out != "start plan at specs/x.md end" {
		t.Errorf("out = %q", out)
	}
}

func TestRender_ConditionalOmitted(t *testing.T) {
	tmpl := "start{{#if plan_path}} plan at {{plan_path}}{{/if}} end"

	for name, vars := range map[string]Vars{
		"absent": {},
		"empty":  {"plan_path": ""},
	} {
		out, err := Render(tmpl, vars)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if out != "start end" {
			t.Errorf("%s: out = %q", name, out)
		}
	}
}

func TestRender_NestedConditionals(t *testing.T) {
	tmpl := "{{#if a}}A{{#if b}}B{{/if}}{{/if}}"
	out, err := Render(tmpl, Vars{"a": "1", "b": "1"})
	if err != nil {
		t.Fatal(err)
	}
	if out != "AB" {
		t.Errorf("out = %q", out)
	}

	out, err = Render(tmpl, Vars{"a": "1"})
	if err != nil {
		t.Fatal(err)
	}
	if out != "A" {
		t.Errorf("out = %q", out)
	}
}

func TestRender_UnbalancedConditionals(t *testing.T) {
	if _, err := Render("{{#if a}}never closed", Vars{"a": "1"}); err == nil {
		t.Error("expected error for unclosed conditional")
	}
	if _, err := Render("dangling {{/if}}", Vars{}); err == nil {
		t.Error("expected error for dangling close tag")
	}
}

func TestLoad_Builtins(t *testing.T) {
	for _, name := range []string{
		"classify.md", "branch.md", "plan-chore.md", "plan-bug.md",
		"plan-feature.md", "commit.md", "implement.md", "pull-request.md",
	} {
		content, err := Load(name)
		if err != nil {
			t.Errorf("Load(%q): %v", name, err)
			continue
		}
		if content == "" {
			t.Errorf("Load(%q) returned empty template", name)
		}
	}
}

func TestLoad_Unknown(t *testing.T) {
	if _, err := Load("no-such-template.md"); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestBuiltins_RenderCleanly(t *testing.T) {
	vars := Vars{
		"issue_number": "42",
		"issue_title":  "Add retry logic",
		"issue_body":   "The client should retry on 5xx.",
		"run_id":       "a1b2c3d4",
		"label":        "feature",
		"branch":       "feature-42-a1b2c3d4-add-retry-logic",
		"plan_path":    "specs/feature-42-a1b2c3d4-add-retry-logic.md",
		"base_branch":  "main",
		"what":         "implementation plan",
	}
	for name, tmpl := range builtinTemplates {
		out, err := Render(tmpl, vars)
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if strings.Contains(out, "{{") {
			t.Errorf("%s: unexpanded placeholder in output:\n%s", name, out)
		}
	}
}
