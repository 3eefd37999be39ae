package aicap

import (
	"slices"
	"testing"
)

func TestBuildIntentFunctions(t *testing.T) {
	t.Parallel()
	decls := BuildIntentFunctions()

	if len(decls) != len(IntentSlotKeys) {
		t.Fatalf("got %d declarations, want %d", len(decls), len(IntentSlotKeys))
	}

	for _, fd := range decls {
		keys, ok := IntentSlotKeys[fd.Name]
		if !ok {
			t.Errorf("declaration %q has no IntentSlotKeys entry", fd.Name)
			continue
		}
		if fd.Description == "" {
			t.Errorf("declaration %q has no description", fd.Name)
		}
		if fd.Parameters == nil {
			t.Fatalf("declaration %q has no parameters", fd.Name)
		}
		if !slices.Contains(fd.Parameters.Required, "confidence") {
			t.Errorf("declaration %q must require confidence", fd.Name)
		}
		if _, ok := fd.Parameters.Properties["confidence"]; !ok {
			t.Errorf("declaration %q missing confidence property", fd.Name)
		}
		for _, key := range keys {
			if _, ok := fd.Parameters.Properties[key]; !ok {
				t.Errorf("declaration %q missing slot property %q", fd.Name, key)
			}
		}
		// Properties hold exactly the declared slots plus confidence.
		if got, want := len(fd.Parameters.Properties), len(keys)+1; got != want {
			t.Errorf("declaration %q has %d properties, want %d", fd.Name, got, want)
		}
	}
}

func TestBuildSlotFunction(t *testing.T) {
	t.Parallel()
	fd := BuildSlotFunction()

	if fd.Name != "fill_slots" {
		t.Errorf("Name = %q, want fill_slots", fd.Name)
	}
	if len(fd.Parameters.Required) != 0 {
		t.Errorf("fill_slots should have no required parameters, got %v", fd.Parameters.Required)
	}
	if _, ok := fd.Parameters.Properties["confidence"]; ok {
		t.Error("fill_slots should not carry a confidence parameter")
	}
	for _, key := range []string{"studentName", "courseName", "scheduleTime", "content"} {
		if _, ok := fd.Parameters.Properties[key]; !ok {
			t.Errorf("fill_slots missing slot property %q", key)
		}
	}
}

func TestResultFromArgs(t *testing.T) {
	t.Parallel()

	result, err := resultFromArgs("add_course", map[string]any{
		"confidence":   0.85,
		"studentName":  "小明",
		"courseName":   "數學課",
		"scheduleTime": "15:00",
		"bogus":        "dropped",
	})
	if err != nil {
		t.Fatalf("resultFromArgs() error = %v", err)
	}
	if result.Intent != "add_course" {
		t.Errorf("Intent = %q, want add_course", result.Intent)
	}
	if result.Confidence != 0.85 {
		t.Errorf("Confidence = %v, want 0.85", result.Confidence)
	}
	if result.Slots["studentName"] != "小明" {
		t.Errorf("studentName = %q, want 小明", result.Slots["studentName"])
	}
	if _, ok := result.Slots["bogus"]; ok {
		t.Error("undeclared slot should be dropped")
	}
}

func TestResultFromArgs_UnknownFunction(t *testing.T) {
	t.Parallel()
	if _, err := resultFromArgs("launch_rocket", map[string]any{"confidence": 1.0}); err == nil {
		t.Error("unknown function name should error")
	}
}

func TestResultFromArgs_ConfidenceClamped(t *testing.T) {
	t.Parallel()
	result, err := resultFromArgs("unknown", map[string]any{"confidence": 1.7})
	if err != nil {
		t.Fatalf("resultFromArgs() error = %v", err)
	}
	if result.Confidence != 1.0 {
		t.Errorf("Confidence = %v, want clamped to 1.0", result.Confidence)
	}
}
