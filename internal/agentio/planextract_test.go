package agentio

import "testing"

func TestExtractPlanPrefersMarkedBlock(t *testing.T) {
	output := "preamble chatter\n<<<PLAN>>>\n1. do a thing\n2. do another\n<<<END_PLAN>>>\ntrailing chatter"
	plan, heuristic := ExtractPlan(output)
	if heuristic != "marked" {
		t.Errorf("expected marked heuristic, got %q", heuristic)
	}
	if plan != "1. do a thing\n2. do another" {
		t.Errorf("unexpected plan text: %q", plan)
	}
}

func TestExtractPlanFallsBackToBulletList(t *testing.T) {
	output := "Here is what I'll do:\n- step one\n- step two\nThanks."
	plan, heuristic := ExtractPlan(output)
	if heuristic != "bullet-list" {
		t.Errorf("expected bullet-list heuristic, got %q", heuristic)
	}
	if plan == "" {
		t.Error("expected non-empty plan")
	}
}

func TestExtractPlanFallsBackToNumberedList(t *testing.T) {
	output := "Plan:\n1. first\n2. second\n3. third"
	plan, heuristic := ExtractPlan(output)
	if heuristic != "numbered-list" {
		t.Errorf("expected numbered-list heuristic, got %q", heuristic)
	}
	if plan == "" {
		t.Error("expected non-empty plan")
	}
}

func TestExtractPlanTruncatesAsLastResort(t *testing.T) {
	output := make([]byte, 1000)
	for i := range output {
		output[i] = 'x'
	}
	plan, heuristic := ExtractPlan(string(output))
	if heuristic != "truncated" {
		t.Errorf("expected truncated heuristic, got %q", heuristic)
	}
	if len(plan) != truncatedPlanLength {
		t.Errorf("expected truncated plan of length %d, got %d", truncatedPlanLength, len(plan))
	}
}
