package auth

import "testing"

func TestEvaluateBexpr(t *testing.T) {
	tests := []struct {
		name  string
		expr  string
		attrs map[string]any
		want  bool
	}{
		{"empty expression allows", "", map[string]any{"own": "false"}, true},
		{"whitespace-only expression allows", "   ", nil, true},
		{"ownership match", `own == "true"`, map[string]any{"own": "true"}, true},
		{"ownership mismatch", `own == "true"`, map[string]any{"own": "false"}, false},
		{"compound match", `own == "true" and status != "archived"`, map[string]any{"own": "true", "status": "active"}, true},
		{"compound blocked by status", `own == "true" and status != "archived"`, map[string]any{"own": "true", "status": "archived"}, false},
		// Missing attribute keys fail closed.
		{"missing attribute denies", `own == "true"`, map[string]any{"status": "active"}, false},
		// Unparseable expressions fail closed.
		{"invalid syntax denies", `own === `, map[string]any{"own": "true"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EvaluateBexpr(tt.expr, tt.attrs); got != tt.want {
				t.Errorf("EvaluateBexpr(%q, %v) = %v, want %v", tt.expr, tt.attrs, got, tt.want)
			}
		})
	}
}

func TestEvaluateBexprCachedEvaluator(t *testing.T) {
	expr := `status == "active"`

	// First call compiles and caches, second hits the cache. Both must agree.
	if !EvaluateBexpr(expr, map[string]any{"status": "active"}) {
		t.Error("first evaluation should match")
	}
	if EvaluateBexpr(expr, map[string]any{"status": "paused"}) {
		t.Error("cached evaluation should not match")
	}
}

func TestBexprMatchFunction(t *testing.T) {
	fn := BexprMatchFunction()

	got, err := fn(`own == "true"`, map[string]any{"own": "true"})
	if err != nil {
		t.Fatalf("bexprMatch failed: %v", err)
	}
	if got != true {
		t.Errorf("bexprMatch = %v, want true", got)
	}

	if _, err := fn(`own == "true"`); err == nil {
		t.Error("wrong arity should fail")
	}
	if _, err := fn(42, map[string]any{}); err == nil {
		t.Error("non-string expression should fail")
	}
	if _, err := fn("", "not-a-map"); err == nil {
		t.Error("non-map attrs should fail")
	}
}
