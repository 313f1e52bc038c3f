package tool

import (
	"context"
	"strings"
	"testing"
)

func TestCalculatorRun(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"precedence", "2 + 2 * 3", "8"},
		{"parens", "(2 + 2) * 3", "12"},
		{"division", "7 / 2", "3.5"},
		{"modulo", "10 % 3", "1"},
		{"unary minus", "-4 + 10", "6"},
		{"float literal", "1.5 * 4", "6"},
		{"sqrt", "sqrt(16)", "4"},
		{"pow", "pow(2, 10)", "1024"},
		{"nested call", "sqrt(pow(3, 2) + pow(4, 2))", "5"},
		{"constant pi", "floor(pi)", "3"},
		{"min max", "min(3, max(1, 2))", "2"},
		{"abs", "abs(-7)", "7"},
		{"whitespace", "  2+3  ", "5"},
	}

	calc := NewCalculator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := calc.Run(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("Run(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Run(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCalculatorRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"import attempt", "__import__('os')"},
		{"bare name", "os"},
		{"selector", "os.Exit(1)"},
		{"string literal", `"hello"`},
		{"division by zero", "1 / 0"},
		{"modulo by zero", "5 % 0"},
		{"garbage", "2 +* 3"},
		{"wrong arity", "sqrt(1, 2)"},
		{"unknown function", "system(1)"},
	}

	calc := NewCalculator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := calc.Run(context.Background(), tt.input); err == nil {
				t.Errorf("Run(%q) succeeded, want error", tt.input)
			}
		})
	}
}

func TestCalculatorRejectsBeforeEvaluating(t *testing.T) {
	// The disallowed name appears after a valid subexpression; the check
	// must still fire without evaluating anything.
	calc := NewCalculator()
	_, err := calc.Run(context.Background(), "1 + evil()")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "disallowed name") {
		t.Errorf("err = %v, want disallowed name", err)
	}
}
