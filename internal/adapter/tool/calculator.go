package tool

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"math"
	"strconv"
	"strings"

	"aegis-ai/internal/domain"
)

// Calculator evaluates arithmetic expressions. Expressions are parsed into an
// AST and every identifier is checked against the math allow-list before
// anything is evaluated, so names like __import__ or os are rejected outright.
type Calculator struct{}

var _ domain.Tool = (*Calculator)(nil)

// NewCalculator returns the calculator tool.
func NewCalculator() *Calculator { return &Calculator{} }

// Name implements domain.Tool.
func (c *Calculator) Name() string { return "calculator" }

// Description implements domain.Tool.
func (c *Calculator) Description() string {
	return "Evaluates arithmetic expressions with common math functions (sqrt, sin, log, pow, ...) and constants (pi, e)."
}

var calcFuncs = map[string]func(args []float64) (float64, error){
	"sqrt":  unary(math.Sqrt),
	"sin":   unary(math.Sin),
	"cos":   unary(math.Cos),
	"tan":   unary(math.Tan),
	"log":   unary(math.Log),
	"log2":  unary(math.Log2),
	"log10": unary(math.Log10),
	"exp":   unary(math.Exp),
	"floor": unary(math.Floor),
	"ceil":  unary(math.Ceil),
	"abs":   unary(math.Abs),
	"pow":   binary(math.Pow),
	"min":   binary(math.Min),
	"max":   binary(math.Max),
}

var calcConsts = map[string]float64{
	"pi":  math.Pi,
	"e":   math.E,
	"tau": 2 * math.Pi,
	"inf": math.Inf(1),
	"nan": math.NaN(),
}

func unary(fn func(float64) float64) func([]float64) (float64, error) {
	return func(args []float64) (float64, error) {
		if len(args) != 1 {
			return 0, fmt.Errorf("want 1 argument, got %d", len(args))
		}
		return fn(args[0]), nil
	}
}

func binary(fn func(float64, float64) float64) func([]float64) (float64, error) {
	return func(args []float64) (float64, error) {
		if len(args) != 2 {
			return 0, fmt.Errorf("want 2 arguments, got %d", len(args))
		}
		return fn(args[0], args[1]), nil
	}
}

// Run implements domain.Tool.
func (c *Calculator) Run(_ context.Context, input string) (string, error) {
	expr := strings.TrimSpace(input)
	if expr == "" {
		return "", fmt.Errorf("empty expression")
	}

	node, err := parser.ParseExpr(expr)
	if err != nil {
		return "", fmt.Errorf("invalid expression: %v", err)
	}

	if err := checkIdentifiers(node); err != nil {
		return "", err
	}

	val, err := eval(node)
	if err != nil {
		return "", err
	}

	return strconv.FormatFloat(val, 'g', -1, 64), nil
}

// checkIdentifiers walks the whole expression before evaluation and rejects
// any name outside the allow-list.
func checkIdentifiers(node ast.Expr) error {
	var bad error
	ast.Inspect(node, func(n ast.Node) bool {
		id, ok := n.(*ast.Ident)
		if !ok {
			return true
		}
		name := strings.ToLower(id.Name)
		if _, isFunc := calcFuncs[name]; isFunc {
			return true
		}
		if _, isConst := calcConsts[name]; isConst {
			return true
		}
		if bad == nil {
			bad = fmt.Errorf("disallowed name %q", id.Name)
		}
		return false
	})
	return bad
}

func eval(node ast.Expr) (float64, error) {
	switch n := node.(type) {
	case *ast.BasicLit:
		switch n.Kind {
		case token.INT, token.FLOAT:
			return strconv.ParseFloat(n.Value, 64)
		default:
			return 0, fmt.Errorf("unsupported literal %s", n.Value)
		}

	case *ast.Ident:
		if v, ok := calcConsts[strings.ToLower(n.Name)]; ok {
			return v, nil
		}
		return 0, fmt.Errorf("disallowed name %q", n.Name)

	case *ast.ParenExpr:
		return eval(n.X)

	case *ast.UnaryExpr:
		v, err := eval(n.X)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case token.SUB:
			return -v, nil
		case token.ADD:
			return v, nil
		default:
			return 0, fmt.Errorf("unsupported operator %s", n.Op)
		}

	case *ast.BinaryExpr:
		left, err := eval(n.X)
		if err != nil {
			return 0, err
		}
		right, err := eval(n.Y)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case token.ADD:
			return left + right, nil
		case token.SUB:
			return left - right, nil
		case token.MUL:
			return left * right, nil
		case token.QUO:
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			return left / right, nil
		case token.REM:
			if right == 0 {
				return 0, fmt.Errorf("modulo by zero")
			}
			return math.Mod(left, right), nil
		default:
			return 0, fmt.Errorf("unsupported operator %s", n.Op)
		}

	case *ast.CallExpr:
		id, ok := n.Fun.(*ast.Ident)
		if !ok {
			return 0, fmt.Errorf("unsupported call syntax")
		}
		fn, ok := calcFuncs[strings.ToLower(id.Name)]
		if !ok {
			return 0, fmt.Errorf("disallowed name %q", id.Name)
		}
		args := make([]float64, 0, len(n.Args))
		for _, a := range n.Args {
			v, err := eval(a)
			if err != nil {
				return 0, err
			}
			args = append(args, v)
		}
		res, err := fn(args)
		if err != nil {
			return 0, fmt.Errorf("%s: %v", id.Name, err)
		}
		return res, nil

	default:
		return 0, fmt.Errorf("unsupported expression")
	}
}
