package parser

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/zurustar/robologo/pkg/compiler/ast"
)

var propertyOperators = []ast.BinaryOperator{
	ast.Add, ast.Subtract, ast.Multiply, ast.Divide,
	ast.Equals, ast.GreaterThan, ast.LessThan,
	ast.And, ast.Or,
}

// render prints a tree as parseable, fully parenthesized source.
func render(n ast.Node) string {
	switch v := n.(type) {
	case *ast.BinaryOp:
		return "(" + render(v.Left) + " " + string(v.Op) + " " + render(v.Right) + ")"
	case *ast.UnaryOp:
		return string(v.Op) + render(v.Operand)
	default:
		return n.String()
	}
}

// TestPropertyParenthesizedRoundTrip checks that a fully parenthesized
// rendering of an arbitrary literal tree parses back to the same value.
func TestPropertyParenthesizedRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("parse(render(tree)) evaluates like tree", prop.ForAll(
		func(values []int, ops []int, negate []bool) bool {
			var tree ast.Node = &ast.Literal{Value: values[0]}
			for i := 1; i < len(values); i++ {
				var operand ast.Node = &ast.Literal{Value: values[i]}
				if negate[i] {
					operand = &ast.UnaryOp{Op: ast.Negate, Operand: operand}
				}
				op := propertyOperators[ops[i]]
				if i%2 == 0 {
					tree = &ast.BinaryOp{Op: op, Left: tree, Right: operand}
				} else {
					tree = &ast.BinaryOp{Op: op, Left: operand, Right: tree}
				}
			}

			parsed, err := New(WithMaxLength(4096)).Parse(render(tree))
			if err != nil {
				return false
			}
			return parsed.Eval(newMapEnv(nil)) == tree.Eval(newMapEnv(nil))
		},
		gen.SliceOfN(6, gen.IntRange(0, 50)),
		gen.SliceOfN(6, gen.IntRange(0, len(propertyOperators)-1)),
		gen.SliceOfN(6, gen.Bool()),
	))

	properties.TestingRun(t)
}

// TestPropertyPrecedence checks a op1 b op2 c against explicit grouping:
// the looser operator ends up at the root, ties group to the right.
func TestPropertyPrecedence(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("unparenthesized chains follow operator ranks", prop.ForAll(
		func(a, b, c, i, j int) bool {
			op1 := propertyOperators[i]
			op2 := propertyOperators[j]
			la := &ast.Literal{Value: a}
			lb := &ast.Literal{Value: b}
			lc := &ast.Literal{Value: c}

			var want ast.Node
			if op1.Rank() > op2.Rank() {
				want = &ast.BinaryOp{Op: op2, Left: &ast.BinaryOp{Op: op1, Left: la, Right: lb}, Right: lc}
			} else {
				want = &ast.BinaryOp{Op: op1, Left: la, Right: &ast.BinaryOp{Op: op2, Left: lb, Right: lc}}
			}

			src := la.String() + " " + string(op1) + " " + lb.String() + " " + string(op2) + " " + lc.String()
			parsed, err := New().Parse(src)
			if err != nil {
				return false
			}
			return parsed.String() == want.String()
		},
		gen.IntRange(0, 99),
		gen.IntRange(0, 99),
		gen.IntRange(0, 99),
		gen.IntRange(0, len(propertyOperators)-1),
		gen.IntRange(0, len(propertyOperators)-1),
	))

	properties.Property("unary operators bind tighter than any binary operator", prop.ForAll(
		func(a, b, i int) bool {
			op := propertyOperators[i]
			parsed, err := New().Parse("-" + (&ast.Literal{Value: a}).String() + " " + string(op) + " " + (&ast.Literal{Value: b}).String())
			if err != nil {
				return false
			}
			bin, ok := parsed.(*ast.BinaryOp)
			if !ok || bin.Op != op {
				return false
			}
			_, ok = bin.Left.(*ast.UnaryOp)
			return ok
		},
		gen.IntRange(0, 99),
		gen.IntRange(0, 99),
		gen.IntRange(0, len(propertyOperators)-1),
	))

	properties.TestingRun(t)
}
