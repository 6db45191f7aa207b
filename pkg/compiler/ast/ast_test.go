package ast

import "testing"

type mapEnv struct {
	vars    map[string]int
	reports []DiagnosticKind
}

func (e *mapEnv) Get(name string) (int, bool) {
	v, ok := e.vars[name]
	return v, ok
}

func (e *mapEnv) Report(kind DiagnosticKind, detail string) {
	e.reports = append(e.reports, kind)
}

func lit(v int) Node { return &Literal{Value: v} }

func bin(op BinaryOperator, l, r Node) Node { return &BinaryOp{Op: op, Left: l, Right: r} }

func TestEval(t *testing.T) {
	tests := []struct {
		name string
		node Node
		want int
	}{
		{"null", Null{}, 0},
		{"add", bin(Add, lit(2), lit(3)), 5},
		{"subtract", bin(Subtract, lit(2), lit(3)), -1},
		{"multiply", bin(Multiply, lit(-4), lit(3)), -12},
		{"divide truncates toward zero", bin(Divide, lit(-7), lit(2)), -3},
		{"equals true", bin(Equals, lit(4), lit(4)), 1},
		{"equals false", bin(Equals, lit(4), lit(5)), 0},
		{"greater", bin(GreaterThan, lit(5), lit(4)), 1},
		{"less", bin(LessThan, lit(5), lit(4)), 0},
		{"and", bin(And, lit(2), lit(-1)), 1},
		{"and false", bin(And, lit(2), lit(0)), 0},
		{"or", bin(Or, lit(0), lit(7)), 1},
		{"or false", bin(Or, lit(0), lit(0)), 0},
		{"negate", &UnaryOp{Op: Negate, Operand: lit(6)}, -6},
		{"complement of zero", &UnaryOp{Op: Complement, Operand: lit(0)}, 1},
		{"complement of nonzero", &UnaryOp{Op: Complement, Operand: lit(9)}, 0},
		{"variable", &Variable{Name: "X"}, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := &mapEnv{vars: map[string]int{"X": 42}}
			if got := tt.node.Eval(env); got != tt.want {
				t.Errorf("Eval(%s) = %d, want %d", tt.node, got, tt.want)
			}
			if len(env.reports) != 0 {
				t.Errorf("unexpected diagnostics: %v", env.reports)
			}
		})
	}
}

func TestEvalDiagnostics(t *testing.T) {
	tests := []struct {
		name string
		node Node
		want []DiagnosticKind
	}{
		{"division by zero", bin(Divide, lit(1), lit(0)), []DiagnosticKind{DivisionByZero}},
		{"undefined variable", &Variable{Name: "Y"}, []DiagnosticKind{UndefinedVariable}},
		{"both", bin(Divide, &Variable{Name: "Y"}, lit(0)), []DiagnosticKind{UndefinedVariable, DivisionByZero}},
		{"and short-circuits", bin(And, lit(0), &Variable{Name: "Y"}), nil},
		{"or short-circuits", bin(Or, lit(1), &Variable{Name: "Y"}), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := &mapEnv{}
			if got := tt.node.Eval(env); got != 0 && tt.want != nil {
				t.Errorf("Eval = %d, want 0", got)
			}
			if len(env.reports) != len(tt.want) {
				t.Fatalf("reports = %v, want %v", env.reports, tt.want)
			}
			for i := range tt.want {
				if env.reports[i] != tt.want[i] {
					t.Errorf("report %d = %s, want %s", i, env.reports[i], tt.want[i])
				}
			}
		})
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		node Node
		want string
	}{
		{bin(Add, lit(1), bin(Multiply, lit(2), lit(3))), "(1+(2*3))"},
		{&UnaryOp{Op: Negate, Operand: &Variable{Name: "X"}}, "-X"},
		{&UnaryOp{Op: Complement, Operand: &Variable{Name: "X"}}, "!X"},
		{bin(And, lit(1), lit(0)), "(1&0)"},
		{bin(Or, lit(1), lit(0)), "(1|0)"},
		{Null{}, "0"},
	}

	for _, tt := range tests {
		if got := tt.node.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestLookup(t *testing.T) {
	if op, rank, ok := LookupBinary("and"); !ok || op != And || rank != RankLogical {
		t.Errorf("LookupBinary(and) = %q, %d, %v", op, rank, ok)
	}
	if _, _, ok := LookupBinary("%"); ok {
		t.Error("LookupBinary(%) should fail")
	}
	if op, ok := LookupUnary("!"); !ok || op != Complement {
		t.Errorf("LookupUnary(!) = %q, %v", op, ok)
	}
	if _, ok := LookupUnary("+"); ok {
		t.Error("LookupUnary(+) should fail")
	}
	if Multiply.Rank() <= Add.Rank() || Add.Rank() <= Equals.Rank() || Equals.Rank() <= Or.Rank() {
		t.Error("ranks must increase from logical to multiplicative")
	}
}
