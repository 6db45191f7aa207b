package turtle

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"golang.org/x/image/math/fixed"

	"github.com/zurustar/robologo/pkg/compiler/compiler"
	"github.com/zurustar/robologo/pkg/logger"
	"github.com/zurustar/robologo/pkg/vm"
)

var _ vm.Actions = (*Turtle)(nil)

func newQuiet(opts ...Option) *Turtle {
	return New(append([]Option{WithLogger(logger.Discard())}, opts...)...)
}

func TestNew(t *testing.T) {
	tt := newQuiet()
	if tt.Position() != (fixed.Point26_6{}) {
		t.Errorf("expected origin, got %s", FormatPoint(tt.Position()))
	}
	if tt.Heading() != 0 {
		t.Errorf("expected heading 0, got %d", tt.Heading())
	}
	if pen := tt.Pen(); pen.Down || pen.Color != DefaultColor || pen.Thickness != DefaultThickness {
		t.Errorf("unexpected default pen %+v", pen)
	}
}

func TestMoveAlongAxes(t *testing.T) {
	tests := []struct {
		heading int
		want    fixed.Point26_6
	}{
		{0, fixed.P(10, 0)},
		{90, fixed.P(0, 10)},
		{180, fixed.P(-10, 0)},
		{270, fixed.P(0, -10)},
	}

	for _, tc := range tests {
		tt := newQuiet()
		tt.Turn(tc.heading)
		tt.Move(10)
		if got := tt.Position(); got != tc.want {
			t.Errorf("heading %d: position = %s, want %s", tc.heading, FormatPoint(got), FormatPoint(tc.want))
		}
	}
}

func TestMoveBackward(t *testing.T) {
	tt := newQuiet()
	tt.Move(-7)
	if got := tt.Position(); got != fixed.P(-7, 0) {
		t.Errorf("position = %s, want (-7, 0)", FormatPoint(got))
	}
	if tt.Distance() != fixed.I(7) {
		t.Errorf("distance = %v, want 7", tt.Distance())
	}
}

func TestMoveDiagonal(t *testing.T) {
	tt := newQuiet()
	tt.Turn(45)
	tt.Move(100)
	// 100 * cos(45°) = 70.7107 -> 4525.48/64
	want := fixed.Int26_6(4525)
	if p := tt.Position(); p.X != want || p.Y != want {
		t.Errorf("position = %s (%d, %d), want (%d, %d)", FormatPoint(p), p.X, p.Y, want, want)
	}
}

func TestTurnNormalizes(t *testing.T) {
	tests := []struct {
		turns []int
		want  int
	}{
		{[]int{90}, 90},
		{[]int{-90}, 270},
		{[]int{360}, 0},
		{[]int{270, 180}, 90},
		{[]int{-720, -45}, 315},
	}

	for _, tc := range tests {
		tt := newQuiet()
		for _, d := range tc.turns {
			tt.Turn(d)
		}
		if tt.Heading() != tc.want {
			t.Errorf("turns %v: heading = %d, want %d", tc.turns, tt.Heading(), tc.want)
		}
	}
}

func TestSegmentsOnlyWithPenDown(t *testing.T) {
	tt := newQuiet()
	tt.Move(5)
	tt.SetStroke(1)
	tt.SetColor(2)
	tt.SetThickness(3)
	tt.Move(10)
	tt.Move(0)
	tt.SetStroke(0)
	tt.Move(5)

	segs := tt.Segments()
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	want := Segment{From: fixed.P(5, 0), To: fixed.P(15, 0), Color: 2, Thickness: 3}
	if segs[0] != want {
		t.Errorf("segment = %+v, want %+v", segs[0], want)
	}
}

func TestBounds(t *testing.T) {
	tt := newQuiet()
	tt.Move(10)
	tt.SetStroke(1)
	tt.Move(5)
	tt.Turn(90)
	tt.Move(-20)

	b := tt.Bounds()
	if b.Min != fixed.P(0, -20) || b.Max != fixed.P(15, 0) {
		t.Errorf("bounds = %s-%s", FormatPoint(b.Min), FormatPoint(b.Max))
	}
}

func TestHistory(t *testing.T) {
	tt := newQuiet(WithRecordHistory(true), WithLogOperations(true))
	tt.SetColor(1)
	tt.Turn(90)
	tt.Move(3)

	h := tt.History()
	if len(h) != 3 {
		t.Fatalf("expected 3 records, got %d", len(h))
	}
	if h[0].Operation != "SetColor" || h[0].Args["color"] != 1 {
		t.Errorf("record 0 = %+v", h[0])
	}
	if h[1].Operation != "Turn" || h[1].Args["heading"] != 90 {
		t.Errorf("record 1 = %+v", h[1])
	}
	if h[2].Operation != "Move" || h[2].Args["to"] != "(0.00, 3.00)" {
		t.Errorf("record 2 = %+v", h[2])
	}
}

func TestHistoryDisabledByDefault(t *testing.T) {
	tt := newQuiet()
	tt.Move(1)
	if len(tt.History()) != 0 {
		t.Error("history should not be recorded unless enabled")
	}
}

func TestFormatPoint(t *testing.T) {
	if got := FormatPoint(fixed.Point26_6{X: 96, Y: -32}); got != "(1.50, -0.50)" {
		t.Errorf("FormatPoint() = %q", got)
	}
}

func TestRunSquareProgram(t *testing.T) {
	program, err := compiler.New(compiler.WithLogger(logger.Discard())).CompileString(`
		"a square"
		set color to green
		start stroke
		repeat 4 times
			move forward 50
			turn left
		end
	`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	tt := newQuiet()
	machine := vm.New(program, tt, vm.WithLogger(logger.Discard()))
	if err := machine.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if tt.Position() != (fixed.Point26_6{}) {
		t.Errorf("square should end at the origin, got %s", FormatPoint(tt.Position()))
	}
	if tt.Heading() != 0 {
		t.Errorf("square should end facing 0, got %d", tt.Heading())
	}
	segs := tt.Segments()
	if len(segs) != 4 {
		t.Fatalf("expected 4 segments, got %d", len(segs))
	}
	for i, s := range segs {
		if s.Color != 1 {
			t.Errorf("segment %d color = %d, want 1", i, s.Color)
		}
	}
}

func TestTurtleProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("heading stays in [0, 360)", prop.ForAll(
		func(turns []int) bool {
			tt := newQuiet()
			for _, d := range turns {
				tt.Turn(d)
				if h := tt.Heading(); h < 0 || h >= 360 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(-10000, 10000)),
	))

	properties.Property("axis-aligned moves then their reverse return to the origin", prop.ForAll(
		func(moves []int) bool {
			tt := newQuiet()
			for i, d := range moves {
				tt.Turn(90 * (i % 4))
				tt.Move(d)
			}
			for i := len(moves) - 1; i >= 0; i-- {
				tt.Move(-moves[i])
				tt.Turn(-90 * (i % 4))
			}
			return tt.Position() == (fixed.Point26_6{}) && tt.Heading() == 0
		},
		gen.SliceOf(gen.IntRange(-1000, 1000)),
	))

	properties.TestingRun(t)
}
