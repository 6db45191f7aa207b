package app

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/image/math/fixed"
	"golang.org/x/text/encoding/japanese"

	"github.com/zurustar/robologo/pkg/compiler"
	"github.com/zurustar/robologo/pkg/opcode"
	"github.com/zurustar/robologo/pkg/turtle"
	"github.com/zurustar/robologo/pkg/vm"
)

const squareSource = `"a square"
set color to blue
set thickness to 3
start stroke
repeat 4 times
	move forward 50
	turn left
end
`

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"LOG_LEVEL", "TIMEOUT", "MAX_STEPS"} {
		t.Setenv(name, "")
	}
}

func writeProgram(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// newTestApp 出力をバッファに向けた Application を作る
func newTestApp() (*Application, *bytes.Buffer, *bytes.Buffer) {
	var out, logs bytes.Buffer
	return New(WithOutput(&out), WithLogOutput(&logs)), &out, &logs
}

func TestRun_Help(t *testing.T) {
	clearEnv(t)

	application, out, _ := newTestApp()
	if err := application.Run([]string{"--help"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "Usage:") {
		t.Errorf("help not printed, got %q", out.String())
	}
}

func TestRun_SquareProgram(t *testing.T) {
	clearEnv(t)
	path := writeProgram(t, "square.robo", []byte(squareSource))

	application, out, logs := newTestApp()
	if err := application.Run([]string{"--dump", "--trace", path}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tt := application.Turtle()
	if tt.Position() != (fixed.Point26_6{}) {
		t.Errorf("position = %s, want origin", turtle.FormatPoint(tt.Position()))
	}
	segs := tt.Segments()
	if len(segs) != 4 {
		t.Fatalf("segments = %d, want 4", len(segs))
	}
	if segs[0].Color != 2 || segs[0].Thickness != 3 {
		t.Errorf("segment pen = color %d thickness %d, want 2 and 3", segs[0].Color, segs[0].Thickness)
	}

	// ダンプ
	if !strings.Contains(out.String(), "halt") {
		t.Errorf("disassembly missing, got %q", out.String())
	}
	// トレース: SetColor, SetThickness, SetStroke, 4 x (Move, Turn)
	if got := strings.Count(out.String(), "Move "); got != 4 {
		t.Errorf("trace has %d Move lines, want 4", got)
	}
	if !strings.Contains(out.String(), "SetColor color=2") {
		t.Errorf("trace missing SetColor, got %q", out.String())
	}

	if !strings.Contains(logs.String(), "Turtle final state") {
		t.Errorf("summary not logged, got %q", logs.String())
	}
	// 左回りの正方形は (0,0)-(50,50) の範囲に収まる
	if !strings.Contains(logs.String(), "bounds_min=\"(0.00, 0.00)\"") ||
		!strings.Contains(logs.String(), "bounds_max=\"(50.00, 50.00)\"") {
		t.Errorf("bounds not logged, got %q", logs.String())
	}
}

func TestRun_EmitAndReload(t *testing.T) {
	clearEnv(t)
	path := writeProgram(t, "square.robo", []byte(squareSource))
	emitted := filepath.Join(t.TempDir(), "square.robc")

	first, _, _ := newTestApp()
	if err := first.Run([]string{"--emit", emitted, path}); err != nil {
		t.Fatalf("first run: %v", err)
	}

	second, _, _ := newTestApp()
	if err := second.Run([]string{emitted}); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if first.Program().String() != second.Program().String() {
		t.Errorf("reloaded program differs:\n%s\nvs\n%s", first.Program(), second.Program())
	}
	if len(second.Turtle().Segments()) != len(first.Turtle().Segments()) {
		t.Errorf("segments differ after reload")
	}
}

func TestRun_ShiftJISSource(t *testing.T) {
	clearEnv(t)

	src := "\"四角形\"\nstart stroke\nmove forward 10\n"
	encoded, err := japanese.ShiftJIS.NewEncoder().String(src)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	path := writeProgram(t, "sjis.robo", []byte(encoded))

	application, _, _ := newTestApp()
	if err := application.Run([]string{"--encoding", "shift_jis", path}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(application.Turtle().Segments()) != 1 {
		t.Errorf("segments = %d, want 1", len(application.Turtle().Segments()))
	}
}

func TestRun_CompileError(t *testing.T) {
	clearEnv(t)
	path := writeProgram(t, "bad.robo", []byte("move forward 10\nset colour to red\n"))

	application, _, _ := newTestApp()
	err := application.Run([]string{path})
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var cerr *compiler.CompileError
	if !errors.As(err, &cerr) {
		t.Fatalf("error = %T %v, want *compiler.CompileError", err, err)
	}
	if cerr.Line != 2 {
		t.Errorf("Line = %d, want 2", cerr.Line)
	}
	if !strings.Contains(err.Error(), "bad.robo") {
		t.Errorf("error %q should name the file", err.Error())
	}
	if application.VM() != nil {
		t.Error("VM should not be created after a compile error")
	}
}

func TestRun_StepLimit(t *testing.T) {
	clearEnv(t)
	path := writeProgram(t, "loop.robo", []byte("while 1\n  move forward 1\nend\n"))

	application, _, _ := newTestApp()
	err := application.Run([]string{"--max-steps", "100", path})

	var rerr *vm.RuntimeError
	if !errors.As(err, &rerr) {
		t.Fatalf("error = %v, want *vm.RuntimeError", err)
	}
	if rerr.Type != vm.ErrorStepLimitExceeded {
		t.Errorf("Type = %s, want %s", rerr.Type, vm.ErrorStepLimitExceeded)
	}
	if application.VM().Steps() != 100 {
		t.Errorf("Steps = %d, want 100", application.VM().Steps())
	}
}

func TestRun_DiagnosticsDoNotFail(t *testing.T) {
	clearEnv(t)
	path := writeProgram(t, "div.robo", []byte("X = (5/0)\nY = Z\n"))

	application, _, logs := newTestApp()
	if err := application.Run([]string{path}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := application.VM().DiagnosticCount(); n != 2 {
		t.Errorf("DiagnosticCount = %d, want 2", n)
	}
	if !strings.Contains(logs.String(), "Runtime error") {
		t.Errorf("diagnostics not logged, got %q", logs.String())
	}
}

func TestRun_JSONLogs(t *testing.T) {
	clearEnv(t)
	path := writeProgram(t, "square.robo", []byte(squareSource))

	application, _, logs := newTestApp()
	if err := application.Run([]string{"--log-format", "json", path}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(logs.String(), "{") {
		t.Errorf("expected JSON log lines, got %q", logs.String())
	}
}

func TestRun_ArgumentErrors(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"プログラム未指定", []string{}},
		{"存在しないファイル", []string{filepath.Join(t.TempDir(), "missing.robo")}},
		{"無効なログレベル", []string{"-l", "loud", "a.robo"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			application, _, _ := newTestApp()
			if err := application.Run(tt.args); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestFormatRecord(t *testing.T) {
	rec := turtle.OperationRecord{
		Operation: "Turn",
		Args:      map[string]any{"heading": 90, "degrees": 90},
	}
	if got, want := formatRecord(rec), "Turn degrees=90 heading=90"; got != want {
		t.Errorf("formatRecord = %q, want %q", got, want)
	}
}

func TestFormatProgramPreview(t *testing.T) {
	program := opcode.Program{
		opcode.NewJump(1),
		opcode.NewJump(2),
		opcode.NewJump(3),
	}

	if got := formatProgramPreview(nil, 2); got != "[]" {
		t.Errorf("empty preview = %q, want []", got)
	}
	got := formatProgramPreview(program, 2)
	if !strings.HasSuffix(got, "... (1 more)]") {
		t.Errorf("preview = %q, want truncated", got)
	}
}
