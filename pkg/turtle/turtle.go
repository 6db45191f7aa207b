// Package turtle provides a headless turtle-graphics host for the robologo VM.
// It implements vm.Actions by tracking pen state, heading and position and
// recording the line segments a real canvas would draw. Nothing is drawn.
package turtle

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"golang.org/x/image/math/fixed"

	"github.com/zurustar/robologo/pkg/logger"
)

// Default pen settings.
const (
	DefaultColor     = 0
	DefaultThickness = 1
)

// Pen はペンの状態を表す
type Pen struct {
	Color     int  // パレット番号
	Thickness int  // 線の太さ
	Down      bool // 移動時に線を引くかどうか
}

// Segment は描かれた線分を表す
type Segment struct {
	From      fixed.Point26_6
	To        fixed.Point26_6
	Color     int
	Thickness int
}

// OperationRecord は操作の記録を表す
type OperationRecord struct {
	Operation string
	Args      map[string]any
}

// Turtle is the headless host. Heading is in whole degrees, normalised to
// [0, 360); 0 points along +X and positive turns are counter-clockwise with
// +Y up. Positions are 26.6 fixed-point so repeated moves along the axes
// never drift.
type Turtle struct {
	pos      fixed.Point26_6
	heading  int
	pen      Pen
	segments []Segment
	moved    fixed.Int26_6

	// ログ
	log           *slog.Logger
	logOperations bool // 操作をログに記録するかどうか
	recordHistory bool // 操作履歴を保持するかどうか
	history       []OperationRecord

	mu sync.RWMutex
}

// Option は Turtle のオプションを設定する関数型
type Option func(*Turtle)

// WithLogger はロガーを設定する
func WithLogger(log *slog.Logger) Option {
	return func(t *Turtle) {
		t.log = log
	}
}

// WithLogOperations は操作のログ記録を有効/無効にする
func WithLogOperations(enabled bool) Option {
	return func(t *Turtle) {
		t.logOperations = enabled
	}
}

// WithRecordHistory は操作履歴の保持を有効/無効にする
func WithRecordHistory(enabled bool) Option {
	return func(t *Turtle) {
		t.recordHistory = enabled
	}
}

// New creates a turtle at the origin facing +X with the pen up.
func New(opts ...Option) *Turtle {
	t := &Turtle{
		pen: Pen{Color: DefaultColor, Thickness: DefaultThickness},
		log: logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SetColor selects the pen color by palette index.
func (t *Turtle) SetColor(color int) {
	t.mu.Lock()
	t.pen.Color = color
	t.mu.Unlock()
	t.logOperation("SetColor", "color", color)
}

// SetThickness sets the pen thickness.
func (t *Turtle) SetThickness(thickness int) {
	t.mu.Lock()
	t.pen.Thickness = thickness
	t.mu.Unlock()
	t.logOperation("SetThickness", "thickness", thickness)
}

// SetStroke lowers the pen for any nonzero argument and raises it for 0.
func (t *Turtle) SetStroke(on int) {
	t.mu.Lock()
	t.pen.Down = on != 0
	t.mu.Unlock()
	t.logOperation("SetStroke", "down", on != 0)
}

// Move advances along the heading; a negative distance moves backward.
// With the pen down a Segment is recorded.
func (t *Turtle) Move(distance int) {
	rad := float64(t.Heading()) * math.Pi / 180
	dx := toFixed(float64(distance) * math.Cos(rad))
	dy := toFixed(float64(distance) * math.Sin(rad))

	t.mu.Lock()
	from := t.pos
	to := fixed.Point26_6{X: from.X + dx, Y: from.Y + dy}
	t.pos = to
	t.moved += fixed.I(abs(distance))
	drawn := t.pen.Down && distance != 0
	if drawn {
		t.segments = append(t.segments, Segment{
			From:      from,
			To:        to,
			Color:     t.pen.Color,
			Thickness: t.pen.Thickness,
		})
	}
	t.mu.Unlock()

	t.logOperation("Move", "distance", distance, "from", FormatPoint(from), "to", FormatPoint(to), "drawn", drawn)
}

// Turn rotates by degrees; positive is counter-clockwise.
func (t *Turtle) Turn(degrees int) {
	t.mu.Lock()
	t.heading = normalize(t.heading + degrees)
	heading := t.heading
	t.mu.Unlock()
	t.logOperation("Turn", "degrees", degrees, "heading", heading)
}

// Position returns the current position.
func (t *Turtle) Position() fixed.Point26_6 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pos
}

// Heading returns the heading in degrees, in [0, 360).
func (t *Turtle) Heading() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.heading
}

// Pen returns the pen state.
func (t *Turtle) Pen() Pen {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pen
}

// Segments returns a copy of the recorded segments in drawing order.
func (t *Turtle) Segments() []Segment {
	t.mu.RLock()
	defer t.mu.RUnlock()
	result := make([]Segment, len(t.segments))
	copy(result, t.segments)
	return result
}

// Distance returns the total distance travelled, pen up or down.
func (t *Turtle) Distance() fixed.Int26_6 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.moved
}

// Bounds returns the smallest rectangle containing the origin and every
// drawn segment.
func (t *Turtle) Bounds() fixed.Rectangle26_6 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var r fixed.Rectangle26_6
	for _, s := range t.segments {
		r = extend(r, s.From)
		r = extend(r, s.To)
	}
	return r
}

// History は操作履歴を返す
func (t *Turtle) History() []OperationRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	// コピーを返す
	result := make([]OperationRecord, len(t.history))
	copy(result, t.history)
	return result
}

// logOperation は操作をログと履歴に記録する
func (t *Turtle) logOperation(operation string, args ...any) {
	if t.logOperations {
		t.log.Debug(fmt.Sprintf("[Turtle] %s", operation), args...)
	}

	if !t.recordHistory {
		return
	}
	record := OperationRecord{
		Operation: operation,
		Args:      make(map[string]any),
	}
	// argsをkey-valueペアとして解析
	for i := 0; i < len(args)-1; i += 2 {
		if key, ok := args[i].(string); ok {
			record.Args[key] = args[i+1]
		}
	}
	t.mu.Lock()
	t.history = append(t.history, record)
	t.mu.Unlock()
}

// FormatPoint renders a fixed-point position as "(x, y)" with two decimals.
func FormatPoint(p fixed.Point26_6) string {
	return fmt.Sprintf("(%.2f, %.2f)", toFloat(p.X), toFloat(p.Y))
}

func toFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}

func toFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

func normalize(degrees int) int {
	return ((degrees % 360) + 360) % 360
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func extend(r fixed.Rectangle26_6, p fixed.Point26_6) fixed.Rectangle26_6 {
	if p.X < r.Min.X {
		r.Min.X = p.X
	}
	if p.Y < r.Min.Y {
		r.Min.Y = p.Y
	}
	if p.X > r.Max.X {
		r.Max.X = p.X
	}
	if p.Y > r.Max.Y {
		r.Max.Y = p.Y
	}
	return r
}
