package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/zurustar/robologo/pkg/cli"
	"github.com/zurustar/robologo/pkg/compiler"
	"github.com/zurustar/robologo/pkg/logger"
	"github.com/zurustar/robologo/pkg/opcode"
	"github.com/zurustar/robologo/pkg/turtle"
	"github.com/zurustar/robologo/pkg/vm"
)

// Application はアプリケーションのメインロジックを管理する
type Application struct {
	config  *cli.Config
	log     *slog.Logger
	program opcode.Program // コンパイル済みプログラム
	turtle  *turtle.Turtle
	vm      *vm.VM

	stdout    io.Writer // ダンプ・トレース・ヘルプの出力先
	logOutput io.Writer // ログの出力先
}

// Option は Application のオプションを設定する関数型
type Option func(*Application)

// WithOutput はダンプ・トレース・ヘルプの出力先を設定する
func WithOutput(w io.Writer) Option {
	return func(app *Application) {
		app.stdout = w
	}
}

// WithLogOutput はログの出力先を設定する
func WithLogOutput(w io.Writer) Option {
	return func(app *Application) {
		app.logOutput = w
	}
}

// New Applicationを作成
func New(opts ...Option) *Application {
	app := &Application{
		stdout:    os.Stdout,
		logOutput: os.Stderr,
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// Run アプリケーションを実行
func (app *Application) Run(args []string) error {
	// 1. コマンドライン引数の解析
	if err := app.parseArgs(args); err != nil {
		return fmt.Errorf("failed to parse args: %w", err)
	}

	if app.config.ShowHelp {
		cli.PrintHelp(app.stdout)
		return nil
	}

	// 2. ロガーの初期化
	if err := app.initLogger(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.log.Info("Application started", "program", app.config.ProgramPath)
	if app.config.ConfigPath != "" {
		app.log.Info("Config file loaded", "path", app.config.ConfigPath)
	}

	// 3. プログラムの読み込み（ソースはコンパイル、.robc はデコード）
	if err := app.loadProgram(); err != nil {
		return err
	}

	app.log.Info("Program loaded", "instructions", len(app.program))
	app.log.Debug("Instructions generated", "preview", formatProgramPreview(app.program, 10))

	// 4. 逆アセンブルと書き出し
	if app.config.Dump {
		fmt.Fprint(app.stdout, app.program.String())
	}
	if app.config.EmitPath != "" {
		if err := compiler.SaveProgram(app.config.EmitPath, app.program); err != nil {
			return err
		}
		app.log.Info("Program written", "path", app.config.EmitPath)
	}

	// 5. 実行
	runErr := app.execute()

	// 6. 結果の表示（中断された場合も途中までの結果を出す）
	app.summarize()
	if app.config.Trace {
		app.printTrace()
	}

	if runErr != nil {
		return fmt.Errorf("execution failed: %w", runErr)
	}

	app.log.Info("Application terminated normally")
	return nil
}

// parseArgs コマンドライン引数を解析
func (app *Application) parseArgs(args []string) error {
	config, err := cli.ParseArgs(args)
	if err != nil {
		return err
	}
	app.config = config
	return nil
}

// initLogger ロガーを初期化
func (app *Application) initLogger() error {
	if err := logger.InitLoggerWithWriter(app.config.LogLevel, app.config.LogFormat, app.logOutput); err != nil {
		return err
	}
	app.log = logger.GetLogger()
	return nil
}

// loadProgram プログラムを読み込む
func (app *Application) loadProgram() error {
	program, err := compiler.LoadProgram(app.config.ProgramPath, compiler.CompileOptions{
		MaxExpressionLength: app.config.MaxExprLen,
		Encoding:            app.config.Encoding,
		Logger:              app.log,
	})
	if err != nil {
		return err
	}
	app.program = program
	return nil
}

// execute タートルを接続したVMでプログラムを実行する
// Ctrl+C で中断できる
func (app *Application) execute() error {
	app.turtle = turtle.New(
		turtle.WithLogger(app.log),
		turtle.WithLogOperations(true),
		turtle.WithRecordHistory(app.config.Trace),
	)
	app.vm = vm.New(app.program, app.turtle,
		vm.WithLogger(app.log),
		vm.WithMaxSteps(app.config.MaxSteps),
		vm.WithTimeout(app.config.Timeout),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return app.vm.Run(ctx)
}

// summarize 実行結果をログに出力する
func (app *Application) summarize() {
	if app.turtle == nil || app.vm == nil {
		return
	}
	pen := app.turtle.Pen()
	bounds := app.turtle.Bounds()
	app.log.Info("Turtle final state",
		"position", turtle.FormatPoint(app.turtle.Position()),
		"heading", app.turtle.Heading(),
		"segments", len(app.turtle.Segments()),
		"distance", app.turtle.Distance().Round(),
		"bounds_min", turtle.FormatPoint(bounds.Min),
		"bounds_max", turtle.FormatPoint(bounds.Max),
		"color", pen.Color,
		"thickness", pen.Thickness,
		"pen_down", pen.Down)
	app.log.Info("Execution summary",
		"steps", app.vm.Steps(),
		"diagnostics", app.vm.DiagnosticCount(),
		"variables", app.vm.Variables())
}

// printTrace タートルの操作履歴を出力する
func (app *Application) printTrace() {
	if app.turtle == nil {
		return
	}
	for i, rec := range app.turtle.History() {
		fmt.Fprintf(app.stdout, "%4d  %s\n", i, formatRecord(rec))
	}
}

// formatRecord 操作記録を "Operation key=value ..." 形式にする
func formatRecord(rec turtle.OperationRecord) string {
	keys := make([]string, 0, len(rec.Args))
	for k := range rec.Args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(rec.Operation)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, rec.Args[k])
	}
	return b.String()
}

// formatProgramPreview 命令列のプレビューを生成（デバッグ用）
func formatProgramPreview(program opcode.Program, maxCount int) string {
	if len(program) == 0 {
		return "[]"
	}

	count := len(program)
	if count > maxCount {
		count = maxCount
	}

	parts := make([]string, 0, count+1)
	for i := 0; i < count; i++ {
		parts = append(parts, program[i].String())
	}
	if len(program) > maxCount {
		parts = append(parts, fmt.Sprintf("... (%d more)", len(program)-maxCount))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Config は解析済みの設定を返す（Run 前は nil）
func (app *Application) Config() *cli.Config {
	return app.config
}

// Program は読み込んだプログラムを返す
func (app *Application) Program() opcode.Program {
	return app.program
}

// Turtle は実行に使われたタートルを返す（実行前は nil）
func (app *Application) Turtle() *turtle.Turtle {
	return app.turtle
}

// VM は実行に使われたVMを返す（実行前は nil）
func (app *Application) VM() *vm.VM {
	return app.vm
}
