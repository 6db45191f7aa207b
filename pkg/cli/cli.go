package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/zurustar/robologo/pkg/compiler/parser"
	"github.com/zurustar/robologo/pkg/logger"
	"github.com/zurustar/robologo/pkg/script"
)

// Config はコマンドライン引数・環境変数・設定ファイルから解析された設定を保持する
type Config struct {
	ProgramPath string        // 実行するプログラム（.robo ソースまたは .robc）
	Timeout     time.Duration // タイムアウト時間（0は無制限）
	LogLevel    string        // ログレベル（debug, info, warn, error）
	LogFormat   string        // ログ形式（text, json）
	MaxSteps    int           // 実行命令数の上限（0は無制限）
	MaxExprLen  int           // 式の最大長（0はデフォルト）
	Encoding    string        // ソースファイルの文字コード
	Dump        bool          // 逆アセンブル結果を表示
	EmitPath    string        // コンパイル結果（.robc）の出力先
	Trace       bool          // タートル操作の履歴を表示
	ConfigPath  string        // 読み込んだ設定ファイル（なければ空）
	ShowHelp    bool          // ヘルプ表示フラグ
}

// デフォルト値
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = logger.FormatText
)

// ErrNoProgram はプログラムファイルが指定されなかったことを示す
var ErrNoProgram = errors.New("no program file given")

// boolFlags は値を取らないフラグ（reorderArgs が次の引数を値として扱わないもの）
var boolFlags = map[string]bool{
	"-h": true, "--help": true, "-help": true,
	"--dump": true, "-dump": true,
	"--trace": true, "-trace": true,
}

// ParseArgs コマンドライン引数を解析してConfigを返す
// 優先順位: コマンドラインフラグ > 環境変数 > 設定ファイル > デフォルト
func ParseArgs(args []string) (*Config, error) {
	// 引数を並べ替え：フラグを前に、位置引数を後ろに
	reorderedArgs := reorderArgs(args)

	fs := flag.NewFlagSet("robologo", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	config := &Config{}

	var timeoutSec int
	fs.IntVar(&timeoutSec, "timeout", 0, "タイムアウト時間（秒）")
	fs.IntVar(&timeoutSec, "t", 0, "タイムアウト時間（秒）（短縮形）")
	fs.StringVar(&config.LogLevel, "log-level", DefaultLogLevel, "ログレベル（debug, info, warn, error）")
	fs.StringVar(&config.LogLevel, "l", DefaultLogLevel, "ログレベル（短縮形）")
	fs.StringVar(&config.LogFormat, "log-format", DefaultLogFormat, "ログ形式（text, json）")
	fs.IntVar(&config.MaxSteps, "max-steps", 0, "実行命令数の上限")
	fs.IntVar(&config.MaxExprLen, "max-expr-len", 0, "式の最大長")
	fs.StringVar(&config.Encoding, "encoding", script.DefaultEncoding, "ソースファイルの文字コード")
	fs.BoolVar(&config.Dump, "dump", false, "逆アセンブル結果を表示")
	fs.StringVar(&config.EmitPath, "emit", "", "コンパイル結果の出力先")
	fs.BoolVar(&config.Trace, "trace", false, "タートル操作の履歴を表示")
	fs.StringVar(&config.ConfigPath, "config", "", "設定ファイルのパス")
	fs.BoolVar(&config.ShowHelp, "help", false, "ヘルプを表示")
	fs.BoolVar(&config.ShowHelp, "h", false, "ヘルプを表示（短縮形）")

	if err := fs.Parse(reorderedArgs); err != nil {
		return nil, err
	}
	if config.ShowHelp {
		return config, nil
	}

	// コマンドラインで指定されたフラグ
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	flagged := func(names ...string) bool {
		for _, n := range names {
			if set[n] {
				return true
			}
		}
		return false
	}

	// 設定ファイルの読み込み（--config 指定、なければ作業ディレクトリを探す）
	if config.ConfigPath == "" {
		config.ConfigPath = FindConfigFile(".")
	}
	var file *FileConfig
	if config.ConfigPath != "" {
		fc, err := LoadConfigFile(config.ConfigPath)
		if err != nil {
			return nil, err
		}
		file = fc
	}

	// 環境変数からログレベルを取得（コマンドラインフラグが優先）
	if !flagged("log-level", "l") {
		if logLevelEnv := os.Getenv("LOG_LEVEL"); logLevelEnv != "" {
			config.LogLevel = strings.ToLower(logLevelEnv)
		} else if file.Defined("log-level") {
			config.LogLevel = strings.ToLower(file.LogLevel)
		}
	}

	// 環境変数からタイムアウトを取得（コマンドラインフラグが優先）
	if !flagged("timeout", "t") {
		if t, ok := envInt("TIMEOUT"); ok {
			timeoutSec = t
		} else if file.Defined("timeout") {
			timeoutSec = file.Timeout
		}
	}

	// 環境変数から実行命令数の上限を取得（コマンドラインフラグが優先）
	if !flagged("max-steps") {
		if n, ok := envInt("MAX_STEPS"); ok {
			config.MaxSteps = n
		} else if file.Defined("max-steps") {
			config.MaxSteps = file.MaxSteps
		}
	}

	// 設定ファイルのみで指定できる項目
	if !flagged("log-format") && file.Defined("log-format") {
		config.LogFormat = file.LogFormat
	}
	if !flagged("max-expr-len") && file.Defined("max-expr-len") {
		config.MaxExprLen = file.MaxExprLen
	}
	if !flagged("encoding") && file.Defined("encoding") {
		config.Encoding = file.Encoding
	}
	if !flagged("trace") && file.Defined("trace") {
		config.Trace = file.Trace
	}

	if err := validate(config, timeoutSec); err != nil {
		return nil, err
	}
	config.Timeout = time.Duration(timeoutSec) * time.Second

	// 位置引数（プログラムファイルのパス）
	switch fs.NArg() {
	case 0:
		return nil, ErrNoProgram
	case 1:
		config.ProgramPath = fs.Arg(0)
	default:
		return nil, fmt.Errorf("too many arguments: %s", strings.Join(fs.Args(), " "))
	}

	return config, nil
}

// validate 設定値を検証する
func validate(config *Config, timeoutSec int) error {
	// タイムアウトの検証
	if timeoutSec < 0 {
		return fmt.Errorf("timeout must be non-negative, got %d", timeoutSec)
	}
	if config.MaxSteps < 0 {
		return fmt.Errorf("max-steps must be non-negative, got %d", config.MaxSteps)
	}
	if config.MaxExprLen < 0 {
		return fmt.Errorf("max-expr-len must be non-negative, got %d", config.MaxExprLen)
	}

	// ログレベルの検証
	if _, err := logger.ParseLevel(config.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.LogLevel)
	}

	// ログ形式の検証
	switch config.LogFormat {
	case logger.FormatText, logger.FormatJSON:
	default:
		return fmt.Errorf("invalid log format: %s (must be text or json)", config.LogFormat)
	}

	// 文字コードの検証
	if err := script.ValidateEncoding(config.Encoding); err != nil {
		return err
	}
	return nil
}

// envInt 環境変数を非負の整数として読む
// 未設定または不正な値の場合は ok=false を返す
func envInt(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// reorderArgs 引数を並べ替えて、フラグを前に、位置引数を後ろに配置する
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string
	terminated := false

	for i := 0; i < len(args); i++ {
		arg := args[i]

		// "--" 以降はすべて位置引数
		if arg == "--" {
			positional = append(positional, args[i+1:]...)
			terminated = true
			break
		}

		// フラグかどうかを判定（-または--で始まる）
		if len(arg) > 1 && arg[0] == '-' {
			flags = append(flags, arg)

			// -t=5 のように値が含まれる場合とブール型フラグは次の引数を取らない
			if strings.Contains(arg, "=") || boolFlags[arg] {
				continue
			}

			// 次の引数が値である可能性をチェック
			// （-t 5 のような場合。負の数も値として扱う）
			if i+1 < len(args) && (!isFlagLike(args[i+1]) || isNumber(args[i+1])) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			// 位置引数
			positional = append(positional, arg)
		}
	}

	// フラグを前に、位置引数を後ろに配置
	if terminated {
		flags = append(flags, "--")
	}
	return append(flags, positional...)
}

func isFlagLike(arg string) bool {
	return len(arg) > 1 && arg[0] == '-'
}

func isNumber(arg string) bool {
	_, err := strconv.Atoi(arg)
	return err == nil
}

// PrintHelp ヘルプメッセージを表示
func PrintHelp(w io.Writer) {
	fmt.Fprintf(w, `robologo - タートルグラフィックス言語のコンパイラ・実行環境

Usage:
  robologo [options] <program>

Arguments:
  program       実行するプログラムのパス
                %[4]s ファイルはソースとしてコンパイルして実行
                %[5]s ファイルはコンパイル済みプログラムとして実行

Options:
  -t, --timeout <seconds>     指定秒数後に実行を中止（デフォルト: 無制限）
  -l, --log-level <level>     ログレベル: debug, info, warn, error（デフォルト: info）
  --log-format <format>       ログ形式: text, json（デフォルト: text）
  --max-steps <n>             実行命令数の上限（デフォルト: 無制限）
  --max-expr-len <n>          式の最大長（デフォルト: %[1]d）
  --encoding <name>           ソースの文字コード: %[2]s（デフォルト: utf-8）
  --dump                      コンパイル結果を逆アセンブルして表示
  --emit <file>               コンパイル結果を %[5]s 形式で書き出す
  --trace                     タートル操作の履歴を表示
  --config <file>             設定ファイル（デフォルト: ./%[3]s）
  -h, --help                  このヘルプを表示

Environment Variables:
  TIMEOUT=<seconds>           タイムアウト時間（秒）
  LOG_LEVEL=<level>           ログレベル
  MAX_STEPS=<n>               実行命令数の上限

Examples:
  robologo square.robo                    プログラムを実行
  robologo --dump square.robo             逆アセンブル結果を表示して実行
  robologo --emit square.robc square.robo コンパイル結果を保存
  robologo square.robc                    コンパイル済みプログラムを実行
  robologo --max-steps 10000 loop.robo    10000命令で打ち切り
  robologo --encoding shift_jis sjis.robo Shift_JISのソースを実行
`, parser.DefaultMaxLength, strings.Join(script.Encodings(), ", "), ConfigFileName,
		script.SourceExt, script.CompiledExt)
}
