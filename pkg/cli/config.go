package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ConfigFileName は作業ディレクトリで自動検出される設定ファイル名
const ConfigFileName = "robologo.toml"

// FileConfig は設定ファイル（TOML）の内容を保持する
// 値はコマンドラインフラグ・環境変数が指定されなかった場合のデフォルトとして使われる
type FileConfig struct {
	LogLevel   string `toml:"log-level"`
	LogFormat  string `toml:"log-format"`
	Timeout    int    `toml:"timeout"` // 秒
	MaxSteps   int    `toml:"max-steps"`
	MaxExprLen int    `toml:"max-expr-len"`
	Encoding   string `toml:"encoding"`
	Trace      bool   `toml:"trace"`

	// Path は読み込んだファイルのパス（読み込み時に設定）
	Path string `toml:"-"`

	meta toml.MetaData
}

// Defined は key が設定ファイルに記述されていたかを返す
func (fc *FileConfig) Defined(key string) bool {
	if fc == nil {
		return false
	}
	return fc.meta.IsDefined(key)
}

// LoadConfigFile 設定ファイルを読み込む
// 未知のキーはタイプミスとみなしてエラーにする
func LoadConfigFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var fc FileConfig
	meta, err := toml.Decode(string(data), &fc)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q in %s", undecoded[0].String(), path)
	}

	fc.Path = path
	fc.meta = meta
	return &fc, nil
}

// FindConfigFile dir にある設定ファイルのパスを返す
// 見つからない場合は空文字列を返す
func FindConfigFile(dir string) string {
	path := filepath.Join(dir, ConfigFileName)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return ""
	}
	return path
}
