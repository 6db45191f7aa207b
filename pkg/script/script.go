package script

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ファイル拡張子
const (
	SourceExt   = ".robo" // プログラムのソース
	CompiledExt = ".robc" // コンパイル済みプログラム（CBOR）
)

// DefaultEncoding はソースファイルの既定の文字コード
const DefaultEncoding = "utf-8"

// Script はスクリプトファイルを表す
type Script struct {
	FileName string // ファイル名
	Content  string // UTF-8に変換された内容
	Size     int64  // ファイルサイズ
}

// encodings は対応する文字コード名とデコーダーの対応表
var encodings = map[string]encoding.Encoding{
	"utf-8":        unicode.UTF8BOM,
	"utf-16":       unicode.UTF16(unicode.LittleEndian, unicode.UseBOM),
	"shift_jis":    japanese.ShiftJIS,
	"euc-jp":       japanese.EUCJP,
	"iso-2022-jp":  japanese.ISO2022JP,
	"latin1":       charmap.ISO8859_1,
	"windows-1252": charmap.Windows1252,
}

// 別名
var aliases = map[string]string{
	"":           "utf-8",
	"utf8":       "utf-8",
	"utf16":      "utf-16",
	"sjis":       "shift_jis",
	"shift-jis":  "shift_jis",
	"cp932":      "shift_jis",
	"eucjp":      "euc-jp",
	"iso-8859-1": "latin1",
	"cp1252":     "windows-1252",
}

// Encodings 対応している文字コード名を返す
func Encodings() []string {
	names := make([]string, 0, len(encodings))
	for name := range encodings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// lookupEncoding 文字コード名からエンコーディングを取得
func lookupEncoding(name string) (encoding.Encoding, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := aliases[key]; ok {
		key = alias
	}
	enc, ok := encodings[key]
	if !ok {
		return nil, fmt.Errorf("unsupported encoding: %s (supported: %s)", name, strings.Join(Encodings(), ", "))
	}
	return enc, nil
}

// ValidateEncoding 文字コード名が対応しているか確認
func ValidateEncoding(name string) error {
	_, err := lookupEncoding(name)
	return err
}

// Decode 指定された文字コードのバイト列をUTF-8文字列に変換
func Decode(data []byte, encodingName string) (string, error) {
	enc, err := lookupEncoding(encodingName)
	if err != nil {
		return "", err
	}

	reader := transform.NewReader(bytes.NewReader(data), enc.NewDecoder())
	utf8Data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", encodingName, err)
	}

	return string(utf8Data), nil
}

// Load 単一のスクリプトファイルを読み込み、UTF-8に変換する
func Load(path, encodingName string) (*Script, error) {
	// 文字コードを先に確認
	if err := ValidateEncoding(encodingName); err != nil {
		return nil, err
	}

	// ファイル情報を取得
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	// ファイルを読み込む
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	content, err := Decode(data, encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to convert encoding: %w", err)
	}

	return &Script{
		FileName: filepath.Base(path),
		Content:  content,
		Size:     info.Size(),
	}, nil
}

// IsCompiled コンパイル済みプログラムのファイルか判定（拡張子はcase-insensitive）
func IsCompiled(path string) bool {
	return strings.EqualFold(filepath.Ext(path), CompiledExt)
}
