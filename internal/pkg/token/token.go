package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// ErrRandomSource は乱数源からの読み取り失敗を表す
var ErrRandomSource = errors.New("乱数源の読み取りに失敗しました")

// tokenBytes は管理トークンのエントロピー（256ビット）
const tokenBytes = 32

// Generator は推測不能な管理トークンを生成するインターフェース
type Generator interface {
	// Generate は64文字の16進トークンを生成する
	Generate() (string, error)
}

// HexGenerator は注入された乱数源から16進トークンを生成する
type HexGenerator struct {
	rand io.Reader
}

// NewGenerator は crypto/rand を乱数源とするジェネレーターを作成する
func NewGenerator() *HexGenerator {
	return NewGeneratorWithSource(rand.Reader)
}

// NewGeneratorWithSource は任意の乱数源を使うジェネレーターを作成する
// テストで決定的な乱数源を注入するために使う
func NewGeneratorWithSource(source io.Reader) *HexGenerator {
	return &HexGenerator{rand: source}
}

// Generate は256ビットの乱数を16進エンコードして返す
func (g *HexGenerator) Generate() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := io.ReadFull(g.rand, buf); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRandomSource, err)
	}
	return hex.EncodeToString(buf), nil
}
