package token

import (
	"bytes"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHexGenerator_Generate(t *testing.T) {
	t.Run("64文字の16進文字列を生成する", func(t *testing.T) {
		gen := NewGenerator()

		token, err := gen.Generate()

		require.NoError(t, err)
		assert.Len(t, token, 64)
		assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), token)
	})

	t.Run("連続生成で同じトークンは出ない", func(t *testing.T) {
		gen := NewGenerator()

		first, err := gen.Generate()
		require.NoError(t, err)
		second, err := gen.Generate()
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
	})

	t.Run("決定的な乱数源からは決定的なトークンが出る", func(t *testing.T) {
		gen := NewGeneratorWithSource(bytes.NewReader(bytes.Repeat([]byte{0xab}, 32)))

		token, err := gen.Generate()

		require.NoError(t, err)
		assert.Equal(t, "abababababababababababababababababababababababababababababababab", token)
	})

	t.Run("乱数源が尽きた場合はエラーを返す", func(t *testing.T) {
		gen := NewGeneratorWithSource(bytes.NewReader([]byte{0x01, 0x02}))

		token, err := gen.Generate()

		assert.Empty(t, token)
		assert.True(t, errors.Is(err, ErrRandomSource))
	})
}
