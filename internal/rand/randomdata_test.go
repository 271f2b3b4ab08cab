package rand

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLetterString(t *testing.T) {
	s := LetterString(20)
	require.Len(t, s, 20)
	require.Regexp(t, regexp.MustCompile(`^[a-z0-9]+$`), s)
}

func TestBytes(t *testing.T) {
	require.Len(t, Bytes(100), 100)
	require.NotEqual(t, Bytes(32), Bytes(32))
}

func benchmarkRandLetterBytes(b *testing.B, size int) {
	for n := 0; n < b.N; n++ {
		_ = randLetterBytes(size)
	}
}

func BenchmarkRandLetterBytes20(b *testing.B)   { benchmarkRandLetterBytes(b, 20) }
func BenchmarkRandLetterBytes1000(b *testing.B) { benchmarkRandLetterBytes(b, 1000) }
