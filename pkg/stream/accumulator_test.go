// ABOUTME: Tests for byte stream accumulator
// ABOUTME: Tests chunk splitting, insufficient data and count bookkeeping
package stream

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAccumulatorRoundTrip(t *testing.T) {
	src := make([]byte, 4096)
	for i := range src {
		src[i] = byte(i * 7)
	}

	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 50; trial++ {
		a := New()

		// Write in random chunk sizes.
		for pos := 0; pos < len(src); {
			n := 1 + rng.Intn(300)
			if pos+n > len(src) {
				n = len(src) - pos
			}
			chunk := make([]byte, n)
			copy(chunk, src[pos:pos+n])
			a.Write(chunk)
			pos += n
		}
		require.Equal(t, len(src), a.Count())

		// Read back in different random sizes.
		var out bytes.Buffer
		for a.Count() > 0 {
			n := 1 + rng.Intn(500)
			if n > a.Count() {
				n = a.Count()
			}
			buf, ok := a.Read(n)
			require.True(t, ok)
			require.Len(t, buf, n)
			out.Write(buf)
		}
		require.Equal(t, src, out.Bytes())
	}
}

func TestAccumulatorInsufficient(t *testing.T) {
	a := New()
	a.Write([]byte{1, 2, 3})

	buf, ok := a.Read(4)
	require.False(t, ok)
	require.Nil(t, buf)
	require.Equal(t, 3, a.Count(), "failed read must not consume")

	a.Write([]byte{4})
	buf, ok = a.Read(4)
	require.True(t, ok)
	require.Equal(t, []byte{1, 2, 3, 4}, buf)
	require.Equal(t, 0, a.Count())
}

func TestAccumulatorSplitsChunk(t *testing.T) {
	a := New()
	a.Write([]byte{1, 2, 3, 4, 5})
	a.Write([]byte{6, 7})

	buf, ok := a.Read(2)
	require.True(t, ok)
	require.Equal(t, []byte{1, 2}, buf)
	require.Equal(t, 5, a.Count())

	buf, ok = a.Read(4)
	require.True(t, ok)
	require.Equal(t, []byte{3, 4, 5, 6}, buf)
	require.Equal(t, 1, a.Count())
}

func TestAccumulatorReadZero(t *testing.T) {
	a := New()
	buf, ok := a.Read(0)
	require.True(t, ok)
	require.Empty(t, buf)

	_, ok = a.Read(-1)
	require.False(t, ok)
}

func TestAccumulatorPeek(t *testing.T) {
	a := New()
	a.Write([]byte{9})
	a.Write([]byte{8, 7})

	buf, ok := a.Peek(2)
	require.True(t, ok)
	require.Equal(t, []byte{9, 8}, buf)
	require.Equal(t, 3, a.Count())

	_, ok = a.Peek(4)
	require.False(t, ok)
}

func TestAccumulatorReset(t *testing.T) {
	a := New()
	a.Write([]byte{1, 2})
	a.Reset()
	require.Equal(t, 0, a.Count())

	_, ok := a.Read(1)
	require.False(t, ok)
}

func TestAccumulatorManySmallChunks(t *testing.T) {
	a := New()
	for i := 0; i < 1000; i++ {
		a.Write([]byte{byte(i)})
	}
	for i := 0; i < 1000; i++ {
		buf, ok := a.Read(1)
		require.True(t, ok)
		require.Equal(t, byte(i), buf[0])
	}
	require.Equal(t, 0, a.Count())
}
