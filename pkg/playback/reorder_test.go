// ABOUTME: Tests for the decode reassembly queue
// ABOUTME: Tests in-order release, chained release and sequence violations
package playback

import (
	"errors"
	"testing"

	"github.com/camview/liveaudio/pkg/audio"
	"github.com/stretchr/testify/require"
)

func seqs(units []audio.Unit) []uint64 {
	out := make([]uint64, 0, len(units))
	for _, u := range units {
		out = append(out, u.Seq)
	}
	return out
}

func TestReorderReleasesInOrder(t *testing.T) {
	q := NewReorderQueue()

	released, err := q.Admit(audio.Unit{Seq: 0})
	require.NoError(t, err)
	require.Equal(t, []uint64{0}, seqs(released))

	released, err = q.Admit(audio.Unit{Seq: 2})
	require.NoError(t, err)
	require.Empty(t, released)
	require.Equal(t, 1, q.Len())

	released, err = q.Admit(audio.Unit{Seq: 1})
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2}, seqs(released))
	require.Equal(t, uint64(3), q.Expected())
	require.Equal(t, 0, q.Len())
	require.Equal(t, int64(1), q.Deferred())
}

func TestReorderLongChain(t *testing.T) {
	q := NewReorderQueue()
	for _, s := range []uint64{5, 3, 1, 4, 2} {
		released, err := q.Admit(audio.Unit{Seq: s})
		require.NoError(t, err)
		require.Empty(t, released)
	}

	released, err := q.Admit(audio.Unit{Seq: 0})
	require.NoError(t, err)
	require.Equal(t, []uint64{0, 1, 2, 3, 4, 5}, seqs(released))
}

func TestReorderViolations(t *testing.T) {
	q := NewReorderQueue()
	_, err := q.Admit(audio.Unit{Seq: 0})
	require.NoError(t, err)

	_, err = q.Admit(audio.Unit{Seq: 0})
	require.True(t, errors.Is(err, ErrSequenceViolation))

	_, err = q.Admit(audio.Unit{Seq: 3})
	require.NoError(t, err)
	_, err = q.Admit(audio.Unit{Seq: 3})
	require.True(t, errors.Is(err, ErrSequenceViolation))
	require.Equal(t, 1, q.Len())
}

func TestReorderReset(t *testing.T) {
	q := NewReorderQueue()
	q.Admit(audio.Unit{Seq: 0})
	q.Admit(audio.Unit{Seq: 2})

	q.Reset()
	require.Equal(t, uint64(0), q.Expected())
	require.Equal(t, 0, q.Len())

	released, err := q.Admit(audio.Unit{Seq: 0})
	require.NoError(t, err)
	require.Equal(t, []uint64{0}, seqs(released))
}
