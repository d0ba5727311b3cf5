// ABOUTME: Tests for the metrics collector
// ABOUTME: Tests that player statistics surface as prometheus samples
package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/camview/liveaudio/pkg/liveaudio"
	"github.com/camview/liveaudio/pkg/playback"
	"github.com/stretchr/testify/require"
)

type staticStats liveaudio.Stats

func (s staticStats) Stats() liveaudio.Stats { return liveaudio.Stats(s) }

func TestCollectorGather(t *testing.T) {
	src := staticStats{
		Stats:      playback.Stats{Received: 10, Played: 8, Late: 1, Dropped: 2},
		Stalls:     1,
		BufferedMs: 420,
	}
	reg := NewRegistry(src)

	families, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, f := range families {
		m := f.GetMetric()[0]
		if m.GetCounter() != nil {
			values[f.GetName()] = m.GetCounter().GetValue()
		} else {
			values[f.GetName()] = m.GetGauge().GetValue()
		}
	}

	require.Equal(t, 10.0, values["liveaudio_units_received_total"])
	require.Equal(t, 8.0, values["liveaudio_units_played_total"])
	require.Equal(t, 2.0, values["liveaudio_units_dropped_total"])
	require.Equal(t, 1.0, values["liveaudio_decoder_stalls_total"])
	require.Equal(t, 420.0, values["liveaudio_buffered_milliseconds"])
	require.Len(t, values, 10)
}

func TestHandlerServes(t *testing.T) {
	h := Handler(NewRegistry(staticStats{}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Equal(t, 200, rec.Code)
	require.Contains(t, string(body), "liveaudio_units_received_total 0")
}
