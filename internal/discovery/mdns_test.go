// ABOUTME: Tests for mDNS discovery
// ABOUTME: Tests defaults, entry conversion and cancellation
package discovery

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/stretchr/testify/require"
)

func TestNewManager(t *testing.T) {
	mgr := NewManager(Config{ServiceName: "Front Door", Port: 8927})
	defer mgr.Stop()

	require.Equal(t, DefaultBrowseTimeout, mgr.config.BrowseTimeout)
	require.Equal(t, "/audio", mgr.config.Path)
	require.NotNil(t, mgr.Servers())
}

func TestEntryToServer(t *testing.T) {
	entry := &mdns.ServiceEntry{
		Name:       "Front Door._liveaudio._tcp.local.",
		AddrV4:     net.ParseIP("192.168.1.20"),
		Port:       8927,
		InfoFields: []string{"path=/cam/audio"},
	}

	s := entryToServer(entry)
	require.NotNil(t, s)
	require.Equal(t, "192.168.1.20:8927", s.Addr())
	require.Equal(t, "/cam/audio", s.Path)

	require.Nil(t, entryToServer(&mdns.ServiceEntry{Port: 1}))
	require.Nil(t, entryToServer(nil))
}

func TestFirstHonoursContext(t *testing.T) {
	mgr := NewManager(Config{BrowseTimeout: 50 * time.Millisecond})
	defer mgr.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mgr.First(ctx)
	require.Error(t, err)
}
