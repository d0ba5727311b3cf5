// ABOUTME: mDNS service discovery for camera feed servers
// ABOUTME: Advertises a feed server and browses for feeds on the local network
package discovery

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ServiceType is the mDNS service advertised by feed servers.
const ServiceType = "_liveaudio._tcp"

// DefaultBrowseTimeout bounds one mDNS query round.
const DefaultBrowseTimeout = 3 * time.Second

// Config holds discovery configuration
type Config struct {
	ServiceName   string
	Port          int
	Path          string // advertised in TXT as path=...
	BrowseTimeout time.Duration
	Log           logrus.FieldLogger
}

// Manager handles mDNS operations
type Manager struct {
	config  Config
	log     logrus.FieldLogger
	ctx     context.Context
	cancel  context.CancelFunc
	servers chan *ServerInfo
}

// ServerInfo describes a discovered feed server
type ServerInfo struct {
	Name string
	Host string
	Port int
	Path string
}

// Addr returns host:port.
func (s *ServerInfo) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	if config.BrowseTimeout == 0 {
		config.BrowseTimeout = DefaultBrowseTimeout
	}
	if config.Path == "" {
		config.Path = "/audio"
	}
	if config.Log == nil {
		config.Log = logrus.StandardLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config:  config,
		log:     config.Log.WithField("component", "mdns"),
		ctx:     ctx,
		cancel:  cancel,
		servers: make(chan *ServerInfo, 10),
	}
}

// Advertise advertises this feed server via mDNS
func (m *Manager) Advertise() error {
	ips, err := getLocalIPs()
	if err != nil {
		return errors.Wrap(err, "failed to get local IPs")
	}

	service, err := mdns.NewMDNSService(
		m.config.ServiceName,
		ServiceType,
		"",
		"",
		m.config.Port,
		ips,
		[]string{"path=" + m.config.Path},
	)
	if err != nil {
		return errors.Wrap(err, "failed to create service")
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return errors.Wrap(err, "failed to create mdns server")
	}

	m.log.WithFields(logrus.Fields{
		"name": m.config.ServiceName,
		"port": m.config.Port,
	}).Info("Advertising feed")

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// Browse searches for feed servers until Stop
func (m *Manager) Browse() error {
	go m.browseLoop()
	return nil
}

// browseLoop continuously browses for servers
func (m *Manager) browseLoop() {
	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		entries := make(chan *mdns.ServiceEntry, 10)
		done := make(chan struct{})

		go func() {
			defer close(done)
			for entry := range entries {
				server := entryToServer(entry)
				if server == nil {
					continue
				}

				m.log.WithField("addr", server.Addr()).Debug("Discovered feed")

				select {
				case m.servers <- server:
				case <-m.ctx.Done():
				}
			}
		}()

		params := &mdns.QueryParam{
			Service: ServiceType,
			Domain:  "local",
			Timeout: m.config.BrowseTimeout,
			Entries: entries,
		}

		if err := mdns.Query(params); err != nil {
			m.log.WithError(err).Warn("mDNS query failed")
		}
		close(entries)
		<-done

		select {
		case <-m.ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

// First browses until a server is found or ctx expires.
func (m *Manager) First(ctx context.Context) (*ServerInfo, error) {
	if err := m.Browse(); err != nil {
		return nil, err
	}
	select {
	case s := <-m.servers:
		return s, nil
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "no feed server found")
	}
}

func entryToServer(entry *mdns.ServiceEntry) *ServerInfo {
	if entry == nil || entry.AddrV4 == nil {
		return nil
	}
	info := &ServerInfo{
		Name: entry.Name,
		Host: entry.AddrV4.String(),
		Port: entry.Port,
		Path: "/audio",
	}
	for _, field := range entry.InfoFields {
		if strings.HasPrefix(field, "path=") {
			info.Path = strings.TrimPrefix(field, "path=")
		}
	}
	return info
}

// Servers returns the channel of discovered servers
func (m *Manager) Servers() <-chan *ServerInfo {
	return m.servers
}

// Stop stops the discovery manager
func (m *Manager) Stop() {
	m.cancel()
}

// getLocalIPs returns local IPv4 addresses
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}
