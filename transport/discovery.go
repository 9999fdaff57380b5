package transport

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/mdns"
)

// MDNSService is the mDNS service type the game server advertises under.
const MDNSService = "_afriverse-ws._tcp"

// DiscoveredServer is a game server found on the local network.
type DiscoveredServer struct {
	Name    string
	Address string
	Port    int
	TXT     []string
}

// URL returns the server's WebSocket endpoint.
func (s DiscoveredServer) URL() string {
	return fmt.Sprintf("ws://%s:%d/ws", s.Address, s.Port)
}

func serverFromEntry(entry *mdns.ServiceEntry) (DiscoveredServer, error) {
	var address string
	if entry.AddrV4 != nil {
		address = entry.AddrV4.String()
	} else if entry.AddrV6 != nil {
		address = fmt.Sprintf("[%s]", entry.AddrV6.String())
	} else {
		return DiscoveredServer{}, fmt.Errorf("no valid address found for service %q", entry.Name)
	}

	return DiscoveredServer{
		Name:    entry.Name,
		Address: address,
		Port:    entry.Port,
		TXT:     entry.InfoFields,
	}, nil
}

// DiscoverServer finds the first game server advertising on the local
// network via mDNS.
func DiscoverServer(timeout time.Duration) (DiscoveredServer, error) {
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	entriesCh := make(chan *mdns.ServiceEntry, 4)

	// Start discovery in background
	go func() {
		defer close(entriesCh)
		mdns.Lookup(MDNSService, entriesCh)
	}()

	select {
	case entry := <-entriesCh:
		if entry == nil {
			return DiscoveredServer{}, fmt.Errorf("no game server found")
		}

		server, err := serverFromEntry(entry)
		if err != nil {
			return DiscoveredServer{}, err
		}

		slog.Info("Discovered game server",
			"service_name", server.Name,
			"address", server.Address,
			"port", server.Port,
		)
		return server, nil

	case <-time.After(timeout):
		return DiscoveredServer{}, fmt.Errorf("mDNS discovery timeout for %s", MDNSService)
	}
}
