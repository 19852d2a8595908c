// ABOUTME: mDNS advertisement of the control TCP port, so clients can find playd without a fixed address
// ABOUTME: playd only advertises; unlike the browse-capable clients it serves, it never queries for peers
package discovery

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"

	"github.com/hashicorp/mdns"
)

// ServiceType is the mDNS service type playd advertises under.
const ServiceType = "_playd._tcp"

// Config describes one instance's advertisement.
type Config struct {
	// InstanceName identifies this player in mDNS browsers, e.g.
	// "playd on kitchen-pi". Left empty, the hostname is used.
	InstanceName string
	Port         int
}

// Advertiser owns a running mDNS responder until Stop is called.
type Advertiser struct {
	cancel context.CancelFunc
	server *mdns.Server
}

// Advertise publishes cfg on the local network and returns an Advertiser
// that must be stopped to withdraw it.
func Advertise(cfg Config) (*Advertiser, error) {
	ips, err := localIPs()
	if err != nil {
		return nil, fmt.Errorf("discovery: enumerate local addresses: %w", err)
	}

	name := cfg.InstanceName
	if name == "" {
		if host, err := os.Hostname(); err == nil {
			name = host
		} else {
			name = "playd"
		}
	}

	service, err := mdns.NewMDNSService(
		name,
		ServiceType,
		"",
		"",
		cfg.Port,
		ips,
		[]string{"version=2"},
	)
	if err != nil {
		return nil, fmt.Errorf("discovery: build service record: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("discovery: start mdns server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &Advertiser{cancel: cancel, server: server}

	log.Printf("discovery: advertising %s as %q on port %d", ServiceType, name, cfg.Port)

	go func() {
		<-ctx.Done()
		_ = server.Shutdown()
	}()

	return a, nil
}

// Stop withdraws the advertisement. Safe to call more than once.
func (a *Advertiser) Stop() {
	a.cancel()
}

// localIPs returns every non-loopback IPv4 address on an interface that is
// currently up, for inclusion in the advertised service record.
func localIPs() ([]net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var ips []net.IP
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok || ipnet.IP.IsLoopback() {
				continue
			}
			if v4 := ipnet.IP.To4(); v4 != nil {
				ips = append(ips, v4)
			}
		}
	}

	return ips, nil
}
