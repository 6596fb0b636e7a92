package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// scanConcurrency bounds simultaneous probes so a /24 sweep does not open
// hundreds of sockets at once.
const scanConcurrency = 64

// probe queries one candidate address for a presence payload. Unreachable or
// malformed answers are errors to the caller, which treats them as absence.
func probe(ctx context.Context, address string, port int, timeout time.Duration) (*Presence, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := fmt.Sprintf("http://%s%s", net.JoinHostPort(address, fmt.Sprint(port)), PresencePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	p := &Presence{}
	if err := json.NewDecoder(resp.Body).Decode(p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, fmt.Errorf("presence payload missing id")
	}
	return p, nil
}

// localSubnetHosts enumerates candidate IPv4 addresses on the local /24
// subnets of all non-loopback interfaces, excluding this device's own
// addresses.
func localSubnetHosts() ([]string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var hosts []string
	seen := make(map[string]struct{})

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
			if !ok {
				continue
			}
			ip4 := ipnet.IP.To4()
			if ip4 == nil || ip4.IsLoopback() {
				continue
			}

			base := ip4.Mask(net.CIDRMask(24, 32))
			for last := 1; last <= 254; last++ {
				candidate := net.IPv4(base[0], base[1], base[2], byte(last))
				if candidate.Equal(ip4) {
					continue
				}
				s := candidate.String()
				if _, ok := seen[s]; ok {
					continue
				}
				seen[s] = struct{}{}
				hosts = append(hosts, s)
			}
		}
	}
	return hosts, nil
}

// sweep probes every (host, port) candidate with bounded concurrency and a
// hard overall deadline, reporting each well-formed presence answer through
// found. Individual probe failures are silently treated as "not present".
func sweep(ctx context.Context, hosts []string, ports []int, probeTimeout, overall time.Duration, found func(addr string, port int, p *Presence)) {
	ctx, cancel := context.WithTimeout(ctx, overall)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(scanConcurrency)

	for _, host := range hosts {
		for _, port := range ports {
			host, port := host, port
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				p, err := probe(ctx, host, port, probeTimeout)
				if err != nil {
					return nil
				}
				found(host, port, p)
				return nil
			})
		}
	}
	_ = g.Wait()
}
