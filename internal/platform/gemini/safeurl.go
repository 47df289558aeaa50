package gemini

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// ErrUnsafeURL is returned by the URL guard for links the service refuses to fetch.
var ErrUnsafeURL = errors.New("refusing to fetch URL")

// URLGuard decides whether a remote image URL may be fetched.
type URLGuard func(ctx context.Context, rawURL string) error

// IPResolver is the subset of *net.Resolver used by the guard.
type IPResolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// SafeURLGuard returns a guard that only allows http(s) URLs whose host resolves
// exclusively to public addresses.
func SafeURLGuard(resolver IPResolver) URLGuard {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return func(ctx context.Context, rawURL string) error {
		u, err := url.ParseRequestURI(rawURL)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnsafeURL, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("%w: scheme %q is not allowed", ErrUnsafeURL, u.Scheme)
		}
		host := u.Hostname()
		if host == "" {
			return fmt.Errorf("%w: missing host", ErrUnsafeURL)
		}

		var ips []net.IP
		if ip := net.ParseIP(host); ip != nil {
			ips = []net.IP{ip}
		} else {
			addrs, err := resolver.LookupIPAddr(ctx, host)
			if err != nil {
				return fmt.Errorf("%w: failed to resolve %q: %v", ErrUnsafeURL, host, err)
			}
			for _, a := range addrs {
				ips = append(ips, a.IP)
			}
		}
		if len(ips) == 0 {
			return fmt.Errorf("%w: %q has no addresses", ErrUnsafeURL, host)
		}

		for _, ip := range ips {
			if isRestrictedIP(ip) {
				return fmt.Errorf("%w: %q resolves to restricted address %s", ErrUnsafeURL, host, ip)
			}
		}
		return nil
	}
}

func isRestrictedIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast()
}
