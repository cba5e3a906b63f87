package registry

import (
	"net"
	"net/url"
	"strings"
)

const (
	// Symphony is the swap aggregator used for Sei quotes and swap calldata.
	SymphonyBaseURL = "https://api.symphony.ag"
	DefiLlamaAPI    = "https://api.llama.fi"
)

// IsAllowedEndpoint accepts https endpoints, and plain http on loopback only.
func IsAllowedEndpoint(endpoint string) bool {
	if strings.TrimSpace(endpoint) == "" {
		return false
	}
	parsed, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return false
	}
	if strings.TrimSpace(parsed.Hostname()) == "" {
		return false
	}
	scheme := strings.ToLower(strings.TrimSpace(parsed.Scheme))
	if isLoopbackHost(parsed.Hostname()) {
		return scheme == "http" || scheme == "https"
	}
	return scheme == "https"
}

func isLoopbackHost(host string) bool {
	h := strings.TrimSpace(strings.ToLower(host))
	if h == "localhost" {
		return true
	}
	ip := net.ParseIP(h)
	return ip != nil && ip.IsLoopback()
}
