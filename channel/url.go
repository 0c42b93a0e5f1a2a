package channel

import (
	"fmt"
	"net/url"
	"strings"
)

// BuildURL derives the socket URL of path from the page origin the client is
// served from. http maps to ws and https to wss; a localhost origin is
// pointed at localBackend when it is set.
func BuildURL(origin, path, localBackend string) (string, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return "", fmt.Errorf("parse origin %q: %w", origin, err)
	}

	var scheme string
	switch strings.ToLower(u.Scheme) {
	case "https", "wss":
		scheme = "wss"
	case "http", "ws":
		scheme = "ws"
	default:
		return "", fmt.Errorf("origin %q: unsupported scheme %q", origin, u.Scheme)
	}

	host := u.Host
	if u.Hostname() == "localhost" && localBackend != "" {
		host = localBackend
	}
	if host == "" {
		return "", fmt.Errorf("origin %q has no host", origin)
	}

	return scheme + "://" + host + "/" + strings.TrimPrefix(path, "/"), nil
}
