package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// Locator resolves a client IP address to a coarse location.
type Locator interface {
	Locate(ctx context.Context, ip string) (state, country string, err error)
}

// IPInfoLocator queries an ipinfo-compatible endpoint: GET {base}/{ip}/json.
type IPInfoLocator struct {
	baseURL string
	client  *http.Client
}

func NewIPInfoLocator(baseURL string, timeout time.Duration) *IPInfoLocator {
	return &IPInfoLocator{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type ipInfoResponse struct {
	Region  string `json:"region"`
	Country string `json:"country"`
}

func (l *IPInfoLocator) Locate(ctx context.Context, ip string) (string, string, error) {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil || parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() {
		return "", "", nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s/json", l.baseURL, parsed.String()), nil)
	if err != nil {
		return "", "", err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("geolocation returned status %d", resp.StatusCode)
	}

	var body ipInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", "", err
	}
	return body.Region, body.Country, nil
}

// ClientIP picks the first address from X-Forwarded-For, falling back to the peer address.
func ClientIP(forwardedFor, remote string) string {
	if forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return remote
}
