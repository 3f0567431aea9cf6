package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aicommandcenter/aicc/pkg/types"
)

// maxDrain caps how much of a response body is read before closing, so the
// connection can be reused without trusting the backend's body size.
const maxDrain = 64 << 10

type httpProbe struct {
	target   Target
	client   *http.Client
	buildErr error
}

func newHTTPProbe(t Target, timeout time.Duration) *httpProbe {
	client, err := buildHTTPClient(t, timeout)
	if err != nil {
		slog.Warn("probe: could not build http client", "service", t.Service, "err", err)
	}
	return &httpProbe{target: t, client: client, buildErr: err}
}

// Probe issues one GET against the target URL.
func (p *httpProbe) Probe(ctx context.Context) types.HealthStatus {
	name := p.target.Name
	if p.buildErr != nil {
		return Unhealthy(name, types.FailureConfig, fmt.Sprintf("Connection failed: %v", p.buildErr))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.target.URL, nil)
	if err != nil {
		return Unhealthy(name, types.FailureConfig, fmt.Sprintf("Connection failed: %v", err))
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		kind := FailureOf(err)
		slog.Debug("probe: request failed",
			"service", p.target.Service, "url", p.target.URL, "failure", kind, "err", err)
		return Unhealthy(name, kind, fmt.Sprintf("Connection failed: %v", err))
	}
	latency := uint64(time.Since(start).Milliseconds())
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return types.HealthStatus{Service: name, Healthy: true, Message: "OK", LatencyMS: types.Millis(latency)}
	}
	return types.HealthStatus{
		Service:   name,
		Healthy:   false,
		Message:   fmt.Sprintf("Status: %s", resp.Status),
		LatencyMS: types.Millis(latency),
		Failure:   types.FailureStatus,
	}
}

// buildHTTPClient constructs an http.Client for the target's TLS settings.
// The client timeout covers connect, headers and body.
func buildHTTPClient(t Target, timeout time.Duration) (*http.Client, error) {
	tlsCfg := &tls.Config{
		InsecureSkipVerify: t.InsecureSkipVerify, //nolint:gosec // user-configured
	}

	if t.CAFile != "" {
		caPEM, err := os.ReadFile(t.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read ca file: %w", err)
		}
		pool, err := x509.SystemCertPool()
		if err != nil || pool == nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("no valid certs found in ca file %q", t.CAFile)
		}
		tlsCfg.RootCAs = pool
	}

	return &http.Client{
		Transport: &http.Transport{
			Proxy:               nil,
			TLSClientConfig:     tlsCfg,
			MaxIdleConnsPerHost: 1,
			IdleConnTimeout:     30 * time.Second,
		},
		Timeout: timeout,
	}, nil
}
