package scraper

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

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/obsidianstack/samplerate/pkg/config"
)

const defaultScrapeTimeout = 10 * time.Second

// Sample is the raw counter totals read from one source in one scrape.
// Values are cumulative; the observe engine derives rates from deltas.
type Sample struct {
	SourceID  string
	ScrapedAt time.Time

	// Transactions is the summed value of the source's transactions_metric.
	Transactions float64

	// Sessions is the summed value of sessions_metric. HasSessions is false
	// when the source does not configure one.
	Sessions    float64
	HasSessions bool

	// Err is non-nil if the scrape itself failed (connectivity, auth, parse,
	// missing metric). The engine does not advance its baseline on failure.
	Err error
}

// Scraper reads the configured counters from one source.
type Scraper interface {
	Scrape(ctx context.Context) (*Sample, error)
}

// New returns a Scraper for src. It builds the HTTP client once and reuses it
// across scrape calls.
func New(src config.Source) (Scraper, error) {
	if src.TransactionsMetric == "" {
		return nil, fmt.Errorf("scraper %q: transactions_metric is required", src.ID)
	}
	client, err := buildHTTPClient(src)
	if err != nil {
		return nil, fmt.Errorf("scraper %q: %w", src.ID, err)
	}
	return &promScraper{src: src, client: client}, nil
}

type promScraper struct {
	src    config.Source
	client *http.Client
}

// Scrape fetches the source's /metrics endpoint. Fetch and parse failures are
// reported through Sample.Err so the caller can still count the attempt.
func (s *promScraper) Scrape(ctx context.Context) (*Sample, error) {
	res := &Sample{SourceID: s.src.ID, ScrapedAt: time.Now().UTC()}

	mfs, err := fetchMetrics(ctx, s.client, s.src.Endpoint)
	if err != nil {
		res.Err = fmt.Errorf("scrape %q: %w", s.src.ID, err)
		slog.Warn("scraper: fetch failed", "source", s.src.ID, "err", err)
		return res, nil
	}

	tx, ok := mfs[s.src.TransactionsMetric]
	if !ok {
		res.Err = fmt.Errorf("scrape %q: metric %q not found", s.src.ID, s.src.TransactionsMetric)
		return res, nil
	}
	res.Transactions = sumFamily(tx)

	if s.src.SessionsMetric != "" {
		if ss, ok := mfs[s.src.SessionsMetric]; ok {
			res.Sessions = sumFamily(ss)
			res.HasSessions = true
		} else {
			slog.Debug("scraper: sessions metric absent", "source", s.src.ID, "metric", s.src.SessionsMetric)
		}
	}

	return res, nil
}

// authRoundTripper injects authentication headers into every outgoing request.
type authRoundTripper struct {
	base http.RoundTripper
	auth config.AuthConfig
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	switch t.auth.Mode {
	case "apikey":
		req = req.Clone(req.Context())
		req.Header.Set(t.auth.EffectiveHeader(), t.auth.Key())
	case "bearer":
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+t.auth.Token())
	case "basic":
		req = req.Clone(req.Context())
		req.SetBasicAuth(t.auth.Username, t.auth.Password())
	}
	return t.base.RoundTrip(req)
}

// buildHTTPClient constructs an http.Client for the source's auth and TLS settings.
func buildHTTPClient(src config.Source) (*http.Client, error) {
	tlsCfg := &tls.Config{
		InsecureSkipVerify: src.TLS.InsecureSkipVerify, //nolint:gosec // user-configured
	}

	if src.Auth.Mode == "mtls" {
		cert, err := tls.LoadX509KeyPair(src.Auth.CertFile, src.Auth.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}

		if src.Auth.CAFile != "" {
			caPEM, err := os.ReadFile(src.Auth.CAFile)
			if err != nil {
				return nil, fmt.Errorf("read ca file: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(caPEM) {
				return nil, fmt.Errorf("no valid certs found in ca file %q", src.Auth.CAFile)
			}
			tlsCfg.RootCAs = pool
		}
	}

	return &http.Client{
		Transport: &authRoundTripper{
			base: &http.Transport{TLSClientConfig: tlsCfg},
			auth: src.Auth,
		},
		Timeout: defaultScrapeTimeout,
	}, nil
}

// fetchMetrics performs an HTTP GET to url and returns parsed metric families.
func fetchMetrics(ctx context.Context, client *http.Client, url string) (map[string]*dto.MetricFamily, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return parseMetrics(resp.Body)
}

// parseMetrics decodes a Prometheus text exposition from r into metric families.
// A partial result with a non-fatal parse warning is still returned successfully.
func parseMetrics(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return nil, fmt.Errorf("parse prometheus text: %w", err)
	}
	return mfs, nil
}

// sumFamily adds up all counter, gauge, or untyped values in a MetricFamily.
// Returns 0 if mf is nil.
func sumFamily(mf *dto.MetricFamily) float64 {
	if mf == nil {
		return 0
	}
	var total float64
	for _, m := range mf.GetMetric() {
		switch {
		case m.Counter != nil:
			total += m.Counter.GetValue()
		case m.Gauge != nil:
			total += m.Gauge.GetValue()
		case m.Untyped != nil:
			total += m.Untyped.GetValue()
		}
	}
	return total
}
