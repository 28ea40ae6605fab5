package injuryweb

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/sourcegraph/conc"

	"github.com/courtmetrics/hoop-ingest/internal/domain/rawdata"
	"github.com/courtmetrics/hoop-ingest/internal/platform/logging"
	"github.com/courtmetrics/hoop-ingest/internal/usecase"
)

const (
	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	defaultRenderWait = 2 * time.Second
	defaultTimeout    = 30 * time.Second

	sourceName = "injuryweb"
)

// SourceConfig is one injury page to scrape.
type SourceConfig struct {
	Name string
	URL  string
}

type ClientConfig struct {
	Sources    []SourceConfig
	Timeout    time.Duration
	RenderWait time.Duration
	Logger     *logging.Logger
}

// Client renders injury pages in a headless browser and parses the
// rendered tables. The sites build their tables with JS, so a plain GET
// returns an empty shell.
type Client struct {
	sources    []SourceConfig
	timeout    time.Duration
	renderWait time.Duration
	logger     *logging.Logger

	allocCtx context.Context
	cancel   context.CancelFunc
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	renderWait := cfg.RenderWait
	if renderWait <= 0 {
		renderWait = defaultRenderWait
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgent),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Client{
		sources:    cfg.Sources,
		timeout:    timeout,
		renderWait: renderWait,
		logger:     logger,
		allocCtx:   allocCtx,
		cancel:     cancel,
	}
}

func (c *Client) Close() {
	if c.cancel != nil {
		c.cancel()
	}
}

// FetchAll scrapes every configured source concurrently. One failing
// source degrades coverage instead of failing the sweep; its error comes
// back alongside the rows the other sources produced.
func (c *Client) FetchAll(ctx context.Context) ([]usecase.ExternalInjuryReport, []rawdata.Payload, []error) {
	var mu sync.Mutex
	var reports []usecase.ExternalInjuryReport
	var payloads []rawdata.Payload
	var errs []error

	var wg conc.WaitGroup
	for _, source := range c.sources {
		source := source
		wg.Go(func() {
			rows, payload, err := c.fetchSource(ctx, source)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("source %s: %w", source.Name, err))
				return
			}
			reports = append(reports, rows...)
			payloads = append(payloads, payload)
		})
	}
	if panics := wg.WaitAndRecover(); panics != nil {
		errs = append(errs, fmt.Errorf("injury scrape panicked: %v", panics.Value))
	}
	return reports, payloads, errs
}

func (c *Client) fetchSource(ctx context.Context, source SourceConfig) ([]usecase.ExternalInjuryReport, rawdata.Payload, error) {
	name := strings.ToLower(strings.TrimSpace(source.Name))
	if name == "" || strings.TrimSpace(source.URL) == "" {
		return nil, rawdata.Payload{}, fmt.Errorf("source name and url are required")
	}

	html, err := c.render(ctx, source.URL)
	if err != nil {
		return nil, rawdata.Payload{}, &usecase.FetchError{
			Source:    name,
			Endpoint:  source.URL,
			Transient: true,
			Err:       err,
		}
	}

	observedAt := time.Now().UTC()
	rows, err := parseSource(name, source.URL, html, observedAt)
	if err != nil {
		return nil, rawdata.Payload{}, &usecase.FetchError{Source: name, Endpoint: source.URL, Err: err}
	}
	c.logger.InfoContext(ctx, "scraped injury source", "source", name, "rows", len(rows))

	payload := rawdata.Payload{
		Source:      sourceName,
		EntityType:  "injuries",
		EntityKey:   name,
		PayloadJSON: html,
		FetchedAt:   observedAt,
	}
	return rows, payload, nil
}

func (c *Client) render(ctx context.Context, pageURL string) (string, error) {
	browserCtx, cancelBrowser := chromedp.NewContext(c.allocCtx)
	defer cancelBrowser()
	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, c.timeout)
	defer cancelTimeout()

	// The outer ctx still governs cancellation of the whole sweep.
	go func() {
		select {
		case <-ctx.Done():
			cancelBrowser()
		case <-browserCtx.Done():
		}
	}()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitVisible(`body`, chromedp.ByQuery),
		chromedp.Sleep(c.renderWait),
		chromedp.OuterHTML(`html`, &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("render page: %w", err)
	}
	if strings.TrimSpace(html) == "" {
		return "", fmt.Errorf("rendered page is empty")
	}
	return html, nil
}
