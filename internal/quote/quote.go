package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"ambientdeck/internal/display"
)

// Panel shows the daily quote. The source is a JSON document refreshed out
// of band (a repo file updated by a daily job, or a URL serving the same
// shape), so a refresh is a plain read and render.
type Panel struct {
	source     string
	httpClient *http.Client
	sink       display.Sink
}

type quoteDocument struct {
	Quote  string `json:"quote"`
	Author string `json:"author"`
	Month  string `json:"month"`
	Day    int    `json:"day"`
}

func NewPanel(source string, httpClient *http.Client, sink display.Sink) *Panel {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if sink == nil {
		sink = display.Discard
	}
	return &Panel{source: source, httpClient: httpClient, sink: sink}
}

func (p *Panel) Refresh(ctx context.Context) {
	doc, err := p.load(ctx)
	if err != nil {
		log.Warnf("[Quote] refresh failed: %v", err)
		p.sink.Render(display.RegionQuoteText, "Daily quote unavailable (waiting for the daily update).")
		p.sink.Render(display.RegionQuoteAuthor, "")
		p.sink.Render(display.RegionQuoteMeta, "")
		return
	}

	text := doc.Quote
	if text == "" {
		text = "—"
	}
	author := doc.Author
	if author == "" {
		author = "Leo Tolstoy"
	}

	p.sink.Render(display.RegionQuoteText, text)
	p.sink.Render(display.RegionQuoteAuthor, "— "+author)
	p.sink.Render(display.RegionQuoteMeta, fmt.Sprintf("Calendar of Wisdom • %s %d", doc.Month, doc.Day))
}

func (p *Panel) load(ctx context.Context) (*quoteDocument, error) {
	raw, err := p.read(ctx)
	if err != nil {
		return nil, err
	}

	var doc quoteDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode quote document: %w", err)
	}
	return &doc, nil
}

func (p *Panel) read(ctx context.Context) ([]byte, error) {
	if strings.HasPrefix(p.source, "http://") || strings.HasPrefix(p.source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.source, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build quote request: %w", err)
		}
		resp, err := p.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("quote source returned status %d", resp.StatusCode)
		}

		return io.ReadAll(resp.Body)
	}

	raw, err := os.ReadFile(p.source)
	if err != nil {
		return nil, fmt.Errorf("failed to read quote file: %w", err)
	}
	return raw, nil
}
