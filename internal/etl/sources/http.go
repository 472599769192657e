package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"gedcom2csv/internal/etl"
	"gedcom2csv/internal/gedcom"
)

// ── HTTP Source ─────────────────────────────────────────────
// Fetches GEDCOM text from a URL.

type httpSource struct {
	client *resty.Client
}

func init() {
	etl.RegisterSource(&httpSource{client: resty.New().SetTimeout(30 * time.Second)})
}

func (s *httpSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{
		Type:  "gedcom_http",
		Label: "GEDCOM over HTTP",
		ConfigFields: []etl.ConfigField{
			{Key: "url", Label: "URL", Required: true, Help: "URL serving the .ged file"},
			{Key: "headers", Label: "Headers", Required: false, Help: "JSON object of headers (e.g., {\"Authorization\": \"Bearer xxx\"})"},
		},
	}
}

func (s *httpSource) Read(ctx context.Context, cfg etl.SourceConfig) ([]etl.Node, error) {
	url := cfg.String("url")
	if url == "" {
		return nil, fmt.Errorf("url is required")
	}

	req := s.client.R().SetContext(ctx)
	if headersStr := cfg.String("headers"); headersStr != "" {
		var headers map[string]string
		if err := json.Unmarshal([]byte(headersStr), &headers); err != nil {
			return nil, fmt.Errorf("parse headers: %w", err)
		}
		req.SetHeaders(headers)
	}

	resp, err := req.Get(url)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	if resp.IsError() {
		body := resp.Body()
		if len(body) > 1024 {
			body = body[:1024]
		}
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode(), string(body))
	}

	nodes, err := gedcom.ParseAndCompact(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return nodes, nil
}
