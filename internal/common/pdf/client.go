// Package pdf is the client of the external HTML-to-PDF rendering service.
package pdf

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"report-workers/internal/common/config"
	commonhttp "report-workers/internal/common/http"
)

var ErrEmptyDocument = errors.New("pdf service returned an empty document")

// Renderer is the capability the delivery coordinator depends on.
type Renderer interface {
	Render(ctx context.Context, html, filename string) ([]byte, error)
	Warmup(ctx context.Context) error
}

type renderRequest struct {
	HTML     string `json:"html"`
	Filename string `json:"filename,omitempty"`
}

// renderResponse covers the JSON variants: a download URL or inline base64 content.
type renderResponse struct {
	URL       string `json:"url"`
	PDFURL    string `json:"pdf_url"`
	PDFBase64 string `json:"pdf_base64"`
}

type Client struct {
	http       *commonhttp.Client
	baseURL    string
	renderPath string
	healthPath string
	timeout    time.Duration
}

func NewClient(cfg config.PDFConfig) *Client {
	return &Client{
		http:       commonhttp.NewClient(0, 1),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		renderPath: cfg.RenderPath,
		healthPath: cfg.HealthPath,
		timeout:    config.GetDuration(cfg.Timeout),
	}
}

// Warmup pings the health endpoint so a cold service starts before the render call.
func (c *Client) Warmup(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.healthPath, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.DoWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("pdf warmup: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("pdf warmup: status %d", resp.StatusCode)
	}
	return nil
}

// Render posts the HTML and returns the PDF bytes, following a returned URL if needed.
func (c *Client) Render(ctx context.Context, html, filename string) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(renderRequest{HTML: html, Filename: filename})
	if err != nil {
		return nil, fmt.Errorf("encode render request: %w", err)
	}

	resp, err := c.http.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.renderPath, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		r.Header.Set("Content-Type", "application/json")
		r.Header.Set("Accept", "application/pdf, application/json")
		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("pdf render: %w", err)
	}
	defer resp.Body.Close()

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		return readDocument(resp.Body)
	}

	var parsed renderResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode render response: %w", err)
	}
	switch {
	case parsed.PDFBase64 != "":
		raw, err := base64.StdEncoding.DecodeString(parsed.PDFBase64)
		if err != nil {
			return nil, fmt.Errorf("decode pdf_base64: %w", err)
		}
		if len(raw) == 0 {
			return nil, ErrEmptyDocument
		}
		return raw, nil
	case parsed.PDFURL != "":
		return c.fetch(ctx, parsed.PDFURL)
	case parsed.URL != "":
		return c.fetch(ctx, parsed.URL)
	default:
		return nil, ErrEmptyDocument
	}
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	if strings.HasPrefix(url, "/") {
		url = c.baseURL + url
	}
	resp, err := c.http.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch rendered pdf: %w", err)
	}
	defer resp.Body.Close()
	return readDocument(resp.Body)
}

func readDocument(r io.Reader) ([]byte, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrEmptyDocument
	}
	return raw, nil
}
