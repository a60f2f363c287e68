// Package rest provides the document backend adapter for the analysis REST API.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/Dev-KrishnaPathak/Patiently/internal/core/domain"
	"github.com/Dev-KrishnaPathak/Patiently/internal/core/ports/driven"
	"github.com/Dev-KrishnaPathak/Patiently/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.DocumentBackend = (*Client)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:8000/api"
	DefaultTimeout = 30 * time.Second

	// listPageSize is the page size requested from GET /documents.
	listPageSize = 100

	// maxErrorBody bounds how much of an error response is kept.
	maxErrorBody = 4 << 10

	requestIDHeader = "X-Request-ID"
)

// Backend operation names, used in errors and as breaker names.
const (
	opList     = "list documents"
	opUpload   = "upload"
	opAnalysis = "get analysis"
	opDelete   = "delete document"
	opTrends   = "get trends"
)

// Config holds configuration for the REST backend client.
type Config struct {
	// BaseURL is the API root (default: http://localhost:8000/api).
	BaseURL string

	// Timeout bounds a single request (default: 30s).
	Timeout time.Duration

	// RateLimit is the sustained request rate. Zero disables limiting.
	RateLimit float64

	// Burst is the token bucket size (default: 1 when limiting).
	Burst int

	// Breaker configures the per-operation circuit breakers.
	Breaker BreakerConfig

	// HTTPClient overrides the default client. Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client talks to the document analysis backend over HTTP.
type Client struct {
	client   *http.Client
	baseURL  string
	limiter  *rate.Limiter
	breakers *breakers
}

// NewClient creates a new REST backend client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("rest: invalid base URL %q: %w", cfg.BaseURL, domain.ErrInvalidInput)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
		if cfg.Burst <= 0 {
			cfg.Burst = 1
		}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		client:   httpClient,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		limiter:  rate.NewLimiter(limit, cfg.Burst),
		breakers: newBreakers(cfg.Breaker),
	}, nil
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListDocuments fetches every document the backend knows about, newest first.
func (c *Client) ListDocuments(ctx context.Context) ([]domain.DocumentRecord, error) {
	var (
		out  []domain.DocumentRecord
		seen = make(map[string]bool)
	)

	for skip := 0; ; skip += listPageSize {
		query := url.Values{}
		query.Set("skip", strconv.Itoa(skip))
		query.Set("limit", strconv.Itoa(listPageSize))

		var page listResponse
		if err := c.getJSON(ctx, opList, "/documents?"+query.Encode(), &page); err != nil {
			return nil, err
		}

		added := 0
		for _, dto := range page.Documents {
			if dto.DocumentID == "" || seen[dto.DocumentID] {
				continue
			}
			seen[dto.DocumentID] = true
			out = append(out, dto.toDomain())
			added++
		}

		// A short page ends the listing. A page with nothing new means the
		// backend ignores paging.
		if len(page.Documents) < listPageSize || added == 0 {
			break
		}
	}

	logger.Debug("rest: listed %d documents", len(out))
	return out, nil
}

// Upload submits a file as multipart field "file" and returns the new document id.
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader) (string, error) {
	body, contentType, err := multipartBody(filename, content)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", opUpload, filename, err)
	}

	var id string
	err = c.breakers.execute(opUpload, func() error {
		req, err := c.newRequest(ctx, http.MethodPost, "/upload", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", contentType)

		resp, err := c.do(req, opUpload)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
			return serverError(opUpload, resp)
		}

		var out uploadResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return &domain.ServerError{Op: opUpload, StatusCode: resp.StatusCode, Body: "malformed response: " + err.Error()}
		}
		if out.DocumentID == "" {
			return &domain.ServerError{Op: opUpload, StatusCode: resp.StatusCode, Body: "response has no document_id"}
		}
		id = out.DocumentID
		return nil
	})
	if err != nil {
		return "", err
	}

	logger.Debug("rest: uploaded %s as %s", filename, id)
	return id, nil
}

// GetAnalysis fetches the analysis for a document. Until the backend has
// produced one it answers with a *domain.NotReadyError.
func (c *Client) GetAnalysis(ctx context.Context, id string) (*domain.AnalysisResult, error) {
	var result *domain.AnalysisResult
	err := c.breakers.execute(opAnalysis, func() error {
		req, err := c.newRequest(ctx, http.MethodGet, "/document/"+url.PathEscape(id)+"/analysis", nil)
		if err != nil {
			return err
		}

		resp, err := c.do(req, opAnalysis)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK:
		case http.StatusAccepted, http.StatusNotFound, http.StatusConflict, http.StatusTooEarly:
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
			return &domain.NotReadyError{DocumentID: id, StatusCode: resp.StatusCode}
		default:
			return serverError(opAnalysis, resp)
		}

		var payload analysisResponse
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return &domain.ServerError{Op: opAnalysis, StatusCode: resp.StatusCode, Body: "malformed response: " + err.Error()}
		}
		r, ok := payload.toDomain(id)
		if !ok {
			return &domain.ServerError{Op: opAnalysis, StatusCode: resp.StatusCode, Body: "response has no analysis"}
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteDocument removes a document and its analysis on the backend.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	return c.breakers.execute(opDelete, func() error {
		req, err := c.newRequest(ctx, http.MethodDelete, "/document/"+url.PathEscape(id), nil)
		if err != nil {
			return err
		}

		resp, err := c.do(req, opDelete)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return serverError(opDelete, resp)
		}
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return nil
	})
}

// GetTrends fetches the history of one test across documents. With an
// empty testName the report only lists the tests available in the document.
func (c *Client) GetTrends(ctx context.Context, id, testName string) (*domain.TrendReport, error) {
	path := "/document/" + url.PathEscape(id) + "/trends"
	if testName != "" {
		path += "?" + url.Values{"test_name": {testName}}.Encode()
	}

	var payload trendsResponse
	if err := c.getJSON(ctx, opTrends, path, &payload); err != nil {
		return nil, err
	}
	if payload.Error != "" {
		return nil, fmt.Errorf("%s %s: %w: %s", opTrends, id, domain.ErrNotFound, payload.Error)
	}
	return payload.toDomain(testName), nil
}

// getJSON issues a GET through the operation's breaker and decodes a 2xx body.
func (c *Client) getJSON(ctx context.Context, op, path string, out any) error {
	return c.breakers.execute(op, func() error {
		req, err := c.newRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return err
		}

		resp, err := c.do(req, op)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return serverError(op, resp)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &domain.ServerError{Op: op, StatusCode: resp.StatusCode, Body: "malformed response: " + err.Error()}
		}
		return nil
	})
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())
	return req, nil
}

// do waits for a rate limit token and sends the request. Transport
// failures come back as *domain.NetworkError.
func (c *Client) do(req *http.Request, op string) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("%s: rate limit: %w", op, err)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", op, ctxErr)
		}
		return nil, &domain.NetworkError{Op: op, Err: err}
	}

	logger.Debug("rest: %s %s -> %d in %s (request %s)",
		req.Method, req.URL.Path, resp.StatusCode, time.Since(start).Round(time.Millisecond),
		req.Header.Get(requestIDHeader))
	return resp, nil
}

// serverError reads a bounded error body, preferring FastAPI's "detail".
func serverError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	body := strings.TrimSpace(string(raw))

	var detail errorResponse
	if json.Unmarshal(raw, &detail) == nil && detail.Detail != "" {
		body = detail.Detail
	}
	return &domain.ServerError{Op: op, StatusCode: resp.StatusCode, Body: body}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// multipartBody encodes content as form field "file". The part carries the
// file's MIME type, which the backend checks.
func multipartBody(filename string, content io.Reader) ([]byte, string, error) {
	if content == nil {
		return nil, "", errors.New("no content")
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(filename)))
	header.Set("Content-Type", domain.ContentTypeFor(filename))

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create form part: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, "", fmt.Errorf("read file: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
