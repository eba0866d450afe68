package pageupdate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/surgify/islandkit/document"
	"github.com/surgify/islandkit/errors"
	"github.com/surgify/islandkit/metric"
)

// MaxFragmentSize caps the response body accepted from a partial update.
const MaxFragmentSize = 1024 * 1024

// HTTPUpdater implements Updater against a fragment-serving HTTP backend:
// partial updates POST the payload to an endpoint and splice the returned
// HTML fragment into the document; navigation GETs a path and swaps the
// document body.
type HTTPUpdater struct {
	baseURL string
	client  *http.Client
	doc     *document.Document
	logger  *slog.Logger
	metrics *metric.CoreMetrics
}

// NewHTTPUpdater creates an updater bound to one document. The HTTP client
// may be nil; a client with a sane timeout is used then. The metrics
// registry may be nil.
func NewHTTPUpdater(
	baseURL string, doc *document.Document, client *http.Client,
	logger *slog.Logger, registry *metric.Registry,
) *HTTPUpdater {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}

	u := &HTTPUpdater{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		doc:     doc,
		logger:  logger.With("component", "http-updater"),
	}
	if registry != nil {
		u.metrics = registry.Core
	}

	return u
}

// ApplyPartialUpdate issues a POST to the endpoint and splices the response
// into the document at target.
func (u *HTTPUpdater) ApplyPartialUpdate(ctx context.Context, target, endpoint string, payload any) error {
	fragment, err := u.fetchFragment(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		u.recordUpdate(false)
		return errors.Wrap(err, "HTTPUpdater", "ApplyPartialUpdate", "fragment fetch")
	}

	if err := u.doc.ReplaceContent(target, fragment); err != nil {
		u.recordUpdate(false)
		return errors.Wrap(err, "HTTPUpdater", "ApplyPartialUpdate", "fragment splice")
	}

	u.recordUpdate(true)
	u.logger.Debug("Partial update applied", "target", target, "endpoint", endpoint)
	return nil
}

// Navigate issues a GET for the path and swaps the document body with the
// response.
func (u *HTTPUpdater) Navigate(ctx context.Context, path string) error {
	fragment, err := u.fetchFragment(ctx, http.MethodGet, path, nil)
	if err != nil {
		u.recordNavigation(false)
		return errors.Wrap(err, "HTTPUpdater", "Navigate", "page fetch")
	}

	if err := u.doc.ReplaceBody(fragment); err != nil {
		u.recordNavigation(false)
		return errors.Wrap(err, "HTTPUpdater", "Navigate", "body swap")
	}

	u.recordNavigation(true)
	u.logger.Debug("Navigation applied", "path", path)
	return nil
}

// fetchFragment performs the request and returns the body as a fragment.
func (u *HTTPUpdater) fetchFragment(ctx context.Context, method, path string, payload any) (string, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return "", errors.WrapInvalid(err, "HTTPUpdater", "fetchFragment", "payload encoding")
		}
		body = bytes.NewReader(data)
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	req, err := http.NewRequestWithContext(ctx, method, u.baseURL+path, body)
	if err != nil {
		return "", errors.WrapInvalid(err, "HTTPUpdater", "fetchFragment", "request construction")
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "text/html")

	resp, err := u.client.Do(req)
	if err != nil {
		return "", errors.WrapTransient(err, "HTTPUpdater", "fetchFragment", "request execution")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return "", errors.WrapTransient(
			fmt.Errorf("%w: status %d from %s", errors.ErrUpdateFailed, resp.StatusCode, path),
			"HTTPUpdater", "fetchFragment", "response status check")
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxFragmentSize))
	if err != nil {
		return "", errors.WrapTransient(err, "HTTPUpdater", "fetchFragment", "response read")
	}

	return string(data), nil
}

func (u *HTTPUpdater) recordUpdate(success bool) {
	if u.metrics == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	u.metrics.PartialUpdates.WithLabelValues(status).Inc()
}

func (u *HTTPUpdater) recordNavigation(success bool) {
	if u.metrics == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	u.metrics.Navigations.WithLabelValues(status).Inc()
}
