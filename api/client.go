// Package api is the console's gateway to the remediation backend. Every
// operation is a single request/response round trip; nothing is retried.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ftahirops/healtop/engine"
	"github.com/ftahirops/healtop/model"
)

// ErrRequestFailed marks every transport and server failure. Callers branch
// on this single outcome; detail is available through ServerError.
var ErrRequestFailed = errors.New("request failed")

// ServerError is a non-success or unreadable response from the backend.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return http.StatusText(e.StatusCode)
	}
	return e.Message
}

// Action kinds accepted by /api/action.
const (
	ActionAuto  = "auto"
	ActionScale = "scale"
)

const maxBodyBytes = 4 << 20

// Client talks to the backend over HTTP/JSON.
type Client struct {
	base *url.URL
	http *http.Client
	log  *zap.Logger
}

// NewClient creates a client for baseURL ("http://host:5001").
func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrapf(err, "parse api url %q", baseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Newf("api url must use http or https, got %q", u.Scheme)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		base: u,
		http: &http.Client{Timeout: timeout},
		log:  log.Named("api"),
	}, nil
}

// BaseURL returns the backend address.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Status fetches the current metrics, pending alert and large files.
func (c *Client) Status(ctx context.Context) (model.StatusSnapshot, error) {
	var snap model.StatusSnapshot
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &snap); err != nil {
		return model.StatusSnapshot{}, err
	}
	snap.ReceivedAt = time.Now()
	return snap, nil
}

// History fetches the action history, most recent first.
func (c *Client) History(ctx context.Context) ([]model.HistoryItem, error) {
	var resp struct {
		History []model.HistoryItem `json:"history"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/history", nil, &resp); err != nil {
		return nil, err
	}
	return resp.History, nil
}

type actionRequest struct {
	Action    string `json:"action"`
	AlertType string `json:"alert_type,omitempty"`
}

type messageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ExecuteAuto runs an alert-level action ("auto" or "scale"). alertType is
// optional; when empty the backend uses its own pending alert.
func (c *Client) ExecuteAuto(ctx context.Context, action, alertType string) (string, error) {
	var resp messageResponse
	req := actionRequest{Action: action, AlertType: strings.ToLower(alertType)}
	if err := c.do(ctx, http.MethodPost, "/api/action", req, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// ManualOptions fetches the remediation candidates for resource.
func (c *Client) ManualOptions(ctx context.Context, resource model.Resource) ([]model.ManualOption, error) {
	if !resource.Valid() {
		return nil, errors.Newf("unknown resource %q", resource)
	}
	var resp struct {
		Options []model.ManualOption `json:"options"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/manual-options/"+url.PathEscape(string(resource)), nil, &resp); err != nil {
		return nil, err
	}
	opts := resp.Options[:0]
	for _, o := range resp.Options {
		if o.Kind != model.OptionUnknown {
			opts = append(opts, o)
		}
	}
	return opts, nil
}

type manualRequest struct {
	Resource   model.Resource `json:"resource"`
	Selections []string       `json:"selections"`
}

// ExecuteManual submits an operator selection. An empty selection is
// rejected locally and never reaches the network.
func (c *Client) ExecuteManual(ctx context.Context, resource model.Resource, selections []string) (string, error) {
	if len(selections) == 0 {
		return "", engine.ErrEmptySelection
	}
	var resp messageResponse
	req := manualRequest{Resource: resource, Selections: selections}
	if err := c.do(ctx, http.MethodPost, "/api/manual-execute", req, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Dismiss drops the pending alert without remediation.
func (c *Client) Dismiss(ctx context.Context) (string, error) {
	var resp messageResponse
	if err := c.do(ctx, http.MethodPost, "/api/dismiss", nil, &resp); err != nil {
		return "", err
	}
	if resp.Message == "" {
		resp.Message = "Alert dismissed"
	}
	return resp.Message, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	reqID := uuid.NewString()
	log := c.log.With(
		zap.String("request_id", reqID),
		zap.String("method", method),
		zap.String("path", path),
	)

	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, rdr)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("request failed", zap.Error(err))
		return errors.Mark(errors.Wrapf(err, "%s %s", method, path), ErrRequestFailed)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		log.Warn("read response failed", zap.Error(err))
		return errors.Mark(errors.Wrapf(err, "%s %s: read body", method, path), ErrRequestFailed)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := &ServerError{StatusCode: resp.StatusCode, Message: serverMessage(data)}
		log.Warn("server error", zap.Int("status", resp.StatusCode), zap.String("message", serr.Message))
		return errors.Mark(errors.Wrapf(serr, "%s %s", method, path), ErrRequestFailed)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			serr := &ServerError{StatusCode: resp.StatusCode, Message: "unexpected response payload"}
			log.Warn("decode failed", zap.Error(err))
			return errors.Mark(errors.Wrapf(errors.WithSecondaryError(serr, err), "%s %s", method, path), ErrRequestFailed)
		}
		if m, ok := out.(*messageResponse); ok && m.Status == "error" {
			serr := &ServerError{StatusCode: resp.StatusCode, Message: m.Message}
			log.Warn("server reported error", zap.String("message", m.Message))
			return errors.Mark(errors.Wrapf(serr, "%s %s", method, path), ErrRequestFailed)
		}
	}

	log.Debug("request ok", zap.Int("status", resp.StatusCode), zap.Duration("took", time.Since(start)))
	return nil
}

// serverMessage extracts "message" or "error" from an error body.
func serverMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	s := strings.TrimSpace(string(data))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
