// Package client is the typed HTTP wrapper the booking flow, the staff
// console and sorsoctl use to talk to the backend. Every call returns a
// Result; transport failures, undecodable answers and even panics come back
// as a failed Result instead of crossing the boundary.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"sorso/pkg/eventbus"
	"sorso/pkg/logger"
)

const DefaultAPIPath = "/api/v1"

type Options struct {
	BaseURL    string // scheme://host[:port] of the backend
	APIPath    string // defaults to /api/v1
	HTTPClient *http.Client
	Bus        *eventbus.Bus // may be nil
	Log        *logger.Logger
}

type Client struct {
	baseURL string
	apiURL  string
	http    *http.Client
	bus     *eventbus.Bus
	log     *logger.Logger
	now     func() time.Time

	mu      sync.RWMutex
	session *Session
}

func New(opts Options) *Client {
	if opts.APIPath == "" {
		opts.APIPath = DefaultAPIPath
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Log == nil {
		opts.Log = logger.Discard()
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	return &Client{
		baseURL: base,
		apiURL:  base + "/" + strings.Trim(opts.APIPath, "/"),
		http:    opts.HTTPClient,
		bus:     opts.Bus,
		log:     opts.Log.WithComponent("client"),
		now:     time.Now,
	}
}

// envelope mirrors the backend's response wrapper
type envelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Errors     *struct {
		Code    string          `json:"code"`
		Details json.RawMessage `json:"details"`
	} `json:"errors"`
}

type request struct {
	method      string
	path        string // below the API prefix
	query       url.Values
	body        interface{} // encoded as JSON when non-nil
	raw         io.Reader   // sent as-is with contentType
	contentType string
	auth        bool // attach the session token; a 401 ends the session
}

// call performs req and decodes the envelope's data into T
func call[T any](ctx context.Context, c *Client, req request) (res Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("client call panicked", "path", req.path, "panic", fmt.Sprint(r))
			res = failure[T](&Error{Code: CodeInternal, Message: fmt.Sprint(r)})
		}
	}()

	resp, apiErr := c.send(ctx, req)
	if apiErr != nil {
		return failure[T](apiErr)
	}
	defer resp.Body.Close()

	env, apiErr := decodeEnvelope(resp)
	if apiErr != nil {
		c.afterFailure(req, apiErr)
		return failure[T](apiErr)
	}

	var data T
	if len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return failure[T](&Error{Status: resp.StatusCode, Code: CodeDecode, Message: err.Error()})
		}
	}
	return success(data)
}

// download performs req and returns the body as a file
func download(ctx context.Context, c *Client, req request) (res Result[Download]) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("client download panicked", "path", req.path, "panic", fmt.Sprint(r))
			res = failure[Download](&Error{Code: CodeInternal, Message: fmt.Sprint(r)})
		}
	}()

	resp, apiErr := c.send(ctx, req)
	if apiErr != nil {
		return failure[Download](apiErr)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		_, apiErr := decodeEnvelope(resp)
		c.afterFailure(req, apiErr)
		return failure[Download](apiErr)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return failure[Download](&Error{Status: resp.StatusCode, Code: CodeNetwork, Message: err.Error()})
	}
	return success(Download{
		Filename:    attachmentName(resp.Header.Get("Content-Disposition")),
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	})
}

func (c *Client) send(ctx context.Context, req request) (*http.Response, *Error) {
	u := c.apiURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	body := req.raw
	contentType := req.contentType
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return nil, &Error{Code: CodeDecode, Message: err.Error()}
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, body)
	if err != nil {
		return nil, &Error{Code: CodeNetwork, Message: err.Error()}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.auth {
		if token := c.accessToken(); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &Error{Code: CodeNetwork, Message: err.Error()}
	}
	return resp, nil
}

func decodeEnvelope(resp *http.Response) (*envelope, *Error) {
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, &Error{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return nil, &Error{Status: resp.StatusCode, Code: CodeDecode, Message: err.Error()}
	}

	if resp.StatusCode >= http.StatusBadRequest || env.Status == "error" {
		apiErr := &Error{Status: resp.StatusCode, Message: env.Message}
		if env.Errors != nil {
			apiErr.Code = env.Errors.Code
			apiErr.Details = env.Errors.Details
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return nil, apiErr
	}
	return &env, nil
}

// afterFailure ends the local session when the backend no longer accepts it
func (c *Client) afterFailure(req request, apiErr *Error) {
	if req.auth && apiErr.Unauthorized() && c.HasSession() {
		c.log.Info("session rejected by backend", "path", req.path)
		c.clearSession()
	}
}

// attachmentName reads filename from a Content-Disposition header.
// filename* (RFC 2231) wins over filename when both are sent.
func attachmentName(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}

func eventPath(id string, rest ...string) string {
	p := "/events/" + url.PathEscape(id)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}
