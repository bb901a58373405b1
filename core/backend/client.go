// Package backend is the portal's client of the remote REST backend.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/tutorhub/core"
)

// Error is a non-2xx backend response.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("backend: %d %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is a backend *Error with the given status code.
func IsStatus(err error, code int) bool {
	bErr, ok := errors.Cause(err).(*Error)
	return ok && bErr.StatusCode == code
}

// Record is a backend row, kept as decoded JSON.
type Record map[string]interface{}

type Client struct {
	baseURL  string
	rest     *rest.Client
	recorder core.Recorder
}

func NewClient(conf core.BackendConfig, recorder core.Recorder) *Client {
	if recorder == nil {
		recorder = core.NopRecorder
	}
	return &Client{
		baseURL:  strings.TrimRight(conf.BaseURL, "/"),
		rest:     &rest.Client{HTTPClient: &http.Client{Timeout: conf.Timeout}},
		recorder: recorder,
	}
}

type call struct {
	method   rest.Method
	path     string
	token    string
	query    url.Values
	body     interface{}
	endpoint string // metrics label, defaults to path
}

func (c *Client) do(ctx context.Context, cl call, out interface{}) error {
	req := rest.Request{
		Method:  cl.method,
		BaseURL: c.baseURL + cl.path,
		Headers: map[string]string{"Accept": "application/json"},
	}
	if cl.token != "" {
		req.Headers["Authorization"] = "Bearer " + cl.token
	}
	if len(cl.query) > 0 {
		req.QueryParams = make(map[string]string, len(cl.query))
		for k := range cl.query {
			req.QueryParams[k] = cl.query.Get(k)
		}
	}
	if cl.body != nil {
		body, err := json.Marshal(cl.body)
		if err != nil {
			return errors.Wrap(err, "marshalling request body")
		}
		req.Body = body
		req.Headers["Content-Type"] = "application/json"
	}

	endpoint := cl.endpoint
	if endpoint == "" {
		endpoint = cl.path
	}

	res, err := c.rest.SendWithContext(ctx, req)
	if err != nil {
		c.recorder.BackendRequest(endpoint, 0)
		return errors.Wrapf(err, "%s %s", cl.method, cl.path)
	}
	c.recorder.BackendRequest(endpoint, res.StatusCode)

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return &Error{StatusCode: res.StatusCode, Message: errorMessage(res)}
	}
	if out == nil || strings.TrimSpace(res.Body) == "" {
		return nil
	}
	if err = json.Unmarshal([]byte(res.Body), out); err != nil {
		return errors.Wrapf(err, "decoding %s %s response", cl.method, cl.path)
	}
	return nil
}

// errorMessage extracts the backend's message out of the usual {"message"|"error"|"detail": "..."} bodies.
func errorMessage(res *rest.Response) string {
	var body map[string]interface{}
	if err := json.Unmarshal([]byte(res.Body), &body); err == nil {
		for _, k := range []string{"message", "error", "detail", "msg"} {
			if msg, ok := body[k].(string); ok && msg != "" {
				return msg
			}
		}
	}
	if msg := strings.TrimSpace(res.Body); msg != "" && len(msg) < 200 && !strings.HasPrefix(msg, "<") {
		return msg
	}
	return http.StatusText(res.StatusCode)
}

// unwrapList accepts both bare JSON arrays and {"data"|"results"|...: [...]} envelopes.
func unwrapList(raw json.RawMessage, out interface{}) error {
	raw = json.RawMessage(strings.TrimSpace(string(raw)))
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if raw[0] == '[' {
		return json.Unmarshal(raw, out)
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return err
	}
	for _, k := range []string{"data", "results", "items", "rows"} {
		if list, ok := envelope[k]; ok {
			return unwrapList(list, out)
		}
	}
	return errors.New("response holds no list")
}

// unwrapRecord accepts both bare objects and {"data": {...}} envelopes.
func unwrapRecord(raw json.RawMessage) (Record, error) {
	var rec Record
	if len(strings.TrimSpace(string(raw))) == 0 {
		return Record{}, nil
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	if data, ok := rec["data"].(map[string]interface{}); ok && len(rec) <= 3 {
		return Record(data), nil
	}
	return rec, nil
}
