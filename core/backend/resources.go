package backend

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"
)

func resourcePath(path, id string) string {
	return strings.TrimRight(path, "/") + "/" + url.PathEscape(id)
}

// List fetches every row of the resource found at path.
func (c *Client) List(ctx context.Context, token, path string) ([]Record, error) {
	var raw json.RawMessage
	if err := c.do(ctx, call{method: rest.Get, path: path, token: token}, &raw); err != nil {
		return nil, err
	}
	records := make([]Record, 0)
	if err := unwrapList(raw, &records); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	return records, nil
}

func (c *Client) Get(ctx context.Context, token, path, id string) (Record, error) {
	var raw json.RawMessage
	err := c.do(ctx, call{method: rest.Get, path: resourcePath(path, id), token: token, endpoint: path + "/:id"}, &raw)
	if err != nil {
		return nil, err
	}
	rec, err := unwrapRecord(raw)
	return rec, errors.Wrapf(err, "decoding %s", path)
}

func (c *Client) Create(ctx context.Context, token, path string, body Record) (Record, error) {
	var raw json.RawMessage
	if err := c.do(ctx, call{method: rest.Post, path: path, token: token, body: body}, &raw); err != nil {
		return nil, err
	}
	rec, err := unwrapRecord(raw)
	return rec, errors.Wrapf(err, "decoding %s", path)
}

func (c *Client) Update(ctx context.Context, token, path, id string, body Record) (Record, error) {
	var raw json.RawMessage
	err := c.do(ctx, call{method: rest.Put, path: resourcePath(path, id), token: token, body: body, endpoint: path + "/:id"}, &raw)
	if err != nil {
		return nil, err
	}
	rec, err := unwrapRecord(raw)
	return rec, errors.Wrapf(err, "decoding %s", path)
}

func (c *Client) Delete(ctx context.Context, token, path, id string) error {
	return c.do(ctx, call{method: rest.Delete, path: resourcePath(path, id), token: token, endpoint: path + "/:id"}, nil)
}
