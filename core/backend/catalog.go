package backend

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/tutorhub/core/catalog"
)

const (
	coursesPath   = "/api/view/courses"
	locationsPath = "/api/view/locations"
	offeringsPath = "/api/view/all-tutor-courses"
	officesPath   = "/api/view/offices"
)

func (c *Client) list(ctx context.Context, path string, out interface{}) error {
	var raw json.RawMessage
	if err := c.do(ctx, call{method: rest.Get, path: path}, &raw); err != nil {
		return err
	}
	return errors.Wrapf(unwrapList(raw, out), "decoding %s", path)
}

func (c *Client) Courses(ctx context.Context) ([]catalog.Course, error) {
	courses := make([]catalog.Course, 0)
	err := c.list(ctx, coursesPath, &courses)
	return courses, err
}

func (c *Client) Locations(ctx context.Context) ([]catalog.Location, error) {
	locations := make([]catalog.Location, 0)
	err := c.list(ctx, locationsPath, &locations)
	return locations, err
}

// Offerings lists all the tutor-courses.
func (c *Client) Offerings(ctx context.Context) ([]catalog.Offering, error) {
	offerings := make([]catalog.Offering, 0)
	err := c.list(ctx, offeringsPath, &offerings)
	return offerings, err
}

func (c *Client) Offices(ctx context.Context) ([]catalog.Office, error) {
	offices := make([]catalog.Office, 0)
	err := c.list(ctx, officesPath, &offices)
	return offices, err
}
