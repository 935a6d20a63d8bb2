// Package geocode resolves free-form addresses to coordinates through the
// geocoder service.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"google.golang.org/api/idtoken"

	"github.com/octobees/opsboard/internal/listquery"
)

// ErrNotFound is returned when the geocoder has no match for the query.
var ErrNotFound = errors.New("address not found")

// Location is a geocoded address.
type Location struct {
	Region string  `json:"region"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

// Point returns the coordinates of the location.
func (l Location) Point() listquery.Point {
	return listquery.Point{Lat: l.Lat, Lon: l.Lon}
}

// Locator resolves an address.
type Locator interface {
	Locate(ctx context.Context, query, requestID string) (Location, error)
}

// Client calls GET <base>/geocode?q=<query>.
type Client struct {
	client  *http.Client
	baseURL string
}

// NewClient builds a geocoder client. When client is nil and useIDToken is
// set, requests are signed with an ID token for the service audience.
func NewClient(client *http.Client, baseURL string, useIDToken bool) *Client {
	if baseURL == "" {
		panic("geocoder baseURL must not be empty")
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if client == nil && useIDToken {
		idc, err := idtoken.NewClient(context.Background(), baseURL)
		if err == nil {
			client = idc
		}
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{client: client, baseURL: baseURL}
}

// Locate geocodes query.
func (c *Client) Locate(ctx context.Context, query, requestID string) (Location, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Location{}, ErrNotFound
	}

	endpoint := c.baseURL + "/geocode?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Location{}, fmt.Errorf("failed to create geocoder request: %w", err)
	}
	if requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("geocoder request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Location{}, ErrNotFound
	}
	if resp.StatusCode >= 400 {
		return Location{}, fmt.Errorf("geocoder error: %s", extractError(resp.Body))
	}

	var payload struct {
		Data  *Location `json:"data"`
		Error string    `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil && err != io.EOF {
		return Location{}, fmt.Errorf("could not decode geocoder response: %w", err)
	}
	if payload.Error != "" {
		return Location{}, fmt.Errorf("geocoder error: %s", payload.Error)
	}
	if payload.Data == nil || !payload.Data.Point().Valid() {
		return Location{}, ErrNotFound
	}
	return *payload.Data, nil
}

func extractError(body io.Reader) string {
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return "geocoder returned an error"
	}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return string(data)
}

var _ Locator = (*Client)(nil)
