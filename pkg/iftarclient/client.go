// Package iftarclient is the Go client for the plat-iftar REST API.
// `iftar gen-client` regenerates it from the server's OpenAPI description.
package iftarclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Catalog is the Catalog schema.
type Catalog struct {
	Audiences  []Option `json:"audiences"`
	IftarTypes []Option `json:"iftarTypes"`
}

// ErrorDetail is the ErrorDetail schema.
type ErrorDetail struct {
	Location string `json:"location,omitempty"`
	Message  string `json:"message,omitempty"`
	Value    any    `json:"value,omitempty"`
}

// ErrorModel is the ErrorModel schema. It is returned as the error of any
// non-2xx response.
type ErrorModel struct {
	Detail   string         `json:"detail,omitempty"`
	Errors   []*ErrorDetail `json:"errors,omitempty"`
	Instance string         `json:"instance,omitempty"`
	Status   int            `json:"status,omitempty"`
	Title    string         `json:"title,omitempty"`
	Type     string         `json:"type,omitempty"`
}

func (e *ErrorModel) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Title, e.Detail)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Title)
}

// HealthBody is the HealthBody schema.
type HealthBody struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// InfoBody is the InfoBody schema.
type InfoBody struct {
	Features []string `json:"features"`
	Language string   `json:"language"`
	Name     string   `json:"name"`
	Store    string   `json:"store"`
	Version  string   `json:"version"`
}

// Location is the Location schema.
type Location struct {
	Area      string    `json:"area,omitempty"`
	Audience  string    `json:"audience"`
	CreatedAt time.Time `json:"createdAt"`
	Date      string    `json:"date"`
	ID        string    `json:"id"`
	IftarType string    `json:"iftarType"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Name      string    `json:"name"`
}

// LocationBody is the LocationBody schema.
type LocationBody struct {
	Area      string    `json:"area,omitempty"`
	Audience  string    `json:"audience"`
	CreatedAt time.Time `json:"createdAt"`
	Date      string    `json:"date"`
	ID        string    `json:"id"`
	IftarType string    `json:"iftarType"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Name      string    `json:"name"`
}

// LocationFields is the LocationFields schema.
type LocationFields struct {
	Area      string  `json:"area,omitempty"`
	Audience  string  `json:"audience"`
	Date      string  `json:"date"`
	IftarType string  `json:"iftarType"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Name      string  `json:"name"`
}

// Option is the Option schema.
type Option struct {
	Badge string `json:"badge,omitempty"`
	Color string `json:"color,omitempty"`
	Emoji string `json:"emoji,omitempty"`
	Key   string `json:"key"`
	Label string `json:"label"`
}

// PageBodyLocation is the PageBodyLocation schema.
type PageBodyLocation struct {
	Data   []Location `json:"data"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
	Total  int        `json:"total"`
}

// ListLocationsParams are the query parameters of ListLocations.
type ListLocationsParams struct {
	Date          string
	CreatedAfter  string
	CreatedBefore string
	Offset        int
	Limit         int
}

func (p ListLocationsParams) values() url.Values {
	q := url.Values{}
	setString(q, "date", p.Date)
	setString(q, "createdAfter", p.CreatedAfter)
	setString(q, "createdBefore", p.CreatedBefore)
	setInt(q, "offset", p.Offset)
	setInt(q, "limit", p.Limit)
	return q
}

// GetLocationsGeojsonParams are the query parameters of GetLocationsGeojson.
type GetLocationsGeojsonParams struct {
	Date string
}

func (p GetLocationsGeojsonParams) values() url.Values {
	q := url.Values{}
	setString(q, "date", p.Date)
	return q
}

// GetShareQrParams are the query parameters of GetShareQr.
type GetShareQrParams struct {
	Date string
	Size int
}

func (p GetShareQrParams) values() url.Values {
	q := url.Values{}
	setString(q, "date", p.Date)
	setInt(q, "size", p.Size)
	return q
}

// GetTileParams are the query parameters of GetTile.
type GetTileParams struct {
	Date string
}

func (p GetTileParams) values() url.Values {
	q := url.Values{}
	setString(q, "date", p.Date)
	return q
}

// RequestOption customizes a single request.
type RequestOption func(*requestOptions)

type requestOptions struct {
	headers http.Header
	query   url.Values
}

// WithHeader sets a request header.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) { o.headers.Set(key, value) }
}

// WithQuery adds a query parameter.
func WithQuery(key, value string) RequestOption {
	return func(o *requestOptions) { o.query.Add(key, value) }
}

// PlatIftarAPIClient is the client for the plat-iftar API.
type PlatIftarAPIClient interface {
	Health(ctx context.Context, opts ...RequestOption) (*http.Response, HealthBody, error)
	GetInfo(ctx context.Context, opts ...RequestOption) (*http.Response, InfoBody, error)
	GetCatalog(ctx context.Context, opts ...RequestOption) (*http.Response, Catalog, error)
	ListLocations(ctx context.Context, params ListLocationsParams, opts ...RequestOption) (*http.Response, PageBodyLocation, error)
	CreateLocation(ctx context.Context, body LocationFields, opts ...RequestOption) (*http.Response, LocationBody, error)
	GetLocationsGeojson(ctx context.Context, params GetLocationsGeojsonParams, opts ...RequestOption) (*http.Response, []byte, error)
	GetLocation(ctx context.Context, id string, opts ...RequestOption) (*http.Response, LocationBody, error)
	UpdateLocation(ctx context.Context, id string, body LocationFields, opts ...RequestOption) (*http.Response, LocationBody, error)
	DeleteLocation(ctx context.Context, id string, opts ...RequestOption) (*http.Response, error)
	GetShareQr(ctx context.Context, params GetShareQrParams, opts ...RequestOption) (*http.Response, []byte, error)
	GetTile(ctx context.Context, z, x, y int, params GetTileParams, opts ...RequestOption) (*http.Response, []byte, error)
}

type platIftarAPIClient struct {
	baseURL string
	client  *http.Client
}

// New creates a client for baseURL using http.DefaultClient.
func New(baseURL string) PlatIftarAPIClient {
	return NewWithClient(baseURL, http.DefaultClient)
}

// NewWithClient creates a client for baseURL using client.
func NewWithClient(baseURL string, client *http.Client) PlatIftarAPIClient {
	return &platIftarAPIClient{baseURL: strings.TrimSuffix(baseURL, "/"), client: client}
}

func (c *platIftarAPIClient) Health(ctx context.Context, opts ...RequestOption) (*http.Response, HealthBody, error) {
	var out HealthBody
	resp, err := c.doJSON(ctx, http.MethodGet, "/health", nil, nil, &out, opts)
	return resp, out, err
}

func (c *platIftarAPIClient) GetInfo(ctx context.Context, opts ...RequestOption) (*http.Response, InfoBody, error) {
	var out InfoBody
	resp, err := c.doJSON(ctx, http.MethodGet, "/api/v1/info", nil, nil, &out, opts)
	return resp, out, err
}

func (c *platIftarAPIClient) GetCatalog(ctx context.Context, opts ...RequestOption) (*http.Response, Catalog, error) {
	var out Catalog
	resp, err := c.doJSON(ctx, http.MethodGet, "/api/v1/catalog", nil, nil, &out, opts)
	return resp, out, err
}

func (c *platIftarAPIClient) ListLocations(ctx context.Context, params ListLocationsParams, opts ...RequestOption) (*http.Response, PageBodyLocation, error) {
	var out PageBodyLocation
	resp, err := c.doJSON(ctx, http.MethodGet, "/api/v1/locations", params.values(), nil, &out, opts)
	return resp, out, err
}

func (c *platIftarAPIClient) CreateLocation(ctx context.Context, body LocationFields, opts ...RequestOption) (*http.Response, LocationBody, error) {
	var out LocationBody
	resp, err := c.doJSON(ctx, http.MethodPost, "/api/v1/locations", nil, body, &out, opts)
	return resp, out, err
}

func (c *platIftarAPIClient) GetLocationsGeojson(ctx context.Context, params GetLocationsGeojsonParams, opts ...RequestOption) (*http.Response, []byte, error) {
	return c.doRaw(ctx, http.MethodGet, "/api/v1/locations.geojson", params.values(), opts)
}

func (c *platIftarAPIClient) GetLocation(ctx context.Context, id string, opts ...RequestOption) (*http.Response, LocationBody, error) {
	var out LocationBody
	resp, err := c.doJSON(ctx, http.MethodGet, "/api/v1/locations/"+url.PathEscape(id), nil, nil, &out, opts)
	return resp, out, err
}

func (c *platIftarAPIClient) UpdateLocation(ctx context.Context, id string, body LocationFields, opts ...RequestOption) (*http.Response, LocationBody, error) {
	var out LocationBody
	resp, err := c.doJSON(ctx, http.MethodPut, "/api/v1/locations/"+url.PathEscape(id), nil, body, &out, opts)
	return resp, out, err
}

func (c *platIftarAPIClient) DeleteLocation(ctx context.Context, id string, opts ...RequestOption) (*http.Response, error) {
	return c.doJSON(ctx, http.MethodDelete, "/api/v1/locations/"+url.PathEscape(id), nil, nil, nil, opts)
}

func (c *platIftarAPIClient) GetShareQr(ctx context.Context, params GetShareQrParams, opts ...RequestOption) (*http.Response, []byte, error) {
	return c.doRaw(ctx, http.MethodGet, "/api/v1/share/qr", params.values(), opts)
}

func (c *platIftarAPIClient) GetTile(ctx context.Context, z, x, y int, params GetTileParams, opts ...RequestOption) (*http.Response, []byte, error) {
	path := fmt.Sprintf("/api/v1/tiles/%d/%d/%d", z, x, y)
	return c.doRaw(ctx, http.MethodGet, path, params.values(), opts)
}

func (c *platIftarAPIClient) doJSON(ctx context.Context, method, path string, query url.Values, in, out any, opts []RequestOption) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	resp, data, err := c.send(ctx, method, path, query, body, opts)
	if err != nil {
		return resp, err
	}
	if out == nil || len(data) == 0 {
		return resp, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return resp, fmt.Errorf("decoding response: %w", err)
	}
	return resp, nil
}

func (c *platIftarAPIClient) doRaw(ctx context.Context, method, path string, query url.Values, opts []RequestOption) (*http.Response, []byte, error) {
	resp, data, err := c.send(ctx, method, path, query, nil, opts)
	if err != nil {
		return resp, nil, err
	}
	return resp, data, nil
}

func (c *platIftarAPIClient) send(ctx context.Context, method, path string, query url.Values, body io.Reader, opts []RequestOption) (*http.Response, []byte, error) {
	ro := &requestOptions{headers: http.Header{}, query: url.Values{}}
	for k, vs := range query {
		ro.query[k] = vs
	}
	for _, opt := range opts {
		opt(ro)
	}

	u := c.baseURL + path
	if len(ro.query) > 0 {
		u += "?" + ro.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range ro.headers {
		req.Header[k] = vs
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode >= 300 {
		apiErr := &ErrorModel{Status: resp.StatusCode, Title: http.StatusText(resp.StatusCode)}
		_ = json.Unmarshal(data, apiErr)
		return resp, data, apiErr
	}
	return resp, data, nil
}

func setString(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func setInt(q url.Values, key string, value int) {
	if value != 0 {
		q.Set(key, strconv.Itoa(value))
	}
}
