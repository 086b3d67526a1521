// Package alpaca drives an ASCOM Alpaca telescope mount over its REST API
// and adapts it to the mount.Driver interface.
// Reference: https://ascom-standards.org/Developer/Alpaca.htm
package alpaca

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/skywatchdev/sattrack/pkg/coordinates"
	"github.com/skywatchdev/sattrack/pkg/mount"
)

const (
	// axisAzimuth and axisAltitude are the Alpaca MoveAxis axis numbers
	axisAzimuth  = 0
	axisAltitude = 1

	defaultTimeout = 10 * time.Second
)

// Config describes how to reach the mount.
type Config struct {
	// BaseURL is the Alpaca server root, e.g. "http://localhost:11111"
	BaseURL string

	// DeviceNumber selects the telescope device on the server
	DeviceNumber int

	// MaxSlewRate is the mount's axis rate limit in degrees per second.
	// Rate commands beyond it are rejected client-side. Zero disables
	// the check.
	MaxSlewRate float64

	// Timeout bounds each HTTP request; zero uses a default
	Timeout time.Duration
}

// Client is an Alpaca telescope client implementing mount.Driver.
// It is not safe for concurrent use; callers must sequence commands.
type Client struct {
	config     Config
	clientID   int
	txnCounter int64
	httpClient *http.Client
}

var _ mount.Driver = (*Client)(nil)

// NewClient creates an Alpaca client for the configured mount.
// The Alpaca specification requires each client session to carry a unique
// ClientID; the Unix timestamp serves.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		config:     cfg,
		clientID:   int(time.Now().Unix() % 2147483647),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Connect sets Connected=true on the device. Must be called before any
// other operation.
// Implements: PUT /api/v1/telescope/{device_number}/connected
func (c *Client) Connect(ctx context.Context) error {
	_, err := c.put(ctx, "connected", url.Values{"Connected": {"true"}})
	if err != nil {
		return fmt.Errorf("failed to connect to telescope: %w", err)
	}
	return nil
}

// Disconnect sets Connected=false on the device.
func (c *Client) Disconnect(ctx context.Context) error {
	_, err := c.put(ctx, "connected", url.Values{"Connected": {"false"}})
	if err != nil {
		return fmt.Errorf("failed to disconnect from telescope: %w", err)
	}
	return nil
}

// SlewToAltAz starts an asynchronous slew to the given direction. It
// returns as soon as the mount acknowledges; poll Slewing for completion.
// Implements: PUT /api/v1/telescope/{device_number}/slewtoaltazasync
func (c *Client) SlewToAltAz(ctx context.Context, target coordinates.Horizontal) error {
	params := url.Values{
		"Azimuth":  {fmt.Sprintf("%.6f", coordinates.NormalizeAzimuth(target.Azimuth))},
		"Altitude": {fmt.Sprintf("%.6f", target.Altitude)},
	}
	_, err := c.put(ctx, "slewtoaltazasync", params)
	if err != nil {
		return fmt.Errorf("failed to slew telescope: %w", err)
	}
	return nil
}

// Slewing reports whether a commanded slew is still in progress.
// Implements: GET /api/v1/telescope/{device_number}/slewing
func (c *Client) Slewing(ctx context.Context) (bool, error) {
	return c.getBool(ctx, "slewing")
}

// SetRates commands continuous motion on both axes in degrees per second.
// Implements: PUT /api/v1/telescope/{device_number}/moveaxis
func (c *Client) SetRates(ctx context.Context, azRate, altRate float64) error {
	if err := c.moveAxis(ctx, axisAzimuth, azRate); err != nil {
		return fmt.Errorf("failed to set azimuth rate: %w", err)
	}
	if err := c.moveAxis(ctx, axisAltitude, altRate); err != nil {
		return fmt.Errorf("failed to set altitude rate: %w", err)
	}
	return nil
}

func (c *Client) moveAxis(ctx context.Context, axis int, rate float64) error {
	if max := c.config.MaxSlewRate; max > 0 && (rate > max || rate < -max) {
		return fmt.Errorf("rate %.2f exceeds mount limit %.2f deg/sec", rate, max)
	}
	params := url.Values{
		"Axis": {strconv.Itoa(axis)},
		"Rate": {fmt.Sprintf("%.6f", rate)},
	}
	_, err := c.put(ctx, "moveaxis", params)
	return err
}

// Position reads the mount's current pointing direction.
// Implements: GET /api/v1/telescope/{device_number}/altitude and /azimuth
func (c *Client) Position(ctx context.Context) (coordinates.Horizontal, error) {
	alt, err := c.getFloat64(ctx, "altitude")
	if err != nil {
		return coordinates.Horizontal{}, fmt.Errorf("failed to get altitude: %w", err)
	}
	az, err := c.getFloat64(ctx, "azimuth")
	if err != nil {
		return coordinates.Horizontal{}, fmt.Errorf("failed to get azimuth: %w", err)
	}
	return coordinates.Horizontal{Azimuth: coordinates.NormalizeAzimuth(az), Altitude: alt}, nil
}

// StopAxes halts motion by zeroing both axis rates, then aborts any
// outstanding slew.
func (c *Client) StopAxes(ctx context.Context) error {
	if err := c.moveAxis(ctx, axisAzimuth, 0); err != nil {
		return fmt.Errorf("failed to stop azimuth axis: %w", err)
	}
	if err := c.moveAxis(ctx, axisAltitude, 0); err != nil {
		return fmt.Errorf("failed to stop altitude axis: %w", err)
	}
	if _, err := c.put(ctx, "abortslew", nil); err != nil {
		return fmt.Errorf("failed to abort slew: %w", err)
	}
	return nil
}

// Tracking reports whether built-in tracking is enabled.
// Implements: GET /api/v1/telescope/{device_number}/tracking
func (c *Client) Tracking(ctx context.Context) (bool, error) {
	return c.getBool(ctx, "tracking")
}

// SetTracking enables or disables the mount's built-in tracking.
// Implements: PUT /api/v1/telescope/{device_number}/tracking
func (c *Client) SetTracking(ctx context.Context, enabled bool) error {
	_, err := c.put(ctx, "tracking", url.Values{"Tracking": {strconv.FormatBool(enabled)}})
	if err != nil {
		return fmt.Errorf("failed to set tracking: %w", err)
	}
	return nil
}

// SetLocation programs the mount's site coordinates in degrees.
// Implements: PUT sitelatitude and sitelongitude
func (c *Client) SetLocation(ctx context.Context, latitude, longitude float64) error {
	if _, err := c.put(ctx, "sitelatitude", url.Values{"SiteLatitude": {fmt.Sprintf("%.6f", latitude)}}); err != nil {
		return fmt.Errorf("failed to set site latitude: %w", err)
	}
	if _, err := c.put(ctx, "sitelongitude", url.Values{"SiteLongitude": {fmt.Sprintf("%.6f", longitude)}}); err != nil {
		return fmt.Errorf("failed to set site longitude: %w", err)
	}
	return nil
}

// SetUTCDate programs the mount's clock.
// Implements: PUT /api/v1/telescope/{device_number}/utcdate
func (c *Client) SetUTCDate(ctx context.Context, t time.Time) error {
	params := url.Values{
		"UTCDate": {t.UTC().Format("2006-01-02T15:04:05.00Z")},
	}
	if _, err := c.put(ctx, "utcdate", params); err != nil {
		return fmt.Errorf("failed to set UTC date: %w", err)
	}
	return nil
}

// getTransactionID generates a unique transaction ID for each API call.
// Alpaca requires transaction IDs to fit in a 32-bit signed integer.
func (c *Client) getTransactionID() int {
	return int(atomic.AddInt64(&c.txnCounter, 1) % 2147483647)
}

// get performs an HTTP GET request to an Alpaca endpoint.
func (c *Client) get(ctx context.Context, endpoint string) (*alpacaResponse, error) {
	apiURL := fmt.Sprintf("%s/api/v1/telescope/%d/%s",
		c.config.BaseURL, c.config.DeviceNumber, endpoint)

	params := url.Values{}
	params.Add("ClientID", strconv.Itoa(c.clientID))
	params.Add("ClientTransactionID", strconv.Itoa(c.getTransactionID()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s?%s", apiURL, params.Encode()), nil)
	if err != nil {
		return nil, err
	}

	return c.do(req, endpoint)
}

// put performs an HTTP PUT request to an Alpaca endpoint with
// form-encoded parameters.
func (c *Client) put(ctx context.Context, endpoint string, params url.Values) (*alpacaResponse, error) {
	apiURL := fmt.Sprintf("%s/api/v1/telescope/%d/%s",
		c.config.BaseURL, c.config.DeviceNumber, endpoint)

	if params == nil {
		params = url.Values{}
	}
	params.Set("ClientID", strconv.Itoa(c.clientID))
	params.Set("ClientTransactionID", strconv.Itoa(c.getTransactionID()))

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, apiURL, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(req, endpoint)
}

func (c *Client) do(req *http.Request, endpoint string) (*alpacaResponse, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// A request-level timeout means the mount never acknowledged.
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, &mount.TimeoutError{Op: endpoint, Grace: c.httpClient.Timeout}
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	// Some servers return no content on success.
	if len(body) == 0 {
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return &alpacaResponse{}, nil
		}
		return nil, fmt.Errorf("empty response with status %d", resp.StatusCode)
	}

	var alpacaResp alpacaResponse
	if err := json.Unmarshal(body, &alpacaResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if err := alpacaResp.Error(); err != nil {
		return nil, err
	}

	return &alpacaResp, nil
}

func (c *Client) getBool(ctx context.Context, endpoint string) (bool, error) {
	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return false, fmt.Errorf("failed to get %s: %w", endpoint, err)
	}
	value, ok := resp.Value.(bool)
	if !ok {
		return false, fmt.Errorf("unexpected response type for %s", endpoint)
	}
	return value, nil
}

func (c *Client) getFloat64(ctx context.Context, endpoint string) (float64, error) {
	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return 0, err
	}
	value, ok := resp.Value.(float64)
	if !ok {
		return 0, fmt.Errorf("unexpected response type for %s: %T", endpoint, resp.Value)
	}
	return value, nil
}

// alpacaResponse represents the standard Alpaca API response envelope.
type alpacaResponse struct {
	// Value contains the response data (type varies by endpoint)
	Value interface{} `json:"Value"`

	// ClientTransactionID echoes back the client's transaction ID
	ClientTransactionID int `json:"ClientTransactionID"`

	// ServerTransactionID is the server's transaction ID
	ServerTransactionID int `json:"ServerTransactionID"`

	// ErrorNumber is non-zero if an error occurred
	ErrorNumber int `json:"ErrorNumber"`

	// ErrorMessage describes the error if ErrorNumber is non-zero
	ErrorMessage string `json:"ErrorMessage"`
}

// Error returns an error if the Alpaca response indicates failure.
func (r *alpacaResponse) Error() error {
	if r.ErrorNumber != 0 {
		return fmt.Errorf("alpaca error %d: %s", r.ErrorNumber, r.ErrorMessage)
	}
	return nil
}
