package alpaca

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/skywatchdev/sattrack/pkg/coordinates"
	"github.com/skywatchdev/sattrack/pkg/mount"
)

// recordedCall captures one request seen by the fake Alpaca server.
type recordedCall struct {
	Method   string
	Endpoint string
	Form     map[string]string
}

// fakeServer emulates the Alpaca REST envelope for a telescope device.
type fakeServer struct {
	mu     sync.Mutex
	calls  []recordedCall
	values map[string]interface{} // GET endpoint -> Value
	errNum map[string]int         // endpoint -> ErrorNumber
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		values: map[string]interface{}{},
		errNum: map[string]int{},
	}
}

func (f *fakeServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 5 || parts[0] != "api" || parts[1] != "v1" || parts[2] != "telescope" {
			t.Errorf("unexpected path %q", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		endpoint := parts[4]

		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		if r.Form.Get("ClientID") == "" {
			t.Errorf("%s %s missing ClientID", r.Method, endpoint)
		}

		form := map[string]string{}
		for k := range r.Form {
			form[k] = r.Form.Get(k)
		}

		f.mu.Lock()
		f.calls = append(f.calls, recordedCall{Method: r.Method, Endpoint: endpoint, Form: form})
		value := f.values[endpoint]
		errNum := f.errNum[endpoint]
		f.mu.Unlock()

		resp := map[string]interface{}{
			"Value":       value,
			"ErrorNumber": errNum,
		}
		if errNum != 0 {
			resp["ErrorMessage"] = "simulated device fault"
		}
		json.NewEncoder(w).Encode(resp)
	}
}

func (f *fakeServer) callsTo(endpoint string) []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedCall
	for _, c := range f.calls {
		if c.Endpoint == endpoint {
			out = append(out, c)
		}
	}
	return out
}

func newTestClient(t *testing.T, f *fakeServer) *Client {
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, DeviceNumber: 0, MaxSlewRate: 6.0})
}

func TestSlewToAltAz(t *testing.T) {
	f := newFakeServer()
	client := newTestClient(t, f)

	err := client.SlewToAltAz(context.Background(), coordinates.Horizontal{Azimuth: 123.456789, Altitude: 45.5})
	if err != nil {
		t.Fatalf("SlewToAltAz failed: %v", err)
	}

	calls := f.callsTo("slewtoaltazasync")
	if len(calls) != 1 {
		t.Fatalf("got %d slewtoaltazasync calls, want 1", len(calls))
	}
	c := calls[0]
	if c.Method != http.MethodPut {
		t.Errorf("method = %s, want PUT", c.Method)
	}
	if c.Form["Azimuth"] != "123.456789" {
		t.Errorf("Azimuth = %q, want 123.456789", c.Form["Azimuth"])
	}
	if c.Form["Altitude"] != "45.500000" {
		t.Errorf("Altitude = %q, want 45.500000", c.Form["Altitude"])
	}
}

func TestSetRatesCommandsBothAxes(t *testing.T) {
	f := newFakeServer()
	client := newTestClient(t, f)

	if err := client.SetRates(context.Background(), 2.5, -0.75); err != nil {
		t.Fatalf("SetRates failed: %v", err)
	}

	calls := f.callsTo("moveaxis")
	if len(calls) != 2 {
		t.Fatalf("got %d moveaxis calls, want 2", len(calls))
	}
	if calls[0].Form["Axis"] != "0" || calls[0].Form["Rate"] != "2.500000" {
		t.Errorf("azimuth call = %v", calls[0].Form)
	}
	if calls[1].Form["Axis"] != "1" || calls[1].Form["Rate"] != "-0.750000" {
		t.Errorf("altitude call = %v", calls[1].Form)
	}
}

func TestSetRatesRejectsExcessiveRate(t *testing.T) {
	f := newFakeServer()
	client := newTestClient(t, f)

	err := client.SetRates(context.Background(), 12.0, 0)
	if err == nil {
		t.Fatal("SetRates accepted a rate beyond the mount limit")
	}
	if len(f.callsTo("moveaxis")) != 0 {
		t.Error("rate command reached the server despite client-side rejection")
	}
}

func TestPosition(t *testing.T) {
	f := newFakeServer()
	f.values["altitude"] = 42.25
	f.values["azimuth"] = 321.5
	client := newTestClient(t, f)

	pos, err := client.Position(context.Background())
	if err != nil {
		t.Fatalf("Position failed: %v", err)
	}
	if math.Abs(pos.Altitude-42.25) > 1e-9 || math.Abs(pos.Azimuth-321.5) > 1e-9 {
		t.Errorf("position = %+v, want alt 42.25 az 321.5", pos)
	}
}

func TestStopAxesZerosRatesThenAborts(t *testing.T) {
	f := newFakeServer()
	client := newTestClient(t, f)

	if err := client.StopAxes(context.Background()); err != nil {
		t.Fatalf("StopAxes failed: %v", err)
	}
	moves := f.callsTo("moveaxis")
	if len(moves) != 2 {
		t.Fatalf("got %d moveaxis calls, want 2", len(moves))
	}
	for _, c := range moves {
		if c.Form["Rate"] != "0.000000" {
			t.Errorf("axis %s stopped with rate %s", c.Form["Axis"], c.Form["Rate"])
		}
	}
	if len(f.callsTo("abortslew")) != 1 {
		t.Error("abortslew not issued")
	}
}

func TestDeviceErrorSurfaces(t *testing.T) {
	f := newFakeServer()
	f.errNum["tracking"] = 1035
	client := newTestClient(t, f)

	err := client.SetTracking(context.Background(), false)
	if err == nil {
		t.Fatal("SetTracking ignored a device error")
	}
	if !strings.Contains(err.Error(), "1035") {
		t.Errorf("error %q does not carry the device error number", err)
	}
}

func TestRequestTimeoutMapsToTimeoutError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		fmt.Fprint(w, `{"Value":null,"ErrorNumber":0}`)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(Config{BaseURL: srv.URL, Timeout: 20 * time.Millisecond})
	err := client.SlewToAltAz(context.Background(), coordinates.Horizontal{Azimuth: 10, Altitude: 10})

	var timeoutErr *mount.TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("error = %v, want *mount.TimeoutError", err)
	}
	if timeoutErr.Op != "slewtoaltazasync" {
		t.Errorf("Op = %q, want slewtoaltazasync", timeoutErr.Op)
	}
}
