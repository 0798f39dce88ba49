package test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/398ja/cashu-recovery/internal/config"
	"github.com/398ja/cashu-recovery/internal/simulator"
	"github.com/398ja/cashu-recovery/internal/simulator/router"
)

// TestMnemonic is the wallet every test recovers. Generated for tests, holds
// nothing anywhere real.
const TestMnemonic = "half depart obvious quality work element tank gorilla view sugar picture humble"

// TestSimulatorSeed pins the simulator's keyset IDs across test runs.
const TestSimulatorSeed = "6d79207465737420736565642c206e6f74207265616c206d6f6e657921212121"

// SimConfig returns the configuration tests run the simulator with: fixed
// seed, in-memory ledger.
func SimConfig() config.Service {
	cfg := config.DefaultServiceConfigFromEnv()
	cfg.Simulator.Seed = TestSimulatorSeed
	cfg.Simulator.DatabasePath = ""
	cfg.Simulator.Unit = "sat"
	cfg.Simulator.SignAll = false
	return cfg
}

// WithSimServer runs fn against a fully routed simulator with the default
// test configuration. Requests go through PerformRequest, no listener is
// bound.
func WithSimServer(t *testing.T, fn func(s *simulator.Server)) {
	t.Helper()
	WithSimServerConfigurable(t, SimConfig(), fn)
}

// WithSimServerConfigurable is WithSimServer with a caller-supplied
// configuration.
func WithSimServerConfigurable(t *testing.T, cfg config.Service, fn func(s *simulator.Server)) {
	t.Helper()

	s, err := simulator.NewServer(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Mint.Close())
	})

	router.Init(s)
	fn(s)
}

// WithRunningSimServer additionally binds the simulator to a local listener
// and hands fn its base URL, for tests that drive a real HTTP client.
func WithRunningSimServer(t *testing.T, fn func(s *simulator.Server, baseURL string)) {
	t.Helper()

	WithSimServerConfigurable(t, SimConfig(), func(s *simulator.Server) {
		srv := httptest.NewServer(s.Echo)
		t.Cleanup(srv.Close)
		fn(s, srv.URL)
	})
}

// PerformRequest routes one request through the server and returns the
// recorded response. A non-nil body is sent as JSON.
func PerformRequest(t *testing.T, s *simulator.Server, method string, path string, body interface{}, headers http.Header) *httptest.ResponseRecorder {
	t.Helper()

	if body == nil {
		return PerformRequestWithRawBody(t, s, method, path, nil, headers)
	}

	b, err := json.Marshal(body)
	require.NoError(t, err)
	return PerformRequestWithRawBody(t, s, method, path, bytes.NewReader(b), headers)
}

// PerformRequestWithRawBody is PerformRequest for callers that bring their
// own encoding.
func PerformRequestWithRawBody(t *testing.T, s *simulator.Server, method string, path string, body io.Reader, headers http.Header) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	if headers != nil {
		req.Header = headers
	}
	if body != nil && req.Header.Get(echo.HeaderContentType) == "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}

	res := httptest.NewRecorder()
	s.Echo.ServeHTTP(res, req)
	return res
}

// ParseResponseBody decodes a recorded JSON response into v.
func ParseResponseBody(t *testing.T, res *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), v))
}

// RequireErrorResponse asserts status and protocol error code of a recorded
// rejection.
func RequireErrorResponse(t *testing.T, res *httptest.ResponseRecorder, status int, code int) {
	t.Helper()

	require.Equal(t, status, res.Code)

	var body struct {
		Detail string `json:"detail"`
		Code   int    `json:"code"`
	}
	ParseResponseBody(t, res, &body)
	require.Equal(t, code, body.Code)
}
