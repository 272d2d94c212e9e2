package httpcontroller

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutriscan/arnutri-go/internal/compare"
	"github.com/nutriscan/arnutri-go/internal/conf"
	"github.com/nutriscan/arnutri-go/internal/errors"
	"github.com/nutriscan/arnutri-go/internal/notification"
	"github.com/nutriscan/arnutri-go/internal/offacts"
	"github.com/nutriscan/arnutri-go/internal/orientation"
	"github.com/nutriscan/arnutri-go/internal/panel"
	"github.com/nutriscan/arnutri-go/internal/resolver"
	"github.com/nutriscan/arnutri-go/internal/scanner"
	"github.com/nutriscan/arnutri-go/internal/vision"
)

type scriptedRemote struct {
	product *offacts.Product
	err     error
}

func (r *scriptedRemote) GetByCode(ctx context.Context, code string) (*offacts.Product, error) {
	return r.product, r.err
}

func (r *scriptedRemote) SearchByText(ctx context.Context, term string) (*offacts.Product, error) {
	return r.product, r.err
}

func foundRemote() *scriptedRemote {
	return &scriptedRemote{product: &offacts.Product{
		Code:        "737628064502",
		ProductName: "Coca-Cola",
	}}
}

func notFoundRemote() *scriptedRemote {
	return &scriptedRemote{err: errors.Newf("product not found").
		Category(errors.CategoryProductNotFound).
		Component("offacts").
		Build()}
}

func testSettings() *conf.Settings {
	return &conf.Settings{
		Scanner: conf.ScannerSettings{
			RearmDelay:   20 * time.Millisecond,
			RearmOnError: 10 * time.Millisecond,
			Vision: conf.VisionSettings{
				Enabled:      true,
				CaptureEvery: time.Second,
				MinInterval:  time.Millisecond,
			},
		},
		Display: conf.DisplaySettings{
			Mode:          "screen",
			ViewportW:     1280,
			ViewportH:     720,
			Panel:         conf.PanelSettings{Width: 300, Height: 390},
			Margin:        10,
			Jitter:        50,
			VerticalRatio: 0.4,
		},
		Orientation: conf.OrientationSettings{
			Sensitivity:    2.5,
			NoiseThreshold: 0.5,
		},
		Compare: conf.CompareSettings{
			Scale:     0.85,
			RowHeight: 330,
			TopOffset: 100,
		},
		WebServer: conf.WebServerSettings{
			Enabled: true,
			Port:    "8080",
		},
	}
}

func newTestServer(t *testing.T, remote resolver.RemoteLookup) *Server {
	t.Helper()

	settings := testSettings()

	registry := panel.NewRegistry(nil)
	host := panel.NewScreenHost(&settings.Display, 1)
	placement := panel.NewPlacement(host, registry)
	res := resolver.New(resolver.NewProductCache(), remote, nil)

	notifications := notification.NewService(notification.DefaultServiceConfig())
	t.Cleanup(notifications.Stop)

	sc := scanner.New(&settings.Scanner, res, placement, notifications, nil, nil)
	t.Cleanup(sc.Stop)

	tracker := orientation.NewTracker(&settings.Orientation, registry, host, nil)
	engine := compare.NewEngine(&settings.Compare, registry, host, notifications, nil)
	coordinator := vision.NewCoordinator(&settings.Scanner.Vision, nil, sc, notifications, nil)

	return New(settings, sc, registry, host, tracker, engine, coordinator, notifications)
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echoHeaderContentType, "application/json")
	} else {
		req = httptest.NewRequest(method, path, http.NoBody)
	}
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

const echoHeaderContentType = "Content-Type"

func decodeScan(t *testing.T, rec *httptest.ResponseRecorder) scanResponse {
	t.Helper()
	var resp scanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, foundRemote())
	rec := doJSON(t, s, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestScanEndpointPlacesPanel(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, foundRemote())

	rec := doJSON(t, s, http.MethodPost, "/api/v1/scan", `{"code":"737628064502"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeScan(t, rec)
	require.NotNil(t, resp.Panel)
	assert.Equal(t, "Coca-Cola", resp.Panel.Record.Title)
	assert.Equal(t, string(scanner.StateRearming), resp.State)

	// The gate is closed until the re-arm timer fires.
	rec = doJSON(t, s, http.MethodPost, "/api/v1/scan", `{"code":"737628064502"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestScanEndpointRequiresCode(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, foundRemote())
	rec := doJSON(t, s, http.MethodPost, "/api/v1/scan", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScanEndpointUnknownBarcode(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, notFoundRemote())
	rec := doJSON(t, s, http.MethodPost, "/api/v1/scan", `{"code":"000"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeScan(t, rec)
	assert.Nil(t, resp.Panel)
}

func TestSearchEndpoint(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, foundRemote())
	rec := doJSON(t, s, http.MethodPost, "/api/v1/search", `{"term":"Coca-Cola, soft drink"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeScan(t, rec)
	require.NotNil(t, resp.Panel)
	assert.Equal(t, "Coca-Cola", resp.Panel.Record.Title)

	rec = doJSON(t, s, http.MethodPost, "/api/v1/search", `{"term":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPanelLifecycleEndpoints(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, foundRemote())

	first := decodeScan(t, doJSON(t, s, http.MethodPost, "/api/v1/search", `{"term":"cola"}`))
	second := decodeScan(t, doJSON(t, s, http.MethodPost, "/api/v1/search", `{"term":"water"}`))
	require.NotNil(t, first.Panel)
	require.NotNil(t, second.Panel)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/panels", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list panelsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Panels, 2)
	assert.False(t, list.ComparisonActive)

	id := strconv.FormatInt(first.Panel.ID, 10)

	rec = doJSON(t, s, http.MethodPost, "/api/v1/panels/"+id+"/front", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/v1/panels/"+id+"/position", `{"left":400,"top":200}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var moved panel.Panel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &moved))
	require.NotNil(t, moved.Position.Screen)
	assert.Equal(t, 400.0, moved.Position.Screen.Left)

	// Drag positions are clamped to the viewport.
	rec = doJSON(t, s, http.MethodPost, "/api/v1/panels/"+id+"/position", `{"left":-500,"top":99999}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &moved))
	assert.Equal(t, 10.0, moved.Position.Screen.Left)

	rec = doJSON(t, s, http.MethodDelete, "/api/v1/panels/"+id, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodDelete, "/api/v1/panels/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, s, http.MethodDelete, "/api/v1/panels", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/panels", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list.Panels)
}

func TestViewportEndpoint(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, foundRemote())

	rec := doJSON(t, s, http.MethodPost, "/api/v1/viewport", `{"width":375,"height":667}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	w, h := s.ScreenHost.Viewport()
	assert.Equal(t, 375.0, w)
	assert.Equal(t, 667.0, h)

	rec = doJSON(t, s, http.MethodPost, "/api/v1/viewport", `{"width":0,"height":667}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrientationEndpoints(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, foundRemote())

	rec := doJSON(t, s, http.MethodPost, "/api/v1/orientation", `{"action":"require_permission"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), string(orientation.StateAwaitingPermission))

	rec = doJSON(t, s, http.MethodPost, "/api/v1/orientation", `{"action":"grant"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), string(orientation.StateActive))

	// Granting twice is an invalid transition.
	rec = doJSON(t, s, http.MethodPost, "/api/v1/orientation", `{"action":"grant"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// The first sample only seeds the baseline.
	rec = doJSON(t, s, http.MethodPost, "/api/v1/orientation", `{"sample":{"alpha":0,"beta":10,"gamma":5}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp orientationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Moved)

	rec = doJSON(t, s, http.MethodPost, "/api/v1/orientation", `{"action":"fly"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompareEndpoints(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, foundRemote())

	// Fewer than two panels cannot be compared.
	rec := doJSON(t, s, http.MethodPost, "/api/v1/compare", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	first := decodeScan(t, doJSON(t, s, http.MethodPost, "/api/v1/search", `{"term":"cola"}`))
	decodeScan(t, doJSON(t, s, http.MethodPost, "/api/v1/search", `{"term":"water"}`))

	rec = doJSON(t, s, http.MethodPost, "/api/v1/compare", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list panelsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.True(t, list.ComparisonActive)

	// Drag moves are suppressed while the grid owns positions.
	id := strconv.FormatInt(first.Panel.ID, 10)
	rec = doJSON(t, s, http.MethodPost, "/api/v1/panels/"+id+"/position", `{"left":50,"top":50}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, s, http.MethodDelete, "/api/v1/compare", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.False(t, list.ComparisonActive)
}

func TestVisionModeEndpoint(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, foundRemote())

	rec := doJSON(t, s, http.MethodPost, "/api/v1/vision", `{"enabled":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"enabled":true`)

	// Barcode detections are dropped while vision mode owns the camera.
	rec = doJSON(t, s, http.MethodPost, "/api/v1/scan", `{"code":"737628064502"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/v1/vision", `{"enabled":false}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/v1/scan", `{"code":"737628064502"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecognizeEndpoint(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, foundRemote())

	body := `{"manual":true,"predictions":[{"class_name":"desk","probability":0.9},{"class_name":"soda bottle","probability":0.7}]}`
	rec := doJSON(t, s, http.MethodPost, "/api/v1/vision/recognize", body)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeScan(t, rec)
	require.NotNil(t, resp.Panel)
	assert.Equal(t, "Coca-Cola", resp.Panel.Record.Title)

	// No food prediction yields no panel.
	body = `{"manual":true,"predictions":[{"class_name":"keyboard","probability":0.9}]}`
	rec = doJSON(t, s, http.MethodPost, "/api/v1/vision/recognize", body)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeScan(t, rec)
	assert.Nil(t, resp.Panel)
}

func TestNotificationsEndpoint(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, foundRemote())
	s.Notifications.Info("Session", "Scanner ready")

	rec := doJSON(t, s, http.MethodGet, "/api/v1/notifications", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Scanner ready")

	rec = doJSON(t, s, http.MethodGet, "/api/v1/notifications?limit=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEventsStream(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, foundRemote())

	srv := httptest.NewServer(s.Echo)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/events", http.NoBody)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream"))

	reader := bufio.NewReader(resp.Body)

	// The connected event arrives before anything else.
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: connected", strings.TrimSpace(line))

	// Trigger a broadcast and wait for it on the stream.
	s.Notifications.Info("Session", "stream test")

	sawNotification := false
	for !sawNotification {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if strings.TrimSpace(line) == "event: notification" {
			sawNotification = true
		}
	}

	data, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, data, "stream test")
}
