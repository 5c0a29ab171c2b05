package api_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/lox/sunspots/internal/api"
	"github.com/lox/sunspots/internal/forecast"
	"github.com/lox/sunspots/internal/store"

	_ "modernc.org/sqlite"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	s := store.New(db)
	if err := s.Migrate(); err != nil {
		t.Fatal(err)
	}
	return s
}

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func sunspotsCSV() string {
	var b strings.Builder
	b.WriteString("YEAR,SUNACTIVITY\n")
	for y := 1700; y <= 2008; y++ {
		fmt.Fprintf(&b, "%d.0,%.1f\n", y, 60+50*math.Sin(2*math.Pi*float64(y)/11))
	}
	return b.String()
}

func linearProphetCSV(from, to int) string {
	var b strings.Builder
	b.WriteString("ds,y\n")
	for y := from; y <= to; y++ {
		fmt.Fprintf(&b, "%d-01-01,%g\n", y, 2*float64(y-from)+50)
	}
	return b.String()
}

type fakeGenerator struct {
	calls atomic.Int32
	err   error
}

func (g *fakeGenerator) Generate(ctx context.Context, phase forecast.SolarPhase) ([]byte, error) {
	g.calls.Add(1)
	if g.err != nil {
		return nil, g.err
	}
	return []byte("banner-" + string(phase)), nil
}

func newTestServer(t *testing.T, st *store.Store, gen api.BannerGenerator) *api.Server {
	t.Helper()
	return api.NewServer(st, api.Config{
		DataPath:     writeFixture(t, "sunspots.csv", sunspotsCSV()),
		ForecastPath: writeFixture(t, "sunspots_for_prophet.csv", linearProphetCSV(1999, 2008)),
		ImageDir:     t.TempDir(),
		Generator:    gen,
	})
}

func get(t *testing.T, srv *api.Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", target, nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, setupTestStore(t), nil)

	w := get(t, srv, "/health")
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `"status"`) {
		t.Error("expected status field in JSON response")
	}
	if !strings.Contains(body, `"schema_version"`) {
		t.Error("expected schema_version with a store configured")
	}
}

func TestIndexPage_Defaults(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil, nil)

	w := get(t, srv, "/")
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		`id="describe-chart"`,
		`name="bins"`,
		`value="38"`,
		`1764-1928`,
		`year_min=1764`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in index page", want)
		}
	}
	if strings.Contains(body, `id="error-panel"`) {
		t.Error("unexpected error panel")
	}
}

func TestIndexPage_EmptyRangeShowsWarning(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "short.csv")
	if err := os.WriteFile(path, []byte("YEAR,SUNACTIVITY\n1700,5\n1701,6\n"), 0644); err != nil {
		t.Fatal(err)
	}
	srv := api.NewServer(nil, api.Config{DataPath: path, ImageDir: t.TempDir()})

	w := get(t, srv, "/?year_min=1900&year_max=1950")
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `id="warning-panel"`) {
		t.Error("expected warning panel")
	}
	if strings.Contains(body, `id="describe-chart"`) {
		t.Error("expected no chart for an empty range")
	}

	w = get(t, srv, "/api/describe?year_min=1900&year_max=1950")
	if w.Code != http.StatusNotFound {
		t.Errorf("api/describe empty range: expected 404, got %d", w.Code)
	}
}

func TestIndexPage_MissingFileShowsErrorWithHint(t *testing.T) {
	t.Parallel()
	srv := api.NewServer(nil, api.Config{
		DataPath: filepath.Join(t.TempDir(), "missing.csv"),
		ImageDir: t.TempDir(),
	})

	w := get(t, srv, "/")
	body := w.Body.String()
	if !strings.Contains(body, `id="error-panel"`) {
		t.Fatal("expected error panel")
	}
	if !strings.Contains(body, "SUNACTIVITY") {
		t.Error("expected hint naming the expected columns")
	}

	w = get(t, srv, "/api/describe")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
	var panel api.Panel
	if err := json.NewDecoder(w.Body).Decode(&panel); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if panel.Hint == "" {
		t.Error("expected hint in JSON error")
	}
}

func TestAPIDescribe_YearRange(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil, nil)

	w := get(t, srv, "/api/describe?year_min=1900&year_max=1905&bins=500&degree=9")
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var views struct {
		Rows   int `json:"rows"`
		Config struct {
			YearMin     int
			YearMax     int
			HistBins    int
			TrendDegree int
		} `json:"config"`
		Box *struct {
			Summary struct {
				Count int `json:"count"`
			} `json:"summary"`
		} `json:"box"`
		Trend *struct {
			Degree int `json:"degree"`
		} `json:"trend"`
	}
	if err := json.NewDecoder(w.Body).Decode(&views); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if views.Rows != 6 {
		t.Errorf("rows = %d, want 6", views.Rows)
	}
	if views.Config.HistBins != 100 {
		t.Errorf("bins = %d, want clamped 100", views.Config.HistBins)
	}
	if views.Config.TrendDegree != 5 {
		t.Errorf("degree = %d, want clamped 5", views.Config.TrendDegree)
	}
	if views.Box == nil || views.Box.Summary.Count != 6 {
		t.Errorf("box = %+v, want 6 values", views.Box)
	}
	if views.Trend == nil || views.Trend.Degree != 5 {
		t.Errorf("trend = %+v, want degree 5", views.Trend)
	}
}

func TestAPIObservations(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "gaps.csv")
	if err := os.WriteFile(path, []byte("YEAR,SUNACTIVITY\n1700,5\n1701,\n1702,10\n"), 0644); err != nil {
		t.Fatal(err)
	}
	srv := api.NewServer(nil, api.Config{DataPath: path, ImageDir: t.TempDir()})

	w := get(t, srv, "/api/observations?year_min=1700&year_max=1702")
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var obs []api.ObservationJSON
	if err := json.NewDecoder(w.Body).Decode(&obs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(obs) != 3 {
		t.Fatalf("got %d observations, want 3", len(obs))
	}
	if obs[1].Activity != nil {
		t.Errorf("1701 activity = %v, want null", *obs[1].Activity)
	}
	if obs[2].Year != 1702 || obs[2].Activity == nil || *obs[2].Activity != 10 {
		t.Errorf("1702 = %+v", obs[2])
	}

	if w := get(t, srv, "/api/observations?column=NOPE"); w.Code != http.StatusBadRequest {
		t.Errorf("unknown column: expected 400, got %d", w.Code)
	}
}

func TestDescribeChart(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil, nil)

	w := get(t, srv, "/charts/describe.png?year_min=1800&year_max=1900")
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	if _, err := png.Decode(bytes.NewReader(w.Body.Bytes())); err != nil {
		t.Errorf("decode png: %v", err)
	}
}

func TestAPIForecast_TenYears(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil, nil)

	w := get(t, srv, "/api/forecast")
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var res struct {
		History   int               `json:"history_rows"`
		Forecast  []json.RawMessage `json:"forecast"`
		Residuals []struct {
			Residual float64 `json:"residual"`
		} `json:"residuals"`
		Summary struct {
			Count int      `json:"count"`
			Mean  *float64 `json:"mean"`
		} `json:"summary"`
	}
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.History != 10 {
		t.Errorf("history = %d, want 10", res.History)
	}
	if len(res.Forecast) != 40 {
		t.Errorf("forecast rows = %d, want 40", len(res.Forecast))
	}
	if len(res.Residuals) != 10 || res.Summary.Count != 10 {
		t.Errorf("residuals = %d, count = %d, want 10", len(res.Residuals), res.Summary.Count)
	}
	if res.Summary.Mean == nil || math.Abs(*res.Summary.Mean) > 1e-6 {
		t.Errorf("mean = %v, want ~0", res.Summary.Mean)
	}
}

func TestAPIForecastSummary(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil, nil)

	w := get(t, srv, "/api/forecast/summary")
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp api.SummaryResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	labels := make([]string, len(resp.Rows))
	for i, r := range resp.Rows {
		labels[i] = r.Label
	}
	if got := strings.Join(labels, ","); got != "count,mean,std,min,25%,50%,75%,max" {
		t.Errorf("labels = %s", got)
	}
	if resp.Rows[0].Value == nil || *resp.Rows[0].Value != 10 {
		t.Errorf("count = %v, want 10", resp.Rows[0].Value)
	}
}

func TestForecast_MissingColumns(t *testing.T) {
	t.Parallel()
	srv := api.NewServer(nil, api.Config{
		ForecastPath: writeFixture(t, "wrong.csv", sunspotsCSV()),
		ImageDir:     t.TempDir(),
	})

	w := get(t, srv, "/api/forecast")
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", w.Code)
	}

	w = get(t, srv, "/forecast")
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `id="error-panel"`) {
		t.Error("expected error panel on forecast page")
	}
}

func TestForecastPageAndCharts(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, setupTestStore(t), nil)

	w := get(t, srv, "/forecast")
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{`id="phase"`, `id="future"`, `Record this run`, `2038`} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q on forecast page", want)
		}
	}

	for _, path := range []string{"/charts/forecast.png", "/charts/components.png", "/charts/residuals.png"} {
		w := get(t, srv, path)
		if w.Code != 200 {
			t.Errorf("%s: expected 200, got %d", path, w.Code)
			continue
		}
		if _, err := png.Decode(bytes.NewReader(w.Body.Bytes())); err != nil {
			t.Errorf("%s: decode png: %v", path, err)
		}
	}
}

func TestExportResiduals(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil, nil)

	w := get(t, srv, "/export/residuals.xlsx")
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Header().Get("Content-Type"), "spreadsheetml") {
		t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("PK")) {
		t.Error("expected a zip container")
	}
}

func TestRecordRunAndHistory(t *testing.T) {
	t.Parallel()
	st := setupTestStore(t)
	srv := newTestServer(t, st, nil)

	w := get(t, srv, "/history")
	if !strings.Contains(w.Body.String(), `id="no-runs"`) {
		t.Error("expected empty history")
	}

	req := httptest.NewRequest("POST", "/api/forecast/runs", nil)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		ID     int64 `json:"id"`
		Points int   `json:"points"`
	}
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == 0 || created.Points != 40 {
		t.Errorf("created = %+v, want id > 0 and 40 points", created)
	}

	run, err := st.GetForecastRun(created.ID)
	if err != nil || run == nil {
		t.Fatalf("GetForecastRun: %v, %v", run, err)
	}
	if run.ResidualCount != 10 || run.Period != 11 || !run.SnapshotID.Valid {
		t.Errorf("run = %+v", run)
	}

	w = get(t, srv, "/history")
	if !strings.Contains(w.Body.String(), `id="runs"`) {
		t.Error("expected runs table")
	}

	w = get(t, srv, fmt.Sprintf("/api/forecast/runs/%d", created.ID))
	if w.Code != 200 {
		t.Fatalf("get run: expected 200, got %d", w.Code)
	}
	var detail struct {
		Points []json.RawMessage `json:"points"`
	}
	if err := json.NewDecoder(w.Body).Decode(&detail); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(detail.Points) != 40 {
		t.Errorf("points = %d, want 40", len(detail.Points))
	}

	if w := get(t, srv, "/api/forecast/runs/999"); w.Code != http.StatusNotFound {
		t.Errorf("missing run: expected 404, got %d", w.Code)
	}
}

func TestRecordRun_FormRedirects(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, setupTestStore(t), nil)

	req := httptest.NewRequest("POST", "/api/forecast/runs", strings.NewReader("redirect=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); !strings.HasPrefix(loc, "/forecast?recorded=") {
		t.Errorf("Location = %q", loc)
	}
}

func TestRecordRun_WithoutStore(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil, nil)

	req := httptest.NewRequest("POST", "/api/forecast/runs", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}

	w = get(t, srv, "/history")
	if w.Code != 200 || !strings.Contains(w.Body.String(), "disabled") {
		t.Errorf("expected disabled history page, got %d", w.Code)
	}
}

func TestBanner(t *testing.T) {
	t.Parallel()

	t.Run("no generator and empty cache", func(t *testing.T) {
		srv := newTestServer(t, nil, nil)
		if w := get(t, srv, "/banner"); w.Code != http.StatusServiceUnavailable {
			t.Errorf("expected 503, got %d", w.Code)
		}
	})

	t.Run("generates once and caches", func(t *testing.T) {
		gen := &fakeGenerator{}
		srv := newTestServer(t, nil, gen)

		for i := 0; i < 2; i++ {
			w := get(t, srv, "/banner?phase=maximum")
			if w.Code != 200 {
				t.Fatalf("request %d: expected 200, got %d", i, w.Code)
			}
			if w.Body.String() != "banner-maximum" {
				t.Errorf("body = %q", w.Body.String())
			}
		}
		if n := gen.calls.Load(); n != 1 {
			t.Errorf("generator calls = %d, want 1", n)
		}
	})

	t.Run("generation failure", func(t *testing.T) {
		srv := newTestServer(t, nil, &fakeGenerator{err: errors.New("quota")})
		if w := get(t, srv, "/banner?phase=minimum"); w.Code != http.StatusServiceUnavailable {
			t.Errorf("expected 503, got %d", w.Code)
		}
	})
}

func TestOGImage_Fallback(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil, nil)

	w := get(t, srv, "/og-image")
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 1200 || b.Dy() != 630 {
		t.Errorf("bounds = %v", b)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil, nil)
	get(t, srv, "/api/describe")

	w := get(t, srv, "/metrics")
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "sunspots_dataset_loads_total") {
		t.Error("expected dataset load metric")
	}
}

func TestUnknownPath(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil, nil)
	if w := get(t, srv, "/nope"); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
