package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"chart-race/internal/config"
	"chart-race/internal/models"
	"chart-race/internal/race"
	"chart-race/internal/scheduler"
	"chart-race/internal/series"
)

func testTracks() []models.Track {
	mk := func(name string, year int, pop float64) models.Track {
		return models.Track{TrackName: name, ReleaseDate: time.Date(year, 3, 1, 0, 0, 0, 0, time.UTC), Popularity: pop}
	}
	return []models.Track{
		mk("Venom", 2018, 77),
		mk("Lucky You", 2018, 70),
		mk("Godzilla", 2020, 81),
		mk("Venom", 2020, 60),
	}
}

type testEnv struct {
	srv    *Server
	seq    *race.Sequencer
	db     *gorm.DB
	cancel context.CancelFunc
}

func setup(t *testing.T, secret string) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	db.AutoMigrate(&models.Track{}, &models.PlayThrough{})

	tracks := testTracks()
	seq := race.New(tracks, nil, race.WithClock(scheduler.NewMockClock(time.Unix(0, 0))))
	ctx, cancel := context.WithCancel(context.Background())
	go seq.Run(ctx)
	t.Cleanup(cancel)

	var cfg config.Config
	cfg.Server.JWTSecret = secret

	srv := New(&cfg, Deps{
		DB:     db,
		Race:   seq,
		Series: series.Build(tracks, series.DefaultLayout()),
	})
	return &testEnv{srv: srv, seq: seq, db: db, cancel: cancel}
}

func (e *testEnv) do(t *testing.T, method, path, token string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)

	var body map[string]any
	json.Unmarshal(w.Body.Bytes(), &body)
	return w.Code, body
}

func stateLabel(body map[string]any) string {
	st, _ := body["state"].(map[string]any)
	label, _ := st["label"].(string)
	return label
}

func TestHealth(t *testing.T) {
	env := setup(t, "")
	code, body := env.do(t, http.MethodGet, "/health", "")
	if code != http.StatusOK || body["status"] != "ok" {
		t.Errorf("health = %d %v", code, body)
	}
}

func TestStateAndControl(t *testing.T) {
	env := setup(t, "")

	code, body := env.do(t, http.MethodGet, "/api/v1/state", "")
	if code != http.StatusOK || stateLabel(body) != "Play" {
		t.Fatalf("initial state = %d %v", code, body)
	}
	if body["year_count"] != float64(2) {
		t.Errorf("year_count = %v", body["year_count"])
	}

	code, body = env.do(t, http.MethodPost, "/api/v1/control/toggle", "")
	if code != http.StatusOK || stateLabel(body) != "Pause" {
		t.Fatalf("toggle = %d %v", code, body)
	}

	_, body = env.do(t, http.MethodGet, "/api/v1/state", "")
	if stateLabel(body) != "Pause" || body["year"] != float64(2018) {
		t.Errorf("state after toggle = %v", body)
	}

	code, body = env.do(t, http.MethodPost, "/api/v1/control/pause", "")
	if code != http.StatusOK || stateLabel(body) != "Play" {
		t.Errorf("pause = %d %v", code, body)
	}

	if code, _ := env.do(t, http.MethodPost, "/api/v1/control/rewind", ""); code != http.StatusBadRequest {
		t.Errorf("unknown command = %d, want 400", code)
	}
}

func TestControlWhenStopped(t *testing.T) {
	env := setup(t, "")
	env.cancel()

	deadline := time.Now().Add(2 * time.Second)
	for {
		code, _ := env.do(t, http.MethodPost, "/api/v1/control/play", "")
		if code == http.StatusServiceUnavailable {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("control on a stopped race = %d, want 503", code)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestFrames(t *testing.T) {
	env := setup(t, "")

	code, body := env.do(t, http.MethodGet, "/api/v1/frames/1", "")
	if code != http.StatusOK {
		t.Fatalf("frame 1 = %d", code)
	}
	if body["year"] != float64(2020) {
		t.Errorf("year = %v", body["year"])
	}
	bars, _ := body["bars"].([]any)
	if len(bars) != 2 {
		t.Fatalf("bars = %v", bars)
	}
	first, _ := bars[0].(map[string]any)
	if first["track_name"] != "Godzilla" {
		t.Errorf("top bar = %v", first)
	}
	if enter, _ := body["enter"].([]any); len(enter) != 1 || enter[0] != "Godzilla" {
		t.Errorf("enter = %v", body["enter"])
	}
	if exit, _ := body["exit"].([]any); len(exit) != 1 || exit[0] != "Lucky You" {
		t.Errorf("exit = %v", body["exit"])
	}

	tests := []struct {
		path string
		want int
	}{
		{"/api/v1/frames/0", http.StatusOK},
		{"/api/v1/frames/2", http.StatusNotFound},
		{"/api/v1/frames/-1", http.StatusNotFound},
		{"/api/v1/frames/first", http.StatusBadRequest},
	}
	for _, tt := range tests {
		if code, _ := env.do(t, http.MethodGet, tt.path, ""); code != tt.want {
			t.Errorf("GET %s = %d, want %d", tt.path, code, tt.want)
		}
	}
}

func TestYearsSeriesAndSchema(t *testing.T) {
	env := setup(t, "")

	_, body := env.do(t, http.MethodGet, "/api/v1/years", "")
	years, _ := body["data"].([]any)
	if len(years) != 2 || years[0] != float64(2018) || years[1] != float64(2020) {
		t.Errorf("years = %v", body)
	}

	_, body = env.do(t, http.MethodGet, "/api/v1/series", "")
	points, _ := body["points"].([]any)
	if len(points) != 4 {
		t.Errorf("series points = %d", len(points))
	}
	layout, _ := body["layout"].(map[string]any)
	if layout["x_label"] != "Release Date" {
		t.Errorf("layout = %v", layout)
	}

	_, body = env.do(t, http.MethodGet, "/api/v1/schema/message", "")
	props, _ := body["properties"].(map[string]any)
	for _, key := range []string{"type", "frame", "state", "client_id"} {
		if _, ok := props[key]; !ok {
			t.Errorf("message schema missing %q", key)
		}
	}
	_, body = env.do(t, http.MethodGet, "/api/v1/schema/command", "")
	if props, _ := body["properties"].(map[string]any); props["command"] == nil {
		t.Errorf("command schema = %v", body)
	}
}

func TestControlRequiresOperator(t *testing.T) {
	const secret = "s3cret"
	env := setup(t, secret)

	sign := func(role string) string {
		tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "7", "role": role}).
			SignedString([]byte(secret))
		return tok
	}

	if code, _ := env.do(t, http.MethodPost, "/api/v1/control/play", ""); code != http.StatusUnauthorized {
		t.Errorf("anonymous control = %d, want 401", code)
	}
	if code, _ := env.do(t, http.MethodPost, "/api/v1/control/play", sign("viewer")); code != http.StatusForbidden {
		t.Errorf("viewer control = %d, want 403", code)
	}
	if code, _ := env.do(t, http.MethodPost, "/api/v1/control/play", sign(RoleOperator)); code != http.StatusOK {
		t.Errorf("operator control = %d, want 200", code)
	}
	if code, _ := env.do(t, http.MethodGet, "/api/v1/state", ""); code != http.StatusOK {
		t.Errorf("reading state stays public, got %d", code)
	}
}

func TestTracksAndStats(t *testing.T) {
	env := setup(t, "")
	rows := testTracks()
	for i := range rows {
		rows[i].Source = "eminem.csv"
		rows[i].Position = i
	}
	env.db.Create(&rows)
	env.db.Create(&models.PlayThrough{RunID: "run-1", StartedAt: time.Now(), Status: models.PlayThroughFinished})

	_, body := env.do(t, http.MethodGet, "/api/v1/tracks?search=VEN&sort=popularity", "")
	data, _ := body["data"].([]any)
	if len(data) != 2 {
		t.Fatalf("search results = %v", body)
	}
	if first, _ := data[0].(map[string]any); first["popularity"] != float64(77) {
		t.Errorf("sort by popularity, got %v", first)
	}

	_, body = env.do(t, http.MethodGet, "/api/v1/sources", "")
	if data, _ := body["data"].([]any); len(data) != 1 {
		t.Errorf("sources = %v", body)
	}

	code, body := env.do(t, http.MethodGet, "/api/v1/stats", "")
	stats, _ := body["stats"].(map[string]any)
	if code != http.StatusOK || stats["total_tracks"] != float64(4) || stats["total_sources"] != float64(1) {
		t.Errorf("stats = %d %v", code, body)
	}

	_, body = env.do(t, http.MethodGet, "/api/v1/history?limit=5", "")
	if data, _ := body["data"].([]any); len(data) != 1 {
		t.Errorf("history = %v", body)
	}
	if code, _ := env.do(t, http.MethodGet, "/api/v1/history?limit=zero", ""); code != http.StatusBadRequest {
		t.Errorf("bad limit = %d, want 400", code)
	}
}
