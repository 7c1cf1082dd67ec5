package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ripecheck/internal/config"
	"ripecheck/internal/learn"
	"ripecheck/internal/ripeness"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.DominantColor = false
	cfg.Training.Seed = 7
	return cfg
}

func solidPNG(t *testing.T, c color.Color, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func uploadRequest(t *testing.T, path string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", "banana.png")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func formRequest(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func createSession(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := serve(h, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	id, _ := decodeBody(t, rec)["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestIndexAndHealth(t *testing.T) {
	h := New(testConfig(), nil).Handler()

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "trainStatus")

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalyze(t *testing.T) {
	s := New(testConfig(), nil)
	h := s.Handler()

	yellow := color.NRGBA{R: 230, G: 200, B: 60, A: 255}
	rec := serve(h, uploadRequest(t, "/api/analyze", solidPNG(t, yellow, 64, 32)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, string(ripeness.LabelRipe), body["label"])
	assert.Equal(t, "49.4°", body["hue_text"])
	assert.Equal(t, "0.90", body["value_text"])
	assert.EqualValues(t, 320, body["width"])
	assert.EqualValues(t, 160, body["height"])
	assert.Len(t, body["features"], 3*ripeness.DefaultBins)

	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics().ImagesAnalyzed.WithLabelValues(string(ripeness.LabelRipe))))
}

func TestAnalyze_BadInput(t *testing.T) {
	h := New(testConfig(), nil).Handler()

	rec := serve(h, httptest.NewRequest(http.MethodPost, "/api/analyze", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h, uploadRequest(t, "/api/analyze", []byte("not an image")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decodeBody(t, rec)["error"])
}

func TestSessionFlow(t *testing.T) {
	s := New(testConfig(), nil)
	h := s.Handler()
	id := createSession(t, h)
	base := "/api/sessions/" + id

	// No image yet.
	rec := serve(h, formRequest(base+"/samples", url.Values{"class": {"ripe"}}))
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = serve(h, httptest.NewRequest(http.MethodPost, base+"/train", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	images := map[string]color.NRGBA{
		"unripe":   {R: 90, G: 170, B: 60, A: 255},
		"ripe":     {R: 230, G: 200, B: 60, A: 255},
		"overripe": {R: 120, G: 70, B: 30, A: 255},
	}

	count := 0
	addSamples := func(class string, n int) {
		rec := serve(h, uploadRequest(t, base+"/image", solidPNG(t, images[class], 40, 40)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		for i := 0; i < n; i++ {
			rec := serve(h, formRequest(base+"/samples", url.Values{"class": {class}}))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			count++
			body := decodeBody(t, rec)
			assert.EqualValues(t, count, body["count"])
			assert.Equal(t, learn.CollectedStatus(count), body["status"])
		}
	}

	addSamples("unripe", 2)
	addSamples("ripe", 2)

	rec = serve(h, httptest.NewRequest(http.MethodPost, base+"/train", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, learn.InsufficientStatus(6), decodeBody(t, rec)["status"])

	addSamples("overripe", 2)

	rec = serve(h, httptest.NewRequest(http.MethodPost, base+"/train", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Contains(t, []any{"unripe", "ripe", "overripe"}, body["class"])
	assert.Equal(t, learn.StatusTrained, body["status"])
	assert.Contains(t, body["text"], "%)")
	assert.Len(t, body["probabilities"], learn.NumClasses)

	// Once trained, new images carry a prediction.
	rec = serve(h, uploadRequest(t, base+"/image", solidPNG(t, images["ripe"], 40, 40)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decodeBody(t, rec)["prediction_text"])

	assert.Equal(t, 6.0, testutil.ToFloat64(s.Metrics().SamplesAdded.WithLabelValues("unripe"))+
		testutil.ToFloat64(s.Metrics().SamplesAdded.WithLabelValues("ripe"))+
		testutil.ToFloat64(s.Metrics().SamplesAdded.WithLabelValues("overripe")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics().TrainingRuns.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics().TrainingRuns.WithLabelValues("insufficient")))
}

func TestSamples_BadClass(t *testing.T) {
	h := New(testConfig(), nil).Handler()
	id := createSession(t, h)

	rec := serve(h, formRequest("/api/sessions/"+id+"/samples", url.Values{"class": {"mushy"}}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownSession(t *testing.T) {
	h := New(testConfig(), nil).Handler()

	rec := serve(h, formRequest("/api/sessions/missing/samples", url.Values{"class": {"ripe"}}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = serve(h, httptest.NewRequest(http.MethodPost, "/api/sessions/missing/train", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = serve(h, httptest.NewRequest(http.MethodDelete, "/api/sessions/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteSession(t *testing.T) {
	s := New(testConfig(), nil)
	h := s.Handler()
	id := createSession(t, h)
	assert.Equal(t, 1, s.SessionCount())

	rec := serve(h, httptest.NewRequest(http.MethodDelete, "/api/sessions/"+id, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, s.SessionCount())
}

func TestSessionLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MaxSessions = 1
	h := New(cfg, nil).Handler()

	createSession(t, h)
	rec := serve(h, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// fakeClock is a settable time source for idle eviction.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestSessionLimit_IdleSessionsFreed(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MaxSessions = 3
	cfg.Server.IdleTimeout = config.Duration(10 * time.Minute)
	s := New(cfg, nil)
	clock := &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	s.now = clock.Now
	h := s.Handler()

	ids := []string{createSession(t, h), createSession(t, h), createSession(t, h)}
	rec := serve(h, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	// The first session stays in use; the others go quiet.
	clock.Advance(6 * time.Minute)
	rec = serve(h, formRequest("/api/sessions/"+ids[0]+"/samples", url.Values{"class": {"ripe"}}))
	require.Equal(t, http.StatusConflict, rec.Code, "touches the session even without an image")
	clock.Advance(6 * time.Minute)

	createSession(t, h)
	createSession(t, h)
	assert.Equal(t, 3, s.SessionCount())
	rec = serve(h, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	_, err := s.Session(ids[0])
	assert.NoError(t, err, "recently used session survives")
	for _, id := range ids[1:] {
		rec = serve(h, httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/train", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(s.Metrics().SessionsEvicted))
}

func TestSessionLimit_ReleasedSessionFreesSlot(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MaxSessions = 3
	h := New(cfg, nil).Handler()

	var ids []string
	for i := 0; i < 3; i++ {
		ids = append(ids, createSession(t, h))
	}
	rec := serve(h, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = serve(h, httptest.NewRequest(http.MethodDelete, "/api/sessions/"+ids[1], nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	createSession(t, h)

	rec = serve(h, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSessionLimit_NoIdleTimeoutKeepsSessions(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MaxSessions = 1
	cfg.Server.IdleTimeout = 0
	s := New(cfg, nil)
	clock := &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	s.now = clock.Now
	h := s.Handler()

	createSession(t, h)
	clock.Advance(24 * time.Hour)
	rec := serve(h, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestIndex_ReleasesSessionOnPageHide(t *testing.T) {
	h := New(testConfig(), nil).Handler()

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "'pagehide'")
	assert.Contains(t, body, "method: 'DELETE', keepalive: true")
}

func TestSessionImage_SkipsPredictionUntilTrained(t *testing.T) {
	h := New(testConfig(), nil).Handler()
	id := createSession(t, h)

	rec := serve(h, uploadRequest(t, "/api/sessions/"+id+"/image", solidPNG(t, color.NRGBA{R: 230, G: 200, B: 60, A: 255}, 40, 40)))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.NotContains(t, body, "prediction")
	assert.NotContains(t, body, "prediction_text")
}

func TestQuiz(t *testing.T) {
	s := New(testConfig(), nil)
	h := s.Handler()

	all := url.Values{}
	for _, q := range []string{"q1", "q2", "q3", "q4", "q5", "q6"} {
		all.Set(q, "b")
	}
	rec := serve(h, formRequest("/api/quiz", all))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 6, body["correct"])
	assert.EqualValues(t, 6, body["total"])
	assert.Equal(t, "Score: 6/6 — Perfect! 🏆", body["text"])

	rec = serve(h, formRequest("/api/quiz", url.Values{"q1": {"b"}, "q2": {"a"}}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Score: 1/6 — Give it another go.", decodeBody(t, rec)["text"])

	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics().QuizSubmissions.WithLabelValues("6/6")))
}

func TestQuiz_Multipart(t *testing.T) {
	h := New(testConfig(), nil).Handler()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, q := range []string{"q1", "q2", "q3", "q4", "q5", "q6"} {
		require.NoError(t, mw.WriteField(q, "b"))
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/quiz", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := serve(h, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decodeBody(t, rec)
	assert.EqualValues(t, 6, out["correct"])
	assert.Equal(t, "Score: 6/6 — Perfect! 🏆", out["text"])
}

func TestQuiz_IgnoresQueryString(t *testing.T) {
	h := New(testConfig(), nil).Handler()

	rec := serve(h, formRequest("/api/quiz?q1=b&q2=b", url.Values{"q3": {"b"}}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decodeBody(t, rec)["correct"])
}

func TestQuizQuestions(t *testing.T) {
	h := New(testConfig(), nil).Handler()

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/quiz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var qs []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &qs))
	require.Len(t, qs, 6)
	assert.Equal(t, "q1", qs[0]["id"])
	assert.Len(t, qs[0]["choices"], 4)
}

func TestMetricsEndpoint(t *testing.T) {
	s := New(testConfig(), nil)
	h := s.Handler()
	createSession(t, h)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ripecheck_active_sessions 1")
}
