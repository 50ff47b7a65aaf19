package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"laptopprice/pkg/artifact"
	"laptopprice/pkg/data/datatest"
	"laptopprice/pkg/dataprep"
	"laptopprice/pkg/logging"
	"laptopprice/pkg/model"
	"laptopprice/pkg/pipeline"
	"laptopprice/pkg/predict"
	"laptopprice/pkg/runlog"
)

func init() { gin.SetMode(gin.TestMode) }

type fakeTrainer struct {
	res     *pipeline.Result
	err     error
	running bool
	calls   int
}

func (f *fakeTrainer) Run(ctx context.Context, trigger string) (*pipeline.Result, error) {
	f.calls++
	return f.res, f.err
}

func (f *fakeTrainer) Running() bool { return f.running }

type fakeHistory []runlog.Run

func (h fakeHistory) Recent(ctx context.Context, limit int) ([]runlog.Run, error) {
	if limit < len(h) {
		return h[:limit], nil
	}
	return h, nil
}

// publishedPredictor returns a predictor backed by a registry holding one bundle.
func publishedPredictor(t *testing.T) *predict.Predictor {
	t.Helper()
	fs, err := artifact.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	reg := artifact.NewRegistry(fs, "models", 0, nil)

	feat, err := dataprep.Engineer(datatest.Laptops(200, 7, 0))
	if err != nil {
		t.Fatal(err)
	}
	pre := dataprep.NewPreprocessor(dataprep.FeatureSpec{
		Scaled:      []string{"Ram", "Weight", "SSD", "HDD"},
		Categorical: []string{"Company", "TypeName", "cpu_name", "gpu_brand", "os"},
		Passthrough: []string{"Touchscreen", "IPS"},
		Unknown:     dataprep.UnknownError,
	})
	if err := pre.Fit(feat.Drop("id", "Price")); err != nil {
		t.Fatal(err)
	}
	b := &artifact.Bundle{
		Version:      "v1",
		RunID:        "run-v1",
		CreatedAt:    time.Now().UTC(),
		Target:       "Price",
		Preprocessor: pre,
		Model:        &model.Linear{Algorithm: "ols", W: make([]float64, pre.Width()), B: 54321},
	}
	if _, err := reg.Publish(context.Background(), b); err != nil {
		t.Fatal(err)
	}
	return predict.New(reg)
}

func emptyPredictor(t *testing.T) *predict.Predictor {
	t.Helper()
	fs, err := artifact.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return predict.New(artifact.NewRegistry(fs, "models", 0, nil))
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

const sampleJSON = `{"Company":"Dell","TypeName":"Notebook","Ram":8,"Weight":1.8,"Touchscreen":0,"IPS":1,
"cpu_name":"Intel Core i5","SSD":256,"HDD":0,"gpu_brand":"Intel","os":"windows"}`

func TestIndex(t *testing.T) {
	s := New(Options{Predictor: publishedPredictor(t), Logger: logging.Discard()})
	w := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Enter laptop details for price prediction") || !strings.Contains(body, "model v1") {
		t.Fatalf("index body missing content:\n%s", body)
	}
}

func TestPredictJSON(t *testing.T) {
	s := New(Options{Predictor: publishedPredictor(t), Logger: logging.Discard()})
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(sampleJSON))
	req.Header.Set("Content-Type", "application/json")
	w := serve(s, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body)
	}
	out := decode(t, w)
	if out["price"] != 54321.0 || out["version"] != "v1" {
		t.Fatalf("response = %v", out)
	}

	req = httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(`{"TypeName":"Notebook"}`))
	req.Header.Set("Content-Type", "application/json")
	if w := serve(s, req); w.Code != http.StatusBadRequest {
		t.Fatalf("missing Company status = %d", w.Code)
	}

	unknown := strings.Replace(sampleJSON, `"Dell"`, `"Zeta"`, 1)
	req = httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(unknown))
	req.Header.Set("Content-Type", "application/json")
	if w := serve(s, req); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown company status = %d", w.Code)
	}
}

func TestPredictForm(t *testing.T) {
	s := New(Options{Predictor: publishedPredictor(t), Logger: logging.Discard()})
	form := fullForm()
	for _, path := range []string{"/predict", "/"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := serve(s, req)
		if w.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, w.Code)
		}
		if !strings.Contains(w.Body.String(), "Predicted Price: ₹54,321") {
			t.Fatalf("%s body missing prediction:\n%s", path, w.Body)
		}
	}
}

func fullForm() url.Values {
	return url.Values{
		"Company": {"Dell"}, "TypeName": {"Notebook"}, "Ram": {"8"}, "Weight": {"1.8"},
		"Touchscreen": {"0"}, "IPS": {"1"}, "cpu_name": {"Intel Core i5"}, "SSD": {"256"},
		"HDD": {"0"}, "gpu_brand": {"Intel"}, "os": {"windows"},
	}
}

func postForm(s *Server, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return serve(s, req)
}

func TestPredictWithoutModel(t *testing.T) {
	s := New(Options{Predictor: emptyPredictor(t), Logger: logging.Discard()})
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(sampleJSON))
	req.Header.Set("Content-Type", "application/json")
	if w := serve(s, req); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", w.Code)
	}

	w := postForm(s, fullForm())
	if w.Code != http.StatusServiceUnavailable || !strings.Contains(w.Body.String(), "Error: ") {
		t.Fatalf("form status = %d body = %s", w.Code, w.Body)
	}
}

func TestPredictMissingNumericFields(t *testing.T) {
	s := New(Options{Predictor: publishedPredictor(t), Logger: logging.Discard()})

	w := postForm(s, url.Values{"Company": {"Dell"}, "TypeName": {"Notebook"}})
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "Error: ") {
		t.Fatalf("partial form status = %d body = %s", w.Code, w.Body)
	}
	if strings.Contains(w.Body.String(), "Predicted Price") {
		t.Fatal("partial form produced a price")
	}

	for _, field := range []string{"Ram", "Weight", "SSD", "HDD", "Touchscreen", "IPS"} {
		form := fullForm()
		form.Del(field)
		if w := postForm(s, form); w.Code != http.StatusBadRequest {
			t.Errorf("form without %s status = %d", field, w.Code)
		}
	}

	form := fullForm()
	form.Set("HDD", "0")
	form.Set("Touchscreen", "0")
	if w := postForm(s, form); w.Code != http.StatusOK {
		t.Fatalf("explicit zeros status = %d body = %s", w.Code, w.Body)
	}

	body := `{"Company":"Dell","TypeName":"Notebook","cpu_name":"Intel Core i5","gpu_brand":"Intel","os":"windows"}`
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w = serve(s, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("json without numerics status = %d", w.Code)
	}
	if _, ok := decode(t, w)["error"]; !ok {
		t.Fatal("json error body missing")
	}
}

func TestPredictRejectsNonFinite(t *testing.T) {
	s := New(Options{Predictor: publishedPredictor(t), Logger: logging.Discard()})

	huge := strings.Replace(sampleJSON, `"Ram":8`, `"Ram":1e308`, 1)
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(huge))
	req.Header.Set("Content-Type", "application/json")
	w := serve(s, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("huge ram status = %d body = %s", w.Code, w.Body)
	}
	decode(t, w)

	form := fullForm()
	form.Set("Ram", "Inf")
	if w := postForm(s, form); w.Code != http.StatusBadRequest {
		t.Fatalf("Ram=Inf status = %d", w.Code)
	}
}

func TestCORS(t *testing.T) {
	s := New(Options{Logger: logging.Discard()})
	req := httptest.NewRequest(http.MethodOptions, "/predict", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := serve(s, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("Allow-Origin = %q", got)
	}

	w = serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("Allow-Origin on GET = %q", got)
	}
}

func TestTrain(t *testing.T) {
	ok := &fakeTrainer{res: &pipeline.Result{RunID: "r1", Status: runlog.StatusAccepted, Version: "v2"}}
	s := New(Options{Trainer: ok, Logger: logging.Discard()})
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		w := serve(s, httptest.NewRequest(method, "/train", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("%s status = %d", method, w.Code)
		}
		if out := decode(t, w); out["status"] != "accepted" || out["version"] != "v2" {
			t.Fatalf("%s response = %v", method, out)
		}
	}
	if ok.calls != 2 {
		t.Fatalf("trainer called %d times", ok.calls)
	}

	busy := &fakeTrainer{err: pipeline.ErrTrainingInProgress}
	w := serve(New(Options{Trainer: busy, Logger: logging.Discard()}), httptest.NewRequest(http.MethodPost, "/train", nil))
	if w.Code != http.StatusConflict || decode(t, w)["kind"] != "busy" {
		t.Fatalf("busy status = %d body = %s", w.Code, w.Body)
	}

	failed := &fakeTrainer{err: &pipeline.Error{
		Kind:  pipeline.KindSchemaValidation,
		Stage: pipeline.StageValidation,
		Err:   pipeline.ErrSchemaMismatch,
	}}
	w = serve(New(Options{Trainer: failed, Logger: logging.Discard()}), httptest.NewRequest(http.MethodPost, "/train", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("failed status = %d", w.Code)
	}
	if out := decode(t, w); out["kind"] != "schema_validation" || out["stage"] != "validation" {
		t.Fatalf("failed response = %v", out)
	}

	w = serve(New(Options{Logger: logging.Discard()}), httptest.NewRequest(http.MethodPost, "/train", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("no trainer status = %d", w.Code)
	}
}

func TestRuns(t *testing.T) {
	history := fakeHistory{{ID: "b", Status: runlog.StatusRejected}, {ID: "a", Status: runlog.StatusAccepted}}
	s := New(Options{History: history, Logger: logging.Discard()})

	w := serve(s, httptest.NewRequest(http.MethodGet, "/runs?limit=1", nil))
	var runs []runlog.Run
	if err := json.Unmarshal(w.Body.Bytes(), &runs); err != nil {
		t.Fatal(err)
	}
	if w.Code != http.StatusOK || len(runs) != 1 || runs[0].ID != "b" {
		t.Fatalf("runs = %+v", runs)
	}
	if w := serve(s, httptest.NewRequest(http.MethodGet, "/runs?limit=0", nil)); w.Code != http.StatusBadRequest {
		t.Fatalf("limit=0 status = %d", w.Code)
	}

	w = serve(New(Options{Logger: logging.Discard()}), httptest.NewRequest(http.MethodGet, "/runs", nil))
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("no history body = %s", w.Body)
	}
}

func TestHealth(t *testing.T) {
	s := New(Options{
		Trainer:   &fakeTrainer{running: true},
		Predictor: publishedPredictor(t),
		Logger:    logging.Discard(),
	})
	out := decode(t, serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil)))
	if out["status"] != "ok" || out["training"] != true || out["model_version"] != "v1" {
		t.Fatalf("health = %v", out)
	}

	s = New(Options{Predictor: emptyPredictor(t), Logger: logging.Discard()})
	out = decode(t, serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil)))
	if v, ok := out["model_version"]; !ok || v != nil {
		t.Fatalf("health without model = %v", out)
	}
}
