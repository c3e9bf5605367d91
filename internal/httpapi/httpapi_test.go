package httpapi_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/verbao/intentd/internal/httpapi"
	"github.com/verbao/intentd/internal/service"
	"github.com/verbao/intentd/pkg/samples/memstore"
)

const testDim = 4

func newHandler(t *testing.T) http.Handler {
	t.Helper()
	store, err := memstore.New(testDim)
	if err != nil {
		t.Fatalf("memstore.New: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	mux := http.NewServeMux()
	httpapi.New(service.New(store, testDim, "file")).Register(mux)
	return mux
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestClassify_TextOnly(t *testing.T) {
	t.Parallel()

	h := newHandler(t)
	rec := doJSON(t, h, http.MethodPost, "/api/classify", `{"transcription":"help"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	resp := decode[struct {
		Intent     string   `json:"intent"`
		Confidence float64  `json:"confidence"`
		Modality   string   `json:"modality"`
		Status     string   `json:"status"`
		Action     string   `json:"action"`
		Options    []string `json:"options"`
	}](t, rec)

	if resp.Intent != "HELP" || resp.Confidence != 0.90 {
		t.Errorf("got (%q, %v), want (HELP, 0.90)", resp.Intent, resp.Confidence)
	}
	if resp.Modality != "text" {
		t.Errorf("modality = %q, want text", resp.Modality)
	}
	if resp.Status != "confirmed" || resp.Action != "await_user_confirmation" {
		t.Errorf("decision = (%q, %q), want (confirmed, await_user_confirmation)", resp.Status, resp.Action)
	}
	if len(resp.Options) == 0 {
		t.Error("options empty, want confirmation buttons")
	}
}

func TestClassify_NoInput(t *testing.T) {
	t.Parallel()

	h := newHandler(t)
	rec := doJSON(t, h, http.MethodPost, "/api/classify", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestClassify_BadBody(t *testing.T) {
	t.Parallel()

	h := newHandler(t)
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"transcription":`},
		{"unknown field", `{"transcription":"help","volume":11}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rec := doJSON(t, h, http.MethodPost, "/api/classify", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestClassify_DimensionMismatch(t *testing.T) {
	t.Parallel()

	h := newHandler(t)
	rec := doJSON(t, h, http.MethodPost, "/api/classify", `{"embedding":[0.1,0.2]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400, body = %s", rec.Code, rec.Body.String())
	}
}

func TestTrainClassifyConfirmFlow(t *testing.T) {
	t.Parallel()

	h := newHandler(t)

	// Train a HELP cluster.
	rec := doJSON(t, h, http.MethodPost, "/api/train",
		`{"intent":"HELP","embeddings":[[1,0,0,0],[0.9,0.1,0,0],[0.95,0.05,0,0]]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("train status = %d, body = %s", rec.Code, rec.Body.String())
	}
	trained := decode[struct {
		Intent string `json:"intent"`
		Stored int    `json:"stored"`
	}](t, rec)
	if trained.Stored != 3 {
		t.Fatalf("stored = %d, want 3", trained.Stored)
	}

	// Classify a nearby embedding; expect a token to confirm with.
	rec = doJSON(t, h, http.MethodPost, "/api/classify", `{"embedding":[1,0.02,0,0]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("classify status = %d, body = %s", rec.Code, rec.Body.String())
	}
	classified := decode[struct {
		Intent string `json:"intent"`
		Token  string `json:"token"`
	}](t, rec)
	if classified.Intent != "HELP" {
		t.Fatalf("intent = %q, want HELP", classified.Intent)
	}
	if classified.Token == "" {
		t.Fatal("token empty, want confirmation handle")
	}

	// Confirm: the sample joins the training set.
	rec = doJSON(t, h, http.MethodPost, "/api/confirm",
		fmt.Sprintf(`{"token":%q,"intent":"HELP","accept":true}`, classified.Token))
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// A second confirm with the same token is gone.
	rec = doJSON(t, h, http.MethodPost, "/api/confirm",
		fmt.Sprintf(`{"token":%q,"intent":"HELP","accept":true}`, classified.Token))
	if rec.Code != http.StatusGone {
		t.Errorf("second confirm status = %d, want 410", rec.Code)
	}

	// Stats reflect the confirmed sample.
	rec = doJSON(t, h, http.MethodGet, "/api/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d", rec.Code)
	}
	stats := decode[struct {
		Samples map[string]int `json:"samples"`
		Pending int            `json:"pending"`
	}](t, rec)
	if stats.Samples["HELP"] != 4 {
		t.Errorf("samples[HELP] = %d, want 4", stats.Samples["HELP"])
	}
	if stats.Pending != 0 {
		t.Errorf("pending = %d, want 0", stats.Pending)
	}
}

func TestConfirm_Validation(t *testing.T) {
	t.Parallel()

	h := newHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/api/confirm", `{"intent":"HELP","accept":true}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing token: status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/confirm", `{"token":"t","intent":"SNACKS","accept":true}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid intent: status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/confirm", `{"token":"t","accept":false}`)
	if rec.Code != http.StatusGone {
		t.Errorf("reject unknown token: status = %d, want 410", rec.Code)
	}
}

func TestTrain_InvalidIntent(t *testing.T) {
	t.Parallel()

	h := newHandler(t)
	rec := doJSON(t, h, http.MethodPost, "/api/train", `{"intent":"SNACKS","embeddings":[[1,0,0,0]]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestClearSamples(t *testing.T) {
	t.Parallel()

	h := newHandler(t)
	rec := doJSON(t, h, http.MethodPost, "/api/train", `{"intent":"WATER","embeddings":[[0,1,0,0],[0,0.9,0.1,0]]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("train status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/intents/WATER/samples", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/api/stats", "")
	stats := decode[struct {
		Samples map[string]int `json:"samples"`
	}](t, rec)
	if stats.Samples["WATER"] != 0 {
		t.Errorf("samples[WATER] = %d, want 0", stats.Samples["WATER"])
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/intents/SNACKS/samples", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("clear invalid intent: status = %d, want 400", rec.Code)
	}
}

func TestIntents(t *testing.T) {
	t.Parallel()

	h := newHandler(t)
	rec := doJSON(t, h, http.MethodGet, "/api/intents", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decode[struct {
		Intents []string `json:"intents"`
	}](t, rec)
	if len(resp.Intents) != 10 {
		t.Errorf("intents = %v, want the 10 fixed labels", resp.Intents)
	}
}
