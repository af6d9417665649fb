package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/malindard/llm-analyzer/internal/model"
	"github.com/malindard/llm-analyzer/pkg/llm"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/assert/v2"
)

type fakeStore struct {
	record *model.PhishingRecord
	err    error
}

func (f *fakeStore) GetByID(id int64) (*model.PhishingRecord, error) {
	return f.record, f.err
}

type fakeLLM struct {
	insight string
	err     error
	prompt  llm.Prompt
	called  bool
}

func (f *fakeLLM) Complete(ctx context.Context, p llm.Prompt) (string, error) {
	f.called = true
	f.prompt = p
	return f.insight, f.err
}

type fakeQueue struct {
	pushed []string
}

func (f *fakeQueue) Push(data string) error {
	f.pushed = append(f.pushed, data)
	return nil
}

func newTestRouter(store PhishingStore, client llm.CompletionClient, queue AnalysisQueue, opts Options) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewAnalyzeHandler(store, client, queue, opts)
	r.GET("/llm-analyze/:id", h.AnalyzeByID)
	r.POST("/llm-analyze", h.Analyze)
	r.GET("/", h.GetHealth)
	return r
}

func postAnalyze(r *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/llm-analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestAnalyzeByID_Success(t *testing.T) {
	store := &fakeStore{record: &model.PhishingRecord{
		ID:               7,
		ExtractedContent: `{"titles":["Login Page"],"forms":["username","password"]}`,
	}}
	client := &fakeLLM{insight: "Halaman ini berpotensi phishing."}

	r := newTestRouter(store, client, nil, Options{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/llm-analyze/7", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var res map[string]string
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, "success", res["status"])
	assert.Equal(t, "Halaman ini berpotensi phishing.", res["llm_insight"])

	if !strings.Contains(client.prompt.User, "Judul Halaman (Title):\nLogin Page") {
		t.Errorf("prompt missing title section:\n%s", client.prompt.User)
	}
}

func TestAnalyzeByID_NotFound(t *testing.T) {
	r := newTestRouter(&fakeStore{}, &fakeLLM{}, nil, Options{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/llm-analyze/99", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAnalyzeByID_EmptyContent(t *testing.T) {
	store := &fakeStore{record: &model.PhishingRecord{ID: 7}}
	r := newTestRouter(store, &fakeLLM{}, nil, Options{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/llm-analyze/7", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAnalyzeByID_InvalidID(t *testing.T) {
	r := newTestRouter(&fakeStore{}, &fakeLLM{}, nil, Options{})

	for _, id := range []string{"abc", "-1", "0"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/llm-analyze/"+id, nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
}

func TestAnalyzeByID_DBError(t *testing.T) {
	store := &fakeStore{err: errors.New("DB down")}
	r := newTestRouter(store, &fakeLLM{}, nil, Options{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/llm-analyze/7", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAnalyzeByID_UndecodableContent(t *testing.T) {
	store := &fakeStore{record: &model.PhishingRecord{
		ID:               7,
		ExtractedContent: "not json at all",
	}}
	client := &fakeLLM{}
	r := newTestRouter(store, client, nil, Options{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/llm-analyze/7", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, client.called)
}

func TestAnalyze_Success(t *testing.T) {
	client := &fakeLLM{insight: "Halaman ini aman."}
	r := newTestRouter(&fakeStore{}, client, nil, Options{})

	w := postAnalyze(r, `{"context":{"titles":["Login Page"]}}`)

	assert.Equal(t, http.StatusOK, w.Code)

	var res map[string]string
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, "success", res["status"])
	assert.Equal(t, "Halaman ini aman.", res["llm_insight"])
}

func TestAnalyze_DoubleEncodedContext(t *testing.T) {
	client := &fakeLLM{insight: "ok"}
	r := newTestRouter(&fakeStore{}, client, nil, Options{})

	w := postAnalyze(r, `{"context":"{\"titles\":[\"Login Page\"]}"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	if !strings.Contains(client.prompt.User, "Judul Halaman (Title):\nLogin Page") {
		t.Errorf("prompt missing title section:\n%s", client.prompt.User)
	}
}

func TestAnalyze_MissingContext(t *testing.T) {
	r := newTestRouter(&fakeStore{}, &fakeLLM{}, nil, Options{})

	for _, body := range []string{`{}`, `{"context":null}`, `not json`} {
		w := postAnalyze(r, body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
}

func TestAnalyze_EmptyOrNonObjectContext(t *testing.T) {
	r := newTestRouter(&fakeStore{}, &fakeLLM{}, nil, Options{})

	for _, body := range []string{
		`{"context":{}}`,
		`{"context":["a"]}`,
		`{"context":42}`,
		`{"context":"definitely not json"}`,
	} {
		w := postAnalyze(r, body)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var res map[string]string
		json.Unmarshal(w.Body.Bytes(), &res)
		assert.Equal(t, "error", res["status"])
	}
}

func TestAnalyze_EmailTemplateSelected(t *testing.T) {
	client := &fakeLLM{insight: "ok"}
	r := newTestRouter(&fakeStore{}, client, nil, Options{})

	w := postAnalyze(r, `{"context":{"input_type":"EMAIL","value":"a@b.com","prediction":"phishing","confidence":0.9}}`)

	assert.Equal(t, http.StatusOK, w.Code)
	if !strings.Contains(client.prompt.User, "Alamat Email: a@b.com") {
		t.Errorf("prompt missing email address:\n%s", client.prompt.User)
	}
	if !strings.Contains(client.prompt.User, "Confidence awal: 90.0%") {
		t.Errorf("prompt missing confidence:\n%s", client.prompt.User)
	}
}

func TestAnalyze_UpstreamStatusForwarded(t *testing.T) {
	client := &fakeLLM{err: &llm.GatewayError{
		Kind:   llm.GatewayUpstreamStatus,
		Status: http.StatusTooManyRequests,
		Detail: "rate limited",
	}}
	r := newTestRouter(&fakeStore{}, client, nil, Options{})

	w := postAnalyze(r, `{"context":{"titles":["Login Page"]}}`)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	var res map[string]string
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, "error", res["status"])
	assert.Equal(t, "LLM Error: rate limited", res["message"])
}

func TestAnalyze_GatewayTimeout(t *testing.T) {
	client := &fakeLLM{err: &llm.GatewayError{
		Kind:   llm.GatewayTimeout,
		Detail: "upstream request timed out",
	}}
	r := newTestRouter(&fakeStore{}, client, nil, Options{})

	w := postAnalyze(r, `{"context":{"titles":["Login Page"]}}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAnalyze_AuditQueuePushed(t *testing.T) {
	queue := &fakeQueue{}
	client := &fakeLLM{insight: "ok"}
	r := newTestRouter(&fakeStore{}, client, queue, Options{Model: "test-model"})

	w := postAnalyze(r, `{"context":{"input_type":"email","value":"a@b.com"}}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, len(queue.pushed))

	var rec model.AnalysisRecord
	json.Unmarshal([]byte(queue.pushed[0]), &rec)
	assert.Equal(t, model.SourceAPI, rec.Source)
	assert.Equal(t, model.InputTypeEmail, rec.InputType)
	assert.Equal(t, "test-model", rec.Model)
	assert.Equal(t, "ok", rec.Insight)
	assert.NotEqual(t, "", rec.RequestID)
}

func TestAnalyze_NoQueueStillSucceeds(t *testing.T) {
	r := newTestRouter(&fakeStore{}, &fakeLLM{insight: "ok"}, nil, Options{})

	w := postAnalyze(r, `{"context":{"titles":["x"]}}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetHealth(t *testing.T) {
	r := newTestRouter(&fakeStore{}, &fakeLLM{}, nil, Options{Model: "test-model"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var res map[string]string
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, "ok", res["status"])
	assert.Equal(t, "test-model", res["model"])
}
