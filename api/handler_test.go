package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/mediaflow/analysis"
	"github.com/kbukum/mediaflow/api"
	"github.com/kbukum/mediaflow/controller"
	"github.com/kbukum/mediaflow/engine"
	apperrors "github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/execution"
	"github.com/kbukum/mediaflow/logger"
	"github.com/kbukum/mediaflow/provider"
	"github.com/kbukum/mediaflow/testutil"
	"github.com/kbukum/mediaflow/trigger"
)

type fixture struct {
	router *gin.Engine
	engine *engine.Engine

	faces, transcription, sentiment *testutil.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock := testutil.NewClock(time.Time{})
	media := testutil.MediaStorage(t, "input/interview1.mp4", "input/interview2.mp4")
	g := testutil.Graph(t, nil)
	ctrl, err := controller.New(g, media, controller.Config{Bucket: testutil.Bucket}, controller.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("controller.New: %v", err)
	}

	f := &fixture{
		faces:         testutil.NewService("face-detection").Respond(testutil.Succeed(map[string]any{"faces": 2})),
		transcription: testutil.NewService("transcription").Respond(testutil.Succeed(map[string]any{"text": "great team"})),
		sentiment:     testutil.NewService("sentiment-detection"),
	}
	services := provider.NewRegistry[analysis.Service]()
	services.Register(f.faces)
	services.Register(f.transcription)
	services.Register(f.sentiment)

	store := execution.NewMemoryStore(execution.Options{TTL: time.Hour, MaxConflicts: 100, Now: clock.Now})
	e, err := engine.New(g, store, ctrl, services, engine.Config{TokenSecret: "0123456789abcdef-api-test"}, engine.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	e.Close()
	f.engine = e

	cfg := trigger.Config{Bucket: testutil.Bucket}
	cfg.ApplyDefaults()
	adapter := trigger.NewAdapter(e, cfg.Filter(), logger.Nop())

	f.router = gin.New()
	api.New(e, adapter, logger.Nop()).Register(f.router)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode %q: %v", rec.Body.String(), err)
		}
	}
	return rec, out
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	d, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("response has no data envelope: %v", body)
	}
	return d
}

func errorCode(body map[string]any) any {
	e, _ := body["error"].(map[string]any)
	return e["code"]
}

func (f *fixture) start(t *testing.T, key string) string {
	t.Helper()
	rec, body := f.do(t, http.MethodPost, "/v1/executions", api.StartRequest{SourceObjectBucket: testutil.Bucket, SourceObjectKey: key})
	if rec.Code != http.StatusCreated {
		t.Fatalf("start %s: %d %v", key, rec.Code, body)
	}
	return data(t, body)["executionId"].(string)
}

func TestStart(t *testing.T) {
	f := newFixture(t)
	id := f.start(t, "input/interview1.mp4")
	if id == "" {
		t.Fatal("expected an execution id")
	}

	tests := []struct {
		name     string
		body     any
		wantCode int
		wantErr  apperrors.ErrorCode
	}{
		{"duplicate", api.StartRequest{SourceObjectBucket: testutil.Bucket, SourceObjectKey: "input/interview1.mp4"}, http.StatusConflict, apperrors.ErrCodeDuplicateExecution},
		{"missing key", api.StartRequest{SourceObjectBucket: testutil.Bucket}, http.StatusBadRequest, apperrors.ErrCodeInvalidInput},
		{"outside prefix", api.StartRequest{SourceObjectBucket: testutil.Bucket, SourceObjectKey: "other/interview1.mp4"}, http.StatusBadRequest, apperrors.ErrCodeInvalidInput},
		{"missing object", api.StartRequest{SourceObjectBucket: testutil.Bucket, SourceObjectKey: "input/missing.mp4"}, http.StatusBadRequest, apperrors.ErrCodeInvalidInput},
		{"malformed", `{"bucket":`, http.StatusBadRequest, apperrors.ErrCodeInvalidInput},
		{"missing bucket", map[string]any{"sourceObjectKey": "input/interview2.mp4"}, http.StatusBadRequest, apperrors.ErrCodeInvalidInput},
		{"bad timestamp", map[string]any{"sourceObjectBucket": testutil.Bucket, "sourceObjectKey": "input/interview2.mp4", "timestamp": "yesterday"}, http.StatusBadRequest, apperrors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := f.do(t, http.MethodPost, "/v1/executions", tt.body)
			if rec.Code != tt.wantCode || errorCode(body) != string(tt.wantErr) {
				t.Errorf("expected %d %s, got %d %v", tt.wantCode, tt.wantErr, rec.Code, body)
			}
		})
	}

	_, body := f.do(t, http.MethodPost, "/v1/executions", api.StartRequest{SourceObjectBucket: testutil.Bucket, SourceObjectKey: "input/interview1.mp4"})
	details, _ := body["error"].(map[string]any)["details"].(map[string]any)
	if details["execution_id"] != id {
		t.Errorf("duplicate should name the running execution, got %v", details)
	}
}

func TestStart_RequestShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"source object fields", `{"sourceObjectBucket":"` + testutil.Bucket + `","sourceObjectKey":"input/interview2.mp4","timestamp":"2024-05-01T10:00:00Z"}`},
		{"bucket and key aliases", `{"bucket":"` + testutil.Bucket + `","key":"input/interview2.mp4","timestamp":"2024-05-01T10:00:00Z"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rec, body := f.do(t, http.MethodPost, "/v1/executions", tt.body)
			if rec.Code != http.StatusCreated {
				t.Fatalf("expected 201, got %d %v", rec.Code, body)
			}
			id := data(t, body)["executionId"].(string)

			_, body = f.do(t, http.MethodGet, "/v1/executions/"+id, nil)
			view := data(t, body)
			input := view["input"].(map[string]any)
			if input["bucket"] != testutil.Bucket || input["key"] != "input/interview2.mp4" {
				t.Errorf("unexpected input %v", input)
			}
			if view["triggeredAt"] != "2024-05-01T10:00:00Z" {
				t.Errorf("expected trigger timestamp, got %v", view["triggeredAt"])
			}
		})
	}
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	id := f.start(t, "input/interview1.mp4")

	rec, body := f.do(t, http.MethodGet, "/v1/executions/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	view := data(t, body)
	if view["executionId"] != id || view["status"] != string(execution.StatusRunning) {
		t.Errorf("unexpected view %v", view)
	}
	nodes := view["nodes"].(map[string]any)
	sentiment := nodes["SentimentDetectionJob"].(map[string]any)
	if sentiment["status"] != string(execution.NodeRunning) {
		t.Errorf("expected sentiment running, got %v", sentiment)
	}
	if strings.Contains(rec.Body.String(), "token") {
		t.Error("attempt tokens must not be exposed")
	}

	rec, body = f.do(t, http.MethodGet, "/v1/executions/nope", nil)
	if rec.Code != http.StatusNotFound || errorCode(body) != string(apperrors.ErrCodeNotFound) {
		t.Errorf("expected 404 NOT_FOUND, got %d %v", rec.Code, body)
	}
}

func TestCallback(t *testing.T) {
	f := newFixture(t)
	id := f.start(t, "input/interview1.mp4")
	req, ok := f.sentiment.Last()
	if !ok {
		t.Fatal("sentiment detection was not invoked")
	}

	rec, body := f.do(t, http.MethodPost, "/v1/callbacks", api.CallbackRequest{
		Token:  req.CallbackToken,
		Status: api.CallbackSucceeded,
		Output: map[string]any{"sentiment": "positive"},
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d %v", rec.Code, body)
	}

	_, body = f.do(t, http.MethodGet, "/v1/executions/"+id, nil)
	view := data(t, body)
	if view["status"] != string(execution.StatusSucceeded) {
		t.Fatalf("expected Succeeded, got %v", view)
	}
	result := view["result"].(map[string]any)
	if result["sentiment"] != "positive" || result["faces"] != float64(2) {
		t.Errorf("unexpected result %v", result)
	}

	rec, _ = f.do(t, http.MethodPost, "/v1/callbacks", api.CallbackRequest{
		Token:  req.CallbackToken,
		Status: api.CallbackSucceeded,
		Output: map[string]any{"sentiment": "negative"},
	})
	if rec.Code != http.StatusAccepted {
		t.Errorf("redelivered completion should be acknowledged, got %d", rec.Code)
	}
}

func TestCallback_Rejected(t *testing.T) {
	f := newFixture(t)
	f.start(t, "input/interview1.mp4")

	tests := []struct {
		name     string
		body     any
		wantCode int
		wantErr  apperrors.ErrorCode
	}{
		{"bad token", api.CallbackRequest{Token: "forged", Status: api.CallbackSucceeded}, http.StatusUnauthorized, apperrors.ErrCodeInvalidToken},
		{"missing token", api.CallbackRequest{Status: api.CallbackSucceeded}, http.StatusBadRequest, apperrors.ErrCodeInvalidInput},
		{"unknown status", api.CallbackRequest{Token: "t", Status: "done"}, http.StatusBadRequest, apperrors.ErrCodeInvalidInput},
		{"failed without error", api.CallbackRequest{Token: "t", Status: api.CallbackFailed}, http.StatusBadRequest, apperrors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := f.do(t, http.MethodPost, "/v1/callbacks", tt.body)
			if rec.Code != tt.wantCode || errorCode(body) != string(tt.wantErr) {
				t.Errorf("expected %d %s, got %d %v", tt.wantCode, tt.wantErr, rec.Code, body)
			}
		})
	}
}

func TestCallback_Failure(t *testing.T) {
	f := newFixture(t)
	id := f.start(t, "input/interview1.mp4")
	req, _ := f.sentiment.Last()
	retryable := false

	rec, body := f.do(t, http.MethodPost, "/v1/callbacks", api.CallbackRequest{
		Token:  req.CallbackToken,
		Status: api.CallbackFailed,
		Error:  &api.CallbackError{Code: apperrors.ErrCodeExternalService, Message: "model crashed", Retryable: &retryable},
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d %v", rec.Code, body)
	}
	x, err := f.engine.Status(t.Context(), id)
	if err != nil {
		t.Fatal(err)
	}
	node := x.Nodes["SentimentDetectionJob"]
	if node.Status != execution.NodeFailed || node.Error == nil || node.Error.Message != "model crashed" {
		t.Errorf("expected the non-retryable failure to stick, got %+v", node)
	}
}

func TestCallbackRequest_Outcome(t *testing.T) {
	ok := api.CallbackRequest{Status: api.CallbackSucceeded, Output: map[string]any{"text": "hi"}}.Outcome()
	if ok.Failed() || ok.Output["text"] != "hi" {
		t.Errorf("unexpected success outcome %+v", ok)
	}

	failed := api.CallbackRequest{Status: api.CallbackFailed, Error: &api.CallbackError{Code: apperrors.ErrCodeTimeout}}.Outcome()
	if !failed.Failed() || !apperrors.IsRetryable(failed.Err) || !apperrors.IsCode(failed.Err, apperrors.ErrCodeTimeout) {
		t.Errorf("expected retryable TIMEOUT, got %v", failed.Err)
	}
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	id := f.start(t, "input/interview1.mp4")

	rec, body := f.do(t, http.MethodPost, "/v1/executions/"+id+"/cancel", nil)
	if rec.Code != http.StatusOK || data(t, body)["status"] != string(execution.StatusCancelled) {
		t.Fatalf("expected 200 Cancelled, got %d %v", rec.Code, body)
	}
	rec, _ = f.do(t, http.MethodPost, "/v1/executions/"+id+"/cancel", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("cancelling twice is a no-op, got %d", rec.Code)
	}

	f.sentiment.Respond(testutil.Succeed(map[string]any{"sentiment": "neutral"}))
	done := f.start(t, "input/interview2.mp4")
	rec, body = f.do(t, http.MethodPost, "/v1/executions/"+done+"/cancel", nil)
	if rec.Code != http.StatusConflict || errorCode(body) != string(apperrors.ErrCodeAlreadyTerminal) {
		t.Errorf("expected 409 ALREADY_TERMINAL, got %d %v", rec.Code, body)
	}

	rec, _ = f.do(t, http.MethodPost, "/v1/executions/missing/cancel", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func s3Event(bucket, key string) string {
	return fmt.Sprintf(`{
		"version": "0",
		"id": "17793124-05d4-b198-2fde-7ededc63b103",
		"detail-type": "Object Created",
		"source": "aws.s3",
		"account": "123456789012",
		"time": "2026-10-01T18:43:48Z",
		"region": "us-east-1",
		"resources": ["arn:aws:s3:::%[1]s"],
		"detail": {
			"version": "0",
			"bucket": {"name": "%[1]s"},
			"object": {"key": "%[2]s", "size": 5, "etag": "b1946ac92492d2347c6235b4d2611184"},
			"request-id": "N4N7GDK58NMKJ12R",
			"requester": "123456789012"
		}
	}`, bucket, key)
}

func TestS3Event(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name     string
		body     string
		wantCode int
		want     trigger.Disposition
	}{
		{"started", s3Event(testutil.Bucket, "input/interview1.mp4"), http.StatusAccepted, trigger.Started},
		{"duplicate", s3Event(testutil.Bucket, "input/interview1.mp4"), http.StatusAccepted, trigger.Duplicate},
		{"other bucket", s3Event("elsewhere", "input/interview2.mp4"), http.StatusAccepted, trigger.Ignored},
		{"missing object", s3Event(testutil.Bucket, "input/missing.mp4"), http.StatusAccepted, trigger.Rejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := f.do(t, http.MethodPost, "/v1/events/s3", tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d %v", tt.wantCode, rec.Code, body)
			}
			if got := data(t, body)["disposition"]; got != string(tt.want) {
				t.Errorf("expected %s, got %v", tt.want, got)
			}
		})
	}

	rec, body := f.do(t, http.MethodPost, "/v1/events/s3", `not json`)
	if rec.Code != http.StatusBadRequest || errorCode(body) != string(apperrors.ErrCodeInvalidInput) {
		t.Errorf("expected 400 for a malformed envelope, got %d %v", rec.Code, body)
	}
}
