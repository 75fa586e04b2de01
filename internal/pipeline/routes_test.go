package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/ziadkadry99/ocrstudio/internal/llm"
	"github.com/ziadkadry99/ocrstudio/internal/ocrconfig"
)

func setupRouter(t *testing.T) (chi.Router, fixture) {
	t.Helper()
	f := setup(t)
	r := chi.NewRouter()
	RegisterRoutes(r, f.svc, RouteOptions{MaxUpload: 1 << 20})
	return r, f
}

func postJSON(r http.Handler, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func postUpload(t *testing.T, r http.Handler, target string, form map[string]string, file []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range form {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if file != nil {
		fw, err := mw.CreateFormFile("file", "bol.png")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(file)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decoding %s: %v", rec.Body.String(), err)
	}
	return m
}

func TestHTTPSuggest(t *testing.T) {
	r, _ := setupRouter(t)

	rec := postJSON(r, "/api/ocr/suggest", `{"fields":[{"id":"sender_name","name":"Sender Name"}],"document":`+sampleOCR+`}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	sugg := body["suggestions"].(map[string]any)
	if sugg["sender_name"] != "$.sender.name" || len(sugg) != 1 {
		t.Errorf("suggestions = %v", sugg)
	}

	// A string document and the default catalog.
	quoted, _ := json.Marshal(sampleOCR)
	rec = postJSON(r, "/api/ocr/suggest", `{"document":`+string(quoted)+`}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(decode(t, rec)["ranked"].([]any)) == 0 {
		t.Error("expected ranked suggestions from the standard catalog")
	}

	rec = postJSON(r, "/api/ocr/suggest", `{"document":"{not json"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed document: expected 400, got %d", rec.Code)
	}
}

func TestHTTPApply(t *testing.T) {
	r, _ := setupRouter(t)

	rec := postJSON(r, "/api/ocr/apply", `{"document":`+sampleOCR+`,"mappings":{"weight":{"jsonPath":"$.sender.name","transform":"NUMBER"},"sender_name":"$.sender.name"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	payload := body["structuredPayload"].(map[string]any)
	if payload["weight"] != nil || payload["sender_name"] != "Acme Corporation" {
		t.Errorf("payload = %v", payload)
	}
	invalid := body["invalidFields"].([]any)
	if len(invalid) != 1 || invalid[0] != "weight" {
		t.Errorf("invalidFields = %v", invalid)
	}
}

func TestHTTPTestUpload(t *testing.T) {
	r, f := setupRouter(t)

	rec := postUpload(t, r, "/api/ocr/test", map[string]string{"module": "FREIGHT", "overridePrompt": "Read it"}, []byte("png"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["prompt"] != "Read it" || f.ex.last() != "Read it" {
		t.Errorf("prompt = %v", body["prompt"])
	}
	if _, ok := body["rawOcrOutput"].(map[string]any); !ok {
		t.Errorf("rawOcrOutput = %v", body["rawOcrOutput"])
	}

	rec = postUpload(t, r, "/api/ocr/test", map[string]string{"module": "FREIGHT"}, nil)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "File is required") {
		t.Errorf("no file: %d %s", rec.Code, rec.Body.String())
	}
}

func TestHTTPProcessDocument(t *testing.T) {
	r, f := setupRouter(t)
	f.save(t, ocrconfig.Key{Module: "FREIGHT"}, nil, ocrconfig.Mappings{
		{FieldID: "sender_name", JSONPath: "$.sender.name", Mandatory: true},
	})

	rec := postUpload(t, r, "/api/ocr/process-document", map[string]string{"module": "FREIGHT", "consignor": "ACME"}, []byte("png"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["status"] != "success" || body["module"] != "FREIGHT" || body["consignor"] != "ACME" {
		t.Errorf("body = %v", body)
	}
	if body["structuredPayload"].(map[string]any)["sender_name"] != "Acme Corporation" {
		t.Errorf("payload = %v", body["structuredPayload"])
	}

	rec = postUpload(t, r, "/api/ocr/process-document", map[string]string{
		"module":           "FREIGHT",
		"overrideMappings": `[{"fieldKey":"receiver_name","jsonPath":"$.receiver.name","mandatory":true}]`,
	}, []byte("png"))
	body = decode(t, rec)
	if body["status"] != "warning" {
		t.Errorf("override status = %v", body["status"])
	}

	rec = postUpload(t, r, "/api/ocr/process-document", map[string]string{}, []byte("png"))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing module: expected 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ocr/runs?module=FREIGHT", nil))
	var runs []Run
	if err := json.Unmarshal(rec.Body.Bytes(), &runs); err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}
}

func TestHTTPUpstreamFailures(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{llm.ErrRefusal, http.StatusBadGateway},
		{llm.ErrEmptyResponse, http.StatusBadGateway},
		{llm.ErrMalformedJSON, http.StatusBadGateway},
		{llm.ErrUnsupportedDocument, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			r, f := setupRouter(t)
			f.ex.Err = tt.err
			rec := postUpload(t, r, "/api/ocr/process-document", map[string]string{"module": "FREIGHT"}, []byte("png"))
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestHTTPApplyValidationRules(t *testing.T) {
	r, _ := setupRouter(t)

	rec := postJSON(r, "/api/ocr/apply", `{
		"document": {"package":{"weight_kg":0}},
		"mappings": [{"fieldKey":"weight","jsonPath":"$.package.weight_kg"}],
		"validationRules": [{"id":"rule-1","field":"weight","operator":"greater_than","value":"0","action":"error","message":"Weight must be positive"}]
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["status"] != "error" {
		t.Errorf("status = %v, want error", body["status"])
	}
	results := body["validationResults"].([]any)
	if len(results) != 1 || results[0].(map[string]any)["message"] != "Weight must be positive" {
		t.Errorf("validationResults = %v", results)
	}

	rec = postJSON(r, "/api/ocr/apply", `{"document":{},"mappings":[],"validationRules":[{"field":"weight","operator":"between"}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid rule: expected 400, got %d", rec.Code)
	}
}

func TestHTTPUploadTooLarge(t *testing.T) {
	f := setup(t)
	r := chi.NewRouter()
	RegisterRoutes(r, f.svc, RouteOptions{MaxUpload: 1024})

	for _, path := range []string{"/api/ocr/test", "/api/ocr/process-document"} {
		rec := postUpload(t, r, path, map[string]string{"module": "FREIGHT"}, bytes.Repeat([]byte("x"), 8<<10))
		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("%s: expected 413, got %d: %s", path, rec.Code, rec.Body.String())
		}
	}
	if runs, _ := f.runs.List(context.Background(), RunFilter{}); len(runs) != 0 {
		t.Errorf("rejected uploads should not be recorded, got %d runs", len(runs))
	}
}

func TestUploadStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"too large", fmt.Errorf("invalid upload: %w", &http.MaxBytesError{Limit: 1024}), http.StatusRequestEntityTooLarge},
		{"missing file", errors.New("File is required"), http.StatusBadRequest},
		{"bad form", errors.New("invalid upload: no multipart boundary param in Content-Type"), http.StatusBadRequest},
	}
	for _, tt := range tests {
		if got := uploadStatus(tt.err); got != tt.want {
			t.Errorf("%s: uploadStatus = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestHTTPFieldsAndPreview(t *testing.T) {
	r, _ := setupRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/fields", nil))
	var list []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 14 || list[0]["id"] != "shipment_id" {
		t.Errorf("fields = %v", list)
	}

	rec = postJSON(r, "/api/prompts/preview", `{"prompt":"Extract **all** fields"}`)
	body := decode(t, rec)
	if !strings.Contains(body["html"].(string), "<strong>all</strong>") {
		t.Errorf("html = %v", body["html"])
	}
	if !strings.HasSuffix(body["finalPrompt"].(string), "just raw JSON.") {
		t.Errorf("finalPrompt = %v", body["finalPrompt"])
	}
}

func TestDecodeImage(t *testing.T) {
	data, mime, err := decodeImage("data:image/webp;base64,"+base64.StdEncoding.EncodeToString([]byte("img")), "")
	if err != nil || string(data) != "img" || mime != "image/webp" {
		t.Errorf("data URI = %q %q %v", data, mime, err)
	}
	data, mime, err = decodeImage(base64.StdEncoding.EncodeToString([]byte("img")), "image/png")
	if err != nil || string(data) != "img" || mime != "image/png" {
		t.Errorf("bare = %q %q %v", data, mime, err)
	}
	if _, _, err := decodeImage("data:image/png,raw", ""); err == nil {
		t.Error("expected error for non-base64 data URI")
	}
	if _, _, err := decodeImage("***", ""); err == nil {
		t.Error("expected error for invalid base64")
	}
}

func dialSandbox(t *testing.T) (*websocket.Conn, fixture) {
	t.Helper()
	r, f := setupRouter(t)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/sandbox"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn, f
}

func TestSandboxOrigins(t *testing.T) {
	tests := []struct {
		name     string
		allowAll bool
		origin   string
		expected bool
	}{
		{"no origin", false, "", true},
		{"localhost", false, "http://localhost:5173", true},
		{"loopback", false, "http://127.0.0.1:8080", true},
		{"foreign", false, "https://evil.example.com", false},
		{"localhost lookalike", false, "http://localhost.example.com", false},
		{"bad scheme", false, "file://localhost", false},
		{"foreign allowed", true, "https://evil.example.com", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws/sandbox", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := checkOrigin(tt.allowAll)(req); got != tt.expected {
				t.Errorf("checkOrigin(%v)(%q) = %v, want %v", tt.allowAll, tt.origin, got, tt.expected)
			}
		})
	}
}

func TestSandboxRejectsForeignOrigin(t *testing.T) {
	r, _ := setupRouter(t)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/sandbox"
	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err == nil {
		conn.Close()
		t.Fatal("expected handshake to fail for a foreign origin")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 response, got %v", resp)
	}

	header.Set("Origin", "http://localhost:5173")
	conn, _, err = websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("localhost origin should connect: %v", err)
	}
	conn.Close()
}

func TestSandboxStreamsStages(t *testing.T) {
	conn, _ := dialSandbox(t)

	img := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png"))
	if err := conn.WriteJSON(map[string]string{"image": img, "module": "FREIGHT"}); err != nil {
		t.Fatal(err)
	}

	var stages []Stage
	for {
		var ev sandboxEvent
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read: %v", err)
		}
		if ev.Type == "status" {
			stages = append(stages, ev.Stage)
			continue
		}
		if ev.Type != "result" {
			t.Fatalf("unexpected event %+v", ev)
		}
		if ev.Result == nil || ev.Result.Suggestions["sender_name"] != "$.sender.name" {
			t.Errorf("result = %+v", ev.Result)
		}
		break
	}
	if len(stages) != 3 || stages[0] != StageResolving || stages[2] != StageSuggesting {
		t.Errorf("stages = %v", stages)
	}
}

func TestSandboxErrors(t *testing.T) {
	conn, f := dialSandbox(t)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatal(err)
	}
	var ev sandboxEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != "error" || ev.Error != "invalid message format" {
		t.Errorf("event = %+v", ev)
	}

	conn.WriteJSON(map[string]string{"module": "FREIGHT"})
	ev = sandboxEvent{}
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != "error" || ev.Error != "image is required" {
		t.Errorf("event = %+v", ev)
	}

	f.ex.fail(llm.ErrRefusal)
	conn.WriteJSON(map[string]string{"image": base64.StdEncoding.EncodeToString([]byte("png"))})
	for {
		ev = sandboxEvent{}
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatal(err)
		}
		if ev.Type != "status" {
			break
		}
	}
	if ev.Type != "error" || ev.Code != http.StatusBadGateway {
		t.Errorf("event = %+v", ev)
	}
}
