package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/ziadkadry99/ocrstudio/internal/extract"
	"github.com/ziadkadry99/ocrstudio/internal/fields"
	"github.com/ziadkadry99/ocrstudio/internal/llm"
	"github.com/ziadkadry99/ocrstudio/internal/logger"
	"github.com/ziadkadry99/ocrstudio/internal/ocrconfig"
	"github.com/ziadkadry99/ocrstudio/internal/prompt"
	"github.com/ziadkadry99/ocrstudio/internal/suggest"
)

// DefaultMaxUpload bounds multipart uploads when no limit is configured.
const DefaultMaxUpload int64 = 10 << 20

// RouteOptions tunes the document endpoints.
type RouteOptions struct {
	// MaxUpload is the largest accepted upload in bytes; zero uses
	// DefaultMaxUpload.
	MaxUpload int64
	// AllowAllOrigins lets the sandbox socket accept any Origin. Otherwise
	// only localhost and 127.0.0.1 pages may connect.
	AllowAllOrigins bool
}

// RegisterRoutes mounts the document endpoints.
func RegisterRoutes(r chi.Router, svc *Service, opts RouteOptions) {
	maxUpload := opts.MaxUpload
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	upgrader := websocket.Upgrader{CheckOrigin: checkOrigin(opts.AllowAllOrigins)}

	r.Post("/api/ocr/suggest", handleSuggest(svc))
	r.Post("/api/ocr/apply", handleApply())
	r.Post("/api/ocr/test", handleTest(svc, maxUpload))
	r.Post("/api/ocr/process-document", handleProcess(svc, maxUpload))
	r.Get("/api/ocr/runs", handleRuns(svc))
	r.Get("/api/fields", handleFields(svc))
	r.Post("/api/prompts/preview", handlePreview())
	r.Get("/ws/sandbox", handleSandbox(svc, &upgrader, maxUpload))
}

type suggestRequest struct {
	Fields   []fields.Field  `json:"fields"`
	Document json.RawMessage `json:"document"`
}

type suggestResponse struct {
	Suggestions map[string]string    `json:"suggestions"`
	Ranked      []suggest.Suggestion `json:"ranked"`
}

func handleSuggest(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req suggestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			ocrconfig.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		list := req.Fields
		if list == nil {
			list = svc.Catalog()
		}

		ranked, err := suggest.Rank(list, documentBytes(req.Document))
		if err != nil {
			ocrconfig.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		out := suggestResponse{Suggestions: make(map[string]string, len(ranked)), Ranked: ranked}
		for _, s := range ranked {
			out.Suggestions[s.FieldID] = s.Path
		}
		ocrconfig.WriteJSON(w, http.StatusOK, out)
	}
}

type applyRequest struct {
	Document json.RawMessage    `json:"document"`
	Mappings ocrconfig.Mappings `json:"mappings"`
	Rules    json.RawMessage    `json:"validationRules"`
}

func handleApply() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req applyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			ocrconfig.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		rules, err := ocrconfig.ParseRules(req.Rules)
		if err != nil {
			ocrconfig.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		res := extract.Apply(documentBytes(req.Document), req.Mappings)
		res.Validate(rules)
		ocrconfig.WriteJSON(w, http.StatusOK, res)
	}
}

// documentBytes accepts a document sent either inline or as a JSON string
// holding the OCR output.
func documentBytes(raw json.RawMessage) []byte {
	var s string
	if len(raw) > 0 && raw[0] == '"' && json.Unmarshal(raw, &s) == nil {
		return []byte(s)
	}
	return raw
}

// readUpload parses a multipart form and returns the uploaded file plus
// the configuration key and prompt override.
func readUpload(w http.ResponseWriter, r *http.Request, maxUpload int64) (Request, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		return Request{}, fmt.Errorf("invalid upload: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return Request{}, errors.New("File is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return Request{}, fmt.Errorf("reading upload: %w", err)
	}

	req := Request{
		Key: ocrconfig.NewKey(r.FormValue("module"), r.FormValue("consignor"), r.FormValue("transporter")),
		Document: llm.Document{
			Name:     header.Filename,
			MIMEType: header.Header.Get("Content-Type"),
			Data:     data,
		},
	}
	if v := r.FormValue("overridePrompt"); v != "" {
		req.OverridePrompt = &v
	}
	if v := r.FormValue("overrideMappings"); v != "" {
		mappings, err := ocrconfig.ParseMappings([]byte(v))
		if err != nil {
			return Request{}, err
		}
		req.OverrideMappings = mappings
	}
	return req, nil
}

func handleTest(svc *Service, maxUpload int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := readUpload(w, r, maxUpload)
		if err != nil {
			ocrconfig.WriteError(w, uploadStatus(err), err.Error())
			return
		}

		res, err := svc.RunTest(r.Context(), req)
		if err != nil {
			writeFailure(w, r, err)
			return
		}
		ocrconfig.WriteJSON(w, http.StatusOK, res)
	}
}

func handleProcess(svc *Service, maxUpload int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := readUpload(w, r, maxUpload)
		if err != nil {
			ocrconfig.WriteError(w, uploadStatus(err), err.Error())
			return
		}
		if req.Key.Module == "" {
			ocrconfig.WriteError(w, http.StatusBadRequest, "Module is required")
			return
		}

		res, err := svc.ProcessDocument(r.Context(), req)
		if err != nil {
			writeFailure(w, r, err)
			return
		}
		ocrconfig.WriteJSON(w, http.StatusOK, res)
	}
}

// uploadStatus answers 413 for bodies over the upload limit and 400 for
// any other malformed upload.
func uploadStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// statusFor maps pipeline errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ocrconfig.ErrModuleRequired), errors.Is(err, llm.ErrUnsupportedDocument):
		return http.StatusBadRequest
	case errors.Is(err, llm.ErrRefusal), errors.Is(err, llm.ErrEmptyResponse), errors.Is(err, llm.ErrMalformedJSON):
		return http.StatusBadGateway
	case errors.Is(err, ErrNoProvider):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Int("status", status).Msg("processing document")
	}
	ocrconfig.WriteError(w, status, err.Error())
}

func handleRuns(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc.Runs() == nil {
			ocrconfig.WriteJSON(w, http.StatusOK, []Run{})
			return
		}
		q := r.URL.Query()
		filter := RunFilter{Module: q.Get("module"), Status: extract.Status(q.Get("status"))}
		if n, err := strconv.Atoi(q.Get("limit")); err == nil {
			filter.Limit = n
		}

		runs, err := svc.Runs().List(r.Context(), filter)
		if err != nil {
			ocrconfig.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		ocrconfig.WriteJSON(w, http.StatusOK, runs)
	}
}

func handleFields(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ocrconfig.WriteJSON(w, http.StatusOK, svc.Catalog())
	}
}

type previewResponse struct {
	HTML        string `json:"html"`
	FinalPrompt string `json:"finalPrompt"`
}

func handlePreview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			ocrconfig.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		html, err := prompt.Preview(req.Prompt)
		if err != nil {
			ocrconfig.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		ocrconfig.WriteJSON(w, http.StatusOK, previewResponse{HTML: html, FinalPrompt: prompt.Finalize(req.Prompt)})
	}
}
