package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/ziadkadry99/ocrstudio/internal/prompt"
)

var (
	// ErrRefusal is returned when the model declines to read the document.
	ErrRefusal = errors.New("model refused the request")
	// ErrEmptyResponse is returned when the model answers with no content.
	ErrEmptyResponse = errors.New("no content returned from model")
	// ErrMalformedJSON is returned when the answer is not a JSON document.
	ErrMalformedJSON = errors.New("model returned malformed JSON")
	// ErrUnsupportedDocument is returned for documents the model cannot read.
	ErrUnsupportedDocument = errors.New("unsupported document type")
)

// Document is an uploaded file to run through OCR.
type Document struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Extraction is the raw OCR output for one document.
type Extraction struct {
	Raw          json.RawMessage `json:"rawOcrOutput"`
	Model        string          `json:"model"`
	InputTokens  int             `json:"inputTokens"`
	OutputTokens int             `json:"outputTokens"`
	Cost         float64         `json:"cost"`
	FinishReason string          `json:"finishReason,omitempty"`
}

// Extractor turns documents into JSON with a vision model.
type Extractor struct {
	provider  Provider
	model     string
	maxTokens int
}

// NewExtractor creates an Extractor. An empty model defers to the provider default.
func NewExtractor(provider Provider, model string) *Extractor {
	return &Extractor{provider: provider, model: model, maxTokens: 4096}
}

// Provider returns the underlying provider.
func (e *Extractor) Provider() Provider {
	return e.provider
}

// Extract sends doc with the given instructions and returns the model's JSON.
// The JSON-only suffix is always appended to the instructions.
func (e *Extractor) Extract(ctx context.Context, doc Document, instructions string) (*Extraction, error) {
	if len(doc.Data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrUnsupportedDocument)
	}
	mime := doc.MIMEType
	if mime == "" || mime == "application/octet-stream" {
		mime = DetectMIMEType(doc.Name, doc.Data)
	}
	if !Supported(mime) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDocument, mime)
	}

	resp, err := e.provider.Complete(ctx, CompletionRequest{
		Model:     e.model,
		MaxTokens: e.maxTokens,
		JSONMode:  true,
		Messages: []Message{{
			Role:    RoleUser,
			Content: prompt.Finalize(instructions),
			Images:  []Image{{MIMEType: mime, Data: doc.Data}},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("%s extraction: %w", e.provider.Name(), err)
	}
	if resp.Refusal != "" {
		return nil, fmt.Errorf("%w: %s", ErrRefusal, resp.Refusal)
	}

	raw, err := parseJSON(resp.Content)
	if err != nil {
		if errors.Is(err, ErrEmptyResponse) {
			return nil, fmt.Errorf("%w. Reason: %s", err, resp.FinishReason)
		}
		return nil, err
	}

	model := resp.Model
	if model == "" {
		model = e.model
	}
	return &Extraction{
		Raw:          raw,
		Model:        model,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
		Cost:         EstimateCost(model, resp.InputTokens, resp.OutputTokens),
		FinishReason: resp.FinishReason,
	}, nil
}

// parseJSON strips an optional markdown fence and validates the payload.
func parseJSON(content string) (json.RawMessage, error) {
	s := strings.TrimSpace(content)
	if s == "" {
		return nil, ErrEmptyResponse
	}
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = ""
		}
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
		if s == "" {
			return nil, ErrEmptyResponse
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(s)); err != nil {
		return nil, fmt.Errorf("%w: %.80q", ErrMalformedJSON, s)
	}
	return buf.Bytes(), nil
}

var extMIME = map[string]string{
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".pdf":  "application/pdf",
}

// DetectMIMEType guesses a document's type from its extension, then its
// content, defaulting to JPEG.
func DetectMIMEType(name string, data []byte) string {
	if mime, ok := extMIME[strings.ToLower(filepath.Ext(name))]; ok {
		return mime
	}
	if len(data) > 0 {
		sniffed := http.DetectContentType(data)
		if Supported(sniffed) {
			return sniffed
		}
	}
	return "image/jpeg"
}

// Supported reports whether mime is a type providers accept.
func Supported(mime string) bool {
	for _, m := range extMIME {
		if m == mime {
			return true
		}
	}
	return false
}
