package pipeline

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/ziadkadry99/ocrstudio/internal/llm"
	"github.com/ziadkadry99/ocrstudio/internal/logger"
	"github.com/ziadkadry99/ocrstudio/internal/ocrconfig"
)

// checkOrigin mirrors the CORS policy of the HTTP API. Requests without an
// Origin header come from non-browser clients and are let through.
func checkOrigin(allowAll bool) func(*http.Request) bool {
	return func(r *http.Request) bool {
		if allowAll {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return false
		}
		switch u.Hostname() {
		case "localhost", "127.0.0.1":
			return true
		}
		return false
	}
}

// sandboxRequest is the incoming WebSocket message format.
type sandboxRequest struct {
	Image       string  `json:"image"` // data URI or bare base64
	MIMEType    string  `json:"mimeType"`
	Name        string  `json:"name"`
	Prompt      *string `json:"prompt"`
	Module      string  `json:"module"`
	Consignor   string  `json:"consignor"`
	Transporter string  `json:"transporter"`
}

// sandboxEvent is the outgoing WebSocket message format.
type sandboxEvent struct {
	Type   string      `json:"type"` // "status", "result" or "error"
	Stage  Stage       `json:"stage,omitempty"`
	Result *TestResult `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
	Code   int         `json:"code,omitempty"`
}

// decodeImage splits a data URI or decodes bare base64.
func decodeImage(s, mime string) ([]byte, string, error) {
	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		meta, payload, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(meta, ";base64") {
			return nil, "", errors.New("image must be a base64 data URI")
		}
		if mime == "" {
			mime = strings.TrimSuffix(meta, ";base64")
		}
		s = payload
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, "", errors.New("image is not valid base64")
	}
	return data, mime, nil
}

func handleSandbox(svc *Service, upgrader *websocket.Upgrader, maxUpload int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Msg("sandbox: websocket upgrade")
			return
		}
		defer conn.Close()
		// Base64 inflates uploads by a third.
		conn.SetReadLimit(maxUpload*4/3 + 4096)

		send := func(ev sandboxEvent) bool {
			if err := conn.WriteJSON(ev); err != nil {
				log.Warn().Err(err).Msg("sandbox: websocket write")
				return false
			}
			return true
		}

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Msg("sandbox: websocket read")
				}
				return
			}

			var req sandboxRequest
			if err := json.Unmarshal(msg, &req); err != nil {
				send(sandboxEvent{Type: "error", Error: "invalid message format", Code: http.StatusBadRequest})
				continue
			}
			data, mime, err := decodeImage(req.Image, req.MIMEType)
			if err != nil || len(data) == 0 {
				text := "image is required"
				if err != nil {
					text = err.Error()
				}
				send(sandboxEvent{Type: "error", Error: text, Code: http.StatusBadRequest})
				continue
			}

			res, err := svc.RunTest(r.Context(), Request{
				Key:            ocrconfig.NewKey(req.Module, req.Consignor, req.Transporter),
				Document:       llm.Document{Name: req.Name, MIMEType: mime, Data: data},
				OverridePrompt: req.Prompt,
				Progress: func(s Stage) {
					send(sandboxEvent{Type: "status", Stage: s})
				},
			})
			if err != nil {
				if !send(sandboxEvent{Type: "error", Error: err.Error(), Code: statusFor(err)}) {
					return
				}
				continue
			}
			if !send(sandboxEvent{Type: "result", Result: res}) {
				return
			}
		}
	}
}
