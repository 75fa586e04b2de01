package ocrconfig

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/ziadkadry99/ocrstudio/internal/fields"
	"github.com/ziadkadry99/ocrstudio/internal/logger"
)

// RegisterRoutes mounts configuration endpoints under /api/ocr. catalog
// seeds the mappings of the default skeleton.
func RegisterRoutes(r chi.Router, store *Store, catalog []fields.Field) {
	r.Get("/api/ocr/config", handleGet(store, catalog))
	r.Post("/api/ocr/config", handleSave(store))
	r.Delete("/api/ocr/config", handleDeactivate(store))
	r.Post("/api/ocr/config/clone", handleClone(store))
	r.Get("/api/ocr/configs", handleList(store))
	r.Get("/api/ocr/configs/{id}", handleGetByID(store))
}

// Skeleton is returned in place of a 404 when the caller asks for a
// default configuration.
type Skeleton struct {
	ModuleCode      string   `json:"moduleCode"`
	ConsignorCode   string   `json:"consignorCode,omitempty"`
	TransporterCode string   `json:"transporterCode,omitempty"`
	Level           Level    `json:"level"`
	Prompt          *string  `json:"prompt"`
	Mappings        Mappings `json:"fieldMappings"`
	IsNew           bool     `json:"isNew"`
}

// NewSkeleton builds the default configuration shown for a key that has
// nothing stored.
func NewSkeleton(key Key, catalog []fields.Field) Skeleton {
	return Skeleton{
		ModuleCode:      key.Module,
		ConsignorCode:   key.Consignor,
		TransporterCode: key.Transporter,
		Level:           key.Level(),
		Mappings:        DefaultMappings(catalog),
		IsNew:           true,
	}
}

func keyFromQuery(r *http.Request) Key {
	q := r.URL.Query()
	return NewKey(q.Get("module"), q.Get("consignor"), q.Get("transporter"))
}

func handleGet(store *Store, catalog []fields.Field) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := keyFromQuery(r)
		if err := key.Validate(); err != nil {
			WriteError(w, http.StatusBadRequest, "Module code is required")
			return
		}

		cfg, err := Resolve(r.Context(), store, key)
		if errors.Is(err, ErrNotFound) {
			if wantDefault, _ := strconv.ParseBool(r.URL.Query().Get("default")); wantDefault {
				WriteJSON(w, http.StatusOK, NewSkeleton(key, catalog))
				return
			}
			WriteError(w, http.StatusNotFound, "No configuration found")
			return
		}
		if err != nil {
			log := logger.FromContext(r.Context())
			log.Error().Err(err).Msg("resolving configuration")
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}

		WriteJSON(w, http.StatusOK, cfg)
	}
}

type saveRequest struct {
	Module          string          `json:"module"`
	ModuleCode      string          `json:"moduleCode"`
	Consignor       string          `json:"consignor"`
	ConsignorCode   string          `json:"consignorCode"`
	Transporter     string          `json:"transporter"`
	TransporterCode string          `json:"transporterCode"`
	Prompt          *string         `json:"prompt"`
	FieldMappings   json.RawMessage `json:"fieldMappings"`
	ValidationRules json.RawMessage `json:"validationRules"`
	UpdatedBy       string          `json:"updatedBy"`
}

func (req saveRequest) key() Key {
	return NewKey(
		firstNonEmpty(req.ModuleCode, req.Module),
		firstNonEmpty(req.ConsignorCode, req.Consignor),
		firstNonEmpty(req.TransporterCode, req.Transporter),
	)
}

func handleSave(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req saveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		in := UpsertInput{
			Key:       req.key(),
			Prompt:    req.Prompt,
			UpdatedBy: actor(r, req.UpdatedBy),
		}
		if err := in.Key.Validate(); err != nil {
			WriteError(w, http.StatusBadRequest, "Module is required")
			return
		}
		if len(req.FieldMappings) > 0 && string(req.FieldMappings) != "null" {
			mappings, err := ParseMappings(req.FieldMappings)
			if err != nil {
				WriteError(w, http.StatusBadRequest, err.Error())
				return
			}
			in.Mappings = mappings
		}
		if len(req.ValidationRules) > 0 && string(req.ValidationRules) != "null" {
			rules, err := ParseRules(req.ValidationRules)
			if err != nil {
				WriteError(w, http.StatusBadRequest, err.Error())
				return
			}
			in.Rules = rules
		}

		cfg, err := store.Upsert(r.Context(), in)
		if err != nil {
			log := logger.FromContext(r.Context())
			log.Error().Err(err).Str("key", in.Key.String()).Msg("saving configuration")
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}

		WriteJSON(w, http.StatusOK, cfg)
	}
}

func handleDeactivate(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := keyFromQuery(r)
		if err := key.Validate(); err != nil {
			WriteError(w, http.StatusBadRequest, "Module code is required")
			return
		}

		err := store.Deactivate(r.Context(), key, actor(r, r.URL.Query().Get("updatedBy")))
		if errors.Is(err, ErrNotFound) {
			WriteError(w, http.StatusNotFound, "No configuration found")
			return
		}
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

type cloneRequest struct {
	Source    Key    `json:"source"`
	Targets   []Key  `json:"targets"`
	UpdatedBy string `json:"updatedBy"`
}

func handleClone(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req cloneRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		source := NewKey(req.Source.Module, req.Source.Consignor, req.Source.Transporter)
		targets := make([]Key, 0, len(req.Targets))
		for _, t := range req.Targets {
			k := NewKey(t.Module, t.Consignor, t.Transporter)
			if err := k.Validate(); err != nil {
				WriteError(w, http.StatusBadRequest, "every target needs a module code")
				return
			}
			targets = append(targets, k)
		}
		if len(targets) == 0 {
			WriteError(w, http.StatusBadRequest, "at least one target is required")
			return
		}

		cloned, err := store.Clone(r.Context(), source, targets, actor(r, req.UpdatedBy))
		if errors.Is(err, ErrNotFound) {
			WriteError(w, http.StatusNotFound, "No configuration found")
			return
		}
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}

		WriteJSON(w, http.StatusOK, cloned)
	}
}

func handleList(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		includeInactive, _ := strconv.ParseBool(q.Get("include_inactive"))

		configs, err := store.List(r.Context(), ListFilter{
			Module:          q.Get("module"),
			Consignor:       q.Get("consignor"),
			Transporter:     q.Get("transporter"),
			IncludeInactive: includeInactive,
		})
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}

		WriteJSON(w, http.StatusOK, configs)
	}
}

func handleGetByID(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg, err := store.Get(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, ErrNotFound) {
			WriteError(w, http.StatusNotFound, "No configuration found")
			return
		}
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}

		WriteJSON(w, http.StatusOK, cfg)
	}
}

// actor picks the user recorded for a change: the explicit value from the
// request, else the X-User header set by the console.
func actor(r *http.Request, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return r.Header.Get("X-User")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// WriteJSON encodes v as the response body.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteError writes {"error": msg}.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"error": msg})
}
