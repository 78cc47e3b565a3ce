package ingestion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// Importer is the part of Service the HTTP handlers need.
type Importer interface {
	Import(ctx context.Context, req ImportRequest) (Summary, error)
	Revalidate(ctx context.Context, sheetID string) (Summary, error)
}

// Handler exposes ingestion as an HTTP endpoint.
type Handler struct {
	service Importer
}

// NewHTTPHandler wraps the service with a multipart POST endpoint.
func NewHTTPHandler(service Importer) http.Handler {
	return &Handler{service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, fmt.Sprintf("invalid form data: %v", err), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, fmt.Sprintf("file required: %v", err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	workbookID := strings.TrimSpace(r.FormValue("workbookId"))
	if workbookID == "" {
		http.Error(w, "workbookId is required", http.StatusBadRequest)
		return
	}
	sheetSlug := strings.TrimSpace(r.FormValue("sheet"))
	if sheetSlug == "" {
		http.Error(w, "sheet is required", http.StatusBadRequest)
		return
	}

	var headerRow *int
	if raw := strings.TrimSpace(r.FormValue("headerRow")); raw != "" {
		idx, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid headerRow: %v", err), http.StatusBadRequest)
			return
		}
		headerRow = &idx
	}

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to read file: %v", err), http.StatusBadRequest)
		return
	}

	summary, err := h.service.Import(r.Context(), ImportRequest{
		WorkbookID:     workbookID,
		SheetSlug:      sheetSlug,
		FileName:       header.Filename,
		HeaderRowIndex: headerRow,
		Data:           bytes.NewReader(data),
	})
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ErrUnsupportedFormat) {
			status = http.StatusUnsupportedMediaType
		}
		http.Error(w, err.Error(), status)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// NewRevalidateHandler serves POST requests carrying ?sheetId=.
func NewRevalidateHandler(service Importer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		sheetID := strings.TrimSpace(r.URL.Query().Get("sheetId"))
		if sheetID == "" {
			http.Error(w, "sheetId is required", http.StatusBadRequest)
			return
		}

		summary, err := service.Revalidate(r.Context(), sheetID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
