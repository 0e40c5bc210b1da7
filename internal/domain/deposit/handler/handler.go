// Package handler exposes the deposit mapping operations over HTTP.
package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/mastanley13/commissable-crm/internal/domain/deposit/mapping"
	"github.com/mastanley13/commissable-crm/internal/domain/deposit/parser"
	"github.com/mastanley13/commissable-crm/internal/domain/deposit/service"
	"github.com/mastanley13/commissable-crm/pkg/httpx"
)

const maxUploadBytes = 32 << 20 // 32 MiB

// DepositHandler serves the upload analysis and mapping endpoints.
type DepositHandler struct {
	svc    *service.DepositService
	logger *slog.Logger
}

// NewDepositHandler constructs a new handler.
func NewDepositHandler(svc *service.DepositService, logger *slog.Logger) *DepositHandler {
	return &DepositHandler{svc: svc, logger: logger}
}

// Register mounts the deposit routes on the mux.
func (h *DepositHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/deposits/analyze", h.AnalyzeUpload)
	mux.HandleFunc("POST /v1/deposits/apply", h.ApplyMapping)
	mux.HandleFunc("POST /v1/deposits/templates", h.SaveTemplate)
	mux.HandleFunc("GET /v1/deposits/templates", h.ListTemplates)
	mux.HandleFunc("GET /v1/deposits/templates/{id}", h.GetTemplate)
}

// readUpload pulls the file part plus vendor context out of a multipart
// request.
func (h *DepositHandler) readUpload(r *http.Request) (service.UploadInput, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return service.UploadInput{}, fmt.Errorf("invalid multipart request: %w", err)
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		return service.UploadInput{}, errors.New("missing file part")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return service.UploadInput{}, fmt.Errorf("failed to read upload: %w", err)
	}

	return service.UploadInput{
		FileName:        fileHeader.Filename,
		MimeType:        fileHeader.Header.Get("Content-Type"),
		Data:            data,
		DistributorName: r.FormValue("distributorName"),
		VendorName:      r.FormValue("vendorName"),
	}, nil
}

// AnalyzeUpload parses an uploaded report and returns the seeded mapping,
// suggestions, and a data preview.
func (h *DepositHandler) AnalyzeUpload(w http.ResponseWriter, r *http.Request) {
	input, err := h.readUpload(r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.svc.AnalyzeUpload(r.Context(), input)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, newAnalyzeResponse(result))
}

// ApplyMapping runs a mapping over an uploaded report and returns the
// converted line items.
func (h *DepositHandler) ApplyMapping(w http.ResponseWriter, r *http.Request) {
	input, err := h.readUpload(r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	rawMapping := r.FormValue("mapping")
	if rawMapping == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing mapping part")
		return
	}
	cfg, err := mapping.DecodeTemplateConfig([]byte(rawMapping))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid mapping: "+err.Error())
		return
	}

	if raw := r.FormValue("uploadId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid uploadId")
			return
		}
		input.UploadID = id
	}

	result, err := h.svc.ApplyMapping(r.Context(), input, cfg)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, newApplyResponse(result))
}

type saveTemplateRequest struct {
	DistributorName string          `json:"distributorName"`
	VendorName      string          `json:"vendorName"`
	TemplateMapName string          `json:"templateMapName"`
	Mapping         *mapping.Config `json:"mapping"`
}

// SaveTemplate persists a mapping for a distributor/vendor pair.
func (h *DepositHandler) SaveTemplate(w http.ResponseWriter, r *http.Request) {
	var req saveTemplateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.DistributorName == "" || req.VendorName == "" {
		httpx.WriteError(w, http.StatusBadRequest, "distributorName and vendorName are required")
		return
	}
	if req.Mapping == nil {
		httpx.WriteError(w, http.StatusBadRequest, "mapping is required")
		return
	}

	id, err := h.svc.SaveTemplate(r.Context(), req.DistributorName, req.VendorName, req.TemplateMapName, req.Mapping)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]string{"templateId": id.String()})
}

// ListTemplates returns the saved templates without their config blobs.
func (h *DepositHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.svc.ListTemplates(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newTemplateListResponse(templates))
}

// GetTemplate returns one saved template with its decoded mapping.
func (h *DepositHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid template id")
		return
	}

	tpl, cfg, err := h.svc.GetTemplate(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if tpl == nil {
		httpx.WriteError(w, http.StatusNotFound, "template not found")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newTemplateDetailResponse(tpl, cfg))
}

// writeServiceError maps format errors to 400 and everything else to 500.
func (h *DepositHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, parser.ErrUnsupportedType),
		errors.Is(err, parser.ErrEmptyFile),
		errors.Is(err, parser.ErrMissingHeaderRow),
		errors.Is(err, parser.ErrEncryptedPDF),
		errors.Is(err, parser.ErrNoTextContent),
		errors.Is(err, parser.ErrNoTableStructure),
		errors.Is(err, parser.ErrNoDataRows):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("request failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
