package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/adapters/csvimport"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/meetctx"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/model"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/pkg/logger"
)

// ImportHandler handles CSV preview and import confirmation.
type ImportHandler struct {
	deps           Dependencies
	maxUploadBytes int64
	logger         logger.Logger
}

type confirmRequest struct {
	Rows []model.ImportRow `json:"rows"`
}

// HandlePreview handles POST /import/{program}/preview. The body is a
// multipart form with one or more "file" parts and optional year, month
// and weekday fields naming the meet.
func (h *ImportHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	const op = "api.import_preview"
	program, err := programOf(r)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, op, err)
		return
	}

	if r.ContentLength > h.maxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", fmt.Errorf("%w: upload larger than %d bytes", ErrBadRequest, h.maxUploadBytes))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", err)
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	mc, err := meetContextOf(r)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, op, err)
		return
	}

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: file is required", ErrBadRequest))
		return
	}
	uploads := make([]csvimport.Upload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			writeFailure(r.Context(), w, h.logger, op, err)
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			writeFailure(r.Context(), w, h.logger, op, err)
			return
		}
		uploads = append(uploads, csvimport.Upload{Name: fh.Filename, Data: data, Context: mc})
	}

	preview, err := h.deps.PreviewImport(r.Context(), program, uploads)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

// meetContextOf reads the optional meet context form fields.
func meetContextOf(r *http.Request) (*meetctx.Context, error) {
	year := strings.TrimSpace(r.FormValue("year"))
	month := strings.TrimSpace(r.FormValue("month"))
	weekday := strings.TrimSpace(r.FormValue("weekday"))
	if year == "" && month == "" && weekday == "" {
		return nil, nil
	}

	y, err := strconv.Atoi(year)
	if err != nil {
		return nil, fmt.Errorf("%w: year %q", ErrBadRequest, year)
	}
	m, err := strconv.Atoi(month)
	if err != nil {
		return nil, fmt.Errorf("%w: month %q", ErrBadRequest, month)
	}
	mc := &meetctx.Context{Year: y, Month: m}
	if weekday != "" {
		wd, err := meetctx.ParseWeekday(weekday)
		if err != nil {
			return nil, err
		}
		mc.Weekday = wd
	}
	if err := mc.Validate(); err != nil {
		return nil, err
	}
	return mc, nil
}

// HandleConfirm handles POST /import/{program}/confirm with a JSON body
// of previewed rows.
func (h *ImportHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	const op = "api.import_confirm"
	program, err := programOf(r)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, op, err)
		return
	}

	var req confirmRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxUploadBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}

	summary, err := h.deps.ConfirmImport(r.Context(), program, req.Rows)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
