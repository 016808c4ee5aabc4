package api

import (
	"errors"
	"net/http"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/adapters/csvimport"
	service "github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/app"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/docsfilter"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/meetctx"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/model"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest  = errors.New("bad request")
	ErrRateLimited = errors.New("アクセスが集中しています")
)

var badRequestKinds = []error{
	ErrBadRequest,
	service.ErrInvalidInput,
	docsfilter.ErrInvalidFilter,
	model.ErrInvalidRow,
	model.ErrInvalidProgram,
	model.ErrInvalidGender,
	meetctx.ErrInvalidWeekday,
	meetctx.ErrInvalidContext,
	csvimport.ErrUndecodableEncoding,
	csvimport.ErrMissingColumns,
	csvimport.ErrCannotDeriveMeetContext,
	csvimport.ErrCannotExtractDistance,
	csvimport.ErrIncompleteRow,
	csvimport.ErrNoValidRows,
}

// statusOf maps an error to its HTTP status and response code.
func statusOf(err error) (int, string) {
	for _, kind := range badRequestKinds {
		if errors.Is(err, kind) {
			return http.StatusBadRequest, "bad_request"
		}
	}
	switch {
	case errors.Is(err, service.ErrNoData):
		return http.StatusNotFound, "no_data"
	case errors.Is(err, service.ErrRateLimited), errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	}
	return http.StatusInternalServerError, "internal_error"
}
