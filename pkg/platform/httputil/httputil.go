// Package httputil holds the JSON response helpers and request body decoding
// shared by every handler, and is the single place where domain errors are
// translated into HTTP status codes.
package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	dErrors "bonds/pkg/domain-errors"
	"bonds/pkg/validation"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the envelope for non-validation errors.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON writes v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates err into a response. Validation errors are returned
// as a field map. Internal errors never carry a description so upstream and
// storage details do not leak to clients.
func WriteError(w http.ResponseWriter, err error) {
	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		WriteJSON(w, http.StatusBadRequest, fieldErrs)
		return
	}

	var de *dErrors.Error
	if !errors.As(err, &de) {
		WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: string(dErrors.CodeInternal)})
		return
	}

	resp := ErrorResponse{Error: string(de.Code)}
	if de.Code != dErrors.CodeInternal {
		resp.ErrorDescription = de.Message
	}
	WriteJSON(w, StatusFor(de.Code), resp)
}

// StatusFor maps a domain error code to its HTTP status.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeUpstreamTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// DecodeFields reads a JSON object or a form-encoded body into a field map.
// JSON numbers are kept as json.Number so integer parsing stays exact. For
// repeated form keys the last value wins. An empty body decodes to an empty
// map.
func DecodeFields(r *http.Request) (map[string]any, error) {
	mediaType := "application/json"
	if ct := r.Header.Get("Content-Type"); ct != "" {
		parsed, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeBadRequest, "invalid content type")
		}
		mediaType = parsed
	}

	switch {
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		return decodeJSONObject(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	case mediaType == "application/x-www-form-urlencoded":
		r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid form body")
		}
		return lastValues(r.PostForm), nil
	case mediaType == "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid multipart body")
		}
		return lastValues(r.MultipartForm.Value), nil
	default:
		return nil, dErrors.New(dErrors.CodeBadRequest, "unsupported media type \""+mediaType+"\"")
	}
}

func decodeJSONObject(body io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "JSON parse error")
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		errs := validation.Errors{}
		errs.Add(validation.NonFieldErrors, "Invalid data. Expected a dictionary.")
		return nil, errs
	}
	return obj, nil
}

func lastValues(values map[string][]string) map[string]any {
	out := make(map[string]any, len(values))
	for key, vals := range values {
		if len(vals) > 0 {
			out[key] = vals[len(vals)-1]
		}
	}
	return out
}
