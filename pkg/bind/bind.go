// Package bind decodes and validates an HTTP request body into a struct.
package bind

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/shashiranjanraj/giftkart/config"
	"github.com/shashiranjanraj/giftkart/pkg/apperr"
	"github.com/shashiranjanraj/giftkart/pkg/validate"
)

// maxBodyBytes returns the configured JSON body size limit (default 1 MB).
func maxBodyBytes() int64 {
	n := config.GetInt("MAX_BODY_BYTES", 1<<20)
	return int64(n)
}

// JSON decodes r.Body as JSON into dest and runs validation.
// The body is capped at MAX_BODY_BYTES.
// Returns (errs, nil) when there are validation failures.
// Returns (nil, err) with an apperr kind when the body is malformed or too large.
func JSON(w http.ResponseWriter, r *http.Request, dest any) (errs map[string]string, err error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes())

	if err = json.NewDecoder(r.Body).Decode(dest); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return nil, apperr.PayloadTooLarge("Request body too large (max %d bytes)", maxErr.Limit)
		case errors.Is(err, io.EOF):
			return nil, apperr.Validation("Request body is required")
		default:
			return nil, apperr.Validation("Invalid JSON: %v", err)
		}
	}

	errs = validate.Struct(dest)
	if validate.HasErrors(errs) {
		return errs, nil
	}
	return nil, nil
}
