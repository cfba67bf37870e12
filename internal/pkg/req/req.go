/*
Package req provides helper functions for HTTP request parsing and data binding.

It encapsulates strict JSON decoding of request bodies so handlers receive
well-formed input or a classified error, never a half-decoded struct.
*/
package req

import (
	"encoding/json"
	"net/http"
	"strings"

	"geodispatch/internal/pkg/errs"
)

// MaxBodyBytes defines the maximum allowed size (64 KB) for a JSON request body.
// Registration and send requests are small; anything larger is abuse.
const MaxBodyBytes int64 = 64 << 10

// BindJSON attempts to bind the JSON data from the HTTP request body to the destination struct dst.
// Unknown fields and trailing content are rejected.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}
