package security

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hyuon7877/onesquare-sub001/internal/config"
)

const (
	// maxJSONDepth bounds recursive body walking so a crafted deeply
	// nested payload cannot blow the stack.
	maxJSONDepth = 10
	// maxScanBytes bounds how much body is read for inspection.
	maxScanBytes = 1 << 20
	// maxMultipartMemory matches gin's default.
	maxMultipartMemory = 32 << 20
)

// spoofableHeaders are request headers an attacker controls that some
// frameworks consult for URL or host resolution.
var spoofableHeaders = []string{"X-Forwarded-Host", "X-Original-URL", "X-Rewrite-URL"}

// Validator decides whether a single request carries a known attack
// signature. It is stateless; callers log and reject.
type Validator struct {
	enabled bool
}

// NewValidator builds a Validator from security configuration.
func NewValidator(cfg config.SecurityConfig) *Validator {
	return &Validator{enabled: cfg.InputValidation}
}

// Enabled reports whether validation is switched on.
func (v *Validator) Enabled() bool { return v.enabled }

// Validate scans the URL path, query parameters, spoofable headers and
// the request body (JSON, urlencoded form or multipart upload) and
// returns the first match. Values are percent-decoded before matching
// so encoded payloads cannot slip through.
func (v *Validator) Validate(r *http.Request) *ValidationError {
	if !v.enabled {
		return nil
	}

	if verr := scanString(r.URL.Path, "path"); verr != nil {
		return verr
	}

	for key, vals := range r.URL.Query() {
		for _, val := range vals {
			if verr := scanString(val, "query:"+key); verr != nil {
				return verr
			}
		}
	}

	for _, h := range spoofableHeaders {
		if verr := scanString(r.Header.Get(h), "header:"+h); verr != nil {
			return verr
		}
	}

	return v.validateBody(r)
}

func (v *Validator) validateBody(r *http.Request) *ValidationError {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}

	ct := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(ct, "multipart/form-data"):
		return v.validateMultipart(r)
	case strings.Contains(ct, "application/json"):
		return v.validateJSON(r)
	case strings.HasPrefix(ct, "application/x-www-form-urlencoded"):
		return v.validateForm(r)
	default:
		return nil
	}
}

func (v *Validator) validateJSON(r *http.Request) *ValidationError {
	raw, verr := readAndRestore(r)
	if verr != nil {
		return verr
	}
	var payload interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		// Ambiguity is fail-closed: a body that claims to be JSON but
		// does not parse never reaches a handler.
		return &ValidationError{Rule: "unparseable json body", Location: "body"}
	}
	return scanJSON(payload, 0, "body")
}

func (v *Validator) validateForm(r *http.Request) *ValidationError {
	raw, verr := readAndRestore(r)
	if verr != nil {
		return verr
	}
	values, err := url.ParseQuery(string(raw))
	if err != nil {
		return &ValidationError{Rule: "unparseable form body", Location: "body"}
	}
	for key, vals := range values {
		for _, val := range vals {
			if e := scanString(val, "form:"+key); e != nil {
				return e
			}
		}
	}
	return nil
}

func (v *Validator) validateMultipart(r *http.Request) *ValidationError {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return &ValidationError{Rule: "unparseable multipart body", Location: "body"}
	}
	for key, vals := range r.MultipartForm.Value {
		for _, val := range vals {
			if e := scanString(val, "form:"+key); e != nil {
				return e
			}
		}
	}
	for field, files := range r.MultipartForm.File {
		for _, fh := range files {
			if e := checkUpload(fh, "file:"+field); e != nil {
				return e
			}
		}
	}
	return nil
}

// scanJSON walks decoded JSON to maxJSONDepth. Deeper levels are left
// unscanned to bound cost.
func scanJSON(val interface{}, depth int, location string) *ValidationError {
	if depth > maxJSONDepth {
		return nil
	}
	switch t := val.(type) {
	case string:
		return scanString(t, location)
	case map[string]interface{}:
		for key, inner := range t {
			if e := scanString(key, location); e != nil {
				return e
			}
			if e := scanJSON(inner, depth+1, location+"."+key); e != nil {
				return e
			}
		}
	case []interface{}:
		for _, inner := range t {
			if e := scanJSON(inner, depth+1, location); e != nil {
				return e
			}
		}
	}
	return nil
}

// scanString matches both the raw value and its percent-decoded form.
func scanString(s, location string) *ValidationError {
	if verr := matchValue(s, location); verr != nil {
		return verr
	}
	if decoded, err := url.QueryUnescape(s); err == nil && decoded != s {
		return matchValue(decoded, location)
	}
	return nil
}

// readAndRestore reads up to maxScanBytes of the body for inspection
// and stitches the scanned prefix back in front of the unread remainder,
// so downstream handlers see the byte-identical stream even when the
// body exceeds the scan bound.
func readAndRestore(r *http.Request) ([]byte, *ValidationError) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxScanBytes))
	if err != nil {
		return nil, &ValidationError{Rule: "unreadable body", Location: "body"}
	}
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(raw), r.Body))
	return raw, nil
}
