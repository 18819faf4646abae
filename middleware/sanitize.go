package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/kevinaaaquil/bookswap/utils"
)

// Sanitize drops query-operator keys ("$..." and dotted paths) from JSON request bodies.
// Bodies that are not JSON, or do not parse, are passed on untouched for the handler to
// reject.
func Sanitize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body == nil || r.Body == http.NoBody || !isJSON(r.Header.Get("Content-Type")) {
			next.ServeHTTP(w, r)
			return
		}
		raw, err := io.ReadAll(r.Body)
		r.Body.Close()
		if err != nil {
			// Typically the MaxBytesReader limit; let the handler see the same failure.
			r.Body = io.NopCloser(&errReader{err: err})
			next.ServeHTTP(w, r)
			return
		}

		body := raw
		var v interface{}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if dec.Decode(&v) == nil {
			if clean, err := json.Marshal(utils.StripOperators(v)); err == nil {
				body = clean
			}
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		r.ContentLength = int64(len(body))
		r.Header.Set("Content-Length", strconv.Itoa(len(body)))
		next.ServeHTTP(w, r)
	})
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "application/json"
}

type errReader struct{ err error }

func (e *errReader) Read([]byte) (int, error) { return 0, e.err }
