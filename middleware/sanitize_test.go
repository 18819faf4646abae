package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        string
		wantJSON    bool
	}{
		{
			name:        "operator keys dropped",
			contentType: "application/json",
			body:        `{"email":{"$gt":""},"password":"x","profile":{"a.b":"1","city":"Lisbon"},"$where":"1"}`,
			want:        `{"email":{},"password":"x","profile":{"city":"Lisbon"}}`,
			wantJSON:    true,
		},
		{
			name:        "nested arrays",
			contentType: "application/json; charset=utf-8",
			body:        `{"list":[{"$ne":1,"ok":2}],"n":12345678901234567890}`,
			want:        `{"list":[{"ok":2}],"n":12345678901234567890}`,
			wantJSON:    true,
		},
		{
			name:        "invalid json untouched",
			contentType: "application/json",
			body:        `{"email":`,
			want:        `{"email":`,
		},
		{
			name:        "non json untouched",
			contentType: "text/plain",
			body:        `{"$gt":1}`,
			want:        `{"$gt":1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []byte
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var err error
				got, err = io.ReadAll(r.Body)
				require.NoError(t, err)
				assert.Equal(t, int64(len(got)), r.ContentLength)
			})
			req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)

			Sanitize(next).ServeHTTP(httptest.NewRecorder(), req)

			if tt.wantJSON {
				assert.JSONEq(t, tt.want, string(got))
				return
			}
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestSanitize_BodyTooLarge(t *testing.T) {
	limit := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, 8)
			next.ServeHTTP(w, r)
		})
	}
	var readErr error
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		readErr = json.NewDecoder(r.Body).Decode(&map[string]interface{}{})
	})
	req := httptest.NewRequest(http.MethodPost, "/api/books/create", strings.NewReader(`{"title":"a very long title"}`))
	req.Header.Set("Content-Type", "application/json")

	limit(Sanitize(next)).ServeHTTP(httptest.NewRecorder(), req)

	var tooLarge *http.MaxBytesError
	assert.ErrorAs(t, readErr, &tooLarge)
}
