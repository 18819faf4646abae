package utils

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Dune  ", "Dune"},
		{"<script>alert(1)</script>Dune", "Dune"},
		{"<b>Frank</b> Herbert", "Frank Herbert"},
		{"Tom & Jerry", "Tom & Jerry"},
		{"<img src=x onerror=alert(1)>", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeText(tt.in), tt.in)
	}
}

func TestStripOperators(t *testing.T) {
	in := map[string]interface{}{
		"email":    map[string]interface{}{"$gt": ""},
		"$where":   "1 == 1",
		"a.b":      "x",
		"password": "Abcdef12",
		"list":     []interface{}{map[string]interface{}{"$ne": 1, "ok": true}},
	}
	got := StripOperators(in)
	assert.Equal(t, map[string]interface{}{
		"email":    map[string]interface{}{},
		"password": "Abcdef12",
		"list":     []interface{}{map[string]interface{}{"ok": true}},
	}, got)
	assert.Equal(t, "plain", StripOperators("plain"))
}

func TestLoadImage(t *testing.T) {
	raw := pngBytes(t)
	b64 := base64.StdEncoding.EncodeToString(raw)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/cover.png":
			w.Write(raw)
		case "/page":
			w.Write([]byte("<html>not an image</html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	// httptest listens on loopback, which the production client refuses.
	prev := imageClient
	imageClient = newImageClient(false)
	defer func() { imageClient = prev }()

	tests := []struct {
		name    string
		ref     string
		max     int64
		wantErr error
	}{
		{"data uri", "data:image/png;base64," + b64, 0, nil},
		{"bare base64", b64, 0, nil},
		{"url", srv.URL + "/cover.png", 0, nil},
		{"empty", "", 0, ErrInvalidImage},
		{"not base64", "%%%", 0, ErrInvalidImage},
		{"wrong data uri type", "data:text/plain;base64," + b64, 0, ErrInvalidImage},
		{"html page", srv.URL + "/page", 0, ErrInvalidImage},
		{"missing", srv.URL + "/missing", 0, ErrInvalidImage},
		{"too large", b64, 8, ErrImageTooLarge},
		{"url too large", srv.URL + "/cover.png", 8, ErrImageTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadImage(context.Background(), tt.ref, tt.max)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, raw, got)
		})
	}
}

func TestLoadImage_RefusesNonPublicHosts(t *testing.T) {
	raw := pngBytes(t)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write(raw)
	}))
	defer srv.Close()
	port := srv.Listener.Addr().(*net.TCPAddr).Port

	for _, ref := range []string{
		srv.URL + "/cover.png",
		fmt.Sprintf("http://localhost:%d/cover.png", port),
	} {
		_, err := LoadImage(context.Background(), ref, 0)
		assert.ErrorIs(t, err, ErrInvalidImage, ref)
	}
	assert.Zero(t, hits.Load(), "no request may reach a loopback host")
}

func TestLoadImage_CapsRedirects(t *testing.T) {
	var hops atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hops.Add(1)
		http.Redirect(w, r, "/again", http.StatusFound)
	}))
	defer srv.Close()

	prev := imageClient
	imageClient = newImageClient(false)
	defer func() { imageClient = prev }()

	_, err := LoadImage(context.Background(), srv.URL+"/start", 0)
	assert.ErrorIs(t, err, ErrInvalidImage)
	assert.Equal(t, int32(maxImageRedirects), hops.Load())
}

func TestPublicAddressOnly(t *testing.T) {
	tests := []struct {
		address string
		allowed bool
	}{
		{"93.184.216.34:443", true},
		{"[2606:2800:220:1:248:1893:25c8:1946]:443", true},
		{"127.0.0.1:80", false},
		{"[::1]:80", false},
		{"10.1.2.3:80", false},
		{"172.16.0.9:80", false},
		{"192.168.1.1:80", false},
		{"169.254.169.254:80", false},
		{"[fe80::1]:80", false},
		{"[fd00::1]:80", false},
		{"0.0.0.0:80", false},
		{"224.0.0.1:80", false},
		{"not-an-address", false},
	}
	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			err := publicAddressOnly("tcp", tt.address, nil)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, errBlockedAddress)
			}
		})
	}
}

func TestEnvelopes(t *testing.T) {
	rr := httptest.NewRecorder()
	Success(rr, http.StatusCreated, map[string]int{"likes": 1}, "created")
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success":true,"data":{"likes":1},"message":"created"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	Success(rr, http.StatusOK, nil, "")
	assert.JSONEq(t, `{"success":true,"data":null}`, rr.Body.String())

	rr = httptest.NewRecorder()
	Fail(rr, http.StatusNotFound, CodeNotFound, "not found")
	assert.JSONEq(t, `{"success":false,"error":"not found","code":"NOT_FOUND"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	FailFields(rr, http.StatusBadRequest, CodeValidation, "validation failed", map[string]string{"title": "title is required"})
	assert.JSONEq(t, `{"success":false,"error":"validation failed","code":"VALIDATION_ERROR","fields":{"title":"title is required"}}`, rr.Body.String())
}
