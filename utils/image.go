package utils

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"
)

var (
	ErrInvalidImage  = errors.New("image must be a data URI, base64 string or http(s) URL of an image")
	ErrImageTooLarge = errors.New("image is too large")
)

// errBlockedAddress is returned by the image client's dialer for hosts that are not
// public internet addresses.
var errBlockedAddress = errors.New("address not allowed")

const maxImageRedirects = 3

var imageClient = newImageClient(true)

// newImageClient returns the client used to fetch image URLs. With guard set it refuses
// to connect to loopback, private, link-local and other non-public addresses, including
// ones reached through redirects or DNS names that resolve to them.
func newImageClient(guard bool) *http.Client {
	dialer := &net.Dialer{Timeout: 5 * time.Second}
	if guard {
		dialer.Control = publicAddressOnly
	}
	return &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			Proxy:                 nil,
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   5 * time.Second,
			ResponseHeaderTimeout: 5 * time.Second,
			MaxIdleConns:          10,
			IdleConnTimeout:       30 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxImageRedirects {
				return errors.New("too many redirects")
			}
			return nil
		},
	}
}

// publicAddressOnly runs after DNS resolution, so address is always a literal IP.
func publicAddressOnly(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return errBlockedAddress
	}
	ip := net.ParseIP(host)
	if ip == nil || !ip.IsGlobalUnicast() || ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() {
		return fmt.Errorf("%w: %s", errBlockedAddress, ip)
	}
	return nil
}

// LoadImage resolves an image reference to raw bytes. ref may be a data: URI, a bare
// base64 payload or an http(s) URL. The result is checked to be an image of at most maxBytes.
func LoadImage(ctx context.Context, ref string, maxBytes int64) ([]byte, error) {
	ref = strings.TrimSpace(ref)
	var (
		data []byte
		err  error
	)
	switch {
	case ref == "":
		return nil, ErrInvalidImage
	case strings.HasPrefix(ref, "data:"):
		data, err = decodeDataURI(ref)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		data, err = downloadImage(ctx, ref, maxBytes)
	default:
		data, err = decodeBase64(ref)
	}
	if err != nil {
		return nil, err
	}
	return CheckImage(data, maxBytes)
}

// CheckImage verifies size and that the payload sniffs as an image.
func CheckImage(data []byte, maxBytes int64) ([]byte, error) {
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, ErrImageTooLarge
	}
	if len(data) == 0 || !strings.HasPrefix(http.DetectContentType(data), "image/") {
		return nil, ErrInvalidImage
	}
	return data, nil
}

func decodeDataURI(ref string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok || !strings.HasSuffix(meta, ";base64") || !strings.HasPrefix(meta, "image/") {
		return nil, ErrInvalidImage
	}
	return decodeBase64(payload)
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimRight(strings.Join(strings.Fields(s), ""), "=")
	data, err := base64.RawStdEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidImage
	}
	return data, nil
}

// downloadImage fetches url, reading at most maxBytes+1 so oversize bodies are detected
// without buffering them whole.
func downloadImage(ctx context.Context, url string, maxBytes int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, ErrInvalidImage
	}
	resp, err := imageClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch: %v", ErrInvalidImage, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image URL returned %d: %w", resp.StatusCode, ErrInvalidImage)
	}
	var body io.Reader = resp.Body
	if maxBytes > 0 {
		body = io.LimitReader(resp.Body, maxBytes+1)
	}
	return io.ReadAll(body)
}
