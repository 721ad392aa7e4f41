package moodle

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds a single web service request made by DefaultLookupUrl.
const DefaultTimeout = 30 * time.Second

// LookupUrl posts a form to a url. Returns the contents, httpStatus, contentType, error.
type LookupUrl interface {
	PostForm(ctx context.Context, url string, form url.Values) (string, int, string, error)
}

type DefaultLookupUrl struct {
	Timeout time.Duration

	client *http.Client
}

func NewDefaultLookupUrl(timeout time.Duration) *DefaultLookupUrl {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	netTransport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: 8 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 8 * time.Second,
	}
	jar, _ := cookiejar.New(nil)
	return &DefaultLookupUrl{
		Timeout: timeout,
		client: &http.Client{
			Timeout:   timeout,
			Transport: netTransport,
			Jar:       jar,
		},
	}
}

// PostForm sends form as an application/x-www-form-urlencoded body.
func (d *DefaultLookupUrl) PostForm(ctx context.Context, u string, form url.Values) (string, int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	client := d.client
	if client == nil {
		client = http.DefaultClient
	}
	response, err := client.Do(req)
	if err != nil {
		return "", 0, "", err
	}
	defer response.Body.Close()

	return readTextResponse(response)
}

func readTextResponse(response *http.Response) (string, int, string, error) {
	contentType := response.Header.Get("Content-Type")
	if response.StatusCode == 200 && !isTextContentType(contentType) {
		return "", 0, contentType, errors.New("Ignored non-text response: " + contentType)
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return "", 0, "", err
	}

	return strings.TrimSpace(string(body)), response.StatusCode, contentType, nil
}

func isTextContentType(contentType string) bool {
	// Moodle omits the header on some error paths.
	if contentType == "" {
		return true
	}
	for _, prefix := range []string{
		"application/json",
		"application/xml",
		"text/html",
		"text/json",
		"text/plain",
		"text/xml",
	} {
		if strings.HasPrefix(contentType, prefix) {
			return true
		}
	}
	return false
}
