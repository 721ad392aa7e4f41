package moodle

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"google.golang.org/appengine/urlfetch"
)

// GoogleLookupUrl fetches through the App Engine urlfetch service. The
// context passed to PostForm must be an App Engine request context.
type GoogleLookupUrl struct{}

func (d *GoogleLookupUrl) PostForm(ctx context.Context, u string, form url.Values) (string, int, string, error) {
	client := urlfetch.Client(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	response, err := client.Do(req)
	if err != nil {
		return "", 0, "", err
	}
	defer response.Body.Close()

	return readTextResponse(response)
}
