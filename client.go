package moodle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

// API Documentation
// https://docs.moodle.org/dev/Web_service_API_functions

var errNotJSON = errors.New("response body is not json")

// Caller invokes one moodle web service function. The JSON result is
// decoded into out; a nil out discards the result.
type Caller interface {
	Call(ctx context.Context, function string, params Params, out any) error
}

// RestClient calls the moodle REST server with a shared token.
type RestClient struct {
	base  string
	token string

	log   *log.Logger
	fetch LookupUrl
}

func NewRestClient(base, token string, fetch LookupUrl, logger *log.Logger) *RestClient {
	if base != "" && !strings.HasSuffix(base, "/") {
		base = base + "/"
	}
	if fetch == nil {
		fetch = NewDefaultLookupUrl(DefaultTimeout)
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &RestClient{
		base:  base,
		token: token,
		log:   logger,
		fetch: fetch,
	}
}

// Endpoint is the REST server url calls are posted to.
func (c *RestClient) Endpoint() string {
	return c.base + "webservice/rest/server.php"
}

func (c *RestClient) Call(ctx context.Context, function string, params Params, out any) error {
	form := params.Values()
	form.Set("wstoken", c.token)
	form.Set("wsfunction", function)
	form.Set("moodlewsrestformat", "json")

	c.log.Debug("Fetch", "function", function, "params", len(params))
	body, status, _, err := c.fetch.PostForm(ctx, c.Endpoint(), form)
	if err != nil {
		c.log.Error("moodle request failed", "function", function, "err", err)
		return fmt.Errorf("moodle: %s: %w", function, err)
	}

	if serr := readError(function, body); serr != nil {
		serr.StatusCode = status
		c.log.Warn("moodle exception", "function", function, "errorcode", serr.ErrorCode, "message", serr.Message)
		return serr
	}

	if status < 200 || status > 299 {
		serr := &ServiceError{Function: function, StatusCode: status, Kind: kindForStatus(status)}
		c.log.Warn("moodle http error", "function", function, "status", status)
		return serr
	}

	if body == "" || body == "null" {
		return nil
	}
	if !json.Valid([]byte(body)) {
		c.log.Warn("moodle returned a non json response", "function", function, "status", status)
		return &ServiceError{Function: function, StatusCode: status, Message: "unexpected response", Err: errNotJSON}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		c.log.Warn("moodle returned unexpected response", "function", function, "err", err)
		return &ServiceError{Function: function, StatusCode: status, Message: "unexpected response", Err: err}
	}
	return nil
}
