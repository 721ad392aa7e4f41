// API for querying and updating a moodle server through its REST web
// services.
//
//	api, err := moodle.NewMoodleApi("https://moodle.example.com/moodle/", "a0092ba9a9f5b45cdd2f01d049595bfe91")
//	if err != nil {
//		return err
//	}
//
//	// Courses the token's user is enrolled in
//	courses, _ := api.Courses.GetUserCourses(ctx, 0)
//	for _, c := range courses {
//		fmt.Printf("%s\n", c.ShortName)
//	}
//
//	// Verify the web service exposes every function this package uses
//	report, err := api.CheckPermissions(ctx, true)
//	if err == nil && report.Denied > 0 {
//		fmt.Println(report.Missing)
//	}
package moodle

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

type MoodleApi struct {
	Courses     *Courses
	Groups      *Groups
	Assignments *Assignments
	Grades      *Grades
	Users       *Users

	base   string
	client Caller
	log    *log.Logger
	out    io.Writer
}

type apiOptions struct {
	timeout time.Duration
	logger  *log.Logger
	fetch   LookupUrl
	out     io.Writer
}

// ApiOption configures a MoodleApi.
type ApiOption func(*apiOptions)

// WithTimeout sets the per-request timeout of the default url fetcher.
func WithTimeout(d time.Duration) ApiOption {
	return func(o *apiOptions) { o.timeout = d }
}

// WithLogger shares l between the transport and the permission checker.
func WithLogger(l *log.Logger) ApiOption {
	return func(o *apiOptions) { o.logger = l }
}

// WithUrlFetcher replaces the http fetcher, for example with GoogleLookupUrl.
func WithUrlFetcher(f LookupUrl) ApiOption {
	return func(o *apiOptions) { o.fetch = f }
}

// WithOutput sets where verbose permission reports are written. Defaults to stdout.
func WithOutput(w io.Writer) ApiOption {
	return func(o *apiOptions) { o.out = w }
}

// NewMoodleApi returns an api for the moodle site at base, authenticating
// with a web service token. Returns ErrMissingConfig if either is empty.
func NewMoodleApi(base string, token string, opts ...ApiOption) (*MoodleApi, error) {
	if base == "" || token == "" {
		return nil, ErrMissingConfig
	}
	o := buildOptions(opts)
	if o.fetch == nil {
		o.fetch = NewDefaultLookupUrl(o.timeout)
	}
	client := NewRestClient(base, token, o.fetch, o.logger)
	api := newMoodleApi(client, o)
	api.base = client.base
	return api, nil
}

// NewMoodleApiWithClient builds the api over an existing Caller. Every
// domain module shares c.
func NewMoodleApiWithClient(c Caller, opts ...ApiOption) *MoodleApi {
	return newMoodleApi(c, buildOptions(opts))
}

func buildOptions(opts []ApiOption) apiOptions {
	o := apiOptions{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.New(io.Discard)
	}
	if o.out == nil {
		o.out = os.Stdout
	}
	return o
}

func newMoodleApi(c Caller, o apiOptions) *MoodleApi {
	return &MoodleApi{
		Courses:     &Courses{c: c},
		Groups:      &Groups{c: c},
		Assignments: &Assignments{c: c},
		Grades:      &Grades{c: c},
		Users:       &Users{c: c},
		client:      c,
		log:         o.logger,
		out:         o.out,
	}
}

func (m *MoodleApi) MoodleUrl() string {
	return m.base
}

// Client returns the Caller shared by the domain modules.
func (m *MoodleApi) Client() Caller {
	return m.client
}

// Logger returns the logger shared with the transport.
func (m *MoodleApi) Logger() *log.Logger {
	return m.log
}

type SiteFunction struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type SiteInfo struct {
	SiteName  string         `json:"sitename"`
	SiteURL   string         `json:"siteurl"`
	Username  string         `json:"username"`
	FirstName string         `json:"firstname"`
	LastName  string         `json:"lastname"`
	FullName  string         `json:"fullname"`
	Lang      string         `json:"lang"`
	UserID    int64          `json:"userid"`
	Release   string         `json:"release"`
	Version   string         `json:"version"`
	Functions []SiteFunction `json:"functions"`
}

// HasFunction reports whether the token's service lists name.
func (s *SiteInfo) HasFunction(name string) bool {
	for _, f := range s.Functions {
		if f.Name == name {
			return true
		}
	}
	return false
}

func getSiteInfo(ctx context.Context, c Caller) (*SiteInfo, error) {
	var info SiteInfo
	if err := c.Call(ctx, "core_webservice_get_site_info", Params{}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// currentUserID resolves id 0 to the user the token belongs to.
func currentUserID(ctx context.Context, c Caller, id int64) (int64, error) {
	if id != 0 {
		return id, nil
	}
	info, err := getSiteInfo(ctx, c)
	if err != nil {
		return 0, err
	}
	return info.UserID, nil
}

// GetSiteInfo returns the site name, moodle release and the token's user.
func (m *MoodleApi) GetSiteInfo(ctx context.Context) (*SiteInfo, error) {
	return getSiteInfo(ctx, m.client)
}

// CheckMoodleVersion reports whether the site release is at least
// minVersion, comparing major.minor (e.g. "3.9", "4.1"). Any failure
// reports false, with the error when there is one.
func (m *MoodleApi) CheckMoodleVersion(ctx context.Context, minVersion string) (bool, error) {
	info, err := m.GetSiteInfo(ctx)
	if err != nil {
		return false, err
	}
	return releaseAtLeast(info.Release, minVersion), nil
}
