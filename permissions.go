package moodle

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/log"
)

type PermissionStatus string

const (
	PermissionGranted PermissionStatus = "granted"
	PermissionDenied  PermissionStatus = "denied"
	PermissionError   PermissionStatus = "error"
)

// RequiredFunction is a web service function this package depends on.
// Params are synthetic arguments chosen to get past request validation
// and reach the server's capability check.
type RequiredFunction struct {
	Module      string
	Name        string
	Description string
	Params      Params
}

var requiredFunctions = []RequiredFunction{
	{"core", "core_webservice_get_site_info", "Get site information", nil},

	{"courses", "core_enrol_get_users_courses", "Get user courses", Params{"userid": "1"}},
	{"courses", "core_enrol_get_enrolled_users", "Get enrolled users", Params{"courseid": "1"}},
	{"courses", "core_course_get_courses_by_field", "Get courses by field", Params{"field": "id", "value": "1"}},
	{"courses", "core_course_get_categories", "Get course categories", nil},
	{"courses", "core_course_get_contents", "Get course contents", Params{"courseid": "1"}},
	{"courses", "core_course_get_recent_courses", "Get recent courses", Params{"userid": "1"}},
	{"courses", "core_course_search_courses", "Search courses", Params{"criterianame": "search", "criteriavalue": "test"}},

	{"groups", "core_group_get_course_groups", "Get course groups", Params{"courseid": "1"}},
	{"groups", "core_group_get_group_members", "Get group members", Params{"id": "1"}},
	{"groups", "core_group_add_group_members", "Add users to group", nil},
	{"groups", "core_group_delete_group_members", "Remove users from group", nil},
	{"groups", "core_group_create_groups", "Create groups", nil},
	{"groups", "core_group_delete_groups", "Delete groups", nil},

	{"assignments", "mod_assign_get_assignments", "Get assignments", Params{"courseids[0]": "1"}},
	{"assignments", "mod_assign_get_submissions", "Get submissions", Params{"id": "1"}},

	{"grades", "mod_assign_get_grades", "Get grades", Params{"id": "1"}},
	{"grades", "mod_assign_save_grade", "Save grade", nil},

	{"users", "core_user_create_users", "Create users", nil},
	{"users", "core_user_get_users", "Get users", Params{"id": "1"}},
	{"users", "core_user_update_users", "Update users", nil},
}

// RequiredFunctions returns the checked functions in report order.
func RequiredFunctions() []RequiredFunction {
	out := make([]RequiredFunction, len(requiredFunctions))
	for i, f := range requiredFunctions {
		out[i] = f
		if f.Params != nil {
			out[i].Params = make(Params, len(f.Params))
			for k, v := range f.Params {
				out[i].Params[k] = v
			}
		}
	}
	return out
}

type PermissionDetail struct {
	Function    string
	Module      string
	Description string
	Status      PermissionStatus
	Error       string
}

type PermissionReport struct {
	Total   int
	Granted int
	// Denied counts both denied and errored functions.
	Denied  int
	Details []PermissionDetail
	// Missing lists the denied function names in report order.
	Missing []string
}

// Server messages that mean the synthetic arguments were rejected after
// the capability check passed.
var benignMessages = []string{"not valid", "not found", "cannot find", "required", "missing"}

var deniedMessages = []string{"not authorised", "access denied", "permission", "capability"}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// classifyCallError decides the status of a function whose probe failed.
// The error kind moodle reports wins; message matching is the fallback for
// exceptions without a known error code.
func classifyCallError(err error) PermissionStatus {
	var serr *ServiceError
	if !errors.As(err, &serr) {
		return PermissionError
	}
	// No exception body: the request never reached a web service function.
	if serr.Exception == "" && serr.StatusCode != 0 {
		return PermissionError
	}
	switch serr.Kind {
	case KindInvalidParameter, KindNotFound:
		return PermissionGranted
	case KindPermissionDenied:
		return PermissionDenied
	case KindAuthentication:
		return PermissionError
	}
	msg := strings.ToLower(serr.Message)
	switch {
	case containsAny(msg, benignMessages):
		return PermissionGranted
	case containsAny(msg, deniedMessages):
		return PermissionDenied
	}
	return PermissionError
}

// quiet raises l to its highest level and returns the function that
// restores the previous one.
func quiet(l *log.Logger) (restore func()) {
	prev := l.GetLevel()
	l.SetLevel(log.FatalLevel)
	return func() { l.SetLevel(prev) }
}

// CheckPermissions probes every required web service function and reports
// which ones the token may call. With verbose set the report is rendered
// to the api's output. Returns the context error if ctx ends mid check.
func (m *MoodleApi) CheckPermissions(ctx context.Context, verbose bool) (*PermissionReport, error) {
	defer quiet(m.log)()

	report := &PermissionReport{
		Details: make([]PermissionDetail, 0, len(requiredFunctions)),
		Missing: make([]string, 0),
	}
	for _, f := range requiredFunctions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report.add(f, m.probe(ctx, f))
	}

	if verbose {
		if err := report.Render(m.out); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (m *MoodleApi) probe(ctx context.Context, f RequiredFunction) error {
	params := f.Params
	if params == nil {
		params = Params{}
	}
	return m.client.Call(ctx, f.Name, params, nil)
}

func (r *PermissionReport) add(f RequiredFunction, err error) {
	d := PermissionDetail{
		Function:    f.Name,
		Module:      f.Module,
		Description: f.Description,
		Status:      PermissionGranted,
	}
	if err != nil {
		d.Status = classifyCallError(err)
		if d.Status != PermissionGranted {
			d.Error = err.Error()
		}
	}

	r.Total++
	switch d.Status {
	case PermissionGranted:
		r.Granted++
	case PermissionDenied:
		r.Denied++
		r.Missing = append(r.Missing, f.Name)
	default:
		r.Denied++
	}
	r.Details = append(r.Details, d)
}

// AllGranted reports whether every function was granted.
func (r *PermissionReport) AllGranted() bool {
	return r.Denied == 0
}
