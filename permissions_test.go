package moodle

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestRequiredFunctions(t *testing.T) {
	t.Parallel()

	functions := RequiredFunctions()
	if len(functions) != 21 {
		t.Fatalf("expected 21 required functions, got %d", len(functions))
	}
	seen := map[string]bool{}
	modules := map[string]int{}
	for _, f := range functions {
		if seen[f.Name] {
			t.Errorf("duplicate function %s", f.Name)
		}
		seen[f.Name] = true
		modules[f.Module]++
	}
	want := map[string]int{"core": 1, "courses": 7, "groups": 6, "assignments": 2, "grades": 2, "users": 3}
	if !reflect.DeepEqual(modules, want) {
		t.Errorf("functions per module = %v, want %v", modules, want)
	}
	if functions[0].Name != "core_webservice_get_site_info" || functions[20].Name != "core_user_update_users" {
		t.Errorf("unexpected order: first %s, last %s", functions[0].Name, functions[20].Name)
	}

	// The registry is not shared with callers.
	functions[1].Params["userid"] = "99"
	if RequiredFunctions()[1].Params["userid"] != "1" {
		t.Error("RequiredFunctions exposes the registry")
	}
}

func TestClassifyCallError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want PermissionStatus
	}{
		{"invalid parameter kind", &ServiceError{Kind: KindInvalidParameter, Message: "Invalid parameter value detected"}, PermissionGranted},
		{"not found kind", &ServiceError{Kind: KindNotFound}, PermissionGranted},
		{"permission kind", &ServiceError{Kind: KindPermissionDenied, Message: "Access control exception"}, PermissionDenied},
		{"authentication kind", &ServiceError{Kind: KindAuthentication, Message: "Invalid token - token not found"}, PermissionError},
		{"not valid message", &ServiceError{Message: "User ID is not valid"}, PermissionGranted},
		{"cannot find message", &ServiceError{Message: "Cannot find course"}, PermissionGranted},
		{"required message", &ServiceError{Message: "Parameter courseid is required"}, PermissionGranted},
		{"missing message", &ServiceError{Message: "Missing parameter"}, PermissionGranted},
		{"capability message", &ServiceError{Message: "Sorry, but you do not have the required capability"}, PermissionGranted},
		{"capability only", &ServiceError{Message: "No capability to view this course"}, PermissionDenied},
		{"not authorised message", &ServiceError{Message: "You are not authorised to do this"}, PermissionDenied},
		{"access denied message", &ServiceError{Message: "Access denied"}, PermissionDenied},
		{"other service error", &ServiceError{Message: "Coding error detected"}, PermissionError},
		{"not found status", &ServiceError{StatusCode: 404, Kind: KindNotFound}, PermissionError},
		{"bad request status", &ServiceError{StatusCode: 400, Kind: KindInvalidParameter}, PermissionError},
		{"forbidden status", &ServiceError{StatusCode: 403, Kind: KindPermissionDenied}, PermissionError},
		{"non json body", &ServiceError{StatusCode: 200, Message: "unexpected response", Err: errNotJSON}, PermissionError},
		{"exception with status", &ServiceError{StatusCode: 200, Exception: "invalid_parameter_exception", Kind: KindInvalidParameter}, PermissionGranted},
		{"transport error", errors.New("connection refused"), PermissionError},
		{"context error", context.DeadlineExceeded, PermissionError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := classifyCallError(tt.err); got != tt.want {
				t.Errorf("classifyCallError(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func permissionsFake() *fakeCaller {
	return newFakeCaller().
		respond("core_webservice_get_site_info", `{"sitename":"Test","userid":2}`).
		fail("core_enrol_get_users_courses", &ServiceError{Function: "core_enrol_get_users_courses", Message: "User ID is not valid"}).
		fail("core_group_create_groups", &ServiceError{Function: "core_group_create_groups", Message: "This action requires a capability you do not have"}).
		fail("core_user_create_users", &ServiceError{Function: "core_user_create_users", Kind: KindPermissionDenied, ErrorCode: "nopermissions", Message: "Sorry, but you do not currently have permissions to do that"}).
		fail("mod_assign_save_grade", errors.New("connection reset by peer"))
}

func TestCheckPermissions(t *testing.T) {
	t.Parallel()

	fake := permissionsFake()
	api := NewMoodleApiWithClient(fake, WithOutput(io.Discard))

	report, err := api.CheckPermissions(context.Background(), false)
	if err != nil {
		t.Fatalf("CheckPermissions: %v", err)
	}

	if report.Total != 21 {
		t.Errorf("Total = %d", report.Total)
	}
	if report.Total != report.Granted+report.Denied {
		t.Errorf("Total %d != Granted %d + Denied %d", report.Total, report.Granted, report.Denied)
	}
	if report.Granted != 18 || report.Denied != 3 {
		t.Errorf("Granted = %d, Denied = %d, want 18 and 3", report.Granted, report.Denied)
	}
	if want := []string{"core_group_create_groups", "core_user_create_users"}; !reflect.DeepEqual(report.Missing, want) {
		t.Errorf("Missing = %v, want %v", report.Missing, want)
	}
	if report.AllGranted() {
		t.Error("AllGranted() should be false")
	}

	byName := map[string]PermissionDetail{}
	for _, d := range report.Details {
		byName[d.Function] = d
	}
	if len(byName) != 21 {
		t.Errorf("expected 21 details, got %d", len(byName))
	}
	if d := byName["core_enrol_get_users_courses"]; d.Status != PermissionGranted || d.Error != "" {
		t.Errorf("benign message should be granted: %+v", d)
	}
	if d := byName["mod_assign_save_grade"]; d.Status != PermissionError || !strings.Contains(d.Error, "connection reset") {
		t.Errorf("transport failure should be an error with its message: %+v", d)
	}
	if d := byName["core_user_create_users"]; d.Status != PermissionDenied || d.Module != "users" || d.Description != "Create users" {
		t.Errorf("unexpected detail %+v", d)
	}
}

func TestCheckPermissionsUnreachableService(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		path   string
		status int
		body   string
	}{
		{"mistyped path", "/typo", http.StatusNotFound, "<html><body><h1>Not Found</h1></body></html>"},
		{"plain website", "", http.StatusOK, "<html><body>Welcome to our blog</body></html>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			api, err := NewMoodleApi(server.URL+tt.path, "token", WithOutput(io.Discard))
			if err != nil {
				t.Fatal(err)
			}

			report, err := api.CheckPermissions(context.Background(), false)
			if err != nil {
				t.Fatalf("CheckPermissions: %v", err)
			}
			if report.Granted != 0 || report.Denied != 21 || report.AllGranted() {
				t.Errorf("Granted = %d, Denied = %d, want 0 and 21", report.Granted, report.Denied)
			}
			if len(report.Missing) != 0 {
				t.Errorf("Missing = %v, want none", report.Missing)
			}
			for _, d := range report.Details {
				if d.Status != PermissionError || d.Error == "" {
					t.Errorf("%s: status %s, error %q", d.Function, d.Status, d.Error)
				}
			}
		})
	}
}

func TestCheckPermissionsSyntheticParams(t *testing.T) {
	t.Parallel()

	fake := newFakeCaller()
	api := NewMoodleApiWithClient(fake, WithOutput(io.Discard))
	if _, err := api.CheckPermissions(context.Background(), false); err != nil {
		t.Fatal(err)
	}

	if len(fake.calls) != 21 {
		t.Fatalf("expected 21 calls, got %d", len(fake.calls))
	}
	params := map[string]Params{}
	for _, c := range fake.calls {
		params[c.Function] = c.Params
	}
	assertParams(t, params["core_webservice_get_site_info"], map[string]string{})
	assertParams(t, params["mod_assign_get_assignments"], map[string]string{"courseids[0]": "1"})
	assertParams(t, params["core_course_search_courses"], map[string]string{"criterianame": "search", "criteriavalue": "test"})
	assertParams(t, params["core_user_get_users"], map[string]string{"id": "1"})
	assertParams(t, params["core_user_update_users"], map[string]string{})
}

func TestCheckPermissionsAllGranted(t *testing.T) {
	t.Parallel()

	api := NewMoodleApiWithClient(newFakeCaller(), WithOutput(io.Discard))
	report, err := api.CheckPermissions(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if !report.AllGranted() || report.Granted != 21 || len(report.Missing) != 0 {
		t.Errorf("unexpected report %+v", report)
	}
	if report.Missing == nil {
		t.Error("Missing should be empty, not nil")
	}
}

func TestCheckPermissionsRestoresLogLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := log.New(&buf)
	logger.SetLevel(log.DebugLevel)

	var during log.Level
	fake := newFakeCaller()
	api := NewMoodleApiWithClient(levelProbe{fake, logger, &during}, WithLogger(logger), WithOutput(io.Discard))

	if _, err := api.CheckPermissions(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if during != log.FatalLevel {
		t.Errorf("level during check = %s, want fatal", during)
	}
	if logger.GetLevel() != log.DebugLevel {
		t.Errorf("level after check = %s, want debug", logger.GetLevel())
	}
}

// levelProbe records the logger level seen by calls.
type levelProbe struct {
	Caller
	logger *log.Logger
	level  *log.Level
}

func (p levelProbe) Call(ctx context.Context, function string, params Params, out any) error {
	*p.level = p.logger.GetLevel()
	return p.Caller.Call(ctx, function, params, out)
}

type panicCaller struct{}

func (panicCaller) Call(ctx context.Context, function string, params Params, out any) error {
	panic("boom")
}

func TestCheckPermissionsRestoresLogLevelOnPanic(t *testing.T) {
	t.Parallel()

	logger := log.New(io.Discard)
	logger.SetLevel(log.InfoLevel)
	api := NewMoodleApiWithClient(panicCaller{}, WithLogger(logger), WithOutput(io.Discard))

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected the panic to propagate")
			}
		}()
		_, _ = api.CheckPermissions(context.Background(), false)
	}()

	if logger.GetLevel() != log.InfoLevel {
		t.Errorf("level after panic = %s, want info", logger.GetLevel())
	}
}

func TestCheckPermissionsCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fake := newFakeCaller()
	api := NewMoodleApiWithClient(fake, WithOutput(io.Discard))
	_, err := api.CheckPermissions(ctx, false)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(fake.calls) != 0 {
		t.Errorf("expected no calls after cancellation, got %d", len(fake.calls))
	}
}

func TestCheckPermissionsVerbose(t *testing.T) {
	t.Parallel()

	var quiet, verbose bytes.Buffer
	quietReport, err := NewMoodleApiWithClient(permissionsFake(), WithOutput(&quiet)).CheckPermissions(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	verboseReport, err := NewMoodleApiWithClient(permissionsFake(), WithOutput(&verbose)).CheckPermissions(context.Background(), true)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(quietReport, verboseReport) {
		t.Errorf("verbose changed the report:\n%+v\n%+v", quietReport, verboseReport)
	}
	if quiet.Len() != 0 {
		t.Errorf("expected no output without verbose, got %q", quiet.String())
	}

	out := verbose.String()
	for _, want := range []string{
		"MOODLE WEB SERVICE PERMISSIONS CHECK",
		"Module: COURSES",
		"✅ core_webservice_get_site_info",
		"❌ core_user_create_users",
		"PERMISSION DENIED",
		"ERROR: connection reset by peer",
		"Total permissions checked: 21",
		"Granted: 18",
		"Denied: 3",
		"MISSING PERMISSIONS",
		"  - core_group_create_groups",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report is missing %q:\n%s", want, out)
		}
	}
}
