package moodle

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
)

type recordedCall struct {
	Function string
	Params   Params
}

// fakeCaller answers calls with canned JSON per function and records them.
type fakeCaller struct {
	mu        sync.Mutex
	responses map[string]string
	errors    map[string]error
	calls     []recordedCall
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{
		responses: map[string]string{},
		errors:    map[string]error{},
	}
}

func (f *fakeCaller) respond(function, body string) *fakeCaller {
	f.responses[function] = body
	return f
}

func (f *fakeCaller) fail(function string, err error) *fakeCaller {
	f.errors[function] = err
	return f
}

func (f *fakeCaller) Call(ctx context.Context, function string, params Params, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	copied := make(Params, len(params))
	for k, v := range params {
		copied[k] = v
	}
	f.calls = append(f.calls, recordedCall{Function: function, Params: copied})

	if err := f.errors[function]; err != nil {
		return err
	}
	body, ok := f.responses[function]
	if !ok || out == nil {
		return nil
	}
	return json.Unmarshal([]byte(body), out)
}

func (f *fakeCaller) functions() []string {
	names := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		names = append(names, c.Function)
	}
	return names
}

// lastCall fails the test when nothing was called.
func (f *fakeCaller) lastCall(t *testing.T) recordedCall {
	t.Helper()
	if len(f.calls) == 0 {
		t.Fatal("expected a call")
	}
	return f.calls[len(f.calls)-1]
}

func assertParams(t *testing.T, got Params, want map[string]string) {
	t.Helper()
	if len(got) != len(want) {
		t.Errorf("got %d params %v, want %d %v", len(got), got, len(want), want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("param %s = %q, want %q", k, got[k], v)
		}
	}
}
