package moodle

import (
	"context"
	"errors"
	"testing"
)

func TestReleaseAtLeast(t *testing.T) {
	t.Parallel()

	tests := []struct {
		release string
		min     string
		want    bool
	}{
		{"4.1.1 (Build: 20230123)", "3.9", true},
		{"4.1.1 (Build: 20230123)", "4.1", true},
		{"4.1.1 (Build: 20230123)", "4.1.0", true},
		{"4.1.1 (Build: 20230123)", "4.2", false},
		{"3.11.2+ (Build: 20210806)", "3.9", true},
		{"3.8.1 (Build: 20200113)", "3.9", false},
		{"4.1", "4.1.1", false},
		{"4.1", "4", true},
		{"4.1", "4.1.0.1", false},
		{"", "3.9", false},
		{"unknown", "3.9", false},
		{"4.1", "latest", false},
	}
	for _, tt := range tests {
		if got := releaseAtLeast(tt.release, tt.min); got != tt.want {
			t.Errorf("releaseAtLeast(%q, %q) = %v, want %v", tt.release, tt.min, got, tt.want)
		}
	}
}

func TestCheckMoodleVersion(t *testing.T) {
	t.Parallel()

	fake := newFakeCaller().respond("core_webservice_get_site_info", `{"release":"4.1.1 (Build: 20230123)"}`)
	api := NewMoodleApiWithClient(fake)

	ok, err := api.CheckMoodleVersion(context.Background(), "3.9")
	if err != nil || !ok {
		t.Errorf("CheckMoodleVersion = %v, %v", ok, err)
	}

	failing := newFakeCaller().fail("core_webservice_get_site_info", errors.New("offline"))
	ok, err = NewMoodleApiWithClient(failing).CheckMoodleVersion(context.Background(), "3.9")
	if ok || err == nil {
		t.Errorf("expected false with an error, got %v, %v", ok, err)
	}
}
