package moodle

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// releaseVersion extracts major.minor from a release such as "4.1.1 (Build: 20230123)".
var releaseVersion = regexp.MustCompile(`^(\d+)\.(\d+)`)

func releaseAtLeast(release, minVersion string) bool {
	m := releaseVersion.FindStringSubmatch(strings.TrimSpace(release))
	if m == nil {
		return false
	}
	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	current := fmt.Sprintf("v%d.%d.0", major, minor)

	want, extra, ok := canonicalVersion(minVersion)
	if !ok {
		return false
	}
	c := semver.Compare(current, want)
	if c == 0 && extra {
		return false
	}
	return c >= 0
}

// canonicalVersion turns "3.9" into "v3.9.0". extra reports non-zero
// components beyond the third.
func canonicalVersion(v string) (string, bool, bool) {
	parts := strings.Split(strings.TrimPrefix(strings.TrimSpace(v), "v"), ".")
	nums := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return "", false, false
		}
		nums = append(nums, n)
	}
	for len(nums) < 3 {
		nums = append(nums, 0)
	}
	extra := false
	for _, n := range nums[3:] {
		if n != 0 {
			extra = true
		}
	}
	s := fmt.Sprintf("v%d.%d.%d", nums[0], nums[1], nums[2])
	if !semver.IsValid(s) {
		return "", false, false
	}
	return s, extra, true
}
