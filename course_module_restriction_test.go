package moodle

import (
	"testing"
)

func groupRefs(ids ...int64) []GroupRef {
	groups := make([]GroupRef, 0, len(ids))
	for _, id := range ids {
		groups = append(groups, GroupRef{ID: id})
	}
	return groups
}

func TestRestriction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		availability string
		groups       []GroupRef
		restricted   bool
	}{
		// Simply a basic: Must be in audit group
		{"in audit group", `{"op":"&","c":[{"type":"group","id":10}],"showc":[true]}`, groupRefs(10, 20), false},
		{"not in audit group", `{"op":"&","c":[{"type":"group","id":10}],"showc":[true]}`, groupRefs(5, 15), true},

		// Must be in both groups
		{"in both groups", `{"op":"&","c":[{"type":"group","id":10},{"type":"group","id":20}],"showc":[true,true]}`, groupRefs(10, 20), false},
		{"in one of both groups", `{"op":"&","c":[{"type":"group","id":10},{"type":"group","id":20}],"showc":[true,true]}`, groupRefs(10), true},

		// Must not be in audit group
		{"excluded group", `{"op":"!&","c":[{"type":"group","id":10}],"show":true}`, groupRefs(10), true},
		{"outside excluded group", `{"op":"!&","c":[{"type":"group","id":10}],"show":true}`, groupRefs(20), false},

		// Must be in either group
		{"in either group", `{"op":"|","c":[{"type":"group","id":10},{"type":"group","id":20}],"show":true}`, groupRefs(20), false},
		{"in neither group", `{"op":"|","c":[{"type":"group","id":10},{"type":"group","id":20}],"show":true}`, groupRefs(5), true},

		// Must not be in 10, or must not be in 20
		{"in a negated group", `{"op":"!|","c":[{"type":"group","id":10},{"type":"group","id":20}],"showc":[true,true]}`, groupRefs(10), true},
		{"outside negated groups", `{"op":"!|","c":[{"type":"group","id":10},{"type":"group","id":20}],"showc":[true,true]}`, groupRefs(5), false},

		// Date conditions are not evaluated
		{"date only", `{"op":"&","c":[{"type":"date","d":">=","t":1541682000}],"showc":[true]}`, groupRefs(5), false},
		{"group and date", `{"op":"&","c":[{"type":"group","id":10},{"type":"date","d":">=","t":1541682000}],"showc":[true,true]}`, groupRefs(10), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := &Module{Availability: tt.availability}
			rules, err := m.Restriction()
			if err != nil {
				t.Fatalf("Restriction: %v", err)
			}
			if got := rules.IsRestricted(tt.groups); got != tt.restricted {
				t.Errorf("IsRestricted(%v) = %v, want %v", tt.groups, got, tt.restricted)
			}
		})
	}
}

func TestModuleWithoutRestriction(t *testing.T) {
	t.Parallel()

	m := &Module{}
	rules, err := m.Restriction()
	if err != nil || rules != nil {
		t.Errorf("expected no restriction, got %v, %v", rules, err)
	}

	m.Availability = "{not json"
	if _, err := m.Restriction(); err == nil {
		t.Error("expected an error for malformed availability")
	}
}
