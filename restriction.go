package moodle

// Restriction is the group availability tree of a course module, e.g.
//
//	{"op":"&","c":[{"type":"group","id":191}],"showc":[true]}
type Restriction struct {
	OP    string         `json:"op"`
	C     []RestrictionC `json:"c"`
	Show  bool           `json:"show"`
	ShowC []bool         `json:"showc"`
}

type RestrictionC struct {
	Type string `json:"type"`
	Id   int64  `json:"id"`
	D    string `json:"d"`
	T    int64  `json:"t"`
}

func (r *Restriction) groupConditions() []RestrictionC {
	var conditions []RestrictionC
	for _, c := range r.C {
		if c.Type == "group" {
			conditions = append(conditions, c)
		}
	}
	return conditions
}

func inGroup(c RestrictionC, groups []GroupRef) bool {
	for _, g := range groups {
		if c.Id == g.ID {
			return true
		}
	}
	return false
}

// IsRestricted reports whether a member of groups is denied the module.
// Only group conditions are evaluated.
func (r *Restriction) IsRestricted(groups []GroupRef) bool {
	conditions := r.groupConditions()
	if len(conditions) == 0 {
		return false
	}
	switch r.OP {
	case "&":
		// Check user is in every group
		for _, c := range conditions {
			if !inGroup(c, groups) {
				return true
			}
		}
		return false
	case "!&":
		// Check user is not in every group
		for _, c := range conditions {
			if inGroup(c, groups) {
				return true
			}
		}
		return false
	case "|":
		// Check user is in one of the groups
		for _, c := range conditions {
			if inGroup(c, groups) {
				return false
			}
		}
		return true
	case "!|":
		// Check user is not in one of the groups
		for _, c := range conditions {
			if inGroup(c, groups) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
