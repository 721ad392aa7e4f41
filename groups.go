package moodle

import (
	"context"
	"errors"
	"fmt"
)

// Groups covers course groups and their members, groupings and cohorts.
type Groups struct {
	c Caller
}

type Group struct {
	ID                int64  `json:"id"`
	CourseID          int64  `json:"courseid"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	DescriptionFormat int    `json:"descriptionformat"`
	EnrolmentKey      string `json:"enrolmentkey"`
	IDNumber          string `json:"idnumber"`
}

type GroupMembers struct {
	GroupID int64   `json:"groupid"`
	UserIDs []int64 `json:"userids"`
}

type GroupWithMembers struct {
	Group
	Members     []int64
	MemberCount int
}

type Membership struct {
	GroupID int64
	UserID  int64
}

// NewGroup describes a group to create.
type NewGroup struct {
	CourseID    int64
	Name        string
	Description string
	IDNumber    string
}

type Grouping struct {
	ID          int64   `json:"id"`
	CourseID    int64   `json:"courseid"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	IDNumber    string  `json:"idnumber"`
	Groups      []Group `json:"groups"`
}

// List the details of each group in a course.
func (m *Groups) GetCourseGroups(ctx context.Context, courseID int64) ([]Group, error) {
	var groups []Group
	err := m.c.Call(ctx, "core_group_get_course_groups", Params{}.Set("courseid", courseID), &groups)
	return groups, err
}

func (m *Groups) GetGroupMembers(ctx context.Context, groupIDs ...int64) ([]GroupMembers, error) {
	var members []GroupMembers
	err := m.c.Call(ctx, "core_group_get_group_members", SetList(Params{}, "groupids", groupIDs), &members)
	return members, err
}

func (m *Groups) AddGroupMembers(ctx context.Context, members ...Membership) error {
	return m.c.Call(ctx, "core_group_add_group_members", membershipParams(members), nil)
}

func (m *Groups) AddUserToGroup(ctx context.Context, groupID, userID int64) error {
	return m.AddGroupMembers(ctx, Membership{GroupID: groupID, UserID: userID})
}

func (m *Groups) RemoveGroupMembers(ctx context.Context, members ...Membership) error {
	return m.c.Call(ctx, "core_group_delete_group_members", membershipParams(members), nil)
}

func (m *Groups) RemoveUserFromGroup(ctx context.Context, groupID, userID int64) error {
	return m.RemoveGroupMembers(ctx, Membership{GroupID: groupID, UserID: userID})
}

func membershipParams(members []Membership) Params {
	p := Params{}
	for i, member := range members {
		p.SetField("members", i, "groupid", member.GroupID)
		p.SetField("members", i, "userid", member.UserID)
	}
	return p
}

// CreateGroups creates groups and returns them with their new ids.
func (m *Groups) CreateGroups(ctx context.Context, groups ...NewGroup) ([]Group, error) {
	p := Params{}
	for i, g := range groups {
		p.SetField("groups", i, "courseid", g.CourseID)
		p.SetField("groups", i, "name", g.Name)
		p.SetField("groups", i, "description", g.Description)
		if g.IDNumber != "" {
			p.SetField("groups", i, "idnumber", g.IDNumber)
		}
	}
	var created []Group
	err := m.c.Call(ctx, "core_group_create_groups", p, &created)
	return created, err
}

func (m *Groups) CreateGroup(ctx context.Context, courseID int64, name, description string) (*Group, error) {
	created, err := m.CreateGroups(ctx, NewGroup{CourseID: courseID, Name: name, Description: description})
	if err != nil {
		return nil, err
	}
	if len(created) != 1 {
		return nil, errors.New("Moodle returned unexpected response. Expected one group.")
	}
	return &created[0], nil
}

func (m *Groups) DeleteGroups(ctx context.Context, groupIDs ...int64) error {
	return m.c.Call(ctx, "core_group_delete_groups", SetList(Params{}, "groupids", groupIDs), nil)
}

func (m *Groups) GetCourseGroupings(ctx context.Context, courseID int64) ([]Grouping, error) {
	var groupings []Grouping
	err := m.c.Call(ctx, "core_group_get_course_groupings", Params{}.Set("courseid", courseID), &groupings)
	return groupings, err
}

// GetGroupingGroups lists the groups of a grouping. An unknown grouping
// yields an empty list.
func (m *Groups) GetGroupingGroups(ctx context.Context, groupingID int64) ([]Group, error) {
	p := SetList(Params{}, "groupingids", []int64{groupingID}).Set("returngroups", 1)
	var groupings []Grouping
	if err := m.c.Call(ctx, "core_group_get_groupings", p, &groupings); err != nil {
		return nil, err
	}
	if len(groupings) == 0 {
		return []Group{}, nil
	}
	return groupings[0].Groups, nil
}

// GetGroupingGroupsWithMembers lists a grouping's groups with their members,
// using one members request for all groups.
func (m *Groups) GetGroupingGroupsWithMembers(ctx context.Context, groupingID int64) ([]GroupWithMembers, error) {
	groups, err := m.GetGroupingGroups(ctx, groupingID)
	if err != nil {
		return nil, err
	}
	return m.withMembers(ctx, groups)
}

// GetGroupsByMemberCount lists the course groups with at least minMembers members.
func (m *Groups) GetGroupsByMemberCount(ctx context.Context, courseID int64, minMembers int) ([]GroupWithMembers, error) {
	groups, err := m.GetCourseGroups(ctx, courseID)
	if err != nil {
		return nil, err
	}
	all, err := m.withMembers(ctx, groups)
	if err != nil {
		return nil, err
	}
	result := make([]GroupWithMembers, 0, len(all))
	for _, g := range all {
		if g.MemberCount >= minMembers {
			result = append(result, g)
		}
	}
	return result, nil
}

func (m *Groups) withMembers(ctx context.Context, groups []Group) ([]GroupWithMembers, error) {
	result := make([]GroupWithMembers, 0, len(groups))
	if len(groups) == 0 {
		return result, nil
	}
	ids := make([]int64, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID)
	}
	members, err := m.GetGroupMembers(ctx, ids...)
	if err != nil {
		return nil, err
	}
	byGroup := make(map[int64][]int64, len(members))
	for _, gm := range members {
		byGroup[gm.GroupID] = gm.UserIDs
	}
	for _, g := range groups {
		userIDs := byGroup[g.ID]
		result = append(result, GroupWithMembers{Group: g, Members: userIDs, MemberCount: len(userIDs)})
	}
	return result, nil
}

func (m *Groups) AssignGrouping(ctx context.Context, groupingID, groupID int64) error {
	p := Params{}.
		SetField("assignments", 0, "groupingid", groupingID).
		SetField("assignments", 0, "groupid", groupID)
	return m.c.Call(ctx, "core_group_assign_grouping", p, nil)
}

func (m *Groups) UnassignGrouping(ctx context.Context, groupingID, groupID int64) error {
	p := Params{}.
		SetField("unassignments", 0, "groupingid", groupingID).
		SetField("unassignments", 0, "groupid", groupID)
	return m.c.Call(ctx, "core_group_unassign_grouping", p, nil)
}

type Cohort struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	IDNumber          string `json:"idnumber"`
	Description       string `json:"description"`
	DescriptionFormat int    `json:"descriptionformat"`
	Visible           Flag   `json:"visible"`
}

type CohortMember struct {
	CohortID int64
	UserID   int64
}

// GetCohorts lists the given cohorts, or every cohort when no id is passed.
func (m *Groups) GetCohorts(ctx context.Context, cohortIDs ...int64) ([]Cohort, error) {
	var cohorts []Cohort
	err := m.c.Call(ctx, "core_cohort_get_cohorts", SetList(Params{}, "cohortids", cohortIDs), &cohorts)
	return cohorts, err
}

// AddCohortMembers adds users to cohorts, both addressed by id. Members
// moodle could not add are returned as warnings.
func (m *Groups) AddCohortMembers(ctx context.Context, members ...CohortMember) ([]Warning, error) {
	p := Params{}
	for i, member := range members {
		prefix := fmt.Sprintf("members[%d]", i)
		p.Set(prefix+"[cohorttype][type]", "id")
		p.Set(prefix+"[cohorttype][value]", member.CohortID)
		p.Set(prefix+"[usertype][type]", "id")
		p.Set(prefix+"[usertype][value]", member.UserID)
	}
	var response struct {
		Warnings []Warning `json:"warnings"`
	}
	if err := m.c.Call(ctx, "core_cohort_add_cohort_members", p, &response); err != nil {
		return nil, err
	}
	return response.Warnings, nil
}

func (m *Groups) DeleteCohortMembers(ctx context.Context, members ...CohortMember) error {
	p := Params{}
	for i, member := range members {
		p.SetField("members", i, "cohortid", member.CohortID)
		p.SetField("members", i, "userid", member.UserID)
	}
	return m.c.Call(ctx, "core_cohort_delete_cohort_members", p, nil)
}
