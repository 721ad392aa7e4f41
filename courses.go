package moodle

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Courses covers course listing, contents and enrolment.
type Courses struct {
	c Caller
}

type Course struct {
	ID                int64  `json:"id"`
	ShortName         string `json:"shortname"`
	FullName          string `json:"fullname"`
	DisplayName       string `json:"displayname"`
	IDNumber          string `json:"idnumber"`
	Category          int64  `json:"category"`
	CategoryID        int64  `json:"categoryid"`
	CategoryName      string `json:"categoryname"`
	Summary           string `json:"summary"`
	SummaryFormat     int    `json:"summaryformat"`
	Format            string `json:"format"`
	StartDate         int64  `json:"startdate"`
	EndDate           int64  `json:"enddate"`
	Visible           Flag   `json:"visible"`
	EnrolledUserCount int    `json:"enrolledusercount"`
	TimeAccess        int64  `json:"timeaccess"`
}

func (c *Course) Start() *time.Time { return unixTime(c.StartDate) }
func (c *Course) End() *time.Time   { return unixTime(c.EndDate) }

type CourseSearchResult struct {
	Total    int       `json:"total"`
	Courses  []Course  `json:"courses"`
	Warnings []Warning `json:"warnings"`
}

type Category struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	IDNumber     string `json:"idnumber"`
	Description  string `json:"description"`
	Parent       int64  `json:"parent"`
	SortOrder    int    `json:"sortorder"`
	CourseCount  int    `json:"coursecount"`
	Visible      Flag   `json:"visible"`
	TimeModified int64  `json:"timemodified"`
	Depth        int    `json:"depth"`
	Path         string `json:"path"`
}

type Section struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Visible Flag     `json:"visible"`
	Summary string   `json:"summary"`
	Section int      `json:"section"`
	Modules []Module `json:"modules"`
}

// Module is an activity inside a course section.
type Module struct {
	ID           int64  `json:"id"`
	URL          string `json:"url"`
	Name         string `json:"name"`
	Instance     int64  `json:"instance"`
	ModName      string `json:"modname"`
	ModPlural    string `json:"modplural"`
	Visible      Flag   `json:"visible"`
	Indent       int    `json:"indent"`
	Availability string `json:"availability"`
}

// Restriction decodes the module's availability rules. Returns nil when
// the module is unrestricted.
func (m *Module) Restriction() (*Restriction, error) {
	if m.Availability == "" {
		return nil, nil
	}
	var r Restriction
	if err := json.Unmarshal([]byte(m.Availability), &r); err != nil {
		return nil, errors.New("Server returned unexpected availability. " + err.Error())
	}
	return &r, nil
}

type GroupRef struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Role struct {
	RoleID    int64  `json:"roleid"`
	Name      string `json:"name"`
	ShortName string `json:"shortname"`
	SortOrder int    `json:"sortorder"`
}

// EnrolledUser is a participant of a course as listed by core_enrol_get_enrolled_users.
type EnrolledUser struct {
	ID                   int64         `json:"id"`
	Username             string        `json:"username"`
	FirstName            string        `json:"firstname"`
	LastName             string        `json:"lastname"`
	FullName             string        `json:"fullname"`
	Email                string        `json:"email"`
	Department           string        `json:"department"`
	Description          string        `json:"description"`
	FirstAccess          int64         `json:"firstaccess"`
	LastAccess           int64         `json:"lastaccess"`
	LastCourseAccess     int64         `json:"lastcourseaccess"`
	ProfileImageURL      string        `json:"profileimageurl"`
	ProfileImageURLSmall string        `json:"profileimageurlsmall"`
	Groups               []GroupRef    `json:"groups"`
	Roles                []Role        `json:"roles"`
	CustomFields         []CustomField `json:"customfields"`
}

func (u *EnrolledUser) FirstAccessTime() *time.Time { return unixTime(u.FirstAccess) }
func (u *EnrolledUser) LastAccessTime() *time.Time  { return unixTime(u.LastAccess) }

func (u *EnrolledUser) CustomField(name string) string {
	for _, i := range u.CustomFields {
		if name == i.Name {
			return i.Value
		}
	}
	return ""
}

func (u *EnrolledUser) HasGroupNamed(name string) bool {
	name = strings.ToLower(name)
	for _, i := range u.Groups {
		if name == strings.ToLower(i.Name) || name == strings.ToLower(i.Description) {
			return true
		}
	}
	return false
}

func (u *EnrolledUser) HasRoleNamed(name string) bool {
	name = strings.ToLower(name)
	for _, i := range u.Roles {
		if name == strings.ToLower(i.Name) || name == strings.ToLower(i.ShortName) {
			return true
		}
	}
	return false
}

// GetUserCourses lists the courses a user is enrolled in. A userID of 0
// means the user the token belongs to.
func (m *Courses) GetUserCourses(ctx context.Context, userID int64) ([]Course, error) {
	userID, err := currentUserID(ctx, m.c, userID)
	if err != nil {
		return nil, err
	}
	var courses []Course
	err = m.c.Call(ctx, "core_enrol_get_users_courses", Params{}.Set("userid", userID), &courses)
	return courses, err
}

// GetEnrolledUsers lists the participants of a course. Options such as
// {"onlyactive", "1"} or {"userfields", "email"} filter the result.
func (m *Courses) GetEnrolledUsers(ctx context.Context, courseID int64, options ...Option) ([]EnrolledUser, error) {
	p := Params{}.Set("courseid", courseID).SetOptions("options", options)
	var users []EnrolledUser
	err := m.c.Call(ctx, "core_enrol_get_enrolled_users", p, &users)
	return users, err
}

// GetEnrolledUsersByCapability lists participants holding capability, e.g. "mod/assign:submit".
func (m *Courses) GetEnrolledUsersByCapability(ctx context.Context, courseID int64, capability string) ([]EnrolledUser, error) {
	return m.GetEnrolledUsers(ctx, courseID, Option{Name: "withcapability", Value: capability})
}

// GetCourseByField searches courses by id, ids, shortname, idnumber or category.
func (m *Courses) GetCourseByField(ctx context.Context, field string, value any) ([]Course, error) {
	type Result struct {
		Courses  []Course  `json:"courses"`
		Warnings []Warning `json:"warnings"`
	}
	var result Result
	p := Params{}.Set("field", field).Set("value", value)
	if err := m.c.Call(ctx, "core_course_get_courses_by_field", p, &result); err != nil {
		return nil, err
	}
	if result.Courses == nil {
		return []Course{}, nil
	}
	return result.Courses, nil
}

// GetCourseByID returns nil, nil when no course has the id.
func (m *Courses) GetCourseByID(ctx context.Context, courseID int64) (*Course, error) {
	courses, err := m.GetCourseByField(ctx, "id", courseID)
	if err != nil {
		return nil, err
	}
	if len(courses) == 0 {
		return nil, nil
	}
	return &courses[0], nil
}

// GetCategories lists course categories matching criteria such as {"parent", "0"}.
func (m *Courses) GetCategories(ctx context.Context, criteria ...Criterion) ([]Category, error) {
	var categories []Category
	err := m.c.Call(ctx, "core_course_get_categories", Params{}.SetCriteria("criteria", criteria), &categories)
	return categories, err
}

// GetCourseContents lists the sections of a course with their modules.
func (m *Courses) GetCourseContents(ctx context.Context, courseID int64) ([]Section, error) {
	var sections []Section
	err := m.c.Call(ctx, "core_course_get_contents", Params{}.Set("courseid", courseID), &sections)
	return sections, err
}

// GetCourseModules lists every module of a course in section order.
func (m *Courses) GetCourseModules(ctx context.Context, courseID int64) ([]Module, error) {
	sections, err := m.GetCourseContents(ctx, courseID)
	if err != nil {
		return nil, err
	}
	modules := make([]Module, 0)
	for _, s := range sections {
		modules = append(modules, s.Modules...)
	}
	return modules, nil
}

// GetRecentCourses lists a user's recently accessed courses. A userID of 0
// means the token's user, a limit of 0 means 10.
func (m *Courses) GetRecentCourses(ctx context.Context, userID int64, limit int) ([]Course, error) {
	userID, err := currentUserID(ctx, m.c, userID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	var courses []Course
	err = m.c.Call(ctx, "core_course_get_recent_courses", Params{}.Set("userid", userID).Set("limit", limit), &courses)
	return courses, err
}

// SearchCourses searches course names and summaries. Pages count from 0,
// a perPage of 0 means 10.
func (m *Courses) SearchCourses(ctx context.Context, search string, page, perPage int) (*CourseSearchResult, error) {
	if perPage <= 0 {
		perPage = 10
	}
	p := Params{}.
		Set("criterianame", "search").
		Set("criteriavalue", search).
		Set("page", page).
		Set("perpage", perPage)
	var result CourseSearchResult
	if err := m.c.Call(ctx, "core_course_search_courses", p, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// EnrolUser enrols a user with a role through the manual enrolment plugin.
func (m *Courses) EnrolUser(ctx context.Context, courseID, userID, roleID int64) error {
	p := Params{}.
		SetField("enrolments", 0, "roleid", roleID).
		SetField("enrolments", 0, "userid", userID).
		SetField("enrolments", 0, "courseid", courseID)
	return m.c.Call(ctx, "enrol_manual_enrol_users", p, nil)
}

// UnenrolUser removes a manual enrolment. Moodle's bug causes roleid to be
// ignored: https://tracker.moodle.org/browse/MDL-51152
func (m *Courses) UnenrolUser(ctx context.Context, courseID, userID, roleID int64) error {
	p := Params{}.
		SetField("enrolments", 0, "roleid", roleID).
		SetField("enrolments", 0, "userid", userID).
		SetField("enrolments", 0, "courseid", courseID)
	return m.c.Call(ctx, "enrol_manual_unenrol_users", p, nil)
}
