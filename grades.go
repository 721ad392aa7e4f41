package moodle

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// Grades covers assignment grades and the course gradebook.
type Grades struct {
	c Caller
}

type Grade struct {
	ID            int64  `json:"id"`
	Assignment    int64  `json:"assignment"`
	UserID        int64  `json:"userid"`
	AttemptNumber int    `json:"attemptnumber"`
	TimeCreated   int64  `json:"timecreated"`
	TimeModified  int64  `json:"timemodified"`
	Grader        int64  `json:"grader"`
	Grade         string `json:"grade"`
}

// Value parses the grade moodle sends as a decimal string, e.g. "85.00000".
func (g *Grade) Value() (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(g.Grade), 64)
}

type AssignmentGrades struct {
	AssignmentID int64   `json:"assignmentid"`
	Grades       []Grade `json:"grades"`
}

// GradeUpdate is the input of mod_assign_save_grade.
type GradeUpdate struct {
	AssignmentID int64
	UserID       int64
	Grade        float64
	// AttemptNumber -1 grades the latest attempt.
	AttemptNumber int
	AddAttempt    bool
	WorkflowState string
	ApplyToAll    bool
	// Feedback is stored as an HTML feedback comment when set.
	Feedback string
}

func (m *Grades) GetGrades(ctx context.Context, assignmentIDs ...int64) ([]AssignmentGrades, error) {
	type Result struct {
		Assignments []AssignmentGrades `json:"assignments"`
		Warnings    []Warning          `json:"warnings"`
	}
	var result Result
	if err := m.c.Call(ctx, "mod_assign_get_grades", SetList(Params{}, "assignmentids", assignmentIDs), &result); err != nil {
		return nil, err
	}
	return result.Assignments, nil
}

// SaveGrade grades the latest attempt of a user with an optional feedback comment.
func (m *Grades) SaveGrade(ctx context.Context, assignmentID, userID int64, grade float64, feedback string) error {
	return m.SaveGradeUpdate(ctx, GradeUpdate{
		AssignmentID:  assignmentID,
		UserID:        userID,
		Grade:         grade,
		AttemptNumber: -1,
		Feedback:      feedback,
	})
}

func (m *Grades) SaveGradeUpdate(ctx context.Context, g GradeUpdate) error {
	p := Params{}.
		Set("assignmentid", g.AssignmentID).
		Set("userid", g.UserID).
		Set("grade", g.Grade).
		Set("attemptnumber", g.AttemptNumber).
		Set("addattempt", g.AddAttempt).
		Set("workflowstate", g.WorkflowState).
		Set("applytoall", g.ApplyToAll)
	if g.Feedback != "" {
		p.Set("plugindata[assignfeedbackcomments_editor][text]", g.Feedback)
		p.Set("plugindata[assignfeedbackcomments_editor][format]", 1)
	}
	return m.c.Call(ctx, "mod_assign_save_grade", p, nil)
}

type GradebookEntry struct {
	CourseID int64           `json:"courseid"`
	UserID   int64           `json:"userid"`
	Name     string          `json:"userfullname"`
	MaxDepth int64           `json:"maxdepth"`
	Item     []GradebookItem `json:"gradeitems"`
}

type GradebookItem struct {
	ID                  int64   `json:"id"`
	ItemName            string  `json:"itemname"`
	ItemType            string  `json:"itemtype"`
	ItemModule          string  `json:"itemmodule"`
	ItemInstance        int64   `json:"iteminstance"`
	ItemNumber          int64   `json:"itemnumber"`
	CategoryID          int64   `json:"categoryid"`
	OutcomeID           int64   `json:"outcomeid"`
	CourseModuleID      int64   `json:"cmid"`
	GradeRaw            float64 `json:"graderaw"`
	GradeMax            float64 `json:"grademax"`
	GradeFormatted      string  `json:"gradeformatted"`
	GradeDateSubmitted  int64   `json:"gradedatesubmitted"`
	GradeDateGraded     int64   `json:"gradedategraded"`
	PercentageFormatted string  `json:"percentageformatted"`
	WeightRaw           float64 `json:"weightraw"`
	GradeIsHidden       bool    `json:"gradeishidden"`
}

// InferGrade returns the item grade as a percentage, from the raw grade
// when one is recorded and otherwise from the formatted percentage.
func (i *GradebookItem) InferGrade() float64 {
	if i.GradeMax > 0 && i.GradeRaw > 0 {
		return 100 * i.GradeRaw / i.GradeMax
	}
	pct, ok := strings.CutSuffix(i.PercentageFormatted, "%")
	if !ok {
		return 0
	}
	grade, err := strconv.ParseFloat(strings.TrimSpace(pct), 64)
	if err != nil {
		return 0
	}
	return grade
}

func (i *GradebookItem) Submitted() *time.Time { return unixTime(i.GradeDateSubmitted) }
func (i *GradebookItem) Graded() *time.Time    { return unixTime(i.GradeDateGraded) }

// List all gradebook data associated with a course.
func (m *Grades) GetCourseGradebook(ctx context.Context, courseID int64) ([]GradebookEntry, error) {
	type Results struct {
		Usergrades []GradebookEntry `json:"usergrades"`
		Warnings   []Warning        `json:"warnings"`
	}
	var results Results
	if err := m.c.Call(ctx, "gradereport_user_get_grade_items", Params{}.Set("courseid", courseID), &results); err != nil {
		return nil, err
	}
	return results.Usergrades, nil
}
