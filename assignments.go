package moodle

import (
	"context"
	"errors"
	"time"
)

// Assignments covers mod_assign assignments and submissions.
type Assignments struct {
	c Caller
}

type Assignment struct {
	ID                       int64  `json:"id"`
	CmID                     int64  `json:"cmid"`
	Course                   int64  `json:"course"`
	Name                     string `json:"name"`
	Intro                    string `json:"intro"`
	NoSubmissions            int    `json:"nosubmissions"`
	SubmissionDrafts         int    `json:"submissiondrafts"`
	SendNotifications        int    `json:"sendnotifications"`
	SendLateNotifications    int    `json:"sendlatenotifications"`
	Grade                    int64  `json:"grade"`
	CompletionSubmit         int    `json:"completionsubmit"`
	AllowSubmissionsFromDate int64  `json:"allowsubmissionsfromdate"`
	DueDate                  int64  `json:"duedate"`
	CutoffDate               int64  `json:"cutoffdate"`
	GradingDueDate           int64  `json:"gradingduedate"`
	TimeModified             int64  `json:"timemodified"`
}

func (a *Assignment) Due() *time.Time    { return unixTime(a.DueDate) }
func (a *Assignment) Cutoff() *time.Time { return unixTime(a.CutoffDate) }

// CourseAssignments groups the assignments of one course.
type CourseAssignments struct {
	ID           int64        `json:"id"`
	ShortName    string       `json:"shortname"`
	FullName     string       `json:"fullname"`
	TimeModified int64        `json:"timemodified"`
	Assignments  []Assignment `json:"assignments"`
}

type Submission struct {
	ID            int64  `json:"id"`
	UserID        int64  `json:"userid"`
	GroupID       int64  `json:"groupid"`
	AttemptNumber int    `json:"attemptnumber"`
	TimeCreated   int64  `json:"timecreated"`
	TimeModified  int64  `json:"timemodified"`
	Status        string `json:"status"`
	GradingStatus string `json:"gradingstatus"`
	Latest        Flag   `json:"latest"`
}

func (s *Submission) Created() *time.Time  { return unixTime(s.TimeCreated) }
func (s *Submission) Modified() *time.Time { return unixTime(s.TimeModified) }

type AssignmentSubmissions struct {
	AssignmentID int64        `json:"assignmentid"`
	Submissions  []Submission `json:"submissions"`
}

// GetAssignments lists the assignments of each course. No course ids means
// every course the token's user can see.
func (m *Assignments) GetAssignments(ctx context.Context, courseIDs ...int64) ([]CourseAssignments, error) {
	type Result struct {
		Courses  []CourseAssignments `json:"courses"`
		Warnings []Warning           `json:"warnings"`
	}
	var result Result
	if err := m.c.Call(ctx, "mod_assign_get_assignments", SetList(Params{}, "courseids", courseIDs), &result); err != nil {
		return nil, err
	}
	return result.Courses, nil
}

func (m *Assignments) GetSubmissions(ctx context.Context, assignmentIDs ...int64) ([]AssignmentSubmissions, error) {
	type Result struct {
		Assignments []AssignmentSubmissions `json:"assignments"`
		Warnings    []Warning               `json:"warnings"`
	}
	var result Result
	if err := m.c.Call(ctx, "mod_assign_get_submissions", SetList(Params{}, "assignmentids", assignmentIDs), &result); err != nil {
		return nil, err
	}
	return result.Assignments, nil
}

// SetExtensionDate sets a new due date for an assignment for a specific
// user. The assignmentID is the id from the mdl_assign table, not the
// course module id shown in urls.
func (m *Assignments) SetExtensionDate(ctx context.Context, assignmentID, userID int64, due time.Time) error {
	p := Params{}.
		Set("assignmentid", assignmentID).
		SetField("userflags", 0, "userid", userID).
		SetField("userflags", 0, "extensionduedate", due.Unix())

	type Result struct {
		ID       int64  `json:"id"`
		UserID   int64  `json:"userid"`
		ErrorMsg string `json:"errormessage"`
	}
	var results []Result
	if err := m.c.Call(ctx, "mod_assign_set_user_flags", p, &results); err != nil {
		return err
	}
	for _, r := range results {
		if r.ErrorMsg != "" {
			return errors.New(r.ErrorMsg)
		}
	}
	return nil
}
