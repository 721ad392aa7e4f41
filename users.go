package moodle

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Users covers moodle accounts.
type Users struct {
	c Caller
}

type User struct {
	ID                   int64         `json:"id"`
	Username             string        `json:"username"`
	FirstName            string        `json:"firstname"`
	LastName             string        `json:"lastname"`
	FullName             string        `json:"fullname"`
	Email                string        `json:"email"`
	Department           string        `json:"department"`
	Institution          string        `json:"institution"`
	IDNumber             string        `json:"idnumber"`
	Auth                 string        `json:"auth"`
	Suspended            Flag          `json:"suspended"`
	FirstAccess          int64         `json:"firstaccess"`
	LastAccess           int64         `json:"lastaccess"`
	ProfileImageURL      string        `json:"profileimageurl"`
	ProfileImageURLSmall string        `json:"profileimageurlsmall"`
	CustomFields         []CustomField `json:"customfields"`
}

func (u *User) Field(name string) string {
	for _, c := range u.CustomFields {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func (u *User) LastAccessTime() *time.Time { return unixTime(u.LastAccess) }

// NewUser describes an account to create. An empty Password asks moodle
// to generate one and email it to the user.
type NewUser struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Email     string
	Auth      string
	IDNumber  string
}

type CreatedUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// UserUpdate changes the non-empty fields of account ID.
type UserUpdate struct {
	ID           int64
	Username     string
	Password     string
	FirstName    string
	LastName     string
	Email        string
	Suspended    *bool
	CustomFields []CustomField
}

func (m *Users) CreateUsers(ctx context.Context, users ...NewUser) ([]CreatedUser, error) {
	p := Params{}
	for i, u := range users {
		if !strings.Contains(u.Email, "@") {
			return nil, errors.New("Invalid email address")
		}
		p.SetField("users", i, "username", u.Username)
		p.SetField("users", i, "firstname", u.FirstName)
		p.SetField("users", i, "lastname", u.LastName)
		p.SetField("users", i, "email", u.Email)
		if u.Password == "" {
			p.SetField("users", i, "createpassword", 1)
		} else {
			p.SetField("users", i, "password", u.Password)
		}
		if u.Auth != "" {
			p.SetField("users", i, "auth", u.Auth)
		}
		if u.IDNumber != "" {
			p.SetField("users", i, "idnumber", u.IDNumber)
		}
	}
	var created []CreatedUser
	err := m.c.Call(ctx, "core_user_create_users", p, &created)
	return created, err
}

// CreateUser creates one account and returns its id.
func (m *Users) CreateUser(ctx context.Context, u NewUser) (int64, error) {
	created, err := m.CreateUsers(ctx, u)
	if err != nil {
		return 0, err
	}
	if len(created) != 1 {
		return 0, errors.New("Server returned unexpected response. ID is missing.")
	}
	return created[0].ID, nil
}

// GetUsers searches accounts by criteria such as {"email", "%@example.com"}.
func (m *Users) GetUsers(ctx context.Context, criteria ...Criterion) ([]User, error) {
	type Result struct {
		Users    []User    `json:"users"`
		Warnings []Warning `json:"warnings"`
	}
	var result Result
	if err := m.c.Call(ctx, "core_user_get_users", Params{}.SetCriteria("criteria", criteria), &result); err != nil {
		return nil, err
	}
	return result.Users, nil
}

// GetUsersByField matches accounts on id, idnumber, username or email.
func (m *Users) GetUsersByField(ctx context.Context, field string, values ...string) ([]User, error) {
	var users []User
	err := m.c.Call(ctx, "core_user_get_users_by_field", SetList(Params{}.Set("field", field), "values", values), &users)
	return users, err
}

// GetUserByEmail returns nil when no account matches, and an error when
// several do.
func (m *Users) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	users, err := m.GetUsersByField(ctx, "email", email)
	if err != nil {
		return nil, err
	}
	switch len(users) {
	case 0:
		return nil, nil
	case 1:
		return &users[0], nil
	}
	return nil, errors.New("Multiple moodle accounts match this email address")
}

// UpdateUser updates the basic details of a moodle account. The password is
// only updated when it is not blank.
func (m *Users) UpdateUser(ctx context.Context, u UserUpdate) error {
	if u.Email != "" && !strings.Contains(u.Email, "@") {
		return errors.New("Invalid email address")
	}
	p := Params{}.SetField("users", 0, "id", u.ID)
	for _, f := range []struct{ name, value string }{
		{"username", u.Username},
		{"password", u.Password},
		{"firstname", u.FirstName},
		{"lastname", u.LastName},
		{"email", u.Email},
	} {
		if f.value != "" {
			p.SetField("users", 0, f.name, f.value)
		}
	}
	if u.Suspended != nil {
		p.SetField("users", 0, "suspended", *u.Suspended)
	}
	for i, c := range u.CustomFields {
		p.Set(customFieldKey(i, "type"), c.Name)
		p.Set(customFieldKey(i, "value"), c.Value)
	}
	return m.c.Call(ctx, "core_user_update_users", p, nil)
}

func customFieldKey(i int, field string) string {
	return "users[0][customfields][" + formatValue(i) + "][" + field + "]"
}

// ResetPassword sets the password of an account. An empty password is
// replaced by RandomPassword. Returns the password set.
func (m *Users) ResetPassword(ctx context.Context, userID int64, password string) (string, error) {
	if password == "" {
		password = RandomPassword()
	}
	if err := m.UpdateUser(ctx, UserUpdate{ID: userID, Password: password}); err != nil {
		return "", err
	}
	return password, nil
}
