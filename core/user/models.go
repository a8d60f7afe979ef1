package user

import (
	"time"

	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/darasa/core"
)

// Roles
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

var (
	AllRoles = []string{RoleAdmin, RoleTeacher, RoleStudent}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Admin", Value: RoleAdmin},
	}
)

func IsValidRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID             int       `db:"id" json:"id"`
	Username       string    `db:"username" json:"username"`
	PasswordHash   []byte    `db:"password_hash" json:"-"`
	Role           string    `db:"role" json:"role"`
	FullName       string    `db:"full_name" json:"full_name"`
	Email          string    `db:"email" json:"email"`
	ProfilePicture string    `db:"profile_picture" json:"profile_picture"`
	CurrentClassID null.Int  `db:"current_class_id" json:"current_class_id"`
	AcademicYear   null.Int  `db:"academic_year" json:"academic_year"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"` // UTC
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"` // UTC
	LastLogin      null.Time `db:"last_login" json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u *User) IsTeacher() bool { return u.Role == RoleTeacher }
func (u *User) IsStudent() bool { return u.Role == RoleStudent }

// NewUser contains information needed to create a new User.
type NewUser struct {
	Username        string   `json:"username" validate:"required,min=3,max=50,alphanum_"`
	FullName        string   `json:"full_name" validate:"required,max=120"`
	Email           string   `json:"email" validate:"omitempty,email"`
	Role            string   `json:"role" validate:"required,role"`
	ProfilePicture  string   `json:"profile_picture" validate:"omitempty,url"`
	CurrentClassID  null.Int `json:"current_class_id"`
	AcademicYear    null.Int `json:"academic_year"`
	Password        string   `json:"password" validate:"required"`
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Clean() {
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.FullName = core.CleanString(nu.FullName)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
}

// UpdateUser defines what information may be provided to modify an existing User.
// nil fields are left untouched.
type UpdateUser struct {
	FullName        *string `json:"full_name" validate:"omitempty,notblank,max=120"`
	Email           *string `json:"email" validate:"omitempty,email"`
	ProfilePicture  *string `json:"profile_picture" validate:"omitempty,url"`
	Username        *string `json:"username" validate:"omitempty,min=3,max=50,alphanum_"`
	Role            *string `json:"role" validate:"omitempty,role"`
	CurrentClassID  *int    `json:"current_class_id" validate:"omitempty,min=1"`
	AcademicYear    *int    `json:"academic_year" validate:"omitempty,min=2000,max=2100"`
	Password        string  `json:"password"`
	PasswordConfirm string  `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Clean() {
	cleanPtr := func(s *string, lower bool) {
		if s != nil {
			*s = core.CleanString(*s, lower)
		}
	}
	cleanPtr(uu.FullName, false)
	cleanPtr(uu.Email, true)
	cleanPtr(uu.ProfilePicture, false)
	cleanPtr(uu.Username, true)
	cleanPtr(uu.Role, true)
}

// Apply merges the update into usr.
func (uu *UpdateUser) Apply(usr *User) {
	if uu.FullName != nil {
		usr.FullName = *uu.FullName
	}
	if uu.Email != nil {
		usr.Email = *uu.Email
	}
	if uu.ProfilePicture != nil {
		usr.ProfilePicture = *uu.ProfilePicture
	}
	if uu.Username != nil {
		usr.Username = *uu.Username
	}
	if uu.Role != nil {
		usr.Role = *uu.Role
	}
	if uu.CurrentClassID != nil {
		usr.CurrentClassID = null.IntFrom(*uu.CurrentClassID)
	}
	if uu.AcademicYear != nil {
		usr.AcademicYear = null.IntFrom(*uu.AcademicYear)
	}
}

// ResetUserPassword contains the information needed to set a new password from a reset link.
type ResetUserPassword struct {
	UID             string `json:"uid" validate:"required"`
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

type QueryFilter struct {
	Search         string `query:"search"`
	Role           string `query:"role"`
	Email          string `query:"email"` // exact match
	CurrentClassID int    `query:"class_id"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = core.CleanString(qf.Role, true /* lower */)
	qf.Email = core.CleanString(qf.Email, true /* lower */)
}

type GetFilter struct {
	ID       int
	Username string
	Email    string
}

// TouchedFields lists the json names of the fields the update changes.
func (uu *UpdateUser) TouchedFields() []string {
	var flds []string
	add := func(set bool, name string) {
		if set {
			flds = append(flds, name)
		}
	}
	add(uu.FullName != nil, "full_name")
	add(uu.Email != nil, "email")
	add(uu.ProfilePicture != nil, "profile_picture")
	add(uu.Username != nil, "username")
	add(uu.Role != nil, "role")
	add(uu.CurrentClassID != nil, "current_class_id")
	add(uu.AcademicYear != nil, "academic_year")
	add(uu.Password != "", "password")
	return flds
}
