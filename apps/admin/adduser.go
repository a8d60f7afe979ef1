package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

// newAccount describes a user created from the command line or a seed file.
type newAccount struct {
	Username string `yaml:"username"`
	FullName string `yaml:"full_name"`
	Email    string `yaml:"email"`
	Role     string `yaml:"role"`
	Password string `yaml:"password"`
	Class    string `yaml:"class"` // class level name, students only

	classID      null.Int
	academicYear null.Int
}

// addUser updates or creates a user.User
func (cli *commandLine) addUser(acc newAccount, exec ...core.DBExecutor) (user.User, error) {
	ctx := context.Background()
	uname := core.CleanString(acc.Username, true /* lower */)
	role := core.CleanString(acc.Role, true /* lower */)
	if uname == "" {
		return user.User{}, errors.New("username is required")
	}
	if !user.IsValidRole(role) {
		return user.User{}, fmt.Errorf("invalid role %q", acc.Role)
	}
	if acc.Password == "" {
		return user.User{}, fmt.Errorf("%s: password is required", uname)
	}

	tstamp := time.Now().UTC().Truncate(time.Microsecond)
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: uname}, exec...)
	isNew := err == user.ErrNotFound
	if err != nil && !isNew {
		return user.User{}, err
	}
	if isNew {
		usr = user.User{Username: uname, CreatedAt: tstamp}
	}

	usr.FullName = core.CleanString(acc.FullName)
	if email := core.CleanString(acc.Email, true /* lower */); email != "" {
		usr.Email = email
	}
	usr.Role = role
	usr.UpdatedAt = tstamp
	if role == user.RoleStudent {
		usr.CurrentClassID = acc.classID
		usr.AcademicYear = acc.academicYear
	}
	if err := usr.SetPassword(acc.Password); err != nil {
		return user.User{}, errors.Wrap(err, "setting password")
	}

	if isNew {
		return cli.usrRepo.CreateUser(ctx, usr, exec...)
	}
	return cli.usrRepo.UpdateUser(ctx, usr, exec...)
}
