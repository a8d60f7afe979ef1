package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("user")
	ErrUsernameExists = errors.New("a user with this username already exists")
	ErrNotAStudent    = errors.New("user is not a student")
)

type (
	Repository interface {
		CheckUsernameUniqueness(ctx context.Context, username string, excludedUsers []User, exec ...core.DBExecutor) error
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]User, error)
		GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		DeleteUser(ctx context.Context, id int, exec ...core.DBExecutor) error
	}

	ServiceInterface interface {
		CheckUniqueness(ctx context.Context, uname string, excludedUsers ...User) error
		Create(ctx context.Context, nu NewUser) (User, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetByID(ctx context.Context, id int) (User, error)
		GetByUsername(ctx context.Context, uname string) (User, error)
		Update(ctx context.Context, usr User, uu UpdateUser) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		Delete(ctx context.Context, id int) error
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, data ResetUserPassword) error
	}

	Service struct {
		repo        Repository
		mailSvc     core.EmailService
		tokens      tokenGenerator
		frontendURL string
	}

	passwordResetData struct {
		Username string
		ResetURL string
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		repo:        repo,
		mailSvc:     mailSvc,
		tokens:      newTokenGenerator(conf.SecretKey, conf.Server.PasswordResetTimeoutDelta),
		frontendURL: conf.FrontendURL,
	}
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func (svc *Service) CheckUniqueness(ctx context.Context, uname string, excludedUsers ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(ctx, uname, excludedUsers); err != nil {
		if errors.Cause(err) == ErrUsernameExists {
			return core.NewConflictError(ErrUsernameExists, core.FieldError{Field: "username", Error: ErrUsernameExists.Error()})
		}
		return errors.Wrap(err, "checking username uniqueness")
	}
	return nil
}

// Validate cleans and validates nu, then checks that its username is free.
func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc ServiceInterface) error {
	nu.Clean()
	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Username)
}

// Validate cleans and validates uu against the user being updated.
func (uu *UpdateUser) Validate(ctx context.Context, origUsr User, validate *validator.Validate, svc ServiceInterface) error {
	uu.Clean()
	if err := validate.Struct(uu); err != nil {
		return err
	}
	if uu.Username != nil && *uu.Username != origUsr.Username {
		return svc.CheckUniqueness(ctx, *uu.Username, origUsr)
	}
	return nil
}

func (data *ResetUserPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(data)
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	tstamp := now()
	usr := User{
		Username:       nu.Username,
		Role:           nu.Role,
		FullName:       nu.FullName,
		Email:          nu.Email,
		ProfilePicture: nu.ProfilePicture,
		CurrentClassID: nu.CurrentClassID,
		AcademicYear:   nu.AcademicYear,
		CreatedAt:      tstamp,
		UpdatedAt:      tstamp,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		if errors.Cause(err) == ErrUsernameExists {
			return User{}, core.NewConflictError(err, core.FieldError{Field: "username", Error: ErrUsernameExists.Error()})
		}
		return User{}, err
	}
	return usr, nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByUsername(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Username: core.CleanString(uname, true /* lower */)})
}

func (svc *Service) Update(ctx context.Context, usr User, uu UpdateUser) (User, error) {
	uu.Apply(&usr)
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "setting password")
		}
	}
	usr.UpdatedAt = now()

	updated, err := svc.repo.UpdateUser(ctx, usr)
	if err != nil {
		if errors.Cause(err) == ErrUsernameExists {
			return User{}, core.NewConflictError(err, core.FieldError{Field: "username", Error: ErrUsernameExists.Error()})
		}
		return User{}, err
	}
	return updated, nil
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin.SetValid(now())
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteUser(ctx, id)
}

// RequestPasswordReset emails a password reset link to every account owning email.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = core.CleanString(email, true /* lower */)
	if email == "" {
		return nil
	}
	usrs, err := svc.repo.QueryUsers(ctx, &QueryFilter{Email: email}, nil)
	if err != nil {
		return errors.Wrap(err, "finding users by email")
	}

	messages := make([]*core.EmailMessage, 0, len(usrs))
	for _, usr := range usrs {
		token, err := svc.tokens.MakeToken(usr)
		if err != nil {
			return errors.Wrap(err, "making reset token")
		}
		messages = append(messages, &core.EmailMessage{
			To:           []mail.Address{{Name: usr.FullName, Address: usr.Email}},
			Subject:      "Password reset",
			TemplateName: "password_reset",
			TemplateData: passwordResetData{
				Username: usr.Username,
				ResetURL: fmt.Sprintf("%s/password-reset/%s/%s", svc.frontendURL, EncodeUID(usr), token),
			},
		})
	}
	if len(messages) > 0 {
		svc.mailSvc.SendMessages(messages...)
	}
	return nil
}

// ResetPassword sets a new password when the uid and token of a reset link are valid.
func (svc *Service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	invalid := func(fld string) error {
		return core.NewValidationError(nil, core.FieldError{Field: fld, Error: "invalid value"})
	}

	id, err := decodeUID(data.UID)
	if err != nil {
		return invalid("uid")
	}
	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: id})
	if err != nil {
		if core.IsNotFound(err) {
			return invalid("uid")
		}
		return errors.Wrap(err, "finding user")
	}
	if err = svc.tokens.verifyToken(usr, data.Token); err != nil {
		return invalid("token")
	}

	if err = usr.SetPassword(data.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = now()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return errors.Wrap(err, "updating password")
}
