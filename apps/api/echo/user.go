package echoapi

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/policy"
	"github.com/trezcool/darasa/core/user"
)

var (
	errInvalidRole = "must be one of: " + strings.Join(user.AllRoles, ", ")

	userOrderingFields = []string{"id", "username", "full_name", "email", "role", "created_at", "updated_at", "last_login"}
)

type userApi struct {
	guard
	auth     *jwtAuth
	svc      user.ServiceInterface
	validate *validator.Validate
}

func registerUserAPI(
	g *echo.Group,
	gd guard,
	auth *jwtAuth,
	limiter echo.MiddlewareFunc,
	svc user.ServiceInterface,
	validate *validator.Validate,
) {
	api := userApi{
		guard:    gd,
		auth:     auth,
		svc:      svc,
		validate: validate,
	}

	// un-authed endpoints
	ag := g.Group("/auth")
	ag.POST("/login", api.login, limiter)
	ag.POST("/password-reset", api.resetPassword, limiter)
	ag.POST("/password-reset-confirm", api.confirmPasswordReset, limiter)
	ag.POST("/token-refresh", api.refreshToken, loginRequired)

	ug := g.Group("/users")
	ug.GET("", api.query, gd.require(policy.ListUsers))
	ug.POST("", api.create, gd.require(policy.CreateUser))
	ug.GET("/me", api.me, loginRequired)
	ug.GET("/roles", api.roles, loginRequired)
	ug.GET("/:role", api.queryByRole, gd.require(policy.ListUsers))
	ug.PATCH("/:id", api.update, gd.requireAny(policy.UpdateProfile))
	ug.DELETE("/:id", api.destroy, gd.require(policy.DeleteUser))
}

// Handlers

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	usr, err := api.svc.GetByUsername(reqCtx, data.Username)
	if err != nil {
		if core.IsNotFound(err) {
			return errAuthenticationFailed
		}
		return errors.Wrap(err, "finding user by username")
	}
	if err = usr.CheckPassword(data.Password); err != nil {
		return errAuthenticationFailed
	}

	if usr, err = api.svc.SetLastLogin(reqCtx, usr); err != nil {
		return errors.Wrap(err, "setting last login")
	}
	token, err := api.auth.GenerateToken(api.auth.UserClaims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	usr, err := mustContextUser(ctx)
	if err != nil {
		return err
	}

	token, err := api.auth.refresh(usr, claims)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *userApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); !(err == nil || core.IsNotFound(err)) {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *userApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *userApi) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	reqCtx := ctx.Request().Context()
	if err := data.Validate(reqCtx, api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Create(reqCtx, data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) query(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.User{})
	}
	filter.Clean()
	return api.list(ctx, filter)
}

func (api *userApi) queryByRole(ctx echo.Context) error {
	role := core.CleanString(ctx.Param("role"), true /* lower */)
	if !user.IsValidRole(role) {
		return core.NewValidationError(nil, core.FieldError{Field: "role", Error: errInvalidRole})
	}
	return api.list(ctx, &user.QueryFilter{Role: role})
}

func (api *userApi) list(ctx echo.Context, filter *user.QueryFilter) error {
	ordering := new(Ordering)
	ordering.Bind(ctx, userOrderingFields...)

	users, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) me(ctx echo.Context) error {
	usr, err := mustContextUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

// roles lists the roles a user can have, for role pickers.
func (api *userApi) roles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}

func (api *userApi) update(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	var data user.UpdateUser
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}

	// non-admins may only change their own profile fields
	if err = api.authorize(ctx, policy.UpdateProfile, policy.Target{OwnerID: id, Fields: data.TouchedFields()}); err != nil {
		return err
	}
	if data.Role != nil {
		if err = api.authorize(ctx, policy.ChangeRole, policy.OwnedBy(id)); err != nil {
			return err
		}
	}

	reqCtx := ctx.Request().Context()
	usr, err := api.svc.GetByID(reqCtx, id)
	if err != nil {
		return err
	}
	if err = data.Validate(reqCtx, usr, api.validate, api.svc); err != nil {
		return err
	}

	usr, err = api.svc.Update(reqCtx, usr, data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) destroy(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	// Say No to Suicide! ctxUser cannot delete themselves
	if err = api.authorize(ctx, policy.DeleteUser, policy.OwnedBy(id)); err != nil {
		return err
	}

	if err = api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
