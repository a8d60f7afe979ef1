package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/policy"
	"github.com/trezcool/darasa/core/school"
)

type subjectApi struct {
	svc      school.ServiceInterface
	validate *validator.Validate
}

func registerSubjectAPI(g *echo.Group, gd guard, svc school.ServiceInterface, validate *validator.Validate) {
	api := subjectApi{svc: svc, validate: validate}
	object := objectMiddleware(svc.GetSubject)

	sg := g.Group("/subjects")
	sg.GET("", api.query, gd.require(policy.ReadSubjects))
	sg.POST("", api.create, gd.require(policy.ManageSubjects))
	sg.GET("/class/:id", api.queryByClassLevel, gd.require(policy.ReadSubjects))
	sg.GET("/teacher/:id", api.queryByTeacher, gd.require(policy.ReadSubjects))
	sg.GET("/:id", api.retrieve, gd.require(policy.ReadSubjects), object)
	sg.PATCH("/:id", api.update, gd.require(policy.ManageSubjects), object)
	sg.DELETE("/:id", api.destroy, gd.require(policy.ManageSubjects))
}

func (api *subjectApi) list(ctx echo.Context, filter *school.SubjectFilter) error {
	subjects, err := api.svc.QuerySubjects(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *subjectApi) query(ctx echo.Context) error {
	return api.list(ctx, nil)
}

func (api *subjectApi) queryByClassLevel(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	return api.list(ctx, &school.SubjectFilter{ClassLevelID: id})
}

func (api *subjectApi) queryByTeacher(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	return api.list(ctx, &school.SubjectFilter{TeacherID: id})
}

func (api *subjectApi) create(ctx echo.Context) error {
	var data school.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	subj, err := api.svc.CreateSubject(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, subj)
}

func (api *subjectApi) retrieve(ctx echo.Context) error {
	subj, err := contextObject[school.Subject](ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, subj)
}

func (api *subjectApi) update(ctx echo.Context) error {
	subj, err := contextObject[school.Subject](ctx)
	if err != nil {
		return err
	}

	var data school.UpdateSubject
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSubject")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	if subj, err = api.svc.UpdateSubject(ctx.Request().Context(), subj, data); err != nil {
		return errors.Wrap(err, "updating subject")
	}
	return ctx.JSON(http.StatusOK, subj)
}

func (api *subjectApi) destroy(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if err = api.svc.DeleteSubject(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	return ctx.NoContent(http.StatusNoContent)
}
