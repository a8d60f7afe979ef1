package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/policy"
	"github.com/trezcool/darasa/core/school"
	"github.com/trezcool/darasa/core/user"
)

type classLevelApi struct {
	svc      school.ServiceInterface
	usrSvc   user.ServiceInterface
	validate *validator.Validate
}

func registerClassLevelAPI(
	g *echo.Group,
	gd guard,
	svc school.ServiceInterface,
	usrSvc user.ServiceInterface,
	validate *validator.Validate,
) {
	api := classLevelApi{
		svc:      svc,
		usrSvc:   usrSvc,
		validate: validate,
	}
	object := objectMiddleware(svc.GetClassLevel)

	cg := g.Group("/class-levels")
	cg.GET("", api.query, gd.require(policy.ReadClassLevels))
	cg.POST("", api.create, gd.require(policy.ManageClassLevels))
	cg.GET("/:id", api.retrieve, gd.require(policy.ReadClassLevels), object)
	cg.PATCH("/:id", api.update, gd.require(policy.ManageClassLevels), object)
	cg.DELETE("/:id", api.destroy, gd.require(policy.ManageClassLevels))
	cg.GET("/:id/students", api.students, gd.require(policy.ReadUsers), object)
}

func (api *classLevelApi) query(ctx echo.Context) error {
	filter := new(school.ClassLevelFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []school.ClassLevel{})
	}

	classLevels, err := api.svc.QueryClassLevels(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying class levels")
	}
	return ctx.JSON(http.StatusOK, classLevels)
}

func (api *classLevelApi) create(ctx echo.Context) error {
	var data school.NewClassLevel
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClassLevel")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cl, err := api.svc.CreateClassLevel(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, cl)
}

func (api *classLevelApi) retrieve(ctx echo.Context) error {
	cl, err := contextObject[school.ClassLevel](ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cl)
}

func (api *classLevelApi) update(ctx echo.Context) error {
	cl, err := contextObject[school.ClassLevel](ctx)
	if err != nil {
		return err
	}

	var data school.UpdateClassLevel
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClassLevel")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	if cl, err = api.svc.UpdateClassLevel(ctx.Request().Context(), cl, data); err != nil {
		return errors.Wrap(err, "updating class level")
	}
	return ctx.JSON(http.StatusOK, cl)
}

func (api *classLevelApi) destroy(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if err = api.svc.DeleteClassLevel(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting class level")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// students lists the roster of the class level: the students currently placed in it.
func (api *classLevelApi) students(ctx echo.Context) error {
	cl, err := contextObject[school.ClassLevel](ctx)
	if err != nil {
		return err
	}

	students, err := api.usrSvc.Query(
		ctx.Request().Context(),
		&user.QueryFilter{Role: user.RoleStudent, CurrentClassID: cl.ID},
		nil, /* ordering */
	)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, students)
}
