package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/academics"
	"github.com/trezcool/darasa/core/policy"
	"github.com/trezcool/darasa/core/user"
)

type academicsApi struct {
	guard
	svc      academics.ServiceInterface
	usrSvc   user.ServiceInterface
	validate *validator.Validate
}

type PromotionResponse struct {
	User      user.User                  `json:"user"`
	Academics academics.StudentAcademics `json:"academics"`
}

func registerAcademicsAPI(
	g *echo.Group,
	gd guard,
	svc academics.ServiceInterface,
	usrSvc user.ServiceInterface,
	validate *validator.Validate,
) {
	api := academicsApi{
		guard:    gd,
		svc:      svc,
		usrSvc:   usrSvc,
		validate: validate,
	}

	sg := g.Group("/students/:id")
	sg.GET("/academics", api.queryAcademics, gd.requireAny(policy.ReadAcademics))
	sg.POST("/promote", api.promote, gd.require(policy.PromoteStudent))
	sg.GET("/results", api.queryResults, gd.requireAny(policy.ReadResults))

	g.PATCH("/academics/:id", api.updateAcademics, gd.require(policy.UpdateAcademics), objectMiddleware(svc.Get))

	rg := g.Group("/results")
	rg.POST("", api.createResult, gd.require(policy.RecordResult))
	rg.PATCH("/:id", api.updateResult, gd.require(policy.UpdateResult), objectMiddleware(svc.GetResult))
	rg.DELETE("/:id", api.destroyResult, gd.require(policy.DeleteResult))
}

// student authorizes op on the records of the student identified by the `:id` path param, then loads them.
func (api *academicsApi) student(ctx echo.Context, op policy.Operation) (user.User, error) {
	id, err := pathID(ctx, "id")
	if err != nil {
		return user.User{}, err
	}
	if err = api.authorize(ctx, op, policy.OwnedBy(id)); err != nil {
		return user.User{}, err
	}
	return api.usrSvc.GetByID(ctx.Request().Context(), id)
}

func (api *academicsApi) queryAcademics(ctx echo.Context) error {
	student, err := api.student(ctx, policy.ReadAcademics)
	if err != nil {
		return err
	}

	filter := new(academics.Filter)
	if err = ctx.Bind(filter); err != nil {
		return err
	}
	filter.StudentID = student.ID

	records, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying academic records")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *academicsApi) promote(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	var data academics.Promotion
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Promotion")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	usr, sa, err := api.svc.Promote(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "promoting student")
	}
	return ctx.JSON(http.StatusCreated, PromotionResponse{User: usr, Academics: sa})
}

func (api *academicsApi) updateAcademics(ctx echo.Context) error {
	sa, err := contextObject[academics.StudentAcademics](ctx)
	if err != nil {
		return err
	}

	var data academics.UpdateAcademics
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAcademics")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	if sa, err = api.svc.Update(ctx.Request().Context(), sa, data); err != nil {
		return errors.Wrap(err, "updating academic record")
	}
	return ctx.JSON(http.StatusOK, sa)
}

// Exam Results

func (api *academicsApi) queryResults(ctx echo.Context) error {
	student, err := api.student(ctx, policy.ReadResults)
	if err != nil {
		return err
	}

	filter := new(academics.ResultFilter)
	if err = ctx.Bind(filter); err != nil {
		return err
	}
	filter.StudentID = student.ID

	results, err := api.svc.QueryResults(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying exam results")
	}
	return ctx.JSON(http.StatusOK, results)
}

func (api *academicsApi) createResult(ctx echo.Context) error {
	var data academics.NewExamResult
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewExamResult")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.RecordResult(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *academicsApi) updateResult(ctx echo.Context) error {
	res, err := contextObject[academics.ExamResult](ctx)
	if err != nil {
		return err
	}

	var data academics.UpdateExamResult
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateExamResult")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	if res, err = api.svc.UpdateResult(ctx.Request().Context(), res, data); err != nil {
		return errors.Wrap(err, "updating exam result")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *academicsApi) destroyResult(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if err = api.svc.DeleteResult(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting exam result")
	}
	return ctx.NoContent(http.StatusNoContent)
}
