package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/policy"
)

const errFieldRequired = "this field is required"

type attendanceApi struct {
	guard
	svc      attendance.ServiceInterface
	validate *validator.Validate
}

func registerAttendanceAPI(g *echo.Group, gd guard, svc attendance.ServiceInterface, validate *validator.Validate) {
	api := attendanceApi{guard: gd, svc: svc, validate: validate}

	ag := g.Group("/attendance")
	ag.GET("", api.query, gd.requireAny(policy.ReadAttendance))
	ag.POST("", api.record, gd.require(policy.RecordAttendance))
	ag.GET("/stats", api.stats, gd.requireAny(policy.ReadAttendanceStats))
}

// query lists the caller's own records to students, optionally between `from` and `to`.
// Teachers and admins list the records of a class level on a date.
func (api *attendanceApi) query(ctx echo.Context) error {
	usr, err := mustContextUser(ctx)
	if err != nil {
		return err
	}

	filter := new(attendance.Filter)
	if err = ctx.Bind(filter); err != nil {
		return err
	}

	if usr.IsStudent() {
		filter = &attendance.Filter{UserID: usr.ID, From: filter.From, To: filter.To}
	} else {
		var flds []core.FieldError
		if filter.ClassLevelID == 0 {
			flds = append(flds, core.FieldError{Field: "class_id", Error: errFieldRequired})
		}
		if filter.Date.IsZero() {
			flds = append(flds, core.FieldError{Field: "date", Error: errFieldRequired})
		}
		if len(flds) > 0 {
			return core.NewValidationError(nil, flds...)
		}
	}

	records, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	return ctx.JSON(http.StatusOK, records)
}

// record answers 201 when a record is created and 200 when an existing one is replaced.
func (api *attendanceApi) record(ctx echo.Context) error {
	marker, err := mustContextUser(ctx)
	if err != nil {
		return err
	}

	var data attendance.RecordAttendance
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RecordAttendance")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	att, created, err := api.svc.Record(ctx.Request().Context(), data, marker)
	if err != nil {
		return errors.Wrap(err, "recording attendance")
	}
	if created {
		return ctx.JSON(http.StatusCreated, att)
	}
	return ctx.JSON(http.StatusOK, att)
}

func (api *attendanceApi) stats(ctx echo.Context) error {
	usr, err := mustContextUser(ctx)
	if err != nil {
		return err
	}

	var q attendance.StatsQuery
	if err = ctx.Bind(&q); err != nil {
		return err
	}
	if q.UserID == 0 {
		q.UserID = usr.ID
	}
	if err = q.Validate(api.validate); err != nil {
		return err
	}
	if err = api.authorize(ctx, policy.ReadAttendanceStats, policy.OwnedBy(q.UserID)); err != nil {
		return err
	}

	stats, err := api.svc.Stats(ctx.Request().Context(), q)
	if err != nil {
		return errors.Wrap(err, "computing attendance stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}
