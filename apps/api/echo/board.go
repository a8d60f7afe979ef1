package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/policy"
	"github.com/trezcool/darasa/core/school"
)

// Announcements and study materials: posted by teachers and admins, deleted by admins or their author.

type announcementApi struct {
	guard
	svc      school.ServiceInterface
	validate *validator.Validate
}

func registerAnnouncementAPI(g *echo.Group, gd guard, svc school.ServiceInterface, validate *validator.Validate) {
	api := announcementApi{guard: gd, svc: svc, validate: validate}

	ag := g.Group("/announcements")
	ag.GET("", api.query, gd.require(policy.ReadAnnouncements))
	ag.POST("", api.create, gd.require(policy.PostAnnouncement))
	ag.DELETE("/:id", api.destroy, gd.requireAny(policy.DeleteAnnouncement), objectMiddleware(svc.GetAnnouncement))
}

func (api *announcementApi) query(ctx echo.Context) error {
	announcements, err := api.svc.QueryAnnouncements(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying announcements")
	}
	return ctx.JSON(http.StatusOK, announcements)
}

func (api *announcementApi) create(ctx echo.Context) error {
	author, err := mustContextUser(ctx)
	if err != nil {
		return err
	}

	var data school.NewAnnouncement
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAnnouncement")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	ann, err := api.svc.PostAnnouncement(ctx.Request().Context(), data, author)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, ann)
}

func (api *announcementApi) destroy(ctx echo.Context) error {
	ann, err := contextObject[school.Announcement](ctx)
	if err != nil {
		return err
	}
	if err = api.authorize(ctx, policy.DeleteAnnouncement, policy.OwnedBy(ann.AuthorID)); err != nil {
		return err
	}

	if err = api.svc.DeleteAnnouncement(ctx.Request().Context(), ann.ID); err != nil {
		return errors.Wrap(err, "deleting announcement")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type materialApi struct {
	guard
	svc      school.ServiceInterface
	validate *validator.Validate
}

func registerMaterialAPI(g *echo.Group, gd guard, svc school.ServiceInterface, validate *validator.Validate) {
	api := materialApi{guard: gd, svc: svc, validate: validate}

	mg := g.Group("/materials")
	mg.GET("", api.query, gd.require(policy.ReadMaterials))
	mg.POST("", api.create, gd.require(policy.UploadMaterial))
	mg.DELETE("/:id", api.destroy, gd.requireAny(policy.DeleteMaterial), objectMiddleware(svc.GetMaterial))
}

func (api *materialApi) query(ctx echo.Context) error {
	filter := new(school.MaterialFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []school.Material{})
	}

	materials, err := api.svc.QueryMaterials(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying materials")
	}
	return ctx.JSON(http.StatusOK, materials)
}

func (api *materialApi) create(ctx echo.Context) error {
	uploader, err := mustContextUser(ctx)
	if err != nil {
		return err
	}

	var data school.NewMaterial
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMaterial")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	mat, err := api.svc.UploadMaterial(ctx.Request().Context(), data, uploader)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, mat)
}

func (api *materialApi) destroy(ctx echo.Context) error {
	mat, err := contextObject[school.Material](ctx)
	if err != nil {
		return err
	}
	if err = api.authorize(ctx, policy.DeleteMaterial, policy.OwnedBy(mat.UploadedBy)); err != nil {
		return err
	}

	if err = api.svc.DeleteMaterial(ctx.Request().Context(), mat.ID); err != nil {
		return errors.Wrap(err, "deleting material")
	}
	return ctx.NoContent(http.StatusNoContent)
}
