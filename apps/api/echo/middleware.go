package echoapi

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/policy"
)

const contextObjectKey = "object"

var errObjNotFoundInCtx = errors.New("object not found in echo.Context")

// guard checks operations against the access policy for the caller of a request.
type guard struct {
	policy *policy.Policy
}

func actorOf(ctx echo.Context) *policy.Actor {
	if usr, ok := getContextUser(ctx); ok {
		return policy.ActorOf(usr)
	}
	return nil
}

// authorize fails with 401 for anonymous callers and 403 for authenticated ones when op is denied.
func (g guard) authorize(ctx echo.Context, op policy.Operation, target policy.Target) error {
	actor := actorOf(ctx)
	if g.policy.CanPerform(op, actor, target) {
		return nil
	}
	if actor == nil {
		return errMissingToken
	}
	return errHttpForbidden
}

// require is the route level form of authorize, for operations which do not depend on the record owner.
func (g guard) require(op policy.Operation) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if err := g.authorize(ctx, op, policy.Target{}); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}

// requireAny lets the request through when op may be performed on at least one record.
// Owner checks are left to the handler.
func (g guard) requireAny(op policy.Operation) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			target := policy.Target{}
			if actor := actorOf(ctx); actor != nil {
				target = policy.OwnedBy(actor.ID)
			}
			if err := g.authorize(ctx, op, target); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}

// objectMiddleware loads the record identified by the `:id` path param into the context.
func objectMiddleware[T any](load func(ctx context.Context, id int) (T, error)) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			id, err := pathID(ctx, "id")
			if err != nil {
				return err
			}
			obj, err := load(ctx.Request().Context(), id)
			if err != nil {
				if core.IsNotFound(err) {
					return err
				}
				return errors.Wrap(err, "loading object")
			}
			ctx.Set(contextObjectKey, obj)
			return next(ctx)
		}
	}
}

func contextObject[T any](ctx echo.Context) (T, error) {
	obj, ok := ctx.Get(contextObjectKey).(T)
	if !ok {
		return obj, errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	return obj, nil
}
