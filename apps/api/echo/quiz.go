package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/quiz"
	"github.com/trezcool/elimu/core/user"
)

type quizApi struct {
	svc    *quiz.Service
	usrSvc *user.Service
}

func registerQuizAPI(g *echo.Group, jwt echo.MiddlewareFunc, api quizApi) {
	tg := g.Group("/tests", jwt)
	tg.POST("", api.create, roleMiddleware(user.RoleTeacher))
	tg.GET("/:id", api.retrieve)

	rg := g.Group("/test_results", jwt)
	rg.POST("/:id", api.submit, roleMiddleware(user.RoleStudent))
	rg.GET("/:id/user/:uid", api.studentResults)
	rg.POST("/:id/user/:uid", api.overrideResults, roleMiddleware(user.RoleTeacher))
}

func (api *quizApi) create(ctx echo.Context) error {
	var data quiz.NewTest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	test, err := api.svc.Create(data)
	if err != nil {
		return errors.Wrap(err, "creating test")
	}
	return ctx.JSON(http.StatusCreated, test)
}

// retrieve returns the questions for a test the user may take, or their
// results once submitted.
func (api *quizApi) retrieve(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	view, result, err := api.svc.GetForUser(actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	if result != nil {
		return ctx.JSON(http.StatusOK, result)
	}
	return ctx.JSON(http.StatusOK, view)
}

func (api *quizApi) submit(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data quiz.Submission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Submission")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	result, err := api.svc.Submit(actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, result)
}

func (api *quizApi) studentResults(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	result, err := api.svc.StudentResults(actor, ctx.Param("id"), ctx.Param("uid"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, result)
}

func (api *quizApi) overrideResults(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data OverrideResultsRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to OverrideResultsRequest")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	result, err := api.svc.OverrideResults(actor, ctx.Param("id"), ctx.Param("uid"), data.Results)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, result)
}
