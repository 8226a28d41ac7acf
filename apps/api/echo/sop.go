package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/sop"
	"github.com/trezcool/elimu/core/user"
)

type sopApi struct {
	svc    *sop.Service
	usrSvc *user.Service
	access *course.Access
}

func registerSopAPI(g *echo.Group, jwt echo.MiddlewareFunc, api sopApi) {
	sg := g.Group("/sop", jwt)
	sg.POST("", api.submit, roleMiddleware(user.RoleStudent))
	sg.GET("/teacher_results", api.teacherResults, roleMiddleware(user.RoleTeacher, user.RoleAdmin))
	sg.GET("/course_results/:id", api.courseResults, roleMiddleware(user.RoleTeacher, user.RoleAdmin))
}

func (api *sopApi) submit(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data sop.Submission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Submission")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	if err = api.svc.Submit(actor, data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, SuccessResponse{Success: "Survey submitted."})
}

// teacherResults returns the aggregated ratings for a teacher: teachers see
// their own, admins must name a teacher via ?teacher_id=.
func (api *sopApi) teacherResults(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	teacherID := actor.ID
	if actor.IsAdmin() {
		teacherID = ctx.QueryParam("teacher_id")
		if teacherID == "" {
			return core.NewValidationError(nil, core.FieldError{Field: "teacher_id", Error: "required"})
		}
	}

	results, err := api.svc.TeacherResultsFor(teacherID)
	if err != nil {
		if errors.Cause(err) == sop.ErrNoResults {
			return errHttpNotFound
		}
		return errors.Wrap(err, "aggregating teacher results")
	}
	return ctx.JSON(http.StatusOK, results)
}

func (api *sopApi) courseResults(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	courseID := ctx.Param("id")
	if err = api.access.CanViewCourseSOP(actor, courseID); err != nil {
		return err
	}

	results, err := api.svc.CourseResultsFor(courseID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, results)
}
