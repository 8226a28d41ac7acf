package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
)

type courseApi struct {
	svc    *course.Service
	usrSvc *user.Service
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, api courseApi) {
	cg := g.Group("/courses", jwt)
	cg.GET("", api.query)
	cg.POST("", api.create, roleMiddleware(user.RoleAdmin))
	cg.GET("/taught", api.queryTaught, roleMiddleware(user.RoleTeacher, user.RoleAdmin))
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update)
	cg.POST("/:id/blocks", api.createBlock)
	cg.GET("/:id/students", api.students)

	bg := g.Group("/blocks", jwt)
	bg.GET("/:id", api.retrieveBlock)
	bg.PUT("/:id", api.updateBlock)
	bg.POST("/:id/units", api.createUnit)

	ug := g.Group("/units", jwt)
	ug.GET("/:id", api.retrieveUnit)
	ug.PUT("/:id", api.updateUnit)
}

// query lists courses for students and admins: admins see everything (or a
// named student's list via ?student_id=), students their group's courses.
// Teachers use /courses/taught instead.
func (api *courseApi) query(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var filter course.QueryFilter
	if err = ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()

	studentID := ctx.QueryParam("student_id")
	if studentID != "" && !actor.IsAdmin() {
		return errHttpForbidden
	}

	switch {
	case actor.IsAdmin():
		if studentID != "" {
			courses, total, err := api.svc.QueryForStudent(studentID, filter)
			if err != nil {
				return errors.Wrap(err, "querying student courses")
			}
			return ctx.JSON(http.StatusOK, PagedResponse{Count: total, Results: courses})
		}
		courses, total, err := api.svc.QueryAll(filter)
		if err != nil {
			return errors.Wrap(err, "querying courses")
		}
		return ctx.JSON(http.StatusOK, PagedResponse{Count: total, Results: courses})

	case actor.IsTeacher():
		return errHttpForbidden

	default:
		courses, total, err := api.svc.QueryForStudent(actor.ID, filter)
		if err != nil {
			return errors.Wrap(err, "querying student courses")
		}
		return ctx.JSON(http.StatusOK, PagedResponse{Count: total, Results: courses})
	}
}

func (api *courseApi) queryTaught(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	teacherID := actor.ID
	if actor.IsAdmin() {
		if tid := ctx.QueryParam("teacher_id"); tid != "" {
			teacherID = tid
		}
	}
	courses, err := api.svc.QueryTaught(teacherID)
	if err != nil {
		return errors.Wrap(err, "querying taught courses")
	}
	return ctx.JSON(http.StatusOK, PagedResponse{Count: len(courses), Results: courses})
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	crs, err := api.svc.Create(data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	details, err := api.svc.Details(actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, details)
}

func (api *courseApi) update(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data course.UpdateCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	crs, err := api.svc.Update(actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) students(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var filter course.QueryFilter
	if err = ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()

	students, total, err := api.svc.Students(actor, ctx.Param("id"), filter)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, PagedResponse{Count: total, Results: students})
}

func (api *courseApi) createBlock(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data course.NewBlock
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBlock")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	blk, err := api.svc.CreateBlock(actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, blk)
}

func (api *courseApi) retrieveBlock(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	details, err := api.svc.GetBlock(actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, details)
}

func (api *courseApi) updateBlock(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data course.NewBlock
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBlock")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	blk, err := api.svc.UpdateBlock(actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, blk)
}

func (api *courseApi) createUnit(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data course.NewUnit
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUnit")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	unit, err := api.svc.CreateUnit(actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, unit)
}

func unitIDParam(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return 0, errHttpNotFound
	}
	return id, nil
}

func (api *courseApi) retrieveUnit(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	id, err := unitIDParam(ctx)
	if err != nil {
		return err
	}
	details, err := api.svc.GetUnit(actor, id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, details)
}

func (api *courseApi) updateUnit(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	id, err := unitIDParam(ctx)
	if err != nil {
		return err
	}

	var data course.NewUnit
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUnit")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	unit, err := api.svc.UpdateUnit(actor, id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, unit)
}
