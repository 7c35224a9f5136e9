package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/account"
	"github.com/trezcool/academia/core/classroom"
)

type classApi struct {
	conf       *core.Config
	svc        *classroom.Service
	accountSvc *account.Service
}

func registerClassAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := classApi{
		conf:       deps.Conf,
		svc:        deps.ClassSvc,
		accountSvc: deps.AccountSvc,
	}
	staff := roleMiddleware(api.accountSvc, account.RoleAdmin, account.RoleTeacher)

	cg := g.Group("/classes", jwt, staff)
	cg.POST("", api.create)
	cg.GET("", api.query)
	cg.GET("/teacher", api.queryOwn, roleMiddleware(api.accountSvc, account.RoleTeacher))
	cg.GET("/:classId", api.retrieve)

	// ownership is checked by the class service
	cg.GET("/:classId/students", api.queryStudents)
	cg.POST("/:classId/students/upload", api.uploadStudents)
	cg.POST("/:classId/students/:studentId", api.addStudent)
	cg.DELETE("/:classId/students/:studentId", api.removeStudent)

	cg.POST("/:classId/schedules", api.createSchedule)
	cg.GET("/:classId/schedules", api.querySchedules)
	cg.PUT("/:classId/schedules/:scheduleId", api.updateSchedule)
	cg.DELETE("/:classId/schedules/:scheduleId", api.destroySchedule)
}

func (api *classApi) principal(ctx echo.Context) (account.Principal, error) {
	return getContextPrincipal(ctx, api.accountSvc)
}

// Handlers

func (api *classApi) create(ctx echo.Context) error {
	p, err := api.principal(ctx)
	if err != nil {
		return err
	}
	var data classroom.NewClass
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}

	cls, err := api.svc.CreateClass(ctx.Request().Context(), p, data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *classApi) query(ctx echo.Context) error {
	classes, err := api.svc.ListClasses(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing classes")
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *classApi) queryOwn(ctx echo.Context) error {
	p, err := api.principal(ctx)
	if err != nil {
		return err
	}
	classes, err := api.svc.ListTeacherClasses(ctx.Request().Context(), p)
	if err != nil {
		return errors.Wrap(err, "listing teacher classes")
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *classApi) retrieve(ctx echo.Context) error {
	cls, err := api.svc.GetClass(ctx.Request().Context(), ctx.Param("classId"))
	if err != nil {
		return errors.Wrap(err, "getting class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) queryStudents(ctx echo.Context) error {
	students, err := api.svc.ListStudents(ctx.Request().Context(), ctx.Param("classId"))
	if err != nil {
		return errors.Wrap(err, "listing class students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *classApi) addStudent(ctx echo.Context) error {
	p, err := api.principal(ctx)
	if err != nil {
		return err
	}
	m, err := api.svc.AddStudent(ctx.Request().Context(), p, ctx.Param("classId"), ctx.Param("studentId"))
	if err != nil {
		return errors.Wrap(err, "adding class student")
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *classApi) removeStudent(ctx echo.Context) error {
	p, err := api.principal(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.RemoveStudent(ctx.Request().Context(), p, ctx.Param("classId"), ctx.Param("studentId")); err != nil {
		return errors.Wrap(err, "removing class student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classApi) uploadStudents(ctx echo.Context) error {
	p, err := api.principal(ctx)
	if err != nil {
		return err
	}
	grid, err := bindSpreadsheet(ctx, "studentsFile", api.conf.Upload.MaxFileSize)
	if err != nil {
		return err
	}

	report, err := api.svc.ImportRoster(ctx.Request().Context(), p, ctx.Param("classId"), grid)
	if err != nil {
		return errors.Wrap(err, "importing class students")
	}
	return ctx.JSON(http.StatusOK, RosterResponse{
		Message:      fmt.Sprintf("%d student(s) added to the class", report.AddedCount),
		RosterReport: report,
	})
}

func (api *classApi) createSchedule(ctx echo.Context) error {
	p, err := api.principal(ctx)
	if err != nil {
		return err
	}
	var data classroom.NewSchedule
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchedule")
	}

	sch, err := api.svc.CreateSchedule(ctx.Request().Context(), p, ctx.Param("classId"), data)
	if err != nil {
		return errors.Wrap(err, "creating schedule")
	}
	return ctx.JSON(http.StatusCreated, sch)
}

func (api *classApi) querySchedules(ctx echo.Context) error {
	p, err := api.principal(ctx)
	if err != nil {
		return err
	}
	schedules, err := api.svc.ListSchedules(ctx.Request().Context(), p, ctx.Param("classId"))
	if err != nil {
		return errors.Wrap(err, "listing schedules")
	}
	return ctx.JSON(http.StatusOK, schedules)
}

func (api *classApi) updateSchedule(ctx echo.Context) error {
	p, err := api.principal(ctx)
	if err != nil {
		return err
	}
	var data classroom.UpdateSchedule
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSchedule")
	}

	sch, err := api.svc.UpdateSchedule(ctx.Request().Context(), p, ctx.Param("classId"), ctx.Param("scheduleId"), data)
	if err != nil {
		return errors.Wrap(err, "updating schedule")
	}
	return ctx.JSON(http.StatusOK, sch)
}

func (api *classApi) destroySchedule(ctx echo.Context) error {
	p, err := api.principal(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteSchedule(ctx.Request().Context(), p, ctx.Param("classId"), ctx.Param("scheduleId")); err != nil {
		return errors.Wrap(err, "deleting schedule")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type RosterResponse struct {
	Message string `json:"message"`
	classroom.RosterReport
}
