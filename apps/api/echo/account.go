package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/account"
)

type accountApi struct {
	conf     *core.Config
	logger   core.Logger
	svc      *account.Service
	validate *validator.Validate
}

func registerAccountAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := accountApi{
		conf:     deps.Conf,
		logger:   deps.Logger,
		svc:      deps.AccountSvc,
		validate: deps.Validate,
	}

	// un-authed endpoints
	auth := g.Group("/auth")
	auth.POST("/login", api.login)
	auth.POST("/password-reset", api.resetPassword)
	auth.POST("/password-reset-confirm", api.confirmPasswordReset)
	auth.POST("/token-refresh", api.refreshToken, jwt)

	admin := g.Group("/admin", jwt, roleMiddleware(api.svc, account.RoleAdmin))
	admin.POST("/users", api.create)
	admin.POST("/users/upload", api.upload)
	admin.GET("/teachers", api.queryTeachers)
	admin.PUT("/teachers/:id", api.updateTeacher)
	admin.DELETE("/teachers/:id", api.destroyTeacher)
}

// Handlers

func (api *accountApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	acc, err := api.svc.Authenticate(ctx.Request().Context(), data.Username, data.Password)
	if err != nil {
		if errors.Cause(err) == account.ErrNotFound {
			return errAuthenticationFailed
		}
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(api.conf, NewClaims(api.conf, acc.Principal()))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Account: acc.Principal()})
}

func (api *accountApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.conf, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *accountApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email)
	if err != nil && errors.Cause(err) != account.ErrNotFound {
		// do not return errors to attackers
		api.logger.Error("requesting password reset", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, MessageResponse{
		Message: "If the email address supplied is associated with an account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *accountApi) confirmPasswordReset(ctx echo.Context) error {
	var data account.ResetPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetPassword")
	}
	if _, err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Password has been reset with the new password."})
}

func (api *accountApi) create(ctx echo.Context) error {
	var data account.NewAccount
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAccount")
	}

	acc, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating account")
	}

	msg := "Account created"
	if acc.IsStudent() {
		msg = "Student account created"
	}
	return ctx.JSON(http.StatusCreated, CreateAccountResponse{
		Message: msg,
		Account: AccountSummary{ID: acc.ID, Username: acc.Username, Role: acc.Role, Email: acc.Email},
	})
}

func (api *accountApi) upload(ctx echo.Context) error {
	grid, err := bindSpreadsheet(ctx, "usersFile", api.conf.Upload.MaxFileSize)
	if err != nil {
		return err
	}
	report, err := api.svc.Import(ctx.Request().Context(), grid)
	if err != nil {
		return errors.Wrap(err, "importing accounts")
	}
	if p, err := getContextPrincipal(ctx, api.svc); err == nil {
		api.svc.MailImportReport(p, report)
	}
	return ctx.JSON(http.StatusCreated, ImportResponse{
		Message:      fmt.Sprintf("%d account(s) created", report.Created),
		ImportReport: report,
	})
}

func (api *accountApi) queryTeachers(ctx echo.Context) error {
	filter := new(account.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []account.Teacher{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	teachers, err := api.svc.QueryTeachers(ctx.Request().Context(), *filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying teachers")
	}
	return ctx.JSON(http.StatusOK, teachers)
}

func (api *accountApi) updateTeacher(ctx echo.Context) error {
	var data account.UpdateTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTeacher")
	}

	teacher, err := api.svc.UpdateTeacher(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating teacher")
	}
	return ctx.JSON(http.StatusOK, teacher)
}

func (api *accountApi) destroyTeacher(ctx echo.Context) error {
	if err := api.svc.DeleteTeacher(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting teacher")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token   string            `json:"token"`
		Account account.Principal `json:"account"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	MessageResponse struct {
		Message string `json:"message"`
	}

	AccountSummary struct {
		ID       string       `json:"id"`
		Username string       `json:"username"`
		Role     account.Role `json:"role"`
		Email    string       `json:"email"`
	}

	CreateAccountResponse struct {
		Message string         `json:"message"`
		Account AccountSummary `json:"account"`
	}

	ImportResponse struct {
		Message string `json:"message"`
		account.ImportReport
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
