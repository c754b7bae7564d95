package echoapi

import (
	"bytes"
	"fmt"
	"net/http"
	"net/mail"
	"sync"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/edulive/classpulse/core"
	"github.com/edulive/classpulse/core/session"
	reportsvc "github.com/edulive/classpulse/services/report"
)

var errStudentNameRequired = "students must provide a display name"

type sessionApi struct {
	conf       *core.Config
	logger     core.Logger
	svc        *session.Service
	emailSvc   core.EmailService
	validate   *validator.Validate
	translator ut.Translator

	// advisory countdown for the currently running assessment
	mu        sync.Mutex
	countdown *session.Countdown
}

func registerSessionAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) *sessionApi {
	api := &sessionApi{
		conf:       opts.Conf,
		logger:     opts.Logger,
		svc:        opts.SessionSvc,
		emailSvc:   opts.EmailSvc,
		validate:   opts.Validate,
		translator: opts.Translator,
	}

	sg := g.Group("/session")
	sg.POST("/role", api.chooseRole)
	sg.GET("", api.retrieveSession)
	sg.DELETE("/role", api.resetRole, jwt)
	sg.POST("/join", api.join, jwt, studentMiddleware())

	ag := g.Group("/assessments", jwt)
	ag.GET("", api.query)
	ag.GET("/can-create", api.canCreate, teacherMiddleware())
	ag.POST("", api.create, teacherMiddleware())
	ag.POST("/:id/start", api.start, teacherMiddleware())
	ag.POST("/:id/end", api.end, teacherMiddleware())
	ag.POST("/:id/answers", api.submitAnswer, studentMiddleware())
	ag.GET("/:id/results", api.results)
	ag.GET("/:id/attendance", api.attendance, teacherMiddleware())
	ag.GET("/:id/attendance/export", api.exportAttendance, teacherMiddleware())
	ag.POST("/:id/report", api.emailReport, teacherMiddleware())

	return api
}

// Handlers

func (api *sessionApi) chooseRole(ctx echo.Context) error {
	var data ChooseRoleRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChooseRoleRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	role := session.Role(data.Role)
	if err := api.svc.SetRole(role); err != nil {
		return err
	}

	if role == session.RoleStudent {
		if data.Name == "" {
			return core.NewValidationError(nil, core.FieldError{Field: "name", Error: errStudentNameRequired})
		}
		api.svc.SetStudentName(data.Name)
		if err := api.svc.Join(data.Name); err != nil {
			return errors.Wrap(err, "joining session")
		}
	}

	state := api.svc.Snapshot()
	claims := GetRoleClaims(api.conf, state.SessionID, role, state.StudentName)
	token, err := GenerateToken(api.conf, claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, ChooseRoleResponse{
		Token:       token,
		SessionID:   state.SessionID,
		Role:        role,
		StudentName: state.StudentName,
	})
}

func (api *sessionApi) resetRole(ctx echo.Context) error {
	api.svc.ResetRole()
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sessionApi) retrieveSession(ctx echo.Context) error {
	state := api.svc.Snapshot()
	return ctx.JSON(http.StatusOK, SessionResponse{
		SessionID:   state.SessionID,
		UserRole:    state.UserRole,
		StudentName: state.StudentName,
		CurrentID:   state.CurrentID,
	})
}

func (api *sessionApi) join(ctx echo.Context) error {
	var data session.JoinSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to JoinSession")
	}
	if data.Name == "" {
		// fall back to the name baked into the token
		claims, err := getContextClaims(ctx)
		if err != nil {
			return err
		}
		data.Name = claims.StudentName
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.Join(data.Name); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sessionApi) query(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.svc.Snapshot().Assessments)
}

func (api *sessionApi) create(ctx echo.Context) error {
	var data session.NewAssessment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssessment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	assessment, err := api.svc.CreateAssessment(data)
	if err != nil {
		return errors.Wrap(err, "creating assessment")
	}
	return ctx.JSON(http.StatusCreated, assessment)
}

func (api *sessionApi) start(ctx echo.Context) error {
	id := ctx.Param("id")
	if err := api.svc.Start(id); err != nil {
		return err
	}

	assessment, _ := api.svc.Snapshot().Assessment(id)
	api.resetCountdown(assessment)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sessionApi) end(ctx echo.Context) error {
	if err := api.svc.End(ctx.Param("id")); err != nil {
		return err
	}
	api.stopCountdown()
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sessionApi) submitAnswer(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data SubmitAnswerRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitAnswerRequest")
	}

	answer := session.NewAnswer{
		AssessmentID: ctx.Param("id"),
		Option:       data.Option,
		StudentName:  claims.StudentName,
	}
	if err := answer.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.SubmitAnswer(answer); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sessionApi) results(ctx echo.Context) error {
	res, err := api.svc.Results(ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *sessionApi) attendance(ctx echo.Context) error {
	att, err := api.svc.Attendance(ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, att)
}

func (api *sessionApi) canCreate(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, CanCreateResponse{CanCreate: api.svc.CanCreate()})
}

func (api *sessionApi) exportAttendance(ctx echo.Context) error {
	id := ctx.Param("id")
	buf, assessment, err := api.buildWorkbook(id)
	if err != nil {
		return err
	}

	filename := reportsvc.Filename(assessment.ID, time.Now())
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return ctx.Blob(http.StatusOK, reportsvc.ContentType, buf.Bytes())
}

func (api *sessionApi) emailReport(ctx echo.Context) error {
	var data EmailReportRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EmailReportRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	id := ctx.Param("id")
	buf, assessment, err := api.buildWorkbook(id)
	if err != nil {
		return err
	}

	msg := &core.EmailMessage{
		To:      []mail.Address{{Address: data.Email}},
		Subject: fmt.Sprintf("Assessment report: %s", assessment.Question),
		TextContent: fmt.Sprintf(
			"Attached are the results and attendance for the assessment %q.", assessment.Question),
	}
	if err = msg.Attach(buf, reportsvc.Filename(assessment.ID, time.Now()), reportsvc.ContentType); err != nil {
		return errors.Wrap(err, "attaching report workbook")
	}
	api.emailSvc.SendMessages(msg)

	return ctx.JSON(http.StatusAccepted, SuccessResponse{Success: "The report is on its way to " + data.Email + "."})
}

func (api *sessionApi) buildWorkbook(id string) (buf *bytes.Buffer, assessment session.Assessment, err error) {
	assessment, ok := api.svc.Snapshot().Assessment(id)
	if !ok {
		return nil, session.Assessment{}, session.ErrNotFound
	}

	res, err := api.svc.Results(id)
	if err != nil {
		return nil, session.Assessment{}, err
	}
	att, err := api.svc.Attendance(id)
	if err != nil {
		return nil, session.Assessment{}, err
	}

	buf, err = reportsvc.AssessmentWorkbook(assessment, res, att)
	return buf, assessment, errors.Wrap(err, "building report workbook")
}

// Countdown wiring: one advisory countdown follows the active assessment. It
// only logs expiry; ending an assessment remains an explicit teacher action.

func (api *sessionApi) resetCountdown(assessment session.Assessment) {
	api.mu.Lock()
	defer api.mu.Unlock()

	if api.countdown != nil {
		api.countdown.Stop()
	}
	id, question := assessment.ID, assessment.Question
	api.countdown = session.StartCountdown(assessment.TimeLimit, nil, func() {
		api.logger.Info(fmt.Sprintf("time limit elapsed for assessment %s (%q)", id, question))
	})
}

func (api *sessionApi) stopCountdown() {
	api.mu.Lock()
	defer api.mu.Unlock()

	if api.countdown != nil {
		api.countdown.Stop()
		api.countdown = nil
	}
}
