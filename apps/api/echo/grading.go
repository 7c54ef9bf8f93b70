package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/cadet"
	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/grading"
	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/staff"
)

type gradingApi struct {
	svc      *grading.Service
	cadets   *cadet.Service
	staff    *staff.Service
	validate *validator.Validate
}

func registerGradingAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := gradingApi{
		svc:      deps.GradingSvc,
		cadets:   deps.CadetSvc,
		staff:    deps.StaffSvc,
		validate: deps.Validate,
	}

	cg := g.Group("/cadets/:id", jwt)
	cg.GET("/grade", api.retrieveGrade)
	cg.PUT("/grade", api.updateGrade, adminMiddleware())
	cg.GET("/ledger", api.queryLedger)
	cg.POST("/ledger", api.addLedgerEntry, adminMiddleware())
	cg.POST("/reconcile", api.reconcile, adminMiddleware())

	lg := g.Group("/ledger", jwt)
	lg.DELETE("/:id", api.removeLedgerEntry, adminMiddleware())

	tg := g.Group("/training-days", jwt)
	tg.GET("", api.queryTrainingDays)
	tg.POST("", api.createTrainingDay, adminMiddleware())
	tg.GET("/:id/attendance", api.queryAttendance)

	g.POST("/attendance", api.markAttendance, jwt, adminMiddleware())
	g.GET("/standings", api.standings, jwt)
	g.POST("/reconcile", api.reconcileAll, jwt, adminMiddleware())
}

// Handlers

func (api *gradingApi) retrieveGrade(ctx echo.Context) error {
	rec, breakdown, err := api.svc.Grade(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting grade")
	}
	return ctx.JSON(http.StatusOK, GradeResponse{Record: rec, Score: breakdown})
}

func (api *gradingApi) updateGrade(ctx echo.Context) error {
	var data grading.UpdateGradeInputs
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGradeInputs")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	rec, err := api.svc.SetGradeInputs(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating grade inputs")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *gradingApi) queryLedger(ctx echo.Context) error {
	entries, err := api.svc.Ledger(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying ledger")
	}
	if entries == nil {
		entries = []grading.LedgerEntry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *gradingApi) addLedgerEntry(ctx echo.Context) error {
	var data grading.NewLedgerEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLedgerEntry")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	issuedBy, err := api.resolveIssuer(ctx)
	if err != nil {
		return err
	}

	entry, err := api.svc.AddLedgerEntry(ctx.Request().Context(), ctx.Param("id"), data, issuedBy)
	if err != nil {
		return errors.Wrap(err, "adding ledger entry")
	}
	return ctx.JSON(http.StatusCreated, entry)
}

func (api *gradingApi) removeLedgerEntry(ctx echo.Context) error {
	err := api.svc.RemoveLedgerEntry(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == grading.ErrEntryNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "removing ledger entry")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *gradingApi) reconcile(ctx echo.Context) error {
	issuedBy, err := api.resolveIssuer(ctx)
	if err != nil {
		return err
	}

	res, err := api.svc.ReconcileLedger(ctx.Request().Context(), ctx.Param("id"), issuedBy)
	if err != nil {
		return errors.Wrap(err, "reconciling ledger")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *gradingApi) reconcileAll(ctx echo.Context) error {
	issuedBy, err := api.resolveIssuer(ctx)
	if err != nil {
		return err
	}

	roster, err := api.cadets.Roster(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "loading roster")
	}

	results := make([]grading.ReconcileResult, 0, len(roster))
	for _, cdt := range roster {
		res, err := api.svc.ReconcileLedger(ctx.Request().Context(), cdt.ID, issuedBy)
		if err != nil {
			if errors.Cause(err) == grading.ErrGradeNotFound {
				continue // no grade record yet, nothing to reconcile
			}
			return errors.Wrap(err, "reconciling ledger")
		}
		if res.Changed() || len(res.Flags) > 0 {
			results = append(results, res)
		}
	}
	return ctx.JSON(http.StatusOK, results)
}

func (api *gradingApi) queryTrainingDays(ctx echo.Context) error {
	days, err := api.svc.TrainingDays(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying training days")
	}
	if days == nil {
		days = []grading.TrainingDay{}
	}
	return ctx.JSON(http.StatusOK, days)
}

func (api *gradingApi) createTrainingDay(ctx echo.Context) error {
	var data NewTrainingDayRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTrainingDayRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	day, err := api.svc.CreateTrainingDay(ctx.Request().Context(), data.Date, data.Title)
	if err != nil {
		return errors.Wrap(err, "creating training day")
	}
	return ctx.JSON(http.StatusCreated, day)
}

func (api *gradingApi) queryAttendance(ctx echo.Context) error {
	recs, err := api.svc.Attendance(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	if recs == nil {
		recs = []grading.AttendanceRecord{}
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *gradingApi) markAttendance(ctx echo.Context) error {
	var data MarkAttendanceRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkAttendanceRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	outcome, err := api.svc.MarkAttendance(
		ctx.Request().Context(), data.Date, data.Title, data.CadetID, data.Status, data.Overwrite)
	if err != nil {
		if errors.Cause(err) == grading.ErrInvalidStatus {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return errors.Wrap(err, "marking attendance")
	}
	return ctx.JSON(http.StatusOK, MarkAttendanceResponse{Outcome: outcomeLabels[outcome]})
}

func (api *gradingApi) standings(ctx echo.Context) error {
	roster, err := api.cadets.Roster(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "loading roster")
	}
	standings, err := api.svc.Standings(ctx.Request().Context(), roster)
	if err != nil {
		return errors.Wrap(err, "computing standings")
	}
	return ctx.JSON(http.StatusOK, standings)
}

func (api *gradingApi) resolveIssuer(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}
	issuedBy, err := api.staff.ResolveIssuer(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return "", errors.Wrap(err, "resolving issuer")
	}
	return issuedBy, nil
}

var outcomeLabels = map[grading.UpsertOutcome]string{
	grading.OutcomeInserted: "inserted",
	grading.OutcomeUpdated:  "updated",
	grading.OutcomeSkipped:  "skipped",
}

type (
	GradeResponse struct {
		Record grading.GradeRecord    `json:"record"`
		Score  grading.ScoreBreakdown `json:"score"`
	}

	NewTrainingDayRequest struct {
		Date  time.Time `json:"date" validate:"required"`
		Title string    `json:"title"`
	}

	MarkAttendanceRequest struct {
		CadetID   string                   `json:"cadet_id" validate:"required"`
		Date      time.Time                `json:"date" validate:"required"`
		Title     string                   `json:"title"`
		Status    grading.AttendanceStatus `json:"status" validate:"required,oneof=present absent late excused"`
		Overwrite bool                     `json:"overwrite"`
	}

	MarkAttendanceResponse struct {
		Outcome string `json:"outcome"`
	}
)
