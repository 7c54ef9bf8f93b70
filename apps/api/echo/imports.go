package echoapi

import (
	"io"
	"net/http"
	"net/mail"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/importer"
	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/staff"
)

// maxUploadSize caps import uploads at 10MiB.
const maxUploadSize = 10 << 20

type importApi struct {
	svc   *importer.Service
	staff *staff.Service
}

func registerImportAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := importApi{
		svc:   deps.ImportSvc,
		staff: deps.StaffSvc,
	}

	ig := g.Group("/imports/:domain", jwt, adminMiddleware())
	ig.POST("/validate", api.validate)
	ig.POST("", api.commit)
}

// Handlers

func (api *importApi) validate(ctx echo.Context) error {
	domain, err := bindDomain(ctx)
	if err != nil {
		return err
	}
	data, filename, err := readUpload(ctx)
	if err != nil {
		return err
	}

	summary, err := api.svc.Validate(ctx.Request().Context(), data, filename, domain, bindOptions(ctx))
	if err != nil {
		return importError(err)
	}
	return ctx.JSON(http.StatusOK, summary)
}

func (api *importApi) commit(ctx echo.Context) error {
	domain, err := bindDomain(ctx)
	if err != nil {
		return err
	}
	data, filename, err := readUpload(ctx)
	if err != nil {
		return err
	}

	strategy := importer.StrategySkip
	if ctx.FormValue("strategy") == string(importer.StrategyOverwrite) {
		strategy = importer.StrategyOverwrite
	}
	opts := bindOptions(ctx)

	stf, err := getContextStaff(ctx, api.staff)
	if err != nil {
		return errors.Wrap(err, "getting context staff")
	}

	var summary importer.Summary
	switch domain {
	case importer.DomainAttendance:
		summary, err = api.svc.ImportAttendance(ctx.Request().Context(), data, filename, strategy, opts)
	case importer.DomainGrades:
		summary, err = api.svc.ImportGrades(ctx.Request().Context(), data, filename)
	case importer.DomainLedger:
		summary, err = api.svc.ImportLedger(ctx.Request().Context(), data, filename, stf.DisplayName())
	case importer.DomainRoster:
		summary, err = api.svc.ImportRoster(ctx.Request().Context(), data, filename, strategy)
	}
	if err != nil {
		return importError(err)
	}

	if stf.Email != "" {
		api.svc.SendReport(domain, filename, summary, mail.Address{Name: stf.Name, Address: stf.Email})
	}
	return ctx.JSON(http.StatusOK, summary)
}

func bindDomain(ctx echo.Context) (importer.Domain, error) {
	domain := importer.Domain(ctx.Param("domain"))
	switch domain {
	case importer.DomainAttendance, importer.DomainGrades, importer.DomainLedger, importer.DomainRoster:
		return domain, nil
	}
	return "", echo.NewHTTPError(http.StatusNotFound, "unknown import domain")
}

func bindOptions(ctx echo.Context) importer.Options {
	opts := importer.Options{DefaultTitle: ctx.FormValue("title")}
	if raw := ctx.FormValue("date"); raw != "" {
		if date, err := time.Parse("2006-01-02", raw); err == nil {
			opts.DefaultDate = date
		}
	}
	return opts
}

func readUpload(ctx echo.Context) ([]byte, string, error) {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return nil, "", echo.NewHTTPError(http.StatusBadRequest, "missing file upload")
	}
	if fh.Size > maxUploadSize {
		return nil, "", echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
	}

	f, err := fh.Open()
	if err != nil {
		return nil, "", errors.Wrap(err, "opening upload")
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadSize+1))
	if err != nil {
		return nil, "", errors.Wrap(err, "reading upload")
	}
	if len(data) > maxUploadSize {
		return nil, "", echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
	}
	return data, fh.Filename, nil
}

// importError maps batch-level parse failures to 400s; anything else is a
// server error.
func importError(err error) error {
	switch errors.Cause(err) {
	case importer.ErrUnsupportedFormat, importer.ErrNoHeader:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return err
}
