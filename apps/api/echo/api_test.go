package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core"
	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/cadet"
	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/grading"
	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/importer"
	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/staff"
	dummydb "github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/storage/database/dummy"
)

var (
	testCtx = context.Background()

	conf     *core.Config
	app      *Server
	staffSvc *staff.Service
	cadetSvc *cadet.Service
	gradeSvc *grading.Service
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func TestMain(m *testing.M) {
	conf = core.NewConfig()
	conf.Debug = false
	conf.TestMode = true

	db, err := dummydb.Open()
	if err != nil {
		fmt.Printf("dummydb.Open(): %v", err)
		os.Exit(1)
	}
	emitter := core.NopEmitter{}
	logger := nopLogger{}
	staffSvc = staff.NewService(dummydb.NewStaffRepository(db))
	cadetSvc = cadet.NewService(dummydb.NewCadetRepository(db), emitter, conf)
	gradeSvc = grading.NewService(dummydb.NewGradingRepository(db), emitter)
	importSvc := importer.NewService(cadetSvc, gradeSvc, nil, logger)

	validate := validator.New()
	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	core.InitValidators(validate, translator)

	app = NewServer(ServerDeps{
		Conf:       conf,
		Logger:     logger,
		StaffSvc:   staffSvc,
		CadetSvc:   cadetSvc,
		GradingSvc: gradeSvc,
		ImportSvc:  importSvc,
		Validate:   validate,
		Translator: translator,
	})

	os.Exit(m.Run())
}

type httpErr struct {
	Error string `json:"error"`
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func createStaff(t *testing.T, uname string, isAdmin bool) staff.Staff {
	t.Helper()
	stf, err := staffSvc.Create(testCtx, staff.NewStaff{
		Name:     "Santos, Juan",
		Rank:     "SSgt",
		Username: uname,
		Email:    uname + "@rgms.test",
		Password: "s3cret-pass",
		IsAdmin:  isAdmin,
	})
	if err != nil {
		t.Fatalf("createStaff(): %v", err)
	}
	return stf
}

func getToken(t *testing.T, stf staff.Staff) string {
	t.Helper()
	token, err := GenerateToken(conf, GetStaffClaims(conf, stf))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func createCadet(t *testing.T, number, first, last string) cadet.Cadet {
	t.Helper()
	cdt, err := cadetSvc.Create(testCtx, cadet.NewCadet{
		StudentNumber: number,
		FirstName:     first,
		LastName:      last,
		Course:        "BSCS",
	})
	if err != nil {
		t.Fatalf("createCadet(): %v", err)
	}
	return cdt
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func Test_staffApi_login(t *testing.T) {
	stf := createStaff(t, "login1", false)

	inactive := createStaff(t, "login2", false)
	inactive.IsActive = false
	if _, err := staffSvc.SetLastLogin(testCtx, inactive); err != nil { // persists the flag flip
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		body     []byte
		wantCode int
		wantErr  string
	}{
		{
			name:     "valid credentials",
			body:     marchallObj(t, LoginRequest{Username: "login1", Password: "s3cret-pass"}),
			wantCode: http.StatusOK,
		},
		{
			name:     "username is case-insensitive",
			body:     marchallObj(t, LoginRequest{Username: " LOGIN1 ", Password: "s3cret-pass"}),
			wantCode: http.StatusOK,
		},
		{
			name:     "login by email",
			body:     marchallObj(t, LoginRequest{Username: stf.Email, Password: "s3cret-pass"}),
			wantCode: http.StatusOK,
		},
		{
			name:     "wrong password",
			body:     marchallObj(t, LoginRequest{Username: "login1", Password: "nope"}),
			wantCode: http.StatusBadRequest,
			wantErr:  "authentication failed",
		},
		{
			name:     "unknown account",
			body:     marchallObj(t, LoginRequest{Username: "ghost", Password: "s3cret-pass"}),
			wantCode: http.StatusBadRequest,
			wantErr:  "authentication failed",
		},
		{
			name:     "deactivated account",
			body:     marchallObj(t, LoginRequest{Username: "login2", Password: "s3cret-pass"}),
			wantCode: http.StatusForbidden,
			wantErr:  "account deactivated",
		},
		{
			name:     "missing fields",
			body:     marchallObj(t, LoginRequest{}),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/staff/login", tt.body)
			app.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusOK {
				var resp LoginResponse
				assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.NotEmpty(t, resp.Token)
			} else if tt.wantErr != "" {
				var resp httpErr
				assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, tt.wantErr, resp.Error)
			}
		})
	}
}

func Test_staffApi_me(t *testing.T) {
	stf := createStaff(t, "me1", false)

	req, rec := newRequest(http.MethodGet, "/v1/staff/me")
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req, rec = newAuthRequest(http.MethodGet, "/v1/staff/me", getToken(t, stf))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var got staff.Staff
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, stf.ID, got.ID)
	assert.Equal(t, "me1", got.Username)
}

func Test_staffApi_adminGating(t *testing.T) {
	plain := createStaff(t, "gate1", false)
	admin := createStaff(t, "gate2", true)

	req, rec := newAuthRequest(http.MethodGet, "/v1/staff", getToken(t, plain))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error": "permission denied"}`, rec.Body.String())

	req, rec = newAuthRequest(http.MethodGet, "/v1/staff", getToken(t, admin))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func Test_staffApi_refreshToken(t *testing.T) {
	stf := createStaff(t, "refresh1", false)

	req, rec := newAuthRequest(http.MethodPost, "/v1/staff/token-refresh", getToken(t, stf))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp LoginResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)

	// a token whose original issue date predates the refresh window is rejected
	stale := GetStaffClaims(conf, stf, time.Now().Add(-conf.Server.JWTRefreshExpirationDelta-time.Hour).Unix())
	staleToken, err := GenerateToken(conf, stale)
	assert.NoError(t, err)

	req, rec = newAuthRequest(http.MethodPost, "/v1/staff/token-refresh", staleToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func Test_cadetApi(t *testing.T) {
	admin := createStaff(t, "cadetadmin", true)
	plain := createStaff(t, "cadetplain", false)
	adminToken := getToken(t, admin)

	// create is admin only
	body := marchallObj(t, cadet.NewCadet{StudentNumber: "api-0001", FirstName: "Juan", LastName: "Santos"})
	req, rec := newAuthRequest(http.MethodPost, "/v1/cadets", getToken(t, plain), body)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req, rec = newAuthRequest(http.MethodPost, "/v1/cadets", adminToken, body)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
	var created cadet.Cadet
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "api-0001", created.StudentNumber)

	// duplicate student number is a field validation error
	req, rec = newAuthRequest(http.MethodPost, "/v1/cadets", adminToken, body)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "student_number")

	// retrieval works for non-admin staff
	req, rec = newAuthRequest(http.MethodGet, "/v1/cadets/"+created.ID, getToken(t, plain))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req, rec = newAuthRequest(http.MethodGet, "/v1/cadets/no-such-id", adminToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// query with search and ordering
	req, rec = newAuthRequest(http.MethodGet, "/v1/cadets?search=api-0001&ordering=-last_name,first_name", adminToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var listed []cadet.Cadet
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed, 1)

	// purge refuses an active cadet, then one inside the retention window
	req, rec = newAuthRequest(http.MethodDelete, "/v1/cadets/"+created.ID, adminToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	req, rec = newAuthRequest(http.MethodPost, "/v1/cadets/"+created.ID+"/archive", adminToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req, rec = newAuthRequest(http.MethodDelete, "/v1/cadets/"+created.ID, adminToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	req, rec = newAuthRequest(http.MethodPost, "/v1/cadets/"+created.ID+"/unarchive", adminToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func Test_gradingApi(t *testing.T) {
	admin := createStaff(t, "gradeadmin", true)
	adminToken := getToken(t, admin)
	cdt := createCadet(t, "api-0100", "Ana", "Reyes")

	// training day
	day := marchallObj(t, NewTrainingDayRequest{Date: time.Date(2025, 7, 12, 0, 0, 0, 0, time.UTC), Title: "TD 1"})
	req, rec := newAuthRequest(http.MethodPost, "/v1/training-days", adminToken, day)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
	var td grading.TrainingDay
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &td))

	// attendance outcomes: inserted, then skipped without overwrite
	mark := marchallObj(t, MarkAttendanceRequest{
		CadetID: cdt.ID, Date: td.Date, Title: "TD 1", Status: grading.AttendancePresent,
	})
	req, rec = newAuthRequest(http.MethodPost, "/v1/attendance", adminToken, mark)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"outcome": "inserted"}`, rec.Body.String())

	req, rec = newAuthRequest(http.MethodPost, "/v1/attendance", adminToken, mark)
	app.ServeHTTP(rec, req)
	assert.JSONEq(t, `{"outcome": "skipped"}`, rec.Body.String())

	req, rec = newAuthRequest(http.MethodGet, "/v1/training-days/"+td.ID+"/attendance", adminToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var attendance []grading.AttendanceRecord
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &attendance))
	assert.Len(t, attendance, 1)

	// grade inputs and computed score
	prelim := 90.0
	update := marchallObj(t, grading.UpdateGradeInputs{PrelimScore: &prelim})
	req, rec = newAuthRequest(http.MethodPut, "/v1/cadets/"+cdt.ID+"/grade", adminToken, update)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req, rec = newAuthRequest(http.MethodGet, "/v1/cadets/"+cdt.ID+"/grade", adminToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var grade GradeResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &grade))
	assert.Equal(t, 90.0, grade.Record.PrelimScore)
	assert.NotZero(t, grade.Score.FinalGrade)

	// ledger entry stamps the resolved issuer
	entry := marchallObj(t, grading.NewLedgerEntry{Type: grading.EntryMerit, Points: 5, Reason: "color guard"})
	req, rec = newAuthRequest(http.MethodPost, "/v1/cadets/"+cdt.ID+"/ledger", adminToken, entry)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
	var added grading.LedgerEntry
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &added))
	assert.Equal(t, admin.DisplayName(), added.IssuedBy)

	req, rec = newAuthRequest(http.MethodGet, "/v1/cadets/"+cdt.ID+"/ledger", adminToken)
	app.ServeHTTP(rec, req)
	var entries []grading.LedgerEntry
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	assert.Len(t, entries, 1)

	// reconcile on a consistent ledger reports no changes
	req, rec = newAuthRequest(http.MethodPost, "/v1/cadets/"+cdt.ID+"/reconcile", adminToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var res grading.ReconcileResult
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.Changed())
	assert.Empty(t, res.Flags)

	// deleting the entry reverses the totals
	req, rec = newAuthRequest(http.MethodDelete, "/v1/ledger/"+added.ID, adminToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req, rec = newAuthRequest(http.MethodDelete, "/v1/ledger/"+added.ID, adminToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// standings include every roster cadet
	req, rec = newAuthRequest(http.MethodGet, "/v1/standings", adminToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var standings []grading.Standing
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &standings))
	assert.NotEmpty(t, standings)
}

func Test_importApi(t *testing.T) {
	admin := createStaff(t, "importadmin", true)
	plain := createStaff(t, "importplain", false)
	adminToken := getToken(t, admin)
	createCadet(t, "api-0200", "Ben", "Cruz")

	csv := "Student Number,Date,Status\napi-0200,2025-07-26,P\nghost-001,2025-07-26,A\n"

	upload := func(t *testing.T, path, token, filename, contents string) *httptest.ResponseRecorder {
		t.Helper()
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		fw, err := w.CreateFormFile("file", filename)
		assert.NoError(t, err)
		_, err = fw.Write([]byte(contents))
		assert.NoError(t, err)
		assert.NoError(t, w.Close())

		req := httptest.NewRequest(http.MethodPost, path, &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, req)
		return rec
	}

	// imports are admin only
	rec := upload(t, "/v1/imports/attendance/validate", getToken(t, plain), "td.csv", csv)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// dry run reports matches without writing
	rec = upload(t, "/v1/imports/attendance/validate", adminToken, "td.csv", csv)
	assert.Equal(t, http.StatusOK, rec.Code)
	var summary importer.Summary
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Len(t, summary.Records, 2)
	assert.NotEmpty(t, summary.Records[0].MatchedCadetID)
	assert.Equal(t, 1, summary.Skipped)

	// unknown domain and unsupported format
	rec = upload(t, "/v1/imports/nonsense/validate", adminToken, "td.csv", csv)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = upload(t, "/v1/imports/attendance/validate", adminToken, "td.docx", csv)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// commit applies the batch
	rec = upload(t, "/v1/imports/attendance", adminToken, "td.csv", csv)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.Inserted)
	assert.Equal(t, 1, summary.Skipped)
}
