package tests

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	echoapi "github.com/edulive/classpulse/apps/api/echo"
	"github.com/edulive/classpulse/core/session"
	emailsvc "github.com/edulive/classpulse/services/email"
	reportsvc "github.com/edulive/classpulse/services/report"
	testutil "github.com/edulive/classpulse/tests"
)

func TestHome(t *testing.T) {
	app := initApp(t)

	rec := app.do(newRequest(http.MethodGet, "/"))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET / = %d, want %d", rec.Code, http.StatusOK)
	}
	if got, want := rec.Body.String(), "Welcome to ClassPulse API!"; got != want {
		t.Errorf("GET / body = %q, want %q", got, want)
	}
}

func TestSessionAPI_chooseRole(t *testing.T) {
	app := initApp(t)

	t.Run("RoleIsRequired", func(t *testing.T) {
		rec := app.do(newRequest(http.MethodPost, "/v1/session/role", []byte(`{}`)))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
		fldErrs := decodeFieldErrors(t, rec.Body.Bytes())
		if _, ok := fldErrs["role"]; !ok {
			t.Errorf("expected a role field error, got %v", fldErrs)
		}
	})

	t.Run("UnknownRoleRejected", func(t *testing.T) {
		rec := app.do(newRequest(http.MethodPost, "/v1/session/role", []byte(`{"role": "moderator"}`)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("StudentNeedsName", func(t *testing.T) {
		rec := app.do(newRequest(http.MethodPost, "/v1/session/role", []byte(`{"role": "student"}`)))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
		fldErrs := decodeFieldErrors(t, rec.Body.Bytes())
		if _, ok := fldErrs["name"]; !ok {
			t.Errorf("expected a name field error, got %v", fldErrs)
		}
	})

	t.Run("Teacher", func(t *testing.T) {
		rec := app.do(newRequest(http.MethodPost, "/v1/session/role", []byte(`{"role": "Teacher"}`))) // case-insensitive
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d; body %s", rec.Code, http.StatusOK, rec.Body)
		}
		var resp echoapi.ChooseRoleResponse
		mustDecode(t, rec.Body.Bytes(), &resp)
		if resp.Token == "" {
			t.Error("expected a signed token")
		}
		if resp.Role != session.RoleTeacher {
			t.Errorf("role = %q, want %q", resp.Role, session.RoleTeacher)
		}
		if got := app.svc.Snapshot(); got.SessionID != resp.SessionID || got.UserRole != session.RoleTeacher {
			t.Errorf("session state not updated: %+v", got)
		}
	})

	t.Run("StudentJoins", func(t *testing.T) {
		rec := app.do(newRequest(http.MethodPost, "/v1/session/role", []byte(`{"role": "student", "name": " Ana "}`)))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d; body %s", rec.Code, http.StatusOK, rec.Body)
		}
		var resp echoapi.ChooseRoleResponse
		mustDecode(t, rec.Body.Bytes(), &resp)
		if resp.StudentName != "Ana" {
			t.Errorf("student_name = %q, want %q", resp.StudentName, "Ana")
		}
		state := app.svc.Snapshot()
		if len(state.Students) != 1 || state.Students[0].Name != "Ana" {
			t.Errorf("expected Ana on the roster, got %+v", state.Students)
		}
	})
}

func TestSessionAPI_authGating(t *testing.T) {
	app := initApp(t)
	teacherToken := app.token(t, session.RoleTeacher, "")
	studentToken := app.token(t, session.RoleStudent, "Ana")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"NoTokenListing", http.MethodGet, "/v1/assessments", "", http.StatusUnauthorized},
		{"GarbageToken", http.MethodGet, "/v1/assessments", "not-a-jwt", http.StatusBadRequest},
		{"StudentCannotCreate", http.MethodPost, "/v1/assessments", studentToken, http.StatusForbidden},
		{"StudentCannotStart", http.MethodPost, "/v1/assessments/a1/start", studentToken, http.StatusForbidden},
		{"StudentCannotSeeAttendance", http.MethodGet, "/v1/assessments/a1/attendance", studentToken, http.StatusForbidden},
		{"TeacherCannotAnswer", http.MethodPost, "/v1/assessments/a1/answers", teacherToken, http.StatusForbidden},
		{"TeacherCannotJoin", http.MethodPost, "/v1/session/join", teacherToken, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(newAuthRequest(tt.method, tt.path, tt.token, []byte(`{}`)))
			if rec.Code != tt.want {
				t.Errorf("%s %s = %d, want %d; body %s", tt.method, tt.path, rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestSessionAPI_assessmentFlow(t *testing.T) {
	app := initApp(t)
	teacherToken := app.token(t, session.RoleTeacher, "")

	var assessment session.Assessment

	t.Run("Create", func(t *testing.T) {
		data := marshallObj(t, session.NewAssessment{
			Question:  "Pick a color",
			Options:   []string{"Red", "Blue"},
			TimeLimit: 30,
		})
		rec := app.do(newAuthRequest(http.MethodPost, "/v1/assessments", teacherToken, data))
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want %d; body %s", rec.Code, http.StatusCreated, rec.Body)
		}
		mustDecode(t, rec.Body.Bytes(), &assessment)
		if assessment.ID == "" || assessment.IsActive {
			t.Errorf("new assessment must have an id and start inactive: %+v", assessment)
		}
	})

	t.Run("Listing", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodGet, "/v1/assessments", teacherToken))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		var list []session.Assessment
		mustDecode(t, rec.Body.Bytes(), &list)
		if len(list) != 1 || list[0].ID != assessment.ID {
			t.Errorf("listing = %+v, want the created assessment", list)
		}
	})

	t.Run("CanCreateBeforeStart", func(t *testing.T) {
		assertCanCreate(t, app, teacherToken, true)
	})

	t.Run("Start", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodPost, "/v1/assessments/"+assessment.ID+"/start", teacherToken))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want %d; body %s", rec.Code, http.StatusNoContent, rec.Body)
		}
		state := app.svc.Snapshot()
		if state.CurrentID != assessment.ID {
			t.Errorf("current_id = %q, want %q", state.CurrentID, assessment.ID)
		}
		assertCanCreate(t, app, teacherToken, false)
	})

	t.Run("Answers", func(t *testing.T) {
		for _, student := range []struct{ name, option string }{
			{"Ana", "Red"}, {"Bo", "Red"}, {"Cal", "Blue"},
		} {
			token := app.token(t, session.RoleStudent, student.name)
			data := marshallObj(t, echoapi.SubmitAnswerRequest{Option: student.option})
			rec := app.do(newAuthRequest(http.MethodPost, "/v1/assessments/"+assessment.ID+"/answers", token, data))
			if rec.Code != http.StatusNoContent {
				t.Fatalf("%s answering: status = %d, want %d; body %s", student.name, rec.Code, http.StatusNoContent, rec.Body)
			}
		}
	})

	t.Run("UnknownOptionRejected", func(t *testing.T) {
		token := app.token(t, session.RoleStudent, "Ana")
		data := marshallObj(t, echoapi.SubmitAnswerRequest{Option: "Green"})
		rec := app.do(newAuthRequest(http.MethodPost, "/v1/assessments/"+assessment.ID+"/answers", token, data))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d; body %s", rec.Code, http.StatusBadRequest, rec.Body)
		}
	})

	t.Run("Results", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodGet, "/v1/assessments/"+assessment.ID+"/results", teacherToken))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d; body %s", rec.Code, http.StatusOK, rec.Body)
		}
		want := fmt.Sprintf(`{
			"assessment_id": %q,
			"total_answers": 3,
			"results": [
				{"option": "Red", "answers": 2, "percentage": 67},
				{"option": "Blue", "answers": 1, "percentage": 33}
			],
			"participants": ["Ana", "Bo", "Cal"],
			"attendance_rate": 100
		}`, assessment.ID)
		testutil.JSONEq(t, []byte(want), rec.Body.Bytes())
	})

	t.Run("End", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodPost, "/v1/assessments/"+assessment.ID+"/end", teacherToken))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want %d; body %s", rec.Code, http.StatusNoContent, rec.Body)
		}
		if state := app.svc.Snapshot(); state.CurrentID != "" {
			t.Errorf("current_id must clear on end, got %q", state.CurrentID)
		}
	})

	t.Run("Attendance", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodGet, "/v1/assessments/"+assessment.ID+"/attendance", teacherToken))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d; body %s", rec.Code, http.StatusOK, rec.Body)
		}
		var att session.Attendance
		mustDecode(t, rec.Body.Bytes(), &att)
		if att.TotalStudents != 3 || att.ParticipatedStudents != 3 || att.AttendanceRate != 100 {
			t.Errorf("attendance = %+v, want 3/3 at 100%%", att)
		}
	})

	t.Run("Export", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodGet, "/v1/assessments/"+assessment.ID+"/attendance/export", teacherToken))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d; body %s", rec.Code, http.StatusOK, rec.Body)
		}
		if got := rec.Header().Get("Content-Type"); got != reportsvc.ContentType {
			t.Errorf("Content-Type = %q, want %q", got, reportsvc.ContentType)
		}
		if got := rec.Header().Get("Content-Disposition"); !strings.HasPrefix(got, `attachment; filename="assessment-`) {
			t.Errorf("Content-Disposition = %q, want an attachment", got)
		}
		if rec.Body.Len() == 0 {
			t.Error("expected a workbook payload")
		}
	})

	t.Run("EmailReport", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodPost, "/v1/assessments/"+assessment.ID+"/report", teacherToken,
			[]byte(`{"email": "not-an-email"}`)))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d; body %s", rec.Code, http.StatusBadRequest, rec.Body)
		}

		sentBefore := len(emailsvc.SentMessages)
		rec = app.do(newAuthRequest(http.MethodPost, "/v1/assessments/"+assessment.ID+"/report", teacherToken,
			[]byte(`{"email": "prof@example.com"}`)))
		if rec.Code != http.StatusAccepted {
			t.Fatalf("status = %d, want %d; body %s", rec.Code, http.StatusAccepted, rec.Body)
		}
		if len(emailsvc.SentMessages) != sentBefore+1 {
			t.Fatalf("sent %d messages, want 1", len(emailsvc.SentMessages)-sentBefore)
		}
		msg := emailsvc.SentMessages[len(emailsvc.SentMessages)-1]
		if len(msg.To) != 1 || msg.To[0].Address != "prof@example.com" {
			t.Errorf("recipients = %+v, want prof@example.com", msg.To)
		}
		if len(msg.Attachments) != 1 || !strings.HasSuffix(msg.Attachments[0].Filename, ".xlsx") {
			t.Errorf("expected one workbook attachment, got %+v", msg.Attachments)
		}
	})
}

func TestSessionAPI_unknownAssessment(t *testing.T) {
	app := initApp(t)
	teacherToken := app.token(t, session.RoleTeacher, "")
	studentToken := app.token(t, session.RoleStudent, "Ana")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		data   []byte
	}{
		{"Start", http.MethodPost, "/v1/assessments/nope/start", teacherToken, nil},
		{"End", http.MethodPost, "/v1/assessments/nope/end", teacherToken, nil},
		{"Answer", http.MethodPost, "/v1/assessments/nope/answers", studentToken, []byte(`{"option": "Red"}`)},
		{"Results", http.MethodGet, "/v1/assessments/nope/results", studentToken, nil},
		{"Attendance", http.MethodGet, "/v1/assessments/nope/attendance", teacherToken, nil},
		{"Export", http.MethodGet, "/v1/assessments/nope/attendance/export", teacherToken, nil},
		{"Report", http.MethodPost, "/v1/assessments/nope/report", teacherToken, []byte(`{"email": "prof@example.com"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(newAuthRequest(tt.method, tt.path, tt.token, tt.data))
			if rec.Code != http.StatusNotFound {
				t.Errorf("%s %s = %d, want %d; body %s", tt.method, tt.path, rec.Code, http.StatusNotFound, rec.Body)
			}
		})
	}
}

func TestSessionAPI_createValidation(t *testing.T) {
	app := initApp(t)
	teacherToken := app.token(t, session.RoleTeacher, "")

	tests := []struct {
		name string
		data string
	}{
		{"MissingQuestion", `{"options": ["A", "B"], "time_limit": 30}`},
		{"OneOption", `{"question": "Q", "options": ["A"], "time_limit": 30}`},
		{"BlankOption", `{"question": "Q", "options": ["A", " "], "time_limit": 30}`},
		{"ZeroTimeLimit", `{"question": "Q", "options": ["A", "B"], "time_limit": 0}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(newAuthRequest(http.MethodPost, "/v1/assessments", teacherToken, []byte(tt.data)))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d; body %s", rec.Code, http.StatusBadRequest, rec.Body)
			}
		})
	}

	if got := len(app.svc.Snapshot().Assessments); got != 0 {
		t.Errorf("rejected payloads must not create assessments, found %d", got)
	}
}

func TestSessionAPI_sessionLifecycle(t *testing.T) {
	app := initApp(t)

	t.Run("Retrieve", func(t *testing.T) {
		rec := app.do(newRequest(http.MethodGet, "/v1/session"))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		var resp echoapi.SessionResponse
		mustDecode(t, rec.Body.Bytes(), &resp)
		if resp.SessionID == "" {
			t.Error("expected a session id")
		}
		if resp.UserRole != session.RoleNone {
			t.Errorf("user_role = %q, want %q", resp.UserRole, session.RoleNone)
		}
	})

	t.Run("JoinWithTokenName", func(t *testing.T) {
		token := app.token(t, session.RoleStudent, "Bo")
		rec := app.do(newAuthRequest(http.MethodPost, "/v1/session/join", token, []byte(`{}`)))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want %d; body %s", rec.Code, http.StatusNoContent, rec.Body)
		}
		state := app.svc.Snapshot()
		if len(state.Students) != 1 || state.Students[0].Name != "Bo" {
			t.Errorf("expected Bo on the roster, got %+v", state.Students)
		}
	})

	t.Run("ResetRole", func(t *testing.T) {
		if err := app.svc.SetRole(session.RoleTeacher); err != nil {
			t.Fatalf("SetRole() failed: %v", err)
		}
		token := app.token(t, session.RoleTeacher, "")
		rec := app.do(newAuthRequest(http.MethodDelete, "/v1/session/role", token))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want %d; body %s", rec.Code, http.StatusNoContent, rec.Body)
		}
		if got := app.svc.Snapshot().UserRole; got != session.RoleNone {
			t.Errorf("user_role = %q, want %q", got, session.RoleNone)
		}
	})
}

func assertCanCreate(t *testing.T, app *testApp, token string, want bool) {
	t.Helper()
	rec := app.do(newAuthRequest(http.MethodGet, "/v1/assessments/can-create", token))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body %s", rec.Code, http.StatusOK, rec.Body)
	}
	var resp echoapi.CanCreateResponse
	mustDecode(t, rec.Body.Bytes(), &resp)
	if resp.CanCreate != want {
		t.Errorf("can_create = %t, want %t", resp.CanCreate, want)
	}
}

func decodeFieldErrors(t *testing.T, data []byte) map[string]string {
	t.Helper()
	fldErrs := make(map[string]string)
	mustDecode(t, data, &fldErrs)
	return fldErrs
}

func mustDecode(t *testing.T, data []byte, obj interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, obj); err != nil {
		t.Fatalf("decoding %s: %v", data, err)
	}
}
