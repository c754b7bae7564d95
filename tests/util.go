package testutil

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/edulive/classpulse/core"
	"github.com/edulive/classpulse/core/session"
)

// NopLogger discards everything; tests that care about log output can swap in
// their own core.Logger.
type NopLogger struct{}

var _ core.Logger = (*NopLogger)(nil)

func (NopLogger) Enable(bool)                  {}
func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Fatal(string, ...interface{}) {}

// NewConfig builds a self-contained test configuration (no env, no .env files).
func NewConfig() *core.Config {
	return &core.Config{
		Debug:           false,
		TestMode:        true,
		Env:             "TEST",
		Build:           "test",
		AppName:         "ClassPulse",
		SecretKey:       "secret",
		DefaultFromName: "ClassPulse",
		DefaultFromAddr: "noreply@localhost",
		Server: core.ServerConfig{
			Host:               "localhost",
			Port:               "0",
			ShutdownTimeout:    5 * time.Second,
			JWTExpirationDelta: 10 * time.Minute,
		},
	}
}

// CreateAssessment seeds an assessment through the service, failing the test on error.
func CreateAssessment(t *testing.T, svc *session.Service, question string, options []string, timeLimit int) session.Assessment {
	t.Helper()
	assessment, err := svc.CreateAssessment(session.NewAssessment{
		Question:  question,
		Options:   options,
		TimeLimit: timeLimit,
	})
	if err != nil {
		t.Fatalf("CreateAssessment() failed: %v", err)
	}
	return assessment
}

// SubmitAnswer submits through the service, failing the test on error.
func SubmitAnswer(t *testing.T, svc *session.Service, assessmentID, option, student string) {
	t.Helper()
	err := svc.SubmitAnswer(session.NewAnswer{
		AssessmentID: assessmentID,
		Option:       option,
		StudentName:  student,
	})
	if err != nil {
		t.Fatalf("SubmitAnswer(%s, %s, %s) failed: %v", assessmentID, option, student, err)
	}
}

// JSONEq compares two JSON payloads structurally and prints a unified diff on
// mismatch.
func JSONEq(t *testing.T, want, got []byte) {
	t.Helper()

	var wantObj, gotObj interface{}
	if err := json.Unmarshal(want, &wantObj); err != nil {
		t.Fatalf("unmarshalling want: %v", err)
	}
	if err := json.Unmarshal(got, &gotObj); err != nil {
		t.Fatalf("unmarshalling got: %v", err)
	}
	if reflect.DeepEqual(wantObj, gotObj) {
		return
	}

	wantPretty, _ := json.MarshalIndent(wantObj, "", "  ")
	gotPretty, _ := json.MarshalIndent(gotObj, "", "  ")
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(wantPretty)),
		B:        difflib.SplitLines(string(gotPretty)),
		FromFile: "want",
		ToFile:   "got",
		Context:  3,
	})
	t.Errorf("JSON mismatch:\n%s", diff)
}
