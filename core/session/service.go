package session

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/edulive/classpulse/core"
)

var (
	// errors
	ErrNotFound    = errors.New("assessment not found")
	ErrInvalidRole = errors.New("role must be teacher or student")

	errUnknownOption = "not one of the assessment options"
	errEmptyName     = "student name cannot be empty"
)

type (
	// SnapshotStore is the persistence port: one durable slot holding the whole
	// session State. Load reports ok=false when the slot is empty; a decoding
	// failure is an error so the caller can fall back to defaults.
	SnapshotStore interface {
		Load() (State, bool, error)
		Save(State) error
	}

	Service struct {
		mu     sync.RWMutex
		state  State
		store  SnapshotStore
		logger core.Logger

		nowFunc func() time.Time // mockable
		newID   func() string    // mockable
	}
)

// NewService rehydrates the session from the store, falling back to a fresh
// state when the slot is empty or corrupt. A corrupt slot is logged, never
// surfaced.
func NewService(store SnapshotStore, logger core.Logger) *Service {
	svc := &Service{
		store:   store,
		logger:  logger,
		nowFunc: func() time.Time { return time.Now().UTC() },
		newID:   func() string { return uuid.New().String() },
	}

	state, ok, err := store.Load()
	if err != nil {
		logger.Warn(fmt.Sprintf("loading session snapshot: %v; starting from defaults", err), err)
		state, ok = State{}, false
	}
	if !ok {
		state = NewState()
	}
	svc.state = state.withDefaults()

	// materialize the slot so a fresh session survives an immediate restart
	if err := store.Save(svc.state); err != nil {
		logger.Error(fmt.Sprintf("saving session snapshot: %v", err), err)
	}
	return svc
}

// commit persists the next snapshot then publishes it. Persistence failures are
// logged and the in-memory state still advances (the session keeps working off
// memory until the backend recovers). Callers must hold the write lock.
func (svc *Service) commit(next State) {
	if err := svc.store.Save(next); err != nil {
		svc.logger.Error(fmt.Sprintf("saving session snapshot: %v", err), err)
	}
	svc.state = next
}

// Snapshot returns a deep copy of the current state.
func (svc *Service) Snapshot() State {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	return svc.state.clone()
}

// CreateAssessment appends a new inactive Assessment and returns it.
func (svc *Service) CreateAssessment(na NewAssessment) (Assessment, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	assessment := Assessment{
		ID:        svc.newID(),
		Question:  na.Question,
		Options:   na.Options,
		TimeLimit: na.TimeLimit,
		CreatedAt: svc.nowFunc(),
		IsActive:  false,
	}

	next := svc.state.clone()
	next.Assessments = append(next.Assessments, assessment)
	svc.commit(next)
	return assessment, nil
}

// Start activates the assessment and deactivates every other one, so at most
// one assessment is ever active.
func (svc *Service) Start(id string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if _, ok := svc.state.Assessment(id); !ok {
		return ErrNotFound
	}

	now := svc.nowFunc()
	next := svc.state.clone()
	for i := range next.Assessments {
		if next.Assessments[i].ID == id {
			next.Assessments[i].IsActive = true
			next.Assessments[i].StartedAt = &now
		} else {
			next.Assessments[i].IsActive = false
		}
	}
	next.CurrentID = id
	svc.commit(next)
	return nil
}

// End deactivates the assessment and clears CurrentID when it matches.
func (svc *Service) End(id string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if _, ok := svc.state.Assessment(id); !ok {
		return ErrNotFound
	}

	now := svc.nowFunc()
	next := svc.state.clone()
	for i := range next.Assessments {
		if next.Assessments[i].ID == id {
			next.Assessments[i].IsActive = false
			next.Assessments[i].EndedAt = &now
		}
	}
	if next.CurrentID == id {
		next.CurrentID = ""
	}
	svc.commit(next)
	return nil
}

// SubmitAnswer upserts the Answer for (assessment, student), last write wins,
// and upserts the student record marking it as having answered.
func (svc *Service) SubmitAnswer(ns NewAnswer) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	assessment, ok := svc.state.Assessment(ns.AssessmentID)
	if !ok {
		return ErrNotFound
	}
	if !assessment.HasOption(ns.Option) {
		return core.NewValidationError(nil, core.FieldError{Field: "option", Error: errUnknownOption})
	}

	answer := Answer{
		AssessmentID: ns.AssessmentID,
		StudentName:  ns.StudentName,
		Option:       ns.Option,
		Timestamp:    svc.nowFunc(),
	}

	next := svc.state.clone()

	replaced := false
	for i, ans := range next.Answers {
		if ans.AssessmentID == answer.AssessmentID && ans.StudentName == answer.StudentName {
			next.Answers[i] = answer
			replaced = true
			break
		}
	}
	if !replaced {
		next.Answers = append(next.Answers, answer)
	}

	if i := next.studentIndex(ns.StudentName); i >= 0 {
		next.Students[i].HasAnswered = true
		next.Students[i].LastAnswer = &answer
	} else {
		next.Students = append(next.Students, Student{
			Name:        ns.StudentName,
			JoinedAt:    answer.Timestamp,
			IsOnline:    true,
			HasAnswered: true,
			LastAnswer:  &answer,
		})
	}

	svc.commit(next)
	return nil
}

// Join marks an existing student online (refreshing JoinedAt) or registers a
// new one. There is at most one student record per name.
func (svc *Service) Join(name string) error {
	name = core.CleanString(name)
	if name == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "name", Error: errEmptyName})
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	now := svc.nowFunc()
	next := svc.state.clone()
	if i := next.studentIndex(name); i >= 0 {
		next.Students[i].IsOnline = true
		next.Students[i].JoinedAt = now
	} else {
		next.Students = append(next.Students, Student{
			Name:     name,
			JoinedAt: now,
			IsOnline: true,
		})
	}
	svc.commit(next)
	return nil
}

func (svc *Service) SetRole(role Role) error {
	if !role.IsValid() {
		return core.NewValidationError(ErrInvalidRole, core.FieldError{Field: "role", Error: ErrInvalidRole.Error()})
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	next := svc.state.clone()
	next.UserRole = role
	svc.commit(next)
	return nil
}

func (svc *Service) SetStudentName(name string) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	next := svc.state.clone()
	next.StudentName = core.CleanString(name)
	svc.commit(next)
}

// ResetRole clears both the role and the student name.
func (svc *Service) ResetRole() {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	next := svc.state.clone()
	next.UserRole = RoleNone
	next.StudentName = ""
	svc.commit(next)
}

// Reset discards the whole session and starts a fresh one (new session id).
func (svc *Service) Reset() {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.commit(NewState())
}

// Results tallies answers per option for the assessment.
func (svc *Service) Results(id string) (Results, error) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()

	assessment, ok := svc.state.Assessment(id)
	if !ok {
		return Results{}, ErrNotFound
	}

	answers := svc.state.answersFor(id)
	total := len(answers)

	counts := make([]OptionCount, 0, len(assessment.Options))
	for _, opt := range assessment.Options {
		var n int
		for _, ans := range answers {
			if ans.Option == opt {
				n++
			}
		}
		counts = append(counts, OptionCount{
			Option:     opt,
			Answers:    n,
			Percentage: percent(n, total),
		})
	}

	participants := make([]string, 0, total)
	for _, ans := range answers {
		participants = append(participants, ans.StudentName)
	}

	return Results{
		AssessmentID:   id,
		TotalAnswers:   total,
		Results:        counts,
		Participants:   participants,
		AttendanceRate: percent(len(distinct(participants)), len(svc.state.Students)),
	}, nil
}

// Attendance reports per-student participation for the assessment.
func (svc *Service) Attendance(id string) (Attendance, error) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()

	if _, ok := svc.state.Assessment(id); !ok {
		return Attendance{}, ErrNotFound
	}

	participated := make(map[string]bool)
	for _, ans := range svc.state.answersFor(id) {
		participated[ans.StudentName] = true
	}

	entries := make([]AttendanceEntry, 0, len(svc.state.Students))
	for _, st := range svc.state.Students {
		entry := AttendanceEntry{
			Name:         st.Name,
			Participated: participated[st.Name],
			JoinedAt:     st.JoinedAt,
		}
		if st.LastAnswer != nil {
			t := st.LastAnswer.Timestamp
			entry.AnsweredAt = &t
		}
		entries = append(entries, entry)
	}

	return Attendance{
		TotalStudents:        len(svc.state.Students),
		ParticipatedStudents: len(participated),
		AttendanceRate:       percent(len(participated), len(svc.state.Students)),
		Students:             entries,
	}, nil
}

// CanCreate reports whether the teacher may create a new assessment: always
// when none is active, otherwise only once every known student has answered
// the active one (and there is at least one student).
func (svc *Service) CanCreate() bool {
	svc.mu.RLock()
	defer svc.mu.RUnlock()

	active, ok := svc.state.ActiveAssessment()
	if !ok {
		return true
	}

	answered := make(map[string]bool)
	for _, ans := range svc.state.answersFor(active.ID) {
		answered[ans.StudentName] = true
	}
	return len(svc.state.Students) > 0 && len(answered) >= len(svc.state.Students)
}

// percent rounds half-up. Independent per-option rounding means percentages
// may not sum to exactly 100; that is accepted, do not normalize.
func percent(count, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(count) / float64(total) * 100))
}

func distinct(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
