package session

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/edulive/classpulse/core"
)

// Roles
const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
	RoleNone    Role = ""
)

type Role string

func (r Role) IsValid() bool {
	return r == RoleTeacher || r == RoleStudent
}

// Assessment is a timed multiple-choice question. At most one Assessment is
// active at any time; assessments are never deleted within a session.
type Assessment struct {
	ID        string     `json:"id"`
	Question  string     `json:"question"`
	Options   []string   `json:"options"`
	TimeLimit int        `json:"time_limit"` // seconds
	CreatedAt time.Time  `json:"created_at"` // UTC
	IsActive  bool       `json:"is_active"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

func (a Assessment) HasOption(option string) bool {
	for _, opt := range a.Options {
		if opt == option {
			return true
		}
	}
	return false
}

// Answer records a student's choice for an assessment. There is at most one
// Answer per (AssessmentID, StudentName) pair; resubmission replaces it.
type Answer struct {
	AssessmentID string    `json:"assessment_id"`
	StudentName  string    `json:"student_name"`
	Option       string    `json:"option"`
	Timestamp    time.Time `json:"timestamp"` // UTC
}

// Student is keyed by display name, case-sensitive. Free-text name identity is
// a known product simplification; do not add account identity here.
type Student struct {
	Name        string    `json:"name"`
	JoinedAt    time.Time `json:"joined_at"` // UTC
	IsOnline    bool      `json:"is_online"`
	HasAnswered bool      `json:"has_answered"`
	LastAnswer  *Answer   `json:"last_answer,omitempty"`
}

// State is the full session snapshot: the single unit of persistence.
type State struct {
	SessionID   string       `json:"session_id"`
	UserRole    Role         `json:"user_role"`
	StudentName string       `json:"student_name"`
	CurrentID   string       `json:"current_id"`
	Assessments []Assessment `json:"assessments"`
	Answers     []Answer     `json:"answers"`
	Students    []Student    `json:"students"`
}

func NewState() State {
	return State{
		SessionID:   uuid.New().String(),
		Assessments: make([]Assessment, 0),
		Answers:     make([]Answer, 0),
		Students:    make([]Student, 0),
	}
}

// withDefaults merges a possibly partial snapshot (old or hand-edited slots)
// over the initial state, field by field.
func (s State) withDefaults() State {
	if s.SessionID == "" {
		s.SessionID = uuid.New().String()
	}
	if !s.UserRole.IsValid() {
		s.UserRole = RoleNone
	}
	if s.Assessments == nil {
		s.Assessments = make([]Assessment, 0)
	}
	if s.Answers == nil {
		s.Answers = make([]Answer, 0)
	}
	if s.Students == nil {
		s.Students = make([]Student, 0)
	}
	return s
}

// clone deep-copies the snapshot so callers can never alias the service state.
func (s State) clone() State {
	c := s
	c.Assessments = make([]Assessment, len(s.Assessments))
	for i, a := range s.Assessments {
		c.Assessments[i] = a.clone()
	}
	c.Answers = append(make([]Answer, 0, len(s.Answers)), s.Answers...)
	c.Students = make([]Student, len(s.Students))
	for i, st := range s.Students {
		c.Students[i] = st.clone()
	}
	return c
}

func (a Assessment) clone() Assessment {
	c := a
	c.Options = append(make([]string, 0, len(a.Options)), a.Options...)
	if a.StartedAt != nil {
		t := *a.StartedAt
		c.StartedAt = &t
	}
	if a.EndedAt != nil {
		t := *a.EndedAt
		c.EndedAt = &t
	}
	return c
}

func (st Student) clone() Student {
	c := st
	if st.LastAnswer != nil {
		ans := *st.LastAnswer
		c.LastAnswer = &ans
	}
	return c
}

// Assessment looks an assessment up by id.
func (s State) Assessment(id string) (Assessment, bool) {
	for _, a := range s.Assessments {
		if a.ID == id {
			return a, true
		}
	}
	return Assessment{}, false
}

// ActiveAssessment returns the currently running assessment, if any.
func (s State) ActiveAssessment() (Assessment, bool) {
	for _, a := range s.Assessments {
		if a.IsActive {
			return a, true
		}
	}
	return Assessment{}, false
}

func (s State) answersFor(assessmentID string) []Answer {
	answers := make([]Answer, 0)
	for _, ans := range s.Answers {
		if ans.AssessmentID == assessmentID {
			answers = append(answers, ans)
		}
	}
	return answers
}

func (s State) studentIndex(name string) int {
	for i, st := range s.Students {
		if st.Name == name {
			return i
		}
	}
	return -1
}

// Results is the live tally for one assessment. Per-option percentages are
// rounded independently and may not sum to exactly 100.
type Results struct {
	AssessmentID   string        `json:"assessment_id"`
	TotalAnswers   int           `json:"total_answers"`
	Results        []OptionCount `json:"results"`
	Participants   []string      `json:"participants"`
	AttendanceRate int           `json:"attendance_rate"`
}

type OptionCount struct {
	Option     string `json:"option"`
	Answers    int    `json:"answers"`
	Percentage int    `json:"percentage"`
}

// Attendance is the participation view for one assessment.
type Attendance struct {
	TotalStudents        int               `json:"total_students"`
	ParticipatedStudents int               `json:"participated_students"`
	AttendanceRate       int               `json:"attendance_rate"`
	Students             []AttendanceEntry `json:"students"`
}

type AttendanceEntry struct {
	Name         string     `json:"name"`
	Participated bool       `json:"participated"`
	JoinedAt     time.Time  `json:"joined_at"`
	AnsweredAt   *time.Time `json:"answered_at,omitempty"`
}

// NewAssessment contains information needed to create a new Assessment.
type NewAssessment struct {
	Question  string   `json:"question" validate:"required"`
	Options   []string `json:"options" validate:"min=2,dive,required"`
	TimeLimit int      `json:"time_limit" validate:"gt=0"`
}

func (na *NewAssessment) Validate(validate *validator.Validate) error {
	na.Question = core.CleanString(na.Question)
	na.Options = cleanOptions(na.Options)
	return validate.Struct(na)
}

// cleanOptions trims every option and drops duplicates, keeping order.
func cleanOptions(options []string) []string {
	seen := make(map[string]bool, len(options))
	cleaned := make([]string, 0, len(options))
	for _, opt := range options {
		opt = core.CleanString(opt)
		if seen[opt] {
			continue
		}
		seen[opt] = true
		cleaned = append(cleaned, opt)
	}
	return cleaned
}

// NewAnswer contains information needed to submit an Answer.
type NewAnswer struct {
	AssessmentID string `json:"assessment_id" validate:"required"`
	Option       string `json:"option" validate:"required"`
	StudentName  string `json:"student_name" validate:"required"`
}

func (ns *NewAnswer) Validate(validate *validator.Validate) error {
	ns.Option = core.CleanString(ns.Option)
	ns.StudentName = core.CleanString(ns.StudentName)
	return validate.Struct(ns)
}

// JoinSession contains information needed for a student to join.
type JoinSession struct {
	Name string `json:"name" validate:"required"`
}

func (j *JoinSession) Validate(validate *validator.Validate) error {
	j.Name = core.CleanString(j.Name)
	return validate.Struct(j)
}
