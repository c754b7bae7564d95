package reportsvc

import (
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/edulive/classpulse/core/session"
)

func TestAssessmentWorkbook(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	answered := now.Add(10 * time.Second)

	assessment := session.Assessment{
		ID:        "a1",
		Question:  "Pick a color",
		Options:   []string{"Red", "Blue"},
		TimeLimit: 30,
	}
	res := session.Results{
		AssessmentID: "a1",
		TotalAnswers: 3,
		Results: []session.OptionCount{
			{Option: "Red", Answers: 2, Percentage: 67},
			{Option: "Blue", Answers: 1, Percentage: 33},
		},
	}
	att := session.Attendance{
		TotalStudents:        4,
		ParticipatedStudents: 2,
		AttendanceRate:       50,
		Students: []session.AttendanceEntry{
			{Name: "Ana", Participated: true, JoinedAt: now, AnsweredAt: &answered},
			{Name: "Bo", Participated: false, JoinedAt: now},
		},
	}

	buf, err := AssessmentWorkbook(assessment, res, att)
	if err != nil {
		t.Fatalf("AssessmentWorkbook() failed: %v", err)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("reopening workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	cells := []struct {
		sheet, cell, want string
	}{
		{resultsSheet, "B1", "Pick a color"},
		{resultsSheet, "B3", "3"},
		{resultsSheet, "A5", "Option"},
		{resultsSheet, "A6", "Red"},
		{resultsSheet, "B6", "2"},
		{resultsSheet, "C6", "67"},
		{resultsSheet, "A7", "Blue"},
		{attendanceSheet, "B1", "4"},
		{attendanceSheet, "B3", "50%"},
		{attendanceSheet, "A6", "Ana"},
		{attendanceSheet, "B6", "TRUE"},
		{attendanceSheet, "D6", "2024-03-01 10:00:10"},
		{attendanceSheet, "B7", "FALSE"},
		{attendanceSheet, "D7", ""},
	}
	for _, tt := range cells {
		got, err := f.GetCellValue(tt.sheet, tt.cell)
		if err != nil {
			t.Fatalf("GetCellValue(%s!%s) failed: %v", tt.sheet, tt.cell, err)
		}
		if got != tt.want {
			t.Errorf("%s!%s = %q, want %q", tt.sheet, tt.cell, got, tt.want)
		}
	}
}

func TestFilename(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	if got, want := Filename("a1", now), "assessment-a1-20240301T100000.xlsx"; got != want {
		t.Errorf("Filename() = %q, want %q", got, want)
	}
}
