package reportsvc

import (
	"bytes"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/edulive/classpulse/core/session"
)

// ContentType is the MIME type of the generated workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	resultsSheet    = "Results"
	attendanceSheet = "Attendance"

	timeLayout = "2006-01-02 15:04:05"
)

// AssessmentWorkbook builds an xlsx workbook with a results sheet and an
// attendance sheet for one assessment.
func AssessmentWorkbook(a session.Assessment, res session.Results, att session.Attendance) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return nil, errors.Wrap(err, "renaming results sheet")
	}
	if _, err := f.NewSheet(attendanceSheet); err != nil {
		return nil, errors.Wrap(err, "creating attendance sheet")
	}

	if err := writeResults(f, a, res); err != nil {
		return nil, err
	}
	if err := writeAttendance(f, att); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	return buf, errors.Wrap(err, "writing workbook")
}

func writeResults(f *excelize.File, a session.Assessment, res session.Results) error {
	rows := [][]interface{}{
		{"Question", a.Question},
		{"Time limit (s)", a.TimeLimit},
		{"Total answers", res.TotalAnswers},
		{},
		{"Option", "Answers", "Percentage"},
	}
	for _, oc := range res.Results {
		rows = append(rows, []interface{}{oc.Option, oc.Answers, oc.Percentage})
	}
	return writeRows(f, resultsSheet, rows)
}

func writeAttendance(f *excelize.File, att session.Attendance) error {
	rows := [][]interface{}{
		{"Total students", att.TotalStudents},
		{"Participated", att.ParticipatedStudents},
		{"Attendance rate", fmt.Sprintf("%d%%", att.AttendanceRate)},
		{},
		{"Name", "Participated", "Joined at", "Answered at"},
	}
	for _, entry := range att.Students {
		var answeredAt string
		if entry.AnsweredAt != nil {
			answeredAt = entry.AnsweredAt.UTC().Format(timeLayout)
		}
		rows = append(rows, []interface{}{
			entry.Name,
			entry.Participated,
			entry.JoinedAt.UTC().Format(timeLayout),
			answeredAt,
		})
	}
	return writeRows(f, attendanceSheet, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return errors.Wrap(err, "computing cell name")
		}
		if err = f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.Wrapf(err, "writing %s row %d", sheet, i+1)
		}
	}
	return nil
}

// Filename builds a download name like "assessment-<id>-20060102T150405.xlsx".
func Filename(assessmentID string, now time.Time) string {
	return fmt.Sprintf("assessment-%s-%s.xlsx", assessmentID, now.UTC().Format("20060102T150405"))
}
