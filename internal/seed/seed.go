// Package seed provides the bundled demo dataset used when no persistence backend is reachable.
package seed

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/tutortrack-api/internal/models"
)

// Dataset is a full set of ledger collections.
type Dataset struct {
	Students []models.Student
	Sessions []models.Session
	Payments []models.Payment
}

// Load returns a fresh copy of the demo data. Callers may mutate the result.
func Load() Dataset {
	return Dataset{Students: students(), Sessions: sessions(), Payments: payments()}
}

func day(value string) time.Time {
	layout := "2006-01-02"
	if len(value) > len(layout) {
		layout = "2006-01-02T15:04:05"
	}
	t, err := time.ParseInLocation(layout, value, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func students() []models.Student {
	return []models.Student{
		{
			ID:           "s1",
			Name:         "Alice Johnson",
			ProgramTypes: models.ProgramTypes{models.ProgramOneOnOne, models.ProgramGroup},
			ParentName:   "Martha Johnson",
			Notes:        "Needs help with past tense verbs. Does group class on Fridays.",
			Balance:      decimal.Zero,
			JoinedDate:   day("2023-09-01"),
			Status:       models.StudentActive,
			Packages: models.Packages{
				{Type: models.ProgramOneOnOne, Total: 10, Active: true},
				{Type: models.ProgramGroup, Total: 5, Active: true},
			},
			ProgressHistory: models.ProgressHistory{
				{ID: "ph1", Date: day("2023-09-01"), Reading: 60, Writing: 55, Listening: 70, Speaking: 65, Notes: "Initial assessment."},
				{ID: "ph2", Date: day("2023-10-01"), Reading: 65, Writing: 60, Listening: 75, Speaking: 70, Notes: "Improving steadily."},
			},
		},
		{
			ID:           "s2",
			Name:         "Bob Smith",
			ProgramTypes: models.ProgramTypes{models.ProgramGroup},
			ParentName:   "John Smith",
			Notes:        "Very energetic, likes games.",
			Balance:      decimal.NewFromInt(-50),
			JoinedDate:   day("2023-10-15"),
			Status:       models.StudentActive,
			Packages:     models.Packages{{Type: models.ProgramGroup, Total: 20, Active: true}},
			ProgressHistory: models.ProgressHistory{
				{ID: "ph3", Date: day("2023-10-15"), Reading: 50, Writing: 45, Listening: 80, Speaking: 75, Notes: "Strong speaker, needs writing work."},
			},
		},
		{
			ID:              "s3",
			Name:            "Charlie Davis",
			ProgramTypes:    models.ProgramTypes{models.ProgramGroup},
			ParentName:      "Sarah Davis",
			Notes:           "Struggles with reading comprehension.",
			Balance:         decimal.NewFromInt(100),
			JoinedDate:      day("2023-10-15"),
			Status:          models.StudentActive,
			Packages:        models.Packages{{Type: models.ProgramGroup, Total: 20, Active: true}},
			ProgressHistory: models.ProgressHistory{},
		},
	}
}

func sessions() []models.Session {
	return []models.Session{
		{
			ID:              "sess1",
			StudentIDs:      models.StringList{"s1"},
			Date:            day("2023-10-25T14:00:00"),
			DurationMinutes: 60,
			Status:          models.AttendancePresent,
			StudentStatuses: models.StudentStatuses{{StudentID: "s1", Status: models.AttendancePresent}},
			Type:            models.ProgramOneOnOne,
			Topic:           "Past Simple vs Continuous",
			Notes:           "Great progress today.",
			Price:           decimal.NewFromInt(40),
		},
		{
			ID:              "sess2",
			StudentIDs:      models.StringList{"s2", "s3"},
			Date:            day("2023-10-26T16:00:00"),
			DurationMinutes: 60,
			Status:          models.AttendancePresent,
			StudentStatuses: models.StudentStatuses{
				{StudentID: "s2", Status: models.AttendancePresent},
				{StudentID: "s3", Status: models.AttendancePresent},
			},
			Type:  models.ProgramGroup,
			Topic: "Vocabulary: Animals",
			Notes: "Bob was distracted. Charlie did well.",
			Price: decimal.NewFromInt(60),
		},
		{
			ID:              "sess3",
			StudentIDs:      models.StringList{"s1"},
			Date:            day("2023-11-01T14:00:00"),
			DurationMinutes: 60,
			Status:          models.AttendanceLate,
			StudentStatuses: models.StudentStatuses{{StudentID: "s1", Status: models.AttendanceLate}},
			Type:            models.ProgramOneOnOne,
			Topic:           "Future Tense",
			Notes:           "Arrived 10 mins late.",
			Price:           decimal.NewFromInt(40),
		},
	}
}

func payments() []models.Payment {
	return []models.Payment{
		{ID: "p1", StudentID: "s1", Amount: decimal.NewFromInt(200), Date: day("2023-10-01"), Method: "Bank Transfer", Kind: models.EntryPayment},
		{ID: "p2", StudentID: "s2", Amount: decimal.NewFromInt(150), Date: day("2023-10-15"), Method: "Cash", Kind: models.EntryPayment},
	}
}
