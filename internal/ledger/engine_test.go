package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutortrack-api/internal/models"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func students(balances ...string) []models.Student {
	out := make([]models.Student, len(balances))
	for i, b := range balances {
		out[i] = models.Student{ID: string(rune('a' + i)), Name: string(rune('A' + i)), Balance: dec(b), Status: models.StudentActive}
	}
	return out
}

func TestChargeSplitsPriceAcrossParticipants(t *testing.T) {
	session := models.Session{
		StudentIDs: models.StringList{"a", "b"},
		Status:     models.AttendancePresent,
		StudentStatuses: models.StudentStatuses{
			{StudentID: "a", Status: models.AttendancePresent},
			{StudentID: "b", Status: models.AttendanceAbsent},
		},
		Price: dec("60"),
	}

	assert.True(t, Charge(session, "a").Equal(dec("30")))
	assert.True(t, Charge(session, "b").IsZero())
	assert.True(t, Charge(session, "c").IsZero())
}

func TestChargeFallsBackToSummaryStatus(t *testing.T) {
	session := models.Session{StudentIDs: models.StringList{"a"}, Status: models.AttendanceLate, Price: dec("40")}
	assert.True(t, Charge(session, "a").Equal(dec("40")))

	session.Status = models.AttendanceCancelled
	assert.True(t, Charge(session, "a").IsZero())
}

func TestApplySessionRoundTrip(t *testing.T) {
	statuses := []models.AttendanceStatus{models.AttendancePresent, models.AttendanceLate, models.AttendanceAbsent, models.AttendanceCancelled}
	for _, first := range statuses {
		for _, second := range statuses {
			before := students("12.50", "-80", "0")
			session := models.Session{
				StudentIDs: models.StringList{"a", "b"},
				Status:     models.AttendancePresent,
				StudentStatuses: models.StudentStatuses{
					{StudentID: "a", Status: first},
					{StudentID: "b", Status: second},
				},
				Price: dec("70"),
			}

			applied := ApplySession(before, session, Add)
			reversed := ReverseSession(applied, session)

			for i := range before {
				assert.Truef(t, before[i].Balance.Equal(reversed[i].Balance), "%s/%s student %s", first, second, before[i].ID)
			}
			assert.True(t, applied[2].Balance.Equal(before[2].Balance), "non participant untouched")
		}
	}
}

func TestApplySessionDoesNotMutateInput(t *testing.T) {
	before := students("0")
	session := models.Session{StudentIDs: models.StringList{"a"}, Status: models.AttendancePresent, Price: dec("40")}

	after := ApplySession(before, session, Add)

	assert.True(t, before[0].Balance.IsZero())
	assert.True(t, after[0].Balance.Equal(dec("40")))
}

func TestEditWithUnchangedSessionKeepsBalances(t *testing.T) {
	before := students("15", "-20")
	session := models.Session{
		StudentIDs: models.StringList{"a", "b"},
		Status:     models.AttendancePresent,
		StudentStatuses: models.StudentStatuses{
			{StudentID: "a", Status: models.AttendancePresent},
			{StudentID: "b", Status: models.AttendanceLate},
		},
		Price: dec("60"),
	}
	applied := ApplySession(before, session, Add)

	edited := ApplySession(ReverseSession(applied, session), session.Clone(), Add)

	for i := range applied {
		assert.True(t, applied[i].Balance.Equal(edited[i].Balance))
	}
}

func TestApplyEntry(t *testing.T) {
	out, ok := ApplyEntry(students("40"), models.Payment{StudentID: "a", Amount: dec("40"), Kind: models.EntryPayment})
	require.True(t, ok)
	assert.True(t, out[0].Balance.IsZero())

	_, ok = ApplyEntry(students("40"), models.Payment{StudentID: "missing", Amount: dec("40")})
	assert.False(t, ok)
}

func TestMergePackage(t *testing.T) {
	student := models.Student{ID: "a", ProgramTypes: models.ProgramTypes{models.ProgramGroup}}

	merged := MergePackage(student, models.ProgramOneOnOne, 10)
	assert.Equal(t, models.ProgramTypes{models.ProgramGroup, models.ProgramOneOnOne}, merged.ProgramTypes)
	require.Len(t, merged.Packages, 1)
	assert.Equal(t, 10, merged.Packages[0].Total)
	assert.Empty(t, student.Packages, "input untouched")

	merged.Packages[0].Active = false
	again := MergePackage(merged, models.ProgramOneOnOne, 5)
	require.Len(t, again.Packages, 1)
	assert.Equal(t, 15, again.Packages[0].Total)
	assert.True(t, again.Packages[0].Active)
	assert.Len(t, again.ProgramTypes, 2)
}
