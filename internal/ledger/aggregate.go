package ledger

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/tutortrack-api/internal/models"
)

// RecentPaymentsLimit caps the recent payments list on the dashboard.
const RecentPaymentsLimit = 10

// Stats are the headline dashboard figures.
type Stats struct {
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	AttendanceRate   int             `json:"attendance_rate"`
	ActiveStudents   int             `json:"active_students"`
	ArchivedStudents int             `json:"archived_students"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	TotalSessions    int             `json:"total_sessions"`
}

// MonthRevenue is one bucket of the revenue histogram.
type MonthRevenue struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// DayActivity counts sessions on one calendar day.
type DayActivity struct {
	Name     string `json:"name"`
	FullDate string `json:"full_date"`
	Count    int    `json:"count"`
}

// AttendanceBucket is a slice of the attendance breakdown.
type AttendanceBucket struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// PaymentView is a ledger entry decorated with the student's name.
type PaymentView struct {
	models.Payment
	StudentName string `json:"student_name"`
}

// TotalRevenue sums revenue-kind entries and the historical offset. Adjustments are excluded.
func TotalRevenue(entries []models.Payment, offset decimal.Decimal) decimal.Decimal {
	total := offset
	for _, e := range entries {
		if e.Kind.Revenue() {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// AttendanceRate is the rounded percentage of sessions whose summary status is Present.
func AttendanceRate(sessions []models.Session) int {
	if len(sessions) == 0 {
		return 0
	}
	present := 0
	for _, s := range sessions {
		if s.Status == models.AttendancePresent {
			present++
		}
	}
	return percent(present, len(sessions))
}

// TotalOutstanding sums positive balances only; credit is ignored.
func TotalOutstanding(students []models.Student) decimal.Decimal {
	total := decimal.Zero
	for _, st := range students {
		if st.Balance.IsPositive() {
			total = total.Add(st.Balance)
		}
	}
	return total
}

// ComputeStats derives the headline figures from a snapshot.
func ComputeStats(state *State) Stats {
	stats := Stats{
		TotalRevenue:     TotalRevenue(state.Payments, state.FinancialOffset),
		AttendanceRate:   AttendanceRate(state.Sessions),
		TotalOutstanding: TotalOutstanding(state.Students),
		TotalSessions:    len(state.Sessions),
	}
	for _, st := range state.Students {
		if st.Status == models.StudentArchived {
			stats.ArchivedStudents++
		} else {
			stats.ActiveStudents++
		}
	}
	return stats
}

// MonthlyRevenue buckets revenue entries by short month label in loc. Buckets are ordered by the
// first chronological occurrence of each label, so the same month of different years shares a bucket.
func MonthlyRevenue(entries []models.Payment, loc *time.Location) []MonthRevenue {
	sorted := make([]models.Payment, 0, len(entries))
	for _, e := range entries {
		if e.Kind.Revenue() {
			sorted = append(sorted, e)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	out := []MonthRevenue{}
	index := map[string]int{}
	for _, e := range sorted {
		key := e.Date.In(loc).Format("Jan")
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, MonthRevenue{Name: key, Amount: decimal.Zero})
		}
		out[i].Amount = out[i].Amount.Add(e.Amount)
	}
	return out
}

// WeeklyActivity counts sessions on each of the seven local calendar days ending today.
func WeeklyActivity(sessions []models.Session, now time.Time, loc *time.Location) []DayActivity {
	today := startOfDay(now.In(loc))
	out := make([]DayActivity, 0, 7)
	for i := 6; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		key := day.Format("2006-01-02")
		count := 0
		for _, s := range sessions {
			if s.Date.In(loc).Format("2006-01-02") == key {
				count++
			}
		}
		out = append(out, DayActivity{Name: day.Format("Mon"), FullDate: key, Count: count})
	}
	return out
}

// AttendanceBreakdown groups summary statuses into Present, Late and Absent; Cancelled counts
// as Absent and empty buckets are dropped.
func AttendanceBreakdown(sessions []models.Session) []AttendanceBucket {
	var present, late, absent int
	for _, s := range sessions {
		switch s.Status {
		case models.AttendancePresent:
			present++
		case models.AttendanceLate:
			late++
		case models.AttendanceAbsent, models.AttendanceCancelled:
			absent++
		}
	}
	out := []AttendanceBucket{}
	for _, b := range []AttendanceBucket{{"Present", present}, {"Late", late}, {"Absent", absent}} {
		if b.Value > 0 {
			out = append(out, b)
		}
	}
	return out
}

// RecentPayments returns the newest entries first, decorated with student names.
func RecentPayments(state *State, limit int) []PaymentView {
	sorted := append([]models.Payment(nil), state.Payments...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.After(sorted[j].Date) })
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	out := make([]PaymentView, 0, len(sorted))
	for _, p := range sorted {
		view := PaymentView{Payment: p, StudentName: "Unknown"}
		if st, ok := state.Student(p.StudentID); ok {
			view.StudentName = st.Name
		}
		out = append(out, view)
	}
	return out
}

// StudentSessions returns the student's sessions newest first.
func StudentSessions(sessions []models.Session, studentID string) []models.Session {
	out := []models.Session{}
	for _, s := range sessions {
		if s.HasStudent(studentID) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

// StudentAttendanceRate is the share of the student's sessions attended (Present or Late).
func StudentAttendanceRate(sessions []models.Session, studentID string) int {
	total, attended := 0, 0
	for _, s := range sessions {
		if !s.HasStudent(studentID) {
			continue
		}
		total++
		if s.StatusFor(studentID).Billable() {
			attended++
		}
	}
	if total == 0 {
		return 0
	}
	return percent(attended, total)
}

// CalendarDay lists the sessions on one local calendar day.
type CalendarDay struct {
	Date     string           `json:"date"`
	Sessions []models.Session `json:"sessions"`
}

// CalendarView selects the window a calendar query covers.
type CalendarView string

const (
	ViewWeek  CalendarView = "week"
	ViewMonth CalendarView = "month"
	ViewYear  CalendarView = "year"
)

// Valid reports whether the view is supported.
func (v CalendarView) Valid() bool {
	return v == ViewWeek || v == ViewMonth || v == ViewYear
}

// Window returns the [from, to) range of the view containing anchor, in loc. Weeks start on Sunday.
func (v CalendarView) Window(anchor time.Time, loc *time.Location) (time.Time, time.Time) {
	day := startOfDay(anchor.In(loc))
	switch v {
	case ViewWeek:
		from := day.AddDate(0, 0, -int(day.Weekday()))
		return from, from.AddDate(0, 0, 7)
	case ViewYear:
		from := time.Date(day.Year(), time.January, 1, 0, 0, 0, 0, loc)
		return from, from.AddDate(1, 0, 0)
	default:
		from := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, loc)
		return from, from.AddDate(0, 1, 0)
	}
}

// Calendar groups sessions in [from, to) by local calendar day, ordered by day and time.
func Calendar(sessions []models.Session, from, to time.Time, loc *time.Location) []CalendarDay {
	filter := models.SessionFilter{From: from, To: to}
	matched := []models.Session{}
	for _, s := range sessions {
		if filter.Match(s) {
			matched = append(matched, s)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Date.Before(matched[j].Date) })

	out := []CalendarDay{}
	for _, s := range matched {
		key := s.Date.In(loc).Format("2006-01-02")
		if n := len(out); n > 0 && out[n-1].Date == key {
			out[n-1].Sessions = append(out[n-1].Sessions, s)
			continue
		}
		out = append(out, CalendarDay{Date: key, Sessions: []models.Session{s}})
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func percent(part, total int) int {
	return int(math.Round(float64(part) * 100 / float64(total)))
}
