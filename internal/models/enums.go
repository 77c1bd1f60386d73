package models

// ProgramType is the lesson format a student enrols in.
type ProgramType string

const (
	ProgramOneOnOne ProgramType = "One-on-One"
	ProgramGroup    ProgramType = "One-on-Two"
)

// Valid returns true when the program type is supported.
func (p ProgramType) Valid() bool {
	switch p {
	case ProgramOneOnOne, ProgramGroup:
		return true
	default:
		return false
	}
}

// MaxParticipants caps how many students a single session of this program may hold.
func (p ProgramType) MaxParticipants() int {
	if p == ProgramGroup {
		return 2
	}
	return 1
}

// ProgramForParticipants picks the program matching a participant count.
func ProgramForParticipants(n int) ProgramType {
	if n >= 2 {
		return ProgramGroup
	}
	return ProgramOneOnOne
}

// AttendanceStatus represents the attendance outcome for a lesson.
type AttendanceStatus string

const (
	AttendancePresent   AttendanceStatus = "Present"
	AttendanceAbsent    AttendanceStatus = "Absent"
	AttendanceLate      AttendanceStatus = "Late"
	AttendanceCancelled AttendanceStatus = "Cancelled"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceCancelled:
		return true
	default:
		return false
	}
}

// Billable reports whether a participant with this status is charged for the lesson.
func (s AttendanceStatus) Billable() bool {
	return s == AttendancePresent || s == AttendanceLate
}

// StudentStatus is the lifecycle state of a student.
type StudentStatus string

const (
	StudentActive   StudentStatus = "Active"
	StudentArchived StudentStatus = "Archived"
)

// Valid returns true when the status is supported.
func (s StudentStatus) Valid() bool {
	return s == StudentActive || s == StudentArchived
}

// ReportType tags a skill snapshot as a milestone or a routine session assessment.
type ReportType string

const (
	ReportSession   ReportType = "Session"
	ReportBeginning ReportType = "Beginning"
	ReportMid       ReportType = "Mid"
	ReportEnd       ReportType = "End"
)

// Valid returns true for supported report types. The empty tag is allowed.
func (r ReportType) Valid() bool {
	switch r {
	case "", ReportSession, ReportBeginning, ReportMid, ReportEnd:
		return true
	default:
		return false
	}
}

// EntryKind distinguishes the money-in events recorded on the ledger.
type EntryKind string

const (
	// EntryPayment reduces outstanding debt.
	EntryPayment EntryKind = "payment"
	// EntryPackage pre-pays a block of sessions and grants credit.
	EntryPackage EntryKind = "package"
	// EntryAdjustment is a manual balance correction that is not revenue.
	EntryAdjustment EntryKind = "adjustment"
)

// Valid returns true when the kind is supported.
func (k EntryKind) Valid() bool {
	switch k {
	case EntryPayment, EntryPackage, EntryAdjustment:
		return true
	default:
		return false
	}
}

// Revenue reports whether entries of this kind count towards recorded revenue.
func (k EntryKind) Revenue() bool {
	return k == EntryPayment || k == EntryPackage
}
