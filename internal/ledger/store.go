package ledger

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/tutortrack-api/internal/models"
	appErrors "github.com/noah-isme/tutortrack-api/pkg/errors"
)

// State is an immutable snapshot of every collection owned by the store.
// Callers must treat the slices as read-only.
type State struct {
	Students        []models.Student
	Sessions        []models.Session
	Payments        []models.Payment
	FinancialOffset decimal.Decimal
	Revision        int64
}

// Student finds a student by id.
func (s *State) Student(id string) (models.Student, bool) {
	i := indexStudent(s.Students, id)
	if i < 0 {
		return models.Student{}, false
	}
	return s.Students[i], true
}

// Session finds a session by id.
func (s *State) Session(id string) (models.Session, bool) {
	i := indexSession(s.Sessions, id)
	if i < 0 {
		return models.Session{}, false
	}
	return s.Sessions[i], true
}

// Entity names a persisted collection.
type Entity string

const (
	EntityStudent Entity = "student"
	EntitySession Entity = "session"
	EntityPayment Entity = "payment"
)

// Op is the kind of change applied to an entity.
type Op string

const (
	OpUpsert Op = "upsert"
	OpDelete Op = "delete"
)

// Change describes one entity mutation produced by a command.
type Change struct {
	Entity  Entity
	Op      Op
	ID      string
	Version int64
	Student *models.Student
	Session *models.Session
	Payment *models.Payment
}

// Listener receives the changes of each committed command, in commit order.
// Listeners run while the writer lock is held and must not issue commands.
type Listener func(changes []Change)

// StudentInput holds registration details.
type StudentInput struct {
	Name            string
	Email           string
	ParentName      string
	Notes           string
	ProgramTypes    []models.ProgramType
	JoinedDate      time.Time
	InitialPackages []PackagePurchase
}

// StudentProfile holds the editable, non-financial student fields.
type StudentProfile struct {
	Name         string
	Email        string
	ParentName   string
	Notes        string
	ProgramTypes []models.ProgramType
}

// PackagePurchase is a prepaid block of sessions for one program.
type PackagePurchase struct {
	Program  models.ProgramType
	Sessions int
	Amount   decimal.Decimal
	Method   string
	Date     time.Time
}

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides how new entity ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// Store owns the ledger state. Commands are serialised by a writer lock and publish a new
// snapshot on success; reads never block.
type Store struct {
	mu        sync.Mutex
	state     atomic.Pointer[State]
	listeners []Listener
	now       func() time.Time
	newID     func() string
}

// NewStore constructs an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state.Store(&State{})
	return s
}

// Subscribe registers a listener for committed changes.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Snapshot returns the current state.
func (s *Store) Snapshot() *State {
	return s.state.Load()
}

// Load replaces the state wholesale, typically with rows fetched from persistence.
// The revision continues from the highest stored version. No changes are published.
func (s *Store) Load(students []models.Student, sessions []models.Session, payments []models.Payment, offset decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := &State{
		Students:        append([]models.Student(nil), students...),
		Sessions:        append([]models.Session(nil), sessions...),
		Payments:        append([]models.Payment(nil), payments...),
		FinancialOffset: offset,
	}
	for _, st := range next.Students {
		next.Revision = maxInt64(next.Revision, st.Version)
	}
	for _, se := range next.Sessions {
		next.Revision = maxInt64(next.Revision, se.Version)
	}
	for _, p := range next.Payments {
		next.Revision = maxInt64(next.Revision, p.Version)
	}
	s.state.Store(next)
}

// Seed loads demo data whose balances were captured without history. Opening balances are
// derived so that the loaded ledger reconciles, and every entity is published as a change.
func (s *Store) Seed(students []models.Student, sessions []models.Session, payments []models.Payment, offset decimal.Decimal) []Change {
	seeded := DeriveOpeningBalances(students, sessions, payments)
	s.Load(nil, nil, nil, offset)
	changes, _ := s.commit(func(t *tx) error {
		for i := range seeded {
			t.putStudent(seeded[i])
		}
		for i := range sessions {
			t.putSession(sessions[i].Clone())
		}
		for i := range payments {
			t.putPayment(payments[i])
		}
		return nil
	})
	return changes
}

// RegisterStudent creates an Active student and applies any initial package purchases.
func (s *Store) RegisterStudent(in StudentInput) (models.Student, []Change, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Student{}, nil, appErrors.Clone(appErrors.ErrValidation, "student name is required")
	}
	programs, err := normalizePrograms(in.ProgramTypes)
	if err != nil {
		return models.Student{}, nil, err
	}
	for _, pkg := range in.InitialPackages {
		if err := validatePurchase(pkg); err != nil {
			return models.Student{}, nil, err
		}
		if !containsProgram(programs, pkg.Program) {
			programs = append(programs, pkg.Program)
		}
	}
	if len(programs) == 0 {
		return models.Student{}, nil, appErrors.Clone(appErrors.ErrValidation, "at least one program is required")
	}

	var created models.Student
	changes, err := s.commit(func(t *tx) error {
		joined := in.JoinedDate
		if joined.IsZero() {
			joined = t.now
		}
		student := models.Student{
			ID:              s.newID(),
			Name:            name,
			Email:           strings.TrimSpace(in.Email),
			ParentName:      strings.TrimSpace(in.ParentName),
			ProgramTypes:    programs,
			Notes:           registrationNotes(in.Notes, in.InitialPackages),
			Balance:         decimal.Zero,
			OpeningBalance:  decimal.Zero,
			JoinedDate:      joined,
			Status:          models.StudentActive,
			Packages:        models.Packages{},
			ProgressHistory: models.ProgressHistory{},
		}
		t.putStudent(student)
		for _, pkg := range in.InitialPackages {
			if err := t.purchase(student.ID, pkg, ""); err != nil {
				return err
			}
		}
		created, _ = t.student(student.ID)
		return nil
	})
	if err != nil {
		return models.Student{}, nil, err
	}
	return created, changes, nil
}

// UpdateStudent edits profile fields. Balance and packages are never touched here.
func (s *Store) UpdateStudent(id string, profile StudentProfile) (models.Student, []Change, error) {
	name := strings.TrimSpace(profile.Name)
	if name == "" {
		return models.Student{}, nil, appErrors.Clone(appErrors.ErrValidation, "student name is required")
	}
	programs, err := normalizePrograms(profile.ProgramTypes)
	if err != nil {
		return models.Student{}, nil, err
	}

	var updated models.Student
	changes, err := s.commit(func(t *tx) error {
		student, ok := t.student(id)
		if !ok {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		student.Name = name
		student.Email = strings.TrimSpace(profile.Email)
		student.ParentName = strings.TrimSpace(profile.ParentName)
		student.Notes = profile.Notes
		if len(programs) > 0 {
			student.ProgramTypes = programs
		}
		t.putStudent(student)
		updated, _ = t.student(id)
		return nil
	})
	if err != nil {
		return models.Student{}, nil, err
	}
	return updated, changes, nil
}

// SetStudentStatus toggles a student between Active and Archived.
func (s *Store) SetStudentStatus(id string, status models.StudentStatus) (models.Student, []Change, error) {
	if !status.Valid() {
		return models.Student{}, nil, appErrors.Clone(appErrors.ErrValidation, "invalid student status")
	}
	var updated models.Student
	changes, err := s.commit(func(t *tx) error {
		student, ok := t.student(id)
		if !ok {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		student.Status = status
		t.putStudent(student)
		updated, _ = t.student(id)
		return nil
	})
	if err != nil {
		return models.Student{}, nil, err
	}
	return updated, changes, nil
}

// DeleteStudent removes an archived student. Sessions and entries that reference the
// student are kept as history.
func (s *Store) DeleteStudent(id string) ([]Change, error) {
	return s.commit(func(t *tx) error {
		student, ok := t.student(id)
		if !ok {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		if student.Status != models.StudentArchived {
			return appErrors.Clone(appErrors.ErrConflict, "only archived students can be deleted")
		}
		t.deleteStudent(id)
		return nil
	})
}

// AddProgress appends a skill snapshot. When rubric detail is supplied the 0-100 scores are
// derived from the rubric averages.
func (s *Store) AddProgress(studentID string, progress models.SkillProgress) (models.Student, []Change, error) {
	if !progress.ReportType.Valid() {
		return models.Student{}, nil, appErrors.Clone(appErrors.ErrValidation, "invalid report type")
	}
	if progress.Rubrics != nil {
		if category, ok := progress.Rubrics.Validate(); !ok {
			return models.Student{}, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s rubric scores must be between 1 and 4", category))
		}
		progress.Speaking = progress.Rubrics.Percent(models.SkillSpeaking)
		progress.Writing = progress.Rubrics.Percent(models.SkillWriting)
		progress.Reading = progress.Rubrics.Percent(models.SkillReading)
		progress.Listening = progress.Rubrics.Percent(models.SkillListening)
	}
	for _, category := range models.SkillCategories {
		if v := progress.Skill(category); v < 0 || v > 100 {
			return models.Student{}, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s score must be between 0 and 100", category))
		}
	}

	var updated models.Student
	changes, err := s.commit(func(t *tx) error {
		student, ok := t.student(studentID)
		if !ok {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		if progress.ID == "" {
			progress.ID = s.newID()
		}
		if progress.Date.IsZero() {
			progress.Date = t.now
		}
		student = student.Clone()
		student.ProgressHistory = append(student.ProgressHistory, progress)
		t.putStudent(student)
		updated, _ = t.student(studentID)
		return nil
	})
	if err != nil {
		return models.Student{}, nil, err
	}
	return updated, changes, nil
}

// AddSession records a lesson and charges its billable participants.
func (s *Store) AddSession(session models.Session) (models.Session, []Change, error) {
	var created models.Session
	changes, err := s.commit(func(t *tx) error {
		normalized, err := t.normalizeSession(session, nil)
		if err != nil {
			return err
		}
		normalized.ID = s.newID()
		t.applySession(normalized, Add)
		t.putSession(normalized)
		created, _ = t.session(normalized.ID)
		return nil
	})
	if err != nil {
		return models.Session{}, nil, err
	}
	return created, changes, nil
}

// UpdateSession replaces a session: the stored snapshot is reversed before the new one is applied.
func (s *Store) UpdateSession(session models.Session) (models.Session, []Change, error) {
	var updated models.Session
	changes, err := s.commit(func(t *tx) error {
		previous, ok := t.session(session.ID)
		if !ok {
			return appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		normalized, err := t.normalizeSession(session, &previous)
		if err != nil {
			return err
		}
		t.applySession(previous, Remove)
		t.applySession(normalized, Add)
		t.putSession(normalized)
		updated, _ = t.session(session.ID)
		return nil
	})
	if err != nil {
		return models.Session{}, nil, err
	}
	return updated, changes, nil
}

// DeleteSession reverses a session's charges and removes it. A second delete reports not found.
func (s *Store) DeleteSession(id string) ([]Change, error) {
	return s.commit(func(t *tx) error {
		previous, ok := t.session(id)
		if !ok {
			return appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		t.applySession(previous, Remove)
		t.deleteSession(id)
		return nil
	})
}

// RecordPayment appends a payment entry and reduces the student's balance.
func (s *Store) RecordPayment(entry models.Payment) (models.Payment, []Change, error) {
	entry.Kind = models.EntryPayment
	return s.recordEntry(entry)
}

// AdjustBalance records a manual correction. Positive amounts reduce the balance; adjustments
// never count as revenue.
func (s *Store) AdjustBalance(entry models.Payment) (models.Payment, []Change, error) {
	entry.Kind = models.EntryAdjustment
	return s.recordEntry(entry)
}

// PurchasePackage merges package credits, records the package entry and applies it in one step.
func (s *Store) PurchasePackage(studentID string, purchase PackagePurchase) (models.Student, []Change, error) {
	if err := validatePurchase(purchase); err != nil {
		return models.Student{}, nil, err
	}
	var updated models.Student
	changes, err := s.commit(func(t *tx) error {
		student, ok := t.student(studentID)
		if !ok {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		date := purchase.Date
		if date.IsZero() {
			date = t.now
		}
		note := fmt.Sprintf("[System] Purchased %d %s sessions for $%s on %s",
			purchase.Sessions, purchase.Program, purchase.Amount.StringFixed(2), date.Format("2006-01-02"))
		if student.Notes != "" {
			note = student.Notes + "\n" + note
		}
		student.Notes = note
		t.putStudent(student)
		if err := t.purchase(studentID, purchase, "package purchase"); err != nil {
			return err
		}
		updated, _ = t.student(studentID)
		return nil
	})
	if err != nil {
		return models.Student{}, nil, err
	}
	return updated, changes, nil
}

// SetFinancialOffset sets the historical revenue offset. The revision advances so that
// cached aggregates are invalidated.
func (s *Store) SetFinancialOffset(offset decimal.Decimal) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.state.Load()
	next := *current
	next.FinancialOffset = offset
	next.Revision++
	s.state.Store(&next)
	return next.Revision
}

func (s *Store) recordEntry(entry models.Payment) (models.Payment, []Change, error) {
	if entry.Amount.IsZero() {
		return models.Payment{}, nil, appErrors.Clone(appErrors.ErrValidation, "amount must not be zero")
	}
	if entry.Kind != models.EntryAdjustment && entry.Amount.IsNegative() {
		return models.Payment{}, nil, appErrors.Clone(appErrors.ErrValidation, "amount must be positive")
	}
	var created models.Payment
	changes, err := s.commit(func(t *tx) error {
		if _, ok := t.student(entry.StudentID); !ok {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		entry.ID = s.newID()
		if entry.Date.IsZero() {
			entry.Date = t.now
		}
		if entry.Method == "" {
			entry.Method = defaultMethod(entry.Kind)
		}
		created = t.applyEntry(entry)
		return nil
	})
	if err != nil {
		return models.Payment{}, nil, err
	}
	return created, changes, nil
}

// commit runs fn against a working copy of the state. On success the copy becomes the new
// snapshot and listeners are notified; on error nothing is published.
func (s *Store) commit(fn func(t *tx) error) ([]Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.state.Load()
	t := &tx{
		next: State{
			Students:        current.Students,
			Sessions:        current.Sessions,
			Payments:        current.Payments,
			FinancialOffset: current.FinancialOffset,
			Revision:        current.Revision + 1,
		},
		now:   s.now(),
		newID: s.newID,
		index: make(map[string]int),
	}
	if err := fn(t); err != nil {
		return nil, err
	}
	if len(t.changes) == 0 {
		return nil, nil
	}
	s.state.Store(&t.next)
	for _, l := range s.listeners {
		l(t.changes)
	}
	return t.changes, nil
}

// tx is the working copy of a single command. Slices are copied before the first write so
// the published snapshot is never mutated.
type tx struct {
	next    State
	now     time.Time
	newID   func() string
	changes []Change
	index   map[string]int
	copied  [3]bool
}

func (t *tx) student(id string) (models.Student, bool) {
	return t.next.Student(id)
}

func (t *tx) session(id string) (models.Session, bool) {
	return t.next.Session(id)
}

func (t *tx) putStudent(student models.Student) {
	t.ensureCopied(0)
	student.Version = t.next.Revision
	if i := indexStudent(t.next.Students, student.ID); i >= 0 {
		t.next.Students[i] = student
	} else {
		t.next.Students = append(t.next.Students, student)
	}
	snapshot := student.Clone()
	t.record(Change{Entity: EntityStudent, Op: OpUpsert, ID: student.ID, Version: student.Version, Student: &snapshot})
}

func (t *tx) deleteStudent(id string) {
	t.ensureCopied(0)
	i := indexStudent(t.next.Students, id)
	t.next.Students = append(t.next.Students[:i], t.next.Students[i+1:]...)
	t.record(Change{Entity: EntityStudent, Op: OpDelete, ID: id, Version: t.next.Revision})
}

func (t *tx) putSession(session models.Session) {
	t.ensureCopied(1)
	session.Version = t.next.Revision
	if i := indexSession(t.next.Sessions, session.ID); i >= 0 {
		t.next.Sessions[i] = session
	} else {
		t.next.Sessions = append(t.next.Sessions, session)
	}
	snapshot := session.Clone()
	t.record(Change{Entity: EntitySession, Op: OpUpsert, ID: session.ID, Version: session.Version, Session: &snapshot})
}

func (t *tx) deleteSession(id string) {
	t.ensureCopied(1)
	i := indexSession(t.next.Sessions, id)
	t.next.Sessions = append(t.next.Sessions[:i], t.next.Sessions[i+1:]...)
	t.record(Change{Entity: EntitySession, Op: OpDelete, ID: id, Version: t.next.Revision})
}

func (t *tx) putPayment(entry models.Payment) {
	t.ensureCopied(2)
	entry.Version = t.next.Revision
	t.next.Payments = append(t.next.Payments, entry)
	snapshot := entry
	t.record(Change{Entity: EntityPayment, Op: OpUpsert, ID: entry.ID, Version: entry.Version, Payment: &snapshot})
}

// applySession runs the pure engine over the working students and records the touched ones.
func (t *tx) applySession(session models.Session, dir Direction) {
	before := t.next.Students
	after := ApplySession(before, session, dir)
	for i := range after {
		if !after[i].Balance.Equal(before[i].Balance) {
			t.putStudent(after[i])
		}
	}
}

func (t *tx) applyEntry(entry models.Payment) models.Payment {
	students, _ := ApplyEntry(t.next.Students, entry)
	t.putPayment(entry)
	student := students[indexStudent(students, entry.StudentID)]
	t.putStudent(student)
	return t.next.Payments[len(t.next.Payments)-1]
}

func (t *tx) purchase(studentID string, purchase PackagePurchase, note string) error {
	student, ok := t.student(studentID)
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	t.putStudent(MergePackage(student, purchase.Program, purchase.Sessions))
	if purchase.Amount.IsZero() {
		return nil
	}
	date := purchase.Date
	if date.IsZero() {
		date = t.now
	}
	method := purchase.Method
	if method == "" {
		method = defaultMethod(models.EntryPackage)
	}
	if note == "" {
		note = "initial package"
	}
	t.applyEntry(models.Payment{
		ID:        t.newID(),
		StudentID: studentID,
		Amount:    purchase.Amount,
		Date:      date,
		Method:    method,
		Kind:      models.EntryPackage,
		Note:      fmt.Sprintf("%s: %d %s sessions", note, purchase.Sessions, purchase.Program),
	})
	return nil
}

// normalizeSession validates a session against the working state and fills defaults.
// previous is the stored snapshot when editing.
func (t *tx) normalizeSession(in models.Session, previous *models.Session) (models.Session, error) {
	session := in.Clone()
	n := len(session.StudentIDs)
	if n == 0 {
		return session, appErrors.Clone(appErrors.ErrValidation, "a session needs at least one student")
	}
	if session.Type == "" {
		session.Type = models.ProgramForParticipants(n)
	}
	if !session.Type.Valid() {
		return session, appErrors.Clone(appErrors.ErrValidation, "invalid program type")
	}
	if n > session.Type.MaxParticipants() {
		return session, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s sessions allow at most %d students", session.Type, session.Type.MaxParticipants()))
	}

	seen := make(map[string]struct{}, n)
	for _, id := range session.StudentIDs {
		if _, dup := seen[id]; dup {
			return session, appErrors.Clone(appErrors.ErrValidation, "duplicate student in session")
		}
		seen[id] = struct{}{}
		student, ok := t.student(id)
		if !ok {
			return session, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student %s not found", id))
		}
		joining := previous == nil || !previous.HasStudent(id)
		if joining && student.Status != models.StudentActive {
			return session, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("student %s is archived", student.Name))
		}
	}

	if session.Price.IsNegative() {
		return session, appErrors.Clone(appErrors.ErrValidation, "price must not be negative")
	}
	if session.DurationMinutes <= 0 {
		session.DurationMinutes = DefaultDurationMinutes
	}
	if session.Date.IsZero() {
		session.Date = t.now
	}

	entries := make(map[string]struct{}, len(session.StudentStatuses))
	for _, entry := range session.StudentStatuses {
		if !session.HasStudent(entry.StudentID) {
			return session, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("status given for non-participant %s", entry.StudentID))
		}
		if _, dup := entries[entry.StudentID]; dup {
			return session, appErrors.Clone(appErrors.ErrValidation, "duplicate student status")
		}
		entries[entry.StudentID] = struct{}{}
		if !entry.Status.Valid() {
			return session, appErrors.Clone(appErrors.ErrValidation, "invalid attendance status")
		}
		if entry.Rubrics != nil {
			if category, ok := entry.Rubrics.Validate(); !ok {
				return session, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s rubric scores must be between 1 and 4", category))
			}
		}
	}

	if session.Status == "" {
		session.Status = SummaryStatus(session.StudentStatuses)
	}
	if !session.Status.Valid() {
		return session, appErrors.Clone(appErrors.ErrValidation, "invalid attendance status")
	}
	for _, id := range session.StudentIDs {
		if _, ok := entries[id]; !ok {
			session.StudentStatuses = append(session.StudentStatuses, models.StudentSessionStatus{StudentID: id, Status: session.Status})
		}
	}
	return session, nil
}

func (t *tx) ensureCopied(slot int) {
	if t.copied[slot] {
		return
	}
	t.copied[slot] = true
	switch slot {
	case 0:
		t.next.Students = append(make([]models.Student, 0, len(t.next.Students)+1), t.next.Students...)
	case 1:
		t.next.Sessions = append(make([]models.Session, 0, len(t.next.Sessions)+1), t.next.Sessions...)
	case 2:
		t.next.Payments = append(make([]models.Payment, 0, len(t.next.Payments)+1), t.next.Payments...)
	}
}

// record keeps only the last change per entity so listeners see the final snapshot.
func (t *tx) record(c Change) {
	key := string(c.Entity) + ":" + c.ID
	if i, ok := t.index[key]; ok {
		t.changes[i] = c
		return
	}
	t.index[key] = len(t.changes)
	t.changes = append(t.changes, c)
}

// DefaultDurationMinutes is used when a session is logged without a duration.
const DefaultDurationMinutes = 60

// SummaryStatus derives the session-level status from individual outcomes. The most
// favourable outcome wins; an empty list means the lesson took place.
func SummaryStatus(statuses []models.StudentSessionStatus) models.AttendanceStatus {
	if len(statuses) == 0 {
		return models.AttendancePresent
	}
	rank := map[models.AttendanceStatus]int{
		models.AttendancePresent:   4,
		models.AttendanceLate:      3,
		models.AttendanceAbsent:    2,
		models.AttendanceCancelled: 1,
	}
	best := models.AttendanceCancelled
	for _, st := range statuses {
		if rank[st.Status] > rank[best] {
			best = st.Status
		}
	}
	return best
}

func registrationNotes(notes string, packages []PackagePurchase) string {
	var auto strings.Builder
	for _, pkg := range packages {
		if pkg.Amount.IsPositive() {
			fmt.Fprintf(&auto, "Initial Payment: $%s for %d %s sessions. ", pkg.Amount.StringFixed(2), pkg.Sessions, pkg.Program)
		}
	}
	generated := strings.TrimSpace(auto.String())
	switch {
	case generated == "":
		return notes
	case notes == "":
		return generated
	default:
		return notes + "\n" + generated
	}
}

func validatePurchase(p PackagePurchase) error {
	if !p.Program.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "invalid program type")
	}
	if p.Sessions < 0 {
		return appErrors.Clone(appErrors.ErrValidation, "session count must not be negative")
	}
	if p.Amount.IsNegative() {
		return appErrors.Clone(appErrors.ErrValidation, "amount must not be negative")
	}
	return nil
}

func normalizePrograms(in []models.ProgramType) (models.ProgramTypes, error) {
	out := make(models.ProgramTypes, 0, len(in))
	for _, p := range in {
		if !p.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid program type %q", p))
		}
		if !containsProgram(out, p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func containsProgram(list models.ProgramTypes, p models.ProgramType) bool {
	for _, existing := range list {
		if existing == p {
			return true
		}
	}
	return false
}

func defaultMethod(kind models.EntryKind) string {
	switch kind {
	case models.EntryPackage:
		return "Package"
	case models.EntryAdjustment:
		return "Adjustment"
	default:
		return "Cash"
	}
}

func indexStudent(list []models.Student, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

func indexSession(list []models.Session, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
