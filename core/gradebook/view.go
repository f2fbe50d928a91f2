// Package gradebook keeps the grades of a mounted view in sync with the remote grade store.
//
// A View loads grades through a grade.Gateway, keeps them in a Cache, derives the displayed
// grades with the projection functions and reloads whenever a grade event is published on the
// bus or the auto-refresh timer ticks.
package gradebook

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/events"
	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/core/refresh"
)

var (
	ErrInFlight     = errors.New("operation already in progress")
	ErrNotConfirmed = errors.New("deletion not confirmed")
	ErrClosed       = errors.New("view closed")
)

// Op names a mutation of the view.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

func (op Op) key(id int) string {
	if op == OpCreate {
		return string(op)
	}
	return string(op) + ":" + strconv.Itoa(id)
}

// Confirmer asks the user to confirm a destructive operation.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

type ConfirmFunc func(ctx context.Context, prompt string) bool

func (fn ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return fn(ctx, prompt) }

type (
	Deps struct {
		Gateway    grade.Gateway // required
		Bus        *events.Bus   // events.Default() when nil
		Notifier   core.Notifier
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Clock      clock.Clock
		Locale     string
	}

	Options struct {
		Query           grade.QueryFilter
		AutoRefresh     bool
		RefreshInterval time.Duration
	}
)

type View struct {
	gateway    grade.Gateway
	bus        *events.Bus
	notifier   core.Notifier
	logger     core.Logger
	validate   *validator.Validate
	translator ut.Translator
	locale     string

	cache  *Cache
	timer  *refresh.Timer
	unsubs []func()

	ctx    context.Context
	cancel context.CancelFunc

	closeMu sync.RWMutex
	closed  bool

	mu       sync.Mutex
	query    grade.QueryFilter
	filter   LocalFilter
	sort     Sort
	students []grade.EnrolledStudent
	inflight map[string]bool
	onChange func()
}

// NewView mounts a view: it subscribes to the grade events and starts the auto-refresh timer.
// It does not load anything; call Load.
func NewView(deps Deps, opts Options) (*View, error) {
	if deps.Gateway == nil {
		return nil, errors.New("gradebook: a gateway is required")
	}
	if deps.Bus == nil {
		deps.Bus = events.Default()
	}
	if deps.Notifier == nil {
		deps.Notifier = core.NotifierFunc(func(string, core.NotificationLevel) {})
	}
	if deps.Logger == nil {
		deps.Logger = core.NopLogger()
	}
	if deps.Translator == nil {
		deps.Translator = core.NewTranslator()
	}
	if deps.Validate == nil {
		deps.Validate = validator.New()
		core.InitValidators(deps.Validate, deps.Translator)
		grade.InitValidators(deps.Validate, deps.Translator)
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Locale == "" {
		deps.Locale = DefaultLocale
	}

	opts.Query.Clean()
	ctx, cancel := context.WithCancel(context.Background())
	v := &View{
		gateway:    deps.Gateway,
		bus:        deps.Bus,
		notifier:   deps.Notifier,
		logger:     deps.Logger,
		validate:   deps.Validate,
		translator: deps.Translator,
		locale:     deps.Locale,
		cache:      NewCache(),
		ctx:        ctx,
		cancel:     cancel,
		query:      opts.Query,
		sort:       Sort{Locale: deps.Locale},
		inflight:   make(map[string]bool),
	}

	for _, name := range []events.Name{events.GradeCreatedEvent, events.GradeUpdatedEvent, events.GradeDeletedEvent} {
		v.unsubs = append(v.unsubs, v.bus.Subscribe(name, v.handleEvent))
	}
	v.timer = refresh.New(
		refresh.Config{
			Interval:  opts.RefreshInterval,
			Enabled:   opts.AutoRefresh,
			OnRefresh: v.reload,
		},
		refresh.WithClock(deps.Clock),
		refresh.WithLogger(deps.Logger),
	)
	return v, nil
}

// Close unmounts the view. Calls resolving afterwards leave its state untouched.
// It is safe to call more than once.
func (v *View) Close() {
	v.closeMu.Lock()
	if v.closed {
		v.closeMu.Unlock()
		return
	}
	v.closed = true
	v.closeMu.Unlock()

	for _, unsub := range v.unsubs {
		unsub()
	}
	v.cancel()
	v.timer.Stop()
}

func (v *View) IsClosed() bool {
	v.closeMu.RLock()
	defer v.closeMu.RUnlock()
	return v.closed
}

// Load replaces the cached grades with the ones matching the current query.
// On failure the cache is left untouched.
func (v *View) Load(ctx context.Context) error {
	if v.IsClosed() {
		return ErrClosed
	}
	ctx, cancel := v.scope(ctx)
	defer cancel()

	query := v.Query()
	ticket := v.cache.BeginLoad()
	grades, err := v.gateway.FetchGrades(ctx, query)
	if err != nil {
		if !v.apply(func() { v.notify("Failed to load grades: "+message(err), core.LevelError) }) {
			return ErrClosed
		}
		return errors.Wrap(err, "gradebook: load")
	}
	for _, g := range grades {
		v.checkShape(g)
	}

	var replaced bool
	if !v.apply(func() { replaced = v.cache.Replace(ticket, grades) }) {
		return ErrClosed
	}
	if replaced {
		v.changed()
	}
	return nil
}

func (v *View) reload(ctx context.Context) error {
	if err := v.Load(ctx); err != nil && !errors.Is(err, ErrClosed) {
		return err
	}
	return nil
}

func (v *View) handleEvent(events.Event) error {
	return v.reload(v.ctx)
}

func (v *View) Query() grade.QueryFilter {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.query
}

// SetQuery changes the server side filters then reloads.
func (v *View) SetQuery(ctx context.Context, query grade.QueryFilter) error {
	query.Clean()
	v.mu.Lock()
	v.query = query
	v.mu.Unlock()
	return v.Load(ctx)
}

// Grades returns a copy of the cached grades.
func (v *View) Grades() []grade.Grade {
	return v.cache.Grades()
}

func (v *View) Get(id int) (grade.Grade, bool) {
	return v.cache.Get(id)
}

// Loaded reports whether grades have been loaded at least once.
func (v *View) Loaded() bool {
	return v.cache.Loaded()
}

// Visible returns the cached grades filtered and sorted with the local criteria.
func (v *View) Visible() []grade.Grade {
	v.mu.Lock()
	f, s := v.filter, v.sort
	v.mu.Unlock()
	return Project(v.cache.Grades(), f, s)
}

func (v *View) LocalFilter() LocalFilter {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filter
}

func (v *View) SetLocalFilter(f LocalFilter) {
	v.mu.Lock()
	v.filter = f
	v.mu.Unlock()
	v.changed()
}

func (v *View) SetSort(s Sort) {
	if s.Locale == "" {
		s.Locale = v.locale
	}
	v.mu.Lock()
	v.sort = s
	v.mu.Unlock()
	v.changed()
}

// OnChange registers fn to be called whenever the visible grades may have changed.
// fn may run on the refresh timer goroutine and must not call Close.
func (v *View) OnChange(fn func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onChange = fn
}

func (v *View) SetAutoRefresh(enabled bool) {
	v.timer.SetEnabled(enabled && !v.IsClosed())
}

func (v *View) SetRefreshInterval(d time.Duration) {
	v.timer.SetInterval(d)
}

func (v *View) AutoRefresh() bool {
	return v.timer.Enabled()
}

// LoadStudents fetches the students the current instructor can grade.
func (v *View) LoadStudents(ctx context.Context) ([]grade.EnrolledStudent, error) {
	if v.IsClosed() {
		return nil, ErrClosed
	}
	ctx, cancel := v.scope(ctx)
	defer cancel()

	students, err := v.gateway.FetchStudents(ctx)
	if err != nil {
		v.apply(func() { v.notify("Failed to load students: "+message(err), core.LevelError) })
		return nil, errors.Wrap(err, "gradebook: load students")
	}
	for i := range students {
		students[i] = students[i].Normalize()
	}
	if !v.apply(func() {
		v.mu.Lock()
		v.students = students
		v.mu.Unlock()
	}) {
		return nil, ErrClosed
	}
	return v.Students(), nil
}

// Students returns a copy of the loaded students.
func (v *View) Students() []grade.EnrolledStudent {
	v.mu.Lock()
	defer v.mu.Unlock()

	res := make([]grade.EnrolledStudent, len(v.students))
	copy(res, v.students)
	return res
}

// Pending reports whether op is running on the grade matching id (ignored for OpCreate).
func (v *View) Pending(op Op, id int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.inflight[op.key(id)]
}

// ValidateNew checks ng, including the student/subject pairing when students are loaded.
// It returns a *core.ValidationError.
func (v *View) ValidateNew(ng *grade.NewGrade) error {
	if err := ng.Validate(v.validate); err != nil {
		return core.TranslateValidation(err, v.translator)
	}

	students := v.Students()
	if len(students) == 0 {
		return nil
	}
	student, ok := grade.FindStudent(students, ng.StudentID)
	if !ok {
		return core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: grade.ErrStudentNotFound.Error()})
	}
	if !student.IsEnrolledIn(ng.Subject) {
		msg := "student is not enrolled in " + ng.Subject
		if subjects := grade.SubjectsOf([]grade.EnrolledStudent{student}); len(subjects) > 0 {
			msg += " (enrolled in: " + strings.Join(subjects, ", ") + ")"
		}
		return core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: msg})
	}
	return nil
}

// Create validates then creates a grade. Invalid grades never reach the gateway.
// On success, a GRADE_CREATED event reloads every mounted view, this one included.
func (v *View) Create(ctx context.Context, ng grade.NewGrade) (grade.Grade, error) {
	if err := v.ValidateNew(&ng); err != nil {
		return grade.Grade{}, err
	}
	release, err := v.begin(OpCreate, 0)
	if err != nil {
		return grade.Grade{}, err
	}
	defer release()

	ctx, cancel := v.scope(ctx)
	defer cancel()

	grd, err := v.gateway.CreateGrade(ctx, ng)
	if err != nil {
		v.apply(func() {
			v.notify(fmt.Sprintf("Failed to create grade for %s: %s", v.studentName(ng.StudentID), message(err)), core.LevelError)
		})
		return grade.Grade{}, errors.Wrap(err, "gradebook: create")
	}
	v.checkShape(grd)
	v.apply(func() { v.notify("Grade created successfully", core.LevelSuccess) })

	v.bus.Publish(events.GradeCreated{StudentID: grd.Student.ID})
	return grd, nil
}

// Update patches the cached grade right away, then asks the gateway to save ug.
// If the gateway fails, the grade is rolled back to its exact previous value.
func (v *View) Update(ctx context.Context, id int, ug grade.UpdateGrade) (grade.Grade, error) {
	orig, ok := v.cache.Get(id)
	if !ok {
		err := errors.Wrapf(grade.ErrNotFound, "gradebook: update #%d", id)
		v.apply(func() {
			v.notify(fmt.Sprintf("Failed to update grade #%d: %s", id, grade.ErrNotFound), core.LevelError)
		})
		return grade.Grade{}, err
	}
	if err := ug.Validate(orig); err != nil {
		return grade.Grade{}, err
	}
	release, err := v.begin(OpUpdate, id)
	if err != nil {
		return grade.Grade{}, err
	}
	defer release()

	var prev grade.Grade
	var patched bool
	if !v.apply(func() { prev, patched = v.cache.Patch(id, ug) }) {
		return grade.Grade{}, ErrClosed
	}
	if patched {
		v.changed()
	}

	ctx, cancel := v.scope(ctx)
	defer cancel()

	grd, err := v.gateway.UpdateGrade(ctx, id, ug)
	if err != nil {
		if v.apply(func() {
			if patched {
				v.cache.Restore(prev)
			}
			v.notify(fmt.Sprintf("Failed to update grade for %s: %s", orig.Student.Name, message(err)), core.LevelError)
		}) {
			v.changed()
		}
		return grade.Grade{}, errors.Wrap(err, "gradebook: update")
	}

	v.checkShape(grd)
	if v.apply(func() {
		v.cache.Settle(grd)
		v.notify("Grade updated successfully", core.LevelSuccess)
	}) {
		v.changed()
	}

	v.bus.Publish(events.GradeUpdated{GradeID: grd.ID, StudentID: grd.Student.ID})
	return grd, nil
}

// Delete removes a grade once confirmer confirms it. A nil confirmer never confirms.
func (v *View) Delete(ctx context.Context, id int, confirmer Confirmer) error {
	release, err := v.begin(OpDelete, id)
	if err != nil {
		return err
	}
	defer release()

	prompt := "Delete grade #" + strconv.Itoa(id) + "?"
	studentName := "grade #" + strconv.Itoa(id)
	if g, ok := v.cache.Get(id); ok {
		prompt = fmt.Sprintf("Delete the %s grade of %s in %s?", g.Type(), g.Student.Name, g.Subject)
		studentName = g.Student.Name
	}
	if confirmer == nil || !confirmer.Confirm(ctx, prompt) {
		return ErrNotConfirmed
	}

	ctx, cancel := v.scope(ctx)
	defer cancel()

	if err = v.gateway.DeleteGrade(ctx, id); err != nil {
		v.apply(func() {
			v.notify(fmt.Sprintf("Failed to delete grade for %s: %s", studentName, message(err)), core.LevelError)
		})
		return errors.Wrap(err, "gradebook: delete")
	}

	if v.apply(func() {
		v.cache.Remove(id)
		v.notify("Grade deleted successfully", core.LevelSuccess)
	}) {
		v.changed()
	}

	v.bus.Publish(events.GradeDeleted{GradeID: id})
	return nil
}

// apply runs fn unless the view is closed, and reports whether it ran.
func (v *View) apply(fn func()) bool {
	v.closeMu.RLock()
	defer v.closeMu.RUnlock()

	if v.closed {
		return false
	}
	fn()
	return true
}

// scope returns a copy of ctx also cancelled when the view closes.
func (v *View) scope(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(v.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (v *View) begin(op Op, id int) (release func(), err error) {
	key := op.key(id)

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.inflight[key] {
		return nil, ErrInFlight
	}
	v.inflight[key] = true
	return func() {
		v.mu.Lock()
		delete(v.inflight, key)
		v.mu.Unlock()
	}, nil
}

func (v *View) changed() {
	v.mu.Lock()
	fn := v.onChange
	v.mu.Unlock()

	if fn != nil && !v.IsClosed() {
		fn()
	}
}

func (v *View) notify(msg string, level core.NotificationLevel) {
	v.notifier.Notify(msg, level)
}

func (v *View) studentName(id int) string {
	if s, ok := grade.FindStudent(v.Students(), id); ok {
		return s.Name
	}
	return "student #" + strconv.Itoa(id)
}

// checkShape logs grades breaking the record invariants; they are kept as received.
func (v *View) checkShape(g grade.Grade) {
	if !g.IsWellFormed() {
		v.logger.Warn("gradebook: unexpected grade shape", map[string]interface{}{
			"grade":           g.String(),
			"score":           g.Score,
			"max_score":       g.MaxScore,
			"assignment_type": g.AssignmentType,
			"exam_type":       g.ExamType,
		})
	}
}

// message returns the human readable part of a gateway error.
func message(err error) string {
	return errors.Cause(err).Error()
}
