package directory

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// UnknownStudent is the name reported for a summary whose student id does not
// resolve.
const UnknownStudent = "Unknown Student"

// ErrInvalidFixture is returned by New when the dataset breaks a referential
// rule.
var ErrInvalidFixture = errors.New("invalid fixture")

// Directory is the read-only store of users, classes and notes. It is built
// once and is safe for concurrent use since nothing writes after New.
type Directory struct {
	users        []User
	userIndex    map[string]int
	classes      []Class
	classIndex   map[string]int
	notesByClass map[string][]Note
	rounding     Rounding
}

// Option configures a Directory.
type Option func(*Directory)

// WithRounding selects the percentage rounding policy. Unknown policies are
// ignored and RoundNearest stays in effect.
func WithRounding(r Rounding) Option {
	return func(d *Directory) {
		switch r {
		case RoundNearest, RoundTenth, RoundNone:
			d.rounding = r
		}
	}
}

// New validates the fixture and builds a directory over private copies of it.
func New(f Fixture, opts ...Option) (*Directory, error) {
	d := &Directory{
		userIndex:    make(map[string]int, len(f.Users)),
		classIndex:   make(map[string]int, len(f.Classes)),
		notesByClass: make(map[string][]Note),
		rounding:     RoundNearest,
	}
	for _, opt := range opts {
		opt(d)
	}

	for _, u := range f.Users {
		if u.ID == "" {
			return nil, fmt.Errorf("%w: user without id", ErrInvalidFixture)
		}
		if u.Role() == "" {
			return nil, fmt.Errorf("%w: user %s has no role", ErrInvalidFixture, u.ID)
		}
		if _, dup := d.userIndex[u.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate user %s", ErrInvalidFixture, u.ID)
		}
		d.userIndex[u.ID] = len(d.users)
		d.users = append(d.users, u.clone())
	}

	for _, c := range f.Classes {
		if _, dup := d.classIndex[c.ID]; dup || c.ID == "" {
			return nil, fmt.Errorf("%w: duplicate or empty class id %q", ErrInvalidFixture, c.ID)
		}
		if t, ok := d.UserByID(c.TeacherID); !ok || t.Role() != RoleTeacher {
			return nil, fmt.Errorf("%w: class %s teacher %s is not a teacher", ErrInvalidFixture, c.ID, c.TeacherID)
		}
		for _, sid := range c.StudentIDs {
			s, ok := d.UserByID(sid)
			if !ok || s.Role() != RoleStudent {
				return nil, fmt.Errorf("%w: class %s lists %s who is not a student", ErrInvalidFixture, c.ID, sid)
			}
			if p, _ := s.Student(); !slices.Contains(p.ClassIDs, c.ID) {
				return nil, fmt.Errorf("%w: class %s lists %s who is not enrolled in it", ErrInvalidFixture, c.ID, sid)
			}
		}
		d.classIndex[c.ID] = len(d.classes)
		d.classes = append(d.classes, c.clone())
	}

	for _, u := range d.users {
		p, ok := u.Student()
		if !ok {
			continue
		}
		for _, cid := range p.ClassIDs {
			i, ok := d.classIndex[cid]
			if !ok {
				return nil, fmt.Errorf("%w: student %s enrolled in unknown class %s", ErrInvalidFixture, u.ID, cid)
			}
			if !d.classes[i].Enrolled(u.ID) {
				return nil, fmt.Errorf("%w: student %s lists class %s but is not on its roster", ErrInvalidFixture, u.ID, cid)
			}
		}
		for _, rec := range p.Attendance {
			if _, ok := d.classIndex[rec.ClassID]; !ok {
				return nil, fmt.Errorf("%w: student %s has attendance for unknown class %s", ErrInvalidFixture, u.ID, rec.ClassID)
			}
			if rec.Status != StatusPresent && rec.Status != StatusAbsent {
				return nil, fmt.Errorf("%w: student %s has attendance status %q", ErrInvalidFixture, u.ID, rec.Status)
			}
			if _, err := time.Parse(time.DateOnly, rec.Date); err != nil {
				return nil, fmt.Errorf("%w: student %s attendance date: %v", ErrInvalidFixture, u.ID, err)
			}
		}
	}

	seenNotes := make(map[string]struct{}, len(f.Notes))
	for _, n := range f.Notes {
		if _, dup := seenNotes[n.ID]; dup || n.ID == "" {
			return nil, fmt.Errorf("%w: duplicate or empty note id %q", ErrInvalidFixture, n.ID)
		}
		if _, ok := d.classIndex[n.ClassID]; !ok {
			return nil, fmt.Errorf("%w: note %s belongs to unknown class %s", ErrInvalidFixture, n.ID, n.ClassID)
		}
		seenNotes[n.ID] = struct{}{}
		d.notesByClass[n.ClassID] = append(d.notesByClass[n.ClassID], n)
	}

	for _, cr := range f.Credentials {
		if _, ok := d.userIndex[cr.UserID]; !ok {
			return nil, fmt.Errorf("%w: credential for unknown user %s", ErrInvalidFixture, cr.UserID)
		}
	}

	return d, nil
}

// Rounding reports the percentage policy in effect.
func (d *Directory) Rounding() Rounding { return d.rounding }

// Users returns every user in fixture order.
func (d *Directory) Users() []User {
	out := make([]User, len(d.users))
	for i, u := range d.users {
		out[i] = u.clone()
	}
	return out
}

// UserByID looks a user up by id.
func (d *Directory) UserByID(id string) (User, bool) {
	i, ok := d.userIndex[id]
	if !ok {
		return User{}, false
	}
	return d.users[i].clone(), true
}

// UserByEmail looks a user up by email, ignoring case and surrounding spaces.
func (d *Directory) UserByEmail(email string) (User, bool) {
	email = strings.TrimSpace(email)
	if email == "" {
		return User{}, false
	}
	for _, u := range d.users {
		if strings.EqualFold(u.Email, email) {
			return u.clone(), true
		}
	}
	return User{}, false
}

// ClassesForUser returns the classes visible to the user in fixture order:
// all of them for an admin, the ones they teach for a teacher and the ones
// they are enrolled in for a student. Unknown ids get an empty list.
func (d *Directory) ClassesForUser(userID string) []Class {
	u, ok := d.UserByID(userID)
	if !ok {
		return []Class{}
	}
	out := make([]Class, 0, len(d.classes))
	for _, c := range d.classes {
		var visible bool
		switch u.Role() {
		case RoleAdmin:
			visible = true
		case RoleTeacher:
			visible = c.TeacherID == userID
		case RoleStudent:
			visible = c.Enrolled(userID)
		}
		if visible {
			out = append(out, c.clone())
		}
	}
	return out
}

// ClassByID looks a class up by id.
func (d *Directory) ClassByID(classID string) (Class, bool) {
	i, ok := d.classIndex[classID]
	if !ok {
		return Class{}, false
	}
	return d.classes[i].clone(), true
}

// NotesForClass returns the class notes, empty when the class is unknown or
// has none.
func (d *Directory) NotesForClass(classID string) []Note {
	return append([]Note{}, d.notesByClass[classID]...)
}

// AttendanceForStudent returns the student's records. Unknown users and
// non-students get an empty list.
func (d *Directory) AttendanceForStudent(studentID string) []AttendanceRecord {
	u, ok := d.UserByID(studentID)
	if !ok {
		return []AttendanceRecord{}
	}
	p, ok := u.Student()
	if !ok || p.Attendance == nil {
		return []AttendanceRecord{}
	}
	return p.Attendance
}

// Summary computes the attendance summary of one student in one class.
func (d *Directory) Summary(classID, studentID string) AttendanceSummary {
	s := AttendanceSummary{StudentID: studentID, StudentName: UnknownStudent}
	if u, ok := d.UserByID(studentID); ok && u.Name != "" {
		s.StudentName = u.Name
	}
	for _, rec := range d.AttendanceForStudent(studentID) {
		if rec.ClassID != classID {
			continue
		}
		s.TotalClasses++
		if rec.Status == StatusPresent {
			s.PresentClasses++
		}
	}
	s.Percentage = d.rounding.Percentage(s.PresentClasses, s.TotalClasses)
	return s
}

// ClassSummaries computes Summary for every enrolled student, in roster
// order. An unknown class yields an empty list.
func (d *Directory) ClassSummaries(classID string) []AttendanceSummary {
	c, ok := d.ClassByID(classID)
	if !ok {
		return []AttendanceSummary{}
	}
	out := make([]AttendanceSummary, 0, len(c.StudentIDs))
	for _, sid := range c.StudentIDs {
		out = append(out, d.Summary(classID, sid))
	}
	return out
}

// CanView reports whether the user may open the class: admins see every
// class, teachers their own and students the ones they attend.
func (d *Directory) CanView(userID, classID string) bool {
	return slices.ContainsFunc(d.ClassesForUser(userID), func(c Class) bool { return c.ID == classID })
}

// Students returns the students whose name or student number contains query,
// ignoring case. An empty query matches everyone.
func (d *Directory) Students(query string) []User {
	q := strings.ToLower(strings.TrimSpace(query))
	out := []User{}
	for _, u := range d.users {
		p, ok := u.Student()
		if !ok {
			continue
		}
		if q == "" || containsFold(u.Name, q) || containsFold(p.StudentNumber, q) {
			out = append(out, u.clone())
		}
	}
	return out
}

// FacultyMember is a teacher together with the classes they teach.
type FacultyMember struct {
	User    User    `json:"user"`
	Classes []Class `json:"classes"`
}

// Faculty returns the teachers whose name or department contains query,
// ignoring case, each with their classes.
func (d *Directory) Faculty(query string) []FacultyMember {
	q := strings.ToLower(strings.TrimSpace(query))
	out := []FacultyMember{}
	for _, u := range d.users {
		p, ok := u.Teacher()
		if !ok {
			continue
		}
		if q == "" || containsFold(u.Name, q) || containsFold(p.Department, q) {
			out = append(out, FacultyMember{User: u.clone(), Classes: d.ClassesForUser(u.ID)})
		}
	}
	return out
}

func containsFold(s, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(s), lowerQuery)
}
