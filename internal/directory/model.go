package directory

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// Role identifies what a user may see in the ERP.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// AttendanceStatus is the outcome recorded for one class meeting.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
	StatusAbsent  AttendanceStatus = "absent"
)

// AttendanceRecord is one class meeting for the student that owns it.
type AttendanceRecord struct {
	ClassID string           `json:"classId"`
	Date    string           `json:"date"`
	Status  AttendanceStatus `json:"status"`
}

// Profile carries the role-specific part of a user.
type Profile interface {
	Role() Role
}

// AdminProfile has no extra fields.
type AdminProfile struct{}

func (AdminProfile) Role() Role { return RoleAdmin }

// TeacherProfile is the profile of a faculty member.
type TeacherProfile struct {
	Department string
}

func (TeacherProfile) Role() Role { return RoleTeacher }

// StudentProfile holds enrollment and the student's own attendance history.
type StudentProfile struct {
	StudentNumber string
	ClassIDs      []string
	Attendance    []AttendanceRecord
}

func (StudentProfile) Role() Role { return RoleStudent }

func (p StudentProfile) clone() StudentProfile {
	return StudentProfile{
		StudentNumber: p.StudentNumber,
		ClassIDs:      slices.Clone(p.ClassIDs),
		Attendance:    slices.Clone(p.Attendance),
	}
}

// User is an identity record. The role is fixed by the profile the user was
// built with and cannot change afterwards.
type User struct {
	ID       string
	Name     string
	Email    string
	ImageURL string
	profile  Profile
}

// NewAdmin builds an administrator.
func NewAdmin(id, name, email string) User {
	return User{ID: id, Name: name, Email: email, profile: AdminProfile{}}
}

// NewTeacher builds a faculty member.
func NewTeacher(id, name, email, department string) User {
	return User{ID: id, Name: name, Email: email, profile: TeacherProfile{Department: department}}
}

// NewStudent builds a student with enrollment and attendance history.
func NewStudent(id, name, email string, p StudentProfile) User {
	return User{ID: id, Name: name, Email: email, profile: p.clone()}
}

// WithImage returns a copy of u with an avatar URL.
func (u User) WithImage(url string) User {
	u.ImageURL = url
	return u
}

// Role returns the user's role, or "" for a zero User.
func (u User) Role() Role {
	if u.profile == nil {
		return ""
	}
	return u.profile.Role()
}

// Teacher returns the teacher profile when the user is a teacher.
func (u User) Teacher() (TeacherProfile, bool) {
	p, ok := u.profile.(TeacherProfile)
	return p, ok
}

// Student returns a copy of the student profile when the user is a student.
func (u User) Student() (StudentProfile, bool) {
	p, ok := u.profile.(StudentProfile)
	if !ok {
		return StudentProfile{}, false
	}
	return p.clone(), true
}

func (u User) clone() User {
	if p, ok := u.profile.(StudentProfile); ok {
		u.profile = p.clone()
	}
	return u
}

type userJSON struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Email         string             `json:"email"`
	Role          Role               `json:"role"`
	ImageURL      string             `json:"imageUrl,omitempty"`
	Department    string             `json:"department,omitempty"`
	StudentNumber string             `json:"studentId,omitempty"`
	ClassIDs      []string           `json:"classIds,omitempty"`
	Attendance    []AttendanceRecord `json:"attendance,omitempty"`
}

// MarshalJSON flattens the profile into the user object.
func (u User) MarshalJSON() ([]byte, error) {
	out := userJSON{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role(), ImageURL: u.ImageURL}
	switch p := u.profile.(type) {
	case TeacherProfile:
		out.Department = p.Department
	case StudentProfile:
		out.StudentNumber = p.StudentNumber
		out.ClassIDs = p.ClassIDs
		out.Attendance = p.Attendance
	}
	return json.Marshal(out)
}

// UnmarshalJSON rebuilds the profile from the role field.
func (u *User) UnmarshalJSON(data []byte) error {
	var in userJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	var built User
	switch in.Role {
	case RoleAdmin:
		built = NewAdmin(in.ID, in.Name, in.Email)
	case RoleTeacher:
		built = NewTeacher(in.ID, in.Name, in.Email, in.Department)
	case RoleStudent:
		built = NewStudent(in.ID, in.Name, in.Email, StudentProfile{
			StudentNumber: in.StudentNumber,
			ClassIDs:      in.ClassIDs,
			Attendance:    in.Attendance,
		})
	default:
		return fmt.Errorf("unknown role %q", in.Role)
	}
	*u = built.WithImage(in.ImageURL)
	return nil
}

// ScheduleEntry is one weekly meeting slot.
type ScheduleEntry struct {
	Day       string `json:"day"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Room      string `json:"room,omitempty"`
}

// Class is a course section with its teacher and roster.
type Class struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	SubjectCode string          `json:"subjectCode"`
	TeacherID   string          `json:"teacherId"`
	TeacherName string          `json:"teacherName"`
	Schedule    []ScheduleEntry `json:"schedule"`
	StudentIDs  []string        `json:"studentIds"`
	ImageURL    string          `json:"imageUrl,omitempty"`
}

func (c Class) clone() Class {
	c.Schedule = slices.Clone(c.Schedule)
	c.StudentIDs = slices.Clone(c.StudentIDs)
	return c
}

// Enrolled reports whether studentID is on the roster.
func (c Class) Enrolled(studentID string) bool {
	return slices.Contains(c.StudentIDs, studentID)
}

// Note is course material attached to a class.
type Note struct {
	ID            string    `json:"id"`
	ClassID       string    `json:"classId"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	AttachmentURL string    `json:"fileUrl,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// AttendanceSummary is computed on read and never stored.
type AttendanceSummary struct {
	StudentID      string  `json:"studentId"`
	StudentName    string  `json:"studentName"`
	TotalClasses   int     `json:"totalClasses"`
	PresentClasses int     `json:"presentClasses"`
	Percentage     float64 `json:"percentage"`
}

// Credential is a login secret for a fixture user. It lives beside the
// directory, never on the User itself.
type Credential struct {
	UserID string
	Secret string
}

// Fixture is the full dataset a directory is built from.
type Fixture struct {
	Users       []User
	Classes     []Class
	Notes       []Note
	Credentials []Credential
}
