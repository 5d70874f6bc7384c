package directory

import (
	"context"
	"fmt"
	"time"
)

const demoSecret = "password"

func avatar(name string) string {
	return "https://ui-avatars.com/api/?name=" + name + "&background=0D8ABC&color=fff"
}

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

// Seed returns the built-in demo dataset for St. Xavier's.
func Seed() Fixture {
	users := []User{
		NewAdmin("admin1", "Admin User", "admin@xaviers.edu").
			WithImage(avatar("Admin+User")),
		NewTeacher("teacher1", "Dr. Sarah Johnson", "sjohnson@xaviers.edu", "Computer Science").
			WithImage(avatar("Sarah+Johnson")),
		NewTeacher("teacher2", "Prof. Michael Chen", "mchen@xaviers.edu", "Chemistry").
			WithImage(avatar("Michael+Chen")),
		NewStudent("student1", "Emily Rodriguez", "erodriguez@xaviers.edu", StudentProfile{
			StudentNumber: "XAV2023001",
			ClassIDs:      []string{"class1", "class2"},
			Attendance: []AttendanceRecord{
				{ClassID: "class1", Date: "2023-09-04", Status: StatusPresent},
				{ClassID: "class1", Date: "2023-09-06", Status: StatusPresent},
				{ClassID: "class1", Date: "2023-09-11", Status: StatusAbsent},
				{ClassID: "class2", Date: "2023-09-05", Status: StatusPresent},
				{ClassID: "class2", Date: "2023-09-07", Status: StatusAbsent},
			},
		}).WithImage(avatar("Emily+Rodriguez")),
		NewStudent("student2", "James Wilson", "jwilson@xaviers.edu", StudentProfile{
			StudentNumber: "XAV2023002",
			ClassIDs:      []string{"class1", "class3"},
			Attendance: []AttendanceRecord{
				{ClassID: "class1", Date: "2023-09-04", Status: StatusPresent},
				{ClassID: "class1", Date: "2023-09-06", Status: StatusPresent},
				{ClassID: "class3", Date: "2023-09-04", Status: StatusPresent},
				{ClassID: "class3", Date: "2023-09-08", Status: StatusPresent},
			},
		}).WithImage(avatar("James+Wilson")),
		NewStudent("student3", "Aisha Patel", "apatel@xaviers.edu", StudentProfile{
			StudentNumber: "XAV2023003",
			ClassIDs:      []string{"class1", "class2", "class3"},
			Attendance: []AttendanceRecord{
				{ClassID: "class1", Date: "2023-09-04", Status: StatusAbsent},
				{ClassID: "class1", Date: "2023-09-06", Status: StatusPresent},
				{ClassID: "class3", Date: "2023-09-04", Status: StatusAbsent},
			},
		}).WithImage(avatar("Aisha+Patel")),
	}

	classes := []Class{
		{
			ID:          "class1",
			Name:        "Introduction to Computer Science",
			Description: "Fundamental concepts of computer science and programming",
			SubjectCode: "CS101",
			TeacherID:   "teacher1",
			TeacherName: "Dr. Sarah Johnson",
			Schedule: []ScheduleEntry{
				{Day: "Monday", StartTime: "10:00", EndTime: "11:30", Room: "LH-101"},
				{Day: "Wednesday", StartTime: "10:00", EndTime: "11:30", Room: "LH-101"},
			},
			StudentIDs: []string{"student1", "student2", "student3"},
			ImageURL:   "https://images.unsplash.com/photo-1517694712202-14dd9538aa97",
		},
		{
			ID:          "class2",
			Name:        "Data Structures and Algorithms",
			Description: "Advanced data structures and algorithm design",
			SubjectCode: "CS201",
			TeacherID:   "teacher1",
			TeacherName: "Dr. Sarah Johnson",
			Schedule: []ScheduleEntry{
				{Day: "Tuesday", StartTime: "13:00", EndTime: "14:30", Room: "LH-204"},
				{Day: "Thursday", StartTime: "13:00", EndTime: "14:30", Room: "LH-204"},
			},
			StudentIDs: []string{"student1", "student3"},
			ImageURL:   "https://images.unsplash.com/photo-1555949963-ff9fe0c870eb",
		},
		{
			ID:          "class3",
			Name:        "Organic Chemistry",
			Description: "Study of structure, properties, and reactions of organic compounds",
			SubjectCode: "CHEM202",
			TeacherID:   "teacher2",
			TeacherName: "Prof. Michael Chen",
			Schedule: []ScheduleEntry{
				{Day: "Monday", StartTime: "14:00", EndTime: "15:30", Room: "Chem Lab 2"},
				{Day: "Friday", StartTime: "14:00", EndTime: "15:30", Room: "Chem Lab 2"},
			},
			StudentIDs: []string{"student2", "student3"},
			ImageURL:   "https://images.unsplash.com/photo-1532094349884-543bc11b234d",
		},
	}

	notes := []Note{
		{
			ID:            "note1",
			ClassID:       "class1",
			Title:         "Introduction to Programming Concepts",
			Content:       "This lecture covers the basic programming concepts including variables, data types, and control structures.",
			AttachmentURL: "https://example.com/files/intro-programming.pdf",
			CreatedAt:     at("2023-09-05T10:30:00Z"),
			UpdatedAt:     at("2023-09-05T10:30:00Z"),
		},
		{
			ID:            "note2",
			ClassID:       "class1",
			Title:         "Functions and Methods",
			Content:       "Learn about creating reusable code blocks using functions and methods.",
			AttachmentURL: "https://example.com/files/functions.pdf",
			CreatedAt:     at("2023-09-12T10:30:00Z"),
			UpdatedAt:     at("2023-09-12T10:30:00Z"),
		},
		{
			ID:            "note3",
			ClassID:       "class2",
			Title:         "Array Data Structures",
			Content:       "Understanding arrays and their operations with time complexity analysis.",
			AttachmentURL: "https://example.com/files/arrays.pdf",
			CreatedAt:     at("2023-09-07T13:30:00Z"),
			UpdatedAt:     at("2023-09-07T13:30:00Z"),
		},
		{
			ID:            "note4",
			ClassID:       "class3",
			Title:         "Alkanes and Alkenes",
			Content:       "Properties and reactions of alkanes and alkenes.",
			AttachmentURL: "https://example.com/files/alkanes.pdf",
			CreatedAt:     at("2023-09-06T14:30:00Z"),
			UpdatedAt:     at("2023-09-06T14:30:00Z"),
		},
	}

	creds := make([]Credential, 0, len(users))
	for _, u := range users {
		creds = append(creds, Credential{UserID: u.ID, Secret: demoSecret})
	}

	return Fixture{Users: users, Classes: classes, Notes: notes, Credentials: creds}
}

// Source produces the fixture a directory is built from at start-up.
type Source interface {
	Load(ctx context.Context) (Fixture, error)
}

// StaticSource serves a fixture held in memory.
type StaticSource struct {
	Fixture Fixture
}

// Load returns the held fixture.
func (s StaticSource) Load(context.Context) (Fixture, error) {
	return s.Fixture, nil
}

// Open loads the fixture from src and builds a directory from it. The
// credentials are returned alongside for the login resolver.
func Open(ctx context.Context, src Source, opts ...Option) (*Directory, []Credential, error) {
	f, err := src.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load fixture: %w", err)
	}
	d, err := New(f, opts...)
	if err != nil {
		return nil, nil, err
	}
	return d, f.Credentials, nil
}
