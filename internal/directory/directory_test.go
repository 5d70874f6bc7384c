package directory_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collegeerp/internal/directory"
)

func seeded(t *testing.T, opts ...directory.Option) *directory.Directory {
	t.Helper()
	d, err := directory.New(directory.Seed(), opts...)
	require.NoError(t, err)
	return d
}

func classIDs(cs []directory.Class) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.ID)
	}
	return out
}

func TestClassesForUser(t *testing.T) {
	d := seeded(t)

	t.Run("admin sees every class in order", func(t *testing.T) {
		assert.Equal(t, []string{"class1", "class2", "class3"}, classIDs(d.ClassesForUser("admin1")))
	})

	t.Run("teacher sees own classes", func(t *testing.T) {
		assert.Equal(t, []string{"class1", "class2"}, classIDs(d.ClassesForUser("teacher1")))
		assert.Equal(t, []string{"class3"}, classIDs(d.ClassesForUser("teacher2")))
	})

	t.Run("student sees enrolled classes", func(t *testing.T) {
		assert.Equal(t, []string{"class1", "class2"}, classIDs(d.ClassesForUser("student1")))
		assert.Equal(t, []string{"class1", "class3"}, classIDs(d.ClassesForUser("student2")))
	})

	t.Run("unknown user gets empty list", func(t *testing.T) {
		got := d.ClassesForUser("nobody")
		require.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("matches roster and teacher fields for every user", func(t *testing.T) {
		all := d.ClassesForUser("admin1")
		for _, u := range d.Users() {
			var want []string
			for _, c := range all {
				switch u.Role() {
				case directory.RoleAdmin:
					want = append(want, c.ID)
				case directory.RoleTeacher:
					if c.TeacherID == u.ID {
						want = append(want, c.ID)
					}
				case directory.RoleStudent:
					if c.Enrolled(u.ID) {
						want = append(want, c.ID)
					}
				}
			}
			assert.ElementsMatch(t, want, classIDs(d.ClassesForUser(u.ID)), u.ID)
		}
	})
}

func TestClassByIDAndNotes(t *testing.T) {
	d := seeded(t)

	c, ok := d.ClassByID("class2")
	require.True(t, ok)
	assert.Equal(t, "CS201", c.SubjectCode)

	_, ok = d.ClassByID("missing")
	assert.False(t, ok)

	notes := d.NotesForClass("class1")
	require.Len(t, notes, 2)
	assert.Equal(t, "note1", notes[0].ID)
	assert.Equal(t, "note2", notes[1].ID)

	empty := d.NotesForClass("class-with-no-notes")
	require.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestAttendanceForStudent(t *testing.T) {
	d := seeded(t)

	assert.Len(t, d.AttendanceForStudent("student1"), 5)
	assert.Empty(t, d.AttendanceForStudent("teacher1"))
	assert.Empty(t, d.AttendanceForStudent("ghost"))
	assert.NotNil(t, d.AttendanceForStudent("ghost"))
}

func TestSummary(t *testing.T) {
	t.Run("two of three rounds to 67", func(t *testing.T) {
		d := seeded(t)
		s := d.Summary("class1", "student1")
		assert.Equal(t, directory.AttendanceSummary{
			StudentID:      "student1",
			StudentName:    "Emily Rodriguez",
			TotalClasses:   3,
			PresentClasses: 2,
			Percentage:     67,
		}, s)
	})

	t.Run("unrounded policy keeps the ratio", func(t *testing.T) {
		d := seeded(t, directory.WithRounding(directory.RoundNone))
		s := d.Summary("class1", "student1")
		assert.InDelta(t, 66.6667, s.Percentage, 0.001)
	})

	t.Run("tenth policy keeps one decimal", func(t *testing.T) {
		d := seeded(t, directory.WithRounding(directory.RoundTenth))
		assert.Equal(t, 66.7, d.Summary("class1", "student1").Percentage)
	})

	t.Run("no records gives zero", func(t *testing.T) {
		d := seeded(t)
		s := d.Summary("class2", "student3")
		assert.Equal(t, 0, s.TotalClasses)
		assert.Equal(t, 0.0, s.Percentage)
		assert.Equal(t, "Aisha Patel", s.StudentName)
	})

	t.Run("unknown student falls back to sentinel name", func(t *testing.T) {
		d := seeded(t)
		s := d.Summary("class1", "ghost")
		assert.Equal(t, directory.UnknownStudent, s.StudentName)
		assert.Equal(t, "ghost", s.StudentID)
		assert.Zero(t, s.TotalClasses)
	})

	t.Run("formula holds for every student and class", func(t *testing.T) {
		d := seeded(t)
		for _, c := range d.ClassesForUser("admin1") {
			for _, u := range d.Users() {
				s := d.Summary(c.ID, u.ID)
				assert.GreaterOrEqual(t, s.Percentage, 0.0)
				assert.LessOrEqual(t, s.Percentage, 100.0)
				if s.TotalClasses == 0 {
					assert.Zero(t, s.Percentage)
					continue
				}
				want := math.Round(100 * float64(s.PresentClasses) / float64(s.TotalClasses))
				assert.Equal(t, want, s.Percentage)
			}
		}
	})

	t.Run("does not mutate records", func(t *testing.T) {
		d := seeded(t)
		before := d.AttendanceForStudent("student1")
		_ = d.Summary("class1", "student1")
		_ = d.ClassSummaries("class1")
		assert.Equal(t, before, d.AttendanceForStudent("student1"))
	})
}

func TestClassSummaries(t *testing.T) {
	d := seeded(t)

	got := d.ClassSummaries("class1")
	require.Len(t, got, 3)
	for i, sid := range []string{"student1", "student2", "student3"} {
		assert.Equal(t, d.Summary("class1", sid), got[i])
	}
	assert.Equal(t, 100.0, got[1].Percentage)
	assert.Equal(t, 50.0, got[2].Percentage)

	assert.Empty(t, d.ClassSummaries("missing"))
}

func TestReturnedSlicesAreCopies(t *testing.T) {
	d := seeded(t)

	cs := d.ClassesForUser("admin1")
	cs[0].StudentIDs[0] = "tampered"
	recs := d.AttendanceForStudent("student1")
	recs[0].Status = directory.StatusAbsent

	c, _ := d.ClassByID("class1")
	assert.Equal(t, "student1", c.StudentIDs[0])
	assert.Equal(t, directory.StatusPresent, d.AttendanceForStudent("student1")[0].Status)
}

func TestUserByEmail(t *testing.T) {
	d := seeded(t)

	u, ok := d.UserByEmail("  SJohnson@Xaviers.edu ")
	require.True(t, ok)
	assert.Equal(t, "teacher1", u.ID)

	tp, ok := u.Teacher()
	require.True(t, ok)
	assert.Equal(t, "Computer Science", tp.Department)

	_, ok = d.UserByEmail("")
	assert.False(t, ok)
}

func TestNewRejectsBrokenFixtures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *directory.Fixture)
	}{
		{
			name: "duplicate user",
			mutate: func(f *directory.Fixture) {
				f.Users = append(f.Users, directory.NewAdmin("admin1", "Again", "again@xaviers.edu"))
			},
		},
		{
			name: "roster lists a teacher",
			mutate: func(f *directory.Fixture) {
				f.Classes[0].StudentIDs = append(f.Classes[0].StudentIDs, "teacher2")
			},
		},
		{
			name: "class taught by a student",
			mutate: func(f *directory.Fixture) {
				f.Classes[0].TeacherID = "student1"
			},
		},
		{
			name: "attendance for missing class",
			mutate: func(f *directory.Fixture) {
				f.Users = append(f.Users, directory.NewStudent("student9", "X", "x@xaviers.edu", directory.StudentProfile{
					Attendance: []directory.AttendanceRecord{{ClassID: "nope", Date: "2023-09-04", Status: directory.StatusPresent}},
				}))
			},
		},
		{
			name: "roster lists a student who does not list the class",
			mutate: func(f *directory.Fixture) {
				f.Users[3] = directory.NewStudent("student1", "Emily Rodriguez", "erodriguez@xaviers.edu", directory.StudentProfile{
					StudentNumber: "XAV2023001",
					ClassIDs:      []string{"class1"},
				})
			},
		},
		{
			name: "student lists a class whose roster omits them",
			mutate: func(f *directory.Fixture) {
				f.Users[4] = directory.NewStudent("student2", "James Wilson", "jwilson@xaviers.edu", directory.StudentProfile{
					StudentNumber: "XAV2023002",
					ClassIDs:      []string{"class1", "class2", "class3"},
				})
			},
		},
		{
			name: "note for missing class",
			mutate: func(f *directory.Fixture) {
				f.Notes[0].ClassID = "nope"
			},
		},
		{
			name: "credential for missing user",
			mutate: func(f *directory.Fixture) {
				f.Credentials = append(f.Credentials, directory.Credential{UserID: "ghost", Secret: "x"})
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := directory.Seed()
			tt.mutate(&f)
			_, err := directory.New(f)
			assert.ErrorIs(t, err, directory.ErrInvalidFixture)
		})
	}
}

func TestUserJSON(t *testing.T) {
	d := seeded(t)
	u, ok := d.UserByID("student1")
	require.True(t, ok)

	raw, err := json.Marshal(u)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"role":"student"`)
	assert.Contains(t, string(raw), `"studentId":"XAV2023001"`)
	assert.NotContains(t, string(raw), "password")

	var back directory.User
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, u, back)

	assert.Error(t, json.Unmarshal([]byte(`{"id":"x","role":"janitor"}`), &back))
}

func TestParseRounding(t *testing.T) {
	r, err := directory.ParseRounding("")
	require.NoError(t, err)
	assert.Equal(t, directory.RoundNearest, r)

	r, err = directory.ParseRounding(" Tenth ")
	require.NoError(t, err)
	assert.Equal(t, directory.RoundTenth, r)

	_, err = directory.ParseRounding("floor")
	assert.Error(t, err)
}

func TestWithRoundingIgnoresUnknownPolicy(t *testing.T) {
	d := seeded(t, directory.WithRounding("floor"))
	assert.Equal(t, directory.RoundNearest, d.Rounding())
	assert.Equal(t, 67.0, d.Summary("class1", "student1").Percentage)

	assert.Equal(t, directory.RoundTenth, seeded(t, directory.WithRounding(directory.RoundTenth)).Rounding())
}

func TestEnrollmentAgreesWithRosters(t *testing.T) {
	d := seeded(t)
	for _, u := range d.Students("") {
		p, _ := u.Student()
		assert.Equal(t, p.ClassIDs, classIDs(d.ClassesForUser(u.ID)), u.ID)
	}
}

func TestStudents(t *testing.T) {
	d := seeded(t)

	ids := func(us []directory.User) []string {
		out := []string{}
		for _, u := range us {
			out = append(out, u.ID)
		}
		return out
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"student1", "student2", "student3"}},
		{"  ", []string{"student1", "student2", "student3"}},
		{"emily", []string{"student1"}},
		{"PATEL", []string{"student3"}},
		{"xav2023002", []string{"student2"}},
		{"johnson", []string{}},
		{"nobody", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(d.Students(tt.query)))
		})
	}
}

func TestFaculty(t *testing.T) {
	d := seeded(t)

	tests := []struct {
		query   string
		want    []string
		classes [][]string
	}{
		{"", []string{"teacher1", "teacher2"}, [][]string{{"class1", "class2"}, {"class3"}}},
		{"chem", []string{"teacher2"}, [][]string{{"class3"}}},
		{"sarah", []string{"teacher1"}, [][]string{{"class1", "class2"}}},
		{"emily", []string{}, [][]string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := d.Faculty(tt.query)
			ids := []string{}
			classes := [][]string{}
			for _, m := range got {
				ids = append(ids, m.User.ID)
				classes = append(classes, classIDs(m.Classes))
			}
			assert.Equal(t, tt.want, ids)
			assert.Equal(t, tt.classes, classes)
		})
	}
}
