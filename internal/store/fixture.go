package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"collegeerp/internal/directory"
)

// PostgresSource reads the directory fixture from the tables created by
// migrations/0001_directory.sql. It runs once at start-up.
type PostgresSource struct {
	DB *sql.DB
}

type userRow struct {
	id, name, email, role    string
	image, dept, num, secret sql.NullString
}

// Load implements directory.Source.
func (s PostgresSource) Load(ctx context.Context) (directory.Fixture, error) {
	var f directory.Fixture

	enrollments, err := s.enrollments(ctx)
	if err != nil {
		return f, err
	}
	records, err := s.attendance(ctx)
	if err != nil {
		return f, err
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, name, email, role, image_url, department, student_number, password
		FROM users
		ORDER BY position, id
	`)
	if err != nil {
		return f, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r userRow
		if err := rows.Scan(&r.id, &r.name, &r.email, &r.role, &r.image, &r.dept, &r.num, &r.secret); err != nil {
			return f, fmt.Errorf("scan user: %w", err)
		}
		var u directory.User
		switch directory.Role(r.role) {
		case directory.RoleAdmin:
			u = directory.NewAdmin(r.id, r.name, r.email)
		case directory.RoleTeacher:
			u = directory.NewTeacher(r.id, r.name, r.email, r.dept.String)
		case directory.RoleStudent:
			u = directory.NewStudent(r.id, r.name, r.email, directory.StudentProfile{
				StudentNumber: r.num.String,
				ClassIDs:      enrollments.byStudent[r.id],
				Attendance:    records[r.id],
			})
		default:
			return f, fmt.Errorf("user %s has unknown role %q", r.id, r.role)
		}
		f.Users = append(f.Users, u.WithImage(r.image.String))
		if r.secret.Valid {
			f.Credentials = append(f.Credentials, directory.Credential{UserID: r.id, Secret: r.secret.String})
		}
	}
	if err := rows.Err(); err != nil {
		return f, err
	}

	if f.Classes, err = s.classes(ctx, enrollments.byClass); err != nil {
		return f, err
	}
	if f.Notes, err = s.notes(ctx); err != nil {
		return f, err
	}
	return f, nil
}

type enrollmentIndex struct {
	byClass   map[string][]string
	byStudent map[string][]string
}

func (s PostgresSource) enrollments(ctx context.Context) (enrollmentIndex, error) {
	idx := enrollmentIndex{byClass: map[string][]string{}, byStudent: map[string][]string{}}
	rows, err := s.DB.QueryContext(ctx, `SELECT class_id, student_id FROM enrollments ORDER BY class_id, position`)
	if err != nil {
		return idx, fmt.Errorf("query enrollments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var classID, studentID string
		if err := rows.Scan(&classID, &studentID); err != nil {
			return idx, fmt.Errorf("scan enrollment: %w", err)
		}
		idx.byClass[classID] = append(idx.byClass[classID], studentID)
		idx.byStudent[studentID] = append(idx.byStudent[studentID], classID)
	}
	return idx, rows.Err()
}

func (s PostgresSource) attendance(ctx context.Context) (map[string][]directory.AttendanceRecord, error) {
	out := map[string][]directory.AttendanceRecord{}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT student_id, class_id, held_on, status
		FROM attendance_records
		ORDER BY student_id, held_on, class_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var studentID, classID, status string
		var heldOn time.Time
		if err := rows.Scan(&studentID, &classID, &heldOn, &status); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		out[studentID] = append(out[studentID], directory.AttendanceRecord{
			ClassID: classID,
			Date:    heldOn.Format(time.DateOnly),
			Status:  directory.AttendanceStatus(status),
		})
	}
	return out, rows.Err()
}

func (s PostgresSource) classes(ctx context.Context, rosters map[string][]string) ([]directory.Class, error) {
	schedules := map[string][]directory.ScheduleEntry{}
	srows, err := s.DB.QueryContext(ctx, `
		SELECT class_id, day, start_time, end_time, room
		FROM class_schedule
		ORDER BY class_id, position
	`)
	if err != nil {
		return nil, fmt.Errorf("query schedule: %w", err)
	}
	defer srows.Close()
	for srows.Next() {
		var classID string
		var e directory.ScheduleEntry
		var room sql.NullString
		if err := srows.Scan(&classID, &e.Day, &e.StartTime, &e.EndTime, &room); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		e.Room = room.String
		schedules[classID] = append(schedules[classID], e)
	}
	if err := srows.Err(); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT c.id, c.name, c.description, c.subject_code, c.teacher_id, t.name, c.image_url
		FROM classes c
		JOIN users t ON t.id = c.teacher_id
		ORDER BY c.position, c.id
	`)
	if err != nil {
		return nil, fmt.Errorf("query classes: %w", err)
	}
	defer rows.Close()
	var out []directory.Class
	for rows.Next() {
		var c directory.Class
		var image sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.SubjectCode, &c.TeacherID, &c.TeacherName, &image); err != nil {
			return nil, fmt.Errorf("scan class: %w", err)
		}
		c.ImageURL = image.String
		c.Schedule = schedules[c.ID]
		c.StudentIDs = rosters[c.ID]
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s PostgresSource) notes(ctx context.Context) ([]directory.Note, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, class_id, title, content, file_url, created_at, updated_at
		FROM notes
		ORDER BY position, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()
	var out []directory.Note
	for rows.Next() {
		var n directory.Note
		var file sql.NullString
		if err := rows.Scan(&n.ID, &n.ClassID, &n.Title, &n.Content, &file, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		n.AttachmentURL = file.String
		out = append(out, n)
	}
	return out, rows.Err()
}
