package attendance

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"collegeerp/internal/directory"
)

var (
	ErrUnknownClass  = errors.New("unknown class")
	ErrNotEnrolled   = errors.New("student is not enrolled in this class")
	ErrNotTeacher    = errors.New("only the class teacher or an admin can scan")
	ErrPassExpired   = errors.New("attendance pass expired")
	ErrMalformedPass = errors.New("malformed attendance pass")
)

// Event is one accepted scan. Events live only in process memory and never
// change the directory's attendance records.
type Event struct {
	ID          string    `json:"id"`
	ClassID     string    `json:"classId"`
	StudentID   string    `json:"studentId"`
	StudentName string    `json:"studentName"`
	ScannedBy   string    `json:"scannedBy"`
	When        time.Time `json:"when"`
}

// Service issues passes and accepts scans with deduplication.
type Service struct {
	dir         *directory.Directory
	passTTL     time.Duration
	dedupWindow time.Duration
	now         func() time.Time

	mu    sync.RWMutex
	scans map[string][]Event
}

// NewService creates a service over the directory.
func NewService(dir *directory.Directory, passTTL, dedupWindow time.Duration) *Service {
	if passTTL <= 0 {
		passTTL = 5 * time.Minute
	}
	if dedupWindow <= 0 {
		dedupWindow = 5 * time.Minute
	}
	return &Service{
		dir:         dir,
		passTTL:     passTTL,
		dedupWindow: dedupWindow,
		now:         time.Now,
		scans:       make(map[string][]Event),
	}
}

// PassTTL is how long an issued pass stays scannable.
func (s *Service) PassTTL() time.Duration { return s.passTTL }

// IssuePass generates a fresh pass for an enrolled student.
func (s *Service) IssuePass(userID, classID string) (Pass, error) {
	c, ok := s.dir.ClassByID(classID)
	if !ok {
		return Pass{}, ErrUnknownClass
	}
	if !c.Enrolled(userID) {
		return Pass{}, ErrNotEnrolled
	}
	now := s.now()
	return Pass{
		UserID:    userID,
		ClassID:   classID,
		Timestamp: now.UnixMilli(),
		Expiry:    now.Add(s.passTTL).UnixMilli(),
	}, nil
}

// Scan accepts a pass presented to scannerID. A second scan of the same
// student in the same class within the dedup window returns the first event
// with duplicate set.
func (s *Service) Scan(ctx context.Context, scannerID, payload string) (evt Event, duplicate bool, err error) {
	if err := ctx.Err(); err != nil {
		return Event{}, false, err
	}
	p, err := DecodePass(payload)
	if err != nil {
		return Event{}, false, err
	}
	now := s.now()
	if p.Expired(now) {
		return Event{}, false, ErrPassExpired
	}
	c, ok := s.dir.ClassByID(p.ClassID)
	if !ok {
		return Event{}, false, ErrUnknownClass
	}
	scanner, ok := s.dir.UserByID(scannerID)
	if !ok || !(scanner.Role() == directory.RoleAdmin || c.TeacherID == scannerID) {
		return Event{}, false, ErrNotTeacher
	}
	if !c.Enrolled(p.UserID) {
		return Event{}, false, ErrNotEnrolled
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if recent, ok := s.recentLocked(p.ClassID, p.UserID, now); ok {
		return recent, true, nil
	}
	student, _ := s.dir.UserByID(p.UserID)
	evt = Event{
		ID:          uuid.NewString(),
		ClassID:     p.ClassID,
		StudentID:   p.UserID,
		StudentName: student.Name,
		ScannedBy:   scannerID,
		When:        now.UTC(),
	}
	s.scans[p.ClassID] = append(s.scans[p.ClassID], evt)
	return evt, false, nil
}

func (s *Service) recentLocked(classID, studentID string, now time.Time) (Event, bool) {
	events := s.scans[classID]
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		if now.Sub(e.When) >= s.dedupWindow {
			break
		}
		if e.StudentID == studentID {
			return e, true
		}
	}
	return Event{}, false
}

// Scans returns the accepted scans for a class, oldest first.
func (s *Service) Scans(classID string) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.scans[classID]...)
}
