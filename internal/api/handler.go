package api

import (
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"collegeerp/internal/attendance"
	"collegeerp/internal/auth"
	"collegeerp/internal/directory"
	"collegeerp/internal/metrics"
	"collegeerp/internal/queue"
	"collegeerp/internal/session"
)

// TokenConfig controls the access tokens handed out at login.
type TokenConfig struct {
	Issuer       string
	SigningKey   string
	TTL          time.Duration
	SecureCookie bool
}

// Handler serves the directory, session and attendance routes.
type Handler struct {
	dir        *directory.Directory
	sessions   *session.Resolver
	attendance *attendance.Service
	queue      queue.Queue
	metrics    *metrics.Metrics
	log        zerolog.Logger
	tokens     TokenConfig
}

func NewHandler(
	dir *directory.Directory,
	sessions *session.Resolver,
	att *attendance.Service,
	q queue.Queue,
	m *metrics.Metrics,
	log zerolog.Logger,
	tokens TokenConfig,
) *Handler {
	return &Handler{
		dir:        dir,
		sessions:   sessions,
		attendance: att,
		queue:      q,
		metrics:    m,
		log:        log,
		tokens:     tokens,
	}
}

// RegisterRoutes mounts the /v1 API. loginGuards run in front of the login
// route only.
func (h *Handler) RegisterRoutes(r gin.IRouter, loginGuards ...gin.HandlerFunc) {
	v1 := r.Group("/v1")
	v1.POST("/login", append(loginGuards, h.Login)...)

	authed := v1.Group("", auth.RequireSession(h.sessions, h.tokens.SigningKey, h.tokens.Issuer))
	authed.POST("/logout", h.Logout)
	authed.GET("/me", h.Me)
	authed.GET("/users", auth.RequireRole(directory.RoleAdmin), h.Users)
	authed.GET("/faculty", auth.RequireRole(directory.RoleAdmin), h.Faculty)
	authed.GET("/classes", h.Classes)
	authed.GET("/classes/:id", h.Class)
	authed.GET("/classes/:id/notes", h.Notes)
	authed.GET("/classes/:id/attendance/:studentId", h.StudentSummary)
	authed.GET("/students/:id/attendance", h.StudentRecords)
	authed.GET("/classes/:id/pass", auth.RequireRole(directory.RoleStudent), h.Pass)

	staff := authed.Group("", auth.RequireRole(directory.RoleTeacher, directory.RoleAdmin))
	staff.GET("/students", h.Students)
	staff.GET("/classes/:id/attendance", h.ClassSummaries)
	staff.GET("/classes/:id/scans", h.Scans)
	staff.POST("/attendance/scan", h.Scan)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login checks credentials and opens a session.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	s, err := h.sessions.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, session.ErrInvalidCredentials) {
			h.metrics.Logins.WithLabelValues("rejected").Inc()
			c.JSON(http.StatusUnauthorized, gin.H{"error": session.ErrInvalidCredentials.Error()})
			return
		}
		h.log.Error().Err(err).Msg("login failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	tok, err := auth.Issue(s.ID, string(s.User.Role()), h.tokens.Issuer, h.tokens.SigningKey, h.tokens.TTL)
	if err != nil {
		_ = h.sessions.Logout(c.Request.Context(), s.ID)
		h.log.Error().Err(err).Msg("token issue failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	h.metrics.Logins.WithLabelValues("accepted").Inc()
	h.log.Info().Str("user_id", s.User.ID).Str("role", string(s.User.Role())).Msg("user logged in")

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(session.Key, tok.AccessToken, int(h.tokens.TTL.Seconds()), "/", "", h.tokens.SecureCookie, true)

	resp := gin.H{"token": tok.AccessToken, "user": s.User}
	if !tok.ExpiresAt.IsZero() {
		resp["expiresAt"] = tok.ExpiresAt.Unix()
	}
	c.JSON(http.StatusOK, resp)
}

// Logout destroys the caller's session.
func (h *Handler) Logout(c *gin.Context) {
	s, _ := auth.FromContext(c)
	if err := h.sessions.Logout(c.Request.Context(), s.ID); err != nil {
		h.log.Error().Err(err).Str("session_id", s.ID).Msg("logout failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.SetCookie(session.Key, "", -1, "/", "", h.tokens.SecureCookie, true)
	c.Status(http.StatusNoContent)
}

// Me returns the signed-in user.
func (h *Handler) Me(c *gin.Context) {
	s, _ := auth.FromContext(c)
	c.JSON(http.StatusOK, gin.H{"user": s.User})
}

// Users lists the whole directory.
func (h *Handler) Users(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"users": h.dir.Users()})
}

// Classes lists the classes visible to the caller.
func (h *Handler) Classes(c *gin.Context) {
	s, _ := auth.FromContext(c)
	c.JSON(http.StatusOK, gin.H{"classes": h.dir.ClassesForUser(s.User.ID)})
}

// visibleClass resolves :id and answers 404 when the caller cannot see it.
func (h *Handler) visibleClass(c *gin.Context) (directory.Class, session.Session, bool) {
	s, _ := auth.FromContext(c)
	id := c.Param("id")
	cls, ok := h.dir.ClassByID(id)
	if !ok || !h.dir.CanView(s.User.ID, id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "class not found"})
		return directory.Class{}, s, false
	}
	return cls, s, true
}

// Class returns one class.
func (h *Handler) Class(c *gin.Context) {
	cls, _, ok := h.visibleClass(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"class": cls})
}

// Notes lists a class's notes.
func (h *Handler) Notes(c *gin.Context) {
	cls, _, ok := h.visibleClass(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"notes": h.dir.NotesForClass(cls.ID)})
}

// ClassSummaries reports attendance for every student of a class.
func (h *Handler) ClassSummaries(c *gin.Context) {
	cls, _, ok := h.visibleClass(c)
	if !ok {
		return
	}
	h.metrics.Summaries.WithLabelValues("class").Inc()
	c.JSON(http.StatusOK, gin.H{
		"classId":   cls.ID,
		"rounding":  h.dir.Rounding(),
		"summaries": h.dir.ClassSummaries(cls.ID),
	})
}

// StudentSummary reports one student's attendance in one class. Students may
// only ask about themselves.
func (h *Handler) StudentSummary(c *gin.Context) {
	cls, s, ok := h.visibleClass(c)
	if !ok {
		return
	}
	studentID := c.Param("studentId")
	if s.User.Role() == directory.RoleStudent && studentID != s.User.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	h.metrics.Summaries.WithLabelValues("student").Inc()
	c.JSON(http.StatusOK, gin.H{"summary": h.dir.Summary(cls.ID, studentID)})
}

// StudentRecords lists a student's raw attendance records.
func (h *Handler) StudentRecords(c *gin.Context) {
	s, _ := auth.FromContext(c)
	studentID := c.Param("id")
	if s.User.Role() == directory.RoleStudent && studentID != s.User.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	records := h.dir.AttendanceForStudent(studentID)
	if s.User.Role() == directory.RoleTeacher {
		records = h.visibleRecords(s.User.ID, records)
	}
	c.JSON(http.StatusOK, gin.H{"studentId": studentID, "records": records})
}

// visibleRecords keeps the records of classes the viewer can open.
func (h *Handler) visibleRecords(viewerID string, records []directory.AttendanceRecord) []directory.AttendanceRecord {
	out := make([]directory.AttendanceRecord, 0, len(records))
	for _, rec := range records {
		if h.dir.CanView(viewerID, rec.ClassID) {
			out = append(out, rec)
		}
	}
	return out
}

// Students lists the student directory, filtered by ?q= on name or student
// number.
func (h *Handler) Students(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"students": h.dir.Students(c.Query("q"))})
}

// Faculty lists the teachers with their classes, filtered by ?q= on name or
// department.
func (h *Handler) Faculty(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"faculty": h.dir.Faculty(c.Query("q"))})
}

// Pass issues the caller's attendance pass, as JSON with an embedded PNG or
// as a raw PNG with ?format=png.
func (h *Handler) Pass(c *gin.Context) {
	s, _ := auth.FromContext(c)
	p, err := h.attendance.IssuePass(s.User.ID, c.Param("id"))
	if err != nil {
		h.attendanceError(c, err)
		return
	}
	payload, err := p.Encode()
	if err != nil {
		h.log.Error().Err(err).Msg("encode pass failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	img, err := attendance.RenderPNG(payload, 256)
	if err != nil {
		h.log.Error().Err(err).Msg("render pass failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if c.Query("format") == "png" {
		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, "image/png", img)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"pass":      p,
		"payload":   payload,
		"expiresAt": p.ExpiresAt().UTC(),
		"png":       base64.StdEncoding.EncodeToString(img),
	})
}

type scanRequest struct {
	Payload string `json:"payload" binding:"required"`
}

// Scan accepts a scanned pass from a teacher or admin.
func (h *Handler) Scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payload is required"})
		return
	}
	s, _ := auth.FromContext(c)

	evt, dup, err := h.attendance.Scan(c.Request.Context(), s.User.ID, req.Payload)
	if err != nil {
		h.metrics.Scans.WithLabelValues("rejected").Inc()
		h.attendanceError(c, err)
		return
	}
	if dup {
		h.metrics.Scans.WithLabelValues("duplicate").Inc()
		c.JSON(http.StatusOK, gin.H{"event": evt, "duplicate": true})
		return
	}

	h.metrics.Scans.WithLabelValues("accepted").Inc()
	msg, err := queue.NewMessage(queue.TypeScan, evt)
	if err == nil {
		err = h.queue.Publish(c.Request.Context(), msg)
	}
	if err != nil {
		h.log.Warn().Err(err).Str("event_id", evt.ID).Msg("queue publish failed")
	}
	c.JSON(http.StatusCreated, gin.H{"event": evt, "duplicate": false})
}

// Scans lists the scans accepted for a class since start-up.
func (h *Handler) Scans(c *gin.Context) {
	cls, _, ok := h.visibleClass(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"classId": cls.ID, "scans": h.attendance.Scans(cls.ID)})
}

func (h *Handler) attendanceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, attendance.ErrUnknownClass):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, attendance.ErrNotTeacher):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, attendance.ErrNotEnrolled), errors.Is(err, attendance.ErrPassExpired):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, attendance.ErrMalformedPass):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Msg("attendance request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
