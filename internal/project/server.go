package project

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fentz26/planline/internal/task"
)

// Server provides a read-only HTTP API over an open project.
type Server struct {
	service *Service
	addr    string
	log     *zap.Logger
	engine  *gin.Engine
	server  *http.Server
}

// NewServer creates a new HTTP server. A requestsPerMin of zero disables rate limiting.
func NewServer(service *Service, addr string, requestsPerMin int, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		service: service,
		addr:    addr,
		log:     log,
		engine:  gin.New(),
	}
	s.engine.Use(gin.Recovery())
	if requestsPerMin > 0 {
		s.engine.Use(newRateLimiter(requestsPerMin).middleware())
	}

	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/tasks", s.listTasks)
	s.engine.GET("/tasks/:id", s.getTask)
	s.engine.GET("/critical", s.getCritical)
	s.engine.GET("/journal", s.listJournal)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler { return s.engine }

// Start starts the HTTP server and blocks until it stops.
// A Shutdown that happened first makes Start return immediately.
func (s *Server) Start() error {
	s.log.Info("starting planline api", zap.String("addr", s.addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	OK      bool   `json:"ok"`
	DB      string `json:"db"`
	Project string `json:"project"`
	Time    string `json:"time"`
}

func (s *Server) handleHealth(c *gin.Context) {
	resp := HealthResponse{
		OK:      true,
		DB:      "ok",
		Project: s.service.Project().Name,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK
	if err := s.service.Ping(c.Request.Context()); err != nil {
		resp.OK = false
		resp.DB = err.Error()
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

// TaskView is the JSON form of a task.
type TaskView struct {
	ID             int       `json:"id"`
	Name           string    `json:"name"`
	Start          string    `json:"start"`
	End            string    `json:"end"`
	Duration       string    `json:"duration"`
	Milestone      bool      `json:"milestone"`
	Completion     int       `json:"completion"`
	Priority       string    `json:"priority"`
	Role           string    `json:"role"`
	Parent         int       `json:"parent,omitempty"`
	Children       []int     `json:"children,omitempty"`
	Critical       bool      `json:"critical"`
	CriticalTimes  []string  `json:"critical_times,omitempty"`
	DeadlineMissed bool      `json:"deadline_missed,omitempty"`
	Dependencies   []DepView `json:"dependencies,omitempty"`
}

// DepView is the JSON form of a dependency.
type DepView struct {
	Dependee  int    `json:"dependee"`
	Dependant int    `json:"dependant"`
	Type      string `json:"type"`
	Lag       int    `json:"lag"`
	Hardness  string `json:"hardness"`
}

func newTaskView(t *task.Task) TaskView {
	info := t.Info()
	v := TaskView{
		ID:             info.ID,
		Name:           info.Name,
		Start:          info.Start.Format(time.DateOnly),
		End:            info.DisplayEnd.Format(time.DateOnly),
		Duration:       info.Duration.String(),
		Milestone:      info.Milestone,
		Completion:     info.Completion,
		Priority:       info.Priority.String(),
		Role:           info.Role.String(),
		Parent:         info.Parent,
		Children:       info.Children,
		Critical:       info.Critical,
		DeadlineMissed: info.DeadlineMissed,
	}
	for _, ct := range info.CriticalTimes {
		v.CriticalTimes = append(v.CriticalTimes, ct.Format(time.DateOnly))
	}
	for _, d := range t.Dependencies().All() {
		v.Dependencies = append(v.Dependencies, newDepView(d))
	}
	return v
}

func newDepView(d task.Dependency) DepView {
	return DepView{
		Dependee:  d.Dependee,
		Dependant: d.Dependant,
		Type:      d.Type.String(),
		Lag:       d.Lag,
		Hardness:  d.Hardness.String(),
	}
}

func (s *Server) listTasks(c *gin.Context) {
	tasks := s.service.Manager().Tasks()
	views := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, newTaskView(t))
	}
	c.JSON(http.StatusOK, views)
}

func (s *Server) getTask(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}
	t, err := s.service.Manager().Task(id)
	if errors.Is(err, task.ErrTaskNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, newTaskView(t))
}

// CriticalResponse is the body of GET /critical.
type CriticalResponse struct {
	Path  []int  `json:"path"`
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

func (s *Server) getCritical(c *gin.Context) {
	mgr := s.service.Manager()
	resp := CriticalResponse{Path: mgr.CriticalPath()}
	if resp.Path == nil {
		resp.Path = []int{}
	}
	if start := mgr.ProjectStart(); !start.IsZero() {
		resp.Start = start.Format(time.DateOnly)
		resp.End = mgr.ProjectEnd().Format(time.DateOnly)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) listJournal(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	entries, err := s.service.Journal(c.Request.Context(), limit)
	if err != nil {
		s.log.Error("list journal", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, entries)
}

// rateLimiter keeps one token bucket per client address.
type rateLimiter struct {
	limiters *expirable.LRU[string, *rate.Limiter]
	rate     rate.Limit
	burst    int
}

func newRateLimiter(requestsPerMin int) *rateLimiter {
	return &rateLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](1000, nil, 5*time.Minute),
		rate:     rate.Limit(float64(requestsPerMin) / 60.0),
		burst:    max(requestsPerMin/10, 1),
	}
}

func (rl *rateLimiter) allow(key string) bool {
	limiter, ok := rl.limiters.Get(key)
	if !ok {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters.Add(key, limiter)
	}
	return limiter.Allow()
}

func (rl *rateLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
