package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// defaultCheckTimeout ограничивает одну проверку, чтобы /healthz не зависал на недоступной БД.
const defaultCheckTimeout = 2 * time.Second

// Status описывает состояние компонента.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// Check хранит результат проверки одного компонента.
type Check struct {
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// Response — тело ответа /healthz.
type Response struct {
	Status        Status           `json:"status"`
	Timestamp     time.Time        `json:"timestamp"`
	Checks        map[string]Check `json:"checks,omitempty"`
	Version       string           `json:"version,omitempty"`
	Commit        string           `json:"commit,omitempty"`
	UptimeSeconds int64            `json:"uptime_seconds"`
}

// Checker проверяет один компонент.
type Checker interface {
	Check(ctx context.Context) Check
}

// Handler агрегирует проверки и отдаёт их по HTTP.
type Handler struct {
	mu        sync.RWMutex
	checkers  map[string]Checker
	version   string
	commit    string
	timeout   time.Duration
	startTime time.Time
}

// NewHandler создаёт handler с метаданными сборки.
func NewHandler(version, commit string) *Handler {
	return &Handler{
		checkers:  make(map[string]Checker),
		version:   version,
		commit:    commit,
		timeout:   defaultCheckTimeout,
		startTime: time.Now(),
	}
}

// RegisterChecker добавляет проверку; повторное имя заменяет прежнюю.
func (h *Handler) RegisterChecker(name string, checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
}

// Run выполняет все проверки и возвращает сводный результат.
func (h *Handler) Run(ctx context.Context) Response {
	checks := make(map[string]Check)
	overall := StatusHealthy

	for _, entry := range h.snapshot() {
		checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
		check := entry.checker.Check(checkCtx)
		cancel()

		checks[entry.name] = check
		switch {
		case check.Status == StatusUnhealthy:
			overall = StatusUnhealthy
		case check.Status == StatusDegraded && overall == StatusHealthy:
			overall = StatusDegraded
		}
	}

	return Response{
		Status:        overall,
		Timestamp:     time.Now().UTC(),
		Checks:        checks,
		Version:       h.version,
		Commit:        h.commit,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	}
}

// ServeHTTP отдаёт JSON со всеми проверками; 503 при unhealthy.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response := h.Run(r.Context())

	statusCode := http.StatusOK
	if response.Status == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

// LivenessHandler отвечает 200, пока процесс жив.
func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ReadinessHandler отвечает 503, если хотя бы одна проверка unhealthy. Degraded не снимает готовность.
func (h *Handler) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	if h.Run(r.Context()).Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

type namedChecker struct {
	name    string
	checker Checker
}

func (h *Handler) snapshot() []namedChecker {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]namedChecker, 0, len(h.checkers))
	for name, checker := range h.checkers {
		out = append(out, namedChecker{name: name, checker: checker})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// FuncChecker превращает функцию в Checker: ошибка означает unhealthy.
type FuncChecker struct {
	name    string
	checkFn func(ctx context.Context) error
}

// NewFuncChecker создаёт проверку, например пинг хранилища.
func NewFuncChecker(name string, checkFn func(ctx context.Context) error) *FuncChecker {
	return &FuncChecker{name: name, checkFn: checkFn}
}

// Check выполняет функцию и замеряет время.
func (c *FuncChecker) Check(ctx context.Context) Check {
	start := time.Now()
	err := c.checkFn(ctx)
	check := Check{Name: c.name, Status: StatusHealthy, DurationMs: time.Since(start).Milliseconds()}
	if err != nil {
		check.Status = StatusUnhealthy
		check.Message = err.Error()
	}
	return check
}

// OutboxBacklogChecker сообщает degraded, когда событий в очереди больше порога:
// API продолжает работать, но публикация отстаёт.
type OutboxBacklogChecker struct {
	repo      domain.OutboxRepository
	threshold int
}

// NewOutboxBacklogChecker создаёт проверку backlog outbox.
func NewOutboxBacklogChecker(repo domain.OutboxRepository, threshold int) *OutboxBacklogChecker {
	return &OutboxBacklogChecker{repo: repo, threshold: threshold}
}

// Check читает статистику outbox.
func (c *OutboxBacklogChecker) Check(ctx context.Context) Check {
	start := time.Now()
	check := Check{Name: "outbox", Status: StatusHealthy}

	stats, err := c.repo.Stats(ctx)
	switch {
	case err != nil:
		check.Status = StatusDegraded
		check.Message = err.Error()
	case c.threshold > 0 && stats.PendingCount > c.threshold:
		check.Status = StatusDegraded
		check.Message = fmt.Sprintf("%d pending events (threshold %d)", stats.PendingCount, c.threshold)
	}
	check.DurationMs = time.Since(start).Milliseconds()
	return check
}
