package logging

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"
)

var (
	// ErrTaskStarted is returned when starting a task that is already running.
	ErrTaskStarted = errors.New("already started")

	// ErrTaskNotStarted is returned when finishing a task that is not running.
	ErrTaskNotStarted = errors.New("not started")
)

// TaskReporter tracks named tasks. Tasks may overlap but a task ID can only
// be running once at a time.
type TaskReporter interface {
	Start(taskID string) error
	Finish(taskID string) error
}

// LoggingTaskReporter logs the start and the elapsed time of each task.
type LoggingTaskReporter struct {
	mu     sync.Mutex
	logger *slog.Logger
	scope  string
	now    func() time.Time
	active map[string]time.Time
}

// NewLoggingTaskReporter creates a reporter that prefixes task IDs with
// scope, when not empty, and logs to logger.
func NewLoggingTaskReporter(logger *slog.Logger, scope string) *LoggingTaskReporter {
	return &LoggingTaskReporter{
		logger: logger,
		scope:  scope,
		now:    time.Now,
		active: make(map[string]time.Time),
	}
}

func (r *LoggingTaskReporter) name(taskID string) string {
	if r.scope == "" {
		return taskID
	}
	return r.scope + "/" + taskID
}

// Start marks taskID as running and logs it.
func (r *LoggingTaskReporter) Start(taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := r.name(taskID)
	if _, ok := r.active[taskID]; ok {
		return fmt.Errorf("task %s: %w", name, ErrTaskStarted)
	}
	r.active[taskID] = r.now()
	r.logger.Info("task started", "task", name)
	return nil
}

// Finish marks taskID as done and logs the time since Start.
func (r *LoggingTaskReporter) Finish(taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := r.name(taskID)
	started, ok := r.active[taskID]
	if !ok {
		return fmt.Errorf("task %s: %w", name, ErrTaskNotStarted)
	}
	delete(r.active, taskID)
	r.logger.Info("task finished", "task", name, "elapsed", FormatTimeElapsed(r.now().Sub(started)))
	return nil
}

// TaskEntryType is the kind of a recorded task event.
type TaskEntryType string

const (
	TaskStart  TaskEntryType = "START"
	TaskFinish TaskEntryType = "FINISH"
)

// TaskEntry is a single recorded task event.
type TaskEntry struct {
	Type   TaskEntryType
	TaskID string
}

// SilentTaskReporter records task events without writing anything.
type SilentTaskReporter struct {
	mu      sync.Mutex
	entries []TaskEntry
	active  []string
}

// Start records the start of taskID.
func (r *SilentTaskReporter) Start(taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if slices.Contains(r.active, taskID) {
		return fmt.Errorf("task %s: %w", taskID, ErrTaskStarted)
	}
	r.active = append(r.active, taskID)
	r.entries = append(r.entries, TaskEntry{Type: TaskStart, TaskID: taskID})
	return nil
}

// Finish records the end of taskID.
func (r *SilentTaskReporter) Finish(taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := slices.Index(r.active, taskID)
	if i < 0 {
		return fmt.Errorf("task %s: %w", taskID, ErrTaskNotStarted)
	}
	r.active = slices.Delete(r.active, i, i+1)
	r.entries = append(r.entries, TaskEntry{Type: TaskFinish, TaskID: taskID})
	return nil
}

// Entries returns all recorded events in order.
func (r *SilentTaskReporter) Entries() []TaskEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.entries)
}

// ActiveTasks returns the running tasks in start order.
func (r *SilentTaskReporter) ActiveTasks() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.active)
}

// FormatTimeElapsed renders a duration with at most two units, e.g. 999ms,
// 2s, 1m 3s, 1h 0m, 1d 0h. Seconds are rounded, larger units truncated.
func FormatTimeElapsed(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	seconds := int64(math.Round(float64(ms) / 1000))
	minutes := seconds / 60
	if minutes == 0 {
		return fmt.Sprintf("%ds", seconds)
	}
	hours := minutes / 60
	if hours == 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds%60)
	}
	days := hours / 24
	if days == 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes%60)
	}
	return fmt.Sprintf("%dd %dh", days, hours%24)
}
