package entities

import "time"

// DateOnly is the calendar-date form used for task due dates. Lexicographic
// comparison of two such strings matches chronological order, so due dates
// are compared directly as strings.
const DateOnly = "2006-01-02"

// Today returns the current calendar date from the local clock. Callers that
// evaluate several tasks in one pass should call this once and thread the
// value through, so a midnight rollover cannot split a single evaluation
// across two days.
func Today() string {
	return time.Now().Format(DateOnly)
}

// IsToday reports whether date is exactly today's calendar date.
func IsToday(date string) bool {
	return date == Today()
}

// IsOverdueOn reports whether a due date has passed relative to the given
// reference date. Completed tasks are never overdue. The comparison is
// strict: a task due on the reference date itself is not overdue.
func IsOverdueOn(dueDate string, status TaskStatus, today string) bool {
	if status == TaskStatusCompleted {
		return false
	}
	return dueDate < today
}

// IsOverdue is IsOverdueOn evaluated against the local clock.
func IsOverdue(dueDate string, status TaskStatus) bool {
	return IsOverdueOn(dueDate, status, Today())
}

// EffectiveStatusOn derives the date-aware status of a task at read time.
// The persisted status only ever holds Pending or Completed; Overdue exists
// solely as this derivation and must be recomputed on every read, since
// "today" moves independently of any mutation.
func (t *Task) EffectiveStatusOn(today string) TaskStatus {
	if t.Status == TaskStatusCompleted {
		return TaskStatusCompleted
	}
	if IsOverdueOn(t.DueDate, t.Status, today) {
		return TaskStatusOverdue
	}
	return TaskStatusPending
}

// EffectiveStatus is EffectiveStatusOn evaluated against the local clock.
func (t *Task) EffectiveStatus() TaskStatus {
	return t.EffectiveStatusOn(Today())
}

// FormatTimestamp renders an ISO-8601 timestamp as a short human-readable
// "month day, year, hour:minute" string for display. It is formatting only,
// never used for comparison or persistence. Unparseable input is returned
// unchanged so a display layer never loses the raw value.
func FormatTimestamp(iso string) string {
	ts, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return iso
	}
	return ts.Format("Jan 2, 2006, 03:04 PM")
}
