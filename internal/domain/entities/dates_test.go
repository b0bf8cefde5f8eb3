package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsOverdueOn(t *testing.T) {
	today := "2024-01-15"

	// Strictly before today is overdue.
	assert.True(t, IsOverdueOn("2024-01-14", TaskStatusPending, today))
	assert.True(t, IsOverdueOn("2023-12-31", TaskStatusPending, today))

	// Due exactly today is not overdue.
	assert.False(t, IsOverdueOn("2024-01-15", TaskStatusPending, today))

	// Future dates are not overdue.
	assert.False(t, IsOverdueOn("2024-01-16", TaskStatusPending, today))

	// Completed tasks are never overdue, however old the due date.
	assert.False(t, IsOverdueOn("2020-01-01", TaskStatusCompleted, today))
}

func TestEffectiveStatusOn(t *testing.T) {
	today := "2024-01-15"

	pendingPast := &Task{DueDate: "2024-01-10", Status: TaskStatusPending}
	assert.Equal(t, TaskStatusOverdue, pendingPast.EffectiveStatusOn(today))

	pendingToday := &Task{DueDate: "2024-01-15", Status: TaskStatusPending}
	assert.Equal(t, TaskStatusPending, pendingToday.EffectiveStatusOn(today))

	pendingFuture := &Task{DueDate: "2024-01-20", Status: TaskStatusPending}
	assert.Equal(t, TaskStatusPending, pendingFuture.EffectiveStatusOn(today))

	completedPast := &Task{DueDate: "2024-01-10", Status: TaskStatusCompleted}
	assert.Equal(t, TaskStatusCompleted, completedPast.EffectiveStatusOn(today))

	// The persisted status never changes as a side effect of derivation.
	assert.Equal(t, TaskStatusPending, pendingPast.Status)
}

func TestEffectiveStatusRecomputedPerDay(t *testing.T) {
	task := &Task{DueDate: "2024-01-15", Status: TaskStatusPending}

	assert.Equal(t, TaskStatusPending, task.EffectiveStatusOn("2024-01-15"))
	assert.Equal(t, TaskStatusOverdue, task.EffectiveStatusOn("2024-01-16"))
}

func TestToday(t *testing.T) {
	assert.Equal(t, time.Now().Format(DateOnly), Today())
	assert.True(t, IsToday(Today()))
	assert.False(t, IsToday("1999-12-31"))
}

func TestFormatTimestamp(t *testing.T) {
	got := FormatTimestamp("2024-01-15T14:30:00Z")
	assert.Equal(t, "Jan 15, 2024, 02:30 PM", got)

	// Unparseable input comes back unchanged.
	assert.Equal(t, "not-a-timestamp", FormatTimestamp("not-a-timestamp"))
	assert.Equal(t, "", FormatTimestamp(""))
}
