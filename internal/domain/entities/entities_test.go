package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShopStatusIsValid(t *testing.T) {
	for _, status := range ShopStatuses() {
		assert.True(t, status.IsValid(), "status %q should be valid", status)
	}

	assert.False(t, ShopStatus("").IsValid())
	assert.False(t, ShopStatus("Lukewarm").IsValid())
	assert.False(t, ShopStatus("new").IsValid(), "status values are case-sensitive")
}

func TestTaskTypeIsValid(t *testing.T) {
	for _, taskType := range TaskTypes() {
		assert.True(t, taskType.IsValid(), "type %q should be valid", taskType)
	}

	assert.False(t, TaskType("").IsValid())
	assert.False(t, TaskType("Email").IsValid())
}

func TestTaskStatusIsValid(t *testing.T) {
	assert.True(t, TaskStatusPending.IsValid())
	assert.True(t, TaskStatusCompleted.IsValid())
	assert.True(t, TaskStatusOverdue.IsValid())
	assert.False(t, TaskStatus("Done").IsValid())
}

func TestShopValidate(t *testing.T) {
	shop := &Shop{Name: "Corner Store", Status: ShopStatusNew}
	require.NoError(t, shop.Validate())

	assert.ErrorIs(t, (&Shop{Name: "   ", Status: ShopStatusNew}).Validate(), ErrEmptyShopName)
	assert.ErrorIs(t, (&Shop{Name: "Corner Store", Status: "Tepid"}).Validate(), ErrInvalidStatus)
}

func TestTaskValidate(t *testing.T) {
	task := &Task{Type: TaskTypeVisit, DueDate: "2024-01-15", Status: TaskStatusPending}
	require.NoError(t, task.Validate())

	assert.ErrorIs(t, (&Task{Type: "Email", DueDate: "2024-01-15", Status: TaskStatusPending}).Validate(), ErrInvalidType)
	assert.ErrorIs(t, (&Task{Type: TaskTypeVisit, Status: TaskStatusPending}).Validate(), ErrInvalidDueDate)
	assert.ErrorIs(t, (&Task{Type: TaskTypeVisit, DueDate: "2024-01-15", Status: "Done"}).Validate(), ErrInvalidStatus)
}

func TestNewUpdate(t *testing.T) {
	update := NewUpdate("met the owner")

	assert.NotEmpty(t, update.ID)
	assert.NotEmpty(t, update.Timestamp)
	assert.Equal(t, "met the owner", update.Note)

	other := NewUpdate("second visit")
	assert.NotEqual(t, update.ID, other.ID)
}

func TestPrependUpdateKeepsNewestFirst(t *testing.T) {
	shop := &Shop{Name: "Corner Store", Status: ShopStatusNew}
	assert.Nil(t, shop.LatestUpdate())

	first := Update{ID: "u1", Timestamp: "2024-01-10T09:00:00Z", Note: "first"}
	second := Update{ID: "u2", Timestamp: "2024-01-11T09:00:00Z", Note: "second"}

	shop.PrependUpdate(first)
	shop.PrependUpdate(second)

	require.Len(t, shop.Updates, 2)
	assert.Equal(t, "u2", shop.Updates[0].ID)
	assert.Equal(t, "u1", shop.Updates[1].ID)

	latest := shop.LatestUpdate()
	require.NotNil(t, latest)
	assert.Equal(t, "second", latest.Note)
}
