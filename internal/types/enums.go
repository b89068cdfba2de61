package types

import "slices"

// Task Status values
const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusInReview   = "in_review"
	StatusDone       = "done"
)

// Task Priority values
const (
	PriorityUrgent = "urgent"
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Notification types
const (
	NotificationTaskAssigned  = "TASK_ASSIGNED"
	NotificationTaskCommented = "TASK_COMMENTED"
	NotificationTaskDueSoon   = "TASK_DUE_SOON"
)

// Valid status values for validation
var ValidTaskStatuses = []string{
	StatusTodo, StatusInProgress, StatusInReview, StatusDone,
}

var ValidPriorities = []string{
	PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow,
}

func IsValidTaskStatus(status string) bool {
	return slices.Contains(ValidTaskStatuses, status)
}

func IsValidPriority(priority string) bool {
	return slices.Contains(ValidPriorities, priority)
}
