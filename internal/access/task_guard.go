package access

// TaskOperation is an action on a task or one of its sub-resources.
type TaskOperation string

const (
	TaskRead             TaskOperation = "read"
	TaskUpdate           TaskOperation = "update"
	TaskDelete           TaskOperation = "delete"
	TaskComment          TaskOperation = "comment"
	TaskAttach           TaskOperation = "attach"
	TaskDeleteComment    TaskOperation = "delete-comment"
	TaskDeleteAttachment TaskOperation = "delete-attachment"
)

// CheckTask decides a task operation. Rules are evaluated in order and the
// first match wins:
//
//  1. no project role: not-a-member, for every operation
//  2. read, comment, attach: any resolved role
//  3. update: reporter, assignee, or admin+
//  4. delete: reporter or admin+ (the assignee alone may not delete)
//  5. delete-comment, delete-attachment: sub-resource owner or admin+
//
// isSubresourceOwner is only consulted for rule 5; the caller looks it up.
func CheckTask(role Role, op TaskOperation, task *Task, actingUserID string, isSubresourceOwner bool) Decision {
	if role == RoleNone {
		return Deny(ReasonNotMember)
	}
	if task == nil || !role.IsResolved() {
		return Deny(ReasonInsufficientRole)
	}

	switch op {
	case TaskRead, TaskComment, TaskAttach:
		return Allow()

	case TaskUpdate:
		if isReporter(task, actingUserID) || isAssignee(task, actingUserID) || role.AtLeast(RoleAdmin) {
			return Allow()
		}

	case TaskDelete:
		if isReporter(task, actingUserID) || role.AtLeast(RoleAdmin) {
			return Allow()
		}

	case TaskDeleteComment, TaskDeleteAttachment:
		if isSubresourceOwner || role.AtLeast(RoleAdmin) {
			return Allow()
		}
	}

	return Deny(ReasonInsufficientRole)
}

func isReporter(task *Task, userID string) bool {
	return userID != "" && task.ReporterID == userID
}

func isAssignee(task *Task, userID string) bool {
	return userID != "" && task.AssigneeID != nil && *task.AssigneeID == userID
}
