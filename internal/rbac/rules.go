package rbac

const (
	PermQuizView        = "quiz:view"
	PermQuizCreate      = "quiz:create"
	PermQuizUpdate      = "quiz:update"
	PermQuizDelete      = "quiz:delete"
	PermAttemptSubmit   = "attempt:submit"
	PermAttemptViewOwn  = "attempt:view-own"
	PermAttemptViewAll  = "attempt:view-all"
	PermResultsView     = "results:view"
	PermEventsView      = "events:view"
	PermUsersList       = "users:list"
	PermUsersBulkUpsert = "users:bulk_upsert"
	PermPasswordChange  = "user:change_password"
)

// Default policy. Admins may do everything; students take quizzes.
var RolePermissions = map[string][]string{
	"student": {
		PermQuizView,
		PermAttemptSubmit,
		PermAttemptViewOwn,
		PermPasswordChange,
	},
	"admin": {
		"*", // everything
	},
}
