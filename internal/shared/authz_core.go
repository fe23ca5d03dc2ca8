package shared

// Core platform permissions.
const (
	PermPermissionsRead = "read:permission"
	PermRolesRead       = "read:role"
	PermUsersRead       = "read:user"
)

// Quiz permissions.
const (
	PermQuizRead        = "read:quiz"
	PermResultRead      = "read:result"
	PermUserAnswersRead = "user_answers:read"

	PermQuizProcessStart = "quiz_process:start_quiz"
	PermQuizProcessEnd   = "quiz_process:end_quiz"
)

// CoreScopes lists all permissions related to the core platform.
func CoreScopes() []string {
	return []string{
		PermPermissionsRead,
		PermRolesRead,
		PermUsersRead,
	}
}

// QuizScopes lists permissions guarding quiz reads and the attempt flow.
func QuizScopes() []string {
	return []string{
		PermQuizRead,
		PermResultRead,
		PermUserAnswersRead,
		PermQuizProcessStart,
		PermQuizProcessEnd,
	}
}
