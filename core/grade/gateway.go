package grade

import "context"

// Gateway is the remote grade store as seen by clients.
// Every call may fail with a transport or validation error carrying a human-readable message.
type Gateway interface {
	FetchGrades(ctx context.Context, filter QueryFilter) ([]Grade, error)
	CreateGrade(ctx context.Context, ng NewGrade) (Grade, error)
	UpdateGrade(ctx context.Context, id int, ug UpdateGrade) (Grade, error)
	DeleteGrade(ctx context.Context, id int) error
	FetchStudents(ctx context.Context) ([]EnrolledStudent, error)
}
