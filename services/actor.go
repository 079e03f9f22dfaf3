package services

// Actor identifies who performs an action, for audit trails.
type Actor struct {
	UserID string
	Email  string
}
