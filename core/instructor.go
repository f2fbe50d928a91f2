package core

// Instructor is the authenticated user of the gradebook, as carried by API tokens.
type Instructor struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin"`
}
