package models

// ServiceHandle identifies the server instance a run verifies.
// Owned is true only when the run started the container itself.
type ServiceHandle struct {
	Name  string
	URL   string
	Owned bool
}
