// Package activity is the append-only audit log. Entries are never mutated
// or deleted here; reads serve the admin dashboard.
package activity

import "time"

// Type tags the subsystem an entry belongs to.
type Type string

const (
	TypeVehicle Type = "vehicle"
	TypeMessage Type = "message"
	TypeVisitor Type = "visitor"
	TypeAdmin   Type = "admin"
)

// Entry is one immutable audit record.
type Entry struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	User      string    `json:"user"`
	CreatedAt time.Time `json:"timestamp"`
}
