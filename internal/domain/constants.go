package domain

// Agent working statuses as stored on agent_breaks rows.
const (
	StatusWorking = "Working"
	StatusBreak   = "Break"
)

// Roles carried in JWT claims.
const (
	RoleAdmin = "admin"
	RoleAgent = "agent"
)

// Agent account states.
const (
	AgentActive   = "Active"
	AgentInactive = "Inactive"
)

// ValidStatus reports whether s is a status the ledger accepts.
func ValidStatus(s string) bool {
	return s == StatusWorking || s == StatusBreak
}
