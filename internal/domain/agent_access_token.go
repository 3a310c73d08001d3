package domain

import "time"

// AgentAccessToken authenticates agent/console calls into the service.
type AgentAccessToken struct {
	ID        int64
	TokenHash string
	AgentID   string
	Abilities string
	ExpiresAt *time.Time
}
