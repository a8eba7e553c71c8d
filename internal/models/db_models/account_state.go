package db_models

import "github.com/google/uuid"

// AccountState is the server copy of one synced client resource.
type AccountState struct {
	BaseModel
	AccountID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_account_state_resource"`
	Resource  string    `gorm:"uniqueIndex:idx_account_state_resource"`
	Payload   string    `gorm:"type:jsonb"`
	// ClientTimestamp is the unix ms timestamp the client attached to the payload.
	ClientTimestamp int64
}
