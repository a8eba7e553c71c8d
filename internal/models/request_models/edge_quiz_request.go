package request_models

import "gappy/internal/models/cache_models"

// PersistQuizRequest is the body of PUT /api/edge/quiz.
type PersistQuizRequest struct {
	Result        cache_models.StoredQuizResult `json:"result"`
	Status        cache_models.QuizSyncStatus   `json:"status,omitempty"`
	LastSyncedAt  *int64                        `json:"lastSyncedAt,omitempty"`
	LastAttemptAt *int64                        `json:"lastAttemptAt,omitempty"`
	Error         string                        `json:"error,omitempty"`
	Retriable     *bool                         `json:"retriable,omitempty"`
	EmitEvent     *bool                         `json:"emitEvent,omitempty"`
}
