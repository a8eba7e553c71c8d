package cache_models

// SyncResource names a piece of account state the sync queue knows how to push.
type SyncResource string

const SyncResourceRecommendation SyncResource = "recommendation"

type ResourceSyncState struct {
	// LastSyncedAt is the stored timestamp (unix ms) of the last value the backend accepted.
	LastSyncedAt int64 `json:"lastSyncedAt"`
}

type SyncState struct {
	Resources map[SyncResource]ResourceSyncState `json:"resources"`
}

// AccountCredentials are forwarded to the backend on every upstream call.
type AccountCredentials struct {
	AccountID    string
	AccountToken string
	AccessToken  string
}

type QuizSyncKind string

const (
	QuizSyncKindSynced   QuizSyncKind = "synced"
	QuizSyncKindNothing  QuizSyncKind = "nothing"
	QuizSyncKindConflict QuizSyncKind = "conflict"
	QuizSyncKindFailed   QuizSyncKind = "failed"
	QuizSyncKindSkipped  QuizSyncKind = "skipped"
)

// QuizSyncResult classifies the outcome of one flush so callers can decide whether to retry.
type QuizSyncResult struct {
	Kind       QuizSyncKind   `json:"kind"`
	Synced     []SyncResource `json:"synced,omitempty"`
	StatusCode int            `json:"statusCode,omitempty"`
	Error      string         `json:"error,omitempty"`
	Retriable  bool           `json:"retriable"`
}
