package cache_models

// StoredTravelType is the outcome of a travel-type quiz run.
type StoredTravelType struct {
	TravelTypeCode        string   `json:"travelTypeCode"`
	TravelTypeName        string   `json:"travelTypeName,omitempty"`
	TravelTypeEmoji       string   `json:"travelTypeEmoji,omitempty"`
	TravelTypeDescription string   `json:"travelTypeDescription,omitempty"`
	LocationLat           *float64 `json:"locationLat,omitempty"`
	LocationLng           *float64 `json:"locationLng,omitempty"`
	LocationPermission    *bool    `json:"locationPermission,omitempty"`
}

// HasLocation reports whether both coordinates are present.
func (t StoredTravelType) HasLocation() bool {
	return t.LocationLat != nil && t.LocationLng != nil
}

// QuizAnswers is kept opaque; the quiz UI owns its shape.
type QuizAnswers map[string]any

type StoredQuizResult struct {
	TravelType StoredTravelType `json:"travelType"`
	Places     []Place          `json:"places"`
	Answers    QuizAnswers      `json:"answers"`
	// Timestamp is unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// QuizPayload is the lightweight view of a stored result.
type QuizPayload struct {
	TravelTypeCode string   `json:"travelTypeCode"`
	TravelTypeName string   `json:"travelTypeName"`
	PlaceIDs       []string `json:"placeIds"`
	Timestamp      int64    `json:"timestamp"`
}

type QuizSyncStatus string

const (
	QuizSyncPending QuizSyncStatus = "pending"
	QuizSyncSynced  QuizSyncStatus = "synced"
	QuizSyncFailed  QuizSyncStatus = "failed"
)

type QuizStatusMeta struct {
	Status        QuizSyncStatus `json:"status"`
	LastSyncedAt  *int64         `json:"lastSyncedAt,omitempty"`
	LastAttemptAt *int64         `json:"lastAttemptAt,omitempty"`
	Error         string         `json:"error,omitempty"`
	Retriable     *bool          `json:"retriable,omitempty"`
}

// QuizResultStatus is the state reported to readers; it adds missing and stale to the persisted statuses.
type QuizResultStatus string

const (
	QuizResultMissing QuizResultStatus = "missing"
	QuizResultPending QuizResultStatus = "pending"
	QuizResultSynced  QuizResultStatus = "synced"
	QuizResultFailed  QuizResultStatus = "failed"
	QuizResultStale   QuizResultStatus = "stale"
)

type QuizResultState struct {
	Status QuizResultStatus  `json:"status"`
	Record *StoredQuizResult `json:"record,omitempty"`
	Meta   *QuizStatusMeta   `json:"meta,omitempty"`
}
