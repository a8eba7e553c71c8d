package response_models

// AccountResponse carries the plain account token; it is never returned again after registration.
type AccountResponse struct {
	AccountID    string `json:"accountId"`
	AccountToken string `json:"accountToken"`
}
