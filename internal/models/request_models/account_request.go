package request_models

type RegisterAccountRequest struct {
	DisplayName string `json:"displayName"`
}
