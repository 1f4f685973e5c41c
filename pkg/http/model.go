package http

// APIResponse is the envelope every read endpoint answers with.
type APIResponse struct {
	Status  int         `json:"status" example:"200"`
	Message string      `json:"message" example:"OK"`
	Data    interface{} `json:"data,omitempty"`
}

// ValidationError describes one rejected request field.
type ValidationError struct {
	Code    string                 `json:"code,omitempty" example:"ERR_GTE"`
	Field   string                 `json:"field,omitempty" example:"K"`
	Message string                 `json:"message,omitempty" example:"K must be greater than or equal to 1"`
	Params  map[string]interface{} `json:"params,omitempty"`
}
