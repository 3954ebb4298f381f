package roomhandler

type ErrorResponse struct {
	Error string `json:"error"`
}
