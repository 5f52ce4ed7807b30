package model

// Response is a generic struct for API responses
type Response struct {
	Data    interface{} `json:"data,omitempty"`
	Error   *string     `json:"error,omitempty"`
	Message string      `json:"message"`
}

// ErrorResponse builds the envelope for a failed request.
func ErrorResponse(errMsg string) Response {
	return Response{Error: &errMsg, Message: "Error"}
}

// SuccessResponse builds the envelope for a successful request.
func SuccessResponse(data interface{}) Response {
	return Response{Data: data, Message: "Success"}
}
