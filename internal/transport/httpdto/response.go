package httpdto

// Response is the envelope every endpoint returns.
type Response[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func NewSuccessResponse[T any](data T) Response[T] {
	return Response[T]{
		Success: true,
		Data:    data,
	}
}

func NewErrorResponse(message string) Response[any] {
	return Response[any]{
		Success: false,
		Message: message,
	}
}
