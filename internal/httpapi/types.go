package httpapi

type chatRequest struct {
	StudentID string `json:"student_id"`
	Message   string `json:"message"`
}

type wsError struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}
