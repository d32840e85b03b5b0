package api

// sortableFields is the enumerated set a caller may sort on. The access
// layer itself orders by any field; this restriction is a boundary rule.
var sortableFields = []string{"height", "weight", "bmi"}

func isSortable(field string) bool {
	for _, f := range sortableFields {
		if f == field {
			return true
		}
	}
	return false
}

// messageResponse is the plain-message body used by most endpoints.
type messageResponse struct {
	Message string `json:"message"`
}

// errorResponse mirrors the failure body shape.
type errorResponse struct {
	Error string `json:"error"`
}

// updateResponse carries the post-update record alongside the message.
type updateResponse struct {
	Message       string         `json:"message"`
	UpdatedRecord map[string]any `json:"updated_record"`
}

// healthResponse reports liveness with the current time in the
// configured timezone.
type healthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}
