package seperror

import (
	"encoding/json"
	"net/http"
)

// ToHTTPStatus maps an error code to its HTTP status. Unknown codes map to
// 500, matching the "any other failure" policy for collaborator errors.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidRequestData, CodeInvalidSepRequest:
		return http.StatusBadRequest
	case CodeNotAuthorized:
		return http.StatusUnauthorized
	case CodeCustomerNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// WriteError is the single place translating pipeline errors to HTTP
// responses. Internal errors get a generic body so collaborator details never
// leak to clients.
func WriteError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"
	if se, ok := As(err); ok {
		status = ToHTTPStatus(se.Code)
		if se.Code != CodeInternal {
			message = se.Message
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
