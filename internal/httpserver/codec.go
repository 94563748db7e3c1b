package httpserver

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// apiError is the `{error, message}` shape spec.md §6 mandates for
// every non-2xx response.
type apiError struct {
	Error   string `json:"error" msgpack:"error"`
	Message string `json:"message" msgpack:"message"`
}

// decodeBody parses a request body per its Content-Type, matching
// original_source/dsq/http.py's `push`: application/json or
// application/x-msgpack only, anything else is invalid-content-type.
func decodeBody(r *http.Request, v interface{}) (status int, apiErr *apiError) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return http.StatusBadRequest, &apiError{Error: "invalid-encoding", Message: "Can't read body"}
	}

	ct := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(ct, "application/json"):
		if err := json.Unmarshal(body, v); err != nil {
			return http.StatusBadRequest, &apiError{Error: "invalid-encoding", Message: "Can't decode body"}
		}
	case strings.HasPrefix(ct, "application/x-msgpack"):
		if err := msgpack.Unmarshal(body, v); err != nil {
			return http.StatusBadRequest, &apiError{Error: "invalid-encoding", Message: "Can't decode body"}
		}
	default:
		return http.StatusBadRequest, &apiError{Error: "invalid-content-type", Message: "Content must be json or msgpack"}
	}
	return 0, nil
}

// writeResult encodes v per the request's Accept header — msgpack if it
// names application/x-msgpack, JSON (UTF-8) otherwise — and writes it
// with the given status code, matching original_source/dsq/http.py's
// `Application.__call__` response negotiation.
func writeResult(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	if strings.Contains(r.Header.Get("Accept"), "application/x-msgpack") {
		body, err := msgpack.Marshal(v)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/x-msgpack")
		w.WriteHeader(status)
		_, _ = w.Write(body)
		return
	}

	body, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
