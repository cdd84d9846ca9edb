package monitor

import (
	"encoding/json"
	"net/http"
	"time"
)

type response struct {
	Status    string    `json:"status"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
}

func respondOK(w http.ResponseWriter, reqID string, data any) {
	respondJSON(w, http.StatusOK, reqID, data, "")
}

func respondError(w http.ResponseWriter, reqID string, status int, msg string) {
	respondJSON(w, status, reqID, nil, msg)
}

func respondJSON(w http.ResponseWriter, status int, reqID string, data any, errMsg string) {
	resp := response{
		RequestID: reqID,
		Timestamp: time.Now().UTC(),
		Data:      data,
		Error:     errMsg,
	}
	if errMsg != "" {
		resp.Status = "error"
	} else {
		resp.Status = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
