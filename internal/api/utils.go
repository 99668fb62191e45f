package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/tcp_snm/tracker/internal/tracker_errors"
)

// request bodies are small json documents
const maxBodyBytes = 1 << 20

func decodeJsonBody(body io.Reader, v any) error {
	decoder := json.NewDecoder(io.LimitReader(body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("cannot decode body, %w", err)
	}
	return nil
}

func respondWithJson(w http.ResponseWriter, status int, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		log.Errorf("cannot write response, %v", err)
	}
}

// marshalAndRespond writes v as json, or an internal error when v cannot be
// marshalled
func marshalAndRespond(w http.ResponseWriter, status int, v any) {
	response, err := json.Marshal(v)
	if err != nil {
		log.Errorf("cannot marshal %v, %v", v, err)
		http.Error(w, tracker_errors.ErrInternal.Error(), http.StatusInternalServerError)
		return
	}
	respondWithJson(w, status, response)
}
