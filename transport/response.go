package transport

import (
	"encoding/json"
	"net/http"

	"github.com/diorder/diorder/constant"
	"github.com/diorder/diorder/utils/errors"
)

type response struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Fields  []string    `json:"fields,omitempty"`
	Offline bool        `json:"offline,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func writeSuccess(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, response{
		Code:    constant.ErrorTypeCode[constant.Successful],
		Message: constant.ErrorTypeMessage[constant.Successful],
		Data:    data,
	})
}

// writeSuccessOffline marks a cached answer served while the remote catalog
// was unreachable.
func writeSuccessOffline(w http.ResponseWriter, data interface{}, offline bool) {
	writeJSON(w, http.StatusOK, response{
		Code:    constant.ErrorTypeCode[constant.Successful],
		Message: constant.ErrorTypeMessage[constant.Successful],
		Offline: offline,
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, err error) {
	custom, ok := err.(errors.CustomError)
	if !ok {
		custom = errors.SetCustomError(constant.ErrInternal)
	}

	writeJSON(w, custom.ErrorHTTPCode(), response{
		Code:    custom.ErrorCode(),
		Message: custom.Error(),
		Fields:  custom.Fields(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
