package restapi

import (
	"errors"
	"net/http"

	"github.com/nvme-dem/nvme-dem/pkg/model"
)

// writeError maps a handler error to spec §7's status-code taxonomy and
// writes a plain-text body, preserving the 402-for-not-found quirk kept for
// wire compatibility with dem-cli (spec §4.5, §6).
func writeError(w http.ResponseWriter, err error) {
	var merr *model.Error
	if errors.As(err, &merr) {
		switch merr.Kind {
		case model.ErrNotFound:
			httpError(w, http.StatusPaymentRequired, err) // 402, sic
		case model.ErrExists:
			httpError(w, http.StatusConflict, err)
		case model.ErrInvalid:
			httpError(w, http.StatusBadRequest, err)
		case model.ErrNoMemory:
			httpError(w, http.StatusInternalServerError, err)
		default:
			httpError(w, http.StatusInternalServerError, err)
		}
		return
	}
	httpError(w, http.StatusInternalServerError, err)
}

func httpError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(err.Error()))
}

func badRequest(w http.ResponseWriter, msg string) {
	httpError(w, http.StatusBadRequest, errors.New(msg))
}

func forbidden(w http.ResponseWriter, msg string) {
	httpError(w, http.StatusForbidden, errors.New(msg))
}
