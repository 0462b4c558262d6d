package api

import (
	"net/http"

	"github.com/dmorgan81/pawtrait/internal/handler"
	"github.com/dmorgan81/pawtrait/internal/log"
)

type errorMapping struct {
	status int
	// detail replaces the error text in the response when set.
	detail string
}

var errorTable = map[handler.Kind]errorMapping{
	handler.KindUnavailable: {status: http.StatusServiceUnavailable},
	handler.KindBadRequest:  {status: http.StatusBadRequest},
	handler.KindNotFound:    {status: http.StatusNotFound, detail: "Prompt not found"},
	handler.KindGeneration:  {status: http.StatusInternalServerError},
	handler.KindUpload:      {status: http.StatusInternalServerError},
	handler.KindInternal:    {status: http.StatusInternalServerError, detail: "internal server error"},
}

// translate maps err onto a status code and the message shown to the client.
func translate(err error) (int, string) {
	m, ok := errorTable[handler.KindOf(err)]
	if !ok {
		m = errorTable[handler.KindInternal]
	}
	if m.detail != "" {
		return m.status, m.detail
	}
	return m.status, err.Error()
}

func logError(r *http.Request, status int, err error) {
	log.FromContextOrDiscard(r.Context()).Error("request failed",
		"status", status, "kind", handler.KindOf(err).String(), "error", err)
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := translate(err)
	logError(r, status, err)
	writeJSON(w, status, map[string]string{"detail": detail})
}
