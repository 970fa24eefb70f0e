package handlers

import "net/http"

// PingResponse is the liveness check payload.
//
// swagger:model PingResponse
type PingResponse struct {
	Msg string `json:"msg"`
}

// Ping answers the liveness check without touching any dependency.
//
// swagger:route GET /ping ping
//
// # Liveness check
//
// ---
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Service is up
//	  schema:
//	    "$ref": "#/definitions/PingResponse"
func Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PingResponse{Msg: "pong"})
}
