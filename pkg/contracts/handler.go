package contracts

import "github.com/julienschmidt/httprouter"

// Handler is anything that mounts routes on the shared router. Booking,
// availability and health handlers all satisfy it.
type Handler interface {
	RegisterRoutes(router *httprouter.Router)
}
