package mid

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ardanlabs/relaybench/foundation/web"
)

// Panics recovers from panics and converts the panic to an error so it is
// reported by the error middleware.
func Panics() web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = fmt.Errorf("PANIC [%v]", rec)
				}
			}()

			return handler(ctx, w, r)
		}

		return h
	}

	return m
}
