package recoverer

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/render"
	"github.com/vadimbarashkov/signed-url-shortener/pkg/middleware"
	"github.com/vadimbarashkov/signed-url-shortener/pkg/response"
)

// New returns a middleware that turns a panic into a logged error and a JSON
// 500 response. http.ErrAbortHandler is re-panicked.
func New(logger *slog.Logger) middleware.Middleware {
	const op = "middleware.recoverer.New"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}

				logger.ErrorContext(r.Context(),
					"something went wrong, panic occurred",
					slog.Group(op, slog.Any("err", rvr), slog.String("stack", string(debug.Stack()))),
				)

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.ServerErrorResponse)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
