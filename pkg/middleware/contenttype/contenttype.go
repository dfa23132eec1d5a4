package contenttype

import (
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/vadimbarashkov/signed-url-shortener/pkg/middleware"
	"github.com/vadimbarashkov/signed-url-shortener/pkg/response"
)

// RequireJSON rejects POST requests under prefix with 406 Not Acceptable
// unless their Content-Type media type is application/json. Parameters such
// as charset are allowed.
func RequireJSON(prefix string) middleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, prefix) && !isJSON(r) {
				render.Status(r, http.StatusNotAcceptable)
				render.JSON(w, r, response.NotAcceptableResponse)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}
