package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/nkiryanov/shortener/internal/handlers/render"
	"github.com/nkiryanov/shortener/internal/logger"
)

// Recovery turns handler panic into 500 response
// With showDetail the panic value and stack are rendered to the client
func Recovery(l logger.Logger, showDetail bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				if recovered == http.ErrAbortHandler {
					panic(recovered)
				}

				stack := string(debug.Stack())
				logger.FromContext(r.Context(), l).Error("panic recovered", "error", fmt.Sprintf("%v", recovered), "stack", stack)

				if showDetail {
					render.ServiceErrorDetail(w, "Internal server error", fmt.Sprintf("%v\n%s", recovered, stack), http.StatusInternalServerError)
					return
				}
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
