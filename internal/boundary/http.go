package boundary

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"github.com/gxo-labs/visacheck/internal/logger"
	vclog "github.com/gxo-labs/visacheck/pkg/visacheck/v1/log"
)

// Recoverer is HTTP middleware that turns a panicking handler into a 500
// response carrying the default notice. http.ErrAbortHandler is re-raised.
func Recoverer(log vclog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	log = log.With("component", "ErrorBoundary")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				err := &PanicError{Value: rec, Stack: debug.Stack()}
				log.Errorf("ErrorBoundary caught an error handling %s %s: %v", r.Method, r.URL.Path, err)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(struct {
					Error string `json:"error"`
					Notice
				}{Error: "internal_error", Notice: DefaultNotice})
			}()
			next.ServeHTTP(w, r)
		})
	}
}
