package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/angelmondragon/geonmarket-backend/api/responses"
	pkgerrors "github.com/angelmondragon/geonmarket-backend/pkg/errors"
	"github.com/angelmondragon/geonmarket-backend/pkg/logger"
)

// Recoverer answers a panicking handler with INTERNAL_ERROR. An
// http.ErrAbortHandler panic is passed through so the server drops the
// connection as asked.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}
				ctx := logg.WithField(r.Context(), "panic", fmt.Sprint(rec))
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, fmt.Errorf("recovered: %v", rec), "handler panic"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
