package middleware

import (
	"context"
	"net/http"
	"strings"

	authgate "github.com/calder-io/authgate"
)

type authResultContextKey struct{}

// AuthResultFromContext returns the validation result Guard stored on the
// request context, if any.
func AuthResultFromContext(ctx context.Context) (*authgate.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*authgate.AuthResult)
	return res, ok
}

// Guard rejects requests whose Authorization header does not carry a valid
// bearer access token. Whether the session store is consulted follows the
// engine's StrictValidation setting.
func Guard(engine *authgate.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			res, err := engine.ValidateAccess(r.Context(), token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
