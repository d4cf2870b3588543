package security

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the per-request client identity the pipeline keys its
// counters on. Authenticated clients are tracked by user id so they are
// not penalized for sharing a NAT; everyone else is tracked by IP.
type Identity struct {
	Key           string
	IP            string
	Authenticated bool
}

// IdentityFromRequest derives the client identity. A bearer token that
// verifies against jwtSecret yields `user:<sub>`; anything else falls
// back to `ip:<address>`. An unverifiable token is treated as anonymous
// rather than rejected, since authentication itself belongs to the
// application.
func IdentityFromRequest(r *http.Request, clientIP, jwtSecret string) Identity {
	id := Identity{Key: "ip:" + clientIP, IP: clientIP}

	if jwtSecret == "" {
		return id
	}
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return id
	}

	token, err := jwt.Parse(strings.TrimPrefix(auth, "Bearer "), func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return id
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return id
	}

	id.Key = "user:" + sub
	id.Authenticated = true
	return id
}
