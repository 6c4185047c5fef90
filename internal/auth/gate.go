package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/joao-fontenele/storefront-api/internal/httpx"
)

type Outcome int

const (
	Bypass Outcome = iota
	Admitted
	Unauthenticated
	Forbidden
)

// Decision is what the gate concluded for one request.
type Decision struct {
	Outcome Outcome
	Claims  *Claims
	Reason  string
}

// Gate admits allow-listed requests untouched and requires an admin token
// for everything else.
type Gate struct {
	allow  AllowList
	secret []byte
}

func NewGate(allow AllowList, secret string) *Gate {
	return &Gate{allow: allow, secret: []byte(secret)}
}

func (g *Gate) Decide(r *http.Request) Decision {
	if g.allow.Allows(r.Method, r.URL.Path) {
		return Decision{Outcome: Bypass}
	}

	v := Verify(bearerToken(r), g.secret)
	if !v.Valid() {
		return Decision{Outcome: Unauthenticated, Reason: v.Reason}
	}
	if !v.Claims.IsAdmin {
		return Decision{Outcome: Forbidden, Claims: v.Claims, Reason: "admin role required"}
	}
	return Decision{Outcome: Admitted, Claims: v.Claims}
}

func (g *Gate) Intercept(r *http.Request, _ http.Header) httpx.Result {
	d := g.Decide(r)
	switch d.Outcome {
	case Bypass:
		return httpx.Continue(r)
	case Admitted:
		return httpx.Continue(r.WithContext(WithClaims(r.Context(), d.Claims)))
	case Forbidden:
		return httpx.ShortCircuit(http.StatusForbidden, httpx.MessageBody{Message: "forbidden: " + d.Reason})
	default:
		return httpx.ShortCircuit(http.StatusUnauthorized, httpx.MessageBody{Message: "unauthorized: " + d.Reason})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

type claimsKey struct{}

func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}
