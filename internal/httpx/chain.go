package httpx

import (
	"log/slog"
	"net/http"
)

// Result is what an interceptor decides for a request: continue with Request
// (possibly carrying new context values) or answer with Response and stop.
type Result struct {
	Request  *http.Request
	Response *Response
}

type Response struct {
	Status int
	Body   any
}

func Continue(r *http.Request) Result {
	return Result{Request: r}
}

func ShortCircuit(status int, body any) Result {
	return Result{Response: &Response{Status: status, Body: body}}
}

// Interceptor inspects a request before routing. Headers it sets on h are sent
// whether or not it short-circuits.
type Interceptor interface {
	Intercept(r *http.Request, h http.Header) Result
}

type InterceptorFunc func(r *http.Request, h http.Header) Result

func (f InterceptorFunc) Intercept(r *http.Request, h http.Header) Result {
	return f(r, h)
}

// Chain runs interceptors in order and hands the request to next only when
// every one of them continues.
func Chain(next http.Handler, logger *slog.Logger, interceptors ...Interceptor) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, ic := range interceptors {
			res := ic.Intercept(r, w.Header())
			if res.Response != nil {
				WriteJSON(w, logger, res.Response.Status, res.Response.Body)
				return
			}
			r = res.Request
		}
		next.ServeHTTP(w, r)
	})
}
