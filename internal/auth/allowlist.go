package auth

import (
	"net/http"
	"regexp"
	"slices"
)

type Rule struct {
	Methods []string
	Pattern *regexp.Regexp
}

// AllowList holds the routes reachable without a token.
type AllowList []Rule

// PublicRoutes builds the storefront allow-list under apiPrefix: browsing
// uploads, products and categories, plus login and registration.
func PublicRoutes(apiPrefix string) AllowList {
	prefix := regexp.QuoteMeta(apiPrefix)
	read := []string{http.MethodGet, http.MethodOptions}
	return AllowList{
		{Methods: read, Pattern: regexp.MustCompile(`^/public/uploads(.*)`)},
		{Methods: read, Pattern: regexp.MustCompile(`^` + prefix + `/products(.*)`)},
		{Methods: read, Pattern: regexp.MustCompile(`^` + prefix + `/categories(.*)`)},
		{Methods: []string{http.MethodPost}, Pattern: regexp.MustCompile(`^` + prefix + `/users/login$`)},
		{Methods: []string{http.MethodPost}, Pattern: regexp.MustCompile(`^` + prefix + `/users/register$`)},
	}
}

func (a AllowList) Allows(method, path string) bool {
	for _, rule := range a {
		if slices.Contains(rule.Methods, method) && rule.Pattern.MatchString(path) {
			return true
		}
	}
	return false
}
