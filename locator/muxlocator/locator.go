// Package muxlocator builds and resolves hyperlinks against a gorilla/mux router.
//
// Endpoints are route names. A route carries the object reference in one path variable:
// the variable named by WithVar ("pk" by default), or the route's only variable.
//
//	r := mux.NewRouter()
//	r.HandleFunc("/artists/{pk}/", artistDetail).Name("artist-detail")
//	loc := muxlocator.New(r, muxlocator.WithBaseURL("https://api.example.com"))
//	dsl.HyperlinkedRelated("artist-detail", loc, dsl.Queryset(artists))
package muxlocator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

var (
	// ErrUnknownEndpoint is returned by Build for a route name the router does not know.
	ErrUnknownEndpoint = errors.New("muxlocator: unknown endpoint")
	// ErrNoMatch is returned by Resolve when no named route matches the locator.
	ErrNoMatch = errors.New("muxlocator: no route matches")
)

// Locator implements shape.Locator over a *mux.Router.
type Locator struct {
	router *mux.Router
	param  string
	base   *url.URL
}

type Option func(*Locator)

// WithVar names the path variable holding the reference.
func WithVar(name string) Option { return func(l *Locator) { l.param = name } }

// WithBaseURL makes Build return absolute links under base. Resolve accepts both absolute
// links under base and bare paths. An unparsable base is ignored.
func WithBaseURL(base string) Option {
	return func(l *Locator) {
		u, err := url.Parse(strings.TrimSuffix(base, "/"))
		if err == nil {
			l.base = u
		}
	}
}

func New(r *mux.Router, opts ...Option) *Locator {
	l := &Locator{router: r, param: "pk"}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Build reverses the route named endpoint with ref in its reference variable.
func (l *Locator) Build(_ context.Context, endpoint string, ref any) (string, error) {
	route := l.router.Get(endpoint)
	if route == nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownEndpoint, endpoint)
	}
	names, err := route.GetVarNames()
	if err != nil {
		return "", err
	}
	name, ok := l.pick(names)
	if !ok {
		return "", fmt.Errorf("muxlocator: route %q has no reference variable", endpoint)
	}
	u, err := route.URLPath(name, fmt.Sprint(ref))
	if err != nil {
		return "", fmt.Errorf("muxlocator: build %q: %w", endpoint, err)
	}
	if l.base == nil {
		return u.String(), nil
	}
	out := *l.base
	out.Path = l.base.Path + u.Path
	return out.String(), nil
}

// Resolve matches the path of locator against the router and returns the route name and the
// reference it carries.
func (l *Locator) Resolve(ctx context.Context, locator string) (string, string, error) {
	u, err := url.Parse(locator)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrNoMatch, err)
	}
	path := u.Path
	if l.base != nil {
		if u.IsAbs() && (u.Scheme != l.base.Scheme || u.Host != l.base.Host) {
			return "", "", fmt.Errorf("%w: foreign host %q", ErrNoMatch, u.Host)
		}
		if p := l.base.Path; p != "" {
			if !strings.HasPrefix(path, p+"/") {
				return "", "", fmt.Errorf("%w: %q", ErrNoMatch, path)
			}
			path = strings.TrimPrefix(path, p)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrNoMatch, err)
	}
	var match mux.RouteMatch
	if !l.router.Match(req, &match) || match.Route == nil || match.Route.GetName() == "" {
		zerolog.Ctx(ctx).Debug().Str("locator", locator).Msg("no route matched")
		return "", "", fmt.Errorf("%w: %q", ErrNoMatch, path)
	}
	names := make([]string, 0, len(match.Vars))
	for k := range match.Vars {
		names = append(names, k)
	}
	name, ok := l.pick(names)
	if !ok {
		return "", "", fmt.Errorf("%w: route %q has no reference variable", ErrNoMatch, match.Route.GetName())
	}
	return match.Route.GetName(), match.Vars[name], nil
}

func (l *Locator) pick(names []string) (string, bool) {
	for _, n := range names {
		if n == l.param {
			return n, true
		}
	}
	if len(names) == 1 {
		return names[0], true
	}
	return "", false
}
