package editor

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Navigator sink for navigation requests
type Navigator interface {
	/*
		Navigate move the session to a new location

			@param ctx context.Context - execution context
			@param location string - the new location
	*/
	Navigate(ctx context.Context, location string)
}

// LocationTracker Navigator which remembers the current location of one session
type LocationTracker struct {
	lock        sync.Mutex
	location    string
	subscribers listenerSet[string]
}

// NewLocationTracker define a new location tracker starting at the given location
func NewLocationTracker(initial string) *LocationTracker {
	return &LocationTracker{location: initial}
}

// Navigate move the session to a new location
func (t *LocationTracker) Navigate(_ context.Context, location string) {
	t.lock.Lock()
	t.location = location
	t.lock.Unlock()
	t.subscribers.emit(location)
}

// Location the current location
func (t *LocationTracker) Location() string {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.location
}

/*
Subscribe register a listener called on every navigation

	@param listener func(string) - the listener
	@returns function to remove the listener
*/
func (t *LocationTracker) Subscribe(listener func(string)) func() {
	return t.subscribers.add(listener)
}

// Location parsed entity location
type Location struct {
	// Kind the entity kind
	Kind string
	// RecordID the record being edited, empty for the list-only view
	RecordID string
}

// Routes the navigation routes of one entity kind
type Routes struct {
	kind    string
	matcher *chi.Mux
}

// NewRoutes define the routes of an entity kind
func NewRoutes(kind string) Routes {
	noop := func(http.ResponseWriter, *http.Request) {}
	matcher := chi.NewRouter()
	matcher.Get(fmt.Sprintf("/%s", kind), noop)
	matcher.Get(fmt.Sprintf("/%s/{id}/edit", kind), noop)
	return Routes{kind: kind, matcher: matcher}
}

// BaseURL the list view location
func (r Routes) BaseURL() string {
	return fmt.Sprintf("/%s", r.kind)
}

// EditURL the edit location of one record
func (r Routes) EditURL(recordID string) string {
	return fmt.Sprintf("/%s/%s/edit", r.kind, url.PathEscape(recordID))
}

/*
Parse parse a location

	@param location string - the location, query string allowed
	@returns the parsed location, or an error wrapping ErrUnknownLocation
*/
func (r Routes) Parse(location string) (Location, error) {
	parsed, err := url.Parse(location)
	if err != nil {
		return Location{}, fmt.Errorf("location '%s' is not parsable [%w]", location, err)
	}

	rctx := chi.NewRouteContext()
	if !r.matcher.Match(rctx, http.MethodGet, parsed.Path) {
		return Location{}, fmt.Errorf(
			"'%s' is not a %s location [%w]", parsed.Path, r.kind, ErrUnknownLocation,
		)
	}

	return Location{Kind: r.kind, RecordID: rctx.URLParam("id")}, nil
}
