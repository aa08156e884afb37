package lendkit

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Default places the guard looks for a session id.
const (
	SessionHeader = "X-Session-ID"
	SessionCookie = "lendkit_session"
)

// Guard provides HTTP middleware that gates routes on the session's role snapshot.
type Guard struct {
	evaluator    *AccessPolicyEvaluator
	sessions     *SessionManager
	getSessionID func(*http.Request) string
	errorHandler func(http.ResponseWriter, *http.Request, error)
}

// GuardOption configures the Guard.
type GuardOption func(*Guard)

// NewGuard creates a new Guard. sessions may be nil when every request
// already carries a snapshot in its context (see WithSnapshot).
//
// Example:
//
//	guard := lendkit.NewGuard(kit.Evaluator, kit.Sessions(snapshots))
//	r := chi.NewRouter()
//	r.Use(guard.LoadSnapshot(), guard.InjectAuditContext())
//	r.With(guard.RequireFeature(lendkit.FeatureInventoryAdd, lendkit.LibraryFromParam("libraryID"))).
//	    Post("/libraries/{libraryID}/books", addBookHandler)
func NewGuard(evaluator *AccessPolicyEvaluator, sessions *SessionManager, opts ...GuardOption) *Guard {
	g := &Guard{
		evaluator:    evaluator,
		sessions:     sessions,
		getSessionID: defaultGetSessionID,
		errorHandler: defaultErrorHandler,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// WithSessionIDExtractor sets a custom function to extract the session id from a request.
func WithSessionIDExtractor(fn func(*http.Request) string) GuardOption {
	return func(g *Guard) {
		g.getSessionID = fn
	}
}

// WithErrorHandler sets a custom error handler for the guard.
func WithErrorHandler(fn func(http.ResponseWriter, *http.Request, error)) GuardOption {
	return func(g *Guard) {
		g.errorHandler = fn
	}
}

func defaultGetSessionID(r *http.Request) string {
	if id := GetSessionID(r.Context()); id != "" {
		return id
	}
	if id := r.Header.Get(SessionHeader); id != "" {
		return id
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNoSession):
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	case IsAuthorization(err):
		http.Error(w, "Forbidden", http.StatusForbidden)
	case IsNotFound(err):
		http.Error(w, "Not Found", http.StatusNotFound)
	case IsValidation(err):
		http.Error(w, "Bad Request", http.StatusBadRequest)
	default:
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// LibraryExtractor extracts the target library id from an HTTP request.
type LibraryExtractor func(*http.Request) (string, error)

// LibraryFromParam reads the library id from a chi URL parameter, falling
// back to the standard library's path values.
//
// Example:
//
//	// For route /libraries/{libraryID}/books
//	guard.RequireFeature(lendkit.FeatureInventoryAdd, lendkit.LibraryFromParam("libraryID"))
func LibraryFromParam(paramName string) LibraryExtractor {
	return func(r *http.Request) (string, error) {
		id := chi.URLParam(r, paramName)
		if id == "" {
			id = r.PathValue(paramName)
		}
		if id == "" {
			return "", NewError(ErrValidation, "library id not found in request")
		}
		return id, nil
	}
}

// LibraryFromQuery reads the library id from a query parameter.
func LibraryFromQuery(queryParam string) LibraryExtractor {
	return func(r *http.Request) (string, error) {
		id := r.URL.Query().Get(queryParam)
		if id == "" {
			return "", NewError(ErrValidation, "library id not found in query")
		}
		return id, nil
	}
}

// LibraryFromHeader reads the library id from a header.
func LibraryFromHeader(headerName string) LibraryExtractor {
	return func(r *http.Request) (string, error) {
		id := r.Header.Get(headerName)
		if id == "" {
			return "", NewError(ErrValidation, "library id not found in header")
		}
		return id, nil
	}
}

// NoLibrary is the extractor for features that are not tied to one library.
// Scoped features then pass when the user holds any assigned library.
func NoLibrary(*http.Request) (string, error) {
	return "", nil
}

// snapshot returns the request's snapshot, loading it from the session when
// LoadSnapshot did not run.
func (g *Guard) snapshot(r *http.Request) (RoleSnapshot, error) {
	if s := GetSnapshot(r.Context()); s != nil {
		return *s, nil
	}
	if g.sessions == nil {
		return RoleSnapshot{}, NewError(ErrNoSession, "no role snapshot in context")
	}
	sessionID := g.getSessionID(r)
	if sessionID == "" {
		return RoleSnapshot{}, NewError(ErrNoSession, "session id not found in request")
	}
	return g.sessions.Snapshot(r.Context(), sessionID)
}

// RequireFeature creates middleware that requires a feature, optionally in
// the library returned by extractor.
//
// Example:
//
//	router.With(guard.RequireFeature(lendkit.FeatureRecordsView, lendkit.LibraryFromParam("libraryID"))).
//	    Get("/libraries/{libraryID}/loans", listLoansHandler)
func (g *Guard) RequireFeature(feature string, extractor LibraryExtractor) func(http.Handler) http.Handler {
	if extractor == nil {
		extractor = NoLibrary
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snapshot, err := g.snapshot(r)
			if err != nil {
				g.errorHandler(w, r, err)
				return
			}

			libraryID, err := extractor(r)
			if err != nil {
				g.errorHandler(w, r, err)
				return
			}

			if !g.evaluator.CanAccessFeature(snapshot, feature, libraryID) {
				e := NewError(ErrAuthorization, "missing required feature: "+feature).WithUser(snapshot.UserID)
				if libraryID != "" {
					e = e.WithLibraries([]string{libraryID})
				}
				g.errorHandler(w, r, e)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSnapshot(r.Context(), snapshot)))
		})
	}
}

// RequireAdmin creates middleware that only lets administrators through.
//
// Example:
//
//	router.With(guard.RequireAdmin()).Get("/admin/audit", auditHandler)
func (g *Guard) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snapshot, err := g.snapshot(r)
			if err != nil {
				g.errorHandler(w, r, err)
				return
			}
			if snapshot.Role != RoleAdmin {
				g.errorHandler(w, r, NewError(ErrAuthorization, MsgOnlyAdmins).WithUser(snapshot.UserID))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSnapshot(r.Context(), snapshot)))
		})
	}
}

// LoadSnapshot creates middleware that loads the session's snapshot into the
// context. Requests without a session continue without one.
//
// Example:
//
//	router.With(guard.LoadSnapshot()).Get("/", homeHandler)
//
//	func homeHandler(w http.ResponseWriter, r *http.Request) {
//	    if s := lendkit.GetSnapshot(r.Context()); s != nil {
//	        features := evaluator.Features(*s)
//	    }
//	}
func (g *Guard) LoadSnapshot() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if GetSnapshot(r.Context()) != nil || g.sessions == nil {
				next.ServeHTTP(w, r)
				return
			}
			sessionID := g.getSessionID(r)
			if sessionID == "" {
				next.ServeHTTP(w, r)
				return
			}

			snapshot, err := g.sessions.Snapshot(r.Context(), sessionID)
			if err != nil {
				if errors.Is(err, ErrNoSession) {
					next.ServeHTTP(w, r)
					return
				}
				g.errorHandler(w, r, err)
				return
			}

			ctx := WithSessionID(r.Context(), sessionID)
			ctx = WithSnapshot(ctx, snapshot)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// InjectAuditContext creates middleware that extracts audit information from the request
// and adds it to the context for use by role and library operations.
//
// Example:
//
//	router.Use(guard.InjectAuditContext())
func (g *Guard) InjectAuditContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if ip := ClientIP(r); ip != "" {
				ctx = WithIPAddress(ctx, ip)
			}
			ctx = WithUserAgent(ctx, r.UserAgent())

			if requestID := r.Header.Get("X-Request-ID"); requestID != "" {
				ctx = WithRequestID(ctx, requestID)
			}

			if s := GetSnapshot(ctx); s != nil {
				ctx = WithActorID(ctx, s.UserID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIP returns the client address of a request without its port:
// the first X-Forwarded-For hop, then X-Real-IP, then RemoteAddr. Header
// values that are not IP addresses are ignored. It returns "" when no
// source holds one.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := parseIP(first); ip != "" {
			return ip
		}
	}
	if ip := parseIP(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return parseIP(host)
}

func parseIP(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return ""
	}
	return ip.String()
}
