package authkit

import (
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/gorilla/mux"
)

// RouteClass buckets application paths by the access they require
type RouteClass int

const (
	// RoutePublic is reachable regardless of session state
	RoutePublic RouteClass = iota
	// RouteEntry is for signed-out visitors only: landing, login, signup
	RouteEntry
	// RouteProtected requires a signed-in user
	RouteProtected
	// RoutePremium requires a signed-in premium user
	RoutePremium
	// RouteAdmin requires a signed-in admin
	RouteAdmin
)

// GuardVerdict is what the router should do with a navigation
type GuardVerdict int

const (
	// VerdictAllow lets the navigation proceed
	VerdictAllow GuardVerdict = iota
	// VerdictLoading means session state is still resolving; render a
	// loading indicator instead of deciding
	VerdictLoading
	// VerdictRedirect sends the user to the accompanying path
	VerdictRedirect
)

// Guard implements the navigation decision table over session state
type Guard struct {
	// LandingPath is where signed-out users are sent from gated paths
	LandingPath string
	// HomePath is the signed-in home, where entry paths redirect to
	HomePath string
	// UpgradePath is where non-premium users are sent from premium paths
	UpgradePath string
	// Classify maps a request path to its RouteClass
	Classify func(path string) RouteClass
	// Loading renders while the session is still resolving
	Loading http.Handler
}

// EnsureReasonableDefaults fills unset config with workable values
func (g *Guard) EnsureReasonableDefaults() {
	if g.LandingPath == "" {
		g.LandingPath = "/"
	}
	if g.HomePath == "" {
		g.HomePath = "/problems"
	}
	// the upgrade page itself must stay reachable for non-premium users
	if g.UpgradePath == "" {
		g.UpgradePath = "/pricing"
	}
	if g.Classify == nil {
		g.Classify = PrefixClassifier(map[string]RouteClass{
			"/":        RouteEntry,
			"/login":   RouteEntry,
			"/signup":  RouteEntry,
			"/admin":   RouteAdmin,
			"/premium": RoutePremium,
		}, RouteProtected)
	}
	if g.Loading == nil {
		g.Loading = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "loading")
		})
	}
}

// Decide implements the access table for one navigation: while loading,
// hold; entry paths bounce authenticated users home; gated paths bounce
// unauthenticated users to the landing page; premium and admin paths
// additionally check the user record.
func (g *Guard) Decide(st State, class RouteClass) (GuardVerdict, string) {
	g.EnsureReasonableDefaults()
	if st.Loading {
		return VerdictLoading, ""
	}
	switch class {
	case RouteEntry:
		if st.IsAuthenticated {
			return VerdictRedirect, g.HomePath
		}
	case RouteProtected:
		if !st.IsAuthenticated {
			return VerdictRedirect, g.LandingPath
		}
	case RoutePremium:
		if !st.IsAuthenticated {
			return VerdictRedirect, g.LandingPath
		}
		if st.User == nil || !st.User.IsPremium {
			return VerdictRedirect, g.UpgradePath
		}
	case RouteAdmin:
		if !st.IsAuthenticated {
			return VerdictRedirect, g.LandingPath
		}
		if !st.User.IsAdmin() {
			return VerdictRedirect, g.HomePath
		}
	}
	return VerdictAllow, ""
}

// Middleware adapts the decision table to a gorilla/mux router, for apps
// that serve their frontend from Go
func (g *Guard) Middleware(store *Store) mux.MiddlewareFunc {
	g.EnsureReasonableDefaults()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			verdict, target := g.Decide(store.Snapshot(), g.Classify(r.URL.Path))
			switch verdict {
			case VerdictLoading:
				g.Loading.ServeHTTP(w, r)
			case VerdictRedirect:
				http.Redirect(w, r, target, http.StatusFound)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// PrefixClassifier builds a Classify func from path-prefix rules, longest
// prefix winning. "/" only matches exactly; every other rule matches the
// prefix at a path-segment boundary. Paths matching no rule get fallback.
func PrefixClassifier(rules map[string]RouteClass, fallback RouteClass) func(string) RouteClass {
	prefixes := make([]string, 0, len(rules))
	for p := range rules {
		prefixes = append(prefixes, p)
	}
	sort.Slice(prefixes, func(i, j int) bool {
		return len(prefixes[i]) > len(prefixes[j])
	})
	return func(path string) RouteClass {
		for _, p := range prefixes {
			if p == "/" {
				if path == "/" {
					return rules[p]
				}
				continue
			}
			if path == p || strings.HasPrefix(path, p+"/") {
				return rules[p]
			}
		}
		return fallback
	}
}
