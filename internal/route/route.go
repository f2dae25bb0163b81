// Package route decides, per request path and caller state, whether the
// request may continue or must be redirected. It performs no I/O.
package route

import (
	"strings"

	"classteamup/internal/user"
)

const (
	Root           = "/"
	LoginPath      = "/auth/login"
	DashboardRoot  = "/dashboard"
	StudentHome    = "/dashboard/student"
	InstructorHome = "/dashboard/instructor"

	authPrefix = "/auth"
)

// AuthState is the resolved caller. Role may be empty when it is unknown.
type AuthState struct {
	Authenticated bool
	UserID        string
	Role          user.Role
}

// Decision is Allow when Target is empty, otherwise a redirect to Target.
type Decision struct {
	Target string
}

var Allow = Decision{}

func RedirectTo(target string) Decision {
	return Decision{Target: target}
}

func (d Decision) Allowed() bool {
	return d.Target == ""
}

// RoleHome is the landing page for role. Unknown roles get the student
// dashboard, never the instructor one.
func RoleHome(role user.Role) string {
	if role == user.RoleInstructor {
		return InstructorHome
	}
	return StudentHome
}

// Guarded reports whether path belongs to the set the redirect policy runs
// on: the root, the auth area and the protected area.
func Guarded(path string) bool {
	return path == Root || strings.HasPrefix(path, authPrefix) || strings.HasPrefix(path, DashboardRoot)
}

// Classify applies the redirect policy. Rules are evaluated in order and the
// first match wins. Prefixes are plain string prefixes: "/dashboardx" is
// inside the protected area and "/dashboard/instructors" inside the
// instructor subtree.
func Classify(path string, state AuthState) Decision {
	switch {
	case path == Root && state.Authenticated:
		return RedirectTo(RoleHome(state.Role))

	case strings.HasPrefix(path, DashboardRoot) && !state.Authenticated:
		return RedirectTo(LoginPath)

	case path == DashboardRoot:
		return RedirectTo(RoleHome(state.Role))

	case strings.HasPrefix(path, InstructorHome) && state.Role != user.RoleInstructor:
		return RedirectTo(StudentHome)

	case strings.HasPrefix(path, DashboardRoot+"/") && state.Role == user.RoleInstructor &&
		!strings.HasPrefix(path, InstructorHome):
		return RedirectTo(InstructorHome)

	case strings.HasPrefix(path, authPrefix) && state.Authenticated:
		return RedirectTo(RoleHome(state.Role))
	}

	return Allow
}
