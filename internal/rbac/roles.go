package rbac

// Role names. Keep these stable; they are embedded in issued operator tokens.
const (
	RoleAdmin     = "admin"
	RoleLogViewer = "log_viewer"
)

func IsAdmin(role string) bool { return role == RoleAdmin }

func Known(role string) bool { return role == RoleAdmin || role == RoleLogViewer }
