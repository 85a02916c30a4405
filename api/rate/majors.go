package rate

import "strings"

// MajorRootPaths are the resources whose immediate ID scopes the bucket, so
// that unrelated channels or guilds never share quota.
var MajorRootPaths = []string{"channels", "guilds"}

// ParseRoute derives the rate-limit bucket key from a request path:
// "/channels/<id>" and "/guilds/<id>" for major resources, otherwise the
// first path segment.
func ParseRoute(path string) string {
	path = strings.SplitN(path, "?", 2)[0]

	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		return "/"
	}

	for _, major := range MajorRootPaths {
		if parts[0] == major && len(parts) >= 2 {
			return "/" + parts[0] + "/" + parts[1]
		}
	}

	return "/" + parts[0]
}
