package server

import (
	"fmt"
	"strings"
)

// parseNamespacedPath splits a request path of the form "A/Some_Article"
// into its namespace byte and URL, mirroring the on-disk (namespace, url)
// directory key.
func parseNamespacedPath(p string) (byte, string, error) {
	p = strings.TrimPrefix(p, "/")
	ns, url, found := strings.Cut(p, "/")
	if !found || len(ns) != 1 {
		return 0, "", fmt.Errorf("path must be <namespace>/<url>, got %q", p)
	}
	return ns[0], url, nil
}
