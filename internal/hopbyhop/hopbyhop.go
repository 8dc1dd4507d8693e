// Package hopbyhop holds the single hop-by-hop header set that both the
// server's HTTP ingress (C4) and the client's local forwarder (C5) strip in
// their respective directions, per spec.md §4.4.
package hopbyhop

import "strings"

var headers = map[string]bool{
	"connection":          true,
	"keep-alive":          true,
	"proxy-authenticate":  true,
	"proxy-authorization": true,
	"te":                  true,
	"trailers":            true,
	"transfer-encoding":   true,
	"upgrade":             true,
}

// Is reports whether name (compared case-insensitively) is a hop-by-hop header.
func Is(name string) bool {
	return headers[strings.ToLower(name)]
}

// Filter copies src into a new map, lowercasing keys and dropping hop-by-hop
// headers and any key that carries no values (an empty-string value is
// kept). For a
// multi-valued header, the last occurrence wins, matching the
// insert-per-occurrence behavior of the original proxy this is ported from.
func Filter(src map[string][]string) map[string]string {
	out := make(map[string]string, len(src))
	for k, v := range src {
		lower := strings.ToLower(k)
		if Is(lower) || len(v) == 0 {
			continue
		}
		out[lower] = v[len(v)-1]
	}
	return out
}
