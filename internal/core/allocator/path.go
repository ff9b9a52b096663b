package allocator

import (
	"strconv"
	"strings"
)

// SplitPath breaks p into its directory prefix (with trailing slash), base name
// and extension. The extension starts at the last '.' of the final element and
// is empty when there is none.
func SplitPath(p string) (dir, base, ext string) {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		dir, p = p[:i+1], p[i+1:]
	}
	if i := strings.LastIndex(p, "."); i >= 0 {
		return dir, p[:i], p[i:]
	}
	return dir, p, ""
}

// Candidate is the n-th numbered variant of original: "dir/base (n).ext"
func Candidate(original string, n int) string {
	dir, base, ext := SplitPath(original)
	return dir + base + " (" + strconv.Itoa(n) + ")" + ext
}
