package kvstore

import (
	"strings"

	"github.com/gobwas/glob"
)

// braceEscaper quotes the alternation braces gobwas/glob understands but the
// Redis MATCH syntax treats as literals.
var braceEscaper = strings.NewReplacer("{", `\{`, "}", `\}`)

// compilePattern turns a Redis-style glob (*, ?, [set], \-escapes) into a
// matcher for the backends that enumerate keys themselves. Keys carry no
// path separators, so * spans ':' just as it does in Redis.
func compilePattern(pattern string) (glob.Glob, error) {
	return glob.Compile(braceEscaper.Replace(pattern))
}
