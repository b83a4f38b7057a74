package redis

import "strings"

// DefaultNamespace prefixes every key written by linkdex.
const DefaultNamespace = "linkdex:"

// globReplacer escapes the MATCH metacharacters. Page keys are URLs and
// routinely contain '?' and sometimes '[' or '*'.
var globReplacer = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`?`, `\?`,
	`[`, `\[`,
	`]`, `\]`,
)

func escapeGlob(s string) string {
	return globReplacer.Replace(s)
}
