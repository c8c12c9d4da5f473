package respond

import (
	"regexp"
)

var (
	// GitHub tokens: classic (ghp_, gho_, ghs_ ...) and fine-grained (github_pat_)
	githubTokenPattern = regexp.MustCompile(`\b(gh[pousr]_|github_pat_)[A-Za-z0-9_]{10,}`)

	// StackExchange application keys passed as a query parameter
	stackKeyPattern = regexp.MustCompile(`([?&]key=)[^&\s"]+`)

	// database password inside a DSN
	dbPasswordPattern = regexp.MustCompile(`://([^:/@\s]+):([^@\s]+)@`)
)

// SanitizeError returns the error message with credentials masked.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	msg = githubTokenPattern.ReplaceAllString(msg, "${1}****")
	msg = stackKeyPattern.ReplaceAllString(msg, "${1}****")
	msg = dbPasswordPattern.ReplaceAllString(msg, "://$1:****@")
	return msg
}
