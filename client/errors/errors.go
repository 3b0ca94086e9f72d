package errors

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// formatFailures lists every failure of a batch operation on its own line.
func formatFailures(es []error) string {
	if len(es) == 1 {
		return es[0].Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d operations failed:", len(es))
	for _, err := range es {
		b.WriteString("\n\t- ")
		b.WriteString(err.Error())
	}
	return b.String()
}

// FormatErrorOrNil returns nil when merr holds no errors. A single error keeps
// its own message.
func FormatErrorOrNil(merr *multierror.Error) error {
	if merr != nil {
		merr.ErrorFormat = formatFailures
	}
	return merr.ErrorOrNil()
}
