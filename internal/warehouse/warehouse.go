package warehouse

import (
	"context"
	"fmt"
	"regexp"
)

// Loader appends a stored snapshot into the staging table, creating the
// table with the canonical schema when it does not exist. Loading the same
// snapshot twice appends its rows twice.
type Loader interface {
	Load(ctx context.Context, uri string) error
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func checkIdent(kind, name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("invalid %s name %q", kind, name)
	}
	return nil
}
