package cli

import (
	"errors"
	"fmt"
)

var (
	errNoAPI       = errors.New("no api base url; pass --api or run `leadboard config set apiBaseUrl <url>`")
	errNoWorkspace = errors.New("no workspace; pass --workspace or run `leadboard workspaces use <id>`")
)

type notFoundError struct {
	kind string
	id   string
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.kind, e.id)
}

func errNotFound(kind, id string) error {
	return notFoundError{kind: kind, id: id}
}
