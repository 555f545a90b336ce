package main

import (
	"context"
	"strings"
)

// permissiveRegistry stands in for real registry integrations in local and
// test deployments. Any non-empty name counts as registered.
// TODO: replace with HTTP clients for the business registry and tax
// authority once their endpoints are provisioned.
type permissiveRegistry struct{}

func (permissiveRegistry) Lookup(_ context.Context, name string) (bool, error) {
	return strings.TrimSpace(name) != "", nil
}
