/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package validation

import "context"

type ctxKey int

const ctxKeyGroups ctxKey = iota

// NewContextWithGroups returns a derived context that carries an explicit set of constraint groups.
// For calls made with this context the set fully replaces the configured groups.
func NewContextWithGroups(ctx context.Context, groups ...string) context.Context {
	return context.WithValue(ctx, ctxKeyGroups, append([]string(nil), groups...))
}

// GetGroupsFromContext extracts the explicit set of constraint groups from the context.
// The second return value reports whether the set was present at all.
func GetGroupsFromContext(ctx context.Context) ([]string, bool) {
	groups, ok := ctx.Value(ctxKeyGroups).([]string)
	return groups, ok
}
