// Package pathutil computes relative paths between absolute locations.
//
// Resolve treats filesystem paths and URLs uniformly as hierarchical locators,
// which keeps the result correct for paths containing spaces, percent signs or
// mixed separators.
package pathutil
