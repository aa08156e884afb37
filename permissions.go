package lendkit

import (
	"slices"
	"strings"
)

// Features known to the default policy.
const (
	FeatureCatalogBrowse   = "catalog.browse"
	FeatureBorrow          = "borrowing.borrow"
	FeatureReturn          = "borrowing.return"
	FeatureBorrowHistory   = "borrowing.history"
	FeatureInventoryAdd    = "inventory.add"
	FeatureInventoryEdit   = "inventory.edit"
	FeatureInventoryRemove = "inventory.remove"
	FeatureRecordsView     = "records.view"
	FeatureLibrariesManage = "libraries.manage"
	FeatureLibrariesAssign = "libraries.assign"
	FeatureRolesAssign     = "roles.assign"
	FeatureAuditView       = "audit.view"
)

// AllFeatures lists every feature of the default policy, sorted.
var AllFeatures = []string{
	FeatureAuditView,
	FeatureBorrow,
	FeatureBorrowHistory,
	FeatureReturn,
	FeatureCatalogBrowse,
	FeatureInventoryAdd,
	FeatureInventoryEdit,
	FeatureInventoryRemove,
	FeatureLibrariesAssign,
	FeatureLibrariesManage,
	FeatureRecordsView,
	FeatureRolesAssign,
}

// MatchFeature checks if a grant pattern covers a feature.
//
// Supported patterns:
//   - "*" matches every feature
//   - "inventory.*" matches every action of an area
//   - "*.view" matches an action in every area
//   - "catalog.browse" matches exactly
//
// Examples:
//
//	MatchFeature("*", "inventory.add")            // true
//	MatchFeature("inventory.*", "inventory.edit") // true
//	MatchFeature("*.view", "records.view")        // true
//	MatchFeature("inventory.*", "records.view")   // false
func MatchFeature(pattern, feature string) bool {
	if pattern == feature || pattern == "*" {
		return true
	}

	patternParts := strings.Split(pattern, ".")
	featureParts := strings.Split(feature, ".")
	if len(patternParts) != len(featureParts) {
		return false
	}
	for i, pp := range patternParts {
		if pp != "*" && pp != featureParts[i] {
			return false
		}
	}
	return true
}

// MatchAnyFeature checks if any of the patterns cover the feature.
func MatchAnyFeature(patterns []string, feature string) bool {
	return slices.ContainsFunc(patterns, func(p string) bool {
		return MatchFeature(p, feature)
	})
}

// ExpandFeatures returns the features of all that the patterns grant, sorted.
func ExpandFeatures(patterns []string, all []string) []string {
	out := make([]string, 0, len(all))
	for _, f := range all {
		if MatchAnyFeature(patterns, f) {
			out = append(out, f)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// ValidateFeature checks that a grant pattern is "*" or a dot-separated list of
// identifiers, each of which may itself be "*".
func ValidateFeature(pattern string) error {
	if pattern == "" {
		return NewError(ErrValidation, "feature cannot be empty")
	}
	if pattern == "*" {
		return nil
	}

	parts := strings.Split(pattern, ".")
	if len(parts) < 2 {
		return NewError(ErrValidation, "feature must have at least two parts (area.action): "+pattern)
	}
	for _, part := range parts {
		if part == "" {
			return NewError(ErrValidation, "feature parts cannot be empty: "+pattern)
		}
		if part == "*" {
			continue
		}
		for _, c := range part {
			if !isFeatureChar(c) {
				return NewError(ErrValidation, "feature contains invalid character: "+pattern)
			}
		}
	}
	return nil
}

func isFeatureChar(c rune) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '_'
}
