package analysis

import (
	"strings"

	"atlas-backend/domain/model"
)

// Filter is a canonical inclusion set. A nil Filter means unrestricted:
// every value passes. Normalizers collapse empty or blank inputs to nil
// rather than to an empty set, so dirty input can never mean "reject
// everything".
type Filter map[string]struct{}

// Allows reports whether a value passes the filter
func (f Filter) Allows(v string) bool {
	if f == nil {
		return true
	}
	_, ok := f[v]
	return ok
}

// Contains reports membership with the opposite nil semantics: a nil
// filter contains nothing. Used for stop-condition sets, where an empty
// input means "never stop".
func (f Filter) Contains(v string) bool {
	if f == nil {
		return false
	}
	_, ok := f[v]
	return ok
}

// NormalizeRelationshipTypes canonicalizes a raw relationship-type list
func NormalizeRelationshipTypes(raw []string) Filter {
	return normalize(raw, false)
}

// NormalizeLayers canonicalizes a raw layer list. Layer names are
// case-insensitive.
func NormalizeLayers(raw []string) Filter {
	return normalize(raw, true)
}

// NormalizeElementTypes canonicalizes a raw element-type list
func NormalizeElementTypes(raw []string) Filter {
	return normalize(raw, false)
}

func normalize(raw []string, fold bool) Filter {
	if len(raw) == 0 {
		return nil
	}
	set := make(Filter, len(raw))
	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if fold {
			v = strings.ToLower(v)
		}
		set[v] = struct{}{}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

// PassesLayerFilter reports whether an element's layer is allowed. The
// same predicate decides both whether a discovered node is included and
// whether traversal continues through it: a filtered-out node is excluded
// and not expanded further, not merely hidden.
func PassesLayerFilter(el *model.Element, layers Filter) bool {
	if el == nil {
		return false
	}
	return layers.Allows(strings.ToLower(string(el.Layer)))
}

// PassesElementTypeFilter reports whether an element's type is allowed
func PassesElementTypeFilter(el *model.Element, types Filter) bool {
	if el == nil {
		return false
	}
	return types.Allows(el.Type)
}
