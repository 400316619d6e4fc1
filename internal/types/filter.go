package types

import (
	"errors"
	"fmt"
	"strings"
)

// Filter is a query descriptor. Immutable once issued to a fan-out.
// Tags holds arbitrary tag constraints keyed by the single-letter tag name
// without the "#" prefix (e.g. Tags["e"] = []string{parentID}).
type Filter struct {
	IDs     []string
	Authors []string
	Kinds   []int
	Tags    map[string][]string
	Since   *int64
	Until   *int64
	Limit   int
}

// ErrInvalidFilter is returned before any network activity when a filter
// is malformed. An empty filter is valid (a relay-wide query).
var ErrInvalidFilter = errors.New("invalid filter")

// Validate fails fast on filter shapes no relay will accept.
func (f Filter) Validate() error {
	if f.Limit < 0 {
		return fmt.Errorf("%w: negative limit %d", ErrInvalidFilter, f.Limit)
	}
	if f.Since != nil && f.Until != nil && *f.Since > *f.Until {
		return fmt.Errorf("%w: since %d after until %d", ErrInvalidFilter, *f.Since, *f.Until)
	}
	for name := range f.Tags {
		if name == "" || strings.HasPrefix(name, "#") {
			return fmt.Errorf("%w: tag name %q (use bare name, not #-prefixed)", ErrInvalidFilter, name)
		}
	}
	for _, k := range f.Kinds {
		if k < 0 {
			return fmt.Errorf("%w: negative kind %d", ErrInvalidFilter, k)
		}
	}
	return nil
}

// ToRequest builds the NIP-01 filter object for the REQ message. Tag
// constraints are emitted under "#<name>" keys.
func (f Filter) ToRequest() map[string]interface{} {
	req := map[string]interface{}{}
	if len(f.IDs) > 0 {
		req["ids"] = f.IDs
	}
	if len(f.Authors) > 0 {
		req["authors"] = f.Authors
	}
	if len(f.Kinds) > 0 {
		req["kinds"] = f.Kinds
	}
	for name, values := range f.Tags {
		if len(values) > 0 {
			req["#"+name] = values
		}
	}
	if f.Since != nil {
		req["since"] = *f.Since
	}
	if f.Until != nil {
		req["until"] = *f.Until
	}
	if f.Limit > 0 {
		req["limit"] = f.Limit
	}
	return req
}

// Matches re-checks an event against the filter at the content level.
// Relays are not trusted to filter exactly; anything accepted into a
// result set goes through this first.
func (f Filter) Matches(evt Event) bool {
	if len(f.IDs) > 0 && !containsString(f.IDs, evt.ID) {
		return false
	}
	if len(f.Authors) > 0 && !containsString(f.Authors, evt.PubKey) {
		return false
	}
	if len(f.Kinds) > 0 && !containsInt(f.Kinds, evt.Kind) {
		return false
	}
	if f.Since != nil && evt.CreatedAt < *f.Since {
		return false
	}
	if f.Until != nil && evt.CreatedAt > *f.Until {
		return false
	}
	for name, wanted := range f.Tags {
		if !tagIntersects(evt.Tags, name, wanted) {
			return false
		}
	}
	return true
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func containsInt(haystack []int, needle int) bool {
	for _, n := range haystack {
		if n == needle {
			return true
		}
	}
	return false
}

func tagIntersects(tags [][]string, name string, wanted []string) bool {
	for _, tag := range tags {
		if len(tag) >= 2 && tag[0] == name && containsString(wanted, tag[1]) {
			return true
		}
	}
	return false
}

// Int64Ptr is a convenience for building Since/Until bounds inline.
func Int64Ptr(v int64) *int64 { return &v }
