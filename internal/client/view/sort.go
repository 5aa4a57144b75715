package view

import (
	"fmt"
	"slices"
	"strings"

	"user-management-api/internal/client/api"
)

// SortKey names a sortable column.
type SortKey string

const (
	SortNone        SortKey = ""
	SortFirstName   SortKey = "firstName"
	SortLastName    SortKey = "lastName"
	SortPhone       SortKey = "phone"
	SortEmail       SortKey = "email"
	SortCreatedDate SortKey = "createdDate"
)

// SortKeys lists the accepted keys in column order.
var SortKeys = []SortKey{SortFirstName, SortLastName, SortPhone, SortEmail, SortCreatedDate}

// ParseSortKey accepts a column name case-insensitively. "" means no sort.
func ParseSortKey(s string) (SortKey, error) {
	if s == "" {
		return SortNone, nil
	}
	for _, k := range SortKeys {
		if strings.EqualFold(s, string(k)) {
			return k, nil
		}
	}
	return SortNone, fmt.Errorf("unknown sort key %q", s)
}

// Direction is ascending or descending.
type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// SortConfig is the current column and direction of the list view.
type SortConfig struct {
	Key       SortKey
	Direction Direction
}

// Toggle returns the config after the user picks key: the same key flips
// asc to desc, anything else starts ascending.
func (c SortConfig) Toggle(key SortKey) SortConfig {
	if c.Key == key && c.Direction == Asc {
		return SortConfig{Key: key, Direction: Desc}
	}
	return SortConfig{Key: key, Direction: Asc}
}

// Sort returns a sorted copy of users. Equal elements keep their fetch order
// in both directions; SortNone returns the fetch order.
func Sort(users []api.User, cfg SortConfig) []api.User {
	out := slices.Clone(users)
	cmp := comparator(cfg.Key)
	if cmp == nil {
		return out
	}
	slices.SortStableFunc(out, func(a, b api.User) int {
		if cfg.Direction == Desc {
			return cmp(b, a)
		}
		return cmp(a, b)
	})
	return out
}

func comparator(key SortKey) func(a, b api.User) int {
	switch key {
	case SortFirstName:
		return func(a, b api.User) int { return strings.Compare(a.FirstName, b.FirstName) }
	case SortLastName:
		return func(a, b api.User) int { return strings.Compare(a.LastName, b.LastName) }
	case SortPhone:
		return func(a, b api.User) int { return strings.Compare(a.Phone, b.Phone) }
	case SortEmail:
		return func(a, b api.User) int { return strings.Compare(a.Email, b.Email) }
	case SortCreatedDate:
		return func(a, b api.User) int { return a.CreatedDate.Compare(b.CreatedDate) }
	default:
		return nil
	}
}
