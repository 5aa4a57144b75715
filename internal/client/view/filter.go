package view

import (
	"strings"

	"user-management-api/internal/client/api"
)

// Filter keeps users whose first name, last name or email contains term,
// ignoring case. An empty term keeps everyone. Order is preserved.
func Filter(users []api.User, term string) []api.User {
	needle := strings.ToLower(term)
	out := make([]api.User, 0, len(users))
	for _, u := range users {
		if needle == "" ||
			strings.Contains(strings.ToLower(u.FirstName), needle) ||
			strings.Contains(strings.ToLower(u.LastName), needle) ||
			strings.Contains(strings.ToLower(u.Email), needle) {
			out = append(out, u)
		}
	}
	return out
}
