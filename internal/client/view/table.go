package view

import (
	"time"

	"user-management-api/internal/client/api"
)

// PhonePlaceholder is shown for users without a phone. It is never sent
// back to the server.
const PhonePlaceholder = "99999999"

const dateLayout = "01/02/2006"

// Row is one rendered line of the user list.
type Row struct {
	Index   int
	ID      string
	Name    string
	Email   string
	Phone   string
	Created string
}

// Table renders a fetched user list.
type Table struct {
	Users    []api.User
	Location *time.Location // dates are shown in this zone; nil means local
}

// Rows sorts, then filters, then numbers the rows from 1.
func (t Table) Rows(term string, cfg SortConfig) []Row {
	loc := t.Location
	if loc == nil {
		loc = time.Local
	}

	users := Filter(Sort(t.Users, cfg), term)
	rows := make([]Row, len(users))
	for i, u := range users {
		phone := u.Phone
		if phone == "" {
			phone = PhonePlaceholder
		}
		rows[i] = Row{
			Index:   i + 1,
			ID:      u.ID,
			Name:    u.FirstName + " " + u.LastName,
			Email:   u.Email,
			Phone:   phone,
			Created: u.CreatedDate.In(loc).Format(dateLayout),
		}
	}
	return rows
}
