package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"user-management-api/internal/client/api"
	"user-management-api/internal/client/view"
)

func printRows(w io.Writer, rows []view.Row) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No users found")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tEMAIL\tPHONE\tCREATED\tID")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", r.Index, r.Name, r.Email, r.Phone, r.Created, r.ID)
	}
	return tw.Flush()
}

func printUser(w io.Writer, u *api.User) {
	if u == nil {
		return
	}
	phone := u.Phone
	if phone == "" {
		phone = view.PhonePlaceholder
	}
	fmt.Fprintf(w, "ID:      %s\n", u.ID)
	fmt.Fprintf(w, "Name:    %s %s\n", u.FirstName, u.LastName)
	fmt.Fprintf(w, "Email:   %s\n", u.Email)
	fmt.Fprintf(w, "Phone:   %s\n", phone)
	if !u.CreatedDate.IsZero() {
		fmt.Fprintf(w, "Created: %s\n", u.CreatedDate.Local().Format("01/02/2006"))
	}
}
