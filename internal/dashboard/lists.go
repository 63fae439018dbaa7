package dashboard

import (
	"strconv"
	"time"

	"github.com/helpinghands/console/internal/listview"
	"github.com/helpinghands/console/internal/models"
)

func idString(id int64) string { return strconv.FormatInt(id, 10) }

func optID(id *int64) string {
	if id == nil {
		return ""
	}
	return idString(*id)
}

// UsersConfig searches name, email and phone; filters by role.
func UsersConfig(pageSize int) listview.Config[models.User] {
	return listview.Config[models.User]{
		Search: []func(models.User) string{
			func(u models.User) string { return u.Name },
			func(u models.User) string { return u.Email },
			func(u models.User) string { return u.Phone },
		},
		Filters: map[string]func(models.User) string{
			"role":            func(u models.User) string { return string(u.Role) },
			"organization_id": func(u models.User) string { return optID(u.OrganizationID) },
		},
		Columns: map[string]listview.CompareFunc[models.User]{
			"id":         listview.Number(func(u models.User) float64 { return float64(u.ID) }),
			"name":       listview.Text(func(u models.User) string { return u.Name }),
			"email":      listview.Text(func(u models.User) string { return u.Email }),
			"role":       listview.Text(func(u models.User) string { return string(u.Role) }),
			"created_at": listview.Time(func(u models.User) time.Time { return u.CreatedAt }),
		},
		SortColumn: "name",
		PageSize:   pageSize,
	}
}

// OrganizationsConfig searches name, description and contact email; filters by approval status.
func OrganizationsConfig(pageSize int) listview.Config[models.Organization] {
	return listview.Config[models.Organization]{
		Search: []func(models.Organization) string{
			func(o models.Organization) string { return o.Name },
			func(o models.Organization) string { return o.Description },
			func(o models.Organization) string { return o.ContactEmail },
		},
		Filters: map[string]func(models.Organization) string{
			"approval_status": func(o models.Organization) string { return string(o.ApprovalStatus) },
		},
		Columns: map[string]listview.CompareFunc[models.Organization]{
			"id":              listview.Number(func(o models.Organization) float64 { return float64(o.ID) }),
			"name":            listview.Text(func(o models.Organization) string { return o.Name }),
			"approval_status": listview.Text(func(o models.Organization) string { return string(o.ApprovalStatus) }),
			"created_at":      listview.Time(func(o models.Organization) time.Time { return o.CreatedAt }),
		},
		SortColumn: "name",
		PageSize:   pageSize,
	}
}

// EventsConfig searches title, description and location; filters by organization.
// The date column puts upcoming events first relative to now.
func EventsConfig(pageSize int, now time.Time) listview.Config[models.Event] {
	return listview.Config[models.Event]{
		Search: []func(models.Event) string{
			func(e models.Event) string { return e.Title },
			func(e models.Event) string { return e.Description },
			func(e models.Event) string { return e.Location },
		},
		Filters: map[string]func(models.Event) string{
			"organization_id": func(e models.Event) string { return idString(e.OrganizationID) },
		},
		Columns: map[string]listview.CompareFunc[models.Event]{
			"id":         listview.Number(func(e models.Event) float64 { return float64(e.ID) }),
			"title":      listview.Text(func(e models.Event) string { return e.Title }),
			"location":   listview.Text(func(e models.Event) string { return e.Location }),
			"capacity":   listview.Number(func(e models.Event) float64 { return float64(e.Capacity) }),
			"event_date": listview.UpcomingFirst(func(e models.Event) time.Time { return e.StartsAt }, func() time.Time { return now }),
		},
		SortColumn: "event_date",
		PageSize:   pageSize,
	}
}

// TagsConfig searches and sorts by name.
func TagsConfig(pageSize int) listview.Config[models.Tag] {
	return listview.Config[models.Tag]{
		Search: []func(models.Tag) string{
			func(t models.Tag) string { return t.Name },
		},
		Columns: map[string]listview.CompareFunc[models.Tag]{
			"id":   listview.Number(func(t models.Tag) float64 { return float64(t.ID) }),
			"name": listview.Text(func(t models.Tag) string { return t.Name }),
		},
		SortColumn: "name",
		PageSize:   pageSize,
	}
}

// SupportConfig searches sender, subject and body; filters by resolution. Newest first.
func SupportConfig(pageSize int) listview.Config[models.SupportMessage] {
	return listview.Config[models.SupportMessage]{
		Search: []func(models.SupportMessage) string{
			func(m models.SupportMessage) string { return m.Name },
			func(m models.SupportMessage) string { return m.Email },
			func(m models.SupportMessage) string { return m.Subject },
			func(m models.SupportMessage) string { return m.Message },
		},
		Filters: map[string]func(models.SupportMessage) string{
			"is_resolved": func(m models.SupportMessage) string { return strconv.FormatBool(m.IsResolved) },
		},
		Columns: map[string]listview.CompareFunc[models.SupportMessage]{
			"id":          listview.Number(func(m models.SupportMessage) float64 { return float64(m.ID) }),
			"name":        listview.Text(func(m models.SupportMessage) string { return m.Name }),
			"subject":     listview.Text(func(m models.SupportMessage) string { return m.Subject }),
			"is_resolved": listview.Text(func(m models.SupportMessage) string { return strconv.FormatBool(m.IsResolved) }),
			"created_at":  listview.Time(func(m models.SupportMessage) time.Time { return m.CreatedAt }),
		},
		SortColumn: "created_at",
		SortDir:    listview.Desc,
		PageSize:   pageSize,
	}
}
