package listview

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type person struct {
	ID    int
	Name  string
	Email string
	Role  string
	Age   int
}

func personConfig() Config[person] {
	return Config[person]{
		Search: []func(person) string{
			func(p person) string { return p.Name },
			func(p person) string { return p.Email },
		},
		Filters: map[string]func(person) string{
			"role": func(p person) string { return p.Role },
		},
		Columns: map[string]CompareFunc[person]{
			"name": Text(func(p person) string { return p.Name }),
			"age":  Number(func(p person) float64 { return float64(p.Age) }),
			"role": Text(func(p person) string { return p.Role }),
		},
		SortColumn: "name",
		PageSize:   2,
	}
}

func people() []person {
	return []person{
		{1, "carol", "carol@example.com", "volunteer", 41},
		{2, "Alice", "alice@example.com", "admin", 29},
		{3, "bob", "bob@example.org", "volunteer", 35},
		{4, "Dave", "dave@example.org", "organizer", 29},
		{5, "erin", "erin@example.com", "volunteer", 35},
	}
}

func ids(ps []person) []int {
	out := make([]int, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func TestView_LoadSortsAndPaginates(t *testing.T) {
	v := New(personConfig())
	v.Load(people())

	assert.Equal(t, []int{2, 3, 1, 4, 5}, ids(v.Filtered()))
	assert.Equal(t, []int{2, 3}, ids(v.Page()))
	assert.Equal(t, 3, v.TotalPages())
	assert.Equal(t, 1, v.CurrentPage())
}

func TestView_SearchIsCaseInsensitiveSubstring(t *testing.T) {
	v := New(personConfig())
	v.Load(people())

	v.SetSearch("EXAMPLE.ORG")
	assert.Equal(t, []int{3, 4}, ids(v.Filtered()))

	v.SetSearch("ali")
	assert.Equal(t, []int{2}, ids(v.Filtered()))
}

func TestView_FieldFilterExactMatch(t *testing.T) {
	v := New(personConfig())
	v.Load(people())

	v.SetFilter("role", "volunteer")
	assert.Equal(t, []int{3, 1, 5}, ids(v.Filtered()))

	v.SetFilter("role", "volunt")
	assert.Empty(t, v.Filtered())

	v.SetFilter("role", "")
	assert.Len(t, v.Filtered(), 5)
}

func TestView_FilterIsIdempotent(t *testing.T) {
	v := New(personConfig())
	v.Load(people())
	v.SetSearch("example")
	v.SetFilter("role", "volunteer")
	first := v.Filtered()

	again := New(personConfig())
	again.Restore(v.State(), first)
	assert.Equal(t, ids(first), ids(again.Filtered()))
}

func TestView_EmptySource(t *testing.T) {
	v := New(personConfig())
	v.Load(nil)

	assert.Empty(t, v.Filtered())
	assert.Empty(t, v.Page())
	assert.Equal(t, 1, v.TotalPages())
	assert.False(t, v.GoToPage(2))
	assert.Equal(t, 1, v.CurrentPage())
}

func TestView_TotalPages(t *testing.T) {
	for n := 1; n <= 12; n++ {
		items := make([]person, n)
		for i := range items {
			items[i] = person{ID: i, Name: fmt.Sprintf("p%02d", i)}
		}
		v := New(personConfig())
		v.SetPageSize(5)
		v.Load(items)
		assert.Equal(t, (n+4)/5, v.TotalPages(), "n=%d", n)
	}
}

func TestView_SearchAndFilterResetPage(t *testing.T) {
	v := New(personConfig())
	v.Load(people())
	require.True(t, v.GoToPage(3))

	v.SetSearch("e")
	assert.Equal(t, 1, v.CurrentPage())

	require.True(t, v.GoToPage(2))
	v.SetFilter("role", "volunteer")
	assert.Equal(t, 1, v.CurrentPage())
}

func TestView_SortKeepsPage(t *testing.T) {
	v := New(personConfig())
	v.Load(people())
	require.True(t, v.GoToPage(2))

	v.Sort("age")
	assert.Equal(t, 2, v.CurrentPage())
	col, dir := v.SortColumn()
	assert.Equal(t, "age", col)
	assert.Equal(t, Asc, dir)

	v.Sort("age")
	assert.Equal(t, 2, v.CurrentPage())
	_, dir = v.SortColumn()
	assert.Equal(t, Desc, dir)
}

func TestView_SortDoesNotReapplyFilters(t *testing.T) {
	v := New(personConfig())
	v.Load(people())
	v.SetFilter("role", "volunteer")

	v.Sort("age")
	assert.Equal(t, []int{3, 5, 1}, ids(v.Filtered()))
}

func TestView_SortToggleAndSwitch(t *testing.T) {
	v := New(personConfig())
	v.Load(people())

	v.Sort("name")
	assert.Equal(t, []int{5, 4, 1, 3, 2}, ids(v.Filtered()))

	v.Sort("age")
	_, dir := v.SortColumn()
	assert.Equal(t, Asc, dir)

	v.Sort("unknown")
	col, _ := v.SortColumn()
	assert.Equal(t, "age", col)
}

func TestView_SortIsStable(t *testing.T) {
	v := New(personConfig())
	v.Load(people())
	before := ids(v.Filtered())

	v.Sort("role")
	v.Sort("role")
	v.Sort("role")

	// Ascending by role; ties keep the original name order.
	assert.Equal(t, []int{2, 4, 3, 1, 5}, ids(v.Filtered()))
	assert.Equal(t, []int{2, 3, 1, 4, 5}, before)

	v.Sort("age")
	assert.Equal(t, []int{2, 4, 3, 5, 1}, ids(v.Filtered()))
}

func TestView_GoToPageBounds(t *testing.T) {
	v := New(personConfig())
	v.Load(people())

	assert.False(t, v.GoToPage(0))
	assert.Equal(t, 1, v.CurrentPage())
	assert.False(t, v.GoToPage(v.TotalPages()+1))
	assert.Equal(t, 1, v.CurrentPage())

	assert.True(t, v.GoToPage(3))
	assert.Equal(t, []int{5}, ids(v.Page()))
}

func TestView_SetPageSize(t *testing.T) {
	v := New(personConfig())
	v.Load(people())
	require.True(t, v.GoToPage(2))

	v.SetPageSize(4)
	assert.Equal(t, 1, v.CurrentPage())
	assert.Equal(t, 2, v.TotalPages())
	assert.Len(t, v.Page(), 4)

	v.SetPageSize(0)
	assert.Equal(t, 4, v.PageSize())
}

func TestView_RestoreKeepsAndClampsPage(t *testing.T) {
	v := New(personConfig())
	v.Load(people())
	v.Sort("age")
	require.True(t, v.GoToPage(3))
	saved := v.State()

	restored := New(personConfig())
	restored.Restore(saved, people())
	assert.Equal(t, 3, restored.CurrentPage())
	assert.Equal(t, ids(v.Page()), ids(restored.Page()))

	shrunk := New(personConfig())
	shrunk.Restore(saved, people()[:2])
	assert.Equal(t, 1, shrunk.CurrentPage())
}

func TestView_RestoreIgnoresUnknownFiltersAndColumns(t *testing.T) {
	v := New(personConfig())
	v.Restore(State{
		Filters: map[string]string{"nope": "x", "role": "admin"},
		Sort:    "nope",
		Page:    9,
	}, people())

	assert.Equal(t, []int{2}, ids(v.Filtered()))
	col, _ := v.SortColumn()
	assert.Equal(t, "name", col)
	assert.Equal(t, map[string]string{"role": "admin"}, v.State().Filters)
}

type event struct {
	Name  string
	Start time.Time
}

func eventConfig(now time.Time) Config[event] {
	return Config[event]{
		Columns: map[string]CompareFunc[event]{
			"date": UpcomingFirst(func(e event) time.Time { return e.Start }, func() time.Time { return now }),
		},
		SortColumn: "date",
	}
}

func names(es []event) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.Name
	}
	return out
}

func TestUpcomingFirst(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	events := []event{
		{"A", now.AddDate(0, 0, 1)},
		{"B", now.AddDate(0, 0, -1)},
		{"C", now.AddDate(0, 0, 7)},
	}

	v := New(eventConfig(now))
	v.Load(events)
	assert.Equal(t, []string{"A", "C", "B"}, names(v.Filtered()))

	v.Sort("date")
	assert.Equal(t, []string{"C", "A", "B"}, names(v.Filtered()))
}

func TestUpcomingFirst_PastBucketOrder(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	events := []event{
		{"old", now.AddDate(0, -2, 0)},
		{"recent", now.AddDate(0, 0, -2)},
		{"soon", now.Add(time.Hour)},
		{"now", now},
		{"later", now.AddDate(0, 1, 0)},
	}

	v := New(eventConfig(now))
	v.Load(events)
	assert.Equal(t, []string{"now", "soon", "later", "recent", "old"}, names(v.Filtered()))

	v.Sort("date")
	assert.Equal(t, []string{"later", "soon", "now", "old", "recent"}, names(v.Filtered()))
}
