// Package metrics reshapes backend metrics for charts and reports.
package metrics

import (
	"strconv"
	"time"

	"github.com/helpinghands/console/internal/models"
)

// MonthLayout is the bucket key format.
const MonthLayout = "2006-01"

// Months returns the n month keys ending with now's month, oldest first.
func Months(now time.Time, n int) []string {
	if n < 1 {
		return nil
	}
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -(n - 1), 0)
	keys := make([]string, n)
	for i := range keys {
		keys[i] = first.AddDate(0, i, 0).Format(MonthLayout)
	}
	return keys
}

// Bucket fits points into the n months ending at now: every month appears exactly once,
// missing months are zero, points outside the window are dropped and duplicate months
// are summed.
func Bucket(points []models.MonthlyPoint, now time.Time, n int) []models.MonthlyPoint {
	keys := Months(now, n)
	sums := make(map[string]float64, len(points))
	for _, p := range points {
		sums[p.Month] += p.Value
	}
	out := make([]models.MonthlyPoint, len(keys))
	for i, k := range keys {
		out[i] = models.MonthlyPoint{Month: k, Value: sums[k]}
	}
	return out
}

// Weighted is a timestamped value to be summed per month.
type Weighted struct {
	At    time.Time
	Value float64
}

// BucketTimes sums values by calendar month (in now's location) over the n months
// ending at now.
func BucketTimes(items []Weighted, now time.Time, n int) []models.MonthlyPoint {
	points := make([]models.MonthlyPoint, 0, len(items))
	for _, it := range items {
		if it.At.IsZero() {
			continue
		}
		points = append(points, models.MonthlyPoint{Month: it.At.In(now.Location()).Format(MonthLayout), Value: it.Value})
	}
	return Bucket(points, now, n)
}

// Sum adds up a series.
func Sum(points []models.MonthlyPoint) float64 {
	var total float64
	for _, p := range points {
		total += p.Value
	}
	return total
}

// FromSignups computes the volunteer participation summary from signups. Hours only
// count for attended signups; cancelled signups are ignored entirely. orgNames may be nil.
func FromSignups(userID int64, signups []models.Signup, orgNames map[int64]string, now time.Time, months int) models.VolunteerMetrics {
	m := models.VolunteerMetrics{UserID: userID}
	orgCounts := map[string]int{}
	var orgOrder []string
	var hours []Weighted
	for _, s := range signups {
		if s.Status == models.SignupStatusCancelled {
			continue
		}
		m.EventsSignedUp++
		if s.Event.IsUpcoming(now) {
			m.UpcomingEvents++
		}
		if s.Status == models.SignupStatusAttended {
			m.EventsAttended++
			m.TotalHours += s.Hours
			hours = append(hours, Weighted{At: s.Event.StartsAt, Value: s.Hours})
		}
		label := orgLabel(s.Event.OrganizationID, orgNames)
		if _, seen := orgCounts[label]; !seen {
			orgOrder = append(orgOrder, label)
		}
		orgCounts[label]++
	}
	m.MonthlyHours = BucketTimes(hours, now, months)
	for _, label := range orgOrder {
		m.OrganizationMix = append(m.OrganizationMix, models.CountItem{Label: label, Count: orgCounts[label]})
	}
	return m
}

func orgLabel(id int64, names map[int64]string) string {
	if name := names[id]; name != "" {
		return name
	}
	return "Organization #" + strconv.FormatInt(id, 10)
}
