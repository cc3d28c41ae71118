package usage

import (
	"cmp"
	"slices"
	"time"
)

const dateLayout = "2006-01-02"

type productDay struct {
	date, product string
}

type userDay struct {
	date, name string
}

// Aggregate computes usage statistics over dashboard and feed visits.
// Anonymous visits and the excluded users are ignored. Dates are calendar
// days in the local timezone.
func Aggregate(visits []Visit, excludeUsers []string) Stats {
	excluded := make(map[string]bool, len(excludeUsers))
	for _, name := range excludeUsers {
		excluded[name] = true
	}

	perUser := make(map[string]int)
	perDay := make(map[string]int)
	perProductDay := make(map[productDay]int)
	perUserDay := make(map[userDay]int)
	firstVisit := make(map[string]string)

	for _, v := range visits {
		if v.UserName == "" || v.UserName == AnonymousUser || excluded[v.UserName] {
			continue
		}
		if v.Path != PathDashboard && v.Path != PathUpdates {
			continue
		}

		date := v.Timestamp.In(time.Local).Format(dateLayout)

		perUser[v.UserName]++
		perDay[date]++
		perProductDay[productDay{date, v.Product}]++
		perUserDay[userDay{date, v.UserName}]++

		if first, ok := firstVisit[v.UserName]; !ok || date < first {
			firstVisit[v.UserName] = date
		}
	}

	stats := Stats{
		UserStats:         make([]UserStat, 0, len(perUser)),
		DailyStats:        make([]DailyStat, 0, len(perDay)),
		UserGrowthStats:   []UserGrowthStat{},
		ProductDailyStats: make([]ProductDailyStat, 0, len(perProductDay)),
		UserDailyStats:    make([]UserDailyStat, 0, len(perUserDay)),
	}

	for name, n := range perUser {
		stats.UserStats = append(stats.UserStats, UserStat{Name: name, RecordCount: n})
	}
	slices.SortFunc(stats.UserStats, func(a, b UserStat) int {
		return cmp.Or(cmp.Compare(b.RecordCount, a.RecordCount), cmp.Compare(a.Name, b.Name))
	})

	for date, n := range perDay {
		stats.DailyStats = append(stats.DailyStats, DailyStat{Date: date, Count: n})
	}
	slices.SortFunc(stats.DailyStats, func(a, b DailyStat) int {
		return cmp.Compare(a.Date, b.Date)
	})

	for key, n := range perProductDay {
		stats.ProductDailyStats = append(stats.ProductDailyStats, ProductDailyStat{Date: key.date, Product: key.product, Count: n})
	}
	slices.SortFunc(stats.ProductDailyStats, func(a, b ProductDailyStat) int {
		return cmp.Or(cmp.Compare(a.Date, b.Date), cmp.Compare(a.Product, b.Product))
	})

	for key, n := range perUserDay {
		stats.UserDailyStats = append(stats.UserDailyStats, UserDailyStat{Date: key.date, Name: key.name, Count: n})
	}
	slices.SortFunc(stats.UserDailyStats, func(a, b UserDailyStat) int {
		return cmp.Or(cmp.Compare(a.Date, b.Date), cmp.Compare(a.Name, b.Name))
	})

	newUsers := make(map[string]int)
	for _, date := range firstVisit {
		newUsers[date]++
	}
	dates := make([]string, 0, len(newUsers))
	for date := range newUsers {
		dates = append(dates, date)
	}
	slices.Sort(dates)

	total := 0
	for _, date := range dates {
		total += newUsers[date]
		stats.UserGrowthStats = append(stats.UserGrowthStats, UserGrowthStat{Date: date, TotalUsers: total})
	}

	return stats
}
