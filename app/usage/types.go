package usage

import (
	"context"
	"time"
)

const AnonymousUser = "anonymous"

// Paths whose visits count towards usage statistics.
const (
	PathDashboard = "/"
	PathUpdates   = "/api/updates"
)

type Identity struct {
	Name  string
	Email string
}

func (i Identity) Anonymous() bool {
	return i.Name == "" || i.Name == AnonymousUser
}

type Visit struct {
	ID         string
	UserName   string
	UserEmail  string
	Path       string
	Product    string
	Language   string
	UpdateType string
	Page       int
	Timestamp  time.Time
}

// VisitRepository stores visits and lists them for a time window. A zero
// bound leaves that side of the window open.
type VisitRepository interface {
	RecordVisit(ctx context.Context, visit Visit) error
	ListVisits(ctx context.Context, start, end time.Time) ([]Visit, error)
}

type UserStat struct {
	Name        string `json:"name"`
	RecordCount int    `json:"recordCount"`
}

type DailyStat struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type UserGrowthStat struct {
	Date       string `json:"date"`
	TotalUsers int    `json:"totalUsers"`
}

type ProductDailyStat struct {
	Date    string `json:"date"`
	Product string `json:"product"`
	Count   int    `json:"count"`
}

type UserDailyStat struct {
	Date  string `json:"date"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type Stats struct {
	UserStats         []UserStat         `json:"userStats"`
	DailyStats        []DailyStat        `json:"dailyStats"`
	UserGrowthStats   []UserGrowthStat   `json:"userGrowthStats"`
	ProductDailyStats []ProductDailyStat `json:"productDailyStats"`
	UserDailyStats    []UserDailyStat    `json:"userDailyStats"`
}
