package api

import (
	"context"

	"github.com/lysyi3m/eyes-on-docs/app/feed"
	"github.com/lysyi3m/eyes-on-docs/app/tasks"
	"github.com/lysyi3m/eyes-on-docs/app/usage"
)

type GeneratorInterface interface {
	Run(channel feed.Channel, items []feed.FeedItem) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type FeedService interface {
	Fetch(ctx context.Context, req feed.Request) (*feed.Response, error)
	Search(ctx context.Context, req feed.SearchRequest) (*feed.SearchResult, error)
}

var _ FeedService = (*feed.Service)(nil)

type Handler struct {
	service   FeedService
	generator GeneratorInterface
	catalog   *feed.Catalog
	visitRepo usage.VisitRepository
	gate      *usage.Gate
	scheduler tasks.TaskSchedulerInterface
	store     string
	baseURL   string
}

type usageAuthRequest struct {
	Password string `json:"password"`
}

const identityKey = "identity"
