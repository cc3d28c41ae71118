package database

import (
	"github.com/lysyi3m/eyes-on-docs/app/feed"
	"github.com/lysyi3m/eyes-on-docs/app/usage"
)

var (
	_ feed.UpdateRepository = (*UpdateRepository)(nil)
	_ usage.VisitRepository = (*VisitRepository)(nil)
)
