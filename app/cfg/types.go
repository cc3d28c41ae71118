package cfg

import "time"

const (
	StoreSQLite = "sqlite"
	StoreCosmos = "cosmos"
)

type Cfg struct {
	// HTTP server
	Port    string
	BaseUrl string

	// Document store
	Store      string
	SQLitePath string
	SeedFile   string

	// Azure Cosmos DB
	CosmosAccount          string
	CosmosEndpoint         string
	CosmosAccountKey       string
	CosmosDatabase         string
	CosmosUpdatesContainer string
	CosmosTrafficContainer string
	CosmosTopicPartitioned bool
	TenantID               string
	ClientID               string
	ClientSecret           string

	// Products and background work
	ProductsFile          string
	CatalogReloadInterval time.Duration
	WorkerCount           int

	// Access
	AdminPassword  string
	SessionSecret  string
	RequireSession bool

	// Application metadata
	Timezone  string
	Debug     bool
	LogFormat string
	Version   string
}
