package cosmos

import (
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"
	"github.com/lysyi3m/eyes-on-docs/app/cfg"
)

// NewClient connects with the account key when one is configured and with the
// service principal otherwise.
func NewClient(c *cfg.Cfg) (*azcosmos.Client, error) {
	if c.CosmosAccountKey != "" {
		cred, err := azcosmos.NewKeyCredential(c.CosmosAccountKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create cosmos key credential: %w", err)
		}
		client, err := azcosmos.NewClientWithKey(c.CosmosEndpoint, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cosmos client: %w", err)
		}
		return client, nil
	}

	cred, err := azidentity.NewClientSecretCredential(c.TenantID, c.ClientID, c.ClientSecret, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create service principal credential: %w", err)
	}

	client, err := azcosmos.NewClient(c.CosmosEndpoint, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cosmos client: %w", err)
	}
	return client, nil
}

// Store bundles the containers the service reads and writes.
type Store struct {
	Updates *UpdateRepository
	Visits  *VisitRepository
}

func NewStore(c *cfg.Cfg) (*Store, error) {
	client, err := NewClient(c)
	if err != nil {
		return nil, err
	}

	updates, err := client.NewContainer(c.CosmosDatabase, c.CosmosUpdatesContainer)
	if err != nil {
		return nil, fmt.Errorf("failed to open container %s: %w", c.CosmosUpdatesContainer, err)
	}

	store := &Store{
		Updates: NewUpdateRepository(updates, c.CosmosTopicPartitioned),
	}

	if c.CosmosTrafficContainer != "" {
		traffic, err := client.NewContainer(c.CosmosDatabase, c.CosmosTrafficContainer)
		if err != nil {
			return nil, fmt.Errorf("failed to open container %s: %w", c.CosmosTrafficContainer, err)
		}
		store.Visits = NewVisitRepository(traffic)
	}

	return store, nil
}
