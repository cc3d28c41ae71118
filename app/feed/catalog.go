package feed

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	CatalogSourceConfig   = "config"
	CatalogSourceFallback = "fallback"
)

// FallbackProducts is served whenever the target config cannot supply a list.
var FallbackProducts = []string{
	"AI-Foundry",
	"AOAI-V2",
	"Agent-Service",
	"Model-Inference",
	"AML",
	"Cog-speech-service",
	"Cog-document-intelligence",
	"Cog-language-service",
	"Cog-translator",
	"Cog-content-safety",
	"Cog-computer-vision",
	"Cog-custom-vision-service",
	"IoT-iot-hub",
	"IoT-iot-edge",
	"IoT-iot-dps",
	"IoT-iot-central",
	"IoT-iot-hub-device-update",
}

// TargetConfig is one entry of the ingestion target config. Only topic_name
// matters here.
type TargetConfig struct {
	TopicName string `json:"topic_name" yaml:"topic_name"`
	Language  string `json:"language" yaml:"language"`
}

type Products struct {
	Products []string `json:"products"`
	Source   string   `json:"source"`
	Count    int      `json:"count,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Catalog holds the list of known product identifiers read from the target
// config file. A missing or broken file leaves the fallback list in place.
type Catalog struct {
	path     string
	products []string
	source   string
	loadErr  string
	mu       sync.RWMutex
}

func NewCatalog(path string) *Catalog {
	return &Catalog{
		path:     path,
		products: slices.Clone(FallbackProducts),
		source:   CatalogSourceFallback,
		loadErr:  "config file not loaded",
	}
}

// Run (re)loads the target config. The returned error is informational: the
// catalog always stays usable.
func (c *Catalog) Run() error {
	products, err := c.load()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.products = slices.Clone(FallbackProducts)
		c.source = CatalogSourceFallback
		c.loadErr = err.Error()
		return err
	}

	c.products = products
	c.source = CatalogSourceConfig
	c.loadErr = ""

	slog.Debug("Product catalog loaded", "path", c.path, "count", len(products))
	return nil
}

func (c *Catalog) Snapshot() Products {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p := Products{
		Products: slices.Clone(c.products),
		Source:   c.source,
		Error:    c.loadErr,
	}
	if c.source == CatalogSourceConfig {
		p.Count = len(c.products)
	}
	return p
}

func (c *Catalog) Contains(product string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Contains(c.products, product)
}

func (c *Catalog) GetProductCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.products)
}

func (c *Catalog) load() ([]string, error) {
	if c.path == "" {
		return nil, fmt.Errorf("config file not configured")
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found")
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var targets []TargetConfig
	if strings.EqualFold(filepath.Ext(c.path), ".json") {
		err = json.Unmarshal(data, &targets)
	} else {
		err = yaml.Unmarshal(data, &targets)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse target config: %w", err)
	}

	seen := make(map[string]bool, len(targets))
	products := make([]string, 0, len(targets))
	for _, target := range targets {
		topic := strings.TrimSpace(target.TopicName)
		if topic == "" || seen[topic] {
			continue
		}
		seen[topic] = true
		products = append(products, topic)
	}

	if len(products) == 0 {
		return nil, fmt.Errorf("no topics found in config")
	}

	return products, nil
}
