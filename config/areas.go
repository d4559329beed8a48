package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// MarketArea groups the cities that share one market-context geography, so
// context for a suburb can be computed over its wider metro inventory.
type MarketArea struct {
	Name   string   `json:"name"`
	State  string   `json:"state"`
	Cities []string `json:"cities"`
}

// MarketAreaConfig is the full market areas configuration.
type MarketAreaConfig struct {
	MarketAreas []MarketArea `json:"market_areas"`
}

var (
	marketAreaConfig *MarketAreaConfig
	areaLock         sync.RWMutex
	areaPath         = "config/market_areas.json"
)

// LoadMarketAreas loads the market areas configuration from file. Missing
// config is not an error; context then falls back to per-city geography.
func LoadMarketAreas() error {
	areaLock.Lock()
	defer areaLock.Unlock()

	absPath, err := filepath.Abs(areaPath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %v", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			marketAreaConfig = &MarketAreaConfig{}
			return nil
		}
		return fmt.Errorf("failed to read config file: %v", err)
	}

	var config MarketAreaConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse config: %v", err)
	}

	marketAreaConfig = &config
	return nil
}

// GetMarketAreas returns all configured market areas.
func GetMarketAreas() []MarketArea {
	areaLock.RLock()
	defer areaLock.RUnlock()

	if marketAreaConfig == nil {
		return nil
	}
	areas := make([]MarketArea, len(marketAreaConfig.MarketAreas))
	copy(areas, marketAreaConfig.MarketAreas)
	return areas
}

// AreaForCity returns the market area containing the given city and state,
// or nil when the city is not part of any configured area.
func AreaForCity(city, state string) *MarketArea {
	areaLock.RLock()
	defer areaLock.RUnlock()

	if marketAreaConfig == nil {
		return nil
	}
	for _, area := range marketAreaConfig.MarketAreas {
		if !strings.EqualFold(area.State, state) {
			continue
		}
		for _, c := range area.Cities {
			if strings.EqualFold(c, city) {
				out := area
				return &out
			}
		}
	}
	return nil
}

// SetMarketAreas replaces the loaded configuration. Used by tests.
func SetMarketAreas(config *MarketAreaConfig) {
	areaLock.Lock()
	defer areaLock.Unlock()
	marketAreaConfig = config
}
