package app

import (
	"fmt"
	"os"

	"github.com/riskibarqy/propboard/external/espn"
	"github.com/riskibarqy/propboard/external/propgen"
	"github.com/riskibarqy/propboard/external/propmarket"
	"github.com/riskibarqy/propboard/external/providerhttp"
	"github.com/riskibarqy/propboard/internal/config"
	"github.com/riskibarqy/propboard/internal/domain/team"
	"github.com/riskibarqy/propboard/internal/platform/logging"
	"github.com/riskibarqy/propboard/internal/usecase"
)

// buildRegistry registers enabled providers in a fixed order: the schedule
// source first, then prediction sources. That order is the merge order for
// duplicate props.
func buildRegistry(cfg config.Config, logger *logging.Logger) (*usecase.SourceRegistry, error) {
	registry := usecase.NewSourceRegistry()

	type entry struct {
		name   string
		pc     config.ProviderConfig
		source func(providerhttp.Config) usecase.Source
	}
	entries := []entry{
		{name: espn.ProviderID, pc: cfg.ESPN, source: func(c providerhttp.Config) usecase.Source { return espn.NewClient(c) }},
		{name: propmarket.ProviderID, pc: cfg.PropMarket, source: func(c providerhttp.Config) usecase.Source { return propmarket.NewClient(c) }},
		{name: propgen.ProviderID, pc: cfg.PropGen, source: func(c providerhttp.Config) usecase.Source { return propgen.NewClient(c) }},
	}

	for _, e := range entries {
		if !e.pc.Enabled {
			logger.Info("provider disabled", logging.FieldProvider, e.name)
			continue
		}
		sports := intersectSports(e.pc.Sports, cfg.Sports)
		if len(sports) == 0 {
			logger.Warn("provider has no enabled sports", logging.FieldProvider, e.name)
			continue
		}

		src := e.source(providerhttp.Config{
			BaseURL:   e.pc.BaseURL,
			Token:     e.pc.Token,
			Timeout:   e.pc.Timeout,
			UserAgent: cfg.ServiceName + "/" + cfg.ServiceVersion,
			Logger:    logger,
		})
		if err := registry.Register(src, sports...); err != nil {
			return nil, fmt.Errorf("register provider %s: %w", e.name, err)
		}
		logger.Info("provider registered", logging.FieldProvider, e.name, "sports", sports, "timeout", e.pc.Timeout.String())
	}

	return registry, nil
}

func intersectSports(provider, enabled []string) []string {
	allowed := make(map[string]struct{}, len(enabled))
	for _, sport := range enabled {
		allowed[sport] = struct{}{}
	}
	out := make([]string, 0, len(provider))
	for _, sport := range provider {
		if _, ok := allowed[sport]; ok {
			out = append(out, sport)
		}
	}
	return out
}

// LoadResolver returns the embedded alias table, merged with the override
// file when one is configured.
func LoadResolver(cfg config.Config) (*team.Resolver, error) {
	if cfg.TeamAliasesFile == "" {
		return team.Default(), nil
	}
	data, err := os.ReadFile(cfg.TeamAliasesFile)
	if err != nil {
		return nil, fmt.Errorf("read TEAM_ALIASES_FILE: %w", err)
	}
	resolver, err := team.LoadWithOverrides(data)
	if err != nil {
		return nil, fmt.Errorf("load TEAM_ALIASES_FILE: %w", err)
	}
	return resolver, nil
}
