package cmd

import (
	"fmt"

	"github.com/dukex/docflow/pkg/oracle"
	"github.com/dukex/docflow/pkg/oracle/azure"
	"github.com/dukex/docflow/pkg/oracle/llm"
	"github.com/dukex/docflow/pkg/oracle/rules"
)

type OracleConfig struct {
	Provider          string
	AzureEndpoint     string
	AzureAPIKey       string
	AzureDeploymentID string
	AzureTemperature  float64
}

// Oracles bundles what the workflow engine and the router consult.
type Oracles struct {
	Set   oracle.Set
	Agent oracle.AgentClassifier
}

func NewOracles(cfg OracleConfig) (Oracles, error) {
	switch cfg.Provider {
	case "", "rules":
		r := rules.New()

		return Oracles{Set: r.Set(), Agent: r}, nil
	case "azure":
		completer, err := azure.NewCompleter(cfg.AzureEndpoint, cfg.AzureAPIKey, cfg.AzureDeploymentID,
			azure.WithTemperature(float32(cfg.AzureTemperature)))
		if err != nil {
			return Oracles{}, fmt.Errorf("failed to create Azure OpenAI completer: %w", err)
		}

		o := llm.New(completer)

		return Oracles{Set: o.Set(), Agent: o}, nil
	default:
		return Oracles{}, fmt.Errorf("unsupported oracle provider: %s", cfg.Provider)
	}
}
