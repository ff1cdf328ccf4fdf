package endpoints

import (
	"github.com/waks132/messiahx-sub000/internal/api"
)

// All returns all endpoint instances.
func All() []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{},

		// Action endpoints
		&AnalyzeEndpoint{},
		&SummarizeEndpoint{},
		&ClassifyEndpoint{},
		&DetectNarrativesEndpoint{},
		&ReformulateEndpoint{},
		&ResearchEndpoint{},
		&GeneratePersonaEndpoint{},
		&ChatEndpoint{},

		// Prompt endpoints
		&ListPromptsEndpoint{},
		&ExportPromptsEndpoint{},
		&SavePromptsEndpoint{},
		&RefreshPromptsEndpoint{},
		&RemotePromptsEndpoint{},
		&GetPromptEndpoint{},

		// Metrics endpoints
		&MetricsSummaryEndpoint{},
	}
}

// HealthCommands returns the endpoints exposed at the top of the api command.
func HealthCommands() []api.Endpoint {
	return []api.Endpoint{
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{},
	}
}

// ActionCommands returns endpoints for the model-backed actions.
// This groups them under the "run" subcommand.
func ActionCommands() []api.Endpoint {
	return []api.Endpoint{
		&AnalyzeEndpoint{},
		&SummarizeEndpoint{},
		&ClassifyEndpoint{},
		&DetectNarrativesEndpoint{},
		&ReformulateEndpoint{},
		&ResearchEndpoint{},
		&GeneratePersonaEndpoint{},
		&ChatEndpoint{},
	}
}

// PromptCommands returns endpoints for template operations.
// This groups them under the "prompts" subcommand.
func PromptCommands() []api.Endpoint {
	return []api.Endpoint{
		&ListPromptsEndpoint{},
		&GetPromptEndpoint{},
		&ExportPromptsEndpoint{},
		&SavePromptsEndpoint{},
		&RefreshPromptsEndpoint{},
		&RemotePromptsEndpoint{},
	}
}

// MetricsCommands returns endpoints for metrics operations.
func MetricsCommands() []api.Endpoint {
	return []api.Endpoint{
		&MetricsSummaryEndpoint{},
	}
}
