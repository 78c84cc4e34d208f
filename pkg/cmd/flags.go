package cmd

import (
	"github.com/dukex/docflow/pkg/oracle/azure"
	"github.com/dukex/docflow/pkg/session"
	"github.com/urfave/cli/v3"
)

// StackFlags are the flags every binary building a Stack accepts.
func StackFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "Session store URL (memory://, file://<dir>, postgres://..., redis://...)",
			Value:   "memory://",
			Sources: cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus type (gochannel, kafka)",
			Value:   "gochannel",
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringFlag{
			Name:    "kafka-brokers",
			Usage:   "Comma separated Kafka brokers",
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
		&cli.StringFlag{
			Name:    "templates",
			Usage:   "Path to the template catalog YAML (embedded catalog when empty)",
			Sources: cli.EnvVars("TEMPLATES_PATH"),
		},
		&cli.StringFlag{
			Name:    "template-dir",
			Usage:   "Directory holding the document template files",
			Value:   "./templates",
			Sources: cli.EnvVars("TEMPLATE_DIR"),
		},
		&cli.StringFlag{
			Name:    "output-dir",
			Usage:   "Directory generated documents are written to",
			Value:   "./output",
			Sources: cli.EnvVars("OUTPUT_DIR"),
		},
		&cli.StringFlag{
			Name:    "oracle",
			Usage:   "Language oracle provider (azure, rules)",
			Value:   "rules",
			Sources: cli.EnvVars("ORACLE_PROVIDER"),
		},
		&cli.StringFlag{
			Name:    "azure-openai-endpoint",
			Usage:   "Azure OpenAI endpoint",
			Sources: cli.EnvVars("AZURE_OPENAI_ENDPOINT"),
		},
		&cli.StringFlag{
			Name:    "azure-openai-key",
			Usage:   "Azure OpenAI API key",
			Sources: cli.EnvVars("AZURE_OPENAI_KEY"),
		},
		&cli.StringFlag{
			Name:    "azure-openai-deployment",
			Usage:   "Azure OpenAI deployment name",
			Sources: cli.EnvVars("AZURE_OPENAI_DEPLOYMENT"),
		},
		&cli.FloatFlag{
			Name:    "azure-openai-temperature",
			Usage:   "Sampling temperature for Azure OpenAI requests",
			Value:   azure.DefaultTemperature,
			Sources: cli.EnvVars("AZURE_OPENAI_TEMPERATURE"),
		},
		&cli.IntFlag{
			Name:    "max-prompt-attempts",
			Usage:   "Extraction attempts before fallback values are used",
			Sources: cli.EnvVars("MAX_PROMPT_ATTEMPTS"),
		},
		&cli.IntFlag{
			Name:    "session-retention-days",
			Usage:   "Days an idle session is kept",
			Value:   session.DefaultRetentionDays,
			Sources: cli.EnvVars("SESSION_RETENTION_DAYS"),
		},
		&cli.BoolFlag{
			Name:    "otel",
			Usage:   "Export traces over OTLP/HTTP",
			Sources: cli.EnvVars("OTEL_ENABLED"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
	}
}

// StackConfigFrom reads the StackFlags values of command.
func StackConfigFrom(command *cli.Command, serviceName string) StackConfig {
	return StackConfig{
		ServiceName:   serviceName,
		DatabaseURL:   command.String("database-url"),
		EventBus:      command.String("event-bus"),
		KafkaBrokers:  command.String("kafka-brokers"),
		TemplatesPath: command.String("templates"),
		TemplateDir:   command.String("template-dir"),
		OutputDir:     command.String("output-dir"),
		Oracles: OracleConfig{
			Provider:          command.String("oracle"),
			AzureEndpoint:     command.String("azure-openai-endpoint"),
			AzureAPIKey:       command.String("azure-openai-key"),
			AzureDeploymentID: command.String("azure-openai-deployment"),
			AzureTemperature:  command.Float("azure-openai-temperature"),
		},
		MaxPromptAttempts: command.Int("max-prompt-attempts"),
		RetentionDays:     command.Int("session-retention-days"),
		Tracing:           command.Bool("otel"),
	}
}
