package telemetry

import (
	"fmt"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBSystem is reported as db.system on query spans
const DBSystem = "postgresql"

// RegisterDBTracing installs the otelgorm plugin. Query variables are never
// attached to spans.
func RegisterDBTracing(db *gorm.DB, enabled bool, logger *zap.Logger) error {
	if !enabled {
		logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}
	plugin := otelgorm.NewPlugin(
		otelgorm.WithDBName(DBSystem),
		otelgorm.WithoutQueryVariables(),
	)
	if err := db.Use(plugin); err != nil {
		return fmt.Errorf("failed to register otelgorm: %w", err)
	}
	logger.Info("Database tracing enabled")
	return nil
}
