package telemetry

import (
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/gorm"
)

// DBTracingConfig holds database tracing options
type DBTracingConfig struct {
	Enabled    bool
	DBName     string
	LogFullSQL bool // include bound variables in db.statement
}

// RegisterDBTracing installs the otelgorm plugin so every query becomes a
// child span of the request or job that issued it.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig) error {
	if !cfg.Enabled {
		return nil
	}
	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBName)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	return db.Use(otelgorm.NewPlugin(opts...))
}
