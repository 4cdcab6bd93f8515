package plugin

import (
	"context"

	"github.com/dshills/dashcore/internal/config"
	"github.com/dshills/dashcore/internal/log"
)

// checkRequirements returns a *RequirementsError when keys are missing, or
// nil. A provider error is logged; keys it could not answer count as missing.
func (m *Manager) checkRequirements(ctx context.Context, def Definition, cfg *config.Config) *RequirementsError {
	var missingConfig, missingEnv []string

	for _, key := range def.Requirements.ConfigKeys {
		if !cfg.Has(key) {
			missingConfig = append(missingConfig, key)
		}
	}

	if len(def.Requirements.EnvKeys) > 0 {
		status, err := m.env.Status(ctx, def.Requirements.EnvKeys)
		if err != nil {
			m.logger.Warn().Err(err).Str(log.FieldPluginID, def.ID).Msg("env status lookup failed")
		}
		for _, key := range def.Requirements.EnvKeys {
			if !status[key] {
				missingEnv = append(missingEnv, key)
			}
		}
	}

	if len(missingConfig) == 0 && len(missingEnv) == 0 {
		return nil
	}
	return &RequirementsError{
		PluginID:          def.ID,
		MissingConfigKeys: missingConfig,
		MissingEnvKeys:    missingEnv,
	}
}
