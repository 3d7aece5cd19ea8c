package temporal

import (
	"fmt"

	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/xpoes123/SharpLab/internal/shared/config"
	"github.com/xpoes123/SharpLab/internal/shared/logger"
)

// Dial conecta no frontend do Temporal usando o logger do serviço
func Dial(cfg config.Config, log *zap.Logger) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalHostPort,
		Namespace: cfg.TemporalNamespace,
		Logger:    logger.NewTemporal(log.Named("temporal")),
		Identity:  cfg.ServiceName,
	})
	if err != nil {
		return nil, fmt.Errorf("dial temporal %s: %w", cfg.TemporalHostPort, err)
	}
	return c, nil
}
