package main

import (
	"fmt"
	"os"

	"github.com/xpoes123/SharpLab/internal/odds-capture/cli"
	"github.com/xpoes123/SharpLab/internal/shared/config"
	"github.com/xpoes123/SharpLab/internal/shared/logger"
	"github.com/xpoes123/SharpLab/internal/shared/temporal"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "capture-starter"
	}

	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	dial := func() (cli.Starter, func(), error) {
		c, err := temporal.Dial(cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	}

	if err := cli.NewRootCommand(cfg, dial).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
