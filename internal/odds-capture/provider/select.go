package provider

import (
	"context"

	"go.uber.org/zap"

	"github.com/xpoes123/SharpLab/internal/odds-capture/activities"
	"github.com/xpoes123/SharpLab/internal/shared/config"
)

// ScheduleFromConfig: SCHEDULE_URL, depois SCHEDULE_FILE, senão o stub
func ScheduleFromConfig(cfg config.Config) activities.ScheduleProvider {
	switch {
	case cfg.ScheduleURL != "":
		return NewHTTPSchedule(cfg.ScheduleURL)
	case cfg.ScheduleFile != "":
		return NewFileSchedule(cfg.ScheduleFile)
	default:
		return NewStub()
	}
}

// OddsFromConfig: SUPPLIER_WS_URL (quadro ao vivo), depois ODDS_API_URL, senão o stub.
// O quadro WS passa a consumir o feed em background até ctx terminar.
func OddsFromConfig(ctx context.Context, cfg config.Config, log *zap.Logger) activities.OddsProvider {
	switch {
	case cfg.SupplierWSURL != "":
		b := NewWSBoard(cfg.SupplierWSURL, cfg.OddsSource, log.Named("ws_board"))
		go b.Start(ctx)
		return b
	case cfg.OddsAPIURL != "":
		return NewHTTPOdds(cfg.OddsAPIURL, cfg.OddsSource)
	default:
		return NewStub()
	}
}
