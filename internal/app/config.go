package app

import (
	"fmt"

	"github.com/yungbote/finsights-backend/internal/config"
	types "github.com/yungbote/finsights-backend/internal/domain/documents"
)

func wireClock(cfg config.ClockConfig) (*types.Clock, error) {
	clock, err := types.NewClock(cfg.Layout, cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("init clock: %w", err)
	}
	return clock, nil
}
