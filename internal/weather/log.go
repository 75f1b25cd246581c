package weather

import (
	"context"
	"log/slog"

	"github.com/i474232898/weather-fetch-pipeline/internal/config"
)

func log(ctx context.Context) *slog.Logger {
	return config.Logger(ctx)
}
