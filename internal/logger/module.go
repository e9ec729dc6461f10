package logger

import "go.uber.org/fx"

// Module provides the configured *slog.Logger.
var Module = fx.Provide(New)
