package handler

import (
	"geodispatch/internal/app/dispatch"
	"geodispatch/internal/app/presence"
	"geodispatch/internal/app/store"
	"geodispatch/internal/configs"
)

// AppDeps bundles the shared dependencies every handler needs.
// Profiles is nil when the durable store is disabled (no DATABASE_URL);
// handlers that need it must check.
type AppDeps struct {
	Registry   *presence.Registry
	Dispatcher *dispatch.Dispatcher
	Profiles   *store.Profiles
	Config     *configs.AppConfig
}
