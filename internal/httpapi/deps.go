package httpapi

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"crickmic-engine/internal/config"
	"crickmic-engine/internal/events"
	"crickmic-engine/internal/orchestrator"
	"crickmic-engine/internal/secrets"
	"crickmic-engine/internal/store"
	"crickmic-engine/internal/tracker"
)

type Deps struct {
	DB  *store.DB // optional; history, images and feed need it
	Hub *events.Hub

	Orch    *orchestrator.Orchestrator
	Tracker *tracker.Monitor
	Secrets *secrets.Store

	Log zerolog.Logger

	// Atomic stores
	CfgVal *atomic.Value // stores config.Config

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)
	// OnConfig applies a freshly saved config to running components.
	OnConfig func(config.Config)

	Now func() time.Time
}

func (d Deps) cfg() config.Config {
	if d.CfgVal == nil {
		return config.Default()
	}
	if c, ok := d.CfgVal.Load().(config.Config); ok {
		return c
	}
	return config.Default()
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
