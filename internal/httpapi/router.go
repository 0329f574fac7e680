package httpapi

import "net/http"

// NewMux returns the raw mux so main() can still attach /shutdown (needs srv+token).
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	hh := HealthHandler{Orch: d.Orch, Now: d.now}
	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))

	// Candidates, selection and autopilot
	mh := MatchesHandler{Orch: d.Orch}
	mux.HandleFunc("/matches", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: mh.List,
	}))
	mux.HandleFunc("/matches/refresh", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: mh.Refresh,
	}))

	sel := SelectionHandler{Orch: d.Orch}
	mux.HandleFunc("/selection", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:    sel.Get,
		http.MethodPost:   sel.Toggle,
		http.MethodDelete: sel.Clear,
	}))
	mux.HandleFunc("/generate", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: sel.Generate,
	}))

	ah := AutopilotHandler{Orch: d.Orch}
	mux.HandleFunc("/autopilot", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:  ah.Get,
		http.MethodPost: ah.Set,
	}))

	// Posts
	ph := PostsHandler{Orch: d.Orch, DB: d.DB}
	mux.HandleFunc("/posts", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ph.List,
	}))
	mux.HandleFunc("/posts/", methodMux(map[string]http.HandlerFunc{
		http.MethodDelete: ph.DeleteByPath, // expects /posts/{id}
	}))
	mux.HandleFunc("/history", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ph.History,
	}))
	mux.HandleFunc("/history/", methodMux(map[string]http.HandlerFunc{
		http.MethodDelete: ph.DeleteHistory, // expects /history/{id}
	}))
	mux.HandleFunc("/dispatch", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: ph.Dispatch,
	}))

	// Live tracker
	th := TrackerHandler{Orch: d.Orch, Tracker: d.Tracker}
	mux.HandleFunc("/tracker", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:    th.Get,
		http.MethodPost:   th.Start,
		http.MethodDelete: th.Stop,
	}))
	mux.HandleFunc("/tracker/refresh", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: th.Refresh,
	}))
	mux.HandleFunc("/tracker/dispatch", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: th.Dispatch,
	}))

	// Config
	ch := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
		OnConfig:    d.OnConfig,
	}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
		http.MethodPut: ch.Put,
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Path,
	}))
	mux.HandleFunc("/config/validate", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Validate,
	}))

	// Secrets
	sh := SecretsHandler{Secrets: d.Secrets}
	mux.HandleFunc("/api/secrets", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: sh.Status,
	}))
	mux.HandleFunc("/api/secrets/", sh.ByPath)

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	// Images and feed
	ih := ImagesHandler{DB: d.DB}
	mux.HandleFunc("/images/", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ih.GetByPath,
	}))
	fh := FeedHandler{Orch: d.Orch, DB: d.DB, Cfg: d.cfg, Now: d.now}
	mux.HandleFunc("/feed.atom", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: fh.Atom,
	}))

	dh := DBHandler{DB: d.DB}
	mux.HandleFunc("/db/checkpoint", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: dh.Checkpoint,
	}))

	return mux
}

// Handler wraps h in the standard middleware chain.
func Handler(d Deps, h http.Handler) http.Handler {
	return Chain(h, RequestID, Recover(d.Log), AccessLog(d.Log), Cors)
}
