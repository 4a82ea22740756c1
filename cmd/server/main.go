package main

import (
	"context"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"coachspine/internal/agent"
	"coachspine/internal/analysis"
	"coachspine/internal/api"
	"coachspine/internal/chat"
	"coachspine/internal/config"
	"coachspine/internal/dashboard"
	"coachspine/internal/db"
	"coachspine/internal/logx"
	"coachspine/internal/mcpclient"
	"coachspine/internal/scheduler"
	"coachspine/internal/shapers"
	"coachspine/internal/store"
	"coachspine/internal/telemetry"
	"coachspine/internal/upsert"

	"github.com/google/uuid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logx.Fatalf("loading configuration: %v", err)
	}
	logx.SetLevel(cfg.LogLevel)

	otelProviders := telemetry.Setup()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelProviders.Shutdown(shutdownCtx); err != nil {
			logx.Warnf("telemetry shutdown: %v", err)
		}
	}()

	conn, err := db.Connect(db.Config{DatabaseURL: cfg.DatabaseURL})
	if err != nil {
		logx.Fatalf("connecting to database: %v", err)
	}
	defer conn.Close()

	if cfg.AutoMigrate {
		if err := db.RunMigrations(conn.DB); err != nil {
			logx.Fatalf("running migrations: %v", err)
		}
		logx.Info("database migrations applied")
	}

	st := store.New(conn.DB)

	defaultUserID, err := resolveDefaultUser(st)
	if err != nil {
		logx.Fatalf("resolving default user: %v", err)
	}

	upserts := upsert.New(st)
	chatSvc := chat.NewService(st)
	dashSvc := dashboard.NewService(st.DB)

	mcp := buildMCPClient(cfg)

	registry := buildRegistry(st, mcp)
	if mcp != nil {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.MCPToolTimeout)
		if err := registry.DiscoverTrackerTools(ctx); err != nil {
			logx.Warnf("discovering tracker MCP tools: %v", err)
		}
		cancel()
	}

	runtime := agent.NewRuntime(cfg.AnthropicAPIKey, cfg.AnthropicModel, registry, cfg.MCPToolTimeout)

	sched, err := buildScheduler(cfg, st, upserts, mcp)
	if err != nil {
		logx.Fatalf("building scheduler: %v", err)
	}

	appCtx := &api.AppContext{
		Store:             st,
		Chat:              chatSvc,
		Runtime:           runtime,
		Upserts:           upserts,
		Dashboard:         dashSvc,
		Scheduler:         sched,
		ToolRegistry:      registry,
		DefaultUserID:     defaultUserID,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
	}
	srv := api.NewServer(appCtx)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // streaming chat turns hold the response open
		IdleTimeout:  60 * time.Second,
	}

	sched.Start()

	go func() {
		logx.Infof("listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatalf("server error: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logx.Info("shutting down")
	if err := sched.Shutdown(); err != nil {
		logx.Errorf("scheduler shutdown: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logx.Fatalf("server shutdown failed: %v", err)
	}
}

// resolveDefaultUser finds the single existing profile for this
// deployment, or creates one, so the HTTP layer always has a fallback
// identity for callers that omit X-User-ID.
func resolveDefaultUser(st *store.Store) (uuid.UUID, error) {
	ctx := context.Background()
	users, err := st.Users.ListAll(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	if len(users) > 0 {
		return users[0].ID, nil
	}
	created, err := st.Users.Create(ctx, "default", nil)
	if err != nil {
		return uuid.Nil, err
	}
	logx.Infof("created default user %s", created.ID)
	return created.ID, nil
}

// buildMCPClient constructs the tracker MCP client, or nil when no
// tracker command is configured — the agent registry and the scheduler's
// pull job both degrade gracefully without one.
func buildMCPClient(cfg *config.Config) *mcpclient.Client {
	if cfg.TrackerMCPCmd == "" {
		return nil
	}
	parts := strings.Fields(cfg.TrackerMCPCmd)
	env := []string{}
	if cfg.TrackerAPIKey != "" {
		env = append(env, "TRACKER_API_KEY="+cfg.TrackerAPIKey)
	}
	return mcpclient.New(parts[0], parts[1:], env)
}

// buildRegistry wires every local shaper and analysis tool plus the tracker's
// remote tools (discovered after boot) into one Registry.
func buildRegistry(st *store.Store, mcp *mcpclient.Client) *agent.Registry {
	nutritionShaper := shapers.NewNutritionShaper(st.Nutrition, st.HealthDaily)
	workoutShaper := shapers.NewWorkoutShaper(st.Workouts)
	healthShaper := shapers.NewHealthShaper(st.HealthDaily, st.HealthWeekly)
	snapshotBuilder := analysis.NewSnapshotBuilder(nutritionShaper, workoutShaper, healthShaper)

	return agent.NewRegistry(mcp,
		agent.NewNutritionSummaryTool(nutritionShaper),
		agent.NewWorkoutSummaryTool(workoutShaper),
		agent.NewHealthSummaryTool(healthShaper),
		agent.NewHolisticSnapshotTool(snapshotBuilder),
		agent.NewDetectPlateauTool(),
		agent.NewCorrelateDomainsTool(),
	)
}

func buildScheduler(cfg *config.Config, st *store.Store, upserts *upsert.Service, mcp *mcpclient.Client) (*scheduler.Scheduler, error) {
	scraper := scheduler.NewScraper(scheduler.ScraperConfig{
		BaseURL:      cfg.ScraperBaseURL,
		Username:     cfg.ScraperUsername,
		Password:     cfg.ScraperPassword,
		LookbackDays: cfg.SyncLookbackDays,
	}, upserts)

	var puller *scheduler.TrackerPuller
	if mcp != nil {
		puller = scheduler.NewTrackerPuller(mcp, upserts)
	}

	return scheduler.New(st, scraper, puller, scheduler.Config{
		CronExpr:            cfg.ScrapeCron,
		JobTimeout:          cfg.ScrapeJobTimeout,
		StalenessThreshold:  cfg.SyncStalenessThreshold,
		TrackerPullInterval: cfg.TrackerPullInterval,
	})
}
