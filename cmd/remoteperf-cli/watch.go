package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jihwankim/remoteperf/pkg/config"
	"github.com/jihwankim/remoteperf/pkg/handlers"
	"github.com/jihwankim/remoteperf/pkg/logging"
	"github.com/jihwankim/remoteperf/pkg/metrics"
	"github.com/jihwankim/remoteperf/pkg/profile"
	"github.com/jihwankim/remoteperf/pkg/profile/parser"
	"github.com/jihwankim/remoteperf/pkg/profile/validator"
	"github.com/jihwankim/remoteperf/pkg/transport"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Args:  cobra.NoArgs,
	Short: "Run every sampler in a sampling-profile YAML file for a fixed duration",
	Long: `Loads a sampling profile, connects to each target, starts the
configured background samplers, waits --for, stops them all, and prints
every target's results as JSON.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().String("profile", "", "path to sampling-profile YAML file (required)")
	watchCmd.Flags().StringArray("set", []string{}, "profile variable overrides (e.g., --set TARGET_HOST=10.0.0.5)")
	watchCmd.Flags().Duration("for", 30*time.Second, "how long to run the samplers before stopping them")
	watchCmd.Flags().String("identity", "", "SSH private key path, applied to every SSH target")
	watchCmd.Flags().String("password", "", "SSH password, applied to every SSH target")
	watchCmd.Flags().Bool("dry-run", false, "validate the profile without connecting to any target")
	watchCmd.Flags().Bool("serve-metrics", false, "serve Prometheus instrumentation on the configured metrics.listen address")

	_ = watchCmd.MarkFlagRequired("profile")
}

func runWatch(cmd *cobra.Command, args []string) error {
	profilePath, _ := cmd.Flags().GetString("profile")
	setFlags, _ := cmd.Flags().GetStringArray("set")
	duration, _ := cmd.Flags().GetDuration("for")
	identity, _ := cmd.Flags().GetString("identity")
	password, _ := cmd.Flags().GetString("password")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	serveMetrics, _ := cmd.Flags().GetBool("serve-metrics")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	if serveMetrics {
		cfg.Metrics.Enabled = true
	}

	m := metrics.Noop()
	if cfg.Metrics.Enabled {
		m = metrics.New()
		srv := &http.Server{Addr: cfg.Metrics.Listen, Handler: m.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server stopped", "error", err)
			}
		}()
		log.Info("serving metrics", "addr", cfg.Metrics.Listen)
	}

	p := parser.New(parseSetFlags(setFlags))
	prof, err := p.ParseFile(profilePath)
	if err != nil {
		return fmt.Errorf("failed to parse profile: %w", err)
	}

	v := validator.New()
	if verr := v.Validate(prof); verr != nil {
		fmt.Println(v.GetReport())
		return fmt.Errorf("profile validation failed: %w", verr)
	}
	if v.HasWarnings() {
		log.Warn("profile has warnings")
		fmt.Println(v.GetReport())
	}

	if dryRun {
		fmt.Println("profile is valid (dry-run mode)")
		return nil
	}

	ctx := context.Background()
	results := make(map[string]any, len(prof.Targets))

	for _, target := range prof.Targets {
		alias := target.Alias
		if alias == "" {
			alias = target.Host
		}

		r, err := watchTarget(ctx, target, prof.Samplers, identity, password, cfg, log, m, duration)
		if err != nil {
			log.Error("target failed", "target", alias, "error", err)
			results[alias] = map[string]string{"error": err.Error()}
			continue
		}
		results[alias] = r
	}

	out, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// metricsSettable is satisfied by every concrete transport and every
// handler family; used here rather than threading a *metrics.Metrics
// through buildTransport/newHandler's already-long parameter lists.
type metricsSettable interface {
	SetMetrics(m *metrics.Metrics)
}

// watchTarget connects to one target, starts every configured sampler,
// waits duration, stops them all, and returns each sampler's final
// results keyed by kind. A sampler kind this target's family doesn't
// support is reported as a per-kind error rather than aborting the
// whole target.
func watchTarget(ctx context.Context, target profile.Target, samplers []profile.Sampler, identity, password string, cfg *config.Config, log *logging.Logger, m *metrics.Metrics, duration time.Duration) (map[string]any, error) {
	t, err := buildTransport(target.Family, target.Host, identity, password, cfg.Transport, log)
	if err != nil {
		return nil, err
	}
	if settable, ok := t.(metricsSettable); ok {
		settable.SetMetrics(m)
	}

	sess, err := transport.Open(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	defer sess.Close(ctx)

	h, err := newHandler(target.Family, t, log)
	if err != nil {
		sess.Fail(err)
		return nil, err
	}
	if settable, ok := h.(metricsSettable); ok {
		settable.SetMetrics(m)
	}

	started := make([]string, 0, len(samplers))
	for _, s := range samplers {
		if err := startSamplerKind(ctx, h, s.Kind, s.Interval, s.Force); err != nil {
			log.Warn("failed to start sampler", "kind", s.Kind, "error", err)
			continue
		}
		started = append(started, s.Kind)
	}

	select {
	case <-ctx.Done():
	case <-time.After(duration):
	}

	results := make(map[string]any, len(started))
	for _, kind := range started {
		r, err := stopSamplerKind(h, kind)
		if err != nil {
			results[kind] = map[string]string{"error": err.Error()}
			continue
		}
		results[kind] = r
	}
	return results, nil
}

// startSamplerKind dispatches kind to the matching Start* method on h,
// keyed the same way profile.KnownKinds names them. force only applies
// to qnx's "cpu"/"cpu_proc" below the 1s hogs floor.
func startSamplerKind(ctx context.Context, h any, kind string, interval time.Duration, force bool) error {
	switch handler := h.(type) {
	case *handlers.QNX:
		seconds := int(interval / time.Second)
		switch kind {
		case "cpu":
			return handler.StartCPUMeasurement(ctx, seconds, force)
		case "mem":
			return handler.StartMemMeasurement(ctx, interval)
		case "diskinfo":
			return handler.StartDiskInfoMeasurement(ctx, interval)
		case "cpu_proc":
			return handler.StartCPUMeasurementProcWise(ctx, seconds, force)
		case "mem_proc":
			return handler.StartMemMeasurementProcWise(ctx, interval)
		default:
			return fmt.Errorf("qnx does not support sampler kind %q", kind)
		}
	case *handlers.Android:
		return startLinuxSamplerKind(ctx, &handler.Linux, kind, interval)
	case *handlers.Linux:
		return startLinuxSamplerKind(ctx, handler, kind, interval)
	default:
		return fmt.Errorf("unsupported handler type %T", h)
	}
}

func startLinuxSamplerKind(ctx context.Context, h *handlers.Linux, kind string, interval time.Duration) error {
	switch kind {
	case "cpu":
		return h.StartCPUMeasurement(ctx, interval)
	case "mem":
		return h.StartMemMeasurement(ctx, interval)
	case "diskinfo":
		return h.StartDiskInfoMeasurement(ctx, interval)
	case "diskio":
		return h.StartDiskIOMeasurement(ctx, interval)
	case "net":
		return h.StartNetInterfaceMeasurement(ctx, interval)
	case "cpu_proc":
		return h.StartCPUMeasurementProcWise(ctx, interval)
	case "mem_proc":
		return h.StartMemMeasurementProcWise(ctx, interval)
	case "diskio_proc":
		return h.StartDiskIOMeasurementProcWise(ctx, interval)
	default:
		return fmt.Errorf("linux does not support sampler kind %q", kind)
	}
}

// stopSamplerKind mirrors startSamplerKind for the matching Stop* call.
func stopSamplerKind(h any, kind string) (any, error) {
	switch handler := h.(type) {
	case *handlers.QNX:
		switch kind {
		case "cpu":
			return handler.StopCPUMeasurement()
		case "mem":
			return handler.StopMemMeasurement()
		case "diskinfo":
			return handler.StopDiskInfoMeasurement()
		case "cpu_proc":
			return handler.StopCPUMeasurementProcWise()
		case "mem_proc":
			return handler.StopMemMeasurementProcWise()
		default:
			return nil, fmt.Errorf("qnx does not support sampler kind %q", kind)
		}
	case *handlers.Android:
		return stopLinuxSamplerKind(&handler.Linux, kind)
	case *handlers.Linux:
		return stopLinuxSamplerKind(handler, kind)
	default:
		return nil, fmt.Errorf("unsupported handler type %T", h)
	}
}

func stopLinuxSamplerKind(h *handlers.Linux, kind string) (any, error) {
	switch kind {
	case "cpu":
		return h.StopCPUMeasurement()
	case "mem":
		return h.StopMemMeasurement()
	case "diskinfo":
		return h.StopDiskInfoMeasurement()
	case "diskio":
		return h.StopDiskIOMeasurement()
	case "net":
		return h.StopNetInterfaceMeasurement()
	case "cpu_proc":
		return h.StopCPUMeasurementProcWise()
	case "mem_proc":
		return h.StopMemMeasurementProcWise()
	case "diskio_proc":
		return h.StopDiskIOMeasurementProcWise()
	default:
		return nil, fmt.Errorf("linux does not support sampler kind %q", kind)
	}
}

// parseSetFlags parses --set flags into a map of variable overrides.
func parseSetFlags(setFlags []string) map[string]string {
	overrides := make(map[string]string)
	for _, flag := range setFlags {
		parts := strings.SplitN(flag, "=", 2)
		if len(parts) == 2 {
			overrides[parts[0]] = parts[1]
		}
	}
	return overrides
}
