package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jihwankim/remoteperf/pkg/handlers"
	"github.com/jihwankim/remoteperf/pkg/transport"
	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Args:  cobra.NoArgs,
	Short: "Run a one-shot diagnostic query against a device",
	Long: `Connects to a single device, runs one diagnostic command (or the
two-snapshot recipe a rate metric needs), prints the parsed result as
JSON, and disconnects.`,
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().String("family", "", "device family: linux, android, or qnx (required)")
	queryCmd.Flags().String("host", "", "target address: user@host[:port] for SSH, serial for ADB, container name for Docker (required)")
	queryCmd.Flags().String("metric", "", "cpu, mem, uptime, diskinfo, diskio, net, boottime (required)")
	queryCmd.Flags().Duration("interval", 2*time.Second, "sampling window for rate metrics (cpu, net)")
	queryCmd.Flags().String("identity", "", "SSH private key path")
	queryCmd.Flags().String("password", "", "SSH password")
	queryCmd.Flags().Duration("timeout", 0, "per-command timeout override")
	queryCmd.Flags().Bool("force", false, "qnx only: allow a cpu interval below the 1s hogs floor")

	_ = queryCmd.MarkFlagRequired("family")
	_ = queryCmd.MarkFlagRequired("host")
	_ = queryCmd.MarkFlagRequired("metric")
}

func runQuery(cmd *cobra.Command, args []string) error {
	family, _ := cmd.Flags().GetString("family")
	host, _ := cmd.Flags().GetString("host")
	metric, _ := cmd.Flags().GetString("metric")
	interval, _ := cmd.Flags().GetDuration("interval")
	identity, _ := cmd.Flags().GetString("identity")
	password, _ := cmd.Flags().GetString("password")
	force, _ := cmd.Flags().GetBool("force")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	t, err := buildTransport(family, host, identity, password, cfg.Transport, log)
	if err != nil {
		return err
	}

	ctx := context.Background()
	sess, err := transport.Open(ctx, t)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", host, err)
	}
	defer sess.Close(ctx)

	h, err := newHandler(family, t, log)
	if err != nil {
		return err
	}

	result, err := runOneShotQuery(ctx, h, metric, interval, force)
	if err != nil {
		sess.Fail(err)
		return fmt.Errorf("query %q failed: %w", metric, err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// runOneShotQuery dispatches metric to the matching Get* method on h.
// Handler method sets differ slightly by family (QNX's CPU recipes take
// a whole-second interval rather than a time.Duration, Android and QNX
// expose boottime while plain Linux does not), so this is a straight type switch rather than a
// shared interface.
func runOneShotQuery(ctx context.Context, h any, metric string, interval time.Duration, force bool) (any, error) {
	switch handler := h.(type) {
	case *handlers.Android:
		if metric == "boottime" {
			return handler.GetBootTime(ctx)
		}
		return runLinuxQuery(ctx, &handler.Linux, metric, interval)
	case *handlers.QNX:
		return runQNXQuery(ctx, handler, metric, interval, force)
	case *handlers.Linux:
		return runLinuxQuery(ctx, handler, metric, interval)
	default:
		return nil, fmt.Errorf("unsupported handler type %T", h)
	}
}

func runLinuxQuery(ctx context.Context, h *handlers.Linux, metric string, interval time.Duration) (any, error) {
	switch metric {
	case "cpu":
		return h.GetCPUUsage(ctx, interval)
	case "mem":
		return h.GetMemUsage(ctx)
	case "uptime":
		return h.GetSystemUptime(ctx)
	case "diskinfo":
		return h.GetDiskInfo(ctx)
	case "diskio":
		return h.GetDiskIO(ctx)
	case "net":
		return h.GetNetworkUsage(ctx, interval)
	default:
		return nil, fmt.Errorf("unsupported metric %q for this family", metric)
	}
}

func runQNXQuery(ctx context.Context, h *handlers.QNX, metric string, interval time.Duration, force bool) (any, error) {
	switch metric {
	case "cpu":
		return h.GetCPUUsage(ctx, int(interval/time.Second), force)
	case "mem":
		return h.GetMemUsage(ctx)
	case "uptime":
		return h.GetSystemUptime(ctx)
	case "diskinfo":
		return h.GetDiskInfo(ctx)
	case "boottime":
		return h.GetBootTime(ctx)
	default:
		return nil, fmt.Errorf("unsupported metric %q for this family", metric)
	}
}
