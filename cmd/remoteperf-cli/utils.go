package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jihwankim/remoteperf/pkg/config"
	"github.com/jihwankim/remoteperf/pkg/handlers"
	"github.com/jihwankim/remoteperf/pkg/logging"
	"github.com/jihwankim/remoteperf/pkg/transport"
)

// loadConfig loads the configuration from file, falling back to
// config.DefaultConfig when the file does not exist (nothing is written).
func loadConfig() (*config.Config, error) {
	configPath := cfgFile
	if configPath == "" {
		configPath = "remoteperf.yaml"
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := config.DefaultConfig()
		return cfg, nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *logging.Logger {
	level := logging.Level(cfg.Logging.Level)
	if verbose {
		level = logging.LevelDebug
	}
	return logging.New(logging.Config{
		Level:  level,
		Format: logging.Format(cfg.Logging.Format),
		Output: os.Stderr,
	})
}

// buildTransport resolves a target's host string to a connection. The
// host may carry an explicit "ssh:", "adb:", or "docker:" scheme prefix
// (e.g. "adb:emulator-5554", "ssh:pi@10.0.0.5:22"); without one, the
// scheme defaults by family: "android" dials over ADB, anything else
// over SSH. identityFile and password, when set, apply only to SSH.
func buildTransport(family, host, identityFile, password string, cfg config.TransportConfig, log *logging.Logger) (transport.Transport, error) {
	scheme, rest := splitScheme(host, family)

	switch scheme {
	case "ssh":
		target, err := parseSSHHost(rest, identityFile, password)
		if err != nil {
			return nil, err
		}
		return transport.NewSSHTransport(target, cfg, log), nil
	case "adb":
		if rest == "" {
			return nil, fmt.Errorf("adb target requires a device serial")
		}
		return transport.NewADBTransport(rest, cfg, log), nil
	case "docker":
		if rest == "" {
			return nil, fmt.Errorf("docker target requires a container name")
		}
		return transport.NewDockerTransport(rest, cfg, log), nil
	default:
		return nil, fmt.Errorf("unrecognized transport scheme %q", scheme)
	}
}

func splitScheme(host, family string) (scheme, rest string) {
	if i := strings.Index(host, ":"); i > 0 {
		switch host[:i] {
		case "ssh", "adb", "docker":
			return host[:i], host[i+1:]
		}
	}
	if family == "android" {
		return "adb", host
	}
	return "ssh", host
}

func parseSSHHost(hostport, identityFile, password string) (transport.SSHTarget, error) {
	user := ""
	addr := hostport
	if i := strings.Index(hostport, "@"); i >= 0 {
		user = hostport[:i]
		addr = hostport[i+1:]
	}

	host := addr
	port := 22
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		host = addr[:i]
		p, err := strconv.Atoi(addr[i+1:])
		if err != nil {
			return transport.SSHTarget{}, fmt.Errorf("invalid SSH port in %q: %w", hostport, err)
		}
		port = p
	}

	return transport.SSHTarget{
		Host:           host,
		Port:           port,
		Username:       user,
		Password:       password,
		PrivateKeyPath: identityFile,
	}, nil
}

func newHandler(family string, t transport.Transport, log *logging.Logger) (any, error) {
	switch family {
	case "linux":
		return handlers.NewLinux(t, log), nil
	case "android":
		return handlers.NewAndroid(t, log), nil
	case "qnx":
		return handlers.NewQNX(t, log), nil
	default:
		return nil, fmt.Errorf("unrecognized device family %q (want linux, android, or qnx)", family)
	}
}
