package main

import (
	"context"
	"fmt"

	"github.com/jihwankim/remoteperf/pkg/transport"
	"github.com/spf13/cobra"
)

var pullCmd = &cobra.Command{
	Use:   "pull <remote-path> <local-path>",
	Args:  cobra.ExactArgs(2),
	Short: "Copy a file off a device",
	RunE:  runPull,
}

var pushCmd = &cobra.Command{
	Use:   "push <local-path> <remote-path>",
	Args:  cobra.ExactArgs(2),
	Short: "Copy a file onto a device",
	RunE:  runPush,
}

func init() {
	for _, c := range []*cobra.Command{pullCmd, pushCmd} {
		c.Flags().String("family", "", "device family: linux, android, or qnx (required)")
		c.Flags().String("host", "", "target address: user@host[:port] for SSH, serial for ADB, container name for Docker (required)")
		c.Flags().String("identity", "", "SSH private key path")
		c.Flags().String("password", "", "SSH password")
		_ = c.MarkFlagRequired("family")
		_ = c.MarkFlagRequired("host")
	}
}

func connectForTransfer(cmd *cobra.Command) (context.Context, *transport.Session, transport.Transport, error) {
	family, _ := cmd.Flags().GetString("family")
	host, _ := cmd.Flags().GetString("host")
	identity, _ := cmd.Flags().GetString("identity")
	password, _ := cmd.Flags().GetString("password")

	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	log := newLogger(cfg)

	t, err := buildTransport(family, host, identity, password, cfg.Transport, log)
	if err != nil {
		return nil, nil, nil, err
	}

	ctx := context.Background()
	sess, err := transport.Open(ctx, t)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to %s: %w", host, err)
	}
	return ctx, sess, t, nil
}

func runPull(cmd *cobra.Command, args []string) error {
	ctx, sess, t, err := connectForTransfer(cmd)
	if err != nil {
		return err
	}
	defer sess.Close(ctx)

	if err := t.PullFile(ctx, args[0], args[1]); err != nil {
		sess.Fail(err)
		return fmt.Errorf("pull failed: %w", err)
	}
	fmt.Printf("pulled %s -> %s\n", args[0], args[1])
	return nil
}

func runPush(cmd *cobra.Command, args []string) error {
	ctx, sess, t, err := connectForTransfer(cmd)
	if err != nil {
		return err
	}
	defer sess.Close(ctx)

	if err := t.PushFile(ctx, args[0], args[1]); err != nil {
		sess.Fail(err)
		return fmt.Errorf("push failed: %w", err)
	}
	fmt.Printf("pushed %s -> %s\n", args[0], args[1])
	return nil
}
