package transport

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
)

// ResolveContainerByName returns the ID of the first container
// whose name matches name (Docker prefixes container names with "/").
func ResolveContainerByName(ctx context.Context, cli *client.Client, name string) (string, error) {
	containers, err := cli.ContainerList(ctx, types.ContainerListOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to list containers: %w", err)
	}
	for _, ctr := range containers {
		for _, ctrName := range ctr.Names {
			if ctrName == "/"+name || ctrName == name {
				return ctr.ID, nil
			}
		}
	}
	return "", fmt.Errorf("container not found: %s", name)
}

// ResolveContainersByLabel returns the IDs of every container matching
// the given label filters.
func ResolveContainersByLabel(ctx context.Context, cli *client.Client, labels map[string]string) ([]string, error) {
	f := filters.NewArgs()
	for key, value := range labels {
		if value == "" {
			f.Add("label", key)
		} else {
			f.Add("label", fmt.Sprintf("%s=%s", key, value))
		}
	}
	containers, err := cli.ContainerList(ctx, types.ContainerListOptions{Filters: f})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}
	ids := make([]string, 0, len(containers))
	for _, ctr := range containers {
		ids = append(ids, ctr.ID)
	}
	return ids, nil
}
