package services

import (
	"context"

	"github.com/lequal/sonarqube-verify/pkg/compose"
	"github.com/lequal/sonarqube-verify/pkg/podman"
)

// ContainerRuntime is the part of the container engine the services drive.
type ContainerRuntime interface {
	compose.Runtime
	RestartContainer(ctx context.Context, id string) error
	Logs(ctx context.Context, id string, q podman.LogQuery) (string, error)
}

// ReleaseFunc gives back what Acquire took. It is safe to call once.
type ReleaseFunc func(ctx context.Context) error

func noRelease(context.Context) error { return nil }
