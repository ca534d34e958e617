package readiness

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/util/wait"

	srvErrors "github.com/lequal/sonarqube-verify/pkg/errors"
	"github.com/lequal/sonarqube-verify/pkg/podman"
)

const (
	DefaultInterval = 10 * time.Second
	DefaultTimeout  = 10 * time.Minute
)

// LogReader reads the log stream of a service.
type LogReader interface {
	Logs(ctx context.Context, id string, q podman.LogQuery) (string, error)
}

// Poller blocks until a marker shows up in the logs of a service.
type Poller struct {
	reader         LogReader
	interval       time.Duration
	timeout        time.Duration
	failureMarkers []string
	logger         *zap.SugaredLogger
}

type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithFailureMarkers makes Wait give up as soon as one of the markers is logged.
func WithFailureMarkers(markers ...string) Option {
	return func(p *Poller) {
		p.failureMarkers = append(p.failureMarkers, markers...)
	}
}

func NewPoller(reader LogReader, opts ...Option) *Poller {
	p := &Poller{
		reader:   reader,
		interval: DefaultInterval,
		timeout:  DefaultTimeout,
		logger:   zap.S().Named("readiness"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Wait re-reads the logs of id every interval until marker is present.
//
// It returns a ServiceFailedError if a failure marker shows up first, a
// ReadinessTimeoutError when the poller timeout elapses and ctx.Err() if the
// caller cancels. Log read errors abort the wait.
func (p *Poller) Wait(ctx context.Context, id, marker string, q podman.LogQuery) error {
	p.logger.Infow("waiting for service", "service", id, "marker", marker, "timeout", p.timeout)

	var failure string
	err := wait.PollUntilContextTimeout(ctx, p.interval, p.timeout, true, func(ctx context.Context) (bool, error) {
		logs, err := p.reader.Logs(ctx, id, q)
		if err != nil {
			return false, err
		}
		if strings.Contains(logs, marker) {
			return true, nil
		}
		for _, m := range p.failureMarkers {
			if strings.Contains(logs, m) {
				failure = m
				return true, nil
			}
		}
		p.logger.Debugw("service not ready yet", "service", id)
		return false, nil
	})

	switch {
	case err == nil && failure != "":
		return srvErrors.NewServiceFailedError(id, failure)
	case err == nil:
		p.logger.Infow("service ready", "service", id)
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case wait.Interrupted(err):
		return srvErrors.NewReadinessTimeoutError(id, marker, p.timeout)
	default:
		return err
	}
}

// Observe collects the logs of id for at most window and returns them early
// once any of markers is present.
func (p *Poller) Observe(ctx context.Context, id string, window time.Duration, q podman.LogQuery, markers ...string) (string, error) {
	var logs string
	err := wait.PollUntilContextTimeout(ctx, p.interval, window, true, func(ctx context.Context) (bool, error) {
		var err error
		logs, err = p.reader.Logs(ctx, id, q)
		if err != nil {
			return false, err
		}
		for _, m := range markers {
			if strings.Contains(logs, m) {
				return true, nil
			}
		}
		return false, nil
	})
	switch {
	case err == nil:
		return logs, nil
	case ctx.Err() != nil:
		return logs, ctx.Err()
	case wait.Interrupted(err):
		// window elapsed without any marker
		return logs, nil
	default:
		return logs, err
	}
}
