package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/worker-sdk/errors"
	"github.com/wippyai/worker-sdk/future"
	"github.com/wippyai/worker-sdk/native"
)

// Locator finds the deployments of a project.
type Locator struct {
	rt     native.Runtime
	params LocatorParams
}

// DeploymentList is the outcome of a deployment query.
type DeploymentList struct {
	Err         error
	Deployments []string
}

// NewLocator returns a locator for params.
func NewLocator(rt native.Runtime, params LocatorParams) *Locator {
	return &Locator{rt: rt, params: params}
}

// DeploymentList returns a future for the project's deployment names.
func (l *Locator) DeploymentList() *future.Future[LocatorParams, DeploymentList] {
	w := l.rt.Worker()
	return future.New(l.params, future.Ops[LocatorParams, DeploymentList]{
		Name: "deployment list of " + l.params.Project,
		Start: func(p LocatorParams) native.Ptr {
			return w.DeploymentListAsync(p.Host, p.Project)
		},
		Poll: func(f native.Ptr) (DeploymentList, bool) {
			deps, ready, msg := w.DeploymentListFutureGet(f, 0)
			if !ready {
				return DeploymentList{}, false
			}
			if msg != "" {
				return DeploymentList{Err: errors.NativeError(errors.PhaseConnect, "deployment list", msg)}, true
			}
			return DeploymentList{Deployments: deps}, true
		},
		Destroy: w.DeploymentListFutureDestroy,
	})
}

// Deployments queries the deployment names, polling every interval until
// the answer arrives or ctx ends.
func (l *Locator) Deployments(ctx context.Context, interval time.Duration) ([]string, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	res, err := future.Await(ctx, l.DeploymentList(), interval)
	if err != nil {
		return nil, err
	}
	if res.Err != nil {
		return nil, res.Err
	}
	Logger().Debug("deployments listed",
		zap.String("project", l.params.Project),
		zap.Strings("deployments", res.Deployments))
	return res.Deployments, nil
}
