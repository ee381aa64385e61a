package sim

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dsimlab/dsim/trace"
)

// RunReplicas runs n independently seeded simulations of the same experiment
// concurrently and returns their traces in replica order. Each simulator
// stays single-threaded; only whole runs execute in parallel. The build
// function receives the replica index and the seed the simulator should be
// configured with (via WithSeed), and must enable tracing.
func RunReplicas(n int, stepLimit int, build func(replica int, seed int64) (*Simulator, error)) ([]*trace.Trace, error) {
	traces := make([]*trace.Trace, n)
	var group errgroup.Group
	for i := 0; i < n; i++ {
		replica := i
		group.Go(func() error {
			simulator, err := build(replica, int64(replica)+1)
			if err != nil {
				return fmt.Errorf("building replica %d: %w", replica, err)
			}
			if err := simulator.Start(); err != nil {
				return fmt.Errorf("replica %d: %w", replica, err)
			}
			if _, err := simulator.RunToCompletion(stepLimit); err != nil {
				return fmt.Errorf("replica %d: %w", replica, err)
			}
			traces[replica] = simulator.Trace()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return traces, nil
}
