package sim

import (
	"errors"
	"testing"

	"github.com/dsimlab/dsim"
)

func TestRunReplicas(t *testing.T) {
	const replicas = 4
	system := relaySystem(t)

	traces, err := RunReplicas(replicas, 0, func(replica int, seed int64) (*Simulator, error) {
		simulator := New(system, relay{system: system}, WithTrace(), WithSeed(seed))
		simulator.Schedule(kickoff{Signal: dsim.SignalTo(1)}, 0)
		return simulator, nil
	})
	if err != nil {
		t.Fatalf("running replicas: %v", err)
	}
	if len(traces) != replicas {
		t.Fatalf("expected %d traces, got %d", replicas, len(traces))
	}
	for replica, record := range traces {
		if record == nil {
			t.Fatalf("replica %d returned no trace", replica)
		}
		// every replica runs the same experiment to completion
		if record.Len() != 7 {
			t.Errorf("replica %d: expected 7 occurrences, got %d", replica, record.Len())
		}
	}
}

func TestRunReplicasPropagatesBuildErrors(t *testing.T) {
	broken := errors.New("broken replica")
	system := relaySystem(t)
	_, err := RunReplicas(2, 0, func(replica int, seed int64) (*Simulator, error) {
		if replica == 1 {
			return nil, broken
		}
		return New(system, relay{system: system}, WithTrace(), WithSeed(seed)), nil
	})
	if !errors.Is(err, broken) {
		t.Errorf("expected the build error to surface, got %v", err)
	}
}
