package pool

import (
	"context"
	"sync"
	"testing"

	v1 "comfycloud/api/v1"
	"comfycloud/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func poolWith(t *testing.T, instances ...*model.Instance) (*Registry, *Scheduler) {
	t.Helper()
	r := NewRegistry(newFakeInstanceRepo(), testLogger())
	for _, inst := range instances {
		require.NoError(t, r.Register(context.Background(), inst))
	}
	return r, NewScheduler(r, testLogger())
}

func online(r *Registry, id string, t Telemetry) {
	r.ReportSuccess(context.Background(), id, t)
}

func TestSelectPrefersShortestQueue(t *testing.T) {
	r, s := poolWith(t,
		&model.Instance{Id: "gpu-01"},
		&model.Instance{Id: "gpu-02"},
	)
	online(r, "gpu-01", Telemetry{})
	online(r, "gpu-02", Telemetry{})

	// Two dispatches onto gpu-01, then the next pick must go to gpu-02.
	picked, err := s.Select(context.Background(), SelectRequest{}, Limits{MaxQueuePerInstance: 10})
	require.NoError(t, err)
	assert.Equal(t, "gpu-01", picked.Id)
	picked, err = s.Select(context.Background(), SelectRequest{}, Limits{MaxQueuePerInstance: 10})
	require.NoError(t, err)
	assert.Equal(t, "gpu-02", picked.Id)

	st1, _ := r.Get("gpu-01")
	st2, _ := r.Get("gpu-02")
	assert.Equal(t, 1, st1.QueueSize)
	assert.Equal(t, 1, st2.QueueSize)
}

func TestSelectUtilizationTieBreak(t *testing.T) {
	r, s := poolWith(t,
		&model.Instance{Id: "gpu-01"},
		&model.Instance{Id: "gpu-02"},
	)
	online(r, "gpu-01", Telemetry{GpuUtilization: 80})
	online(r, "gpu-02", Telemetry{GpuUtilization: 20})

	picked, err := s.Select(context.Background(), SelectRequest{}, Limits{MaxQueuePerInstance: 10})
	require.NoError(t, err)
	assert.Equal(t, "gpu-02", picked.Id)
}

func TestSelectIdTieBreak(t *testing.T) {
	r, s := poolWith(t,
		&model.Instance{Id: "gpu-02"},
		&model.Instance{Id: "gpu-01"},
		&model.Instance{Id: "gpu-03"},
	)
	online(r, "gpu-01", Telemetry{})
	online(r, "gpu-02", Telemetry{})
	online(r, "gpu-03", Telemetry{})

	picked, err := s.Select(context.Background(), SelectRequest{}, Limits{MaxQueuePerInstance: 10})
	require.NoError(t, err)
	assert.Equal(t, "gpu-01", picked.Id)
}

func TestSelectSkipsOffline(t *testing.T) {
	r, s := poolWith(t,
		&model.Instance{Id: "gpu-01"},
		&model.Instance{Id: "gpu-02"},
	)
	online(r, "gpu-02", Telemetry{})

	// gpu-01 never passed a probe and must be invisible.
	picked, err := s.Select(context.Background(), SelectRequest{}, Limits{MaxQueuePerInstance: 10})
	require.NoError(t, err)
	assert.Equal(t, "gpu-02", picked.Id)
}

func TestSelectGpuTypeFilter(t *testing.T) {
	r, s := poolWith(t,
		&model.Instance{Id: "gpu-01", GpuType: "rtx4090"},
		&model.Instance{Id: "gpu-02", GpuType: "a100"},
	)
	online(r, "gpu-01", Telemetry{})
	online(r, "gpu-02", Telemetry{})

	picked, err := s.Select(context.Background(), SelectRequest{GpuType: "a100"}, Limits{MaxQueuePerInstance: 10})
	require.NoError(t, err)
	assert.Equal(t, "gpu-02", picked.Id)

	_, err = s.Select(context.Background(), SelectRequest{GpuType: "h100"}, Limits{MaxQueuePerInstance: 10})
	assert.ErrorIs(t, err, v1.ErrNoCapacity)
}

func TestSelectNoCapacityMutatesNothing(t *testing.T) {
	r, s := poolWith(t, &model.Instance{Id: "gpu-01"})
	online(r, "gpu-01", Telemetry{})

	picked, err := s.Select(context.Background(), SelectRequest{}, Limits{MaxQueuePerInstance: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, picked.QueueSize)

	_, err = s.Select(context.Background(), SelectRequest{}, Limits{MaxQueuePerInstance: 1})
	assert.ErrorIs(t, err, v1.ErrNoCapacity)

	st, _ := r.Get("gpu-01")
	assert.Equal(t, 1, st.QueueSize, "a rejected selection must not touch counters")
}

func TestSelectConcurrentRespectsCap(t *testing.T) {
	r, s := poolWith(t,
		&model.Instance{Id: "gpu-01"},
		&model.Instance{Id: "gpu-02"},
	)
	online(r, "gpu-01", Telemetry{})
	online(r, "gpu-02", Telemetry{})

	const submissions = 20
	const maxQueue = 4

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for i := 0; i < submissions; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Select(context.Background(), SelectRequest{}, Limits{MaxQueuePerInstance: maxQueue})
			if err == nil {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Two instances with four slots each: exactly eight reservations.
	assert.Equal(t, 2*maxQueue, granted)
	st1, _ := r.Get("gpu-01")
	st2, _ := r.Get("gpu-02")
	assert.Equal(t, maxQueue, st1.QueueSize)
	assert.Equal(t, maxQueue, st2.QueueSize)
}

func TestCancelReturnsSlot(t *testing.T) {
	r, s := poolWith(t, &model.Instance{Id: "gpu-01"})
	online(r, "gpu-01", Telemetry{})

	picked, err := s.Select(context.Background(), SelectRequest{}, Limits{MaxQueuePerInstance: 1})
	require.NoError(t, err)
	s.Cancel(context.Background(), picked.Id)

	_, err = s.Select(context.Background(), SelectRequest{}, Limits{MaxQueuePerInstance: 1})
	assert.NoError(t, err)
}
