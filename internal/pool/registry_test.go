package pool

import (
	"context"
	"errors"
	"sync"
	"testing"

	v1 "comfycloud/api/v1"
	"comfycloud/internal/model"
	"comfycloud/pkg/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeInstanceRepo struct {
	mu   sync.Mutex
	rows map[string]*model.Instance
}

func newFakeInstanceRepo(rows ...*model.Instance) *fakeInstanceRepo {
	r := &fakeInstanceRepo{rows: make(map[string]*model.Instance)}
	for _, row := range rows {
		r.rows[row.Id] = row
	}
	return r
}

func (r *fakeInstanceRepo) Create(ctx context.Context, instance *model.Instance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[instance.Id] = instance
	return nil
}

func (r *fakeInstanceRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, id)
	return nil
}

func (r *fakeInstanceRepo) GetByID(ctx context.Context, id string) (*model.Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	copied := *row
	return &copied, nil
}

func (r *fakeInstanceRepo) List(ctx context.Context) ([]*model.Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Instance, 0, len(r.rows))
	for _, row := range r.rows {
		copied := *row
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeInstanceRepo) UpdateRuntime(ctx context.Context, id string, fields map[string]interface{}) error {
	return nil
}

func testLogger() *log.Logger {
	return &log.Logger{Logger: zap.NewNop()}
}

func TestRegistryLoadHydratesOffline(t *testing.T) {
	repo := newFakeInstanceRepo(
		&model.Instance{Id: "gpu-01", Endpoint: "http://w1:8188", Status: model.InstanceStatusOnline},
		&model.Instance{Id: "gpu-02", Endpoint: "http://w2:8188", Status: model.InstanceStatusBusy},
	)
	r := NewRegistry(repo, testLogger())

	states := r.Snapshot()
	require.Len(t, states, 2)
	for _, st := range states {
		// Persisted status is stale after a restart; everyone waits
		// for the first probe.
		assert.Equal(t, model.InstanceStatusOffline, st.Status)
	}
	assert.Equal(t, "gpu-01", states[0].Id)
	assert.Equal(t, "gpu-02", states[1].Id)
}

func TestRegistryRegisterDuplicate(t *testing.T) {
	repo := newFakeInstanceRepo()
	r := NewRegistry(repo, testLogger())

	require.NoError(t, r.Register(context.Background(), &model.Instance{Id: "gpu-01", Endpoint: "http://w1:8188"}))
	err := r.Register(context.Background(), &model.Instance{Id: "gpu-01", Endpoint: "http://other:8188"})
	assert.ErrorIs(t, err, v1.ErrInstanceExists)

	st, ok := r.Get("gpu-01")
	require.True(t, ok)
	assert.Equal(t, model.InstanceStatusOffline, st.Status)
	assert.Equal(t, "http://w1:8188", st.Endpoint)
}

func TestRegistryDeregister(t *testing.T) {
	repo := newFakeInstanceRepo()
	r := NewRegistry(repo, testLogger())
	require.NoError(t, r.Register(context.Background(), &model.Instance{Id: "gpu-01"}))

	require.NoError(t, r.Deregister(context.Background(), "gpu-01"))
	_, ok := r.Get("gpu-01")
	assert.False(t, ok)

	assert.ErrorIs(t, r.Deregister(context.Background(), "gpu-01"), v1.ErrNotFound)
}

func TestRegistryFailureThreshold(t *testing.T) {
	repo := newFakeInstanceRepo()
	r := NewRegistry(repo, testLogger())
	require.NoError(t, r.Register(context.Background(), &model.Instance{Id: "gpu-01"}))
	r.ReportSuccess(context.Background(), "gpu-01", Telemetry{})

	probeErr := errors.New("connection refused")
	for i := 0; i < failureThreshold-1; i++ {
		r.ReportFailure(context.Background(), "gpu-01", probeErr)
		st, _ := r.Get("gpu-01")
		assert.Equal(t, model.InstanceStatusOnline, st.Status, "below threshold must stay online")
	}

	r.ReportFailure(context.Background(), "gpu-01", probeErr)
	st, _ := r.Get("gpu-01")
	assert.Equal(t, model.InstanceStatusOffline, st.Status)
	assert.Zero(t, st.GpuUtilization)
	assert.Zero(t, st.UptimeSeconds())
}

func TestRegistrySingleSuccessResets(t *testing.T) {
	repo := newFakeInstanceRepo()
	r := NewRegistry(repo, testLogger())
	require.NoError(t, r.Register(context.Background(), &model.Instance{Id: "gpu-01"}))

	probeErr := errors.New("timeout")
	r.ReportFailure(context.Background(), "gpu-01", probeErr)
	r.ReportFailure(context.Background(), "gpu-01", probeErr)
	r.ReportSuccess(context.Background(), "gpu-01", Telemetry{GpuUtilization: 40})

	st, _ := r.Get("gpu-01")
	assert.Equal(t, model.InstanceStatusOnline, st.Status)
	assert.Zero(t, st.Failures)

	// The counter starts over: two more failures must not demote.
	r.ReportFailure(context.Background(), "gpu-01", probeErr)
	r.ReportFailure(context.Background(), "gpu-01", probeErr)
	st, _ = r.Get("gpu-01")
	assert.Equal(t, model.InstanceStatusOnline, st.Status)
}

func TestRegistryRecoveryResetsQueue(t *testing.T) {
	repo := newFakeInstanceRepo()
	r := NewRegistry(repo, testLogger())
	require.NoError(t, r.Register(context.Background(), &model.Instance{Id: "gpu-01"}))
	r.ReportSuccess(context.Background(), "gpu-01", Telemetry{})

	// Pile up dispatch reservations, then lose the instance.
	s := NewScheduler(r, testLogger())
	for i := 0; i < 3; i++ {
		_, err := s.Select(context.Background(), SelectRequest{}, Limits{MaxQueuePerInstance: 10})
		require.NoError(t, err)
	}
	probeErr := errors.New("down")
	for i := 0; i < failureThreshold; i++ {
		r.ReportFailure(context.Background(), "gpu-01", probeErr)
	}

	// On recovery the counter resyncs to what the worker reports.
	r.ReportSuccess(context.Background(), "gpu-01", Telemetry{QueueRunning: 1, QueuePending: 0})
	st, _ := r.Get("gpu-01")
	assert.Equal(t, 1, st.QueueSize)
	assert.Equal(t, model.InstanceStatusBusy, st.Status)
}

func TestRegistryReleaseClampsAtZero(t *testing.T) {
	repo := newFakeInstanceRepo()
	r := NewRegistry(repo, testLogger())
	require.NoError(t, r.Register(context.Background(), &model.Instance{Id: "gpu-01"}))

	r.Release(context.Background(), "gpu-01")
	st, _ := r.Get("gpu-01")
	assert.Zero(t, st.QueueSize)
}
