package pool

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"comfycloud/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProber scripts probe outcomes per endpoint.
type fakeProber struct {
	mu        sync.Mutex
	telemetry Telemetry
	err       error
	calls     int
}

func (p *fakeProber) Probe(ctx context.Context) (Telemetry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return Telemetry{}, p.err
	}
	return p.telemetry, nil
}

func (p *fakeProber) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *fakeProber) set(t Telemetry, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.telemetry = t
	p.err = err
}

func fakeFactory(probers map[string]*fakeProber) ProberFactory {
	return func(endpoint string) (Prober, error) {
		p, ok := probers[endpoint]
		if !ok {
			return nil, errors.New("no prober for " + endpoint)
		}
		return p, nil
	}
}

func TestSweepDemotesAfterThreeFailures(t *testing.T) {
	r := NewRegistry(newFakeInstanceRepo(), testLogger())
	require.NoError(t, r.Register(context.Background(), &model.Instance{Id: "gpu-01", Endpoint: "http://w1:8188"}))

	prober := &fakeProber{telemetry: Telemetry{GpuUtilization: 10}}
	m := NewMonitor(r, fakeFactory(map[string]*fakeProber{"http://w1:8188": prober}), testLogger())

	m.Sweep(context.Background())
	st, _ := r.Get("gpu-01")
	require.Equal(t, model.InstanceStatusOnline, st.Status)

	prober.set(Telemetry{}, errors.New("connection refused"))
	for i := 0; i < failureThreshold; i++ {
		m.Sweep(context.Background())
	}
	st, _ = r.Get("gpu-01")
	assert.Equal(t, model.InstanceStatusOffline, st.Status)

	// One good probe brings it straight back.
	prober.set(Telemetry{GpuUtilization: 5}, nil)
	m.Sweep(context.Background())
	st, _ = r.Get("gpu-01")
	assert.Equal(t, model.InstanceStatusOnline, st.Status)
}

func TestSweepFactoryErrorCountsAsFailure(t *testing.T) {
	r := NewRegistry(newFakeInstanceRepo(), testLogger())
	require.NoError(t, r.Register(context.Background(), &model.Instance{Id: "gpu-01", Endpoint: "http://unreachable:8188"}))
	m := NewMonitor(r, fakeFactory(map[string]*fakeProber{}), testLogger())

	for i := 0; i < failureThreshold; i++ {
		m.Sweep(context.Background())
	}
	st, _ := r.Get("gpu-01")
	assert.Equal(t, model.InstanceStatusOffline, st.Status)
}

func TestSweepProbesAllInstances(t *testing.T) {
	r := NewRegistry(newFakeInstanceRepo(), testLogger())
	probers := map[string]*fakeProber{
		"http://w1:8188": {telemetry: Telemetry{QueueRunning: 1}},
		"http://w2:8188": {telemetry: Telemetry{}},
	}
	require.NoError(t, r.Register(context.Background(), &model.Instance{Id: "gpu-01", Endpoint: "http://w1:8188"}))
	require.NoError(t, r.Register(context.Background(), &model.Instance{Id: "gpu-02", Endpoint: "http://w2:8188"}))
	m := NewMonitor(r, fakeFactory(probers), testLogger())

	m.Sweep(context.Background())

	assert.Equal(t, 1, probers["http://w1:8188"].callCount())
	assert.Equal(t, 1, probers["http://w2:8188"].callCount())
	st1, _ := r.Get("gpu-01")
	st2, _ := r.Get("gpu-02")
	assert.Equal(t, model.InstanceStatusBusy, st1.Status)
	assert.Equal(t, model.InstanceStatusOnline, st2.Status)
}

func TestTickIfDueHonorsInterval(t *testing.T) {
	r := NewRegistry(newFakeInstanceRepo(), testLogger())
	require.NoError(t, r.Register(context.Background(), &model.Instance{Id: "gpu-01", Endpoint: "http://w1:8188"}))
	prober := &fakeProber{}
	m := NewMonitor(r, fakeFactory(map[string]*fakeProber{"http://w1:8188": prober}), testLogger())

	m.TickIfDue(context.Background(), time.Hour)
	assert.Equal(t, 1, prober.callCount(), "first tick sweeps immediately")

	// Interval not elapsed: ticks are dropped.
	m.TickIfDue(context.Background(), time.Hour)
	m.TickIfDue(context.Background(), time.Hour)
	assert.Equal(t, 1, prober.callCount())

	// A zero interval is always due.
	m.TickIfDue(context.Background(), 0)
	assert.Equal(t, 2, prober.callCount())
}
