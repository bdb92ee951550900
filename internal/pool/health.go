package pool

import (
	"context"
	"sync"
	"time"

	"comfycloud/pkg/comfy"
	"comfycloud/pkg/log"

	"github.com/spf13/viper"
)

const probeTimeout = 5 * time.Second

// Prober checks one worker's health and returns its telemetry.
type Prober interface {
	Probe(ctx context.Context) (Telemetry, error)
}

// ProberFactory builds a prober for an instance endpoint. Production
// wires the ComfyUI client; tests substitute fakes.
type ProberFactory func(endpoint string) (Prober, error)

// Monitor sweeps the pool, probing every instance concurrently and
// feeding results back to the registry. Sweeps never overlap: a new
// tick while a sweep is still running is dropped.
type Monitor struct {
	registry *Registry
	factory  ProberFactory
	logger   *log.Logger

	mu        sync.Mutex
	sweeping  bool
	lastSweep time.Time
}

func NewMonitor(registry *Registry, factory ProberFactory, logger *log.Logger) *Monitor {
	return &Monitor{
		registry: registry,
		factory:  factory,
		logger:   logger,
	}
}

// TickIfDue runs a sweep when at least interval has elapsed since the
// previous one. The scheduler job ticks faster than any sensible
// interval so config changes take effect within one cycle.
func (m *Monitor) TickIfDue(ctx context.Context, interval time.Duration) {
	m.mu.Lock()
	if m.sweeping || time.Since(m.lastSweep) < interval {
		m.mu.Unlock()
		return
	}
	m.sweeping = true
	m.mu.Unlock()

	m.Sweep(ctx)

	m.mu.Lock()
	m.sweeping = false
	m.lastSweep = time.Now()
	m.mu.Unlock()
}

// Sweep probes every registered instance once, each probe under its
// own timeout. A slow instance delays nothing but itself.
func (m *Monitor) Sweep(ctx context.Context) {
	states := m.registry.Snapshot()
	var wg sync.WaitGroup
	for _, st := range states {
		wg.Add(1)
		go func(st InstanceState) {
			defer wg.Done()
			m.probeOne(ctx, st)
		}(st)
	}
	wg.Wait()
}

func (m *Monitor) probeOne(ctx context.Context, st InstanceState) {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	prober, err := m.factory(st.Endpoint)
	if err != nil {
		m.registry.ReportFailure(ctx, st.Id, err)
		return
	}
	t, err := prober.Probe(probeCtx)
	if err != nil {
		m.registry.ReportFailure(ctx, st.Id, err)
		return
	}
	m.registry.ReportSuccess(ctx, st.Id, t)
}

// comfyProber adapts the ComfyUI client to the Prober interface. A
// probe is /system_stats plus /queue; either failing fails the probe.
type comfyProber struct {
	client *comfy.Client
}

// NewComfyProberFactory is the production ProberFactory.
func NewComfyProberFactory(conf *viper.Viper) ProberFactory {
	clientId := conf.GetString("comfy.client_id")
	if clientId == "" {
		clientId = "comfycloud-gateway"
	}
	return func(endpoint string) (Prober, error) {
		client, err := comfy.NewClient(endpoint, clientId, probeTimeout)
		if err != nil {
			return nil, err
		}
		return &comfyProber{client: client}, nil
	}
}

func (p *comfyProber) Probe(ctx context.Context) (Telemetry, error) {
	stats, err := p.client.GetSystemStats(ctx)
	if err != nil {
		return Telemetry{}, err
	}
	queue, err := p.client.GetQueue(ctx)
	if err != nil {
		return Telemetry{}, err
	}

	var t Telemetry
	t.QueueRunning = len(queue.QueueRunning)
	t.QueuePending = len(queue.QueuePending)
	for _, d := range stats.Devices {
		t.VramTotalGb += float64(d.VramTotal) / (1 << 30)
		t.VramUsedGb += float64(d.VramTotal-d.VramFree) / (1 << 30)
	}
	// ComfyUI does not expose a utilization gauge; vram pressure is
	// the closest signal and only breaks scheduling ties anyway.
	if t.VramTotalGb > 0 {
		t.GpuUtilization = 100 * t.VramUsedGb / t.VramTotalGb
	}
	if err := ctx.Err(); err != nil {
		return Telemetry{}, err
	}
	return t, nil
}

var _ Prober = (*comfyProber)(nil)
