package watchdog

import (
	"sync"
	"sync/atomic"
	"time"

	"go-voicemaster/internal/logging"
)

// Watchdog flags components that stop sending heartbeats.
type Watchdog struct {
	mu            sync.RWMutex
	components    map[string]*ComponentHealth
	checkInterval time.Duration
	stop          chan struct{}
	stopOnce      sync.Once
	now           func() time.Time

	// OnUnhealthy is called once each time a component turns unhealthy.
	OnUnhealthy func(name string, silentFor time.Duration)
}

type ComponentHealth struct {
	Name          string
	LastHeartbeat int64
	IsHealthy     uint32
	Threshold     time.Duration
}

func NewWatchdog(checkInterval time.Duration) *Watchdog {
	return &Watchdog{
		components:    make(map[string]*ComponentHealth),
		checkInterval: checkInterval,
		stop:          make(chan struct{}),
		now:           time.Now,
	}
}

// RegisterComponent starts watching name. The clock starts at registration,
// so a component that never beats is reported too.
func (w *Watchdog) RegisterComponent(name string, threshold time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.components[name] = &ComponentHealth{
		Name:          name,
		LastHeartbeat: w.now().UnixNano(),
		IsHealthy:     1,
		Threshold:     threshold,
	}
}

func (w *Watchdog) Heartbeat(name string) {
	w.mu.RLock()
	comp, exists := w.components[name]
	w.mu.RUnlock()
	if !exists {
		return
	}
	atomic.StoreInt64(&comp.LastHeartbeat, w.now().UnixNano())
	if atomic.SwapUint32(&comp.IsHealthy, 1) == 0 {
		logging.Info("[WATCHDOG] %s recovered", name)
	}
}

func (w *Watchdog) Start() {
	go w.monitorLoop()
}

func (w *Watchdog) monitorLoop() {
	ticker := time.NewTicker(w.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.checkAllComponents()
		case <-w.stop:
			return
		}
	}
}

func (w *Watchdog) checkAllComponents() {
	now := w.now().UnixNano()

	w.mu.RLock()
	defer w.mu.RUnlock()
	for name, comp := range w.components {
		elapsed := time.Duration(now - atomic.LoadInt64(&comp.LastHeartbeat))
		if elapsed <= comp.Threshold {
			continue
		}
		if atomic.SwapUint32(&comp.IsHealthy, 0) == 1 {
			logging.Error("[WATCHDOG] %s unhealthy (no heartbeat for %v)", name, elapsed.Round(time.Second))
			if w.OnUnhealthy != nil {
				w.OnUnhealthy(name, elapsed)
			}
		}
	}
}

func (w *Watchdog) IsHealthy(name string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if comp, exists := w.components[name]; exists {
		return atomic.LoadUint32(&comp.IsHealthy) == 1
	}
	return false
}

// AllHealthy reports whether every registered component is healthy.
func (w *Watchdog) AllHealthy() bool {
	for _, ok := range w.GetStatus() {
		if !ok {
			return false
		}
	}
	return true
}

func (w *Watchdog) LastHeartbeat(name string) (time.Time, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	comp, exists := w.components[name]
	if !exists {
		return time.Time{}, false
	}
	return time.Unix(0, atomic.LoadInt64(&comp.LastHeartbeat)), true
}

func (w *Watchdog) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
}

func (w *Watchdog) GetStatus() map[string]bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	status := make(map[string]bool, len(w.components))
	for name, comp := range w.components {
		status[name] = atomic.LoadUint32(&comp.IsHealthy) == 1
	}
	return status
}
