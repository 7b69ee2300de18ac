package presence

import (
	"sync"
	"time"

	"hydrolink-monitor/internal/telemetry"

	"go.uber.org/zap"
)

// State is the derived connectivity state of a device.
type State string

const (
	StateOnline  State = "online"
	StateOffline State = "offline"
	// StateError marks a device whose telemetry feed reported an error
	// rather than data. Displayed as "Offline (Error)".
	StateError State = "error"
)

// DeviceStatus is the presence view served to the dashboard. Unknown
// devices resolve to offline with zeroed display values.
type DeviceStatus struct {
	DeviceID        string    `json:"device_id"`
	State           State     `json:"state"`
	WaterPercentage float64   `json:"water_percentage"`
	LastUpdated     time.Time `json:"last_updated"`
}

type deviceState struct {
	state    State
	lastSeen time.Time
	snapshot telemetry.StatusSnapshot
}

// Evaluator derives online/offline per device from status writes and
// wall-clock time. A device is online from the moment a status write
// arrives until no write has been seen for the staleness timeout; a
// periodic tick performs the offline demotion.
type Evaluator struct {
	mu      sync.Mutex
	devices map[string]*deviceState

	timeout  time.Duration
	interval time.Duration
	now      func() time.Time
	log      *zap.Logger

	// onChange is invoked outside the tick loop lock on every state
	// transition, at most once per crossing.
	onChange func(deviceID string, state State)

	done chan struct{}
	wg   sync.WaitGroup
}

func NewEvaluator(timeout, interval time.Duration, log *zap.Logger, onChange func(deviceID string, state State)) *Evaluator {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Evaluator{
		devices:  make(map[string]*deviceState),
		timeout:  timeout,
		interval: interval,
		now:      time.Now,
		log:      log,
		onChange: onChange,
		done:     make(chan struct{}),
	}
}

// Start launches the periodic staleness check.
func (e *Evaluator) Start() {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				e.Tick()
			case <-e.done:
				return
			}
		}
	}()
}

// Stop terminates the staleness check loop.
func (e *Evaluator) Stop() {
	close(e.done)
	e.wg.Wait()
}

// Observe records a status write for a device. Every write marks the
// device online and resets its staleness deadline.
func (e *Evaluator) Observe(snap telemetry.StatusSnapshot) {
	e.mu.Lock()
	d, ok := e.devices[snap.DeviceID]
	if !ok {
		d = &deviceState{state: StateOffline}
		e.devices[snap.DeviceID] = d
	}
	prev := d.state
	d.state = StateOnline
	d.lastSeen = e.now()
	d.snapshot = snap
	e.mu.Unlock()

	if prev != StateOnline {
		e.notify(snap.DeviceID, StateOnline)
	}
}

// ObserveError degrades a device to the error state after a feed
// error. The subscription layer retries on its own; nothing to do here
// beyond the display state.
func (e *Evaluator) ObserveError(deviceID string) {
	e.mu.Lock()
	d, ok := e.devices[deviceID]
	if !ok {
		d = &deviceState{}
		e.devices[deviceID] = d
	}
	prev := d.state
	d.state = StateError
	d.snapshot = telemetry.StatusSnapshot{DeviceID: deviceID}
	e.mu.Unlock()

	if prev != StateError {
		e.notify(deviceID, StateError)
	}
}

// Remove handles deletion of a device's status: offline with display
// values reset to defaults.
func (e *Evaluator) Remove(deviceID string) {
	e.mu.Lock()
	d, ok := e.devices[deviceID]
	prev := StateOffline
	if ok {
		prev = d.state
		d.state = StateOffline
		d.lastSeen = time.Time{}
		d.snapshot = telemetry.StatusSnapshot{DeviceID: deviceID}
	}
	e.mu.Unlock()

	if ok && prev != StateOffline {
		e.notify(deviceID, StateOffline)
	}
}

// Tick demotes devices whose last write is older than the staleness
// timeout. Exported so the poll can be driven directly in tests.
func (e *Evaluator) Tick() {
	now := e.now()

	var stale []string

	e.mu.Lock()
	for id, d := range e.devices {
		if d.state == StateOnline && now.Sub(d.lastSeen) > e.timeout {
			d.state = StateOffline
			stale = append(stale, id)
		}
	}
	e.mu.Unlock()

	for _, id := range stale {
		e.log.Info("device went offline",
			zap.String("device_id", id),
			zap.Duration("staleness_timeout", e.timeout),
		)
		e.notify(id, StateOffline)
	}
}

// Status returns the presence view for a device.
func (e *Evaluator) Status(deviceID string) DeviceStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	d, ok := e.devices[deviceID]
	if !ok {
		return DeviceStatus{DeviceID: deviceID, State: StateOffline}
	}

	status := DeviceStatus{DeviceID: deviceID, State: d.state}
	if d.state == StateOnline {
		status.WaterPercentage = d.snapshot.WaterPercentage
		status.LastUpdated = d.snapshot.LastUpdated
	}
	return status
}

func (e *Evaluator) notify(deviceID string, state State) {
	if e.onChange != nil {
		e.onChange(deviceID, state)
	}
}
