package telemetry

import (
	"context"
	"sync"
	"time"

	"hydrolink-monitor/internal/history"

	"go.uber.org/zap"
)

// DeviceWriter persists the latest telemetry columns for a device.
type DeviceWriter interface {
	UpsertStatus(ctx context.Context, deviceID string, waterPct float64, lastUpdated time.Time, battery *int) error
	UpsertSensorData(ctx context.Context, deviceID string, battery *int, litersToday *float64, waterAvailable *bool, measuredHeight *float64) error
}

// PresenceSink receives status snapshots for connectivity tracking.
type PresenceSink interface {
	Observe(snap StatusSnapshot)
	ObserveError(deviceID string)
	Remove(deviceID string)
}

// MirrorSink keeps the flattened status copy current.
type MirrorSink interface {
	Reflect(ctx context.Context, snap StatusSnapshot) error
	Remove(ctx context.Context, deviceID string) error
}

// NotificationSink derives user-facing notifications from telemetry.
type NotificationSink interface {
	HandleRefillRecord(ctx context.Context, rec history.Record) error
	HandleBatteryLevel(ctx context.Context, deviceID string, battery int) error
}

type statusEvent struct {
	deviceID string
	msg      *StatusMessage // nil marks a retained-status removal
}

type sensorEvent struct {
	deviceID string
	msg      *SensorDataMessage
}

type refillEvent struct {
	deviceID string
	msg      *RefillEventMessage
}

// Processor fans MQTT telemetry out to the device store, the presence
// evaluator, the status mirror and the notification deriver through a
// pool of channel workers.
type Processor struct {
	devices       DeviceWriter
	presence      PresenceSink
	mirror        MirrorSink
	notifications NotificationSink
	refills       history.Repository

	workerCount int

	statusChan chan statusEvent
	sensorChan chan sensorEvent
	refillChan chan refillEvent

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics *MetricsTracker
	log     *zap.Logger
}

func NewProcessor(devices DeviceWriter, presence PresenceSink, mirror MirrorSink, notifications NotificationSink, refills history.Repository, workerCount, bufferSize int, log *zap.Logger) *Processor {
	if workerCount <= 0 {
		workerCount = 2
	}
	if bufferSize <= 0 {
		bufferSize = 256
	}
	if log == nil {
		log = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Processor{
		devices:       devices,
		presence:      presence,
		mirror:        mirror,
		notifications: notifications,
		refills:       refills,
		workerCount:   workerCount,
		statusChan:    make(chan statusEvent, bufferSize),
		sensorChan:    make(chan sensorEvent, bufferSize),
		refillChan:    make(chan refillEvent, bufferSize),
		ctx:           ctx,
		cancel:        cancel,
		metrics:       NewMetricsTracker(),
		log:           log,
	}
}

func (p *Processor) Start() {
	p.log.Info("starting telemetry processor", zap.Int("workers", p.workerCount))

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.statusWorker()

		p.wg.Add(1)
		go p.sensorWorker()
	}

	// Refill events must apply in arrival order per device, a single
	// worker keeps ordering without per-device queues.
	p.wg.Add(1)
	go p.refillWorker()
}

func (p *Processor) Stop() {
	p.cancel()
	close(p.statusChan)
	close(p.sensorChan)
	close(p.refillChan)
	p.wg.Wait()
	p.log.Info("telemetry processor stopped")
}

func (p *Processor) Metrics() IngestMetrics {
	return p.metrics.Snapshot()
}

// EnqueueStatus queues a status write for processing.
func (p *Processor) EnqueueStatus(deviceID string, msg *StatusMessage) {
	p.enqueue(func() bool {
		select {
		case p.statusChan <- statusEvent{deviceID: deviceID, msg: msg}:
			return true
		default:
			return false
		}
	}, deviceID)
}

// EnqueueStatusRemoval queues a cleared retained status. The device's
// presence is reset and its mirrored document deleted.
func (p *Processor) EnqueueStatusRemoval(deviceID string) {
	p.enqueue(func() bool {
		select {
		case p.statusChan <- statusEvent{deviceID: deviceID}:
			return true
		default:
			return false
		}
	}, deviceID)
}

// EnqueueSensorData queues a sensor reading for processing.
func (p *Processor) EnqueueSensorData(deviceID string, msg *SensorDataMessage) {
	p.enqueue(func() bool {
		select {
		case p.sensorChan <- sensorEvent{deviceID: deviceID, msg: msg}:
			return true
		default:
			return false
		}
	}, deviceID)
}

// EnqueueRefillEvent queues a refill history entry for processing.
func (p *Processor) EnqueueRefillEvent(deviceID string, msg *RefillEventMessage) {
	p.enqueue(func() bool {
		select {
		case p.refillChan <- refillEvent{deviceID: deviceID, msg: msg}:
			return true
		default:
			return false
		}
	}, deviceID)
}

func (p *Processor) enqueue(send func() bool, deviceID string) {
	select {
	case <-p.ctx.Done():
		return
	default:
	}

	if send() {
		p.metrics.Update(func(m *IngestMetrics) {
			m.MessagesReceived++
			m.BufferSize = len(p.statusChan) + len(p.sensorChan) + len(p.refillChan)
		})
		return
	}

	p.log.Warn("telemetry buffer full, dropping message", zap.String("device_id", deviceID))
	p.metrics.Update(func(m *IngestMetrics) {
		m.MessagesDropped++
	})
}

func (p *Processor) statusWorker() {
	defer p.wg.Done()

	for {
		select {
		case ev, ok := <-p.statusChan:
			if !ok {
				return
			}
			p.track(p.processStatus(ev))
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *Processor) sensorWorker() {
	defer p.wg.Done()

	for {
		select {
		case ev, ok := <-p.sensorChan:
			if !ok {
				return
			}
			p.track(p.processSensorData(ev))
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *Processor) refillWorker() {
	defer p.wg.Done()

	for {
		select {
		case ev, ok := <-p.refillChan:
			if !ok {
				return
			}
			p.track(p.processRefillEvent(ev))
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *Processor) track(err error) {
	now := time.Now()
	p.metrics.Update(func(m *IngestMetrics) {
		if err != nil {
			m.MessagesFailed++
			return
		}
		m.MessagesProcessed++
		m.LastProcessedAt = now
	})
}

func (p *Processor) processStatus(ev statusEvent) error {
	if ev.msg == nil {
		return p.processStatusRemoval(ev.deviceID)
	}

	snap := ev.msg.Snapshot(ev.deviceID)
	p.presence.Observe(snap)

	if err := p.devices.UpsertStatus(p.ctx, ev.deviceID, snap.WaterPercentage, snap.LastUpdated, snap.BatteryPercentage); err != nil {
		p.presence.ObserveError(ev.deviceID)
		p.log.Error("failed to store status", zap.String("device_id", ev.deviceID), zap.Error(err))
		return err
	}

	if err := p.mirror.Reflect(p.ctx, snap); err != nil {
		return err
	}

	if snap.BatteryPercentage != nil {
		if err := p.notifications.HandleBatteryLevel(p.ctx, ev.deviceID, *snap.BatteryPercentage); err != nil {
			p.log.Error("failed to derive battery notification", zap.String("device_id", ev.deviceID), zap.Error(err))
			return err
		}
	}
	return nil
}

func (p *Processor) processStatusRemoval(deviceID string) error {
	p.presence.Remove(deviceID)
	if err := p.mirror.Remove(p.ctx, deviceID); err != nil {
		p.log.Error("failed to remove mirrored status", zap.String("device_id", deviceID), zap.Error(err))
		return err
	}
	return nil
}

func (p *Processor) processSensorData(ev sensorEvent) error {
	msg := ev.msg
	if err := p.devices.UpsertSensorData(p.ctx, ev.deviceID, msg.BatteryPercentage, msg.TotalLitersUsedToday, msg.WaterAvailable, msg.MeasuredHeightCm); err != nil {
		p.log.Error("failed to store sensor data", zap.String("device_id", ev.deviceID), zap.Error(err))
		return err
	}

	if msg.BatteryPercentage != nil {
		if err := p.notifications.HandleBatteryLevel(p.ctx, ev.deviceID, *msg.BatteryPercentage); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) processRefillEvent(ev refillEvent) error {
	msg := ev.msg
	record := history.Record{
		ID:                msg.ID,
		DeviceID:          ev.deviceID,
		Timestamp:         NormalizeEpochMillis(msg.Timestamp),
		BeforeLevelPct:    msg.BeforeLevelPct,
		AfterLevelPct:     msg.AfterLevelPct,
		AmountLitersAdded: msg.AmountLitersAdded,
		DurationMin:       msg.DurationMin,
		Status:            msg.Status,
		ActionsLog:        msg.ActionsLog,
	}

	if err := p.refills.Upsert(p.ctx, &record); err != nil {
		p.log.Error("failed to store refill record", zap.String("device_id", ev.deviceID), zap.Error(err))
		return err
	}

	// Read back the stored row: on redelivery the insert is a no-op
	// and the notified flag of the existing row must win.
	stored, err := p.refills.Get(p.ctx, ev.deviceID, record.ID)
	if err != nil {
		return err
	}

	if err := p.notifications.HandleRefillRecord(p.ctx, *stored); err != nil {
		p.log.Error("failed to derive refill notification", zap.String("device_id", ev.deviceID), zap.Error(err))
		return err
	}

	p.metrics.Update(func(m *IngestMetrics) {
		m.NotificationsDerived++
	})
	return nil
}
