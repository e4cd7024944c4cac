package jobqueue

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/FelixDorner/LinkCard/app/models"
	"github.com/FelixDorner/LinkCard/internal/pkg/database"
	counter "github.com/FelixDorner/LinkCard/internal/pkg/metrics/counter"
)

// webhookEventRetention is how long processed webhook events are kept for
// duplicate detection and debugging before they are pruned.
const webhookEventRetention = 60 * 24 * time.Hour

// Manager manages the global job queue and background tasks
type Manager struct {
	queue              *Queue
	counterFlushTicker *time.Ticker
	eventPruneTicker   *time.Ticker
	stopCh             chan struct{}
	wg                 sync.WaitGroup
	mu                 sync.Mutex
	running            bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		globalManager = &Manager{
			queue:  NewQueue(3),
			stopCh: make(chan struct{}),
		}
	})
	return globalManager
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	m.queue.Start()

	// Start counter flush worker (Redis -> DB) every 30 seconds
	m.counterFlushTicker = time.NewTicker(30 * time.Second)
	m.wg.Add(1)
	go m.counterFlushWorker()

	// Prune old processed webhook events once an hour
	m.eventPruneTicker = time.NewTicker(time.Hour)
	m.wg.Add(1)
	go m.eventPruneWorker()

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")

	if m.counterFlushTicker != nil {
		m.counterFlushTicker.Stop()
	}
	if m.eventPruneTicker != nil {
		m.eventPruneTicker.Stop()
	}

	// The channel must stay non-nil until every worker has observed the
	// close; a worker mid-tick re-entering select on a nil channel would
	// block forever and deadlock the Wait below.
	close(m.stopCh)
	m.running = false

	m.wg.Wait()
	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

// counterFlushWorker periodically flushes in-memory counters from Redis to DB
func (m *Manager) counterFlushWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Counter flush worker stopping")
			return
		case <-m.counterFlushTicker.C:
			if err := counter.FlushCardViews(); err != nil {
				log.Errorf("[JobQueue Manager] Counter flush error: %v", err)
			}
		}
	}
}

// eventPruneWorker deletes processed webhook events past the retention window
func (m *Manager) eventPruneWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Event prune worker stopping")
			return
		case <-m.eventPruneTicker.C:
			cutoff := time.Now().Add(-webhookEventRetention)
			result := database.GetDB().
				Where("processed_at IS NOT NULL AND created_at < ?", cutoff).
				Delete(&models.BillingWebhookEvent{})
			if result.Error != nil {
				log.Errorf("[JobQueue Manager] Event prune error: %v", result.Error)
			} else if result.RowsAffected > 0 {
				log.Infof("[JobQueue Manager] Pruned %d old webhook events", result.RowsAffected)
			}
		}
	}
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
