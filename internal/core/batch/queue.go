package batch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"recipe-nutrition/internal/infrastructure/config"
	"recipe-nutrition/internal/pkg/common"

	"go.uber.org/zap"
)

// 工作狀態
const (
	JobQueued  = "queued"
	JobRunning = "running"
	JobDone    = "done"
	JobFailed  = "failed"
)

// 保留的已完成工作數
const maxFinishedJobs = 100

// Outcome 工作處理結果
type Outcome struct {
	Result Result
	Error  error
}

// JobStatus 工作狀態
type JobStatus struct {
	ID          string     `json:"id"`
	State       string     `json:"state"`
	Rows        int        `json:"rows"`
	Result      *Result    `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// Status 隊列狀態
type Status struct {
	QueueLength    int `json:"queue_length"`
	ProcessedCount int `json:"processed_count"`
	MaxQueueSize   int `json:"max_queue_size"`
	Workers        int `json:"workers"`
	Running        int `json:"running"`
}

type job struct {
	id     string
	rows   []Row
	result chan Outcome
}

// Processor 處理一批資料
type Processor interface {
	Process(ctx context.Context, rows []Row) (Result, error)
}

// Queue 批次工作隊列，固定數量的 worker 消化
type Queue struct {
	config    config.QueueConfig
	processor Processor
	jobs      chan *job

	processed int64
	running   int32

	mu       sync.RWMutex
	closed   bool
	statuses map[string]*JobStatus
	finished []string

	wg sync.WaitGroup
}

// NewQueue 創建批次隊列
func NewQueue(cfg config.QueueConfig, processor Processor) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 1
	}
	return &Queue{
		config:    cfg,
		processor: processor,
		jobs:      make(chan *job, cfg.MaxSize),
		statuses:  make(map[string]*JobStatus),
	}
}

// Start 啟動 worker，ctx 結束後剩餘工作會以取消錯誤結束
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.config.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
	common.LogInfo("批次隊列已啟動",
		zap.Int("workers", q.config.Workers),
		zap.Int("max_queue_size", q.config.MaxSize),
	)
}

// Enqueue 將工作加入隊列，隊列已滿時立即回傳錯誤
func (q *Queue) Enqueue(rows []Row) (string, <-chan Outcome, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return "", nil, common.ErrQueueClosed
	}

	j := &job{
		id:     common.GenerateUUID(),
		rows:   rows,
		result: make(chan Outcome, 1),
	}

	select {
	case q.jobs <- j:
	default:
		return "", nil, common.ErrQueueFull
	}

	q.statuses[j.id] = &JobStatus{
		ID:          j.id,
		State:       JobQueued,
		Rows:        len(rows),
		SubmittedAt: time.Now().UTC(),
	}
	common.LogInfo("Batch job enqueued",
		zap.String("job_id", j.id),
		zap.Int("rows", len(rows)),
		zap.Int("queue_length", len(q.jobs)),
	)
	return j.id, j.result, nil
}

// Job 查詢工作狀態
func (q *Queue) Job(id string) (JobStatus, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	s, ok := q.statuses[id]
	if !ok {
		return JobStatus{}, false
	}
	return *s, true
}

// GetQueueStatus 獲取隊列狀態
func (q *Queue) GetQueueStatus() *Status {
	return &Status{
		QueueLength:    len(q.jobs),
		ProcessedCount: int(atomic.LoadInt64(&q.processed)),
		MaxQueueSize:   q.config.MaxSize,
		Workers:        q.config.Workers,
		Running:        int(atomic.LoadInt32(&q.running)),
	}
}

// Close 停止接收新工作並等待已排入的工作完成
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
}

func (q *Queue) worker(ctx context.Context, n int) {
	defer q.wg.Done()
	for j := range q.jobs {
		q.run(ctx, n, j)
	}
}

func (q *Queue) run(ctx context.Context, worker int, j *job) {
	q.setState(j.id, func(s *JobStatus) { s.State = JobRunning })
	atomic.AddInt32(&q.running, 1)
	defer atomic.AddInt32(&q.running, -1)

	var out Outcome
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				common.LogError("Batch job panic recovered", zap.Any("error", rec), zap.String("job_id", j.id))
				out = Outcome{Error: common.ErrInternalError}
			}
		}()
		out.Result, out.Error = q.processor.Process(ctx, j.rows)
	}()

	atomic.AddInt64(&q.processed, 1)
	now := time.Now().UTC()
	q.setState(j.id, func(s *JobStatus) {
		res := out.Result
		s.Result = &res
		s.FinishedAt = &now
		s.State = JobDone
		if out.Error != nil {
			s.State = JobFailed
			s.Error = out.Error.Error()
		}
	})
	q.retire(j.id)

	common.LogDebug("Batch job finished",
		zap.Int("worker", worker),
		zap.String("job_id", j.id),
		zap.Error(out.Error),
	)
	j.result <- out
}

func (q *Queue) setState(id string, fn func(*JobStatus)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if s, ok := q.statuses[id]; ok {
		fn(s)
	}
}

// retire 只保留最近完成的工作狀態
func (q *Queue) retire(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.finished = append(q.finished, id)
	for len(q.finished) > maxFinishedJobs {
		delete(q.statuses, q.finished[0])
		q.finished = q.finished[1:]
	}
}
