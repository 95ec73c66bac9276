package docproc

import (
	"context"
	"image"
	"sync"

	"github.com/ioan-nomad/finante-engine/internal/common"
	"github.com/ioan-nomad/finante-engine/internal/service"
)

// ocrJob is one queued page recognition.
type ocrJob struct {
	ctx  context.Context
	img  image.Image
	done chan ocrResult
}

type ocrResult struct {
	err        error
	text       string
	confidence float64
}

// OCRQueue funnels all OCR work through a single engine instance with a FIFO
// job queue, so concurrent documents never run unbounded OCR in parallel.
// Pages within one document are submitted sequentially by the normalizer.
type OCRQueue struct {
	engine    service.OCREngine
	jobs      chan ocrJob
	closeOnce sync.Once
	closed    chan struct{}
}

// NewOCRQueue starts the worker goroutine. queueSize bounds how many pages
// may wait at once.
func NewOCRQueue(engine service.OCREngine, queueSize int) *OCRQueue {
	if queueSize <= 0 {
		queueSize = 32
	}
	q := &OCRQueue{
		engine: engine,
		jobs:   make(chan ocrJob, queueSize),
		closed: make(chan struct{}),
	}
	go q.run()
	return q
}

// Available reports whether the underlying engine can serve requests.
func (q *OCRQueue) Available() bool {
	if q.engine == nil {
		return false
	}
	select {
	case <-q.closed:
		return false
	default:
	}
	return q.engine.Available()
}

// Submit queues one page and blocks until it is recognized or the caller's
// context is canceled. A canceled job still in the queue is skipped by the
// worker.
func (q *OCRQueue) Submit(ctx context.Context, img image.Image) (string, float64, error) {
	job := ocrJob{ctx: ctx, img: img, done: make(chan ocrResult, 1)}

	// A closed queue is checked first: the buffered send below could
	// otherwise win the race against an already-stopped worker.
	select {
	case <-q.closed:
		return "", 0, common.ErrOCRUnavailable
	default:
	}

	select {
	case q.jobs <- job:
	case <-q.closed:
		return "", 0, common.ErrOCRUnavailable
	case <-ctx.Done():
		return "", 0, ctx.Err()
	}

	select {
	case res := <-job.done:
		return res.text, res.confidence, res.err
	case <-q.closed:
		return "", 0, common.ErrOCRUnavailable
	case <-ctx.Done():
		return "", 0, ctx.Err()
	}
}

// Close stops the worker. Pending jobs are failed with ErrOCRUnavailable.
func (q *OCRQueue) Close() {
	q.closeOnce.Do(func() { close(q.closed) })
}

func (q *OCRQueue) run() {
	for {
		select {
		case <-q.closed:
			q.drain()
			return
		case job := <-q.jobs:
			q.process(job)
		}
	}
}

func (q *OCRQueue) process(job ocrJob) {
	// Caller may have given up while the job sat in the queue.
	if err := job.ctx.Err(); err != nil {
		job.done <- ocrResult{err: err}
		return
	}

	text, confidence, err := q.engine.Recognize(job.ctx, job.img)
	job.done <- ocrResult{text: text, confidence: confidence, err: err}
}

func (q *OCRQueue) drain() {
	for {
		select {
		case job := <-q.jobs:
			job.done <- ocrResult{err: common.ErrOCRUnavailable}
		default:
			return
		}
	}
}
