package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// QuoteExpiryJobName is the scheduler name of the stale-quote sweep
const QuoteExpiryJobName = "quote_expiry"

// QuoteExpirer rejects quotes whose validity window has passed
type QuoteExpirer interface {
	ExpireStaleQuotes(ctx context.Context) (int, error)
}

// QuoteExpiryJob sweeps quoted orders that nobody opened in the portal before they expired
type QuoteExpiryJob struct {
	expirer QuoteExpirer
	logger  *zap.Logger
	timeout time.Duration
}

func NewQuoteExpiryJob(expirer QuoteExpirer, logger *zap.Logger, timeout time.Duration) *QuoteExpiryJob {
	return &QuoteExpiryJob{
		expirer: expirer,
		logger:  logger,
		timeout: timeout,
	}
}

// Run performs one sweep
func (j *QuoteExpiryJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	expired, err := j.expirer.ExpireStaleQuotes(ctx)
	if err != nil {
		j.logger.Error("quote expiry sweep failed",
			zap.Int("expired", expired),
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}

	j.logger.Info("quote expiry sweep completed",
		zap.Int("expired", expired),
		zap.Duration("duration", time.Since(start)))
}

// RegisterQuoteExpiryJob adds the sweep to the scheduler
func RegisterQuoteExpiryJob(scheduler *Scheduler, expirer QuoteExpirer, logger *zap.Logger, cronExpr string, timeout time.Duration) error {
	job := NewQuoteExpiryJob(expirer, logger, timeout)
	return scheduler.AddJob(QuoteExpiryJobName, cronExpr, job.Run)
}
