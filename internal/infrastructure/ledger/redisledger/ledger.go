package redisledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rodaquino-OMNI/onboarding-ocr/internal/core/domain"
	"github.com/rodaquino-OMNI/onboarding-ocr/internal/core/ports"
)

const keyPrefix = "ocr:usage"

var knownEngines = []domain.EngineID{domain.EngineCloud, domain.EngineLocal}

// Ledger keeps rolling daily/monthly cost and page counters in Redis.
// Increments are atomic; totals are approximate and eventually consistent.
// Counters expire at the end of their period, so rollover needs no cleanup.
type Ledger struct {
	client *redis.Client
	now    func() time.Time
}

func New(client *redis.Client) *Ledger {
	return &Ledger{client: client, now: func() time.Time { return time.Now().UTC() }}
}

// Open connects to Redis and pings it once.
func Open(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func (l *Ledger) Record(ctx context.Context, engine domain.EngineID, pages int, cost float64) error {
	now := l.now()
	dayKey, monthKey := periodKeys(now)
	endDay, endMonth := endOfDay(now), endOfMonth(now)

	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.IncrByFloat(ctx, costKey(domain.PeriodDaily, engine, dayKey), cost)
		pipe.ExpireAt(ctx, costKey(domain.PeriodDaily, engine, dayKey), endDay)
		pipe.IncrByFloat(ctx, costKey(domain.PeriodMonthly, engine, monthKey), cost)
		pipe.ExpireAt(ctx, costKey(domain.PeriodMonthly, engine, monthKey), endMonth)

		pipe.IncrBy(ctx, pagesKey(domain.PeriodDaily, engine, dayKey), int64(pages))
		pipe.ExpireAt(ctx, pagesKey(domain.PeriodDaily, engine, dayKey), endDay)
		pipe.IncrBy(ctx, pagesKey(domain.PeriodMonthly, engine, monthKey), int64(pages))
		pipe.ExpireAt(ctx, pagesKey(domain.PeriodMonthly, engine, monthKey), endMonth)
		return nil
	})
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "ledger record", err)
	}
	return nil
}

func (l *Ledger) DailyTotal(ctx context.Context, engine string) (float64, error) {
	dayKey, _ := periodKeys(l.now())
	return l.total(ctx, domain.PeriodDaily, engine, dayKey)
}

func (l *Ledger) MonthlyTotal(ctx context.Context, engine string) (float64, error) {
	_, monthKey := periodKeys(l.now())
	return l.total(ctx, domain.PeriodMonthly, engine, monthKey)
}

func (l *Ledger) total(ctx context.Context, period domain.BudgetPeriodKind, engine, periodKey string) (float64, error) {
	engines := knownEngines
	if engine != ports.EngineAll {
		engines = []domain.EngineID{domain.EngineID(engine)}
	}

	var sum float64
	for _, e := range engines {
		val, err := l.client.Get(ctx, costKey(period, e, periodKey)).Float64()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return 0, domain.WrapError(domain.ErrTemporary, "ledger read", err)
		}
		sum += val
	}
	return sum, nil
}

const suspendKey = keyPrefix + ":cloud:suspended"

func (l *Ledger) SuspendCloud(ctx context.Context, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	if err := l.client.Set(ctx, suspendKey, until.Format(time.RFC3339), ttl).Err(); err != nil {
		return domain.WrapError(domain.ErrTemporary, "suspend cloud", err)
	}
	return nil
}

func (l *Ledger) CloudSuspended(ctx context.Context) (bool, error) {
	err := l.client.Get(ctx, suspendKey).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, domain.WrapError(domain.ErrTemporary, "suspension check", err)
	}
	return true, nil
}

// MarkAlerted latches one alert per period/severity crossing with SetNX. The
// latch expires with its period, so each new period alerts again.
func (l *Ledger) MarkAlerted(ctx context.Context, period domain.BudgetPeriodKind, severity domain.AlertSeverity) (bool, error) {
	now := l.now()
	dayKey, monthKey := periodKeys(now)
	periodKey, expiry := dayKey, endOfDay(now)
	if period == domain.PeriodMonthly {
		periodKey, expiry = monthKey, endOfMonth(now)
	}

	key := fmt.Sprintf("%s:alerted:%s:%s:%s", keyPrefix, period, severity, periodKey)
	won, err := l.client.SetNX(ctx, key, "1", time.Until(expiry)).Result()
	if err != nil {
		return false, domain.WrapError(domain.ErrTemporary, "alert latch", err)
	}
	return won, nil
}

func costKey(period domain.BudgetPeriodKind, engine domain.EngineID, periodKey string) string {
	return fmt.Sprintf("%s:cost:%s:%s:%s", keyPrefix, period, engine, periodKey)
}

func pagesKey(period domain.BudgetPeriodKind, engine domain.EngineID, periodKey string) string {
	return fmt.Sprintf("%s:pages:%s:%s:%s", keyPrefix, period, engine, periodKey)
}

func periodKeys(now time.Time) (day, month string) {
	return now.Format("2006-01-02"), now.Format("2006-01")
}

func endOfDay(now time.Time) time.Time {
	year, month, day := now.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
}

func endOfMonth(now time.Time) time.Time {
	year, month, _ := now.Date()
	return time.Date(year, month, 1, 0, 0, 0, 0, now.Location()).AddDate(0, 1, 0)
}
