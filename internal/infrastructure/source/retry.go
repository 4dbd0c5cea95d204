package source

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"rqmstats/internal/logging"
)

const (
	// DefaultRetryAttempts количество попыток подключения по умолчанию
	DefaultRetryAttempts = 3
	// DefaultRetryDelay задержка перед второй попыткой
	DefaultRetryDelay = 500 * time.Millisecond
	// MaxRetryDelay максимальная задержка между попытками
	MaxRetryDelay = 5 * time.Second
)

// RetryConfig конфигурация повторов
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64 // Множитель для экспоненциальной задержки
}

// DefaultRetryConfig возвращает конфигурацию повторов по умолчанию
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  DefaultRetryAttempts,
		InitialDelay: DefaultRetryDelay,
		MaxDelay:     MaxRetryDelay,
		Multiplier:   2.0,
	}
}

// IsRetryableError проверяет, стоит ли повторить подключение при данной ошибке.
// Ошибки доступа и синтаксиса не повторяются.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		// 1040 too many connections, 1205 lock wait timeout, 2006/2013 server gone
		switch myErr.Number {
		case 1040, 1205, 2006, 2013:
			return true
		}
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection refused", "connection reset", "timeout", "temporary"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// Retry выполняет fn, повторяя при временных ошибках с экспоненциальной задержкой.
// Ожидание прерывается отменой контекста.
func Retry(ctx context.Context, config RetryConfig, operation string, fn func() error) error {
	var lastErr error
	delay := config.InitialDelay
	attempts := config.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				logging.Logger.Info("Operation succeeded after retry", "operation", operation, "attempt", attempt)
			}
			return nil
		}
		lastErr = err

		if !IsRetryableError(err) || attempt == attempts {
			break
		}

		logging.Logger.Warn("Operation failed, retrying",
			"operation", operation,
			"attempt", attempt,
			"delay_ms", delay.Milliseconds(),
			"error", err,
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(lastErr, ctx.Err())
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * config.Multiplier)
		if delay > config.MaxDelay {
			delay = config.MaxDelay
		}
	}

	return lastErr
}
