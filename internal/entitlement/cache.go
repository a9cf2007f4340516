package entitlement

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dltrh/devision-job-platform/internal/domain"
	"github.com/dltrh/devision-job-platform/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	// Префикс ключей статусов подписок
	statusKeyPrefix = "entitlement:"

	// TTL для кэша. Короткий: кэш обслуживает только читающую ручку API,
	// цикл сверки после оплаты всегда ходит мимо кэша.
	defaultCacheTTL = 30 * time.Second
)

// StatusReader интерфейс чтения статуса подписки
type StatusReader interface {
	GetStatus(ctx context.Context, payerID string) (domain.EntitlementStatus, error)
}

// CachedReader кэширует статусы подписок в Redis поверх обычного клиента
type CachedReader struct {
	reader StatusReader
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewCachedReader создает новый кэширующий клиент статусов подписок
func NewCachedReader(reader StatusReader, redisAddr, redisPassword string, redisDB int, log *logger.Logger) (*CachedReader, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})

	// Проверяем соединение с Redis
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Errorw("Failed to connect to Redis", "error", err)
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Infow("Connected to Redis successfully", "addr", redisAddr)
	return &CachedReader{
		reader: reader,
		client: client,
		ttl:    defaultCacheTTL,
		log:    log,
	}, nil
}

// Close закрывает соединение с Redis
func (r *CachedReader) Close() error {
	return r.client.Close()
}

// GetStatus возвращает статус подписки из кэша или из сервиса подписок
func (r *CachedReader) GetStatus(ctx context.Context, payerID string) (domain.EntitlementStatus, error) {
	key := statusKeyPrefix + payerID

	data, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		var status domain.EntitlementStatus
		if err := json.Unmarshal(data, &status); err == nil {
			r.log.Debugw("Entitlement status served from cache", "payerID", payerID)
			return status, nil
		}
		r.log.Warnw("Failed to unmarshal cached entitlement status", "payerID", payerID)
	} else if err != redis.Nil {
		// Проблемы с Redis не должны ломать чтение статуса
		r.log.Errorw("Error reading entitlement status from Redis", "error", err, "payerID", payerID)
	}

	status, err := r.reader.GetStatus(ctx, payerID)
	if err != nil {
		return domain.EntitlementStatus{}, err
	}

	if data, err := json.Marshal(status); err == nil {
		if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
			r.log.Errorw("Failed to cache entitlement status", "error", err, "payerID", payerID)
		}
	}

	return status, nil
}

// Invalidate удаляет статус подписки из кэша.
// Вызывается после успешной покупки, чтобы читающая ручка не отдавала
// устаревший неактивный статус.
func (r *CachedReader) Invalidate(ctx context.Context, payerID string) error {
	key := statusKeyPrefix + payerID

	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.log.Errorw("Failed to invalidate entitlement status in cache", "error", err, "payerID", payerID)
		return fmt.Errorf("failed to invalidate entitlement status: %w", err)
	}

	r.log.Debugw("Entitlement status invalidated in cache", "payerID", payerID)
	return nil
}
