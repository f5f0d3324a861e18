package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache okuma ağırlıklı property sorgularının sonuçlarını tutar.
// Versiyon sayacı kök namespace'e aittir ("properties:list" için "properties");
// Bump("properties") tüm alt namespace'lerin anahtarlarını geçersiz kılar.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Key(ctx context.Context, namespace string, params map[string]string) string
	Bump(ctx context.Context, namespace string) error
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(addr, password string, ttl time.Duration) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	return &RedisCache{client: client, ttl: ttl}
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

func (r *RedisCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(data, dest)
}

func (r *RedisCache) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, r.ttl).Err()
}

func (r *RedisCache) Key(ctx context.Context, namespace string, params map[string]string) string {
	version, err := r.client.Get(ctx, versionKey(RootNamespace(namespace))).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		log.Printf("[WARN] cache versiyonu okunamadı (%s): %v", namespace, err)
	}
	return QueryKey(fmt.Sprintf("%s:v%d", namespace, version), params)
}

func (r *RedisCache) Bump(ctx context.Context, namespace string) error {
	return r.client.Incr(ctx, versionKey(RootNamespace(namespace))).Err()
}

// RootNamespace ilk ":" öncesini döner.
func RootNamespace(namespace string) string {
	if i := strings.IndexByte(namespace, ':'); i >= 0 {
		return namespace[:i]
	}
	return namespace
}

func versionKey(namespace string) string {
	return "proptrack:" + namespace + ":version"
}

// QueryKey query parametrelerinden sıralamadan bağımsız bir anahtar üretir.
func QueryKey(prefix string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var builder strings.Builder
	for i, k := range keys {
		if i > 0 {
			builder.WriteString(":")
		}
		builder.WriteString(k)
		builder.WriteString("=")
		builder.WriteString(params[k])
	}

	hash := md5.Sum([]byte(builder.String()))
	return "proptrack:" + prefix + ":" + hex.EncodeToString(hash[:])
}

// Nop REDIS_ADDR tanımlı değilken kullanılır; her okuma miss döner.
type Nop struct{}

func (Nop) Get(context.Context, string, any) (bool, error) { return false, nil }
func (Nop) Set(context.Context, string, any) error        { return nil }
func (Nop) Key(_ context.Context, namespace string, params map[string]string) string {
	return QueryKey(namespace, params)
}
func (Nop) Bump(context.Context, string) error { return nil }
