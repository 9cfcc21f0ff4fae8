// Package cache keeps resolved high-confidence answers in redis so repeat
// questions skip the generation endpoint.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Conn dials redis and verifies the connection with a ping.
func Conn(ctx context.Context, host, port, pass string, db int, timeout time.Duration) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%s", host, port),
		DialTimeout: timeout,
		Password:    pass,
		DB:          db,
	})
	pong, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, err
	}
	if pong != "PONG" {
		return nil, fmt.Errorf("expected PONG, got %s", pong)
	}
	return client, nil
}

type Answers struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

func NewAnswers(rdb *redis.Client, ttl time.Duration, logger *log.Logger) *Answers {
	if logger == nil {
		logger = log.New(log.Writer(), "[CACHE] ", log.LstdFlags)
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Answers{rdb: rdb, ttl: ttl, logger: logger}
}

type cachedAnswer struct {
	Answer     string  `json:"answer"`
	Confidence float64 `json:"confidence"`
}

// Get returns a previously cached answer for the question, if any. Cache
// failures are logged and reported as misses.
func (a *Answers) Get(ctx context.Context, question string) (string, float64, bool) {
	b, err := a.rdb.Get(ctx, key(question)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			a.logger.Printf("cache get failed: %v", err)
		}
		return "", 0, false
	}
	var ca cachedAnswer
	if err := json.Unmarshal(b, &ca); err != nil {
		a.logger.Printf("cache entry corrupt, dropping: %v", err)
		_ = a.rdb.Del(ctx, key(question)).Err()
		return "", 0, false
	}
	return ca.Answer, ca.Confidence, true
}

// Set stores an answer under the question's key with the configured TTL.
func (a *Answers) Set(ctx context.Context, question, answer string, confidence float64) {
	b, err := json.Marshal(cachedAnswer{Answer: answer, Confidence: confidence})
	if err != nil {
		a.logger.Printf("cache marshal failed: %v", err)
		return
	}
	if err := a.rdb.Set(ctx, key(question), b, a.ttl).Err(); err != nil {
		a.logger.Printf("cache set failed: %v", err)
	}
}

func key(question string) string {
	sum := sha256.Sum256([]byte(question))
	return "govqa:answer:" + hex.EncodeToString(sum[:])
}
