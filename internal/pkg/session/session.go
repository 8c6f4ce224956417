package session

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage/redis"

	"github.com/ManuelReschke/ScoreEngine/internal/pkg/cache"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/config"
)

// Redis databases: 0 cache and rate limiter, 1 app sessions, 2 OAuth state.
const (
	SessionDB = 1
	OAuthDB   = 2
)

// RedisStorage builds a fiber storage on the given redis database using the
// same connection settings as the cache.
func RedisStorage(cfg config.Cache, db int) *redis.Storage {
	host, port, username, password := "localhost", 6379, "", cfg.Password
	opts, err := cache.Options(cfg, db)
	if err != nil {
		log.Warnf("Invalid redis configuration for sessions: %v", err)
	} else {
		if h, p, err := net.SplitHostPort(opts.Addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		username = opts.Username
		if opts.Password != "" {
			password = opts.Password
		}
	}

	return redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		Database: db,
		Reset:    false,
	})
}

// NewSessionStore creates the app session store on redis DB 1.
func NewSessionStore(cfg *config.Config) *session.Store {
	return NewStore(RedisStorage(cfg.Cache, SessionDB), !cfg.IsDev())
}

// NewStore creates a session store over any fiber storage. A nil storage
// keeps sessions in memory.
func NewStore(storage fiber.Storage, secure bool) *session.Store {
	return session.New(session.Config{
		Storage:        storage,
		CookieHTTPOnly: true,
		CookieSecure:   secure,
		CookieSameSite: "Lax",
		Expiration:     time.Hour * 24 * 7,
		KeyLookup:      "cookie:session_id",
	})
}

// SetSessionValues stores key-value pairs in the user's session.
func SetSessionValues(store *session.Store, c *fiber.Ctx, values map[string]string) error {
	if store == nil {
		return fmt.Errorf("session store not initialized")
	}

	sess, err := store.Get(c)
	if err != nil {
		return fmt.Errorf("failed to get session: %v", err)
	}

	for k, v := range values {
		sess.Set(k, v)
	}
	return sess.Save()
}

// GetSessionValue retrieves a value by key from the user's session
func GetSessionValue(store *session.Store, c *fiber.Ctx, key string) string {
	if store == nil {
		return ""
	}

	sess, err := store.Get(c)
	if err != nil {
		return ""
	}

	if v, ok := sess.Get(key).(string); ok {
		return v
	}
	return ""
}

// Destroy drops the user's session.
func Destroy(store *session.Store, c *fiber.Ctx) error {
	if store == nil {
		return nil
	}
	sess, err := store.Get(c)
	if err != nil {
		return err
	}
	return sess.Destroy()
}
