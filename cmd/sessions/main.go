// Command sessions lists live account sessions in Redis and can revoke every
// session of one user.
//
//	sessions -addr 127.0.0.1:6379
//	sessions -user 7f6c... -revoke
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/redis"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("sessions", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		addr    = fs.String("addr", envOr("REDIS_ADDR", "127.0.0.1:6379"), "redis address host:port")
		pass    = fs.String("pass", os.Getenv("REDIS_PASSWORD"), "redis password")
		db      = fs.Int("db", 0, "redis db")
		user    = fs.String("user", "", "only sessions of this user id")
		revoke  = fs.Bool("revoke", false, "delete the sessions of -user")
		timeout = fs.Duration("timeout", 10*time.Second, "overall timeout")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *revoke && *user == "" {
		fmt.Fprintln(stderr, "-revoke needs -user")
		return 2
	}

	c := redis.New(*addr, *pass, *db)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		fmt.Fprintf(stderr, "redis ping failed: %v\n", err)
		return 1
	}
	return inspect(ctx, redis.NewSessionStore(c), *user, *revoke, stdout, stderr)
}

func inspect(ctx context.Context, store *redis.SessionStore, user string, revoke bool, stdout, stderr io.Writer) int {
	if revoke {
		n, err := store.RevokeUser(ctx, user)
		if err != nil {
			fmt.Fprintf(stderr, "revoke failed after %d sessions: %v\n", n, err)
			return 1
		}
		fmt.Fprintf(stdout, "revoked %d session(s) of %s\n", n, user)
		return 0
	}

	total := 0
	err := store.Each(ctx, func(si redis.SessionInfo) error {
		if user != "" && si.UserID != user {
			return nil
		}
		total++
		// the id is a bearer credential; print only a prefix
		fmt.Fprintf(stdout, "%s...  user=%s  ttl=%s\n", si.ID[:min(8, len(si.ID))], si.UserID, si.TTL)
		return nil
	})
	if err != nil {
		fmt.Fprintf(stderr, "scan failed: %v\n", err)
		return 1
	}
	if total == 0 {
		fmt.Fprintln(stdout, "no sessions")
	}
	return 0
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
