package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goSSO/session"
	"github.com/MrEthical07/goSSO/ticket"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

type loadOptions struct {
	sessions    int
	concurrency int
	ops         int
	redisAddr   string
	prefix      string
}

var loadOpts loadOptions

var loadtestCmd = &cobra.Command{
	Use:   "loadtest",
	Short: "Measure session and ticket store latency",
	Long: `Seeds sessions, then runs a session validation phase and a ticket
issue/redeem phase against Redis. Without --redis-addr an in-process
miniredis is used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		o := loadOpts
		if o.sessions <= 0 || o.concurrency <= 0 || o.ops <= 0 {
			return errors.New("sessions, concurrency and ops must be > 0")
		}
		return runLoad(cmd.Context(), cmd.OutOrStdout(), o)
	},
}

func init() {
	f := loadtestCmd.Flags()
	f.IntVar(&loadOpts.sessions, "sessions", 100000, "number of sessions to seed")
	f.IntVar(&loadOpts.concurrency, "concurrency", 256, "number of concurrent workers")
	f.IntVar(&loadOpts.ops, "ops", 200000, "operations per phase")
	f.StringVar(&loadOpts.redisAddr, "redis-addr", "", "redis address; empty uses miniredis")
	f.StringVar(&loadOpts.prefix, "prefix", "sso:", "key prefix")
}

func runLoad(ctx context.Context, out io.Writer, o loadOptions) error {
	var client redis.UniversalClient
	if o.redisAddr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("start miniredis: %w", err)
		}
		defer mr.Close()
		o.redisAddr = mr.Addr()
		fmt.Fprintf(out, "using miniredis at %s\n", o.redisAddr)
	} else {
		fmt.Fprintf(out, "using redis at %s\n", o.redisAddr)
	}
	client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{o.redisAddr}})
	defer client.Close()

	sessions := session.NewStore(client, o.prefix, false, 0)
	tickets := ticket.NewStore(client, o.prefix, 5*time.Minute, time.Hour)

	ids := make([]string, o.sessions)
	fmt.Fprintf(out, "seeding %d sessions...\n", o.sessions)
	startSeed := time.Now()
	for i := range ids {
		ids[i] = fmt.Sprintf("sid-%d", i)
		if _, err := sessions.Save(ctx, buildSession(ids[i], int64(i%1000)+1)); err != nil {
			return fmt.Errorf("seed session: %w", err)
		}
	}
	fmt.Fprintf(out, "seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	validate := runPhase(o.ops, o.concurrency, 7919, func(r *rand.Rand, _ int) error {
		_, err := sessions.Get(ctx, ids[r.Intn(len(ids))])
		return err
	})
	redeem := runPhase(o.ops, o.concurrency, 6151, func(r *rand.Rand, i int) error {
		sid := ids[r.Intn(len(ids))]
		t, err := tickets.Issue(ctx, ticket.Binding{
			PrincipalID: int64(i%1000) + 1,
			ClientID:    "loadtest",
			RedirectURI: "https://loadtest.invalid/cb",
			SessionID:   sid,
		})
		if err != nil {
			return err
		}
		if _, err := tickets.Consume(ctx, t, "loadtest"); err != nil {
			return err
		}
		if _, err := tickets.Consume(ctx, t, "loadtest"); !errors.Is(err, ticket.ErrNotFound) {
			return fmt.Errorf("ticket redeemed twice: %v", err)
		}
		return nil
	})

	fmt.Fprintln(out, "---- results ----")
	printStats(out, "validate", validate)
	printStats(out, "ticket", redeem)
	return nil
}

// runPhase spreads ops calls of op over concurrency workers and records the
// latency of each.
func runPhase(ops, concurrency int, seed int64, op func(r *rand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total, failures: failures}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(out io.Writer, name string, s phaseStats) {
	fmt.Fprintf(out, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

func buildSession(sid string, userID int64) *session.Session {
	now := time.Now()
	return &session.Session{
		SessionID: sid,
		UserID:    userID,
		Window:    time.Hour,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(24 * time.Hour).Unix(),
	}
}
