// http-loadgen is a tiny, dependency-free HTTP load generator for exercising
// kizami's lookup API. It reuses HTTP connections (keep-alive) and supports
// concurrency so it can push meaningful throughput from a single machine.
//
// Modes:
//   - single: repeatedly query one (chainId, timestamp) pair
//   - sweep:  walk a timestamp range across a fixed set of concurrent workers,
//     approximating how real traffic spreads queries across recent history
//
// Usage examples:
//
//	http-loadgen -base=http://127.0.0.1:8080 -mode=single -chain=1 -ts=1700000000 -n=5000 -c=16
//	http-loadgen -base=http://127.0.0.1:8080 -mode=sweep -chain=1 -ts=1700000000 -ts_span=3600 -n=8000 -c=16
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type modeType string

const (
	modeSingle modeType = "single"
	modeSweep  modeType = "sweep"
)

func main() {
	var (
		base      = flag.String("base", "http://127.0.0.1:8080", "Base URL including scheme and host, e.g. http://127.0.0.1:8080")
		chainID   = flag.Int("chain", 1, "chainId to query")
		direction = flag.String("direction", "before", "before|after")
		modeS     = flag.String("mode", string(modeSingle), "Mode: single|sweep")
		ts        = flag.Int64("ts", time.Now().Unix(), "Timestamp for single mode, or range start for sweep mode")
		tsSpan    = flag.Int64("ts_span", 3600, "Timestamp span (seconds) to spread queries across in sweep mode")
		N         = flag.Int("n", 5000, "Total requests to send")
		conc      = flag.Int("c", 8, "Number of concurrent workers")

		timeout    = flag.Duration("timeout", 20*time.Second, "Overall timeout for the loadgen run")
		connIdle   = flag.Duration("idle_timeout", 30*time.Second, "HTTP idle connection timeout")
		maxIdle    = flag.Int("max_idle", 256, "Max idle connections total")
		maxIdlePer = flag.Int("max_idle_per_host", 256, "Max idle connections per host")
	)
	flag.Parse()

	m := modeType(strings.ToLower(*modeS))
	if m != modeSingle && m != modeSweep {
		fmt.Fprintf(os.Stderr, "unknown -mode=%s (want single|sweep)\n", *modeS)
		os.Exit(2)
	}
	if *direction != "before" && *direction != "after" {
		fmt.Fprintf(os.Stderr, "unknown -direction=%s (want before|after)\n", *direction)
		os.Exit(2)
	}
	if *N <= 0 || *conc <= 0 {
		fmt.Fprintln(os.Stderr, "-n and -c must be > 0")
		os.Exit(2)
	}
	if m == modeSweep && *tsSpan <= 0 {
		fmt.Fprintln(os.Stderr, "-ts_span must be > 0 in sweep mode")
		os.Exit(2)
	}

	baseURL := strings.TrimRight(*base, "/")

	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        *maxIdle,
		MaxIdleConnsPerHost: *maxIdlePer,
		IdleConnTimeout:     *connIdle,
	}
	client := &http.Client{Transport: tr, Timeout: 5 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	var done int64

	worker := func(id, count int) {
		defer atomic.AddInt64(&done, int64(count))
		for i := 0; i < count; i++ {
			select {
			case <-ctx.Done():
				return
			default:
			}
			queryTs := *ts
			if m == modeSweep {
				queryTs = *ts + int64((i+id))%*tsSpan
			}
			url := fmt.Sprintf("%s/v1/chains/%d/block/%s/%d", baseURL, *chainID, *direction, queryTs)
			req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			resp, err := client.Do(req)
			if err == nil {
				_, _ = io.Copy(io.Discard, resp.Body)
				_ = resp.Body.Close()
			} else {
				time.Sleep(200 * time.Microsecond)
			}
		}
	}

	per := *N / *conc
	rem := *N - per**conc
	var wg sync.WaitGroup
	wg.Add(*conc)
	for w := 0; w < *conc; w++ {
		count := per
		if w == *conc-1 {
			count += rem
		}
		go func(id, n int) {
			defer wg.Done()
			worker(id, n)
		}(w, count)
	}
	wg.Wait()
	elapsed := time.Since(start)
	if elapsed <= 0 {
		elapsed = time.Millisecond
	}
	ops := float64(*N) / elapsed.Seconds()
	fmt.Printf("LoadGen: mode=%s N=%d c=%d go=%d Duration=%s Throughput=%.0f req/s\n", m, *N, *conc, runtime.GOMAXPROCS(0), elapsed.Truncate(time.Millisecond), ops)
}
