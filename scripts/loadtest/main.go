// Loadtest sends concurrent decision requests to the edge router and reports
// throughput, status codes and the backend distribution per hostname.
//
// Usage:
//
//	go run ./scripts/loadtest -url http://localhost:8080 -hosts acme.com,api.acme.com -requests 5000
//	go run ./scripts/loadtest -concurrency 50 -out summary.json
//
// The backend of each decision is read from the X-Backend-Address header.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type hostStats struct {
	Total    int32            `json:"total"`
	Backends map[string]int32 `json:"backends"`
	Statuses map[int]int32    `json:"statuses"`
}

func main() {
	var (
		url         = flag.String("url", "http://localhost:8080", "Decision server URL")
		hostList    = flag.String("hosts", "acme.com", "Comma separated Host headers to rotate through")
		concurrency = flag.Int("concurrency", 10, "Number of concurrent workers")
		requests    = flag.Int("requests", 1000, "Total number of requests to send")
		timeoutSec  = flag.Int("timeout", 5, "Per-request timeout in seconds")
		outJSON     = flag.String("out", "", "Write JSON summary to this file (optional)")
		verbose     = flag.Bool("v", false, "Verbose per-request logging to stdout")
	)
	flag.Parse()

	hosts := strings.Split(*hostList, ",")
	client := &http.Client{Timeout: time.Duration(*timeoutSec) * time.Second}

	jobs := make(chan int)
	var wg sync.WaitGroup

	var total, failure int32

	stats := make(map[string]*hostStats, len(hosts))
	for _, h := range hosts {
		stats[h] = &hostStats{Backends: map[string]int32{}, Statuses: map[int]int32{}}
	}
	var statsMu sync.Mutex

	var latencies []time.Duration
	var latMu sync.Mutex

	testStart := time.Now()

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for idx := range jobs {
				atomic.AddInt32(&total, 1)
				host := hosts[idx%len(hosts)]

				req, err := http.NewRequest(http.MethodGet, *url, nil)
				if err != nil {
					atomic.AddInt32(&failure, 1)
					continue
				}
				req.Host = host

				start := time.Now()
				resp, err := client.Do(req)
				dur := time.Since(start)

				latMu.Lock()
				latencies = append(latencies, dur)
				latMu.Unlock()

				if err != nil {
					atomic.AddInt32(&failure, 1)
					if *verbose {
						fmt.Printf("[%d] idx=%d host=%s error=%v\n", workerID, idx, host, err)
					}
					continue
				}

				backend := resp.Header.Get("X-Backend-Address")
				if backend == "" {
					backend = "(none)"
				}
				if resp.StatusCode != http.StatusOK {
					atomic.AddInt32(&failure, 1)
				}

				statsMu.Lock()
				s := stats[host]
				s.Total++
				s.Backends[backend]++
				s.Statuses[resp.StatusCode]++
				statsMu.Unlock()

				if *verbose {
					fmt.Printf("[%d] idx=%d host=%s backend=%s status=%d dur=%v\n",
						workerID, idx, host, backend, resp.StatusCode, dur)
				}

				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
			}
		}(i)
	}

	go func() {
		for i := 0; i < *requests; i++ {
			jobs <- i
		}
		close(jobs)
	}()

	wg.Wait()
	totalDuration := time.Since(testStart)
	throughput := float64(total) / totalDuration.Seconds()

	fmt.Println("--- Decision Load Test Summary ---")
	fmt.Printf("Target: %s  Hosts: %s\n", *url, strings.Join(hosts, ","))
	fmt.Printf("Requests: %d  Concurrency: %d\n", *requests, *concurrency)
	fmt.Printf("Total sent: %d  Failure: %d\n", total, failure)
	fmt.Printf("Duration: %v  Throughput: %.2f req/s\n", totalDuration, throughput)

	for _, h := range hosts {
		s := stats[h]
		fmt.Printf("\n%s -> total=%d\n", h, s.Total)

		backends := make([]string, 0, len(s.Backends))
		for b := range s.Backends {
			backends = append(backends, b)
		}
		sort.Strings(backends)
		for _, b := range backends {
			fmt.Printf("  %s -> %d (%.1f%%)\n", b, s.Backends[b], 100*float64(s.Backends[b])/float64(s.Total))
		}
		for code, n := range s.Statuses {
			fmt.Printf("  status %d -> %d\n", code, n)
		}
	}

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		pick := func(p float64) time.Duration { return latencies[int(float64(len(latencies)-1)*p)] }
		fmt.Println("\nLatencies:")
		fmt.Printf("  samples=%d min=%v p50=%v p95=%v p99=%v max=%v\n",
			len(latencies), latencies[0], pick(0.50), pick(0.95), pick(0.99), latencies[len(latencies)-1])
	}

	fmt.Printf("\nGOMAXPROCS=%d  NumGoroutine=%d\n", runtime.GOMAXPROCS(0), runtime.NumGoroutine())

	if *outJSON != "" {
		report := map[string]interface{}{
			"target":         *url,
			"requests":       *requests,
			"concurrency":    *concurrency,
			"total_sent":     total,
			"failure":        failure,
			"duration_ms":    totalDuration.Milliseconds(),
			"throughput_rps": throughput,
			"hosts":          stats,
		}

		f, err := os.Create(*outJSON)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create json file: %v\n", err)
			os.Exit(1)
		}
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		enc.Encode(report)
		f.Close()
		fmt.Printf("\nWrote JSON summary to %s\n", *outJSON)
	}

	if failure > 0 {
		os.Exit(2)
	}
}
