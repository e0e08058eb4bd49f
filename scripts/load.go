package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	httpdelivery "github.com/tentens-tech/shared-debrid/internal/delivery/http"
)

var (
	baseURL     = flag.String("url", "http://localhost:8080", "Base URL of the application")
	token       = flag.String("token", "load-token", "Storage API token placed in the path")
	container   = flag.String("container", "load-test", "Gist id or namespace of the lease document")
	users       = flag.Int("users", 10, "Number of distinct users competing for the account")
	minutes     = flag.String("minutes", "1", "Session length requested by each user")
	concurrency = flag.Int("concurrency", 150, "Number of concurrent clients")
	duration    = flag.Duration("duration", 30*time.Second, "Duration of the load test")
	verbose     = flag.Bool("verbose", false, "Enable verbose output")
)

func main() {
	flag.Parse()

	if *users < 1 {
		log.Fatalf("At least one user is required, got %d", *users)
	}

	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	var (
		totalRequests   int64
		successRequests int64
		failedRequests  int64
		grantedRequests int64
		totalLatency    int64
	)

	startTime := time.Now()

	var wg sync.WaitGroup

	stop := make(chan struct{})

	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				elapsed := time.Since(startTime).Seconds()
				currentTotal := atomic.LoadInt64(&totalRequests)
				currentSuccess := atomic.LoadInt64(&successRequests)
				currentFailed := atomic.LoadInt64(&failedRequests)
				currentLatency := atomic.LoadInt64(&totalLatency)

				var avgLatency float64
				if currentTotal > 0 {
					avgLatency = float64(currentLatency) / float64(currentTotal)
				}

				rps := float64(currentTotal) / elapsed

				fmt.Printf("\rRequests: %d, Success: %d, Failed: %d, RPS: %.2f, Avg Latency: %.2f ms",
					currentTotal, currentSuccess, currentFailed, rps, avgLatency)
			}
		}
	}()

	go func() {
		time.Sleep(*duration)
		close(stop)
	}()

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()

			for {
				select {
				case <-stop:
					return
				default:
					user := fmt.Sprintf("user-%d", (clientID+int(atomic.LoadInt64(&totalRequests)))%*users)
					endpoint := fmt.Sprintf("%v/%v/%v/%v/stream/movie/tt0111161.json?minutes=%v",
						*baseURL, url.PathEscape(*token), url.PathEscape(*container), url.PathEscape(user), url.QueryEscape(*minutes))

					req, err := http.NewRequest(http.MethodGet, endpoint, nil)
					if err != nil {
						log.Printf("Failed to create request: %v", err)
						atomic.AddInt64(&failedRequests, 1)
						continue
					}

					start := time.Now()
					resp, err := client.Do(req)
					latency := time.Since(start).Milliseconds()
					atomic.AddInt64(&totalLatency, latency)

					atomic.AddInt64(&totalRequests, 1)

					if err != nil {
						if *verbose {
							log.Printf("Request failed: %v", err)
						}
						atomic.AddInt64(&failedRequests, 1)
						continue
					}

					respBody, err := io.ReadAll(resp.Body)
					resp.Body.Close()

					if err != nil {
						if *verbose {
							log.Printf("Failed to read response body: %v", err)
						}
						atomic.AddInt64(&failedRequests, 1)
						continue
					}

					if resp.StatusCode >= 200 && resp.StatusCode < 300 {
						atomic.AddInt64(&successRequests, 1)
						var streams httpdelivery.StreamResponse
						if err := json.Unmarshal(respBody, &streams); err == nil && len(streams.Streams) > 0 &&
							streams.Streams[0].Description == "Safe and ready to use" {
							atomic.AddInt64(&grantedRequests, 1)
						}
						if *verbose {
							log.Printf("Request successful: %s", string(respBody))
						}
					} else {
						if *verbose {
							log.Printf("Request failed with status %d: %s", resp.StatusCode, string(respBody))
						}
						atomic.AddInt64(&failedRequests, 1)
					}
				}
			}
		}(i)
	}

	wg.Wait()

	elapsed := time.Since(startTime).Seconds()
	fmt.Printf("\n\nLoad test completed in %.2f seconds\n", elapsed)
	fmt.Printf("Total requests: %d\n", atomic.LoadInt64(&totalRequests))
	fmt.Printf("Successful requests: %d\n", atomic.LoadInt64(&successRequests))
	fmt.Printf("Failed requests: %d\n", atomic.LoadInt64(&failedRequests))
	fmt.Printf("Granted sessions: %d\n", atomic.LoadInt64(&grantedRequests))
	fmt.Printf("Requests per second: %.2f\n", float64(atomic.LoadInt64(&totalRequests))/elapsed)

	if atomic.LoadInt64(&totalRequests) > 0 {
		fmt.Printf("Average latency: %.2f ms\n", float64(atomic.LoadInt64(&totalLatency))/float64(atomic.LoadInt64(&totalRequests)))
	}
}
