// Package main provides a load testing tool for the realtime profile stream.
// It holds many admin streams open while draining the review queue and reports
// how many change events reached the subscribers.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"portal/internal/models"
	"portal/pkg/sdk"
)

// Metrics tracks the test results
type Metrics struct {
	ConnectionsAttempted int64
	ConnectionsSuccess   int64
	ConnectionsFailed    int64
	Decisions            int64
	EventsReceived       int64
	Errors               int64
	latencyTotal         int64
	latencySamples       int64
}

var metrics Metrics

func main() {
	baseURL := flag.String("url", "http://localhost:8375", "API base URL")
	email := flag.String("email", "admin@portal.local", "Admin email")
	password := flag.String("password", "password123", "Admin password")
	clients := flag.Int("clients", 50, "Number of concurrent streams")
	duration := flag.Duration("duration", 30*time.Second, "Test duration")
	every := flag.Duration("every", time.Second, "Interval between review decisions")
	flag.Parse()

	log.Printf("🚀 Starting Stream Load Test")
	log.Printf("Target: %s", *baseURL)
	log.Printf("Clients: %d", *clients)
	log.Printf("Duration: %v", *duration)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	admin, err := sdk.New(*baseURL)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if _, err := admin.Login(ctx, *email, *password); err != nil {
		log.Fatalf("❌ Login failed: %v", err)
	}
	log.Printf("✅ Logged in successfully")

	runCtx, cancel := context.WithTimeout(ctx, *duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < *clients; i++ {
		wg.Add(1)
		go runClient(runCtx, admin, &wg)
		time.Sleep(20 * time.Millisecond) // stagger ticket issuance
	}

	decide(runCtx, admin, *every)

	log.Println("Waiting for streams to close...")
	wg.Wait()

	printMetrics()
}

func runClient(ctx context.Context, c *sdk.Client, wg *sync.WaitGroup) {
	defer wg.Done()
	atomic.AddInt64(&metrics.ConnectionsAttempted, 1)

	stream, err := c.Subscribe(ctx)
	if err != nil {
		atomic.AddInt64(&metrics.ConnectionsFailed, 1)
		atomic.AddInt64(&metrics.Errors, 1)
		return
	}
	defer func() { _ = stream.Close() }()
	atomic.AddInt64(&metrics.ConnectionsSuccess, 1)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-stream.Events():
			if !ok {
				if stream.Err() != nil {
					atomic.AddInt64(&metrics.Errors, 1)
				}
				return
			}
			atomic.AddInt64(&metrics.EventsReceived, 1)
			if ev.New != nil {
				atomic.AddInt64(&metrics.latencyTotal, int64(time.Since(ev.New.UpdatedAt)))
				atomic.AddInt64(&metrics.latencySamples, 1)
			}
		}
	}
}

// decide approves or rejects the oldest pending profile on every tick,
// alternating between the two outcomes.
func decide(ctx context.Context, admin *sdk.Client, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for n := 0; ; n++ {
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				log.Println("⏱️  Test duration reached")
			} else {
				log.Println("🛑 Interrupted by user")
			}
			return
		case <-ticker.C:
		}

		pending, err := admin.PendingProfiles(ctx)
		if err != nil || len(pending) == 0 {
			if err != nil {
				atomic.AddInt64(&metrics.Errors, 1)
			}
			continue
		}

		var p *models.Profile
		if n%2 == 0 {
			p, err = admin.ApproveUser(ctx, pending[0].ID)
		} else {
			p, err = admin.RejectUser(ctx, pending[0].ID, "load test")
		}
		if err != nil {
			atomic.AddInt64(&metrics.Errors, 1)
			continue
		}
		atomic.AddInt64(&metrics.Decisions, 1)
		log.Printf("decided %s -> %s", p.Email, p.ApprovalStatus)
	}
}

func printMetrics() {
	log.Println("\n📊 Test Results")
	log.Println("===============")
	log.Printf("Connections Attempted: %d", atomic.LoadInt64(&metrics.ConnectionsAttempted))
	log.Printf("Connections Successful: %d", atomic.LoadInt64(&metrics.ConnectionsSuccess))
	log.Printf("Connections Failed: %d", atomic.LoadInt64(&metrics.ConnectionsFailed))
	log.Printf("Decisions Made: %d", atomic.LoadInt64(&metrics.Decisions))
	log.Printf("Events Received: %d", atomic.LoadInt64(&metrics.EventsReceived))
	if n := atomic.LoadInt64(&metrics.latencySamples); n > 0 {
		log.Printf("Mean Delivery Latency: %v", time.Duration(atomic.LoadInt64(&metrics.latencyTotal)/n))
	}
	log.Printf("Total Errors: %d", atomic.LoadInt64(&metrics.Errors))
}
