// Command tokenclient demonstrates a depcoord.Coordinator guarding an
// OAuth2 access token shared by several concurrent HTTP calls against the
// same downstream service. It performs N requests concurrently through a
// single RoundTripper; the coordinator runs at most one token refresh at a
// time, and requests that land mid-refresh wait for it instead of starting
// their own.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/oauth2"

	"github.com/pumped-fn/depcoord"
	"github.com/pumped-fn/depcoord/oauthdep"
)

func main() {
	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "tokenclient",
		Level: hclog.LevelFromString(envOr("TOKENCLIENT_LOG_LEVEL", "info")),
	})

	cfg := &oauth2.Config{
		ClientID:     os.Getenv("TOKENCLIENT_CLIENT_ID"),
		ClientSecret: os.Getenv("TOKENCLIENT_CLIENT_SECRET"),
		Endpoint: oauth2.Endpoint{
			TokenURL: envOr("TOKENCLIENT_TOKEN_URL", "http://localhost:9999/token"),
		},
	}
	targetURL := envOr("TOKENCLIENT_TARGET_URL", "http://localhost:9999/resource")
	concurrency := envOrInt("TOKENCLIENT_CONCURRENCY", 8)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := oauthdep.NewHTTPClient(logger)
	refresh := oauthdep.NewRefreshFunc(cfg, httpClient, logger)
	coordinator := depcoord.New[*oauthdep.Token](nil, refresh,
		depcoord.WithLogger[*oauthdep.Token](logger))

	rt := oauthdep.NewRoundTripper(coordinator, http.DefaultTransport)
	client := &http.Client{Transport: rt, Timeout: 15 * time.Second}

	var wg sync.WaitGroup
	results := make(chan string, concurrency)
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			results <- callOnce(ctx, client, targetURL, id)
		}(i)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	for line := range results {
		fmt.Println(line)
	}

	logger.Info("done", "final_version", coordinator.Version())
}

func callOnce(ctx context.Context, client *http.Client, url string, id int) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Sprintf("request %d: failed to build request: %v", id, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Sprintf("request %d: failed: %v", id, err)
	}
	defer resp.Body.Close()
	return fmt.Sprintf("request %d: status %s", id, resp.Status)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
