// quotewatch subscribes to a running fetcher's quote stream and prints every
// frame to the console.
// Usage: go run ./cmd/quotewatch --url http://localhost:5000 --securities AAPL,MSFT
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rickgao/market-data/internal/stream"
)

func main() {
	baseURL := flag.String("url", "http://localhost:5000", "fetcher base URL")
	securities := flag.String("securities", "AAPL", "comma-separated symbols")
	verbose := flag.Bool("verbose", false, "print full frame JSON")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := watch(ctx, *baseURL, *securities, *verbose, logger); err != nil {
		logger.Error("stream failed", "error", err)
		os.Exit(1)
	}
	logger.Info("stream closed")
}

func watch(ctx context.Context, baseURL, securities string, verbose bool, logger *slog.Logger) error {
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	u = u.JoinPath("/market/quote/stream")
	u.RawQuery = url.Values{"securities": {securities}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}

	logger.Info("streaming started - press Ctrl+C to stop", "url", u.String())

	r := bufio.NewReader(resp.Body)
	for frames := 0; ; frames++ {
		q, err := stream.ReadFrame(r)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		if verbose {
			data, _ := json.MarshalIndent(q, "", "  ")
			fmt.Printf("[FRAME %d] %s\n", frames, data)
			continue
		}
		fmt.Printf("[%s] frame=%d", time.Now().Format(time.TimeOnly), frames)
		for _, symbol := range q.Symbols() {
			fmt.Printf(" %s=%g", symbol, q[symbol])
		}
		fmt.Println()
	}
}
