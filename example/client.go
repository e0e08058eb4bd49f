package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	httpdelivery "github.com/tentens-tech/shared-debrid/internal/delivery/http"
)

const (
	retryInterval   = 30 * time.Second // Time to wait before asking again while someone else watches
	refreshInterval = 5 * time.Minute  // Time between session extensions while we hold the account
	sessionMinutes  = "10"
)

var (
	baseURL   = flag.String("url", "http://localhost:8080", "Base URL of the addon server")
	token     = flag.String("token", "", "Storage API token")
	container = flag.String("container", "", "Gist id or namespace of the lease document")
	username  = flag.String("user", "example-user", "Name to claim the shared account with")
)

func main() {
	flag.Parse()

	for {
		holder, err := requestAccess()
		if err == nil && holder == "" {
			fmt.Println("Shared account obtained, starting to watch...")
			startWatching()
			break
		}
		if err != nil {
			fmt.Printf("Failed to ask for the shared account: %v. Retrying in %v...\n", err, retryInterval)
		} else {
			fmt.Printf("Shared account is used by %v. Retrying in %v...\n", holder, retryInterval)
		}
		time.Sleep(retryInterval)
	}
}

// requestAccess returns "" when access was granted, otherwise the reason
// shown by the addon.
func requestAccess() (string, error) {
	endpoint := fmt.Sprintf("%v/%v/%v/%v/stream/movie/example.json?minutes=%v",
		*baseURL, url.PathEscape(*token), url.PathEscape(*container), url.PathEscape(*username), sessionMinutes)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to call addon: %v", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected response status: %v, body: %v", resp.Status, string(bodyBytes))
	}

	var streams httpdelivery.StreamResponse
	if err := json.Unmarshal(bodyBytes, &streams); err != nil {
		return "", fmt.Errorf("failed to decode response: %v", err)
	}
	if len(streams.Streams) == 0 {
		return "", fmt.Errorf("addon returned no streams")
	}

	if streams.Streams[0].Description == "Safe and ready to use" {
		return "", nil
	}
	return streams.Streams[0].Description, nil
}

func startWatching() {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for range ticker.C {
		reason, err := requestAccess()
		if err != nil {
			fmt.Printf("Failed to extend session: %v\n", err)
			continue
		}
		if reason != "" {
			fmt.Printf("Session lost (%v), stopping...\n", reason)
			return
		}

		fmt.Println("Session extended successfully")
	}
}
