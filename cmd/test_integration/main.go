// Smoke test harness for a locally running server. Hits every endpoint and
// exits non-zero on the first failure.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const baseURL = "http://localhost:8080"

func main() {
	// Wait for server to start
	time.Sleep(2 * time.Second)

	fmt.Println("Starting smoke test...")

	if !sendRequest("GET", "/health", nil) {
		fmt.Println("FAILED: health check")
		os.Exit(1)
	}
	fmt.Println("PASSED: health check")

	if !sendRequest("POST", "/resolve", nil) {
		fmt.Println("FAILED: resolve")
		os.Exit(1)
	}
	fmt.Println("PASSED: resolve")

	if !sendRequest("GET", "/clusters", nil) {
		fmt.Println("FAILED: clusters")
		os.Exit(1)
	}
	fmt.Println("PASSED: clusters")

	fmt.Println("Smoke test complete.")
}

func sendRequest(method, path string, payload interface{}) bool {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			fmt.Printf("Error marshaling payload: %v\n", err)
			return false
		}
		body = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, baseURL+path, body)
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error sending request: %v\n", err)
		return false
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("  %s %s -> %d: %s\n", method, path, resp.StatusCode, truncate(string(respBody), 200))

	return resp.StatusCode == http.StatusOK
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
