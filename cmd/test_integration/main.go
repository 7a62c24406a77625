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

func main() {
	baseURL := os.Getenv("ANIMA_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	// Wait for server to start
	time.Sleep(2 * time.Second)

	fmt.Println("Starting Integration Test...")

	sessionID := fmt.Sprintf("smoke-%d", time.Now().Unix())

	steps := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"status", "GET", "/status", nil, http.StatusOK},
		{"register alex", "POST", "/api/agents", map[string]string{
			"session_id": sessionID, "agent_id": "alex", "name": "Alex", "persona": "a cheerful builder",
		}, http.StatusCreated},
		{"register blake", "POST", "/api/agents", map[string]string{
			"session_id": sessionID, "agent_id": "blake", "name": "Blake", "persona": "a grumpy miner",
		}, http.StatusCreated},
		{"event with targets", "POST", "/api/events", map[string]any{
			"session_id": sessionID,
			"world_time": 100,
			"subject":    map[string]any{"entity_id": "zombie-1", "entity_type": "zombie", "name": "Zombie"},
			"verb":       "attacked",
			"object":     map[string]any{"entity_id": "alex", "entity_type": "agent", "name": "Alex"},
			"target_agent_ids": []string{"alex", "blake"},
		}, http.StatusOK},
		{"tick", "POST", "/api/events/tick", map[string]string{"session_id": sessionID}, http.StatusOK},
		{"social dynamics", "GET", "/api/sessions/" + sessionID + "/social-dynamics", nil, http.StatusOK},
		{"perception", "GET", "/api/sessions/" + sessionID + "/agents/alex/perception?format=text", nil, http.StatusOK},
		{"reset", "DELETE", "/api/sessions/" + sessionID, nil, http.StatusOK},
	}

	for i, s := range steps {
		fmt.Printf("%d. %s...\n", i+1, s.name)
		if !sendRequest(baseURL, s.method, s.path, s.body, s.want) {
			fmt.Printf("FAILED: %s\n", s.name)
			os.Exit(1)
		}
		fmt.Printf("PASSED: %s\n", s.name)
	}
}

func sendRequest(baseURL, method, endpoint string, payload any, want int) bool {
	var body io.Reader
	if payload != nil {
		jsonBytes, _ := json.Marshal(payload)
		body = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequest(method, baseURL+endpoint, body)
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error sending request: %v\n", err)
		return false
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != want {
		fmt.Printf("Request failed with status %d: %s\n", resp.StatusCode, string(respBody))
		return false
	}

	fmt.Printf("Response: %s\n", string(respBody))
	return true
}
