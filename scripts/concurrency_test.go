//go:build ignore
// +build ignore

// Package main is a manual concurrency stress test against a running server.
//
// Usage:
//
//	go run ./scripts/concurrency_test.go [workers]
//
// What it does:
//  1. Fires N goroutines that all register a patron with the same email at once.
//     Exactly one must get 201; the rest must get 409.
//  2. Creates a book and fires N goroutines that each add a copy of it.
//     Every copy must get a distinct identifier and barcode path.
//
// Prerequisites:
//   - Server must be running (SERVER_ADDR, default http://localhost:8080).
//   - Run `xenith migrate` before starting the server.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"
)

const (
	defaultServerAddr = "http://localhost:8080"
	defaultWorkers    = 16
)

type result struct {
	StatusCode int
	Body       map[string]interface{}
	Err        error
}

var client = &http.Client{Timeout: 10 * time.Second}

func main() {
	serverAddr := os.Getenv("SERVER_ADDR")
	if serverAddr == "" {
		serverAddr = defaultServerAddr
	}
	workers := defaultWorkers
	if len(os.Args) > 1 {
		n, err := strconv.Atoi(os.Args[1])
		if err != nil || n < 2 {
			log.Fatal("Usage: go run ./scripts/concurrency_test.go [workers >= 2]")
		}
		workers = n
	}

	fmt.Printf("=== Xenith Concurrency Test ===\n")
	fmt.Printf("Server  : %s\n", serverAddr)
	fmt.Printf("Workers : %d\n\n", workers)

	failed := !checkPatronEmailRace(serverAddr, workers)
	if !checkCopyIdentifiers(serverAddr, workers) {
		failed = true
	}
	if failed {
		os.Exit(1)
	}
	fmt.Println("\nAll invariants held.")
}

// fanOut releases n requests at the same instant and collects their results.
func fanOut(n int, do func(i int) result) []result {
	results := make([]result, n)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			results[idx] = do(idx)
		}(i)
	}
	close(start)
	wg.Wait()
	return results
}

func checkPatronEmailRace(serverAddr string, n int) bool {
	fmt.Println("--- Patron email uniqueness ---")
	email := fmt.Sprintf("race-%d@example.com", time.Now().UnixNano())
	results := fanOut(n, func(i int) result {
		return post(serverAddr+"/patron", map[string]string{
			"first_name": "Race",
			"last_name":  strconv.Itoa(i),
			"email":      email,
			"phone":      fmt.Sprintf("race-%d-%d", time.Now().UnixNano(), i),
		})
	})

	var created, conflicts, other int
	for _, r := range results {
		switch {
		case r.Err != nil:
			other++
			fmt.Printf("  [ERR ] %v\n", r.Err)
		case r.StatusCode == http.StatusCreated:
			created++
		case r.StatusCode == http.StatusConflict:
			conflicts++
		default:
			other++
			fmt.Printf("  [FAIL] status=%d body=%v\n", r.StatusCode, r.Body)
		}
	}
	fmt.Printf("Created   : %d\nConflicts : %d\nOther     : %d\n", created, conflicts, other)
	ok := created == 1 && conflicts == n-1
	if !ok {
		fmt.Println("[BROKEN] expected exactly one patron to be created")
	}
	return ok
}

func checkCopyIdentifiers(serverAddr string, n int) bool {
	fmt.Println("\n--- Copy identifiers ---")
	stamp := time.Now().UnixNano()
	pub := post(serverAddr+"/publisher", map[string]interface{}{"name": fmt.Sprintf("Race Press %d", stamp)})
	if pub.Err != nil || pub.StatusCode != http.StatusCreated {
		fmt.Printf("  [ERR ] could not create publisher: status=%d err=%v\n", pub.StatusCode, pub.Err)
		return false
	}
	isbn := fmt.Sprintf("%013d", stamp%1e13)
	book := post(serverAddr+"/book", map[string]interface{}{
		"isbn":         isbn,
		"title":        "Concurrency",
		"publisher_id": pub.Body["id"],
	})
	if book.Err != nil || book.StatusCode != http.StatusCreated {
		fmt.Printf("  [ERR ] could not create book: status=%d err=%v\n", book.StatusCode, book.Err)
		return false
	}

	results := fanOut(n, func(int) result {
		return post(serverAddr+"/book/"+isbn+"/copies", nil)
	})

	ids := map[string]bool{}
	paths := map[string]bool{}
	var failures int
	for _, r := range results {
		if r.Err != nil || r.StatusCode != http.StatusCreated {
			failures++
			fmt.Printf("  [FAIL] status=%d err=%v\n", r.StatusCode, r.Err)
			continue
		}
		ids[fmt.Sprint(r.Body["id"])] = true
		paths[fmt.Sprint(r.Body["barcode_path"])] = true
	}
	fmt.Printf("Copies    : %d\nDistinct  : %d ids, %d barcodes\n", n-failures, len(ids), len(paths))
	ok := failures == 0 && len(ids) == n && len(paths) == n
	if !ok {
		fmt.Println("[BROKEN] copies must all succeed with distinct identifiers")
	}
	return ok
}

func post(url string, payload interface{}) result {
	var body io.Reader = http.NoBody
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return result{Err: err}
		}
		body = bytes.NewReader(raw)
	}
	resp, err := client.Post(url, "application/json", body)
	if err != nil {
		return result{Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var parsed map[string]interface{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return result{StatusCode: resp.StatusCode, Err: fmt.Errorf("bad JSON: %s", raw)}
		}
	}
	return result{StatusCode: resp.StatusCode, Body: parsed}
}
