// Package main provides a load probe for contract chat over the websocket endpoint.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// Metrics tracks the probe results.
type Metrics struct {
	ConnectionsAttempted int64
	ConnectionsSuccess   int64
	ConnectionsFailed    int64
	MessagesSent         int64
	MessagesReceived     int64
	Errors               int64
}

var metrics Metrics

type chatFrame struct {
	Type       string `json:"type"`
	ContractID uint   `json:"contract_id,omitempty"`
	Content    string `json:"content,omitempty"`
}

func main() {
	host := flag.String("host", "localhost:8080", "API server host")
	email := flag.String("email", "", "Participant email")
	password := flag.String("password", "", "Participant password")
	token := flag.String("token", "", "Session token; skips sign-in when set")
	contractID := flag.Uint("contract", 0, "Contract whose chat to join")
	clients := flag.Int("clients", 10, "Number of concurrent connections")
	interval := flag.Duration("interval", 5*time.Second, "Delay between messages per client")
	duration := flag.Duration("duration", 30*time.Second, "Probe duration")
	verbose := flag.Bool("v", false, "Print every received frame")
	flag.Parse()

	if *contractID == 0 {
		log.Fatal("-contract is required")
	}

	session := *token
	if session == "" {
		var err error
		session, err = signin(*host, *email, *password)
		if err != nil {
			log.Fatalf("Sign-in failed: %v", err)
		}
		log.Printf("Signed in as %s", *email)
	}

	log.Printf("Probing %s contract=%d clients=%d duration=%v", *host, *contractID, *clients, *duration)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := range *clients {
		wg.Add(1)
		go runClient(*host, session, uint(*contractID), i, *interval, *verbose, stop, &wg)
		time.Sleep(50 * time.Millisecond)
	}

	select {
	case <-time.After(*duration):
		log.Println("Probe duration reached")
	case <-interrupt:
		log.Println("Interrupted")
	}

	close(stop)
	wg.Wait()

	printMetrics()
}

// signin returns the session token from the cookie set by the API.
func signin(host, email, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})

	resp, err := http.Post(fmt.Sprintf("http://%s/api/auth/signin", host), "application/json", bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("sign-in returned status %d", resp.StatusCode)
	}
	for _, c := range resp.Cookies() {
		if c.HttpOnly && c.Value != "" {
			return c.Value, nil
		}
	}
	return "", fmt.Errorf("no session cookie in response")
}

func runClient(host, token string, contractID uint, id int, interval time.Duration, verbose bool, stop <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	atomic.AddInt64(&metrics.ConnectionsAttempted, 1)

	u := url.URL{Scheme: "ws", Host: host, Path: "/api/ws/chat"}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	c, resp, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		atomic.AddInt64(&metrics.ConnectionsFailed, 1)
		atomic.AddInt64(&metrics.Errors, 1)
		if resp != nil {
			log.Printf("client %d: dial failed with status %d", id, resp.StatusCode)
		}
		return
	}
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	defer func() { _ = c.Close() }()

	atomic.AddInt64(&metrics.ConnectionsSuccess, 1)

	if err := c.WriteJSON(chatFrame{Type: "join", ContractID: contractID}); err != nil {
		atomic.AddInt64(&metrics.Errors, 1)
		return
	}

	go func() {
		for {
			_, data, err := c.ReadMessage()
			if err != nil {
				return
			}
			atomic.AddInt64(&metrics.MessagesReceived, 1)
			if verbose {
				log.Printf("client %d <- %s", id, data)
			}
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			_ = c.WriteJSON(chatFrame{Type: "leave", ContractID: contractID})
			_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
			frame := chatFrame{
				Type:       "message",
				ContractID: contractID,
				Content:    fmt.Sprintf("probe message from client %d at %s", id, time.Now().Format(time.TimeOnly)),
			}
			if err := c.WriteJSON(frame); err != nil {
				atomic.AddInt64(&metrics.Errors, 1)
				return
			}
			atomic.AddInt64(&metrics.MessagesSent, 1)
		}
	}
}

func printMetrics() {
	log.Println("Probe results")
	log.Printf("Connections attempted: %d", atomic.LoadInt64(&metrics.ConnectionsAttempted))
	log.Printf("Connections succeeded: %d", atomic.LoadInt64(&metrics.ConnectionsSuccess))
	log.Printf("Connections failed: %d", atomic.LoadInt64(&metrics.ConnectionsFailed))
	log.Printf("Messages sent: %d", atomic.LoadInt64(&metrics.MessagesSent))
	log.Printf("Messages received: %d", atomic.LoadInt64(&metrics.MessagesReceived))
	log.Printf("Errors: %d", atomic.LoadInt64(&metrics.Errors))
}
