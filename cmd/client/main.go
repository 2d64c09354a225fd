// Command client is an interactive websocket client for manual testing:
// it joins a session, sends stdin lines as messages, and renders incoming
// events in color.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerURL string `env:"CHAT_SERVER_URL,default=ws://localhost:8080/ws"`
	Token     string `env:"CHAT_TOKEN,required=true"`
	SessionID string `env:"CHAT_SESSION_ID,required=true"`
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	_ = godotenv.Load()

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+config.Token)
	socket, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, header)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to %s: %w", config.ServerURL, err)
	}
	defer socket.Close()

	if err = writeFrame(socket, "join-session", config.SessionID); err != nil {
		return exitRuntime, err
	}

	color.Green.Printf(">>> Connected to %s, session %s (Ctrl+C to quit)\n",
		config.ServerURL, config.SessionID)

	go receiveLoop(socket)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := scanner.Text()
		if text == "" {
			continue
		}
		payload := map[string]string{"sessionId": config.SessionID, "text": text}
		if err = writeFrame(socket, "send-message", payload); err != nil {
			return exitRuntime, err
		}
	}

	<-ctx.Done()
	_ = writeFrame(socket, "leave-session", config.SessionID)
	return exitOK, nil
}

func writeFrame(socket *websocket.Conn, eventName string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return socket.WriteJSON(frame{Event: eventName, Data: raw})
}

// receiveLoop renders server events until the connection closes.
func receiveLoop(socket *websocket.Conn) {
	for {
		var f frame
		if err := socket.ReadJSON(&f); err != nil {
			color.Red.Println("connection closed:", err)
			return
		}
		render(f)
	}
}

func render(f frame) {
	switch f.Event {
	case "message-created":
		var payload struct {
			Message struct {
				AuthorName string    `json:"authorName"`
				Text       string    `json:"text"`
				CreatedAt  time.Time `json:"createdAt"`
			} `json:"message"`
		}
		if err := json.Unmarshal(f.Data, &payload); err != nil {
			return
		}
		color.Cyan.Printf("[%s] %s: %s\n",
			payload.Message.CreatedAt.Format(time.TimeOnly),
			payload.Message.AuthorName,
			payload.Message.Text)
	case "peer-typing":
		color.Gray.Println("peer is typing...")
	case "peer-stopped-typing":
		// Quiet; the indicator clears on its own.
	case "error":
		var payload struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(f.Data, &payload)
		color.Red.Println("error:", payload.Message)
	default:
		color.Yellow.Printf("%s %s\n", f.Event, string(f.Data))
	}
}
