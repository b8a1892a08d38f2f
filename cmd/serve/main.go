// Command serve streams live episode telemetry over a websocket. Connect a
// client to /ws and every tick arrives as a JSON step frame; food layouts
// and episode summaries ride the same stream.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/forager/config"
	"github.com/pthm-cable/forager/telemetry"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// Client wraps a websocket connection with a write lock so the broadcaster
// and the per-connection handler never interleave frames.
type Client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *Client) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type wireMessage struct {
	Type    string                `json:"type"`
	Seed    int64                 `json:"seed,omitempty"`
	Status  string                `json:"status,omitempty"`
	Step    *telemetry.StepRecord `json:"step,omitempty"`
	Food    []point               `json:"food,omitempty"`
	Summary *telemetry.Summary    `json:"summary,omitempty"`
	World   *worldInfo            `json:"world,omitempty"`
}

// worldInfo is sent once per connection so a front end can scale its view.
type worldInfo struct {
	HalfExtent    float64 `json:"half_extent"`
	FoodCount     int     `json:"food_count"`
	ConsumeRadius float64 `json:"consume_radius"`
	MaxEnergy     float64 `json:"max_energy"`
}

func main() {
	configPath := flag.String("config", "", "Path to YAML config overriding the embedded defaults")
	addr := flag.String("addr", ":8080", "HTTP listen address")
	rate := flag.Int("rate", 60, "Simulation ticks per second")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	cfg.Episode.ProgressEvery = 0

	if *rate <= 0 {
		log.Fatalf("rate must be positive, got %d", *rate)
	}
	r := &runner{
		cfg:      cfg,
		interval: time.Second / time.Duration(*rate),
		out:      make(chan wireMessage, 256),
		restart:  make(chan struct{}, 1),
	}
	go r.run()

	clients := make(map[*Client]struct{})
	clientsMu := sync.Mutex{}

	go func() {
		for msg := range r.out {
			clientsMu.Lock()
			list := make([]*Client, 0, len(clients))
			for c := range clients {
				list = append(list, c)
			}
			clientsMu.Unlock()

			for _, c := range list {
				if err := c.Send(msg); err != nil {
					log.Printf("client send error: %v", err)
					clientsMu.Lock()
					delete(clients, c)
					clientsMu.Unlock()
					c.conn.Close()
				}
			}
		}
	}()

	http.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			log.Println("upgrade:", err)
			return
		}
		client := &Client{conn: conn}
		clientsMu.Lock()
		clients[client] = struct{}{}
		clientsMu.Unlock()

		_ = client.Send(wireMessage{Type: "world", World: &worldInfo{
			HalfExtent:    cfg.Food.HalfExtent,
			FoodCount:     cfg.Food.Count,
			ConsumeRadius: cfg.Food.ConsumeRadius,
			MaxEnergy:     cfg.Energy.Max,
		}})

		for {
			var msg map[string]any
			if err := conn.ReadJSON(&msg); err != nil {
				break
			}
			typeStr, _ := msg["type"].(string)
			switch typeStr {
			case "restart":
				select {
				case r.restart <- struct{}{}:
				default:
				}
			default:
			}
		}

		clientsMu.Lock()
		delete(clients, client)
		clientsMu.Unlock()
		conn.Close()
	})

	http.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprintln(w, "forager live stream: connect a websocket client to /ws")
	})

	log.Printf("serving on %s at %d ticks/s", *addr, *rate)
	if err := http.ListenAndServe(*addr, nil); err != nil {
		log.Fatalf("http serve error: %v", err)
	}
}
