// Package feed ingests live game data over a websocket connection and
// batches it into the storage engine's write path.
package feed

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"gridiron-datastore/config"
	models "gridiron-datastore/database/models_pkg"
	"gridiron-datastore/database/types"
)

const (
	writeWait      = 10 * time.Second
	pingInterval   = 30 * time.Second
	reconnectDelay = 5 * time.Second
	insertTimeout  = 15 * time.Second
)

// Sink receives the batched writes. Satisfied by the engine.
type Sink interface {
	InsertData(ctx context.Context, req types.InsertRequest) (*types.InsertResult, error)
}

// message is one frame from the feed. The payload shape depends on Type.
type message struct {
	Type       string          `json:"type"` // "game_state" or "player_stat"
	Data       json.RawMessage `json:"data"`
	Source     string          `json:"source"`
	Confidence float64         `json:"confidence"`
}

// Client maintains the feed connection, batches incoming points per entity
// type, and flushes them to the sink on size or time.
type Client struct {
	cfg  config.FeedConfig
	sink Sink

	conn    *websocket.Conn
	writeMu sync.Mutex // serializes writes including pings

	batchMu sync.Mutex
	batches map[types.EntityType][]types.Point

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewClient creates a feed client that writes into sink.
func NewClient(cfg config.FeedConfig, sink Sink) *Client {
	return &Client{
		cfg:     cfg,
		sink:    sink,
		batches: make(map[types.EntityType][]types.Point),
		done:    make(chan struct{}),
	}
}

// Start connects and begins ingesting. The read loop reconnects with a fixed
// delay until Stop is called.
func (c *Client) Start() {
	c.wg.Add(2)
	go c.runLoop()
	go c.flushLoop()
	log.Printf("✅ Feed ingester started (url=%s)", c.cfg.URL)
}

// Stop closes the connection, flushes any buffered points, and waits for the
// loops to exit.
func (c *Client) Stop() {
	c.closeOnce.Do(func() { close(c.done) })

	c.writeMu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.writeMu.Unlock()

	c.wg.Wait()
	c.flushAll()
	log.Println("📡 Feed ingester stopped")
}

func (c *Client) runLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.done:
			return
		default:
		}

		if err := c.connect(); err != nil {
			log.Printf("❌ Feed connection failed: %v (retrying in %s)", err, reconnectDelay)
			select {
			case <-time.After(reconnectDelay):
				continue
			case <-c.done:
				return
			}
		}

		c.readPump()
	}
}

func (c *Client) connect() error {
	header := http.Header{}
	if c.cfg.APIKey != "" {
		header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	conn, _, err := websocket.DefaultDialer.Dial(c.cfg.URL, header)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	c.conn = conn
	c.writeMu.Unlock()

	log.Println("✅ Feed connected")
	return nil
}

// readPump consumes frames until the connection drops. A ping goroutine
// keeps the connection alive; all writes go through writeMu.
func (c *Client) readPump() {
	conn := c.conn
	pingDone := make(chan struct{})
	defer close(pingDone)

	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.writeMu.Lock()
				err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
				c.writeMu.Unlock()
				if err != nil {
					return
				}
			case <-pingDone:
				return
			case <-c.done:
				return
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				log.Printf("❌ Feed read failed: %v", err)
			}
			return
		}
		c.handleMessage(raw)
	}
}

func (c *Client) handleMessage(raw []byte) {
	var msg message
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Printf("ℹ️ Feed dropped unparseable frame: %v", err)
		return
	}

	var point types.Point
	switch msg.Type {
	case "game_state":
		var gs models.GameState
		if err := json.Unmarshal(msg.Data, &gs); err != nil {
			log.Printf("ℹ️ Feed dropped bad game_state frame: %v", err)
			return
		}
		if gs.DataSource == "" {
			gs.DataSource = msg.Source
		}
		if gs.Confidence == 0 {
			gs.Confidence = msg.Confidence
		}
		point = gs
	case "player_stat":
		var ps models.PlayerStat
		if err := json.Unmarshal(msg.Data, &ps); err != nil {
			log.Printf("ℹ️ Feed dropped bad player_stat frame: %v", err)
			return
		}
		if ps.DataSource == "" {
			ps.DataSource = msg.Source
		}
		if ps.Confidence == 0 {
			ps.Confidence = msg.Confidence
		}
		point = ps
	default:
		// Unknown frame types are skipped, not fatal; the feed adds types
		// faster than consumers upgrade.
		return
	}

	c.batchMu.Lock()
	entity := point.Entity()
	c.batches[entity] = append(c.batches[entity], point)
	full := len(c.batches[entity]) >= c.cfg.BatchSize
	c.batchMu.Unlock()

	if full {
		c.flush(entity)
	}
}

func (c *Client) flushLoop() {
	defer c.wg.Done()

	interval := time.Duration(c.cfg.FlushSeconds) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.flushAll()
		case <-c.done:
			return
		}
	}
}

func (c *Client) flushAll() {
	for _, entity := range types.Entities() {
		c.flush(entity)
	}
}

func (c *Client) flush(entity types.EntityType) {
	c.batchMu.Lock()
	points := c.batches[entity]
	if len(points) == 0 {
		c.batchMu.Unlock()
		return
	}
	c.batches[entity] = nil
	c.batchMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
	defer cancel()

	result, err := c.sink.InsertData(ctx, types.InsertRequest{
		Entity:      entity,
		Points:      points,
		Source:      "live_feed",
		Confidence:  0.9,
		Deduplicate: true,
	})
	if err != nil {
		log.Printf("❌ Feed flush failed for %s (%d points): %v", entity, len(points), err)
		return
	}
	if result.Errors > 0 || result.Deduplicated > 0 {
		log.Printf("ℹ️ Feed flushed %s: inserted=%d deduplicated=%d errors=%d",
			entity, result.Inserted, result.Deduplicated, result.Errors)
	}
}
