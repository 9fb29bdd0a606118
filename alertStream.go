package main

import (
	"encoding/json"
	"net/http"
	"time"

	"bitbucket.org/mmdatafocus/intellitrace_backend/config"
	"bitbucket.org/mmdatafocus/intellitrace_backend/models"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS policy is enforced by the gin middleware; the upgrade itself
	// accepts any origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// AlertHub fans committed alerts out to websocket subscribers. It satisfies
// workflow.Broadcaster so the scan path never touches connection state.
type AlertHub struct {
	register   chan *alertClient
	unregister chan *alertClient
	broadcast  chan []byte
	done       chan struct{}
}

type alertClient struct {
	conn *websocket.Conn
	send chan []byte
}

func NewAlertHub() *AlertHub {
	return &AlertHub{
		register:   make(chan *alertClient),
		unregister: make(chan *alertClient),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
	}
}

func (h *AlertHub) Run() {
	clients := map[*alertClient]bool{}
	for {
		select {
		case client := <-h.register:
			clients[client] = true
		case client := <-h.unregister:
			if clients[client] {
				delete(clients, client)
				close(client.send)
			}
		case message := <-h.broadcast:
			for client := range clients {
				select {
				case client.send <- message:
				default:
					// slow consumer, drop it
					delete(clients, client)
					close(client.send)
				}
			}
		case <-h.done:
			for client := range clients {
				close(client.send)
			}
			return
		}
	}
}

func (h *AlertHub) Close() {
	close(h.done)
}

func (h *AlertHub) BroadcastAlert(alert *models.Alert) {
	payload, err := json.Marshal(gin.H{"type": "alert", "alert": alert})
	if err != nil {
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		// hub backlog full; alert is still persisted and queryable
	}
}

func alertStreamHandler(hub *AlertHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger := config.GetLogger()
			config.LogError(logger, "alertStream", "alertStreamHandler", "websocket upgrade failed", nil, err)
			return
		}
		client := &alertClient{conn: conn, send: make(chan []byte, 16)}
		hub.register <- client

		go client.writePump()
		go client.readPump(hub)
	}
}

// readPump discards inbound frames; it exists to service pong replies and
// to detect the peer going away.
func (client *alertClient) readPump(hub *AlertHub) {
	defer func() {
		hub.unregister <- client
		client.conn.Close()
	}()
	client.conn.SetReadLimit(512)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (client *alertClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()
	for {
		select {
		case message, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
