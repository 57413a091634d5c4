package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"fleetops-backend/internal/models"
	"fleetops-backend/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// В продакшене здесь должна быть проверка origin
		return true
	},
}

// Hub держит подключенных клиентов по пользователям. Один пользователь
// может сидеть с нескольких устройств.
type Hub struct {
	clients map[primitive.ObjectID]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	mutex sync.RWMutex
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID primitive.ObjectID
	orgID  primitive.ObjectID
	role   models.UserRole
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type WebSocketHandler struct {
	hub        *Hub
	jwtManager *auth.JWTManager
}

func NewWebSocketHandler(jwtManager *auth.JWTManager) *WebSocketHandler {
	hub := &Hub{
		clients:    make(map[primitive.ObjectID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}

	return &WebSocketHandler{
		hub:        hub,
		jwtManager: jwtManager,
	}
}

func (h *WebSocketHandler) StartHub() {
	go h.hub.run()
}

// Hub возвращает хаб для внедрения в сервис уведомлений
func (h *WebSocketHandler) Hub() *Hub {
	return h.hub
}

func (hub *Hub) run() {
	for {
		select {
		case client := <-hub.register:
			hub.mutex.Lock()
			if hub.clients[client.userID] == nil {
				hub.clients[client.userID] = make(map[*Client]bool)
			}
			hub.clients[client.userID][client] = true
			hub.mutex.Unlock()
			logrus.WithField("user_id", client.userID.Hex()).Debug("websocket client registered")

		case client := <-hub.unregister:
			hub.mutex.Lock()
			if clients, ok := hub.clients[client.userID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(hub.clients, client.userID)
					}
				}
			}
			hub.mutex.Unlock()
			logrus.WithField("user_id", client.userID.Hex()).Debug("websocket client unregistered")
		}
	}
}

// PushToUser доставляет payload всем соединениям пользователя.
// Возвращает число клиентов, которым удалось записать в очередь.
func (hub *Hub) PushToUser(orgID, userID primitive.ObjectID, payload interface{}) int {
	data, err := json.Marshal(payload)
	if err != nil {
		logrus.WithError(err).Error("failed to marshal websocket payload")
		return 0
	}

	hub.mutex.RLock()
	defer hub.mutex.RUnlock()

	delivered := 0
	for client := range hub.clients[userID] {
		if client.orgID != orgID {
			continue
		}
		select {
		case client.send <- data:
			delivered++
		default:
		}
	}
	return delivered
}

// PushToRole доставляет payload всем подключенным пользователям роли
func (hub *Hub) PushToRole(orgID primitive.ObjectID, role string, payload interface{}) int {
	data, err := json.Marshal(payload)
	if err != nil {
		logrus.WithError(err).Error("failed to marshal websocket payload")
		return 0
	}

	hub.mutex.RLock()
	defer hub.mutex.RUnlock()

	delivered := 0
	for _, clients := range hub.clients {
		for client := range clients {
			if client.orgID != orgID || string(client.role) != role {
				continue
			}
			select {
			case client.send <- data:
				delivered++
			default:
			}
		}
	}
	return delivered
}

// PushToOrg доставляет payload всем подключенным клиентам организации
func (hub *Hub) PushToOrg(orgID primitive.ObjectID, payload interface{}) int {
	data, err := json.Marshal(payload)
	if err != nil {
		logrus.WithError(err).Error("failed to marshal websocket payload")
		return 0
	}

	hub.mutex.RLock()
	defer hub.mutex.RUnlock()

	delivered := 0
	for _, clients := range hub.clients {
		for client := range clients {
			if client.orgID != orgID {
				continue
			}
			select {
			case client.send <- data:
				delivered++
			default:
			}
		}
	}
	return delivered
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	// Браузерный WebSocket не умеет заголовки, токен идет query-параметром
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Token is required",
		})
		return
	}

	claims, err := h.jwtManager.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid token",
		})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Error("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:    h.hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		userID: claims.UserID,
		orgID:  claims.OrgID,
		role:   claims.Role,
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Клиенты уведомления не шлют, канал только вниз
	for {
		var wsMsg WSMessage
		err := c.conn.ReadJSON(&wsMsg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithError(err).Debug("websocket read error")
			}
			break
		}

		if wsMsg.Type == "ping" {
			c.send <- []byte(`{"type": "pong"}`)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
