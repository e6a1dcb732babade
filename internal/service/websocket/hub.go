package websocket

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/jpeg"
	"sync"
	"time"

	"helmetwatch/internal/dto"
	"helmetwatch/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds a single frame write to a viewer.
	writeWait = 5 * time.Second
	// broadcastBuffer is how many frames may queue before new ones are dropped.
	broadcastBuffer = 4
	// StreamJPEGQuality is used when encoding frames for viewers.
	StreamJPEGQuality = 75
)

// FrameMessage is the JSON sent to viewers for every monitoring result.
type FrameMessage struct {
	Camera         string           `json:"camera"`
	Image          string           `json:"image"`
	Predictions    []dto.Prediction `json:"predictions"`
	Alert          bool             `json:"alert"`
	ScreenshotPath string           `json:"screenshot,omitempty"`
	Timestamp      time.Time        `json:"timestamp"`
}

// HubService fans annotated frames out to connected viewers.
type HubService struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logger.Logger
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves register, unregister and broadcast requests until ctx is done.
func (h *HubService) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Viewer connected. Total: %d", count)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Viewer disconnected. Total: %d", count)

		case message := <-h.broadcast:
			h.send(message)
		}
	}
}

func (h *HubService) send(message []byte) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
			h.logger.Error("Error sending frame to viewer: %v", err)
			delete(h.clients, client)
			client.Close()
		}
	}
}

func (h *HubService) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
}

func (h *HubService) Register(client *websocket.Conn) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

func (h *HubService) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues message for every viewer. It drops the message when the queue is full.
func (h *HubService) Broadcast(message []byte) bool {
	select {
	case h.broadcast <- message:
		return true
	default:
		return false
	}
}

// Forward encodes every result from results and broadcasts it until the channel closes or ctx is done.
func (h *HubService) Forward(ctx context.Context, results <-chan *dto.FrameResult) {
	for {
		select {
		case <-ctx.Done():
			return
		case result, ok := <-results:
			if !ok {
				return
			}
			if h.GetClientCount() == 0 {
				continue
			}
			message, err := EncodeResult(result)
			if err != nil {
				h.logger.Error("Error encoding frame for camera %s: %v", result.Camera, err)
				continue
			}
			h.Broadcast(message)
		}
	}
}

// EncodeResult renders result as a FrameMessage with a base64 JPEG image.
func EncodeResult(result *dto.FrameResult) ([]byte, error) {
	msg := FrameMessage{
		Camera:         result.Camera,
		Predictions:    result.Predictions,
		Alert:          result.Alert,
		ScreenshotPath: result.ScreenshotPath,
		Timestamp:      result.Timestamp,
	}
	if msg.Predictions == nil {
		msg.Predictions = []dto.Prediction{}
	}

	if result.Frame != nil {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, result.Frame, &jpeg.Options{Quality: StreamJPEGQuality}); err != nil {
			return nil, fmt.Errorf("failed to encode frame: %w", err)
		}
		msg.Image = base64.StdEncoding.EncodeToString(buf.Bytes())
	}

	return json.Marshal(msg)
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
