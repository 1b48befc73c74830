package http

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/cafelog/internal/core/domain"
	"github.com/samirrijal/cafelog/internal/core/usecases"
	"github.com/samirrijal/cafelog/internal/fog"
	"github.com/samirrijal/cafelog/internal/pkg/metrics"
)

// fogMessage is sent from client to steer its fog session.
//
//	{"type":"viewport","lat":25.03,"lon":121.56,"zoom":14,"width":800,"height":600}
//	{"type":"options","opacity":0.6,"radius":300,"grain":true}
//	{"type":"refresh"}
type fogMessage struct {
	Type    string   `json:"type"`
	Lat     float64  `json:"lat"`
	Lon     float64  `json:"lon"`
	Zoom    float64  `json:"zoom"`
	Width   int      `json:"width"`
	Height  int      `json:"height"`
	Opacity *float64 `json:"opacity"`
	Radius  float64  `json:"radius"`
	Grain   *bool    `json:"grain"`
}

// fogSession owns one client's map state and fog overlay. Every presented
// frame is sent as a binary PNG message.
type fogSession struct {
	svc  *usecases.FogService
	send func(messageType int, data []byte) error
	log  *slog.Logger

	ctrl    *fog.Controller
	overlay *fog.Overlay
}

func newFogSession(ctx context.Context, svc *usecases.FogService, send func(int, []byte) error, log *slog.Logger) (*fogSession, error) {
	if log == nil {
		log = slog.Default()
	}
	s := &fogSession{svc: svc, send: send, log: log}
	surface := &fog.MemorySurface{OnPresent: s.present}
	s.ctrl = fog.NewController(surface)

	// The controller starts with an empty viewport, so nothing is sent until
	// the client reports its size.
	o, err := fog.Attach(s.ctrl, svc.LivePoints(ctx), svc.Defaults(), log)
	if err != nil {
		return nil, err
	}
	s.overlay = o
	return s, nil
}

func (s *fogSession) present(l *fog.Layer) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, l.Image); err != nil {
		s.log.Error("fog: encode frame", "error", err)
		return
	}
	if err := s.send(websocket.BinaryMessage, buf.Bytes()); err != nil {
		s.log.Debug("fog: send frame", "error", err)
	}
}

// handle applies one client message. Problems are reported back to the client
// and never end the session.
func (s *fogSession) handle(raw []byte) {
	var m fogMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		s.reply("error", "invalid JSON")
		return
	}

	switch m.Type {
	case "viewport":
		err := s.svc.Validate(usecases.FogRequest{
			Center: domain.GeoPoint{Lat: m.Lat, Lon: m.Lon},
			Zoom:   m.Zoom,
			Width:  m.Width,
			Height: m.Height,
		})
		if err != nil {
			s.reply("error", err.Error())
			return
		}
		if err := s.ctrl.SetViewport(domain.GeoPoint{Lat: m.Lat, Lon: m.Lon}, m.Zoom, m.Width, m.Height); err != nil {
			s.reply("error", err.Error())
		}

	case "options":
		if m.Opacity != nil && (math.IsNaN(*m.Opacity) || *m.Opacity < 0 || *m.Opacity > 1) {
			s.reply("error", "opacity must be within [0,1]")
			return
		}
		if math.IsNaN(m.Radius) || math.IsInf(m.Radius, 0) || m.Radius < 0 {
			s.reply("error", "radius must be a non-negative number")
			return
		}
		s.overlay.UpdateOptions(s.svc.Options(m.Opacity, m.Radius, m.Grain))

	case "refresh":
		s.overlay.Refresh()

	default:
		s.reply("error", "unknown message type: "+m.Type)
	}
}

func (s *fogSession) reply(typ, msg string) {
	data, _ := json.Marshal(map[string]string{"type": typ, "message": msg})
	_ = s.send(websocket.TextMessage, data)
}

func (s *fogSession) close() {
	s.overlay.Detach()
}

// FogSocketHandler returns a handler that upgrades to WebSocket and streams
// the fog for the client's viewport. Café changes redraw every open session.
func FogSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		log := slog.With("remote_addr", c.RemoteAddr().String())
		log.Info("fog session opened")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var mu sync.Mutex
		send := func(messageType int, data []byte) error {
			mu.Lock()
			defer mu.Unlock()
			_ = c.SetWriteDeadline(time.Now().Add(10 * time.Second))
			return c.WriteMessage(messageType, data)
		}

		sess, err := newFogSession(ctx, deps.Fog, send, log)
		if err != nil {
			log.Error("fog session attach failed", "error", err)
			return
		}
		defer sess.close()

		if deps.Hub != nil {
			unregister := deps.Hub.Register(sess.overlay.Refresh)
			defer unregister()
		}

		metrics.ActiveFogSessions.Inc()
		defer metrics.ActiveFogSessions.Dec()

		// Keep-alive ping
		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := send(websocket.PingMessage, nil); err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			mt, msg, err := c.ReadMessage()
			if err != nil {
				break
			}
			if mt != websocket.TextMessage {
				continue
			}
			sess.handle(msg)
		}

		log.Info("fog session closed")
	}
}
