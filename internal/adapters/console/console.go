// Package console is the local presentation surface: a gin-served page
// plus a websocket that pushes session snapshots and accepts operation
// commands. It only reads session state and invokes operations; the
// negotiation blobs themselves travel by human copy/paste.
package console

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/elchatico/dualview/internal/app"
	"github.com/elchatico/dualview/internal/config"
	"github.com/elchatico/dualview/internal/core"
)

// Controller fans session state out to connected console pages and
// dispatches their commands.
type Controller struct {
	Mgr  *app.Manager
	Clip core.Clipboard

	mu    sync.Mutex
	conns map[*wsConn]struct{}
}

func NewController(mgr *app.Manager, clip core.Clipboard) *Controller {
	ctl := &Controller{
		Mgr:   mgr,
		Clip:  clip,
		conns: make(map[*wsConn]struct{}),
	}
	mgr.SetOnChange(ctl.broadcastState)
	return ctl
}

var upgrader = websocket.Upgrader{
	// The server binds to loopback; the page is always same-host.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SetupRouter builds the gin engine for the local console.
func SetupRouter(ctx context.Context, cfg *config.Config, ctl *Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	api := r.Group("/api")
	api.GET("/ws", func(c *gin.Context) {
		ctl.HandleWS(ctx, c)
	})

	log.Info().Str("module", "console").Str("static", cfg.StaticPath).Msg("router setup")
	return r
}

// HandleWS upgrades one console page connection and starts its pumps.
func (ctl *Controller) HandleWS(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "console").Msg("ws upgrade")
		return
	}

	conn := &wsConn{
		id:   uuid.NewString(),
		conn: ws,
		send: make(chan []byte, 32),
	}
	ctl.register(conn)
	log.Info().Str("module", "console").Str("conn", conn.id).Msg("console connected")

	// Late joiners get the current state immediately.
	ctl.pushState(conn)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, conn)
}

type stateFrame struct {
	Type  string       `json:"type"`
	State app.Snapshot `json:"state"`
}

func (ctl *Controller) pushState(c *wsConn) {
	ctl.sendJSON(c, stateFrame{Type: "state", State: ctl.Mgr.Session().Snapshot()})
}

// broadcastState pushes a fresh snapshot to every console page. Wired as
// the manager's change notification.
func (ctl *Controller) broadcastState() {
	snap := ctl.Mgr.Session().Snapshot()
	ctl.mu.Lock()
	conns := make([]*wsConn, 0, len(ctl.conns))
	for c := range ctl.conns {
		conns = append(conns, c)
	}
	ctl.mu.Unlock()

	for _, c := range conns {
		ctl.sendJSON(c, stateFrame{Type: "state", State: snap})
	}
}

func (ctl *Controller) register(c *wsConn) {
	ctl.mu.Lock()
	ctl.conns[c] = struct{}{}
	ctl.mu.Unlock()
}

func (ctl *Controller) unregister(c *wsConn) {
	ctl.mu.Lock()
	delete(ctl.conns, c)
	ctl.mu.Unlock()
}
