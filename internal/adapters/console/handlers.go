package console

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// command is the envelope the console page sends over the websocket.
type command struct {
	Type string `json:"type"`
	Blob string `json:"blob,omitempty"`
	Text string `json:"text,omitempty"`
}

func (ctl *Controller) handleCommand(ctx context.Context, c *wsConn, data []byte) {
	var cmd command
	if err := json.Unmarshal(data, &cmd); err != nil {
		log.Error().Err(err).Str("module", "console").Msg("bad command payload")
		return
	}

	sess := ctl.Mgr.Session()
	switch cmd.Type {
	case "offer":
		// Negotiation suspends on gathering; never block the read loop.
		go func() {
			if _, err := sess.CreateOffer(context.Background()); err != nil {
				log.Warn().Err(err).Str("module", "console").Msg("create offer")
			}
		}()
	case "answer":
		blob := cmd.Blob
		go func() {
			if _, err := sess.CreateAnswer(context.Background(), blob); err != nil {
				log.Warn().Err(err).Str("module", "console").Msg("create answer")
			}
		}()
	case "accept":
		if err := sess.AcceptAnswer(cmd.Blob); err != nil {
			log.Warn().Err(err).Str("module", "console").Msg("accept answer")
		}
	case "reset":
		ctl.Mgr.Reset()
	case "chat":
		sess.SendChat(cmd.Text)
	case "camera_start":
		go func() {
			if err := sess.Media().StartCamera(context.Background()); err != nil {
				log.Warn().Err(err).Str("module", "console").Msg("start camera")
			}
		}()
	case "camera_stop":
		sess.Media().StopCamera()
	case "mic_toggle":
		sess.Media().ToggleMic()
		ctl.broadcastState()
	case "video_toggle":
		sess.Media().ToggleVideo()
		ctl.broadcastState()
	case "screen_start":
		go func() {
			if err := sess.Media().StartScreenShare(context.Background()); err != nil {
				log.Warn().Err(err).Str("module", "console").Msg("start screen share")
			}
		}()
	case "screen_stop":
		sess.Media().StopScreenShare()
	case "copy":
		if blob := sess.OutboundPayload(); blob != "" {
			_ = ctl.Clip.Write(blob)
		}
	case "candidates_export":
		blob, err := sess.ExportCandidates()
		if err != nil {
			log.Error().Err(err).Str("module", "console").Msg("export candidates")
			return
		}
		ctl.sendJSON(c, map[string]string{"type": "candidates", "blob": blob})
	case "candidates_ingest":
		if err := sess.IngestCandidates(cmd.Blob); err != nil {
			log.Warn().Err(err).Str("module", "console").Msg("ingest candidates")
		}
	default:
		log.Warn().Str("module", "console").Str("type", cmd.Type).Msg("unknown command")
	}
}
