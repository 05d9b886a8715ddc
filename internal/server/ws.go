package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"ghostbuild/internal/batch"
)

const wsWriteTimeout = 10 * time.Second

// wsMessage is one frame on the batch stream
type wsMessage struct {
	Type    string       `json:"type"` // "event" or "summary"
	Event   *batch.Event `json:"event,omitempty"`
	Done    int          `json:"done,omitempty"`
	Failed  int          `json:"failed,omitempty"`
	Elapsed string       `json:"elapsed,omitempty"`
}

func (s *Server) handleBatchWS(w http.ResponseWriter, r *http.Request) {
	var champions []string
	for _, c := range strings.Split(r.URL.Query().Get("champions"), ",") {
		if c = strings.TrimSpace(c); c != "" {
			champions = append(champions, c)
		}
	}
	if len(champions) == 0 {
		http.Error(w, "champions query param required", http.StatusBadRequest)
		return
	}
	base := s.key("", r)
	keys := batch.Keys(champions, base.Mode, base.Tier, base.Window)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.WSConnections.Inc()
		defer s.cfg.Metrics.WSConnections.Dec()
	}

	// the reader handles ping and close frames; any read error means the
	// peer is gone and the remaining jobs are cancelled
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(msg wsMessage) error {
		payload, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return conn.WriteMessage(websocket.TextMessage, payload)
	}

	runner := &batch.Runner{
		Source:      s.cfg.Source,
		Options:     s.options(r),
		Concurrency: s.cfg.Concurrency,
		Logger:      s.log,
	}
	if s.cfg.Metrics != nil {
		runner.Recorder = s.cfg.Metrics
	}

	sum := runner.Run(ctx, keys, func(ev batch.Event) {
		if err := write(wsMessage{Type: "event", Event: &ev}); err != nil {
			s.log.Debug().Err(err).Msg("websocket write failed")
		}
	})

	if ctx.Err() != nil {
		s.log.Info().Int("done", sum.Done).Int("failed", sum.Failed).Msg("websocket client left, batch cancelled")
		return
	}
	if err := write(wsMessage{
		Type:    "summary",
		Done:    sum.Done,
		Failed:  sum.Failed,
		Elapsed: sum.Elapsed.String(),
	}); err != nil {
		return
	}
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "batch complete"),
		time.Now().Add(time.Second))
}
