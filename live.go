package pitwall

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"justapengu.in/pitwall/internal/strategy"
)

// liveUpdate is what the pit wall sends on every lap: the race state plus
// which saved model to evaluate against.
type liveUpdate struct {
	ModelID       string                 `json:"model_id"`
	Situation     strategy.RaceSituation `json:"situation"`
	Constraints   planConstraints        `json:"constraints"`
	CompoundOrder []strategy.Compound    `json:"compound_order"`
	Horizon       int                    `json:"horizon"`
}

type liveMessage struct {
	CurrentLap     int                      `json:"current_lap"`
	Recommendation *strategy.Recommendation `json:"recommendation"`

	// NoRecommendation separates "stay out" from a failed evaluation
	NoRecommendation bool   `json:"no_recommendation"`
	Error            string `json:"error,omitempty"`
}

// LiveHub pushes pit recommendations to every connected client whenever
// any client reports a race state update. The recommender itself is
// stateless; the hub only owns the connection set.
type LiveHub struct {
	manager  *StrategyManager
	config   PlannerConfig
	logger   *logrus.Logger
	upgrader websocket.Upgrader

	clients map[*websocket.Conn]bool
	mutex   sync.Mutex
}

func NewLiveHub(manager *StrategyManager, config PlannerConfig, logger *logrus.Logger) *LiveHub {
	return &LiveHub{
		manager: manager,
		config:  config,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*websocket.Conn]bool),
	}
}

func (h *LiveHub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)

	if err != nil {
		h.logger.WithError(err).Errorf("Could not upgrade live connection")
		return
	}

	h.register(conn)

	defer h.unregister(conn)

	for {
		var update liveUpdate

		if err := conn.ReadJSON(&update); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.WithError(err).Debugf("Live connection closed")
			}

			return
		}

		h.broadcast(h.evaluate(update))
	}
}

func (h *LiveHub) evaluate(update liveUpdate) liveMessage {
	message := liveMessage{
		CurrentLap: update.Situation.CurrentLap,
	}

	constraints := h.config.constraints(update.Constraints)

	recommendation, err := h.manager.LiveRecommendation(update.ModelID, update.Situation, constraints, update.CompoundOrder, update.Horizon)

	if err != nil {
		h.logger.WithError(err).Errorf("Could not evaluate live recommendation")
		message.Error = err.Error()

		return message
	}

	if recommendation == nil {
		message.NoRecommendation = true
		return message
	}

	message.Recommendation = recommendation

	return message
}

func (h *LiveHub) register(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.clients[conn] = true

	h.logger.Debugf("Live client connected (%d total)", len(h.clients))
}

func (h *LiveHub) unregister(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	delete(h.clients, conn)
	_ = conn.Close()

	h.logger.Debugf("Live client disconnected (%d total)", len(h.clients))
}

func (h *LiveHub) broadcast(message liveMessage) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for conn := range h.clients {
		if err := conn.WriteJSON(message); err != nil {
			h.logger.WithError(err).Debugf("Could not write to live client, dropping")

			delete(h.clients, conn)
			_ = conn.Close()
		}
	}
}
