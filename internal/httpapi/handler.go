package httpapi

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/rickgao/pricestream/internal/analytics"
	"github.com/rickgao/pricestream/internal/connection"
	"github.com/rickgao/pricestream/internal/dispatcher"
	"github.com/rickgao/pricestream/internal/instrument"
	"github.com/rickgao/pricestream/internal/pricetable"
	"github.com/rickgao/pricestream/internal/version"
)

// Feed is the view of the feed client the API needs. *feed.Client satisfies it.
type Feed interface {
	Status() connection.Status
	Prices() map[string]pricetable.Quote
	Quote(symbol string) (pricetable.Quote, bool)
	Subscriptions() []string
	Acknowledged() []string
	Subscribe(symbols ...string)
	Unsubscribe(symbols ...string)
	Stats() dispatcher.Stats
	Analytics() *analytics.Engine
}

// Handler serves the status API.
type Handler struct {
	feed Feed
}

// NewHandler creates a Handler.
func NewHandler(feed Feed) *Handler {
	return &Handler{feed: feed}
}

// PriceView is a quote with display figures.
type PriceView struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name,omitempty"`
	Bid           string    `json:"bid"`
	Ask           string    `json:"ask"`
	Spread        string    `json:"spread,omitempty"`
	Change        string    `json:"change"`
	ChangePercent string    `json:"change_percent"`
	Direction     string    `json:"direction"`
	Glyph         string    `json:"glyph"`
	CSSClass      string    `json:"css_class"`
	ReceivedAt    time.Time `json:"received_at"`
}

// SubscriptionRequest adds symbols.
type SubscriptionRequest struct {
	Symbols []string `json:"symbols" binding:"required,min=1"`
}

// PnLRequest describes a position to value.
type PnLRequest struct {
	Side      string `json:"side" binding:"required"`
	Symbol    string `json:"symbol" binding:"required"`
	OpenPrice string `json:"open_price" binding:"required"`
	Volume    string `json:"volume" binding:"required"`
}

// PnLResponse is the valued position.
type PnLResponse struct {
	Symbol       string `json:"symbol"`
	Side         string `json:"side"`
	CurrentPrice string `json:"current_price"`
	PnL          string `json:"pnl"`
	Formatted    string `json:"formatted"`
	Direction    string `json:"direction"`
}

// Health reports the connection state. Anything but Connected is a 503.
func (h *Handler) Health(c *gin.Context) {
	status := h.feed.Status()

	conn := gin.H{
		"state":        status.State.String(),
		"reconnecting": status.Reconnecting(),
	}
	if status.SessionID != "" {
		conn["session_id"] = status.SessionID
		conn["connected_at"] = status.ConnectedAt
	}
	if status.Attempt > 0 {
		conn["attempt"] = status.Attempt
		conn["next_retry"] = status.NextRetry.String()
	}
	if status.LastError != "" {
		conn["last_error"] = status.LastError
	}

	body := gin.H{
		"status": "healthy",
		"components": gin.H{
			"connection": conn,
			"price_table": gin.H{
				"symbols": len(h.feed.Prices()),
			},
			"subscriptions": gin.H{
				"desired":      len(h.feed.Subscriptions()),
				"acknowledged": len(h.feed.Acknowledged()),
			},
		},
	}

	code := http.StatusOK
	if status.State != connection.StateConnected {
		body["status"] = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, body)
}

// ListPrices returns every quote sorted by symbol.
func (h *Handler) ListPrices(c *gin.Context) {
	prices := h.feed.Prices()

	views := make([]PriceView, 0, len(prices))
	for _, q := range prices {
		views = append(views, h.view(q))
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Symbol < views[j].Symbol })

	c.JSON(http.StatusOK, gin.H{
		"count":  len(views),
		"prices": views,
	})
}

// GetPrice returns the quote for one symbol.
func (h *Handler) GetPrice(c *gin.Context) {
	symbol := instrument.Normalize(c.Param("symbol"))

	q, ok := h.feed.Quote(symbol)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no quote for " + symbol})
		return
	}
	c.JSON(http.StatusOK, h.view(q))
}

// ListSubscriptions returns the desired and acknowledged sets.
func (h *Handler) ListSubscriptions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"desired":      h.feed.Subscriptions(),
		"acknowledged": h.feed.Acknowledged(),
	})
}

// AddSubscriptions subscribes to the requested symbols.
func (h *Handler) AddSubscriptions(c *gin.Context) {
	var req SubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.feed.Subscribe(req.Symbols...)
	c.JSON(http.StatusOK, gin.H{"desired": h.feed.Subscriptions()})
}

// RemoveSubscription unsubscribes from one symbol.
func (h *Handler) RemoveSubscription(c *gin.Context) {
	h.feed.Unsubscribe(c.Param("symbol"))
	c.JSON(http.StatusOK, gin.H{"desired": h.feed.Subscriptions()})
}

// PnL values a position against the latest quote.
func (h *Handler) PnL(c *gin.Context) {
	var req PnLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	side, err := analytics.ParseSide(req.Side)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	open, err := analytics.ParseNumeric(req.OpenPrice)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "open_price: " + err.Error()})
		return
	}
	volume, err := analytics.ParseNumeric(req.Volume)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "volume: " + err.Error()})
		return
	}

	symbol := instrument.Normalize(req.Symbol)
	q, ok := h.feed.Quote(symbol)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no quote for " + symbol})
		return
	}

	engine := h.feed.Analytics()
	pos := analytics.Position{Side: side, Symbol: symbol, OpenPrice: open, Volume: volume}
	pnl, err := engine.PositionPnL(pos, q)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	current := q.Bid
	if side == analytics.Sell {
		current = q.Ask
	}

	c.JSON(http.StatusOK, PnLResponse{
		Symbol:       symbol,
		Side:         string(side),
		CurrentPrice: formatOrRaw(engine, current, symbol),
		PnL:          pnl.StringFixed(2),
		Formatted:    analytics.FormatCurrency(pnl),
		Direction:    analytics.ClassifyChange(pnl).String(),
	})
}

// Stats returns dispatcher counters.
func (h *Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.feed.Stats())
}

// Version returns build information.
func (h *Handler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":    version.Version,
		"commit":     version.Commit,
		"build_time": version.BuildTime,
	})
}

// view renders a quote with the engine's precision and direction figures.
func (h *Handler) view(q pricetable.Quote) PriceView {
	engine := h.feed.Analytics()
	inst, _ := engine.Instruments().Lookup(q.Symbol)

	v := PriceView{
		Symbol:        q.Symbol,
		Name:          inst.Name,
		Bid:           formatOrRaw(engine, q.Bid, q.Symbol),
		Ask:           formatOrRaw(engine, q.Ask, q.Symbol),
		Change:        q.Change,
		ChangePercent: q.ChangePercent,
		ReceivedAt:    q.ReceivedAt,
	}

	if spread, err := q.Spread(); err == nil {
		v.Spread = engine.FormatPrice(spread, q.Symbol)
	}
	if pct, err := analytics.ParseNumeric(q.ChangePercent); err == nil {
		v.ChangePercent = analytics.FormatPercentage(pct)
	}

	dir := analytics.Neutral
	if change, err := analytics.ParseNumeric(q.Change); err == nil {
		dir = analytics.ClassifyChange(change)
	}
	v.Direction = dir.String()
	v.Glyph = dir.Glyph()
	v.CSSClass = dir.CSSClass()

	return v
}

func formatOrRaw(engine *analytics.Engine, value, symbol string) string {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return value
	}
	return engine.FormatPrice(d, symbol)
}
