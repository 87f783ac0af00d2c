package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pentabook/bookshop/internal/domain"
)

// StockHandler consumes order paid events and releases the sold stock from
// the catalog. Stock is decremented after payment, not at checkout, so an
// abandoned order never holds inventory.
type StockHandler struct {
	catalogServiceURL string
	httpClient        *http.Client
	logger            *slog.Logger
}

func NewStockHandler(catalogServiceURL string, client *http.Client, logger *slog.Logger) *StockHandler {
	return &StockHandler{
		catalogServiceURL: catalogServiceURL,
		httpClient:        client,
		logger:            logger,
	}
}

func (h *StockHandler) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderPaidEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order paid event: %w", err)
	}

	h.logger.Info("processing order paid event", "order_id", event.OrderID, "buyer_id", event.BuyerID)

	for _, item := range event.Items {
		if err := h.decrementStock(ctx, event.OrderID, item); err != nil {
			return err
		}
	}

	h.logger.Info("stock released for order", "order_id", event.OrderID, "items", len(event.Items))
	return nil
}

func (h *StockHandler) decrementStock(ctx context.Context, orderID string, item domain.OrderItemEvent) error {
	body := map[string]int{"quantity": item.Quantity}
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal decrement request: %w", err)
	}

	url := fmt.Sprintf("%s/books/%d/stock/decrement", h.catalogServiceURL, item.BookID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create decrement request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("decrement stock for book %d: %w", item.BookID, err)
	}
	_ = resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent:
		return nil
	case http.StatusConflict:
		// The order was already paid for; an oversold book is a catalog
		// problem to reconcile, not a reason to replay the event forever.
		h.logger.Warn("book oversold, skipping decrement",
			"order_id", orderID, "book_id", item.BookID, "quantity", item.Quantity)
		return nil
	default:
		return fmt.Errorf("catalog service returned status %d for book %d", resp.StatusCode, item.BookID)
	}
}
