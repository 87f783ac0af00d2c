// Package gateway is the single public entry point. It fans requests out to
// the order, catalog, accounts and shipment services; the payment gateway is
// deliberately not exposed.
package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
)

type Handler struct {
	ordersProxy   *ServiceProxy
	catalogProxy  *ServiceProxy
	accountsProxy *ServiceProxy
	shipmentProxy *ServiceProxy
	logger        *slog.Logger
}

func NewHandler(ordersProxy, catalogProxy, accountsProxy, shipmentProxy *ServiceProxy, logger *slog.Logger) *Handler {
	return &Handler{
		ordersProxy:   ordersProxy,
		catalogProxy:  catalogProxy,
		accountsProxy: accountsProxy,
		shipmentProxy: shipmentProxy,
		logger:        logger,
	}
}

// HandleOrders covers /checkout, /cart, /orders and /shipments, which all
// live in the order service.
func (h *Handler) HandleOrders(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.ordersProxy, r.URL.Path)
}

func (h *Handler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.catalogProxy, r.URL.Path)
}

func (h *Handler) HandleAccounts(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.accountsProxy, r.URL.Path)
}

// HandleTracking forwards tracking queries straight to the carrier API, so
// buyers can poll a tracking number without going through the order service.
func (h *Handler) HandleTracking(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.shipmentProxy, r.URL.Path)
}

func (h *Handler) proxyRequest(w http.ResponseWriter, r *http.Request, proxy *ServiceProxy, path string) {
	resp, err := proxy.ForwardRequest(r.Context(), r, path)
	if err != nil {
		h.logger.Error("failed to forward request", "error", err, "path", path)
		h.writeError(w, http.StatusBadGateway, "service unavailable")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if contentType := resp.Header.Get("Content-Type"); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	w.WriteHeader(resp.StatusCode)

	h.logger.Info("request proxied", "method", r.Method, "path", path, "status", resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Error("failed to copy response body", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		h.logger.Error("failed to encode error response", "error", err)
	}
}
