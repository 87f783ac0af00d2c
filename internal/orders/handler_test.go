package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pentabook/bookshop/internal/domain"
	"github.com/pentabook/bookshop/internal/payments"
	"github.com/pentabook/bookshop/internal/shipping"
)

type fakeOrderStore struct {
	checkoutFn         func(ctx context.Context, buyerID int64, address string) (*domain.Order, error)
	getByIDFn          func(ctx context.Context, id string) (*domain.Order, error)
	listByBuyerFn      func(ctx context.Context, buyerID int64) ([]domain.Order, error)
	getPaymentMethodFn func(ctx context.Context, methodID int64) (*domain.PaymentMethod, error)
	recordPaymentFn    func(ctx context.Context, p *domain.Payment) error

	recordedPayments []*domain.Payment
}

func (f *fakeOrderStore) Checkout(ctx context.Context, buyerID int64, address string) (*domain.Order, error) {
	return f.checkoutFn(ctx, buyerID, address)
}

func (f *fakeOrderStore) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return f.getByIDFn(ctx, id)
}

func (f *fakeOrderStore) ListByBuyer(ctx context.Context, buyerID int64) ([]domain.Order, error) {
	return f.listByBuyerFn(ctx, buyerID)
}

func (f *fakeOrderStore) GetPaymentMethod(ctx context.Context, methodID int64) (*domain.PaymentMethod, error) {
	return f.getPaymentMethodFn(ctx, methodID)
}

func (f *fakeOrderStore) RecordPayment(ctx context.Context, p *domain.Payment) error {
	f.recordedPayments = append(f.recordedPayments, p)
	if f.recordPaymentFn != nil {
		return f.recordPaymentFn(ctx, p)
	}
	return nil
}

type fakeShipmentStore struct {
	createFn  func(ctx context.Context, s *domain.Shipment) error
	resolveFn func(ctx context.Context, trackingNo string) (*domain.Shipment, error)
	listFn    func(ctx context.Context, buyerID int64) ([]domain.Shipment, error)

	created []*domain.Shipment
}

func (f *fakeShipmentStore) Create(ctx context.Context, s *domain.Shipment) error {
	f.created = append(f.created, s)
	if f.createFn != nil {
		return f.createFn(ctx, s)
	}
	return nil
}

func (f *fakeShipmentStore) Resolve(ctx context.Context, trackingNo string) (*domain.Shipment, error) {
	return f.resolveFn(ctx, trackingNo)
}

func (f *fakeShipmentStore) ListByBuyer(ctx context.Context, buyerID int64) ([]domain.Shipment, error) {
	return f.listFn(ctx, buyerID)
}

type fakeGateway struct {
	processFn func(ctx context.Context, req payments.Request) (*payments.Result, error)
	calls     []payments.Request
}

func (f *fakeGateway) Process(ctx context.Context, req payments.Request) (*payments.Result, error) {
	f.calls = append(f.calls, req)
	return f.processFn(ctx, req)
}

type fakeShipper struct {
	initiateFn func(ctx context.Context, orderID, service string) (string, error)
	calls      int
}

func (f *fakeShipper) Initiate(ctx context.Context, orderID, service string) (string, error) {
	f.calls++
	return f.initiateFn(ctx, orderID, service)
}

type fakePublisher struct {
	published []any
}

func (f *fakePublisher) Publish(ctx context.Context, key string, event any) error {
	f.published = append(f.published, event)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func initiatedOrder() *domain.Order {
	subtotal := decimal.NewFromInt(100000)
	_, total := domain.Totals(subtotal)
	return &domain.Order{
		ID:       "order-1",
		BuyerID:  1,
		CartID:   "cart-1",
		Subtotal: subtotal,
		Total:    total,
		Status:   domain.OrderStatusInitiated,
		Items: []domain.OrderItem{
			{ID: "item-1", BookID: 1, ShopID: 1, Quantity: 2, UnitPrice: decimal.NewFromInt(50000), LineTotal: decimal.NewFromInt(100000)},
		},
	}
}

func TestHandleCheckout(t *testing.T) {
	t.Run("places order from open cart", func(t *testing.T) {
		store := &fakeOrderStore{
			checkoutFn: func(ctx context.Context, buyerID int64, address string) (*domain.Order, error) {
				assert.Equal(t, int64(1), buyerID)
				assert.Equal(t, "12 Market St", address)
				return initiatedOrder(), nil
			},
		}
		h := NewHandler(store, nil, nil, nil, nil, testLogger())

		req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewBufferString(`{"address":"12 Market St"}`))
		req.Header.Set("X-Buyer-ID", "1")
		rec := httptest.NewRecorder()
		h.HandleCheckout(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var order domain.Order
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&order))
		assert.Equal(t, "order-1", order.ID)
		assert.Equal(t, domain.OrderStatusInitiated, order.Status)
		assert.True(t, order.Total.Equal(decimal.NewFromInt(105000)), "total %s", order.Total)
	})

	t.Run("empty cart is a conflict", func(t *testing.T) {
		store := &fakeOrderStore{
			checkoutFn: func(ctx context.Context, buyerID int64, address string) (*domain.Order, error) {
				return nil, ErrEmptyCart
			},
		}
		h := NewHandler(store, nil, nil, nil, nil, testLogger())

		req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewBufferString(`{"address":"12 Market St"}`))
		req.Header.Set("X-Buyer-ID", "1")
		rec := httptest.NewRecorder()
		h.HandleCheckout(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("missing buyer header is rejected", func(t *testing.T) {
		h := NewHandler(&fakeOrderStore{}, nil, nil, nil, nil, testLogger())

		req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewBufferString(`{"address":"12 Market St"}`))
		rec := httptest.NewRecorder()
		h.HandleCheckout(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing address is rejected", func(t *testing.T) {
		h := NewHandler(&fakeOrderStore{}, nil, nil, nil, nil, testLogger())

		req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewBufferString(`{}`))
		req.Header.Set("X-Buyer-ID", "1")
		rec := httptest.NewRecorder()
		h.HandleCheckout(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandlePay(t *testing.T) {
	method := &domain.PaymentMethod{ID: 1, Name: "Credit Card"}

	payReq := func(id string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/orders/"+id+"/pay", bytes.NewBufferString(`{"method_id":1}`))
		req.SetPathValue("id", id)
		return req
	}

	t.Run("approved payment advances the order and publishes", func(t *testing.T) {
		store := &fakeOrderStore{
			getByIDFn: func(ctx context.Context, id string) (*domain.Order, error) {
				return initiatedOrder(), nil
			},
			getPaymentMethodFn: func(ctx context.Context, methodID int64) (*domain.PaymentMethod, error) {
				return method, nil
			},
		}
		gateway := &fakeGateway{
			processFn: func(ctx context.Context, req payments.Request) (*payments.Result, error) {
				assert.True(t, req.Amount.Equal(decimal.NewFromInt(105000)))
				return &payments.Result{TransactionID: "txn-1", PaymentStatus: "approved"}, nil
			},
		}
		publisher := &fakePublisher{}
		h := NewHandler(store, nil, gateway, nil, publisher, testLogger())

		rec := httptest.NewRecorder()
		h.HandlePay(rec, payReq("order-1"))

		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, store.recordedPayments, 1)
		assert.Equal(t, "txn-1", store.recordedPayments[0].TransactionID)
		assert.True(t, store.recordedPayments[0].Total.Equal(decimal.NewFromInt(105000)))
		require.Len(t, publisher.published, 1)
		event, ok := publisher.published[0].(domain.OrderPaidEvent)
		require.True(t, ok)
		assert.Equal(t, "order-1", event.OrderID)
		require.Len(t, event.Items, 1)
		assert.Equal(t, 2, event.Items[0].Quantity)
	})

	t.Run("declined payment leaves the order untouched", func(t *testing.T) {
		store := &fakeOrderStore{
			getByIDFn: func(ctx context.Context, id string) (*domain.Order, error) {
				return initiatedOrder(), nil
			},
			getPaymentMethodFn: func(ctx context.Context, methodID int64) (*domain.PaymentMethod, error) {
				return method, nil
			},
		}
		gateway := &fakeGateway{
			processFn: func(ctx context.Context, req payments.Request) (*payments.Result, error) {
				return nil, payments.ErrDeclined
			},
		}
		h := NewHandler(store, nil, gateway, nil, nil, testLogger())

		rec := httptest.NewRecorder()
		h.HandlePay(rec, payReq("order-1"))

		assert.Equal(t, http.StatusPaymentRequired, rec.Code)
		assert.Empty(t, store.recordedPayments)
	})

	t.Run("unreachable gateway is a bad gateway, nothing recorded", func(t *testing.T) {
		store := &fakeOrderStore{
			getByIDFn: func(ctx context.Context, id string) (*domain.Order, error) {
				return initiatedOrder(), nil
			},
			getPaymentMethodFn: func(ctx context.Context, methodID int64) (*domain.PaymentMethod, error) {
				return method, nil
			},
		}
		gateway := &fakeGateway{
			processFn: func(ctx context.Context, req payments.Request) (*payments.Result, error) {
				return nil, payments.ErrUnavailable
			},
		}
		h := NewHandler(store, nil, gateway, nil, nil, testLogger())

		rec := httptest.NewRecorder()
		h.HandlePay(rec, payReq("order-1"))

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Empty(t, store.recordedPayments)
	})

	t.Run("paying a paid order is a conflict", func(t *testing.T) {
		paid := initiatedOrder()
		paid.Status = domain.OrderStatusPaid
		store := &fakeOrderStore{
			getByIDFn: func(ctx context.Context, id string) (*domain.Order, error) {
				return paid, nil
			},
		}
		h := NewHandler(store, nil, &fakeGateway{}, nil, nil, testLogger())

		rec := httptest.NewRecorder()
		h.HandlePay(rec, payReq("order-1"))

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("unknown payment method is rejected before the gateway", func(t *testing.T) {
		store := &fakeOrderStore{
			getByIDFn: func(ctx context.Context, id string) (*domain.Order, error) {
				return initiatedOrder(), nil
			},
			getPaymentMethodFn: func(ctx context.Context, methodID int64) (*domain.PaymentMethod, error) {
				return nil, ErrUnknownMethod
			},
		}
		gateway := &fakeGateway{}
		h := NewHandler(store, nil, gateway, nil, nil, testLogger())

		rec := httptest.NewRecorder()
		h.HandlePay(rec, payReq("order-1"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, gateway.calls)
	})

	t.Run("unknown order is not found", func(t *testing.T) {
		store := &fakeOrderStore{
			getByIDFn: func(ctx context.Context, id string) (*domain.Order, error) {
				return nil, nil
			},
		}
		h := NewHandler(store, nil, &fakeGateway{}, nil, nil, testLogger())

		rec := httptest.NewRecorder()
		h.HandlePay(rec, payReq("missing"))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("lost race to another payment is a conflict", func(t *testing.T) {
		store := &fakeOrderStore{
			getByIDFn: func(ctx context.Context, id string) (*domain.Order, error) {
				return initiatedOrder(), nil
			},
			getPaymentMethodFn: func(ctx context.Context, methodID int64) (*domain.PaymentMethod, error) {
				return method, nil
			},
			recordPaymentFn: func(ctx context.Context, p *domain.Payment) error {
				return ErrInvalidState
			},
		}
		gateway := &fakeGateway{
			processFn: func(ctx context.Context, req payments.Request) (*payments.Result, error) {
				return &payments.Result{TransactionID: "txn-1", PaymentStatus: "approved"}, nil
			},
		}
		h := NewHandler(store, nil, gateway, nil, nil, testLogger())

		rec := httptest.NewRecorder()
		h.HandlePay(rec, payReq("order-1"))

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestHandleInitiateShipment(t *testing.T) {
	shipReq := func(id, body string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/orders/"+id+"/ship", bytes.NewBufferString(body))
		req.SetPathValue("id", id)
		return req
	}

	t.Run("creates shipment for a paid order", func(t *testing.T) {
		paid := initiatedOrder()
		paid.Status = domain.OrderStatusPaid
		store := &fakeOrderStore{
			getByIDFn: func(ctx context.Context, id string) (*domain.Order, error) {
				return paid, nil
			},
		}
		shipments := &fakeShipmentStore{}
		shipper := &fakeShipper{
			initiateFn: func(ctx context.Context, orderID, service string) (string, error) {
				assert.Equal(t, "jne", service)
				return "TRK123456", nil
			},
		}
		h := NewHandler(store, shipments, nil, shipper, nil, testLogger())

		rec := httptest.NewRecorder()
		h.HandleInitiateShipment(rec, shipReq("order-1", `{"shipment_service":"jne"}`))

		require.Equal(t, http.StatusCreated, rec.Code)
		require.Len(t, shipments.created, 1)
		assert.Equal(t, "TRK123456", shipments.created[0].TrackingNo)
		assert.Equal(t, "order-1", shipments.created[0].OrderID)
	})

	t.Run("storage failure surfaces instead of reporting success", func(t *testing.T) {
		paid := initiatedOrder()
		paid.Status = domain.OrderStatusPaid
		store := &fakeOrderStore{
			getByIDFn: func(ctx context.Context, id string) (*domain.Order, error) {
				return paid, nil
			},
		}
		shipments := &fakeShipmentStore{
			createFn: func(ctx context.Context, s *domain.Shipment) error {
				return errors.New("connection reset")
			},
		}
		shipper := &fakeShipper{
			initiateFn: func(ctx context.Context, orderID, service string) (string, error) {
				return "TRK123456", nil
			},
		}
		h := NewHandler(store, shipments, nil, shipper, nil, testLogger())

		rec := httptest.NewRecorder()
		h.HandleInitiateShipment(rec, shipReq("order-1", `{}`))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, 1, shipper.calls)
	})

	t.Run("retries on tracking number collision", func(t *testing.T) {
		paid := initiatedOrder()
		paid.Status = domain.OrderStatusPaid
		store := &fakeOrderStore{
			getByIDFn: func(ctx context.Context, id string) (*domain.Order, error) {
				return paid, nil
			},
		}
		attempt := 0
		shipments := &fakeShipmentStore{
			createFn: func(ctx context.Context, s *domain.Shipment) error {
				attempt++
				if attempt == 1 {
					return shipping.ErrDuplicateTracking
				}
				return nil
			},
		}
		shipper := &fakeShipper{
			initiateFn: func(ctx context.Context, orderID, service string) (string, error) {
				return "TRK999999", nil
			},
		}
		h := NewHandler(store, shipments, nil, shipper, nil, testLogger())

		rec := httptest.NewRecorder()
		h.HandleInitiateShipment(rec, shipReq("order-1", `{}`))

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, 2, shipper.calls)
	})

	t.Run("gives up after repeated collisions", func(t *testing.T) {
		paid := initiatedOrder()
		paid.Status = domain.OrderStatusPaid
		store := &fakeOrderStore{
			getByIDFn: func(ctx context.Context, id string) (*domain.Order, error) {
				return paid, nil
			},
		}
		shipments := &fakeShipmentStore{
			createFn: func(ctx context.Context, s *domain.Shipment) error {
				return shipping.ErrDuplicateTracking
			},
		}
		shipper := &fakeShipper{
			initiateFn: func(ctx context.Context, orderID, service string) (string, error) {
				return "TRK111111", nil
			},
		}
		h := NewHandler(store, shipments, nil, shipper, nil, testLogger())

		rec := httptest.NewRecorder()
		h.HandleInitiateShipment(rec, shipReq("order-1", `{}`))

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, 3, shipper.calls)
	})

	t.Run("unreachable shipment service is a bad gateway", func(t *testing.T) {
		paid := initiatedOrder()
		paid.Status = domain.OrderStatusPaid
		store := &fakeOrderStore{
			getByIDFn: func(ctx context.Context, id string) (*domain.Order, error) {
				return paid, nil
			},
		}
		shipper := &fakeShipper{
			initiateFn: func(ctx context.Context, orderID, service string) (string, error) {
				return "", shipping.ErrServiceUnavailable
			},
		}
		h := NewHandler(store, &fakeShipmentStore{}, nil, shipper, nil, testLogger())

		rec := httptest.NewRecorder()
		h.HandleInitiateShipment(rec, shipReq("order-1", `{}`))

		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("unknown order is not found", func(t *testing.T) {
		store := &fakeOrderStore{
			getByIDFn: func(ctx context.Context, id string) (*domain.Order, error) {
				return nil, nil
			},
		}
		h := NewHandler(store, &fakeShipmentStore{}, nil, &fakeShipper{}, nil, testLogger())

		rec := httptest.NewRecorder()
		h.HandleInitiateShipment(rec, shipReq("missing", `{}`))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandleResolveShipment(t *testing.T) {
	resolveReq := func(trackingNo string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/shipments/"+trackingNo+"/resolve", nil)
		req.SetPathValue("trackingNo", trackingNo)
		return req
	}

	t.Run("marks shipment delivered", func(t *testing.T) {
		shipments := &fakeShipmentStore{
			resolveFn: func(ctx context.Context, trackingNo string) (*domain.Shipment, error) {
				return &domain.Shipment{
					ID: "ship-1", OrderID: "order-1",
					TrackingNo: trackingNo, Status: domain.ShipmentStatusDelivered,
				}, nil
			},
		}
		h := NewHandler(&fakeOrderStore{}, shipments, nil, nil, nil, testLogger())

		rec := httptest.NewRecorder()
		h.HandleResolveShipment(rec, resolveReq("TRK123456"))

		require.Equal(t, http.StatusOK, rec.Code)
		var s domain.Shipment
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&s))
		assert.Equal(t, domain.ShipmentStatusDelivered, s.Status)
	})

	t.Run("second resolve is a conflict", func(t *testing.T) {
		shipments := &fakeShipmentStore{
			resolveFn: func(ctx context.Context, trackingNo string) (*domain.Shipment, error) {
				return nil, shipping.ErrAlreadyDelivered
			},
		}
		h := NewHandler(&fakeOrderStore{}, shipments, nil, nil, nil, testLogger())

		rec := httptest.NewRecorder()
		h.HandleResolveShipment(rec, resolveReq("TRK123456"))

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("unknown tracking number is not found", func(t *testing.T) {
		shipments := &fakeShipmentStore{
			resolveFn: func(ctx context.Context, trackingNo string) (*domain.Shipment, error) {
				return nil, shipping.ErrNotFound
			},
		}
		h := NewHandler(&fakeOrderStore{}, shipments, nil, nil, nil, testLogger())

		rec := httptest.NewRecorder()
		h.HandleResolveShipment(rec, resolveReq("TRK000000"))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
