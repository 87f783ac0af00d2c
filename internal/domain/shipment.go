package domain

import "time"

type ShipmentStatus string

const (
	ShipmentStatusShipped   ShipmentStatus = "Shipped"
	ShipmentStatusDelivered ShipmentStatus = "Delivered"
)

type Shipment struct {
	ID         string         `json:"id"`
	OrderID    string         `json:"order_id"`
	TrackingNo string         `json:"tracking_no"`
	Status     ShipmentStatus `json:"status"`
	Service    string         `json:"shipment_service"`
	ShippedAt  time.Time      `json:"shipment_date"`
	ReceivedAt *time.Time     `json:"received_date,omitempty"`
}
