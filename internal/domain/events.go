package domain

import "time"

// OrderNotification is a rendered order confirmation ready for delivery.
// It travels over Kafka between the orders service and the notification
// worker, and is posted as is to the email service.
type OrderNotification struct {
	OrderID   int64     `json:"order_id"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	HTML      bool      `json:"html"`
	Timestamp time.Time `json:"timestamp"`
}
