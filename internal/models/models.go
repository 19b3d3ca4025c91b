package models

import "time"

// PlanRequest holds the five free-text form fields. Values are never validated.
type PlanRequest struct {
	Idea     string `json:"idea"`
	Industry string `json:"industry"`
	Audience string `json:"audience"`
	Funding  string `json:"funding"`
	Goals    string `json:"goals"`
}

type Session struct {
	ID        string
	Paid      bool
	Fields    PlanRequest
	OrderID   string
	PlanKey   string
	CreatedAt time.Time
}

type OrderStatus string

const (
	OrderStatusCreated OrderStatus = "created"
	OrderStatusPaid    OrderStatus = "paid"
	OrderStatusFailed  OrderStatus = "failed"
)

// PaymentOrder is the local view of a provider-side order.
type PaymentOrder struct {
	ID         int64       `json:"id"`
	OrderID    string      `json:"order_id"`
	SessionID  string      `json:"session_id"`
	Receipt    string      `json:"receipt"`
	Currency   string      `json:"currency"`
	Amount     int         `json:"amount"`
	Status     OrderStatus `json:"status"`
	PaymentID  string      `json:"payment_id,omitempty"`
	RawPayload string      `json:"-"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

type GeneratedPlan struct {
	SessionID string
	Text      string
	Key       string
	CreatedAt time.Time
}

type JobState string

const (
	JobPending   JobState = "pending"
	JobRunning   JobState = "running"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
	JobCanceled  JobState = "canceled"
)

// Done reports whether the job reached a terminal state.
func (s JobState) Done() bool {
	return s == JobSucceeded || s == JobFailed || s == JobCanceled
}

type GenerationJob struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	State      JobState  `json:"state"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	Message    string    `json:"message,omitempty"`
	PlanKey    string    `json:"-"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}
