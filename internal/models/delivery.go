package models

import "time"

type JobStatus string

const (
	JobQueued  JobStatus = "queued"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobError   JobStatus = "error"
)

// Terminal reports whether no further transition can happen.
func (s JobStatus) Terminal() bool {
	return s == JobDone || s == JobError
}

// DeliveryOutcome is what a successful delivery produced; it is also the value remembered
// under an idempotency key.
type DeliveryOutcome struct {
	PDFBytes    int       `json:"pdf_bytes"`
	UserMailed  bool      `json:"user_mailed"`
	AdminMailed bool      `json:"admin_mailed"`
	MailErrors  []string  `json:"mail_errors,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// DeliveryJob tracks one asynchronous delivery.
type DeliveryJob struct {
	ID             string                 `json:"id"`
	Recipient      string                 `json:"recipient"`
	Language       string                 `json:"language"`
	Payload        map[string]interface{} `json:"payload,omitempty"`
	HTML           string                 `json:"-"`
	IdempotencyKey string                 `json:"idempotency_key,omitempty"`
	Status         JobStatus              `json:"status"`
	Error          string                 `json:"error,omitempty"`
	Outcome        *DeliveryOutcome       `json:"outcome,omitempty"`
	Deduplicated   bool                   `json:"deduplicated"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// Clone returns a copy safe to hand out while the job keeps running.
func (j *DeliveryJob) Clone() *DeliveryJob {
	c := *j
	if j.Payload != nil {
		c.Payload = make(map[string]interface{}, len(j.Payload))
		for k, v := range j.Payload {
			c.Payload[k] = v
		}
	}
	if j.Outcome != nil {
		o := *j.Outcome
		o.MailErrors = append([]string(nil), j.Outcome.MailErrors...)
		c.Outcome = &o
	}
	return &c
}
