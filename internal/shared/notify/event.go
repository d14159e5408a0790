package notify

import "time"

// EventType names a domain transition that someone should hear about.
type EventType string

const (
	ItemRequestSubmitted      EventType = "item_request_submitted"
	ItemRequestApproved       EventType = "item_request_approved"
	ItemRequestRejected       EventType = "item_request_rejected"
	RequisitionBatchSubmitted EventType = "requisition_batch_submitted"
	RequisitionUpdated        EventType = "requisition_updated"
	RequisitionApproved       EventType = "requisition_approved"
	RequisitionRejected       EventType = "requisition_rejected"
	MasterVerified            EventType = "master_verified"
	POCreated                 EventType = "po_created"
	POApproved                EventType = "po_approved"
	PORejected                EventType = "po_rejected"
	InwardRecorded            EventType = "inward_recorded"
	GatePassOverdue           EventType = "gate_pass_overdue"
)

// Event is queued after the owning transaction commits.
type Event struct {
	Type        EventType              `json:"type"`
	Subject     string                 `json:"subject"`
	Recipients  []string               `json:"recipients,omitempty"`
	Data        map[string]interface{} `json:"data,omitempty"`
	Attachments []string               `json:"attachments,omitempty"`
	OccurredAt  time.Time              `json:"occurred_at"`
}

// New stamps OccurredAt.
func New(t EventType, subject string, recipients []string, data map[string]interface{}) Event {
	return Event{
		Type:       t,
		Subject:    subject,
		Recipients: recipients,
		Data:       data,
		OccurredAt: time.Now(),
	}
}

// Publisher accepts events without blocking the caller.
type Publisher interface {
	Publish(events ...Event)
}

// Pending collects events inside a transaction; Flush hands them over once
// the transaction has committed.
type Pending struct {
	events []Event
}

func (p *Pending) Add(e Event) { p.events = append(p.events, e) }

func (p *Pending) Len() int { return len(p.events) }

func (p *Pending) Flush(pub Publisher) {
	if pub == nil || len(p.events) == 0 {
		return
	}
	pub.Publish(p.events...)
	p.events = nil
}
