package domain

import "time"

type Kind string

const (
	KindRegistration Kind = "registrations"
	KindOutpass      Kind = "outpasses"
	KindComplaint    Kind = "complaints"
	KindApplication  Kind = "applications"
	KindAppointment  Kind = "appointments"
	KindNotice       Kind = "notices"
	KindAnnouncement Kind = "announcements"
)

// AllKinds lists every record collection.
func AllKinds() []Kind {
	return []Kind{
		KindRegistration, KindOutpass, KindComplaint, KindApplication,
		KindAppointment, KindNotice, KindAnnouncement,
	}
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"

	// Outpass, appointment and application decisions are capitalised.
	StatusPendingCap  Status = "Pending"
	StatusApprovedCap Status = "Approved"
	StatusRejectedCap Status = "Rejected"

	StatusUnseen  Status = "unseen"
	StatusSeen    Status = "seen"
	StatusSeenCap Status = "Seen"
)

// StatusChange is one entry of a record's append-only status history.
type StatusChange struct {
	From  Status    `json:"from"`
	To    Status    `json:"to"`
	Actor string    `json:"actor"`
	At    time.Time `json:"at"`
}

// Record is the flat document shared by every record kind. Kind-specific
// form values live in Fields.
type Record struct {
	ID         string            `json:"id"`
	Kind       Kind              `json:"kind"`
	OwnerID    string            `json:"owner_id,omitempty"`
	OwnerEmail string            `json:"owner_email,omitempty"`
	Status     Status            `json:"status,omitempty"`
	Fields     map[string]string `json:"fields"`
	History    []StatusChange    `json:"history,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  *time.Time        `json:"updated_at,omitempty"`
	SeenAt     *time.Time        `json:"seen_at,omitempty"`
}

// Clone returns a deep copy so callers can hand records across goroutines.
func (r Record) Clone() Record {
	out := r
	if r.Fields != nil {
		out.Fields = make(map[string]string, len(r.Fields))
		for k, v := range r.Fields {
			out.Fields[k] = v
		}
	}
	if r.History != nil {
		out.History = append([]StatusChange(nil), r.History...)
	}
	if r.UpdatedAt != nil {
		t := *r.UpdatedAt
		out.UpdatedAt = &t
	}
	if r.SeenAt != nil {
		t := *r.SeenAt
		out.SeenAt = &t
	}
	return out
}

type Order int

const (
	NewestFirst Order = iota
	OldestFirst
)

// Query selects records of one kind, optionally restricted to one owner.
type Query struct {
	Kind    Kind
	OwnerID string
	Order   Order
}

// Matches reports whether rec is visible to q.
func (q Query) Matches(rec Record) bool {
	if rec.Kind != q.Kind {
		return false
	}
	return q.OwnerID == "" || rec.OwnerID == q.OwnerID
}

// Key identifies equivalent queries.
func (q Query) Key() string {
	return string(q.Kind) + "|" + q.OwnerID
}

// StatusUpdate is a conditional status write: it only applies while the
// stored status still equals Expected.
type StatusUpdate struct {
	Kind     Kind
	ID       string
	Expected Status
	Change   StatusChange
	MarkSeen bool
}

// ChangeOp names the kind of write a change event reports.
type ChangeOp string

const (
	OpCreated ChangeOp = "created"
	OpUpdated ChangeOp = "updated"
	OpDeleted ChangeOp = "deleted"
)

// ChangeEvent notifies live views that a record of Kind was written.
type ChangeEvent struct {
	Kind     Kind     `json:"kind"`
	RecordID string   `json:"record_id"`
	OwnerID  string   `json:"owner_id,omitempty"`
	Op       ChangeOp `json:"op"`
}

// Snapshot is the full, ordered result set of a live view at one point.
type Snapshot struct {
	Kind    Kind      `json:"kind"`
	Records []Record  `json:"records"`
	At      time.Time `json:"at"`
}
