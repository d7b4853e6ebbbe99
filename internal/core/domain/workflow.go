package domain

// Workflow describes the legal statuses of one record kind and the edges an
// administrator may move a record along.
type Workflow struct {
	Kind    Kind
	Initial Status
	// Seen is the status an administrator opening the record moves it to.
	// Empty for kinds without a seen step.
	Seen  Status
	edges map[Status][]Status
}

var workflows = map[Kind]Workflow{
	KindRegistration: {
		Kind:    KindRegistration,
		Initial: StatusPending,
		edges: map[Status][]Status{
			StatusPending: {StatusApproved, StatusRejected},
		},
	},
	KindOutpass: {
		Kind:    KindOutpass,
		Initial: StatusPendingCap,
		edges: map[Status][]Status{
			StatusPendingCap: {StatusApprovedCap, StatusRejectedCap},
		},
	},
	KindAppointment: {
		Kind:    KindAppointment,
		Initial: StatusPendingCap,
		edges: map[Status][]Status{
			StatusPendingCap: {StatusApprovedCap, StatusRejectedCap},
		},
	},
	KindComplaint: {
		Kind:    KindComplaint,
		Initial: StatusUnseen,
		Seen:    StatusSeen,
		edges: map[Status][]Status{
			StatusUnseen: {StatusSeen},
		},
	},
	KindApplication: {
		Kind:    KindApplication,
		Initial: StatusUnseen,
		Seen:    StatusSeenCap,
		edges: map[Status][]Status{
			StatusUnseen:  {StatusSeenCap},
			StatusSeenCap: {StatusApprovedCap, StatusRejectedCap},
		},
	},
}

// WorkflowFor returns the state machine of kind. Notices and announcements
// have none.
func WorkflowFor(kind Kind) (Workflow, bool) {
	wf, ok := workflows[kind]
	return wf, ok
}

// Normalize maps an absent status onto the initial one.
func (w Workflow) Normalize(s Status) Status {
	if s == "" {
		return w.Initial
	}
	return s
}

func (w Workflow) CanTransition(from, to Status) bool {
	for _, next := range w.edges[w.Normalize(from)] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no edge leaves s.
func (w Workflow) IsTerminal(s Status) bool {
	return len(w.edges[w.Normalize(s)]) == 0
}

// Statuses lists every legal status of the kind.
func (w Workflow) Statuses() []Status {
	seen := map[Status]bool{w.Initial: true}
	out := []Status{w.Initial}
	for _, from := range []Status{w.Initial, w.Seen} {
		for _, to := range w.edges[from] {
			if !seen[to] {
				seen[to] = true
				out = append(out, to)
			}
		}
	}
	return out
}

// IsWorkflowKind reports whether records of kind carry a status.
func IsWorkflowKind(kind Kind) bool {
	_, ok := workflows[kind]
	return ok
}

func IsNoticeKind(kind Kind) bool {
	return kind == KindNotice || kind == KindAnnouncement
}

func ParseKind(s string) (Kind, bool) {
	k := Kind(s)
	if IsWorkflowKind(k) || IsNoticeKind(k) {
		return k, true
	}
	return "", false
}
