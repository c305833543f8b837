package lead

import (
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ColumnCount is the minimum number of fields a data row must carry.
const ColumnCount = 7

// TimestampLayout is the submission timestamp format (24-hour clock).
const TimestampLayout = "2006-01-02 15:04:05"

// ReturningThreshold is the span past which a repeat customer counts as returning.
const ReturningThreshold = 3 * 24 * time.Hour

// customerNamespace seeds the deterministic customer IDs derived from an Identity.
var customerNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("leadscan.customer"))

// Lead is a single lead submission parsed from one CSV row.
// Leads are values and are never mutated after parsing.
type Lead struct {
	// Name is the customer name as submitted
	Name string

	// Phone is the customer phone number as submitted
	Phone string

	// PostalCode is the delivery postal code
	PostalCode string

	// Delivery is the requested delivery method
	Delivery string

	// Size is the requested size
	Size string

	// City is the delivery city
	City string

	// SubmittedAt is when the lead was submitted (UTC)
	SubmittedAt time.Time
}

// Identity returns the customer identity this lead belongs to.
func (l Lead) Identity() Identity {
	return Identity{Name: l.Name, Phone: l.Phone}
}

// Identity is the composite customer key. Two identities are equal iff both
// fields match exactly; no case folding or trimming is applied.
type Identity struct {
	Name  string
	Phone string
}

// ID returns a stable UUID (v5) for the identity. The name is length-prefixed
// so no pair of fields can produce the same hash input as another pair.
func (id Identity) ID() uuid.UUID {
	key := strconv.Itoa(len(id.Name)) + ":" + id.Name + id.Phone
	return uuid.NewSHA1(customerNamespace, []byte(key))
}

// Customer owns the leads submitted under one identity, in input order.
type Customer struct {
	Identity Identity
	leads    []Lead
}

// newCustomer creates a customer seeded with its first lead.
func newCustomer(first Lead) *Customer {
	return &Customer{
		Identity: first.Identity(),
		leads:    []Lead{first},
	}
}

// Leads returns a copy of the customer's leads in input order.
func (c *Customer) Leads() []Lead {
	return slices.Clone(c.leads)
}

// LeadCount returns the number of leads submitted by the customer.
func (c *Customer) LeadCount() int {
	return len(c.leads)
}

// First returns the first lead seen for the customer in input order.
func (c *Customer) First() Lead {
	return c.leads[0]
}

// Last returns the last lead seen for the customer in input order.
func (c *Customer) Last() Lead {
	return c.leads[len(c.leads)-1]
}

// Drift returns the largest absolute distance between any lead and the first
// lead in input order.
func (c *Customer) Drift() time.Duration {
	first := c.leads[0].SubmittedAt
	var drift time.Duration
	for _, l := range c.leads[1:] {
		d := absDuration(l.SubmittedAt.Sub(first))
		if d > drift {
			drift = d
		}
	}
	return drift
}

// Returns reports whether any lead lies more than threshold away from the
// first lead in input order.
func (c *Customer) Returns(threshold time.Duration) bool {
	first := c.leads[0].SubmittedAt
	for _, l := range c.leads {
		if absDuration(l.SubmittedAt.Sub(first)) > threshold {
			return true
		}
	}
	return false
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
