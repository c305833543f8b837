package lead

// Customers maps identities to customers and remembers the order in which
// each identity was first seen.
type Customers struct {
	byID  map[Identity]*Customer
	order []*Customer
	leads int
}

// Get returns the customer for id, or nil when no lead carried that identity.
func (c *Customers) Get(id Identity) *Customer {
	return c.byID[id]
}

// Len returns the number of distinct customers.
func (c *Customers) Len() int {
	return len(c.order)
}

// LeadCount returns the total number of leads across all customers.
func (c *Customers) LeadCount() int {
	return c.leads
}

// All returns the customers in first-seen order.
func (c *Customers) All() []*Customer {
	out := make([]*Customer, len(c.order))
	copy(out, c.order)
	return out
}

// Aggregator groups leads by customer identity as they arrive.
// It is the only writer of the Customers it builds and is not safe for
// concurrent use.
type Aggregator struct {
	customers *Customers
}

// NewAggregator returns an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		customers: &Customers{byID: make(map[Identity]*Customer)},
	}
}

// Add appends l to its customer's lead sequence, creating the customer on
// first sighting.
func (a *Aggregator) Add(l Lead) {
	c := a.customers
	c.leads++

	id := l.Identity()
	if cust, ok := c.byID[id]; ok {
		cust.leads = append(cust.leads, l)
		return
	}

	cust := newCustomer(l)
	c.byID[id] = cust
	c.order = append(c.order, cust)
}

// Customers returns the aggregation so far.
func (a *Aggregator) Customers() *Customers {
	return a.customers
}

// Aggregate groups records by identity in input order.
func Aggregate(records []Lead) *Customers {
	a := NewAggregator()
	for _, r := range records {
		a.Add(r)
	}
	return a.Customers()
}
