package lead

import "time"

// Classification holds the customers flagged by Classify, each in
// first-seen order.
type Classification struct {
	// Multi holds every customer with more than one lead
	Multi []*Customer

	// Returning holds the Multi customers with a lead more than the
	// threshold away from their first lead
	Returning []*Customer

	multi     map[*Customer]struct{}
	returning map[*Customer]struct{}
}

// Classify flags multi-lead and returning customers.
//
// The reference point for each customer is the first lead in input order, not
// the chronologically earliest one, so reordering rows can change the result.
// A customer appears at most once in each set.
func Classify(customers *Customers, threshold time.Duration) Classification {
	out := Classification{
		multi:     make(map[*Customer]struct{}),
		returning: make(map[*Customer]struct{}),
	}
	if customers == nil {
		return out
	}

	for _, c := range customers.order {
		if c.LeadCount() < 2 {
			continue
		}
		out.Multi = append(out.Multi, c)
		out.multi[c] = struct{}{}
		if c.Returns(threshold) {
			out.Returning = append(out.Returning, c)
			out.returning[c] = struct{}{}
		}
	}
	return out
}

// IsMulti reports whether c is in the multi set.
func (cl Classification) IsMulti(c *Customer) bool {
	_, ok := cl.multi[c]
	return ok
}

// IsReturning reports whether c is in the returning set.
func (cl Classification) IsReturning(c *Customer) bool {
	_, ok := cl.returning[c]
	return ok
}
