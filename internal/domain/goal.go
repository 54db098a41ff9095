package domain

// Goal is a user target tracked against one of the other domains.
type Goal struct {
	ID        string  `json:"id,omitempty"`
	Title     string  `json:"title" validate:"required,max=200"`
	Domain    string  `json:"domain,omitempty"`
	Metric    string  `json:"metric,omitempty"`
	Target    float64 `json:"target" validate:"gte=0"`
	Current   float64 `json:"current"`
	Period    string  `json:"period,omitempty"`
	Deadline  string  `json:"deadline,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Completed bool    `json:"completed"`
	Synced    bool    `json:"-"`
}

// Progress returns Current/Target clamped to [0, 1].
func (g Goal) Progress() float64 {
	if g.Target <= 0 {
		if g.Completed {
			return 1
		}
		return 0
	}
	p := g.Current / g.Target
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}
