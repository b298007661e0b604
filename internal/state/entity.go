package state

import (
	"fmt"
	"sort"
)

// Share sources a company can release shares from.
const (
	SourceIPO    = "IPO"
	SourceMarket = "market"
)

// Entity is the part shared by players and companies.
type Entity struct {
	Name     string
	Cash     int
	Privates map[string]int // private name -> face value
}

func newEntity(name string, cash int) Entity {
	return Entity{Name: name, Cash: cash, Privates: make(map[string]int)}
}

// AddPrivate records ownership of a private at its face value.
func (e *Entity) AddPrivate(name string, value int) {
	e.Privates[name] = value
}

// RemovePrivate drops a private, reporting whether it was held.
func (e *Entity) RemovePrivate(name string) bool {
	if _, ok := e.Privates[name]; !ok {
		return false
	}
	delete(e.Privates, name)
	return true
}

// PrivateNames returns the held privates in sorted order.
func (e *Entity) PrivateNames() []string {
	names := make([]string, 0, len(e.Privates))
	for n := range e.Privates {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// PrivateTotal sums the face values of the held privates.
func (e *Entity) PrivateTotal() int {
	total := 0
	for _, v := range e.Privates {
		total += v
	}
	return total
}

func (e Entity) clone() Entity {
	c := Entity{Name: e.Name, Cash: e.Cash, Privates: make(map[string]int, len(e.Privates))}
	for k, v := range e.Privates {
		c.Privates[k] = v
	}
	return c
}

// PlayerState is one seat at the table.
type PlayerState struct {
	Entity
	Value        int
	Shares       map[string]int // company -> share count, every company present
	PriorityDeal bool
	Bankrupt     bool
}

// NewPlayer creates a player holding no shares in any of companies.
func NewPlayer(name string, cash int, companies []string) *PlayerState {
	p := &PlayerState{
		Entity: newEntity(name, cash),
		Shares: make(map[string]int, len(companies)),
	}
	for _, c := range companies {
		p.Shares[c] = 0
	}
	p.Value = cash
	return p
}

// GoBankrupt zeroes the player's cash. Bankruptcy is never undone.
func (p *PlayerState) GoBankrupt() {
	p.Cash = 0
	p.Bankrupt = true
}

func (p *PlayerState) clone() *PlayerState {
	c := &PlayerState{
		Entity:       p.Entity.clone(),
		Value:        p.Value,
		Shares:       make(map[string]int, len(p.Shares)),
		PriorityDeal: p.PriorityDeal,
		Bankrupt:     p.Bankrupt,
	}
	for k, v := range p.Shares {
		c.Shares[k] = v
	}
	return c
}

// CompanyState is a public railroad company.
type CompanyState struct {
	Entity
	Trains     map[string]int // train type -> count, every type present
	IPO        int
	Market     int
	President  string
	SharePrice int
}

// NewCompany creates an unparred company with all shares in the IPO.
func NewCompany(name string, totalShares int, trains []string) *CompanyState {
	c := &CompanyState{
		Entity: newEntity(name, 0),
		Trains: make(map[string]int, len(trains)),
		IPO:    totalShares,
	}
	for _, t := range trains {
		c.Trains[t] = 0
	}
	return c
}

// Parred reports whether the company has a share price yet.
func (c *CompanyState) Parred() bool { return c.SharePrice > 0 }

// ReleaseShares takes count shares out of the IPO or the market pool.
func (c *CompanyState) ReleaseShares(source string, count int) error {
	switch source {
	case SourceIPO:
		c.IPO -= count
	case SourceMarket:
		c.Market -= count
	default:
		return fmt.Errorf("invalid share source %q for %s: must be %s or %s", source, c.Name, SourceIPO, SourceMarket)
	}
	return nil
}

// AddTrain adjusts the count of one train type by delta.
func (c *CompanyState) AddTrain(train string, delta int) error {
	if _, ok := c.Trains[train]; !ok {
		return fmt.Errorf("unknown train type %q for %s", train, c.Name)
	}
	c.Trains[train] += delta
	return nil
}

// TrainCount is the number of trains the company owns across all types.
func (c *CompanyState) TrainCount() int {
	n := 0
	for _, v := range c.Trains {
		n += v
	}
	return n
}

func (c *CompanyState) clone() *CompanyState {
	cp := &CompanyState{
		Entity:     c.Entity.clone(),
		Trains:     make(map[string]int, len(c.Trains)),
		IPO:        c.IPO,
		Market:     c.Market,
		President:  c.President,
		SharePrice: c.SharePrice,
	}
	for k, v := range c.Trains {
		cp.Trains[k] = v
	}
	return cp
}
