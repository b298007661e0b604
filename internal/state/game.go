package state

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"railreplay/internal/config"
)

// GameState is the aggregate the replay mutates: every player, every
// company, and the reference table of private face values.
type GameState struct {
	Players       []*PlayerState
	Companies     []*CompanyState
	PrivateValues map[string]int
	TotalShares   int
	TrainTypes    []string
}

// New creates the opening position for a variant. Starting capital is split
// evenly between the players, rounding down.
func New(v *config.Variant, players []string) *GameState {
	gs := &GameState{
		PrivateValues: v.PrivateValues(),
		TotalShares:   v.TotalShares,
		TrainTypes:    append([]string(nil), v.Trains...),
	}

	cash := 0
	if len(players) > 0 {
		cash = v.StartingCapital / len(players)
	}
	for _, name := range players {
		gs.Players = append(gs.Players, NewPlayer(name, cash, v.Companies))
	}
	for _, name := range v.Companies {
		gs.Companies = append(gs.Companies, NewCompany(name, v.TotalShares, v.Trains))
	}
	return gs
}

// Player finds a player by name.
func (gs *GameState) Player(name string) *PlayerState {
	for _, p := range gs.Players {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Company finds a company by name.
func (gs *GameState) Company(name string) *CompanyState {
	for _, c := range gs.Companies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Holder finds the player or company called name.
func (gs *GameState) Holder(name string) *Entity {
	if c := gs.Company(name); c != nil {
		return &c.Entity
	}
	if p := gs.Player(name); p != nil {
		return &p.Entity
	}
	return nil
}

// Clone deep-copies the aggregate. PrivateValues is shared since it is
// never written after New.
func (gs *GameState) Clone() *GameState {
	c := &GameState{
		Players:       make([]*PlayerState, len(gs.Players)),
		Companies:     make([]*CompanyState, len(gs.Companies)),
		PrivateValues: gs.PrivateValues,
		TotalShares:   gs.TotalShares,
		TrainTypes:    gs.TrainTypes,
	}
	for i, p := range gs.Players {
		c.Players[i] = p.clone()
	}
	for i, co := range gs.Companies {
		c.Companies[i] = co.clone()
	}
	return c
}

// RecomputeValues sets every player's net worth to cash plus shares at the
// current share prices plus private face values.
func (gs *GameState) RecomputeValues() {
	for _, p := range gs.Players {
		value := p.Cash + p.PrivateTotal()
		for _, c := range gs.Companies {
			value += p.Shares[c.Name] * c.SharePrice
		}
		p.Value = value
	}
}

// SharesOutstanding counts a company's shares across IPO, market and players.
func (gs *GameState) SharesOutstanding(company *CompanyState) int {
	n := company.IPO + company.Market
	for _, p := range gs.Players {
		n += p.Shares[company.Name]
	}
	return n
}

// CheckShares verifies that every parred company still accounts for all of
// its shares.
func (gs *GameState) CheckShares() error {
	var errs []error
	for _, c := range gs.Companies {
		if !c.Parred() {
			continue
		}
		if n := gs.SharesOutstanding(c); n != gs.TotalShares {
			errs = append(errs, fmt.Errorf("%s accounts for %d shares (ipo %d, market %d), want %d", c.Name, n, c.IPO, c.Market, gs.TotalShares))
		}
	}
	return errors.Join(errs...)
}

// TotalMoney is the cash of every player and company plus the face value of
// every private still held.
func (gs *GameState) TotalMoney() int {
	total := 0
	for _, p := range gs.Players {
		total += p.Cash + p.PrivateTotal()
	}
	for _, c := range gs.Companies {
		total += c.Cash + c.PrivateTotal()
	}
	return total
}

// Columns names the flattened snapshot columns in the order Row fills them.
func (gs *GameState) Columns() []string {
	var cols []string
	for _, p := range gs.Players {
		cols = append(cols, p.Name+"_cash", p.Name+"_value")
		for _, c := range gs.Companies {
			cols = append(cols, p.Name+"_shares_"+c.Name)
		}
		cols = append(cols, p.Name+"_privates", p.Name+"_priority_deal")
	}
	for _, c := range gs.Companies {
		cols = append(cols, c.Name+"_cash", c.Name+"_ipo", c.Name+"_market", c.Name+"_president", c.Name+"_share_price")
		for _, t := range gs.TrainTypes {
			cols = append(cols, c.Name+"_trains_"+t)
		}
	}
	return cols
}

// Row flattens the state into one value per column of Columns.
func (gs *GameState) Row() []string {
	var row []string
	for _, p := range gs.Players {
		row = append(row, strconv.Itoa(p.Cash), strconv.Itoa(p.Value))
		for _, c := range gs.Companies {
			row = append(row, strconv.Itoa(p.Shares[c.Name]))
		}
		row = append(row, strings.Join(p.PrivateNames(), ";"), strconv.FormatBool(p.PriorityDeal))
	}
	for _, c := range gs.Companies {
		row = append(row, strconv.Itoa(c.Cash), strconv.Itoa(c.IPO), strconv.Itoa(c.Market), c.President, strconv.Itoa(c.SharePrice))
		for _, t := range gs.TrainTypes {
			row = append(row, strconv.Itoa(c.Trains[t]))
		}
	}
	return row
}
