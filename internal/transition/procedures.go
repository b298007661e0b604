package transition

import (
	"fmt"

	"railreplay/internal/catalog"
	"railreplay/internal/state"
)

// payOut touches every player's cash and the paying company's cash, then
// every player's value.
func (e *Engine) payOut(rec catalog.Record, gs *state.GameState) error {
	c, err := company(rec, gs, catalog.FieldCompany)
	if err != nil {
		return err
	}
	perShare, err := rec.Int(catalog.FieldPerShare)
	if err != nil {
		return err
	}
	for _, p := range gs.Players {
		p.Cash += p.Shares[c.Name] * perShare
	}
	c.Cash += perShare * c.Market
	gs.RecomputeValues()
	return nil
}

// withhold touches the company's cash.
func (e *Engine) withhold(rec catalog.Record, gs *state.GameState) error {
	return e.receiveFunds(rec, gs)
}

// buyShare touches the buyer's cash and shares, the company's IPO or
// market pool, then every player's value.
func (e *Engine) buyShare(rec catalog.Record, gs *state.GameState) error {
	p, err := player(rec, gs)
	if err != nil {
		return err
	}
	c, err := company(rec, gs, catalog.FieldCompany)
	if err != nil {
		return err
	}
	amount, err := rec.Int(catalog.FieldAmount)
	if err != nil {
		return err
	}
	count, err := e.shareCount(rec)
	if err != nil {
		return err
	}
	if err := c.ReleaseShares(rec.Get(catalog.FieldSource), count); err != nil {
		return err
	}
	p.Cash -= amount
	p.Shares[c.Name] += count
	gs.RecomputeValues()
	return nil
}

// sellShares touches the seller's cash and shares, the company's market
// pool, then every player's value. A bankrupt seller is not credited.
func (e *Engine) sellShares(rec catalog.Record, gs *state.GameState) error {
	p, err := player(rec, gs)
	if err != nil {
		return err
	}
	c, err := company(rec, gs, catalog.FieldCompany)
	if err != nil {
		return err
	}
	amount, err := rec.Int(catalog.FieldAmount)
	if err != nil {
		return err
	}
	count, err := e.shareCount(rec)
	if err != nil {
		return err
	}
	if !p.Bankrupt {
		p.Cash += amount
	}
	p.Shares[c.Name] -= count
	c.Market += count
	gs.RecomputeValues()
	return nil
}

// par touches the company's share price. Share price moves use it too.
func (e *Engine) par(rec catalog.Record, gs *state.GameState) error {
	c, err := company(rec, gs, catalog.FieldCompany)
	if err != nil {
		return err
	}
	price, err := rec.Int(catalog.FieldSharePrice)
	if err != nil {
		return err
	}
	c.SharePrice = price
	return nil
}

// buyPrivate touches the buyer's cash and privates and, for a company buying
// from a player, the seller's cash and privates.
func (e *Engine) buyPrivate(rec catalog.Record, gs *state.GameState) error {
	name := rec.Get(catalog.FieldPrivate)
	value, ok := gs.PrivateValues[name]
	if !ok {
		return fmt.Errorf("record %s: unknown private %q", rec, name)
	}
	amount, err := rec.Int(catalog.FieldAmount)
	if err != nil {
		return err
	}

	if !rec.Has(catalog.FieldCompany) {
		p, err := player(rec, gs)
		if err != nil {
			return err
		}
		p.Cash -= amount
		p.AddPrivate(name, value)
		return nil
	}

	c, err := company(rec, gs, catalog.FieldCompany)
	if err != nil {
		return err
	}
	seller := gs.Player(rec.Get(catalog.FieldSource))
	if seller == nil {
		return fmt.Errorf("record %s: unknown seller %q", rec, rec.Get(catalog.FieldSource))
	}
	if !seller.RemovePrivate(name) {
		return fmt.Errorf("record %s: %s does not own %s", rec, seller.Name, name)
	}
	seller.Cash += amount
	c.Cash -= amount
	c.AddPrivate(name, value)
	return nil
}

// collect touches the cash of whichever player or company collects.
func (e *Engine) collect(rec catalog.Record, gs *state.GameState) error {
	name := rec.Get(catalog.FieldCompany)
	if name == "" {
		name = rec.Get(catalog.FieldPlayer)
	}
	holder := gs.Holder(name)
	if holder == nil {
		return fmt.Errorf("record %s: unknown collector %q", rec, name)
	}
	amount, err := rec.Int(catalog.FieldAmount)
	if err != nil {
		return err
	}
	holder.Cash += amount
	return nil
}

// spend touches the company's cash for tile lays and token placements.
func (e *Engine) spend(rec catalog.Record, gs *state.GameState) error {
	c, err := company(rec, gs, catalog.FieldCompany)
	if err != nil {
		return err
	}
	amount, err := rec.IntOr(catalog.FieldAmount, 0)
	if err != nil {
		return err
	}
	c.Cash -= amount
	return nil
}

// buyTrain touches the buyer's cash and trains and, when bought from another
// company, the seller's cash and trains.
func (e *Engine) buyTrain(rec catalog.Record, gs *state.GameState) error {
	c, err := company(rec, gs, catalog.FieldCompany)
	if err != nil {
		return err
	}
	amount, err := rec.Int(catalog.FieldAmount)
	if err != nil {
		return err
	}
	train := rec.Get(catalog.FieldTrain)

	var seller *state.CompanyState
	if source := rec.Get(catalog.FieldSource); source != "" && source != e.depot {
		if seller = gs.Company(source); seller == nil {
			return fmt.Errorf("record %s: train source %q is neither %s nor a company", rec, source, e.depot)
		}
		if seller.Trains[train] < 1 {
			return fmt.Errorf("record %s: %s has no %s train to sell", rec, seller.Name, train)
		}
	}

	if err := c.AddTrain(train, 1); err != nil {
		return err
	}
	c.Cash -= amount
	if seller != nil {
		seller.Trains[train]--
		seller.Cash += amount
	}
	return nil
}

// discardTrain touches the company's trains.
func (e *Engine) discardTrain(rec catalog.Record, gs *state.GameState) error {
	c, err := company(rec, gs, catalog.FieldCompany)
	if err != nil {
		return err
	}
	return c.AddTrain(rec.Get(catalog.FieldTrain), -1)
}

// exchangeTrain is a discard of the old train followed by a purchase.
func (e *Engine) exchangeTrain(rec catalog.Record, gs *state.GameState) error {
	discard := rec.Clone()
	discard[catalog.FieldTrain] = rec.Get(catalog.FieldOldTrain)
	if err := e.discardTrain(discard, gs); err != nil {
		return err
	}
	return e.buyTrain(rec, gs)
}

// contribute touches the player's cash and the cash of the one company the
// player presides over that has no trains.
func (e *Engine) contribute(rec catalog.Record, gs *state.GameState) error {
	p, err := player(rec, gs)
	if err != nil {
		return err
	}
	amount, err := rec.Int(catalog.FieldAmount)
	if err != nil {
		return err
	}

	var candidates []*state.CompanyState
	var names []string
	for _, c := range gs.Companies {
		if c.President == p.Name && c.TrainCount() == 0 {
			candidates = append(candidates, c)
			names = append(names, c.Name)
		}
	}
	if len(candidates) != 1 {
		return &ContributionError{Record: rec, Candidates: names}
	}

	p.Cash -= amount
	candidates[0].Cash += amount
	return nil
}

// receiveShare touches the player's shares and the company's IPO, then every
// player's value.
func (e *Engine) receiveShare(rec catalog.Record, gs *state.GameState) error {
	p, err := player(rec, gs)
	if err != nil {
		return err
	}
	c, err := company(rec, gs, catalog.FieldCompany)
	if err != nil {
		return err
	}
	count, err := e.shareCount(rec)
	if err != nil {
		return err
	}
	if err := c.ReleaseShares(state.SourceIPO, count); err != nil {
		return err
	}
	p.Shares[c.Name] += count
	gs.RecomputeValues()
	return nil
}

// receiveFunds touches the company's cash.
func (e *Engine) receiveFunds(rec catalog.Record, gs *state.GameState) error {
	c, err := company(rec, gs, catalog.FieldCompany)
	if err != nil {
		return err
	}
	amount, err := rec.Int(catalog.FieldAmount)
	if err != nil {
		return err
	}
	c.Cash += amount
	return nil
}

// presidentNomination touches the company's president, then every player's
// value.
func (e *Engine) presidentNomination(rec catalog.Record, gs *state.GameState) error {
	p, err := player(rec, gs)
	if err != nil {
		return err
	}
	c, err := company(rec, gs, catalog.FieldCompany)
	if err != nil {
		return err
	}
	c.President = p.Name
	gs.RecomputeValues()
	return nil
}

// priorityDeal touches every player's priority flag.
func (e *Engine) priorityDeal(rec catalog.Record, gs *state.GameState) error {
	holder, err := player(rec, gs)
	if err != nil {
		return err
	}
	for _, p := range gs.Players {
		p.PriorityDeal = p == holder
	}
	return nil
}

// closePrivates touches the privates of every player and company. Without a
// private field every private closes.
func (e *Engine) closePrivates(rec catalog.Record, gs *state.GameState) error {
	name := rec.Get(catalog.FieldPrivate)
	if name != "" {
		if _, ok := gs.PrivateValues[name]; !ok {
			return fmt.Errorf("record %s: unknown private %q", rec, name)
		}
	}

	closeOn := func(ent *state.Entity) {
		if name != "" {
			ent.RemovePrivate(name)
			return
		}
		for n := range ent.Privates {
			delete(ent.Privates, n)
		}
	}
	for _, p := range gs.Players {
		closeOn(&p.Entity)
	}
	for _, c := range gs.Companies {
		closeOn(&c.Entity)
	}
	return nil
}

// trainsRust touches every company's count of the rusted train type.
func (e *Engine) trainsRust(rec catalog.Record, gs *state.GameState) error {
	train := rec.Get(catalog.FieldTrain)
	for _, c := range gs.Companies {
		if _, ok := c.Trains[train]; !ok {
			return fmt.Errorf("record %s: unknown train type %q", rec, train)
		}
		c.Trains[train] = 0
	}
	return nil
}

// bankrupt touches the player's cash and bankruptcy flag.
func (e *Engine) bankrupt(rec catalog.Record, gs *state.GameState) error {
	p, err := player(rec, gs)
	if err != nil {
		return err
	}
	p.GoBankrupt()
	return nil
}
