package transition

import (
	"fmt"
	"sort"

	"railreplay/internal/catalog"
	"railreplay/internal/config"
	"railreplay/internal/log"
	"railreplay/internal/state"
)

// Procedure applies one classified record to the game state.
type Procedure func(rec catalog.Record, gs *state.GameState) error

// Engine maps record types to procedures. The table is explicit: a type
// with no entry is an error, and record types that change nothing are
// registered against a shared no-op.
type Engine struct {
	procedures   map[string]Procedure
	depot        string
	sharePercent int
}

// New builds the engine for a variant.
func New(v *config.Variant) *Engine {
	e := &Engine{depot: v.Depot, sharePercent: v.SharePercent()}
	e.procedures = map[string]Procedure{
		catalog.TypePayOut:              e.payOut,
		catalog.TypeWithhold:            e.withhold,
		catalog.TypeBuyShare:            e.buyShare,
		catalog.TypeSellShares:          e.sellShares,
		catalog.TypePar:                 e.par,
		catalog.TypeBuyPrivate:          e.buyPrivate,
		catalog.TypeCollect:             e.collect,
		catalog.TypeLayTile:             e.spend,
		catalog.TypePlaceToken:          e.spend,
		catalog.TypeBuyTrain:            e.buyTrain,
		catalog.TypeDiscardTrain:        e.discardTrain,
		catalog.TypeExchangeTrain:       e.exchangeTrain,
		catalog.TypeContribute:          e.contribute,
		catalog.TypeReceiveShare:        e.receiveShare,
		catalog.TypeReceiveFunds:        e.receiveFunds,
		catalog.TypeSharePriceMoves:     e.par,
		catalog.TypePresidentNomination: e.presidentNomination,
		catalog.TypePriorityDeal:        e.priorityDeal,
		catalog.TypeAllPrivatesClose:    e.closePrivates,
		catalog.TypePrivateCloses:       e.closePrivates,
		catalog.TypeTrainsRust:          e.trainsRust,
		catalog.TypePlayerGoesBankrupt:  e.bankrupt,

		catalog.TypeBid:               noop,
		catalog.TypePass:              noop,
		catalog.TypeRunTrains:         noop,
		catalog.TypeFloats:            noop,
		catalog.TypePhaseChange:       noop,
		catalog.TypeRoundStarts:       noop,
		catalog.TypeBankBroken:        noop,
		catalog.TypeGameEndedManually: noop,
	}
	return e
}

// Types lists every record type the engine handles, sorted.
func (e *Engine) Types() []string {
	types := make([]string, 0, len(e.procedures))
	for t := range e.procedures {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Apply runs the procedure registered for the record's type.
func (e *Engine) Apply(rec catalog.Record, gs *state.GameState) error {
	proc, ok := e.procedures[rec.Type()]
	if !ok {
		return &UnknownTypeError{Type: rec.Type()}
	}
	if err := proc(rec, gs); err != nil {
		return err
	}
	log.Debug("applied record", "id", rec.Get(catalog.FieldID), "type", rec.Type())
	return nil
}

func noop(catalog.Record, *state.GameState) error { return nil }

func player(rec catalog.Record, gs *state.GameState) (*state.PlayerState, error) {
	name := rec.Get(catalog.FieldPlayer)
	p := gs.Player(name)
	if p == nil {
		return nil, fmt.Errorf("record %s: unknown player %q", rec, name)
	}
	return p, nil
}

func company(rec catalog.Record, gs *state.GameState, field string) (*state.CompanyState, error) {
	name := rec.Get(field)
	c := gs.Company(name)
	if c == nil {
		return nil, fmt.Errorf("record %s: unknown company %q", rec, name)
	}
	return c, nil
}

// shareCount reads an explicit share count, falling back to a percentage.
func (e *Engine) shareCount(rec catalog.Record) (int, error) {
	if rec.Has(catalog.FieldCount) {
		return rec.Int(catalog.FieldCount)
	}
	pct, err := rec.Int(catalog.FieldPercentage)
	if err != nil {
		return 0, err
	}
	return pct / e.sharePercent, nil
}
