package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rule(t *testing.T, name string) *Rule {
	t.Helper()
	r, ok := Default().Rule(name)
	require.True(t, ok, "rule %s should be registered", name)
	return r
}

func TestRuleExtraction(t *testing.T) {
	tests := []struct {
		rule string
		line string
		want Record
	}{
		{"BuyShare", "player1 buys a 20% share of B&O from the IPO for $200",
			Record{"type": "BuyShare", "parent": "Action", "player": "player1", "percentage": "20", "company": "B&O", "source": "IPO", "amount": "200"}},
		{"Withhold", "B&O withholds $80",
			Record{"type": "Withhold", "parent": "Action", "company": "B&O", "amount": "80"}},
		{"Par", "Alice pars PRR at $67",
			Record{"type": "Par", "parent": "Action", "player": "Alice", "company": "PRR", "share_price": "67"}},
		{"SellShares", "Bob sells 3 shares of NYC and receives $270",
			Record{"type": "SellShares", "parent": "Action", "player": "Bob", "count": "3", "company": "NYC", "amount": "270"}},
		{"SellShare", "Bob sells a 10% share of NYC and receives $90",
			Record{"type": "SellShares", "parent": "Action", "player": "Bob", "percentage": "10", "company": "NYC", "amount": "90"}},
		{"BuyPrivateAuction", "Alice buys Schuylkill Valley for $20",
			Record{"type": "BuyPrivate", "parent": "Action", "player": "Alice", "private": "Schuylkill Valley", "amount": "20"}},
		{"BuyPrivateFromPlayer", "PRR buys Camden & Amboy from Bob for $320",
			Record{"type": "BuyPrivate", "parent": "Action", "company": "PRR", "private": "Camden & Amboy", "source": "Bob", "amount": "320"}},
		{"LayTile", "PRR spends $80 and lays tile #57 with rotation 1 on H10 (Pittsburgh)",
			Record{"type": "LayTile", "parent": "Action", "company": "PRR", "amount": "80", "tile": "57", "rotation": "1", "location": "H10 (Pittsburgh)"}},
		{"LayTile", "PRR lays tile #9 with rotation 0 on G11",
			Record{"type": "LayTile", "parent": "Action", "company": "PRR", "tile": "9", "rotation": "0", "location": "G11"}},
		{"PlaceToken", "NYC places a token on E19 (Albany) for $40",
			Record{"type": "PlaceToken", "parent": "Action", "company": "NYC", "location": "E19 (Albany)", "amount": "40"}},
		{"PlaceToken", "NYC places a token on E19 (Albany)",
			Record{"type": "PlaceToken", "parent": "Action", "company": "NYC", "location": "E19 (Albany)"}},
		{"BuyTrain", "NYC buys a 3 train for $250 from PRR",
			Record{"type": "BuyTrain", "parent": "Action", "company": "NYC", "train": "3", "amount": "250", "source": "PRR"}},
		{"ExchangeTrain", "PRR exchanges a 4 train for a D train for $800 from The Depot",
			Record{"type": "ExchangeTrain", "parent": "Action", "company": "PRR", "old_train": "4", "train": "D", "amount": "800", "source": "The Depot"}},
		{"PayOut", "PRR pays out $140 = $14 per share",
			Record{"type": "PayOut", "parent": "Action", "company": "PRR", "amount": "140", "per_share": "14"}},
		{"Pass", "Alice passes",
			Record{"type": "Pass", "parent": "Action", "entity": "Alice"}},
		{"Pass", "PRR skips buy trains",
			Record{"type": "Pass", "parent": "Action", "entity": "PRR", "step": "buy trains"}},
		{"SharePriceMoves", "PRR's share price moves right from $67 to $71",
			Record{"type": "SharePriceMoves", "parent": "Event", "company": "PRR", "direction": "right", "old_price": "67", "share_price": "71"}},
		{"SharePriceMoves", "B&O's share price changes from $100 to $90",
			Record{"type": "SharePriceMoves", "parent": "Event", "company": "B&O", "old_price": "100", "share_price": "90"}},
		{"RoundStarts", "-- Operating Round 4.2 (of 2) --",
			Record{"type": "RoundStarts", "parent": "Event", "round": "Operating", "number": "4.2", "sequence": "OR 4.2"}},
		{"RoundStarts", "-- Initial Stock Round 1 --",
			Record{"type": "RoundStarts", "parent": "Event", "round": "Initial Stock", "number": "1", "sequence": "ISR 1"}},
		{"PhaseChange", "-- Phase 3 (Operating Rounds: 2 | Train Limit: 4 | Available Tiles: Yellow, Green) --",
			Record{"type": "PhaseChange", "parent": "Event", "phase": "3", "detail": "Operating Rounds: 2 | Train Limit: 4 | Available Tiles: Yellow, Green"}},
		{"TrainsRust", "-- Event: 2 trains rust ( PRR x1, B&O x2) --",
			Record{"type": "TrainsRust", "parent": "Event", "train": "2", "detail": " PRR x1, B&O x2"}},
		{"GameEndedManually", "-- Game ended manually by Alice --",
			Record{"type": "GameEndedManually", "parent": "Event", "player": "Alice"}},
		{"GameEndedManually", "-- Game ended manually by Alice. Game over: Alice ($900), Bob ($700) --",
			Record{"type": "GameEndedManually", "parent": "Event", "player": "Alice", "result": "Alice ($900), Bob ($700)"}},
		{"PlayerGoesBankrupt", "Bob goes bankrupt",
			Record{"type": "PlayerGoesBankrupt", "parent": "Event", "player": "Bob"}},
	}

	for _, tt := range tests {
		t.Run(tt.rule+"/"+tt.line, func(t *testing.T) {
			got := rule(t, tt.rule).Match(tt.line)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDismissWordsPrecedePattern(t *testing.T) {
	for _, r := range Default().Rules() {
		for _, word := range r.Dismiss {
			// A line built to satisfy the broadest reading of any rule still
			// carries the dismiss word and must be rejected.
			line := "x buys " + word + " from y for $1"
			assert.Nil(t, r.Match(line), "rule %s matched %q despite dismiss word %q", r.Name, line, word)
		}
	}

	auction := rule(t, "BuyPrivateAuction")
	assert.Nil(t, auction.Match("player1 buys a 20% share of B&O from the IPO for $200"))
	assert.Nil(t, auction.Match("PRR buys Camden & Amboy from Bob for $320"))
	assert.NotNil(t, auction.Match("Alice buys Timeshare Valley for $20"), "dismiss words must match whole words only")

	funds := rule(t, "ReceiveFunds")
	assert.Nil(t, funds.Match("Bob sells 2 shares of NYC and receives $140"))
	assert.NotNil(t, funds.Match("B&O receives $100"))
}

func TestRequiredWordsGate(t *testing.T) {
	r := NewRule("Anything", "Anything", ParentEvent, `^(?P<entity>.+)$`).WithRequired("passes")

	assert.Nil(t, r.Match("Alice bids $5 for X"))
	assert.Nil(t, r.Match("Alice passesby"), "required word must be whole")
	assert.NotNil(t, r.Match("Alice passes"))
}

func TestDismissBeatsRequired(t *testing.T) {
	r := NewRule("Both", "Both", ParentEvent, `passes`).
		WithRequired("passes").
		WithDismiss("Alice")

	assert.Nil(t, r.Match("Alice passes"))
	assert.NotNil(t, r.Match("Bob passes"))
}

func TestSellsSharesTemplateIsNotRegistered(t *testing.T) {
	generic := sellsShares("GenericSells", `.+`)
	require.NotNil(t, generic.Match("Bob sells 3 shares of NYC and receives $270"))

	_, ok := Default().Rule("GenericSells")
	assert.False(t, ok)
	for _, r := range Default().Rules() {
		assert.NotEqual(t, generic.Pattern.String(), r.Pattern.String(), "generic template registered as %s", r.Name)
	}
}

func TestChatLinesMatchNoRule(t *testing.T) {
	chat := []string{
		"Carol: ok he passes",
		"Carol: the bar closes",
		"Carol: B&O withholds $80 again",
		"Bob: I contributes $50 lol",
	}
	for _, line := range chat {
		for _, r := range Default().Rules() {
			assert.Nil(t, r.Match(line), "rule %s matched chat line %q", r.Name, line)
		}
	}

	runs := rule(t, "RunTrains")
	assert.NotNil(t, runs.Match("PRR runs a 2 train for $50: H12-G11"), "route colons follow the company")
}

func TestPrivateClosesNarrowsToVariant(t *testing.T) {
	c := ForPrivates([]string{"Schuylkill Valley", "Camden & Amboy"})
	r, ok := c.Rule("PrivateCloses")
	require.True(t, ok)

	assert.Equal(t, Record{"type": "PrivateCloses", "parent": "Event", "private": "Camden & Amboy"}, r.Match("Camden & Amboy closes"))
	assert.Nil(t, r.Match("the bar closes"))
	assert.Nil(t, r.Match("Camden closes"))

	generic := rule(t, "PrivateCloses")
	assert.NotNil(t, generic.Match("the bar closes"), "the default catalog knows no privates")
	assert.Equal(t, Default().Types(), c.Types())
}

func TestNewRejectsDuplicatesAndIncompleteRules(t *testing.T) {
	a := NewRule("A", "A", ParentAction, `a`)

	_, err := New(a, a)
	assert.ErrorContains(t, err, "duplicate rule A")

	_, err = New(&Rule{Name: "B"})
	assert.Error(t, err)

	_, err = New(NewRule("C", "C", "Neither", `c`))
	assert.ErrorContains(t, err, "parent")
}

func TestTerminalTypes(t *testing.T) {
	assert.True(t, Terminal(TypeBankBroken))
	assert.True(t, Terminal(TypePlayerGoesBankrupt))
	assert.True(t, Terminal(TypeGameEndedManually))
	assert.False(t, Terminal(TypePass))
}

func TestRecordHelpers(t *testing.T) {
	r := Record{"type": "Withhold", "parent": "Action", "company": "B&O", "amount": "80"}

	n, err := r.Int("amount")
	require.NoError(t, err)
	assert.Equal(t, 80, n)

	_, err = r.Int("missing")
	assert.Error(t, err)

	def, err := r.IntOr("missing", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, def)

	_, err = Record{"amount": "eighty"}.Int("amount")
	assert.Error(t, err)

	assert.Equal(t, "{amount: 80, company: B&O, parent: Action, type: Withhold}", r.String())

	c := r.Clone()
	c["amount"] = "1"
	assert.Equal(t, "80", r["amount"])
}
