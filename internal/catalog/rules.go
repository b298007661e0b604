package catalog

import (
	"regexp"
	"strings"
	"sync"
)

// Classification types
const (
	TypePar                 = "Par"
	TypeBuyShare            = "BuyShare"
	TypeSellShares          = "SellShares"
	TypeBuyPrivate          = "BuyPrivate"
	TypeBid                 = "Bid"
	TypePass                = "Pass"
	TypeCollect             = "Collect"
	TypeLayTile             = "LayTile"
	TypePlaceToken          = "PlaceToken"
	TypeBuyTrain            = "BuyTrain"
	TypeDiscardTrain        = "DiscardTrain"
	TypeExchangeTrain       = "ExchangeTrain"
	TypeRunTrains           = "RunTrains"
	TypePayOut              = "PayOut"
	TypeWithhold            = "Withhold"
	TypeContribute          = "Contribute"
	TypeReceiveShare        = "ReceiveShare"
	TypeReceiveFunds        = "ReceiveFunds"
	TypePresidentNomination = "PresidentNomination"
	TypePriorityDeal        = "PriorityDeal"
	TypeSharePriceMoves     = "SharePriceMoves"
	TypeFloats              = "Floats"
	TypePhaseChange         = "PhaseChange"
	TypeRoundStarts         = "RoundStarts"
	TypeAllPrivatesClose    = "AllPrivatesClose"
	TypePrivateCloses       = "PrivateCloses"
	TypeTrainsRust          = "TrainsRust"
	TypeBankBroken          = "BankBroken"
	TypePlayerGoesBankrupt  = "PlayerGoesBankrupt"
	TypeGameEndedManually   = "GameEndedManually"
)

// Terminal reports whether a record of this type ends the game when it is
// the last one in a transcript.
func Terminal(typ string) bool {
	switch typ {
	case TypeBankBroken, TypePlayerGoesBankrupt, TypeGameEndedManually:
		return true
	}
	return false
}

const (
	// subject is the leading name of a line. Chat lines read "Name: text",
	// so a name never contains a colon.
	subject = `[^:]+?`
	amount  = `\$(?P<amount>\d+)`
	result  = `(?:\. Game over: (?P<result>.+))?`
)

// sellsShares is the generic "sells shares" template. It is never
// registered itself; concrete rules narrow quantity.
func sellsShares(ruleName, quantity string) *Rule {
	return NewRule(ruleName, TypeSellShares, ParentAction,
		`^(?P<player>`+subject+`) sells `+quantity+` of (?P<company>.+?) and receives `+amount+`$`)
}

// roundLabels maps the platform's round names to sequence prefixes.
var roundLabels = map[string]string{
	"Initial Stock": "ISR",
	"Stock":         "SR",
	"Operating":     "OR",
}

func deriveSequence(r Record) {
	if prefix, ok := roundLabels[r[FieldRound]]; ok {
		r[FieldSequence] = prefix + " " + r[FieldNumber]
	}
}

// DefaultRules returns the concrete rules of the 18xx.games English log
// grammar. Lines are expected without timestamps and trimmed.
func DefaultRules() []*Rule {
	return VariantRules(nil)
}

// VariantRules is DefaultRules with PrivateCloses limited to the named
// privates. No names leaves it open to any name.
func VariantRules(privates []string) []*Rule {
	return []*Rule{
		// Stock round
		NewRule("Par", TypePar, ParentAction,
			`^(?P<player>`+subject+`) pars (?P<company>.+?) at \$(?P<share_price>\d+)$`),
		NewRule("BuyShare", TypeBuyShare, ParentAction,
			`^(?P<player>`+subject+`) buys a (?P<percentage>\d+)% share of (?P<company>.+?) from the (?P<source>IPO|market) for `+amount+`$`),
		sellsShares("SellShares", `(?P<count>\d+) shares?`),
		sellsShares("SellShare", `a (?P<percentage>\d+)% share`),
		NewRule("PriorityDeal", TypePriorityDeal, ParentEvent,
			`^(?P<player>`+subject+`) has (?:the )?priority deal$`),
		NewRule("PresidentNomination", TypePresidentNomination, ParentEvent,
			`^(?P<player>`+subject+`) becomes the president of (?P<company>.+)$`),
		NewRule("ReceiveShare", TypeReceiveShare, ParentEvent,
			`^(?P<player>`+subject+`) receives a (?P<percentage>\d+)% share of (?P<company>.+)$`),
		NewRule("SharePriceMoves", TypeSharePriceMoves, ParentEvent,
			`^(?P<company>`+subject+`)'s share price (?:moves (?P<direction>\w+) |changes )from \$(?P<old_price>\d+) to \$(?P<share_price>\d+)$`),
		NewRule("Floats", TypeFloats, ParentEvent, `^(?P<company>`+subject+`) floats$`),

		// Private auction and private sales
		NewRule("Bid", TypeBid, ParentAction,
			`^(?P<player>`+subject+`) bids `+amount+` for (?P<private>.+)$`),
		NewRule("WinAuction", TypeBuyPrivate, ParentAction,
			`^(?P<player>`+subject+`) wins the auction for (?P<private>.+?) with (?:a|the only) bid of `+amount+`$`),
		NewRule("BuyPrivateAuction", TypeBuyPrivate, ParentAction,
			`^(?P<player>`+subject+`) buys (?P<private>.+?) for `+amount+`$`).
			WithDismiss("share", "train", "from", "token"),
		NewRule("BuyPrivateFromPlayer", TypeBuyPrivate, ParentAction,
			`^(?P<company>`+subject+`) buys (?P<private>.+?) from (?P<source>.+?) for `+amount+`$`).
			WithDismiss("share", "train"),
		NewRule("Collect", TypeCollect, ParentEvent,
			`^(?P<entity>`+subject+`) collects `+amount+` from (?P<private>.+)$`),
		NewRule("Pass", TypePass, ParentAction,
			`^(?P<entity>`+subject+`) (?:passes|skips|declines)(?: (?P<step>.+))?$`).
			WithRequired("passes", "skips", "declines"),

		// Operating round
		NewRule("LayTile", TypeLayTile, ParentAction,
			`^(?P<company>`+subject+`) (?:spends `+amount+` and )?lays tile #(?P<tile>\w+) with rotation (?P<rotation>\d+) on (?P<location>.+)$`),
		NewRule("PlaceToken", TypePlaceToken, ParentAction,
			`^(?P<company>`+subject+`) places a token on (?P<location>.+?)(?: for `+amount+`)?$`),
		NewRule("RunTrains", TypeRunTrains, ParentAction,
			`^(?P<company>`+subject+`) runs an? (?P<train>\w+) train for `+amount+`: (?P<route>.+)$`),
		NewRule("PayOut", TypePayOut, ParentAction,
			`^(?P<company>`+subject+`) pays out `+amount+` = \$(?P<per_share>\d+) per share$`),
		NewRule("Withhold", TypeWithhold, ParentAction,
			`^(?P<company>`+subject+`) withholds `+amount+`$`),
		NewRule("BuyTrain", TypeBuyTrain, ParentAction,
			`^(?P<company>`+subject+`) buys an? (?P<train>\w+) train for `+amount+` from (?P<source>.+)$`),
		NewRule("DiscardTrain", TypeDiscardTrain, ParentAction,
			`^(?P<company>`+subject+`) discards an? (?P<train>\w+) train$`),
		NewRule("ExchangeTrain", TypeExchangeTrain, ParentAction,
			`^(?P<company>`+subject+`) exchanges an? (?P<old_train>\w+) train for an? (?P<train>\w+) train for `+amount+` from (?P<source>.+)$`),
		NewRule("Contribute", TypeContribute, ParentAction,
			`^(?P<player>`+subject+`) contributes `+amount+`$`),
		NewRule("ReceiveFunds", TypeReceiveFunds, ParentEvent,
			`^(?P<company>`+subject+`) receives `+amount+`$`).
			WithDismiss("sells", "and"),

		// Game flow
		NewRule("PhaseChange", TypePhaseChange, ParentEvent,
			`^-- Phase (?P<phase>\w+)(?: \((?P<detail>.+)\))? --$`),
		NewRule("RoundStarts", TypeRoundStarts, ParentEvent,
			`^-- (?P<round>Initial Stock|Stock|Operating) Round (?P<number>\d+(?:\.\d+)?)(?: \(of \d+\))? --$`).
			WithDerive(deriveSequence),
		NewRule("AllPrivatesClose", TypeAllPrivatesClose, ParentEvent,
			`^-- Event: Private companies close --$`),
		privateCloses(privates),
		NewRule("TrainsRust", TypeTrainsRust, ParentEvent,
			`^-- Event: (?P<train>\w+) trains rust(?: \((?P<detail>.+)\))? --$`),

		// Game end
		NewRule("BankBroken", TypeBankBroken, ParentEvent,
			`^-- The bank has broken\. Game over: (?P<result>.+) --$`),
		NewRule("PlayerGoesBankrupt", TypePlayerGoesBankrupt, ParentEvent,
			`^(?P<player>`+subject+`) goes bankrupt`+result+`$`),
		NewRule("GameEndedManually", TypeGameEndedManually, ParentEvent,
			`^-- Game ended manually by (?P<player>.+?)`+result+` --$`),
	}
}

// privateCloses only accepts the given private names when there are any.
func privateCloses(privates []string) *Rule {
	name := subject
	if len(privates) > 0 {
		quoted := make([]string, len(privates))
		for i, p := range privates {
			quoted[i] = regexp.QuoteMeta(p)
		}
		name = strings.Join(quoted, "|")
	}
	return NewRule("PrivateCloses", TypePrivateCloses, ParentEvent, `^(?P<private>`+name+`) closes$`)
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the shared catalog of DefaultRules.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := New(DefaultRules()...)
		if err != nil {
			panic(err)
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// ForPrivates returns a catalog of VariantRules. The rules are static, so a
// build error panics like Default.
func ForPrivates(privates []string) *Catalog {
	c, err := New(VariantRules(privates)...)
	if err != nil {
		panic(err)
	}
	return c
}
