package state

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// EncodingVersion is the only snapshot layout Decode accepts.
const EncodingVersion = 1

type document struct {
	Version     int              `yaml:"version"`
	TotalShares int              `yaml:"total_shares"`
	TrainTypes  []string         `yaml:"train_types"`
	Privates    map[string]int   `yaml:"privates"`
	Players     *[]playerRecord  `yaml:"players"`
	Companies   *[]companyRecord `yaml:"companies"`
}

type playerRecord struct {
	Name         string         `yaml:"name"`
	Cash         int            `yaml:"cash"`
	Value        int            `yaml:"value"`
	Shares       map[string]int `yaml:"shares"`
	Privates     map[string]int `yaml:"privates,omitempty"`
	PriorityDeal bool           `yaml:"priority_deal"`
	Bankrupt     bool           `yaml:"bankrupt"`
}

type companyRecord struct {
	Name       string         `yaml:"name"`
	Cash       int            `yaml:"cash"`
	IPO        int            `yaml:"ipo"`
	Market     int            `yaml:"market"`
	President  string         `yaml:"president,omitempty"`
	SharePrice int            `yaml:"share_price"`
	Trains     map[string]int `yaml:"trains"`
	Privates   map[string]int `yaml:"privates,omitempty"`
}

// Encode writes the state as a versioned YAML document.
func Encode(gs *GameState) ([]byte, error) {
	players := make([]playerRecord, 0, len(gs.Players))
	for _, p := range gs.Players {
		players = append(players, playerRecord{
			Name:         p.Name,
			Cash:         p.Cash,
			Value:        p.Value,
			Shares:       p.Shares,
			Privates:     p.Privates,
			PriorityDeal: p.PriorityDeal,
			Bankrupt:     p.Bankrupt,
		})
	}
	companies := make([]companyRecord, 0, len(gs.Companies))
	for _, c := range gs.Companies {
		companies = append(companies, companyRecord{
			Name:       c.Name,
			Cash:       c.Cash,
			IPO:        c.IPO,
			Market:     c.Market,
			President:  c.President,
			SharePrice: c.SharePrice,
			Trains:     c.Trains,
			Privates:   c.Privates,
		})
	}

	data, err := yaml.Marshal(document{
		Version:     EncodingVersion,
		TotalShares: gs.TotalShares,
		TrainTypes:  gs.TrainTypes,
		Privates:    gs.PrivateValues,
		Players:     &players,
		Companies:   &companies,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}
	return data, nil
}

// Decode reads a document produced by Encode. Unknown versions, unknown
// keys and missing player or company lists are rejected.
func Decode(data []byte) (*GameState, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	if doc.Version != EncodingVersion {
		return nil, fmt.Errorf("unsupported state version %d (want %d)", doc.Version, EncodingVersion)
	}
	if doc.Players == nil || doc.Companies == nil {
		return nil, errors.New("state document needs both players and companies")
	}

	gs := &GameState{
		PrivateValues: nonNil(doc.Privates),
		TotalShares:   doc.TotalShares,
		TrainTypes:    doc.TrainTypes,
	}
	for _, p := range *doc.Players {
		gs.Players = append(gs.Players, &PlayerState{
			Entity:       Entity{Name: p.Name, Cash: p.Cash, Privates: nonNil(p.Privates)},
			Value:        p.Value,
			Shares:       nonNil(p.Shares),
			PriorityDeal: p.PriorityDeal,
			Bankrupt:     p.Bankrupt,
		})
	}
	for _, c := range *doc.Companies {
		gs.Companies = append(gs.Companies, &CompanyState{
			Entity:     Entity{Name: c.Name, Cash: c.Cash, Privates: nonNil(c.Privates)},
			Trains:     nonNil(c.Trains),
			IPO:        c.IPO,
			Market:     c.Market,
			President:  c.President,
			SharePrice: c.SharePrice,
		})
	}
	return gs, nil
}

func nonNil(m map[string]int) map[string]int {
	if m == nil {
		return make(map[string]int)
	}
	return m
}

// Nested renders the state as plain nested maps keyed by entity name, the
// shape the verification step compares against ground truth.
func Nested(gs *GameState) map[string]any {
	players := make(map[string]any, len(gs.Players))
	for _, p := range gs.Players {
		players[p.Name] = map[string]any{
			"cash":          p.Cash,
			"value":         p.Value,
			"shares":        intMap(p.Shares),
			"privates":      intMap(p.Privates),
			"priority_deal": p.PriorityDeal,
			"bankrupt":      p.Bankrupt,
		}
	}
	companies := make(map[string]any, len(gs.Companies))
	for _, c := range gs.Companies {
		companies[c.Name] = map[string]any{
			"cash":        c.Cash,
			"ipo":         c.IPO,
			"market":      c.Market,
			"president":   c.President,
			"share_price": c.SharePrice,
			"trains":      intMap(c.Trains),
			"privates":    intMap(c.Privates),
		}
	}
	return map[string]any{"players": players, "companies": companies}
}

func intMap(m map[string]int) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
