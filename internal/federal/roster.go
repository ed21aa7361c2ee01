package federal

import (
	"encoding/json"
	"io"
	"strings"
)

// Wire shapes of the congress-legislators datasets. Only the fields we read are declared.
type person struct {
	ID struct {
		Bioguide string `json:"bioguide"`
	} `json:"id"`
	Name struct {
		First        string `json:"first"`
		Last         string `json:"last"`
		OfficialFull string `json:"official_full"`
	} `json:"name"`
	Terms []term `json:"terms"`
}

type term struct {
	Type        string `json:"type"`
	State       string `json:"state"`
	District    *int   `json:"district"`
	Party       string `json:"party"`
	StateRank   string `json:"state_rank"`
	Phone       string `json:"phone"`
	URL         string `json:"url"`
	ContactForm string `json:"contact_form"`
	Address     string `json:"address"`
}

// current is the last term on record. Earlier terms are never consulted.
func (p person) current() (term, bool) {
	if len(p.Terms) == 0 {
		return term{}, false
	}
	return p.Terms[len(p.Terms)-1], true
}

func (p person) displayName() string {
	if p.Name.OfficialFull != "" {
		return p.Name.OfficialFull
	}
	return strings.TrimSpace(p.Name.First + " " + p.Name.Last)
}

var partyNames = map[string]string{"D": "Democrat", "R": "Republican", "I": "Independent"}

func partyName(code string) string {
	if n, ok := partyNames[code]; ok {
		return n
	}
	return code
}

func (p person) legislator(t term) Legislator {
	l := Legislator{
		Name:        p.displayName(),
		Party:       partyName(t.Party),
		Phone:       t.Phone,
		Website:     t.URL,
		ContactForm: t.ContactForm,
		DCAddress:   t.Address,
		Bioguide:    p.ID.Bioguide,
		State:       t.State,
		Rank:        t.StateRank,
	}
	if t.District != nil {
		d := *t.District
		l.District = &d
	}
	return l
}

type officeEntry struct {
	ID struct {
		Bioguide string `json:"bioguide"`
	} `json:"id"`
	Offices []Office `json:"offices"`
}

// decodeOffices indexes the district office dataset by bioguide id.
func decodeOffices(r io.Reader) (map[string][]Office, error) {
	var entries []officeEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, err
	}
	idx := make(map[string][]Office, len(entries))
	for _, e := range entries {
		if e.ID.Bioguide == "" {
			continue
		}
		if _, seen := idx[e.ID.Bioguide]; !seen {
			idx[e.ID.Bioguide] = e.Offices
		}
	}
	return idx, nil
}
