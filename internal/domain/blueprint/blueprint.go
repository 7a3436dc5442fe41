// Package blueprint defines the per-location consultation outcome: the raw
// JSON plan produced by the analysis engine plus the fields extracted from
// it for ranking. The raw document is returned to clients verbatim.
package blueprint

import (
	"encoding/json"
	"fmt"
)

// ScorePath documents where the ranking score lives inside the plan.
const ScorePath = "analiza_investitie.scor_investitie"

// FailureStatus is the verdict status stamped on locally synthesized plans.
const FailureStatus = "Eroare la Analiza"

// Blueprint is one location's renovation plan (immutable value object).
type Blueprint struct {
	locationName string
	doc          json.RawMessage
	score        float64
	failed       bool
}

// New creates a Blueprint from an engine-produced JSON document.
// The investment score is read from analiza_investitie.scor_investitie;
// a missing or non-numeric score ranks as 0 and the document is kept as is.
func New(locationName string, doc []byte) (Blueprint, error) {
	if !json.Valid(doc) {
		return Blueprint{}, fmt.Errorf("blueprint document must be valid JSON")
	}
	return Blueprint{
		locationName: locationName,
		doc:          doc,
		score:        extractScore(doc),
	}, nil
}

// NewFailure synthesizes the fixed error plan for a location whose analysis
// failed. The shape mirrors a successful plan so clients can render both
// uniformly; the score is 0 so failures rank last.
func NewFailure(locationName, cause string) Blueprint {
	doc := failureDoc{}
	doc.Analysis.LocationName = locationName
	doc.Analysis.Score = 0.0
	doc.Analysis.Verdict.Status = FailureStatus
	doc.Analysis.Verdict.Summary = "A apărut o eroare tehnică în timpul generării planului: " + cause
	doc.Analysis.Verdict.MainRecommendation = "Verifică consola serverului pentru detalii sau încearcă din nou."
	doc.Analysis.ActionPlan.PlanType = "N/A"
	doc.Analysis.ActionPlan.ToExecute = []struct{}{}
	doc.Analysis.ActionPlan.Deferred = []struct{}{}
	doc.Analysis.Financial.Notes = "N/A"
	doc.Analysis.Risk.OverallLevel = "N/A"
	doc.Analysis.Risk.Identified = []struct{}{}
	doc.Analysis.Timeline.EstimatedWeeks = "N/A"
	doc.Analysis.Timeline.Stages = []struct{}{}

	raw, err := json.Marshal(doc)
	if err != nil {
		raw = []byte(`{"analiza_investitie":{"nume_locatie":"","scor_investitie":0}}`)
	}
	return Blueprint{locationName: locationName, doc: raw, failed: true}
}

// LocationName returns the catalog name this plan belongs to.
func (b *Blueprint) LocationName() string { return b.locationName }

// Doc returns the raw plan document.
func (b *Blueprint) Doc() json.RawMessage { return b.doc }

// Score returns the extracted investment score (0 when absent).
func (b *Blueprint) Score() float64 { return b.score }

// Failed reports whether the plan was synthesized after an engine failure.
func (b *Blueprint) Failed() bool { return b.failed }

// extractScore pulls the investment score out of an engine document.
// Anything other than a JSON number at the score path yields 0.
func extractScore(doc []byte) float64 {
	var probe struct {
		Analysis struct {
			Score json.Number `json:"scor_investitie"`
		} `json:"analiza_investitie"`
	}
	if err := json.Unmarshal(doc, &probe); err != nil {
		return 0
	}
	score, err := probe.Analysis.Score.Float64()
	if err != nil {
		return 0
	}
	return score
}

// failureDoc is the wire shape of a synthesized error plan. Field names
// match the engine's output contract so both kinds of plan parse alike.
type failureDoc struct {
	Analysis struct {
		LocationName   string  `json:"nume_locatie"`
		Score          float64 `json:"scor_investitie"`
		ClientBudget   int     `json:"buget_client_eur"`
		RenovationCost int     `json:"cost_estimat_renovare_eur"`
		Verdict        struct {
			Status             string `json:"status"`
			Summary            string `json:"rezumat"`
			MainRecommendation string `json:"recomandare_principala"`
		} `json:"verdict"`
		ActionPlan struct {
			PlanType  string     `json:"tip_plan"`
			ToExecute []struct{} `json:"elemente_de_executat"`
			Deferred  []struct{} `json:"elemente_amanate"`
		} `json:"plan_de_actiune"`
		Financial struct {
			Notes string `json:"observatii_financiare"`
		} `json:"analiza_financiara"`
		Risk struct {
			OverallLevel string     `json:"nivel_risc_general"`
			Identified   []struct{} `json:"riscuri_identificate"`
		} `json:"analiza_de_risc"`
		Timeline struct {
			EstimatedWeeks string     `json:"durata_estimata_saptamani"`
			Stages         []struct{} `json:"etape_recomandate"`
		} `json:"planificare_si_etape"`
	} `json:"analiza_investitie"`
}
