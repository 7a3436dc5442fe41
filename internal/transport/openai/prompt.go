package openai

import (
	"encoding/json"
	"fmt"

	"github.com/casainvest/renoplan/internal/domain/location"
)

// promptTemplate is the consultation instruction sent once per candidate.
// The engine answers in Romanian with the JSON document the template
// prescribes; the score extraction and ranking layers depend on the
// analiza_investitie.scor_investitie field being where this schema puts it.
const promptTemplate = `ACȚIONEAZĂ CA UN CONSULTANT SENIOR ÎN INVESTIȚII IMOBILIARE.

CONTEXT:
- Cerința utilizatorului: "%s" (Extrage de aici bugetul maxim disponibil).
- Datele complete ale proprietății de analizat: %s

MISIUNEA TA:
Evaluează fezabilitatea renovării conform bugetului. Generează o analiză complexă în format JSON valid.
Pe lângă planul de acțiune și analizele detaliate, calculează un "scor_investitie" de la 0.0 la 100.0, unde 100.0 reprezintă o potrivire perfectă între buget, starea proprietății și potențialul de profit. Un scor mic indică o investiție nepotrivită sau riscantă.

STRUCTURA JSON DE IEȘIRE OBLIGATORIE:
Respectă *strict* următoarea structură arborescentă JSON:

` + "```json\n" + `{
  "analiza_investitie": {
    "nume_locatie": "string",
    "scor_investitie": "number",
    "buget_client_eur": "number",
    "cost_estimat_renovare_eur": "number",
    "verdict": {
      "status": "string (Potrivit/Nepotrivit/Necesită Atenție)",
      "rezumat": "string",
      "recomandare_principala": "string"
    },
    "plan_de_actiune": {
      "tip_plan": "string",
      "elemente_de_executat": [
        {
          "element": "string",
          "stare": "string",
          "cost_estimat_element_eur": "number",
          "prioritate": "string (Critic/Major/Mediu)"
        }
      ],
      "elemente_amanate": [
        {
          "element": "string",
          "stare": "string",
          "cost_estimat_element_eur": "number",
          "prioritate": "string (Critic/Major/Mediu)"
        }
      ]
    },
    "analiza_financiara": {
      "cost_estimat_total_eur": "number",
      "buget_disponibil_eur": "number",
      "fond_de_rezerva_recomandat_procent": "number",
      "fond_de_rezerva_recomandat_eur": "number",
      "cost_total_proiectat_eur": "number",
      "surplus_bugetar_estimat_eur": "number",
      "observatii_financiare": "string"
    },
    "analiza_de_risc": {
      "nivel_risc_general": "string (Scăzut/Mediu/Ridicat)",
      "riscuri_identificate": [
        {
          "risc": "string",
          "descriere": "string",
          "mitigare": "string"
        }
      ]
    },
    "planificare_si_etape": {
      "durata_estimata_saptamani": "string",
      "etape_recomandate": [
        {
          "etapa": "number",
          "nume": "string",
          "descriere": "string"
        }
      ]
    }
  }
}
`

// buildPrompt renders the consultation prompt for one candidate property.
func buildPrompt(brief string, loc *location.Location) string {
	return fmt.Sprintf(promptTemplate, brief, propertyContext(loc))
}

// propertyContext rebuilds the document the engine analyzes: the stored
// payload with the catalog name stamped in under nume_locatie, pretty
// printed. Non-object payloads go through untouched.
func propertyContext(loc *location.Location) string {
	payload := loc.Payload()
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(payload, &fields); err != nil {
		return string(payload)
	}

	name, err := json.Marshal(loc.Name())
	if err != nil {
		return string(payload)
	}
	fields["nume_locatie"] = name

	pretty, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return string(payload)
	}
	return string(pretty)
}
