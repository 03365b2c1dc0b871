package gaps

// Priority levels for gap definitions
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Definition is one care-gap rule: a Cypher pattern identifying entities
// missing an expected relationship within an expected time window. Every
// definition accepts $patient (nil matches all patients) and $days (lookback
// window) so the same rule serves the all-patients and per-patient paths.
type Definition struct {
	Type        string
	Priority    string
	Description string
	Cypher      string
}

// definitions is the fixed rule battery. Determinism and explainability are
// required here: gap results drive clinical outreach decisions, so every rule
// is a plain graph pattern, never a learned model.
var definitions = []Definition{
	{
		Type:        "chronic-condition-no-followup",
		Priority:    PriorityHigh,
		Description: "Patients with a chronic condition and no follow-up visit within the lookback window",
		Cypher: `
			MATCH (p:Patient)-[:HAS_DIAGNOSIS]->(d:Diagnosis)
			WHERE ($patient IS NULL OR p.name = $patient)
			  AND any(term IN ['diabetes', 'hypertension', 'copd', 'heart failure', 'chronic kidney'] WHERE toLower(d.name) CONTAINS term)
			  AND NOT EXISTS {
			      MATCH (p)-[v:VISITED]->()
			      WHERE v.extractedAt >= datetime() - duration({days: $days})
			  }
			RETURN DISTINCT p.name AS patient, d.name AS diagnosis`,
	},
	{
		Type:        "diabetes-hba1c-overdue",
		Priority:    PriorityHigh,
		Description: "Diabetic patients with no HbA1c test ordered or performed",
		Cypher: `
			MATCH (p:Patient)-[:HAS_DIAGNOSIS]->(d:Diagnosis)
			WHERE ($patient IS NULL OR p.name = $patient)
			  AND toLower(d.name) CONTAINS 'diabetes'
			  AND NOT EXISTS {
			      MATCH (p)-[:VISITED]->()-[:ORDERED|PERFORMED]->(proc:Procedure)
			      WHERE toLower(proc.name) CONTAINS 'a1c'
			  }
			RETURN DISTINCT p.name AS patient, d.name AS diagnosis`,
	},
	{
		Type:        "prior-auth-outstanding",
		Priority:    PriorityMedium,
		Description: "Prescribed medications requiring prior authorization without an approved status",
		Cypher: `
			MATCH (p:Patient)-[rx:PRESCRIBED]->(m:Medication)
			WHERE ($patient IS NULL OR p.name = $patient)
			  AND ( (m)-[:REQUIRES_PA]->() OR coalesce(rx.priorAuthStatus, '') IN ['pending', 'denied'] )
			  AND coalesce(rx.priorAuthStatus, '') <> 'approved'
			RETURN DISTINCT p.name AS patient, m.name AS medication, coalesce(rx.priorAuthStatus, 'unknown') AS priorAuthStatus`,
	},
	{
		Type:        "referral-not-completed",
		Priority:    PriorityMedium,
		Description: "Referrals with no corresponding visit to the referred provider or facility",
		Cypher: `
			MATCH (p:Patient)-[:REFERRED_TO]->(target)
			WHERE ($patient IS NULL OR p.name = $patient)
			  AND NOT (p)-[:VISITED]->(target)
			RETURN DISTINCT p.name AS patient, target.name AS referredTo`,
	},
	{
		Type:        "care-program-enrollment-missing",
		Priority:    PriorityLow,
		Description: "Chronic-condition patients not enrolled in any care program",
		Cypher: `
			MATCH (p:Patient)-[:HAS_DIAGNOSIS]->(d:Diagnosis)
			WHERE ($patient IS NULL OR p.name = $patient)
			  AND any(term IN ['diabetes', 'hypertension', 'copd', 'heart failure', 'chronic kidney'] WHERE toLower(d.name) CONTAINS term)
			  AND NOT (p)-[:ENROLLED_IN]->()
			RETURN DISTINCT p.name AS patient, d.name AS diagnosis`,
	},
}

// Definitions returns the fixed gap rule battery
func Definitions() []Definition {
	return definitions
}
