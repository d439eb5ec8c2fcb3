package onboarding

// ProfileScorer computes the completion percentage stored on profile
// rows. Scores are recomputed after provisioning links assets and
// whenever a profile is edited, so the stored value is a cache of the
// latest pass, never an accumulator.
type ProfileScorer interface {
	ScoreCandidate(p *CandidateProfile) int
	ScoreCompany(p *CompanyProfile) int
	ScoreNgo(p *NgoProfile) int
}

type defaultScorer struct{}

// NewProfileScorer returns the built-in percentage scorer: each
// optional field contributes an equal share on top of a base granted
// for the required fields.
func NewProfileScorer() ProfileScorer {
	return defaultScorer{}
}

func (defaultScorer) ScoreCandidate(p *CandidateProfile) int {
	if p == nil {
		return 0
	}
	return scoreParts(
		p.FirstName != "" && p.LastName != "",
		p.Phone != "",
		p.Headline != "",
		p.CVKey != "",
		p.VideoKey != "",
	)
}

func (defaultScorer) ScoreCompany(p *CompanyProfile) int {
	if p == nil {
		return 0
	}
	return scoreParts(
		p.Name != "",
		p.Phone != "",
		p.Website != "",
		p.LogoKey != "",
	)
}

func (defaultScorer) ScoreNgo(p *NgoProfile) int {
	if p == nil {
		return 0
	}
	return scoreParts(
		p.Name != "",
		p.Phone != "",
		p.RegistrationNumber != "",
		p.LogoKey != "",
	)
}

func scoreParts(parts ...bool) int {
	if len(parts) == 0 {
		return 0
	}
	filled := 0
	for _, ok := range parts {
		if ok {
			filled++
		}
	}
	return filled * 100 / len(parts)
}

func normalizeScorer(s ProfileScorer) ProfileScorer {
	if s == nil {
		return defaultScorer{}
	}
	return s
}
