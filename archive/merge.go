package archive

import (
	"time"

	"github.com/nicksriv/leadflow/profile"
)

// fromProfile maps a freshly extracted profile onto an archive row shape.
func fromProfile(ownerID, url string, p profile.Profile) Archived {
	scraped := p.ScrapedAt
	if scraped.IsZero() {
		scraped = time.Now().UTC()
	}
	return Archived{
		OwnerID:       ownerID,
		URL:           url,
		NormalizedURL: profile.NormalizeURL(url),
		Name:          p.Name,
		Headline:      p.Headline,
		Location:      p.Location,
		Company:       p.Company,
		Email:         p.Email,
		Avatar:        p.AvatarURL,
		About:         p.About,
		Skills:        p.Skills,
		ScrapedAt:     scraped,
	}
}

// merge folds an incoming row into an existing one. Scalar fields follow
// "new value wins if non-empty, else keep old". Email follows the
// non-regression policy in mergeEmail. Identity fields (ID, owner, URL,
// version) stay with the existing row.
func merge(old, incoming Archived) Archived {
	out := old
	out.Name = pick(incoming.Name, old.Name)
	out.Headline = pick(incoming.Headline, old.Headline)
	out.Location = pick(incoming.Location, old.Location)
	out.Company = pick(incoming.Company, old.Company)
	out.Avatar = pick(incoming.Avatar, old.Avatar)
	out.About = pick(incoming.About, old.About)
	if len(incoming.Skills) > 0 {
		out.Skills = incoming.Skills
	}
	out.Email = mergeEmail(old.Email, incoming.Email)
	out.ScrapedAt = incoming.ScrapedAt
	return out
}

// mergeEmail prefers whichever side is Real. When both are Real the new
// address wins (most recent authoritative data). When neither is Real the
// incoming tag stands — but a Real value never regresses.
func mergeEmail(old, incoming profile.Email) profile.Email {
	switch {
	case incoming.IsReal():
		return incoming
	case old.IsReal():
		return old
	default:
		return incoming
	}
}

func pick(incoming, old string) string {
	if incoming != "" {
		return incoming
	}
	return old
}
