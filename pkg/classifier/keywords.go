package classifier

import (
	"fmt"
	"strings"
)

//ScamKeywords is the static list of scam phrases, grouped by the trick they belong to
var ScamKeywords = []string{
	//prize / winner
	"you won", "you've won", "winner", "congratulations", "claim your prize", "free gift", "jackpot", "lucky draw",
	//urgency
	"limited time", "act now", "claim now", "expires today", "hurry", "last chance", "only today", "don't miss",
	//financial
	"free money", "cash prize", "bitcoin", "crypto", "investment opportunity", "guaranteed return", "double your money", "get rich",
	//clickbait
	"click here", "you won't believe", "shocking", "doctors hate", "one weird trick",
	//fake warnings
	"virus detected", "your device is infected", "security alert", "account suspended", "verify your account",
	//too good to be true
	"100% free", "risk free", "no cost", "miracle", "lose weight fast",
	//suspicious calls to action
	"download now", "install now", "call now", "tap here", "sign up free",
}

//HighRiskKeywords are phrases that on their own strongly indicate fraud, all of them are also in ScamKeywords
var HighRiskKeywords = []string{
	"you won", "claim now", "claim your prize", "free money", "guaranteed return",
	"double your money", "virus detected", "your device is infected", "account suspended", "verify your account",
}

const (
	keywordWeight       = 0.15
	highRiskWeight      = 0.35
	manyKeywordsBonus   = 0.2
	manyKeywordsMinimum = 3

	//reasons list at most this many phrases per message
	reasonPhrases = 2
)

//KeywordSet matches lower-cased text against a keyword list and its high-risk subset.
type KeywordSet struct {
	Keywords []string
	HighRisk []string
}

//DefaultKeywordSet returns the static keyword lists.
func DefaultKeywordSet() *KeywordSet {
	return NewKeywordSet(ScamKeywords, HighRiskKeywords)
}

//NewKeywordSet lower-cases and de-duplicates the given lists, keeping their order.
//Empty lists fall back to the static ones.
func NewKeywordSet(keywords, highRisk []string) *KeywordSet {
	if len(keywords) == 0 {
		keywords = ScamKeywords
	}
	if len(highRisk) == 0 {
		highRisk = HighRiskKeywords
	}
	return &KeywordSet{Keywords: normalize(keywords), HighRisk: normalize(highRisk)}
}

//TextScore is the keyword contribution of a piece of text.
type TextScore struct {
	Score    float64
	Matches  []string
	HighRisk []string
	Reasons  []string
}

//Score scans text for keywords. The score is capped at 1.0 before it is combined with anything else.
func (k *KeywordSet) Score(text string) TextScore {
	lower := strings.ToLower(text)
	res := TextScore{}
	if strings.TrimSpace(lower) == "" {
		return res
	}

	for _, kw := range k.Keywords {
		if strings.Contains(lower, kw) {
			res.Matches = append(res.Matches, kw)
		}
	}
	for _, kw := range k.HighRisk {
		if strings.Contains(lower, kw) {
			res.HighRisk = append(res.HighRisk, kw)
		}
	}

	score := keywordWeight*float64(len(res.Matches)) + highRiskWeight*float64(len(res.HighRisk))
	if len(res.Matches) > 0 {
		res.Reasons = append(res.Reasons, fmt.Sprintf("Scam keywords: %s", firstPhrases(res.Matches)))
	}
	if len(res.HighRisk) > 0 {
		res.Reasons = append(res.Reasons, fmt.Sprintf("High-risk phrases: %s", firstPhrases(res.HighRisk)))
	}
	if len(res.Matches) >= manyKeywordsMinimum {
		score += manyKeywordsBonus
		res.Reasons = append(res.Reasons, fmt.Sprintf("Multiple scam indicators (%d keywords)", len(res.Matches)))
	}
	if score > 1.0 {
		score = 1.0
	}
	res.Score = score
	return res
}

func firstPhrases(phrases []string) string {
	if len(phrases) <= reasonPhrases {
		return strings.Join(phrases, ", ")
	}
	return strings.Join(phrases[:reasonPhrases], ", ") + ", ..."
}

func normalize(list []string) []string {
	seen := make(map[string]bool, len(list))
	out := make([]string, 0, len(list))
	for _, kw := range list {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		out = append(out, kw)
	}
	return out
}
