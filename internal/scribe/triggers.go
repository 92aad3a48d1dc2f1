// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

package scribe

import "strings"

// trigger is a decision-indicating phrase. Matching one lets a candidate
// through Tier 1 even when it sits below the similarity threshold, so
// phrasing the exemplar set never saw still gets captured.
type trigger struct {
	phrase   string
	language string
}

// triggerTable is the localized capture-trigger set. Phrases are matched
// as case-insensitive substrings.
var triggerTable = []trigger{
	{"we decided to", "en"},
	{"we decided against", "en"},
	{"we chose", "en"},
	{"we agreed", "en"},
	{"we're going with", "en"},
	{"we are going with", "en"},
	{"we will use", "en"},
	{"we settled on", "en"},
	{"decision:", "en"},
	{"the decision is", "en"},
	{"lesson learned", "en"},
	{"postmortem:", "en"},
	{"from now on", "en"},
	{"new policy", "en"},
	{"policy change", "en"},
	{"trade-off", "en"},
	{"instead of", "en"},

	{"하기로 했", "ko"},
	{"결정했", "ko"},
	{"결정됐", "ko"},
	{"정했습니다", "ko"},
	{"선택했습니다", "ko"},
	{"교훈", "ko"},

	{"することにした", "ja"},
	{"することにしました", "ja"},
	{"決定しました", "ja"},
	{"に決めた", "ja"},
	{"採用することに", "ja"},

	{"我们决定", "zh"},
	{"決定採用", "zh"},
	{"决定采用", "zh"},
	{"经验教训", "zh"},
	{"选择了", "zh"},
}

// MatchesTrigger reports whether text contains a capture-trigger phrase
// and, if so, which one.
func MatchesTrigger(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, t := range triggerTable {
		if strings.Contains(lower, strings.ToLower(t.phrase)) {
			return t.phrase, true
		}
	}
	return "", false
}

// seedExemplars are capture-worthy sentences embedded into the Tier-1
// cache at pipeline build so a fresh process has something to measure
// candidates against. The cache then grows with real captures.
var seedExemplars = []string{
	"We decided to adopt PostgreSQL over MongoDB for ACID guarantees.",
	"After the incident review we agreed to require two approvals for production deploys.",
	"The team chose gRPC instead of REST for internal services because of streaming support.",
	"New policy: all customer data exports must be encrypted at rest and audited.",
	"Lesson learned from the outage: connection pools need hard upper bounds.",
	"We are going with the monorepo layout; the trade-off is slower CI but simpler refactors.",
	"We rejected the vendor SDK and will maintain our own thin client for the billing API.",
	"Decision: sunset the legacy v1 API at the end of Q3 and notify integrators now.",
	"我们决定采用 Kafka 作为事件总线，因为需要重放能力。",
	"障害の教訓として、デプロイは金曜日に行わないことにしました。",
	"인증 서비스는 자체 구현 대신 OIDC 표준을 따르기로 했습니다.",
}

// SeedExemplars returns the built-in capture-worthy sentences.
func SeedExemplars() []string {
	out := make([]string, len(seedExemplars))
	copy(out, seedExemplars)
	return out
}
