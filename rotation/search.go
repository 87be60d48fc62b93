package rotation

import (
	"sort"
	"strings"

	"github.com/178inaba/duty-scheduler/entity"
)

const DefaultSearchLimit = 10

const (
	rankFullName = iota
	rankFirstName
	rankLastName
	rankTokens
)

type match struct {
	member *entity.Member
	rank   int
}

// Search is a token-prefix search over active members' names. A single-word
// query matches as a substring of the full name or a prefix of the first or
// last name. A multi-word query matches only when every query word is a
// prefix of a different name word, in any order. gender may be empty.
func Search(roster []*entity.Member, query string, gender entity.Gender, limit int) []*entity.Member {
	q := strings.ToLower(strings.TrimSpace(query))

	var matches []match
	for _, m := range roster {
		if !m.Active || (gender != "" && m.Gender != gender) {
			continue
		}
		if q == "" {
			matches = append(matches, match{member: m})
			continue
		}
		if rank, ok := rankMember(m, q); ok {
			matches = append(matches, match{member: m, rank: rank})
		}
	}

	if q != "" {
		sort.SliceStable(matches, func(i, j int) bool {
			a, b := matches[i], matches[j]
			if a.rank != b.rank {
				return a.rank < b.rank
			}
			if a.member.LastName != b.member.LastName {
				return a.member.LastName < b.member.LastName
			}
			return a.member.FirstName < b.member.FirstName
		})
	}

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	members := make([]*entity.Member, len(matches))
	for i, mt := range matches {
		members[i] = mt.member
	}
	return members
}

func rankMember(m *entity.Member, q string) (int, bool) {
	first := strings.ToLower(m.FirstName)
	last := strings.ToLower(m.LastName)

	words := strings.Fields(q)
	if len(words) == 1 {
		switch {
		case strings.Contains(first+" "+last, q):
			return rankFullName, true
		case strings.HasPrefix(first, q):
			return rankFirstName, true
		case strings.HasPrefix(last, q):
			return rankLastName, true
		}
		return 0, false
	}

	names := append(strings.Fields(first), strings.Fields(last)...)
	if matchDistinct(words, names, make([]bool, len(names))) {
		return rankTokens, true
	}
	return 0, false
}

// matchDistinct reports whether each word can be assigned its own name token
// that it prefixes. Backtracks so that "jo john" matches "john jones".
func matchDistinct(words, names []string, used []bool) bool {
	if len(words) == 0 {
		return true
	}
	for i, n := range names {
		if used[i] || !strings.HasPrefix(n, words[0]) {
			continue
		}
		used[i] = true
		if matchDistinct(words[1:], names, used) {
			return true
		}
		used[i] = false
	}
	return false
}
