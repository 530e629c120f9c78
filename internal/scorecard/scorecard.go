// Package scorecard grades a player's 1v1 match history into a report card.
package scorecard

import (
	"math"
	"sort"

	"ladder-engine/internal/domain"
)

const (
	MinMatches   = 30
	MinOpponents = 6

	// an opponent above this share of all matches triggers the per-opponent cap
	FarmShare      = 0.30
	PerOpponentCap = 30

	DominantMargin = 10
	CloseMargin    = 3
	MapMinGames    = 3
	MapPoolCap     = 10
)

type Letter string

const (
	S Letter = "S"
	A Letter = "A"
	B Letter = "B"
	C Letter = "C"
	D Letter = "D"
	F Letter = "F"
)

var letterPoints = map[Letter]float64{S: 100, A: 85, B: 70, C: 55, D: 40, F: 20}

// Points is the numeric equivalent used for the overall grade.
func (l Letter) Points() float64 {
	return letterPoints[l]
}

// cutoffs for S, A, B, C, D; anything lower is F
type cutoffs [5]float64

func (c cutoffs) letter(v float64) Letter {
	for i, l := range []Letter{S, A, B, C, D} {
		if v >= c[i] {
			return l
		}
	}
	return F
}

var (
	winRateCutoffs = cutoffs{75, 65, 55, 45, 35}
	scoringCutoffs = cutoffs{20, 16, 12, 9, 6}
	masteryCutoffs = cutoffs{60, 45, 35, 25, 15}
	mapCutoffs     = cutoffs{80, 70, 60, 50, 40}
	kdCutoffs      = cutoffs{2.0, 1.6, 1.3, 1.0, 0.8}
	overallCutoffs = cutoffs{95, 82, 68, 54, 40}
)

const (
	winRateWeight = 0.30
	scoringWeight = 0.25
	masteryWeight = 0.20
	mapWeight     = 0.15
	kdWeight      = 0.10

	dominantWeight  = 0.7
	closeGameWeight = 0.3
	bestMapWeight   = 0.7
	mapPoolWeight   = 0.3
)

type Metric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Grade Letter  `json:"grade"`
}

type Scorecard struct {
	Username        string  `json:"username"`
	Matches         int     `json:"matches"`
	Opponents       int     `json:"opponents"`
	Adjusted        bool    `json:"adjusted"` // per-opponent cap applied
	WinRate         Metric  `json:"win_rate"`
	AverageScore    Metric  `json:"average_score"`
	OpponentMastery Metric  `json:"opponent_mastery"`
	MapMastery      Metric  `json:"map_mastery"`
	KDRatio         Metric  `json:"kd_ratio"`
	OverallScore    float64 `json:"overall_score"`
	Overall         Letter  `json:"overall"`
	BestMap         string  `json:"best_map,omitempty"`
}

func (s Scorecard) Metrics() []Metric {
	return []Metric{s.WinRate, s.AverageScore, s.OpponentMastery, s.MapMastery, s.KDRatio}
}

// InsufficientData tells the player how much more history is needed.
type InsufficientData struct {
	Matches         int `json:"matches"`
	Opponents       int `json:"opponents"`
	MatchesNeeded   int `json:"matches_needed"`
	OpponentsNeeded int `json:"opponents_needed"`
}

// Result holds exactly one of Card or Insufficient.
type Result struct {
	Card         *Scorecard        `json:"card,omitempty"`
	Insufficient *InsufficientData `json:"insufficient,omitempty"`
}

func (r Result) Graded() bool {
	return r.Card != nil
}

type tally struct {
	matches      int
	wins         int
	kills        int
	deaths       int
	dominantWins int
	closeGames   int
	closeWins    int
}

func (t *tally) add(o tally) {
	t.matches += o.matches
	t.wins += o.wins
	t.kills += o.kills
	t.deaths += o.deaths
	t.dominantWins += o.dominantWins
	t.closeGames += o.closeGames
	t.closeWins += o.closeWins
}

func (t tally) scaled(cap int) tally {
	if t.matches <= cap {
		return t
	}
	f := float64(cap) / float64(t.matches)
	r := func(v int) int { return int(math.Round(float64(v) * f)) }
	return tally{
		matches:      cap,
		wins:         r(t.wins),
		kills:        r(t.kills),
		deaths:       r(t.deaths),
		dominantWins: r(t.dominantWins),
		closeGames:   r(t.closeGames),
		closeWins:    r(t.closeWins),
	}
}

type mapTally struct {
	games int
	wins  int
}

// Grade builds the report card for username from its 1v1 matches.
// Free-for-all matches and matches the player is not part of are ignored.
func Grade(username string, matches []domain.Match) Result {
	byOpponent := map[string]*tally{}
	maps := map[string]*mapTally{}
	total := 0

	for _, m := range matches {
		if m.IsFreeForAll() {
			continue
		}
		r, ok := m.ResultFor("", username)
		if !ok {
			continue
		}
		total++

		key := domain.NormalizeUsername(r.Opponent)
		if key == "" {
			key = r.OpponentID
		}
		t := byOpponent[key]
		if t == nil {
			t = &tally{}
			byOpponent[key] = t
		}
		t.matches++
		t.kills += r.Kills
		t.deaths += r.Deaths

		margin := r.Kills - r.OpponentKills
		if r.Won {
			t.wins++
			if margin >= DominantMargin {
				t.dominantWins++
			}
		}
		if abs(margin) <= CloseMargin {
			t.closeGames++
			if r.Won {
				t.closeWins++
			}
		}

		mt := maps[r.Map]
		if mt == nil {
			mt = &mapTally{}
			maps[r.Map] = mt
		}
		mt.games++
		if r.Won {
			mt.wins++
		}
	}

	if total < MinMatches || len(byOpponent) < MinOpponents {
		return Result{Insufficient: &InsufficientData{
			Matches:         total,
			Opponents:       len(byOpponent),
			MatchesNeeded:   max(0, MinMatches-total),
			OpponentsNeeded: max(0, MinOpponents-len(byOpponent)),
		}}
	}

	adjusted := false
	for _, t := range byOpponent {
		if float64(t.matches)/float64(total) > FarmShare {
			adjusted = true
			break
		}
	}

	var agg tally
	for _, t := range byOpponent {
		if adjusted {
			agg.add(t.scaled(PerOpponentCap))
		} else {
			agg.add(*t)
		}
	}

	card := &Scorecard{
		Username:  username,
		Matches:   total,
		Opponents: len(byOpponent),
		Adjusted:  adjusted,
	}

	winRate := pct(agg.wins, agg.matches)
	card.WinRate = Metric{Name: "Win Rate", Value: winRate, Grade: winRateCutoffs.letter(winRate)}

	avg := ratio(agg.kills, agg.matches)
	card.AverageScore = Metric{Name: "Average Score", Value: avg, Grade: scoringCutoffs.letter(avg)}

	mastery := dominantWeight*pct(agg.dominantWins, agg.wins) + closeGameWeight*pct(agg.closeWins, agg.closeGames)
	card.OpponentMastery = Metric{Name: "Opponent Mastery", Value: mastery, Grade: masteryCutoffs.letter(mastery)}

	bestMap, bestRate := bestMap(maps)
	breadth := float64(min(len(maps), MapPoolCap)) / MapPoolCap * 100
	mapScore := bestMapWeight*bestRate + mapPoolWeight*breadth
	card.BestMap = bestMap
	card.MapMastery = Metric{Name: "Map Mastery", Value: mapScore, Grade: mapCutoffs.letter(mapScore)}

	kd := float64(agg.kills)
	if agg.deaths > 0 {
		kd = ratio(agg.kills, agg.deaths)
	}
	card.KDRatio = Metric{Name: "K/D Ratio", Value: kd, Grade: kdCutoffs.letter(kd)}

	card.OverallScore = winRateWeight*card.WinRate.Grade.Points() +
		scoringWeight*card.AverageScore.Grade.Points() +
		masteryWeight*card.OpponentMastery.Grade.Points() +
		mapWeight*card.MapMastery.Grade.Points() +
		kdWeight*card.KDRatio.Grade.Points()
	// weights sum to 1 but float addition can land a hair under a cutoff
	card.OverallScore = math.Round(card.OverallScore*1e6) / 1e6
	card.Overall = overallCutoffs.letter(card.OverallScore)

	return Result{Card: card}
}

// bestMap returns the highest win-rate map among maps with enough games;
// ties resolve alphabetically.
func bestMap(maps map[string]*mapTally) (string, float64) {
	names := make([]string, 0, len(maps))
	for name := range maps {
		names = append(names, name)
	}
	sort.Strings(names)

	best, bestRate := "", 0.0
	for _, name := range names {
		mt := maps[name]
		if mt.games < MapMinGames {
			continue
		}
		if r := pct(mt.wins, mt.games); best == "" || r > bestRate {
			best, bestRate = name, r
		}
	}
	return best, bestRate
}

func pct(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d) * 100
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
