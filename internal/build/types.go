package build

// WinningItem holds one item's isolated statistics for a champion/mode/rank segment
type WinningItem struct {
	Name       string  `json:"name"`
	WinRate    float64 `json:"win_rate"`
	PickRate   float64 `json:"pick_rate"`
	SampleSize int     `json:"sample_size"`
}

// BuiltSet is one observed 5-item loadout. Items are in acquisition order.
type BuiltSet struct {
	Items         []string `json:"items"`
	SetWinRate    float64  `json:"set_win_rate"`
	SetPickRate   float64  `json:"set_pick_rate"`
	SetSampleSize int      `json:"set_sample_size"`
}

// Contains reports whether the set holds the named item
func (s BuiltSet) Contains(name string) bool {
	for _, it := range s.Items {
		if it == name {
			return true
		}
	}
	return false
}

// ContainsAll reports whether the set holds every named item
func (s BuiltSet) ContainsAll(names []string) bool {
	for _, n := range names {
		if !s.Contains(n) {
			return false
		}
	}
	return true
}

// Position returns the 1-based index of name in Items, or 0 when absent
func (s BuiltSet) Position(name string) int {
	for i, it := range s.Items {
		if it == name {
			return i + 1
		}
	}
	return 0
}

// SelectorTier identifies which candidate pool attempt produced C0
type SelectorTier string

const (
	TierPrimary    SelectorTier = "primary"
	TierLoosened   SelectorTier = "loosened"
	TierTopProduct SelectorTier = "top_product"
)

// Thresholds is the per-run record of percentile cuts used by the candidate selector
type Thresholds struct {
	P25          float64      `json:"P25"`
	P50          float64      `json:"P50"`
	P75          float64      `json:"P75"`
	W50          float64      `json:"W50"`
	W75          float64      `json:"W75"`
	GlobalAvgWin float64      `json:"GlobalAvgWin"`
	PickCut      float64      `json:"PickCut"`
	WinCut       float64      `json:"WinCut"`
	MaxPick      float64      `json:"max_pick"`
	Tau          float64      `json:"Tau"`
	Tier         SelectorTier `json:"tier"`
}

// Action is the greedy builder's verdict on one candidate
type Action string

const (
	ActionAccept       Action = "accept"
	ActionAcceptByLift Action = "accept_by_lift"
	ActionReject       Action = "reject"
)

// Decision records one greedy step
type Decision struct {
	Item    string  `json:"item"`
	Score   float64 `json:"score"`
	Support float64 `json:"sup"`
	Cut     float64 `json:"cut"`
	Lift    float64 `json:"lift,omitempty"`
	Action  Action  `json:"action"`
}

// ItemFrequency is an item's share of representative loadouts containing it
type ItemFrequency struct {
	Item      string  `json:"item"`
	Frequency float64 `json:"frequency"`
}

// SlotCandidate holds the conditional statistics computed for a final-slot candidate
type SlotCandidate struct {
	Item      string  `json:"item"`
	PickShare float64 `json:"pick_share"`
	WinWith   float64 `json:"win_with"`
	Lift      float64 `json:"lift"`
	RankPick  float64 `json:"rank_pick"`
	RankWin   float64 `json:"rank_win"`
	Combined  float64 `json:"combined_score"`
}

// Padding records an item added by the completion step and where it came from
type Padding struct {
	Item   string `json:"item"`
	Source string `json:"source"`
}

// Trace is the verbose audit trail, only populated when explain is requested
type Trace struct {
	WinningItems           []WinningItem   `json:"winning_items"`
	C0                     []string        `json:"C0"`
	C1                     []string        `json:"C1"`
	CooccurFreq            []ItemFrequency `json:"cooccur_freq"`
	Decisions              []Decision      `json:"decisions"`
	FinalSlot              []SlotCandidate `json:"final_slot,omitempty"`
	Padding                []Padding       `json:"padding,omitempty"`
	SelectedBeforeOrdering []string        `json:"selected_before_ordering"`
	OrderedFinal           []string        `json:"ordered_final"`
}

// Rationale is the structured audit trail returned with every recommendation
type Rationale struct {
	Thresholds  Thresholds `json:"dynamic_thresholds"`
	Supports    []float64  `json:"supports"`
	TopSetsUsed int        `json:"top_sets_used"`
	Degenerate  bool       `json:"degenerate,omitempty"`
	Explain     *Trace     `json:"explain,omitempty"`
}

// Result is the engine output for one invocation
type Result struct {
	Boots     string    `json:"boots"`
	Order     []string  `json:"order"`
	Rationale Rationale `json:"rationale"`
}
