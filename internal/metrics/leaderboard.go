package metrics

import "sort"

// LeaderboardEntry is one ranked row for a single metric on a single day.
type LeaderboardEntry struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Value       int    `json:"value"`
	Rank        int    `json:"rank"`
}

// Leaderboard is the ranked ordering plus the requesting user's position.
// UserPosition is nil when the user recorded no activity that day.
type Leaderboard struct {
	Entries      []*LeaderboardEntry `json:"entries"`
	UserPosition *LeaderboardEntry   `json:"user_position"`
	TotalUsers   int                 `json:"total_users"`
}

// RankInput is an unranked candidate row.
type RankInput struct {
	UserID      string
	DisplayName string
	Value       int
}

// Rank sorts entries descending by value and assigns rank = position+1 in
// the sorted order. Ties are broken by ascending user ID so the result never
// depends on store query order; this matches ROW_NUMBER() OVER
// (ORDER BY value DESC, user_id ASC) in the Postgres store.
func Rank(inputs []RankInput, requestingUserID string) *Leaderboard {
	sorted := make([]RankInput, len(inputs))
	copy(sorted, inputs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Value != sorted[j].Value {
			return sorted[i].Value > sorted[j].Value
		}
		return sorted[i].UserID < sorted[j].UserID
	})

	board := &Leaderboard{TotalUsers: len(sorted)}
	for i, in := range sorted {
		entry := &LeaderboardEntry{
			UserID:      in.UserID,
			DisplayName: in.DisplayName,
			Value:       in.Value,
			Rank:        i + 1,
		}
		board.Entries = append(board.Entries, entry)

		if in.UserID == requestingUserID {
			board.UserPosition = entry
		}
	}

	return board
}
