package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRankOrdersByValueDescending(t *testing.T) {
	inputs := []RankInput{
		{UserID: "a", DisplayName: "Alice", Value: 100},
		{UserID: "b", DisplayName: "Bob", Value: 300},
		{UserID: "c", DisplayName: "Cara", Value: 200},
	}

	board := Rank(inputs, "a")

	require.Len(t, board.Entries, 3)
	require.Equal(t, 3, board.TotalUsers)

	require.Equal(t, "b", board.Entries[0].UserID)
	require.Equal(t, 1, board.Entries[0].Rank)
	require.Equal(t, "c", board.Entries[1].UserID)
	require.Equal(t, 2, board.Entries[1].Rank)
	require.Equal(t, "a", board.Entries[2].UserID)
	require.Equal(t, 3, board.Entries[2].Rank)

	require.NotNil(t, board.UserPosition)
	require.Equal(t, "a", board.UserPosition.UserID)
	require.Equal(t, 3, board.UserPosition.Rank)
}

func TestRankBreaksTiesByUserID(t *testing.T) {
	inputs := []RankInput{
		{UserID: "z", Value: 500},
		{UserID: "a", Value: 500},
		{UserID: "m", Value: 500},
	}

	board := Rank(inputs, "m")

	require.Equal(t, "a", board.Entries[0].UserID)
	require.Equal(t, "m", board.Entries[1].UserID)
	require.Equal(t, "z", board.Entries[2].UserID)
	require.Equal(t, []int{1, 2, 3}, []int{board.Entries[0].Rank, board.Entries[1].Rank, board.Entries[2].Rank})
	require.Equal(t, 2, board.UserPosition.Rank)
}

func TestRankOrderIndependentOfInputOrder(t *testing.T) {
	forward := Rank([]RankInput{{UserID: "a", Value: 10}, {UserID: "b", Value: 10}}, "")
	reversed := Rank([]RankInput{{UserID: "b", Value: 10}, {UserID: "a", Value: 10}}, "")

	require.Equal(t, forward.Entries[0].UserID, reversed.Entries[0].UserID)
	require.Equal(t, forward.Entries[1].UserID, reversed.Entries[1].UserID)
}

func TestRankUserNotOnBoard(t *testing.T) {
	board := Rank([]RankInput{{UserID: "a", Value: 100}}, "ghost")

	require.Nil(t, board.UserPosition)
	require.Equal(t, 1, board.TotalUsers)
}

func TestRankEmptyInput(t *testing.T) {
	board := Rank(nil, "a")

	require.Empty(t, board.Entries)
	require.Nil(t, board.UserPosition)
	require.Zero(t, board.TotalUsers)
}

func TestRankDoesNotMutateInput(t *testing.T) {
	inputs := []RankInput{
		{UserID: "b", Value: 1},
		{UserID: "a", Value: 2},
	}

	Rank(inputs, "a")

	require.Equal(t, "b", inputs[0].UserID)
	require.Equal(t, "a", inputs[1].UserID)
}
