package prediction

import (
	"testing"

	"github.com/riskibarqy/propboard/internal/domain/game"
	"github.com/riskibarqy/propboard/internal/domain/team"
)

func teamID(v string) team.ID {
	return team.ID(v)
}

func TestFilterCompleted_DropsFinalGames(t *testing.T) {
	t.Parallel()

	predictions := []Record{
		rec("Jalen Brunson", "NYK", 80),
		rec("LeBron James", "LAL", 50),
		rec("Jayson Tatum", "BOS", 70),
	}
	games := []game.Record{
		{GameID: "1", HomeTeam: "NYK", AwayTeam: "BOS", Status: game.StatusFinal},
		{GameID: "2", HomeTeam: "LAL", AwayTeam: "DEN", Status: game.StatusInProgress},
	}

	got := FilterCompleted(predictions, games)
	assertPlayers(t, "filtered", got, "LeBron James")
}

func TestFilterCompleted_EmptyGamesIsNoop(t *testing.T) {
	t.Parallel()

	predictions := []Record{rec("a", "NYK", 80), rec("b", "LAL", 50)}
	got := FilterCompleted(predictions, nil)
	assertPlayers(t, "filtered", got, "a", "b")
}

func TestFilterCompleted_SpecialEventsNeverCountAsFinal(t *testing.T) {
	t.Parallel()

	predictions := []Record{rec("a", "NYK", 80), rec("b", "LAL", 50)}
	games := []game.Record{
		{GameID: "asg", HomeTeam: "NYK", AwayTeam: "LAL", Status: game.StatusSpecialEvent},
	}
	got := FilterCompleted(predictions, games)
	assertPlayers(t, "filtered", got, "a", "b")
}

func TestFilterCompleted_Idempotent(t *testing.T) {
	t.Parallel()

	predictions := []Record{
		rec("a", "NYK", 80),
		rec("b", "LAL", 50),
		rec("c", "MIA", 66),
		rec("d", "NYK", 56),
	}
	games := []game.Record{
		{GameID: "1", HomeTeam: "MIA", AwayTeam: "NYK", Status: game.StatusFinal},
		{GameID: "2", HomeTeam: "LAL", AwayTeam: "GSW", Status: game.StatusScheduled},
	}

	once := FilterCompleted(predictions, games)
	twice := FilterCompleted(once, games)
	assertPlayers(t, "once", once, "b")
	assertPlayers(t, "twice", twice, "b")
}
