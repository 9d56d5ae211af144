package repository

import (
	"time"

	"github.com/okian/pitchside/internal/domain/model"
)

const day = 24 * time.Hour

// Fixtures returns the demo matches, scheduled relative to now. Match "2"
// is closed, so its board is read-only.
func Fixtures(now time.Time) []model.Match {
	return []model.Match{
		{
			ID:              "1",
			HomeTeam:        model.Team{Name: "Real Sporting", LogoURL: "https://picsum.photos/seed/1/100/100"},
			AwayTeam:        model.Team{Name: "Real Oviedo", LogoURL: "https://picsum.photos/seed/2/100/100"},
			Date:            now.Add(2 * day),
			Competition:     "Segunda División",
			Stadium:         "El Molinón",
			AssignedScoutID: "u2",
		},
		{
			ID:              "2",
			HomeTeam:        model.Team{Name: "UP Langreo", LogoURL: "https://picsum.photos/seed/3/100/100"},
			AwayTeam:        model.Team{Name: "Marino de Luanco", LogoURL: "https://picsum.photos/seed/4/100/100"},
			Date:            now.Add(3 * day),
			Competition:     "Segunda B",
			Stadium:         "Estadio Ganzábal",
			IsClosed:        true,
			AssignedScoutID: "u3",
		},
		{
			ID:          "3",
			HomeTeam:    model.Team{Name: "Caudal Deportivo", LogoURL: "https://picsum.photos/seed/5/100/100"},
			AwayTeam:    model.Team{Name: "CD Covadonga", LogoURL: "https://picsum.photos/seed/6/100/100"},
			Date:        now.Add(4 * day),
			Competition: "Tercera División",
			Stadium:     "Hermanos Antuña",
		},
	}
}
