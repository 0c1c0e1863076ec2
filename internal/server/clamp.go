package server

import "math/rand"

// clampOptions trims every quote's option set to the number of players so
// the UI can assign exactly one option per seat. When the trim cuts off the
// correct answer it is re-inserted at a random index inside the clamped
// range; either way correctOptionIndex ends up pointing at the correct
// answer's new position. Callers guarantee totalPlayers >= 1.
func clampOptions(quotes []Quote, totalPlayers int) []Quote {
	clamped := make([]Quote, 0, len(quotes))
	for _, quote := range quotes {
		if quote.CorrectOptionIndex < 0 || quote.CorrectOptionIndex >= len(quote.Options) {
			continue
		}
		correct := quote.Options[quote.CorrectOptionIndex]

		limit := totalPlayers
		if limit > len(quote.Options) {
			limit = len(quote.Options)
		}
		options := append([]string(nil), quote.Options[:limit]...)

		index := indexOf(options, correct)
		if index == -1 {
			index = rand.Intn(limit)
			options[index] = correct
		}
		clamped = append(clamped, Quote{
			Quote:              quote.Quote,
			Options:            options,
			CorrectOptionIndex: index,
		})
	}
	return clamped
}

func indexOf(values []string, target string) int {
	for i, value := range values {
		if value == target {
			return i
		}
	}
	return -1
}
