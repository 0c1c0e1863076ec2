package server

// fallbackQuotes is the built-in dataset used when every quote provider is
// unreachable or returns garbage. It always covers the default question
// count so startGame can never fail.
var fallbackQuotes = []Quote{
	{
		Quote:              "I'll be back",
		Options:            []string{"Batman", "Star Wars", "Terminator", "AI Generated"},
		CorrectOptionIndex: 2,
	},
	{
		Quote:              "To be or not to be",
		Options:            []string{"Romeo", "Hamlet", "AI Generated", "Shakespeare"},
		CorrectOptionIndex: 1,
	},
	{
		Quote:              "I'm going to make him an offer he can't refuse",
		Options:            []string{"The Godfather", "AI Generated", "The Godfather: Part II", "The Wolf of Wall Street"},
		CorrectOptionIndex: 0,
	},
	{
		Quote:              "Here's looking at you, kid",
		Options:            []string{"The Wizard of Oz", "Casablanca", "Gone with the Wind", "AI Generated"},
		CorrectOptionIndex: 1,
	},
	{
		Quote:              "May the Force be with you",
		Options:            []string{"AI Generated", "Avatar", "Star Trek", "Star Wars"},
		CorrectOptionIndex: 3,
	},
	{
		Quote:              "You're gonna need a bigger boat",
		Options:            []string{"Finding Nemo", "Jaws", "AI Generated", "Titanic"},
		CorrectOptionIndex: 1,
	},
	{
		Quote:              "Elementary, my dear Watson",
		Options:            []string{"Mission Impossible", "AI Generated", "Sherlock Holmes", "Agatha Christie"},
		CorrectOptionIndex: 2,
	},
	{
		Quote:              "Life is like a box of chocolates",
		Options:            []string{"The Notebook", "Charlie and the Chocolate Factory", "Forrest Gump", "AI Generated"},
		CorrectOptionIndex: 2,
	},
	{
		Quote:              "I see dead people",
		Options:            []string{"Ghost", "The Sixth Sense", "AI Generated", "Poltergeist"},
		CorrectOptionIndex: 1,
	},
	{
		Quote:              "Say hello to my little friend",
		Options:            []string{"AI Generated", "Goodfellas", "Casino", "Scarface"},
		CorrectOptionIndex: 3,
	},
}
