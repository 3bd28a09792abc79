package desk

import "time"

var demoClients = []Client{
	{
		ID:    "1",
		Name:  "Alexandra Chen",
		Tier:  TierBlack,
		Phone: "+1 (555) 234-5678",
		Email: "alexandra.chen@email.com",
		Preferences: Preferences{
			Airlines:  []string{"Emirates First Class", "Singapore Airlines Suites"},
			Hotels:    []string{"Four Seasons", "Aman Resorts"},
			Dietary:   []string{"Pescatarian", "No shellfish"},
			Interests: []string{"Art galleries", "Fine dining", "Spa & wellness"},
		},
		RecentTrips: []Trip{
			{Destination: "Tokyo, Japan", Date: "Nov 2024", Satisfaction: 5},
			{Destination: "Maldives", Date: "Sep 2024", Satisfaction: 5},
		},
		Notes:      "Prefers quiet rooms away from elevators. Always requests late checkout.",
		TotalSpend: "$847,000",
	},
	{
		ID:    "2",
		Name:  "Marcus Wellington III",
		Tier:  TierDiamond,
		Phone: "+1 (555) 987-6543",
		Email: "marcus.w@wellington.com",
		Preferences: Preferences{
			Airlines:  []string{"British Airways First", "Qantas First"},
			Hotels:    []string{"Ritz-Carlton", "St. Regis"},
			Dietary:   []string{"No restrictions"},
			Interests: []string{"Golf", "Wine tasting", "Private yacht charters"},
		},
		RecentTrips: []Trip{
			{Destination: "Bordeaux, France", Date: "Oct 2024", Satisfaction: 4},
			{Destination: "Dubai, UAE", Date: "Aug 2024", Satisfaction: 5},
		},
		Notes:      "Golf at every destination. Prefers courses with ocean views.",
		TotalSpend: "$523,000",
	},
	{
		ID:    "3",
		Name:  "Sofia Rodriguez",
		Tier:  TierPlatinum,
		Phone: "+1 (555) 345-6789",
		Email: "sofia.r@outlook.com",
		Preferences: Preferences{
			Airlines:  []string{"Delta One", "United Polaris"},
			Hotels:    []string{"Mandarin Oriental", "Peninsula"},
			Dietary:   []string{"Vegan"},
			Interests: []string{"Adventure travel", "Photography", "Hiking"},
		},
		RecentTrips: []Trip{
			{Destination: "Patagonia, Chile", Date: "Dec 2024", Satisfaction: 5},
		},
		Notes:      "Active traveler. Needs early morning activities.",
		TotalSpend: "$215,000",
	},
}

// a complete New Year trip to Dubai
var demoRecommendations = []Recommendation{
	{ID: "r1", Category: "flight", Title: "Emirates First Class", Subtitle: "JFK → DXB • Dec 28 • 2 passengers", Price: "$24,900", Margin: "8%"},
	{ID: "r2", Category: "transfer", Title: "VIP Airport Meet & Greet", Subtitle: "Private immigration + Rolls-Royce transfer", Price: "$850", Margin: "25%"},
	{ID: "r3", Category: "hotel", Title: "Burj Al Arab Royal Suite", Subtitle: "5 nights • Butler service • Burj views", Price: "$45,000", Margin: "12%"},
	{ID: "r4", Category: "dining", Title: "At.mosphere NYE Dinner", Subtitle: "Burj Khalifa 122nd floor • Fireworks view", Price: "$4,500", Margin: "18%"},
	{ID: "r5", Category: "experience", Title: "Private Yacht Charter", Subtitle: "4 hours • Palm Jumeirah sunset cruise", Price: "$3,800", Margin: "22%"},
	{ID: "r6", Category: "tour", Title: "Louvre Abu Dhabi Private Tour", Subtitle: "VIP curator-led • Skip all lines", Price: "$1,200", Margin: "30%"},
	{ID: "r7", Category: "event", Title: "Dubai Opera VIP Experience", Subtitle: "La Traviata • Royal Box seats", Price: "$2,400", Margin: "20%"},
	{ID: "r8", Category: "experience", Title: "Desert Safari VIP", Subtitle: "Private camp • Falcon show • Dinner", Price: "$2,800", Margin: "25%"},
	{ID: "r9", Category: "lounge", Title: "Spa Day at Talise", Subtitle: "Couples retreat • 4 hour package", Price: "$1,800", Margin: "15%"},
	{ID: "r10", Category: "flight", Title: "Emirates First Class Return", Subtitle: "DXB → JFK • Jan 2 • 2 passengers", Price: "$24,900", Margin: "8%"},
}

func initialQueue(now time.Time) []Call {
	return []Call{
		{ID: "call-1", Client: demoClients[0], Status: CallWaiting, WaitingSince: now.Add(-45 * time.Second), Purpose: "New Year Dubai trip planning"},
		{ID: "call-2", Client: demoClients[1], Status: CallWaiting, WaitingSince: now.Add(-2 * time.Minute), Purpose: "Golf vacation inquiry"},
		{ID: "call-3", Client: demoClients[2], Status: CallWaiting, WaitingSince: now.Add(-30 * time.Second), Purpose: "Adventure trip to Iceland"},
	}
}

func freshRecommendations() []Recommendation {
	return append([]Recommendation(nil), demoRecommendations...)
}
