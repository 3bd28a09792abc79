// Package view derives which screen the presentation layer should show.
// It owns no state; everything comes in through Input.
package view

import "val8-concierge/internal/models"

const (
	// DemoCheckoutThreshold is the ledger size at which demo checkout becomes reachable
	DemoCheckoutThreshold = 5
	// ItineraryThreshold is the ledger size at which the demo itinerary becomes reachable
	ItineraryThreshold = 6
)

// Input is the set of session facts a view depends on
type Input struct {
	Demo              bool
	Phase             models.Phase
	StepIndex         int
	MessageCount      int
	LedgerSize        int
	CheckoutTriggered bool
	CheckoutCompleted bool

	// standard flow milestones
	RecommendationsShown bool
	Selected             bool
	Confirmed            bool

	// Requested is what the user navigated to, if anything
	Requested models.View
}

func Resolve(in Input) models.View {
	if in.MessageCount == 0 {
		return models.ViewWelcome
	}
	if in.Demo {
		return resolveDemo(in)
	}
	return resolveStandard(in)
}

func resolveDemo(in Input) models.View {
	switch {
	case in.CheckoutCompleted:
		return models.ViewDemoSuccess
	case in.Requested == models.ViewItinerary && in.LedgerSize >= ItineraryThreshold:
		return models.ViewItinerary
	case in.Requested == models.ViewChat:
		return models.ViewChat
	case in.CheckoutTriggered:
		return models.ViewDemoCheckout
	case in.Requested == models.ViewDemoCheckout && in.LedgerSize >= DemoCheckoutThreshold:
		return models.ViewDemoCheckout
	}
	return models.ViewChat
}

func resolveStandard(in Input) models.View {
	switch {
	case in.Confirmed:
		if in.Requested == models.ViewItinerary {
			return models.ViewItinerary
		}
		return models.ViewConfirmation
	case in.Selected && in.Requested == models.ViewCheckout:
		return models.ViewCheckout
	case in.Selected:
		return models.ViewSummary
	case in.RecommendationsShown && in.Requested != models.ViewChat:
		return models.ViewRecommendations
	}
	return models.ViewChat
}

// Reachable reports whether navigating to v could change the resolved view
func Reachable(in Input, v models.View) bool {
	in.Requested = v
	return Resolve(in) == v
}
