package service

import (
	"math"
	"tourbook/pkg/model"
)

// childRate is the share of the tour price charged per child.
const childRate = 0.5

// ComputeTotal prices a booking: the tour per adult, half the tour per child,
// plus the hotel stay when one is selected.
func ComputeTotal(tourPrice float64, party model.PartyComposition, hotel *model.HotelSelection) float64 {
	total := tourPrice*float64(party.Adults) + tourPrice*childRate*float64(party.Children)
	if hotel != nil {
		total += float64(hotel.Nights) * hotel.NightlyPrice
	}
	return roundCents(total)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
